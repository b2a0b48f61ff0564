package severity

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"TRACE", Trace, false},
		{"debug", Debug, false},
		{" Info ", Info, false},
		{"warn", Warn, false},
		{"WARNING", Warn, false},
		{"error", Error, false},
		{"fatal", Default, true},
		{"", Default, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOr(t *testing.T) {
	assert.Equal(t, Info, Or(nil))
	assert.Equal(t, Warn, Or(Warn))
}

func TestLevels_Ordered(t *testing.T) {
	var names []string
	for _, l := range Levels() {
		names = append(names, l.String())
	}
	assert.Equal(t, []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}, names)
}

func TestLevels_GateOnSinkThreshold(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(SinkConfig{Threshold: Warn, Output: &buf})

	for _, l := range Levels() {
		if l.Enabled(sink) {
			l.Log(sink, "line at "+l.String())
		}
	}

	out := buf.String()
	assert.NotContains(t, out, "line at TRACE")
	assert.NotContains(t, out, "line at DEBUG")
	assert.NotContains(t, out, "line at INFO")
	assert.Contains(t, out, "[WARN]  "+SourceName+": line at WARN")
	assert.Contains(t, out, "[ERROR] "+SourceName+": line at ERROR")
}

func TestNewSink_JSON(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(SinkConfig{Threshold: Trace, Format: "json", Output: &buf})
	Trace.Log(sink, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "hello", entry["@message"])
	assert.Equal(t, SourceName, entry["@module"])
	assert.Equal(t, "trace", entry["@level"])
}
