package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/flowlog/internal/flowlog"
	"github.com/tinytelemetry/flowlog/internal/severity"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

type logLine struct {
	Level   string `json:"@level"`
	Message string `json:"@message"`
}

func (b *syncBuffer) lines(t *testing.T) []logLine {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []logLine
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var l logLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		out = append(out, l)
	}
	return out
}

func newTestLogger(threshold severity.Level) (*flowlog.Processor, *syncBuffer) {
	buf := &syncBuffer{}
	sink := severity.NewSink(severity.SinkConfig{
		Threshold: threshold,
		Format:    "json",
		Output:    buf,
	})
	return flowlog.NewProcessor(sink, flowlog.WithHost("test-host")), buf
}
