package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogType(t *testing.T) {
	for _, name := range []string{"ENTRY", "AUXILIARY", "INTERMEDIATE", "AUDIT", "EXIT"} {
		lt, err := ParseLogType(strings.ToLower(name))
		require.NoError(t, err)
		assert.Equal(t, name, lt.String())
	}

	lt, err := ParseLogType("middle")
	assert.Error(t, err)
	assert.Equal(t, LogTypeIntermediate, lt)

	var zero LogType
	assert.Equal(t, "INTERMEDIATE", zero.String())
	assert.Equal(t, "UNKNOWN", LogType(42).String())
}

func TestParsePayloadType(t *testing.T) {
	for _, name := range []string{"TEXT", "JSON", "XML"} {
		pt, err := ParsePayloadType(" " + name + " ")
		require.NoError(t, err)
		assert.Equal(t, name, pt.String())
	}

	_, err := ParsePayloadType("yaml")
	assert.Error(t, err)

	var zero PayloadType
	assert.Equal(t, PayloadText, zero)
}

type named struct{}

func (named) String() string { return "named payload" }

func TestMessage_Loggable(t *testing.T) {
	tests := []struct {
		name string
		body any
		want string
	}{
		{"nil", nil, ""},
		{"string", "hi", "hi"},
		{"bytes", []byte("hi"), "hi"},
		{"binary", []byte{0xff, 0x00}, "[]byte(len=2)"},
		{"stream", strings.NewReader("never read"), "*strings.Reader"},
		{"stringer", named{}, "named payload"},
		{"other", 3.5, "float64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Message{Body: tt.body}
			assert.Equal(t, tt.want, m.Loggable())
		})
	}
}

func TestMessage_RootIDAndVars(t *testing.T) {
	m := &Message{ID: "m-1", Flow: "orders", Attributes: map[string]string{"tenant": "t1", "id": "spoofed"}}
	assert.Equal(t, "m-1", m.RootID())

	m.Root = "r-1"
	assert.Equal(t, "r-1", m.RootID())

	vars := m.Vars()
	assert.Equal(t, "t1", vars["tenant"])
	assert.Equal(t, "m-1", vars["id"])
	assert.Equal(t, "r-1", vars["rootId"])
	assert.Equal(t, "orders", vars["flow"])
}
