package model

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// Event is one message in transit through a processing flow.
// Implementations are owned by the flow engine; the logger only reads them.
type Event interface {
	// Payload returns the opaque payload value.
	Payload() any
	// RootID is the flow-supplied root id, the default correlation id.
	RootID() string
	// Loggable is the default loggable representation of the event.
	// It must not consume a streaming payload.
	Loggable() string
	// Vars is the expression-evaluation context keyed to the event.
	Vars() map[string]any
}

// Message is the Event implementation produced by the ingest adapter.
type Message struct {
	ID         string
	Root       string
	Flow       string
	Source     string
	Body       any
	Attributes map[string]string
}

func (m *Message) Payload() any { return m.Body }

func (m *Message) RootID() string {
	if m.Root != "" {
		return m.Root
	}
	return m.ID
}

// Loggable renders the payload for logging. Text and UTF-8 bytes are returned
// as-is, streams and unknown values are described by type.
func (m *Message) Loggable() string {
	switch v := m.Body.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		if utf8.Valid(v) {
			return string(v)
		}
		return fmt.Sprintf("[]byte(len=%d)", len(v))
	case io.Reader:
		return fmt.Sprintf("%T", v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%T", v)
	}
}

func (m *Message) Vars() map[string]any {
	vars := make(map[string]any, len(m.Attributes)+4)
	for k, v := range m.Attributes {
		vars[k] = v
	}
	vars["id"] = m.ID
	vars["rootId"] = m.RootID()
	vars["flow"] = m.Flow
	vars["source"] = m.Source
	return vars
}
