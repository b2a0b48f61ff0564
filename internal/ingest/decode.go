package ingest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/tinytelemetry/flowlog/internal/flowlog"
	"github.com/tinytelemetry/flowlog/internal/logparse"
	"github.com/tinytelemetry/flowlog/internal/model"
	"github.com/tinytelemetry/flowlog/internal/severity"
)

// Payload encodings accepted in an event line.
const (
	EncodingText   = "text"
	EncodingJSON   = "json"
	EncodingBase64 = "base64"
	EncodingXML    = "xml"
)

// EventLine is the JSON shape of one event line.
type EventLine struct {
	ID              string            `json:"id,omitempty"`
	RootID          string            `json:"rootId,omitempty"`
	Flow            string            `json:"flow,omitempty"`
	Payload         json.RawMessage   `json:"payload,omitempty"`
	PayloadEncoding string            `json:"payloadEncoding,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	Options         *LineOptions      `json:"options,omitempty"`
}

// LineOptions overrides the processor defaults for one event. Nil fields keep
// the default.
type LineOptions struct {
	Message         *string `json:"message,omitempty"`
	CorrelationID   *string `json:"correlationId,omitempty"`
	Level           *string `json:"level,omitempty"`
	PayloadType     *string `json:"payloadType,omitempty"`
	LogType         *string `json:"logType,omitempty"`
	LogPayload      *bool   `json:"logPayload,omitempty"`
	TruncatePayload *bool   `json:"truncatePayload,omitempty"`
}

var eventKeys = []string{"id", "rootId", "flow", "payload", "payloadEncoding", "options"}

// IsEventLine reports whether line is a JSON object carrying at least one
// event key. Other lines are logged as text payloads.
func IsEventLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return false
	}
	for _, k := range eventKeys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

// ParseEventLine decodes a JSON event line.
func ParseEventLine(line string) (*EventLine, error) {
	var ev EventLine
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return nil, fmt.Errorf("decode event line: %w", err)
	}
	return &ev, nil
}

// Message converts the line into an event tagged with source.
func (l *EventLine) Message(source string) (*model.Message, error) {
	body, err := decodePayload(l.Payload, l.PayloadEncoding)
	if err != nil {
		return nil, err
	}
	msg := &model.Message{
		ID:         l.ID,
		Root:       l.RootID,
		Flow:       l.Flow,
		Source:     source,
		Body:       body,
		Attributes: l.Attributes,
	}
	if msg.ID == "" && msg.Root == "" {
		msg.ID = uuid.NewString()
	}
	return msg, nil
}

// Apply layers the line options over defaults.
func (o *LineOptions) Apply(defaults flowlog.Options) (flowlog.Options, error) {
	opts := defaults
	if o == nil {
		return opts, nil
	}
	if o.Message != nil {
		opts.Message = *o.Message
	}
	if o.CorrelationID != nil {
		opts.CorrelationID = *o.CorrelationID
	}
	if o.Level != nil {
		opts.Level = LenientLevel(*o.Level)
	}
	if o.PayloadType != nil {
		pt, err := model.ParsePayloadType(*o.PayloadType)
		if err != nil {
			return defaults, err
		}
		opts.PayloadType = pt
	}
	if o.LogType != nil {
		lt, err := model.ParseLogType(*o.LogType)
		if err != nil {
			return defaults, err
		}
		opts.LogType = lt
	}
	if o.LogPayload != nil {
		opts.LogPayload = *o.LogPayload
	}
	if o.TruncatePayload != nil {
		opts.TruncatePayload = *o.TruncatePayload
	}
	return opts, nil
}

// LenientLevel maps common severity spellings (WARNING, FATAL, numeric pino
// levels) onto the five flow levels. Unknown names map to INFO.
func LenientLevel(name string) severity.Level {
	name = strings.TrimSpace(name)
	if n, err := strconv.Atoi(name); err == nil {
		name = logparse.NumericSeverity(n)
	}
	l, err := severity.Parse(logparse.NormalizeSeverity(name))
	if err != nil {
		return severity.Default
	}
	return l
}

// TextMessage wraps a plain line as a text-payload event.
func TextMessage(source, line string) *model.Message {
	return &model.Message{
		ID:     uuid.NewString(),
		Source: source,
		Body:   line,
	}
}

func decodePayload(raw json.RawMessage, encoding string) (any, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	text, quoted := unquote(raw)

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingText:
		return text, nil
	case EncodingJSON:
		if quoted {
			return []byte(text), nil
		}
		return []byte(raw), nil
	case EncodingBase64:
		if !quoted {
			return nil, fmt.Errorf("base64 payload must be a JSON string")
		}
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("decode base64 payload: %w", err)
		}
		return b, nil
	case EncodingXML:
		doc := etree.NewDocument()
		if err := doc.ReadFromString(text); err != nil || doc.Root() == nil {
			return text, nil
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", encoding)
	}
}

// unquote returns the string value of a JSON string, or the raw text of any
// other JSON value.
func unquote(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return string(raw), false
}
