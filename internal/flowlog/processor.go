// Package flowlog builds the single log line emitted for a flow event and
// dispatches it at the requested severity.
//
// A line has the shape
//
//	Host: <host>, LogType: <type>, CorrelationID:<id>, Message:<message>
//
// optionally followed by "\nPayload: <text>" inside the message part.
// Consumers parse these lines, so field order and labels are fixed.
package flowlog

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/tinytelemetry/flowlog/internal/expr"
	"github.com/tinytelemetry/flowlog/internal/hostname"
	"github.com/tinytelemetry/flowlog/internal/model"
	"github.com/tinytelemetry/flowlog/internal/payload"
	"github.com/tinytelemetry/flowlog/internal/severity"
)

// ErrNilEvent is returned by LogEvent when no event is given.
var ErrNilEvent = errors.New("flowlog: event cannot be nil")

// nilEvent is emitted by Log in place of a missing event.
const nilEvent = "<nil>"

// Options configures one LogEvent call. The zero value logs at INFO with
// log type INTERMEDIATE, payload type TEXT and no payload.
type Options struct {
	CorrelationID   string // defaults to the event root id
	Message         string
	Level           severity.Level // nil means INFO
	PayloadType     model.PayloadType
	LogType         model.LogType
	LogPayload      bool
	TruncatePayload bool // abbreviate the payload to payload.MaxPayloadLength
}

// Processor renders and emits flow log lines. It holds no per-call state and
// is safe for concurrent use when its sink and resolver are.
type Processor struct {
	sink     severity.Sink
	resolver expr.Resolver
	host     string
}

// Option configures a Processor.
type Option func(*Processor)

// WithHost overrides the host name stamped on every line.
func WithHost(host string) Option {
	return func(p *Processor) {
		if host != "" {
			p.host = host
		}
	}
}

// WithResolver sets the expression resolver applied to each line.
func WithResolver(r expr.Resolver) Option {
	return func(p *Processor) {
		if r != nil {
			p.resolver = r
		}
	}
}

// NewProcessor creates a processor writing to sink.
func NewProcessor(sink severity.Sink, opts ...Option) *Processor {
	p := &Processor{
		sink:     sink,
		resolver: expr.Identity,
		host:     hostname.Name(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Host returns the host name stamped on lines.
func (p *Processor) Host() string { return p.host }

// LogEvent logs event and returns it unchanged. The only error is
// ErrNilEvent; payload formatting failures are written into the line instead.
func (p *Processor) LogEvent(event model.Event, opts Options) (model.Event, error) {
	if isNil(event) {
		return nil, ErrNilEvent
	}
	level := severity.Or(opts.Level)

	message := opts.Message
	if opts.LogPayload {
		message = fmt.Sprintf("%s\nPayload: %s", opts.Message, p.payloadText(event, opts))
	}

	correlationID := opts.CorrelationID
	if correlationID == "" {
		correlationID = event.RootID()
	}

	line := "Host: " + p.host +
		", LogType: " + opts.LogType.String() +
		", CorrelationID:" + correlationID +
		", Message:" + message

	p.Log(event, line, level)
	return event, nil
}

// Log emits message at level if the sink has it enabled. Placeholders in
// message are resolved against event first. A nil event logs a "<nil>"
// marker and an empty message logs the event's own rendering.
func (p *Processor) Log(event model.Event, message string, level severity.Level) {
	level = severity.Or(level)
	if !level.Enabled(p.sink) {
		return
	}
	switch {
	case isNil(event):
		level.Log(p.sink, nilEvent)
	case message == "":
		level.Log(p.sink, event.Loggable())
	default:
		level.Log(p.sink, p.resolver.Resolve(message, event))
	}
}

// payloadText renders the event payload. Streams are never read. Errors and
// panics while formatting become a diagnostic text.
func (p *Processor) payloadText(event model.Event, opts Options) (text string) {
	body := event.Payload()
	if payload.IsStream(body) {
		return payload.StreamingSentinel
	}

	defer func() {
		if r := recover(); r != nil {
			text = unconvertible(fmt.Errorf("%v", r), event)
		}
	}()

	s, ok, err := payload.Format(opts.PayloadType, body)
	if err != nil {
		return unconvertible(err, event)
	}
	if !ok {
		s = event.Loggable()
	}
	if opts.TruncatePayload {
		s = payload.Abbreviate(s, payload.MaxPayloadLength)
	}
	return s
}

func unconvertible(err error, event model.Event) string {
	return fmt.Sprintf("<<Unable to convert payload with error '%s'>>\n%s", err.Error(), loggable(event))
}

// loggable is event.Loggable guarded against a panicking implementation.
func loggable(event model.Event) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("%T", event)
		}
	}()
	return event.Loggable()
}

func isNil(event model.Event) bool {
	if event == nil {
		return true
	}
	v := reflect.ValueOf(event)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
