package ingest

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tinytelemetry/flowlog/internal/flowlog"
	"github.com/tinytelemetry/flowlog/internal/logparse"
	"github.com/tinytelemetry/flowlog/internal/model"
	"github.com/tinytelemetry/flowlog/internal/tcpserver"
)

const (
	// DefaultMaxObjectBytes caps a multi-line JSON object, the same limit a
	// single TCP line has.
	DefaultMaxObjectBytes = tcpserver.DefaultMaxLineSize

	// DefaultMaxObjectLines caps the lines of a multi-line JSON object.
	DefaultMaxObjectLines = 1000

	// DefaultMaxOpenObjects caps the streams that may hold an unfinished
	// object at once. The least recently active one is flushed beyond that.
	DefaultMaxOpenObjects = 1024
)

// Processor decodes event lines, including JSON objects spread over several
// lines, and logs each event through the flow log processor.
type Processor struct {
	logger   *flowlog.Processor
	defaults flowlog.Options

	mu sync.Mutex
	// unfinished multi-line objects keyed by source stream
	open     *lru.Cache[string, *pendingObject]
	evicted  []*pendingObject
	maxBytes int
	maxLines int

	processed atomic.Int64
}

// pendingObject is a JSON object whose closing brace has not arrived yet.
type pendingObject struct {
	source string
	stream string
	lines  []string
	size   int
	depth  int
	closed bool
}

func (o *pendingObject) add(line string) {
	o.lines = append(o.lines, line)
	o.size += len(line) + 1
	o.depth += CountJSONDepth(line)
}

// envelopes returns the buffered lines one by one, for when they turned out
// not to form an object.
func (o *pendingObject) envelopes() []model.IngestEnvelope {
	out := make([]model.IngestEnvelope, 0, len(o.lines))
	for _, line := range o.lines {
		out = append(out, model.IngestEnvelope{Source: o.source, Stream: o.stream, Line: line})
	}
	return out
}

// NewProcessor creates a parse-mode processor. defaults apply to every event
// whose line does not override them.
func NewProcessor(logger *flowlog.Processor, defaults flowlog.Options) *Processor {
	p := &Processor{
		logger:   logger,
		defaults: defaults,
		maxBytes: DefaultMaxObjectBytes,
		maxLines: DefaultMaxObjectLines,
	}
	// Only fails for a non-positive size.
	p.open, _ = lru.NewWithEvict(DefaultMaxOpenObjects, func(_ string, obj *pendingObject) {
		if !obj.closed {
			p.evicted = append(p.evicted, obj)
		}
	})
	return p
}

// ProcessResult holds the outcome of logging one event.
type ProcessResult struct {
	Event   model.Event
	Options flowlog.Options
	Err     error
}

func (p *Processor) Name() string { return ProcessorModeParse }

// Defaults returns the options applied to events that do not override them.
func (p *Processor) Defaults() flowlog.Options { return p.defaults }

// Processed returns the number of events handed to the flow log processor.
func (p *Processor) Processed() int64 { return p.processed.Load() }

// ProcessEnvelope processes one source-tagged line. It returns nil while a
// multi-line JSON object is still being accumulated. When one line releases
// several events, such as an abandoned object flushed line by line, the first
// failed result is returned, else the last one.
func (p *Processor) ProcessEnvelope(env model.IngestEnvelope) *ProcessResult {
	p.mu.Lock()
	ready, consumed := p.accumulate(env)
	var entries []model.IngestEnvelope
	for _, obj := range p.evicted {
		entries = append(entries, obj.envelopes()...)
	}
	p.evicted = nil
	p.mu.Unlock()

	entries = append(entries, ready...)
	if !consumed {
		entries = append(entries, env)
	}

	var last, failed *ProcessResult
	for _, e := range entries {
		if strings.TrimSpace(e.Line) == "" {
			continue
		}
		last = p.processEntry(e)
		if last.Err != nil && failed == nil {
			failed = last
		}
	}
	if failed != nil {
		return failed
	}
	return last
}

// Handle logs an already decoded event with the given options.
func (p *Processor) Handle(event model.Event, opts flowlog.Options) *ProcessResult {
	out, err := p.logger.LogEvent(event, opts)
	if err == nil {
		p.processed.Add(1)
	}
	return &ProcessResult{Event: out, Options: opts, Err: err}
}

// HandleLine decodes a single complete JSON event line and logs it.
func (p *Processor) HandleLine(source string, line *EventLine) *ProcessResult {
	msg, err := line.Message(source)
	if err != nil {
		return &ProcessResult{Options: p.defaults, Err: err}
	}
	opts, err := line.Options.Apply(p.defaults)
	if err != nil {
		return &ProcessResult{Event: msg, Options: p.defaults, Err: err}
	}
	return p.Handle(msg, opts)
}

func (p *Processor) processEntry(env model.IngestEnvelope) *ProcessResult {
	if !IsEventLine(env.Line) {
		opts := p.defaults
		if logparse.SeverityRegex.MatchString(env.Line) {
			opts.Level = LenientLevel(logparse.ExtractSeverityFromText(env.Line))
		}
		return p.Handle(TextMessage(env.Source, env.Line), opts)
	}

	line, err := ParseEventLine(env.Line)
	if err != nil {
		return &ProcessResult{Options: p.defaults, Err: err}
	}
	return p.HandleLine(env.Source, line)
}

// accumulate collects lines of a JSON object spanning several lines of one
// stream. consumed reports whether env was taken; ready holds the entries
// released by it: the joined object once it closes, or its lines one by one
// when the object is invalid or exceeds the limits.
func (p *Processor) accumulate(env model.IngestEnvelope) (ready []model.IngestEnvelope, consumed bool) {
	key := env.Source + "\x00" + env.Stream

	obj, ok := p.open.Get(key)
	if !ok {
		if !opensObject(env.Line) {
			return nil, false
		}
		obj = &pendingObject{source: env.Source, stream: env.Stream}
		obj.add(env.Line)
		p.open.Add(key, obj)
		return nil, true
	}

	obj.add(env.Line)
	switch {
	case obj.depth <= 0:
		p.release(key, obj)
		text := strings.TrimSpace(strings.Join(obj.lines, "\n"))
		if json.Valid([]byte(text)) {
			return []model.IngestEnvelope{{Source: obj.source, Stream: obj.stream, Line: text}}, true
		}
		return obj.envelopes(), true
	case obj.size > p.maxBytes || len(obj.lines) >= p.maxLines:
		p.release(key, obj)
		return obj.envelopes(), true
	}
	return nil, true
}

func (p *Processor) release(key string, obj *pendingObject) {
	obj.closed = true
	p.open.Remove(key)
}

// opensObject reports whether line starts a JSON object left open at the end
// of the line: a "{" followed by nothing or by a member name.
func opensObject(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") || CountJSONDepth(trimmed) <= 0 {
		return false
	}
	rest := strings.TrimSpace(trimmed[1:])
	return rest == "" || rest[0] == '"'
}

// CountJSONDepth counts the net change in JSON nesting depth for a line.
func CountJSONDepth(line string) int {
	depth := 0
	inString := false
	escaped := false

	for _, char := range line {
		if escaped {
			escaped = false
			continue
		}

		switch char {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--
			}
		}
	}

	return depth
}
