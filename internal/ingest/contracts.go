package ingest

import (
	"fmt"
	"strings"

	"github.com/tinytelemetry/flowlog/internal/flowlog"
	"github.com/tinytelemetry/flowlog/internal/model"
)

const (
	// ProcessorModeParse decodes JSON event lines and falls back to text.
	ProcessorModeParse = "parse"
	// ProcessorModePassthrough logs every line as a text payload.
	ProcessorModePassthrough = "passthrough"
)

// EnvelopeProcessor consumes source-tagged ingest lines and logs them as flow events.
type EnvelopeProcessor interface {
	Name() string
	ProcessEnvelope(model.IngestEnvelope) *ProcessResult
	Processed() int64
}

// NewEnvelopeProcessor creates the processor for mode. An empty mode selects
// ProcessorModeParse.
func NewEnvelopeProcessor(mode string, logger *flowlog.Processor, defaults flowlog.Options) (EnvelopeProcessor, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ProcessorModeParse:
		return NewProcessor(logger, defaults), nil
	case ProcessorModePassthrough:
		return NewPassthroughProcessor(logger, defaults), nil
	default:
		return nil, fmt.Errorf("unknown processor mode %q", mode)
	}
}
