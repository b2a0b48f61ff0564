package ingest

import (
	"github.com/tinytelemetry/flowlog/internal/flowlog"
	"github.com/tinytelemetry/flowlog/internal/model"
)

// PassthroughProcessor skips JSON decoding and logs every line as a text
// payload with the default options. Decoded events handed to it directly,
// as the HTTP intake does, go through an embedded parse-mode Processor that
// shares its processed count.
type PassthroughProcessor struct {
	*Processor
}

// NewPassthroughProcessor creates a new passthrough processor.
func NewPassthroughProcessor(logger *flowlog.Processor, defaults flowlog.Options) *PassthroughProcessor {
	return &PassthroughProcessor{Processor: NewProcessor(logger, defaults)}
}

func (p *PassthroughProcessor) Name() string { return ProcessorModePassthrough }

// ProcessEnvelope logs one source-tagged line.
func (p *PassthroughProcessor) ProcessEnvelope(env model.IngestEnvelope) *ProcessResult {
	if env.Line == "" {
		return nil
	}
	return p.Handle(TextMessage(env.Source, env.Line), p.defaults)
}
