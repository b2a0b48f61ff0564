package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/flowlog/internal/flowlog"
	"github.com/tinytelemetry/flowlog/internal/model"
	"github.com/tinytelemetry/flowlog/internal/severity"
)

func TestNewEnvelopeProcessor_DefaultParse(t *testing.T) {
	t.Parallel()

	logger, _ := newTestLogger(severity.Info)
	p, err := NewEnvelopeProcessor("", logger, flowlog.Options{})
	require.NoError(t, err)
	assert.Equal(t, ProcessorModeParse, p.Name())
	assert.IsType(t, &Processor{}, p)
}

func TestNewEnvelopeProcessor_Passthrough(t *testing.T) {
	t.Parallel()

	logger, _ := newTestLogger(severity.Info)
	p, err := NewEnvelopeProcessor("Passthrough", logger, flowlog.Options{})
	require.NoError(t, err)
	assert.Equal(t, ProcessorModePassthrough, p.Name())
	assert.IsType(t, &PassthroughProcessor{}, p)
}

func TestNewEnvelopeProcessor_InvalidMode(t *testing.T) {
	t.Parallel()

	_, err := NewEnvelopeProcessor("unknown", nil, flowlog.Options{})
	assert.Error(t, err)
}

func TestPassthroughProcessor_LogsLineAsText(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(severity.Trace)
	p := NewPassthroughProcessor(logger, flowlog.Options{
		Message:    "line",
		LogPayload: true,
		LogType:    model.LogTypeAudit,
	})

	result := p.ProcessEnvelope(model.IngestEnvelope{Source: "tcp", Line: `{"id":"not-decoded"}`})
	require.NotNil(t, result)
	require.NoError(t, result.Err)

	msg, ok := result.Event.(*model.Message)
	require.True(t, ok)
	assert.Equal(t, "tcp", msg.Source)
	assert.Equal(t, `{"id":"not-decoded"}`, msg.Body)
	assert.NotEmpty(t, msg.ID)

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "Host: test-host, LogType: AUDIT, CorrelationID:"+msg.ID+", Message:line\nPayload: {\"id\":\"not-decoded\"}", lines[0].Message)
	assert.EqualValues(t, 1, p.Processed())
}

func TestPassthroughProcessor_SkipsEmptyLines(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(severity.Trace)
	p := NewPassthroughProcessor(logger, flowlog.Options{})
	assert.Nil(t, p.ProcessEnvelope(model.IngestEnvelope{Source: "stdin"}))
	assert.Empty(t, buf.lines(t))
	assert.Zero(t, p.Processed())
}

func TestPassthroughProcessor_SharesCountWithIntake(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(severity.Trace)
	p := NewPassthroughProcessor(logger, flowlog.Options{})

	require.NotNil(t, p.ProcessEnvelope(model.IngestEnvelope{Source: "stdin", Line: "first"}))
	line, err := ParseEventLine(`{"id":"h-1","payload":"second"}`)
	require.NoError(t, err)
	result := p.HandleLine("http", line)
	require.NoError(t, result.Err)
	assert.Equal(t, "h-1", result.Event.RootID())

	assert.Len(t, buf.lines(t), 2)
	assert.EqualValues(t, 2, p.Processed())
}
