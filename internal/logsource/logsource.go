// Package logsource adapts line-oriented inputs to a common channel of
// source-tagged event lines.
package logsource

import "github.com/tinytelemetry/flowlog/internal/model"

// LogSource is a unified interface for event line inputs (TCP, stdin).
type LogSource interface {
	Lines() <-chan model.IngestEnvelope // closed once the source is drained or stopped
	Stop()                              // graceful shutdown, safe to call twice
	Name() string                       // "tcp", "stdin"
}
