package severity

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// SourceName names the sink every flow log line is written to.
const SourceName = "flowlog.logger"

// SinkConfig configures the hclog sink built by NewSink.
type SinkConfig struct {
	Threshold Level     // lowest enabled level, Info when nil
	Format    string    // "text" (default) or "json"
	Output    io.Writer // os.Stderr when nil
	Color     bool
}

// NewSink returns an hclog logger named SourceName.
func NewSink(cfg SinkConfig) hclog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	color := hclog.ColorOff
	if cfg.Color {
		color = hclog.AutoColor
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       SourceName,
		Level:      Or(cfg.Threshold).hclogLevel(),
		Output:     out,
		JSONFormat: strings.EqualFold(cfg.Format, "json"),
		Color:      color,
	})
}
