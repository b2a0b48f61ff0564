// Package severity provides the five emission levels of a log line. Each level
// pairs an "is enabled" check with the matching emit call on a Sink.
package severity

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Sink is the leveled log destination. hclog.Logger satisfies it.
type Sink interface {
	IsTrace() bool
	IsDebug() bool
	IsInfo() bool
	IsWarn() bool
	IsError() bool

	Trace(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Level is one of Trace, Debug, Info, Warn or Error.
type Level interface {
	String() string
	// Enabled reports whether s currently accepts lines at this level.
	Enabled(s Sink) bool
	// Log emits msg to s at this level without checking Enabled.
	Log(s Sink, msg string)

	hclogLevel() hclog.Level
}

type traceLevel struct{}

func (traceLevel) String() string          { return "TRACE" }
func (traceLevel) Enabled(s Sink) bool     { return s.IsTrace() }
func (traceLevel) Log(s Sink, msg string)  { s.Trace(msg) }
func (traceLevel) hclogLevel() hclog.Level { return hclog.Trace }

type debugLevel struct{}

func (debugLevel) String() string          { return "DEBUG" }
func (debugLevel) Enabled(s Sink) bool     { return s.IsDebug() }
func (debugLevel) Log(s Sink, msg string)  { s.Debug(msg) }
func (debugLevel) hclogLevel() hclog.Level { return hclog.Debug }

type infoLevel struct{}

func (infoLevel) String() string          { return "INFO" }
func (infoLevel) Enabled(s Sink) bool     { return s.IsInfo() }
func (infoLevel) Log(s Sink, msg string)  { s.Info(msg) }
func (infoLevel) hclogLevel() hclog.Level { return hclog.Info }

type warnLevel struct{}

func (warnLevel) String() string          { return "WARN" }
func (warnLevel) Enabled(s Sink) bool     { return s.IsWarn() }
func (warnLevel) Log(s Sink, msg string)  { s.Warn(msg) }
func (warnLevel) hclogLevel() hclog.Level { return hclog.Warn }

type errorLevel struct{}

func (errorLevel) String() string          { return "ERROR" }
func (errorLevel) Enabled(s Sink) bool     { return s.IsError() }
func (errorLevel) Log(s Sink, msg string)  { s.Error(msg) }
func (errorLevel) hclogLevel() hclog.Level { return hclog.Error }

var (
	Trace Level = traceLevel{}
	Debug Level = debugLevel{}
	Info  Level = infoLevel{}
	Warn  Level = warnLevel{}
	Error Level = errorLevel{}

	// Default is used when no level was chosen.
	Default = Info
)

// Levels returns every level from least to most severe.
func Levels() []Level {
	return []Level{Trace, Debug, Info, Warn, Error}
}

// Or returns l, or Default when l is nil.
func Or(l Level) Level {
	if l == nil {
		return Default
	}
	return l
}

// Parse returns the level with the given name, ignoring case.
func Parse(name string) (Level, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "WARNING" {
		n = "WARN"
	}
	for _, l := range Levels() {
		if l.String() == n {
			return l, nil
		}
	}
	return Default, fmt.Errorf("invalid log level: %q", name)
}
