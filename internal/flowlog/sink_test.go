package flowlog

import (
	"sync"

	"github.com/tinytelemetry/flowlog/internal/severity"
)

type entry struct {
	level string
	msg   string
}

// recordingSink records emitted lines and enables every level at or above
// threshold.
type recordingSink struct {
	threshold severity.Level

	mu      sync.Mutex
	entries []entry
}

func newRecordingSink(threshold severity.Level) *recordingSink {
	return &recordingSink{threshold: threshold}
}

func (s *recordingSink) enabled(l severity.Level) bool {
	rank := func(l severity.Level) int {
		for i, x := range severity.Levels() {
			if x == l {
				return i
			}
		}
		return -1
	}
	return rank(l) >= rank(s.threshold)
}

func (s *recordingSink) record(level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{level: level, msg: msg})
}

func (s *recordingSink) calls() []entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entry(nil), s.entries...)
}

func (s *recordingSink) IsTrace() bool { return s.enabled(severity.Trace) }
func (s *recordingSink) IsDebug() bool { return s.enabled(severity.Debug) }
func (s *recordingSink) IsInfo() bool  { return s.enabled(severity.Info) }
func (s *recordingSink) IsWarn() bool  { return s.enabled(severity.Warn) }
func (s *recordingSink) IsError() bool { return s.enabled(severity.Error) }

func (s *recordingSink) Trace(msg string, _ ...interface{}) { s.record("TRACE", msg) }
func (s *recordingSink) Debug(msg string, _ ...interface{}) { s.record("DEBUG", msg) }
func (s *recordingSink) Info(msg string, _ ...interface{})  { s.record("INFO", msg) }
func (s *recordingSink) Warn(msg string, _ ...interface{})  { s.record("WARN", msg) }
func (s *recordingSink) Error(msg string, _ ...interface{}) { s.record("ERROR", msg) }
