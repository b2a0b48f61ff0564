package logsource

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/tinytelemetry/flowlog/internal/model"
)

const (
	// DefaultReaderBuffer is the default channel buffer size for reader lines.
	DefaultReaderBuffer = 50_000

	// DefaultMaxLineSize is the default maximum size (in bytes) of a single line.
	DefaultMaxLineSize = 1024 * 1024 // 1MB
)

// ReaderConfig holds tunable parameters for a reader source.
type ReaderConfig struct {
	BufferSize  int
	MaxLineSize int
	Logger      hclog.Logger
}

// ReaderSource emits the non-empty lines of an io.Reader.
type ReaderSource struct {
	name   string
	ch     chan model.IngestEnvelope
	cancel context.CancelFunc
}

// NewStdinSource reads event lines from os.Stdin.
func NewStdinSource(ctx context.Context, conf ReaderConfig) *ReaderSource {
	return NewReaderSource(ctx, "stdin", os.Stdin, conf)
}

// NewReaderSource starts reading r in a background goroutine. Lines are
// tagged with name.
func NewReaderSource(ctx context.Context, name string, r io.Reader, conf ReaderConfig) *ReaderSource {
	bufferSize := DefaultReaderBuffer
	if conf.BufferSize > 0 {
		bufferSize = conf.BufferSize
	}
	maxLineSize := DefaultMaxLineSize
	if conf.MaxLineSize > 0 {
		maxLineSize = conf.MaxLineSize
	}
	logger := conf.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &ReaderSource{
		name:   name,
		ch:     make(chan model.IngestEnvelope, bufferSize),
		cancel: cancel,
	}
	go s.read(ctx, r, maxLineSize, logger.Named(name))
	return s
}

func (s *ReaderSource) read(ctx context.Context, r io.Reader, maxLineSize int, logger hclog.Logger) {
	defer close(s.ch)

	// The scan blocks outside our control, so it runs in its own goroutine
	// and the select below observes cancellation.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				logger.Warn("line exceeded max size, stopping source", "max_bytes", maxLineSize)
				return
			}
			logger.Error("scanner error", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			select {
			case s.ch <- model.IngestEnvelope{Source: s.name, Line: line}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *ReaderSource) Lines() <-chan model.IngestEnvelope { return s.ch }
func (s *ReaderSource) Stop()                              { s.cancel() }
func (s *ReaderSource) Name() string                       { return s.name }
