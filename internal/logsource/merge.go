package logsource

import (
	"context"
	"strings"
	"sync"

	"github.com/tinytelemetry/flowlog/internal/model"
)

// DefaultMergeBuffer is the default capacity of a merged line channel.
const DefaultMergeBuffer = 50_000

// Merged fans several sources into one channel. Lines of a single source keep
// their order; lines of different sources interleave. Merged is itself a
// LogSource.
type Merged struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sources []LogSource
	out     chan model.IngestEnvelope

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Merge starts pumping every source into a channel holding up to buffer
// lines. Empty lines are dropped and lines without a Source are stamped with
// the name of the source that produced them. The channel closes once every
// source has drained or the merge is stopped.
func Merge(ctx context.Context, buffer int, sources ...LogSource) *Merged {
	if buffer <= 0 {
		buffer = DefaultMergeBuffer
	}
	ctx, cancel := context.WithCancel(ctx)
	m := &Merged{
		ctx:     ctx,
		cancel:  cancel,
		sources: sources,
		out:     make(chan model.IngestEnvelope, buffer),
	}
	for _, src := range sources {
		m.wg.Add(1)
		go m.pump(src)
	}
	go func() {
		m.wg.Wait()
		close(m.out)
	}()
	return m
}

func (m *Merged) Lines() <-chan model.IngestEnvelope { return m.out }

// Name joins the merged source names with "+".
func (m *Merged) Name() string { return strings.Join(m.Names(), "+") }

// Names lists the merged sources in the order they were given.
func (m *Merged) Names() []string {
	names := make([]string, 0, len(m.sources))
	for _, src := range m.sources {
		names = append(names, src.Name())
	}
	return names
}

// Len is the number of merged sources.
func (m *Merged) Len() int { return len(m.sources) }

// Stop stops every merged source and waits for the pumps to return.
func (m *Merged) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		for _, src := range m.sources {
			src.Stop()
		}
		m.wg.Wait()
	})
}

func (m *Merged) pump(src LogSource) {
	defer m.wg.Done()

	name := src.Name()
	in := src.Lines()
	for {
		select {
		case <-m.ctx.Done():
			return
		case env, ok := <-in:
			if !ok {
				return
			}
			if env.Line == "" {
				continue
			}
			if env.Source == "" {
				env.Source = name
			}
			select {
			case m.out <- env:
			case <-m.ctx.Done():
				return
			}
		}
	}
}
