// ABOUTME: Sequential playback queue of audio sources
// ABOUTME: Builds the producer-facing Input and consumer-facing Output pair
package queue

import (
	"sync"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/source"
	"github.com/google/uuid"
)

// New builds a queue. Sounds appended to the Input are played one after the
// other by the Output, which is itself an audio.Source.
//
// keepAliveIfEmpty selects what happens when nothing is pending:
//   - true: the Output plays short stretches of silence until a new sound
//     is appended and never ends
//   - false: the Output reports end-of-stream and stays ended
func New(keepAliveIfEmpty bool, opts ...Option) (*Input, *Output) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	input := &Input{
		observer: cfg.observer,
	}

	output := &Output{
		current:   source.Empty(),
		input:     input,
		keepAlive: keepAliveIfEmpty,
		filler:    cfg.filler,
		logger:    cfg.logger,
		observer:  cfg.observer,
	}

	return input, output
}

// entry is a queued source waiting to become current
type entry struct {
	id     uuid.UUID
	source audio.Source
	done   chan struct{} // nil when nobody asked to be signalled
}

// Input is the producer side of a queue. It is safe for concurrent use.
type Input struct {
	mu      sync.Mutex
	pending []entry

	observer Observer
}

// Append adds src to the end of the queue.
func (in *Input) Append(src audio.Source) {
	in.Submit(src, false)
}

// AppendWithSignal adds src to the end of the queue. The returned channel is
// closed once the queue moves past src, after its last sample was produced.
func (in *Input) AppendWithSignal(src audio.Source) <-chan struct{} {
	return in.Submit(src, true).Done
}

// Ticket identifies a submitted source
type Ticket struct {
	// ID matches Output.CurrentID while the source is playing
	ID uuid.UUID
	// Done is closed when the source is retired; nil unless requested
	Done <-chan struct{}
}

// Submit adds src to the end of the queue and returns its ticket. With
// signal set, the ticket carries a channel like AppendWithSignal's.
func (in *Input) Submit(src audio.Source, signal bool) Ticket {
	e := entry{id: uuid.New(), source: src}
	t := Ticket{ID: e.id}
	if signal {
		e.done = make(chan struct{})
		t.Done = e.done
	}
	in.push(e)
	return t
}

// Len returns the number of sources waiting behind the one currently playing.
func (in *Input) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.pending)
}

func (in *Input) push(e entry) {
	in.mu.Lock()
	in.pending = append(in.pending, e)
	n := len(in.pending)
	in.mu.Unlock()

	in.observer.Appended(n)
}

// pop removes the head of the pending list. It reports false when the list
// is empty.
func (in *Input) pop() (entry, int, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if len(in.pending) == 0 {
		return entry{}, 0, false
	}
	e := in.pending[0]
	in.pending[0] = entry{}
	in.pending = in.pending[1:]
	if len(in.pending) == 0 {
		// Release the consumed backing array
		in.pending = nil
	}
	return e, len(in.pending), true
}
