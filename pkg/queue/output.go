// ABOUTME: Consumer side of the queue, itself an audio.Source
// ABOUTME: Plays the current source and advances through pending ones on exhaustion
package queue

import (
	"sync/atomic"
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// State describes what the Output is currently producing
type State int32

const (
	// StatePlaying means a queued source (or the initial placeholder) is current
	StatePlaying State = iota
	// StateSilence means the queue ran dry and a silence filler is current
	StateSilence
	// StateExhausted means the queue ran dry without keep-alive. Terminal.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateSilence:
		return "silence"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Output is the consumer side of a queue. It implements audio.Source and
// must be pulled from a single goroutine. Pulling never takes a lock except
// for the brief pop performed when the current source runs out.
type Output struct {
	current   audio.Source
	currentID uuid.UUID
	signal    chan struct{} // closed when current is retired

	input     *Input
	keepAlive bool
	filler    fillerConfig

	logger   *log.Logger
	observer Observer

	state atomic.Int32
}

// Next returns the next sample of the queue.
func (o *Output) Next() (int32, bool) {
	if o.State() == StateExhausted {
		return 0, false
	}
	for {
		if s, ok := o.current.Next(); ok {
			return s, true
		}
		// Every successful transition installs a source with at least one
		// frame or consumes a pending entry, so this loop is bounded by the
		// number of entries.
		if !o.goNext() {
			return 0, false
		}
	}
}

// Read fills buf with queued samples. It returns io.EOF once the queue is
// exhausted and no samples were read.
func (o *Output) Read(buf []int32) (int, error) {
	return audio.Read(o, buf)
}

// CurrentFrameLen reports the block length of the current source.
func (o *Output) CurrentFrameLen() (int, bool) {
	return o.current.CurrentFrameLen()
}

// Channels reports the channel count of the current source.
func (o *Output) Channels() int {
	return o.current.Channels()
}

// SampleRate reports the sample rate of the current source.
func (o *Output) SampleRate() int {
	return o.current.SampleRate()
}

// TotalDuration is always unknown: more sources may be appended at any time.
func (o *Output) TotalDuration() (time.Duration, bool) {
	return 0, false
}

// SizeHint returns the current source's lower bound and no upper bound.
func (o *Output) SizeHint() (int, int, bool) {
	lower, _, _ := audio.SizeHint(o.current)
	return lower, 0, false
}

// State reports the Output's current state. Safe to call from any goroutine.
func (o *Output) State() State {
	return State(o.state.Load())
}

// CurrentID returns the id of the entry being played, or uuid.Nil for the
// initial placeholder and silence fillers.
func (o *Output) CurrentID() uuid.UUID {
	return o.currentID
}

// goNext retires the current source and installs the next one. It returns
// false when the queue is exhausted and playback must stop.
func (o *Output) goNext() bool {
	prev := o.State()
	if prev == StateExhausted {
		return false
	}

	if o.signal != nil {
		close(o.signal)
		o.signal = nil
	}

	retired := o.current
	next, pending, ok := o.input.pop()

	switch {
	case ok:
		o.current = next.source
		o.currentID = next.id
		o.signal = next.done
		o.state.Store(int32(StatePlaying))
		o.observer.Transitioned(TransitionNext, pending)
		o.logger.Debug("advanced to next source",
			"id", next.id,
			"pending", pending,
			"channels", next.source.Channels(),
			"sample_rate", next.source.SampleRate())

	case o.keepAlive:
		o.current = o.filler.build(retired)
		o.currentID = uuid.Nil
		o.state.Store(int32(StateSilence))
		o.observer.Transitioned(TransitionSilence, 0)
		if prev != StateSilence {
			o.logger.Debug("queue empty, filling with silence",
				"duration", o.filler.duration,
				"channels", o.current.Channels(),
				"sample_rate", o.current.SampleRate())
		}

	default:
		o.currentID = uuid.Nil
		o.state.Store(int32(StateExhausted))
		o.observer.Transitioned(TransitionExhausted, 0)
		o.logger.Debug("queue exhausted")
		return false
	}

	return true
}
