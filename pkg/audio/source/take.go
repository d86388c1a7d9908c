// ABOUTME: Duration clipping wrapper
// ABOUTME: Limits any source to a fixed number of whole frames
package source

import (
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
)

// TakeSource plays at most a fixed number of samples from an inner source
type TakeSource struct {
	inner     audio.Source
	remaining int
	duration  time.Duration
}

// TakeDuration clips src to d, measured at src's current format.
// A positive d always yields at least one frame.
func TakeDuration(src audio.Source, d time.Duration) *TakeSource {
	channels := src.Channels()
	if channels <= 0 {
		channels = 1
	}
	remaining := audio.DurationToSamples(d, channels, src.SampleRate())
	if d > 0 && remaining < channels {
		remaining = channels
	}
	if d < 0 {
		remaining = 0
		d = 0
	}
	return &TakeSource{inner: src, remaining: remaining, duration: d}
}

// Inner returns the wrapped source
func (t *TakeSource) Inner() audio.Source {
	return t.inner
}

func (t *TakeSource) Next() (int32, bool) {
	if t.remaining <= 0 {
		return 0, false
	}
	s, ok := t.inner.Next()
	if !ok {
		t.remaining = 0
		return 0, false
	}
	t.remaining--
	return s, true
}

func (t *TakeSource) CurrentFrameLen() (int, bool) {
	if n, ok := t.inner.CurrentFrameLen(); ok && n < t.remaining {
		return n, true
	}
	return t.remaining, true
}

func (t *TakeSource) Channels() int   { return t.inner.Channels() }
func (t *TakeSource) SampleRate() int { return t.inner.SampleRate() }

func (t *TakeSource) TotalDuration() (time.Duration, bool) {
	if total, ok := t.inner.TotalDuration(); ok && total < t.duration {
		return total, true
	}
	return t.duration, true
}

func (t *TakeSource) SizeHint() (int, int, bool) {
	lower, upper, bounded := audio.SizeHint(t.inner)
	if lower > t.remaining {
		lower = t.remaining
	}
	if bounded && upper < t.remaining {
		return lower, upper, true
	}
	return lower, t.remaining, true
}
