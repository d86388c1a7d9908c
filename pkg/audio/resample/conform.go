// ABOUTME: audio.Source adapter producing a fixed rate and channel count
// ABOUTME: Remixes channels per frame and resamples by linear interpolation
package resample

import (
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
)

// ConformSource presents an inner source at a fixed format
type ConformSource struct {
	inner      audio.Source
	sampleRate int
	channels   int

	rs    *Resampler
	in    []int32
	frame []int32
	pos   int

	ended   bool // inner source returned false
	drained bool // last held frame has been emitted
	done    bool
}

// Conform adapts src to sampleRate and channels. Mono input is duplicated
// across output channels; multichannel input is averaged down to mono or
// truncated to the first channels otherwise.
func Conform(src audio.Source, sampleRate, channels int) *ConformSource {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	if channels <= 0 {
		channels = audio.DefaultChannels
	}
	return &ConformSource{
		inner:      src,
		sampleRate: sampleRate,
		channels:   channels,
		rs:         New(sampleRate),
		frame:      make([]int32, channels),
		pos:        channels,
	}
}

func (c *ConformSource) Next() (int32, bool) {
	if c.pos >= len(c.frame) {
		if !c.produce() {
			return 0, false
		}
		c.pos = 0
	}
	v := c.frame[c.pos]
	c.pos++
	return v, true
}

func (c *ConformSource) produce() bool {
	if c.done || c.drained {
		c.done = true
		return false
	}
	for !c.rs.Ready() {
		if !c.feed() {
			c.done = true
			return false
		}
	}
	c.rs.Interpolate(c.frame)
	for steps := c.rs.Advance(); steps > 0; steps-- {
		if !c.feed() {
			c.drained = true
			break
		}
	}
	return true
}

// feed loads the next inner frame, holding the last one once the inner
// source ends
func (c *ConformSource) feed() bool {
	if c.ended {
		return false
	}
	if c.pull() {
		return true
	}
	c.ended = true
	return c.rs.Hold()
}

// pull reads one inner frame, remixes it and hands it to the resampler.
// The inner format is read after the first sample so a source switch on
// that sample is observed.
func (c *ConformSource) pull() bool {
	first, ok := c.inner.Next()
	if !ok {
		return false
	}
	inChannels := c.inner.Channels()
	if inChannels <= 0 {
		inChannels = 1
	}
	c.rs.SetInputRate(c.inner.SampleRate())

	c.in = append(c.in[:0], first)
	for len(c.in) < inChannels {
		s, ok := c.inner.Next()
		if !ok {
			return false
		}
		c.in = append(c.in, s)
	}
	c.rs.Push(remix(c.in, c.channels))
	return true
}

// remix maps one interleaved frame to out channels
func remix(in []int32, out int) []int32 {
	if len(in) == out {
		return in
	}
	frame := make([]int32, out)
	switch {
	case len(in) == 1:
		for i := range frame {
			frame[i] = in[0]
		}
	case out == 1:
		var sum int64
		for _, s := range in {
			sum += int64(s)
		}
		frame[0] = int32(sum / int64(len(in)))
	default:
		for i := range frame {
			frame[i] = in[i%len(in)]
		}
	}
	return frame
}

// CurrentFrameLen reports the samples left in the frame being emitted
func (c *ConformSource) CurrentFrameLen() (int, bool) {
	if c.done && c.pos >= len(c.frame) {
		return 0, true
	}
	return 0, false
}

func (c *ConformSource) Channels() int   { return c.channels }
func (c *ConformSource) SampleRate() int { return c.sampleRate }

// TotalDuration is the inner duration; resampling preserves wall-clock length
func (c *ConformSource) TotalDuration() (time.Duration, bool) {
	return c.inner.TotalDuration()
}
