// ABOUTME: Queue construction options
// ABOUTME: Silence filler shape, logging and observer hooks
package queue

import (
	"io"
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/source"
	"github.com/charmbracelet/log"
)

const (
	// DefaultFillerDuration bounds how long an idle keep-alive queue takes to
	// notice a newly appended source.
	DefaultFillerDuration = 10 * time.Millisecond

	fallbackFillerChannels   = 1
	fallbackFillerSampleRate = audio.DefaultSampleRate
)

// Option configures a queue built by New
type Option func(*config)

type config struct {
	filler   fillerConfig
	logger   *log.Logger
	observer Observer
}

func defaultConfig() config {
	return config{
		filler:   fillerConfig{duration: DefaultFillerDuration},
		logger:   log.New(io.Discard),
		observer: nopObserver{},
	}
}

// WithFillerDuration sets the length of each silence filler. Non-positive
// values keep the default.
func WithFillerDuration(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.filler.duration = d
		}
	}
}

// WithFixedFillerFormat makes silence fillers use a fixed channel count and
// sample rate instead of inheriting the format of the source they follow.
func WithFixedFillerFormat(channels, sampleRate int) Option {
	return func(c *config) {
		c.filler.fixed = true
		c.filler.channels = channels
		c.filler.sampleRate = sampleRate
	}
}

// WithLogger sets the logger used for transition debug output.
func WithLogger(logger *log.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers callbacks for appends and transitions.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}

type fillerConfig struct {
	duration   time.Duration
	fixed      bool
	channels   int
	sampleRate int
}

// build returns a short silent source following prev
func (f fillerConfig) build(prev audio.Source) audio.Source {
	channels, sampleRate := f.channels, f.sampleRate
	if !f.fixed {
		channels, sampleRate = prev.Channels(), prev.SampleRate()
	}
	if channels <= 0 {
		channels = fallbackFillerChannels
	}
	if sampleRate <= 0 {
		sampleRate = fallbackFillerSampleRate
	}
	return source.TakeDuration(source.Zero(channels, sampleRate), f.duration)
}
