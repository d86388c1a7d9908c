// ABOUTME: Audio engine pulling the queue on a fixed tick
// ABOUTME: Encodes each block and broadcasts it timestamped ahead of playback
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/encode"
	"github.com/charmbracelet/log"
)

// Engine is the only consumer of its source
type Engine struct {
	src    audio.Source
	format audio.Format
	enc    encode.Encoder

	block  []int32
	period time.Duration
	ahead  time.Duration

	hub    *hub
	clock  func() int64
	logger *log.Logger

	// next is the playback timestamp of the following chunk, in server micros
	next   int64
	chunks uint64
}

// newEngine builds an engine streaming src in format. Opus always uses
// 20ms frames, overriding period.
func newEngine(src audio.Source, format audio.Format, period, ahead time.Duration, h *hub, clock func() int64, logger *log.Logger) (*Engine, error) {
	e := &Engine{
		src:    src,
		format: format,
		period: period,
		ahead:  ahead,
		hub:    h,
		clock:  clock,
		logger: logger,
	}

	switch format.Codec {
	case "pcm":
		enc, err := encode.NewPCM(format)
		if err != nil {
			return nil, err
		}
		e.enc = enc
		e.block = make([]int32, audio.DurationToSamples(period, format.Channels, format.SampleRate))
	case "opus":
		enc, err := encode.NewOpus(format)
		if err != nil {
			return nil, err
		}
		e.enc = enc
		e.block = make([]int32, enc.FrameSamples())
		e.period = 20 * time.Millisecond
	default:
		return nil, fmt.Errorf("unsupported stream codec: %q (supported: pcm, opus)", format.Codec)
	}
	if len(e.block) == 0 {
		return nil, fmt.Errorf("chunk period %s is shorter than one frame", period)
	}
	return e, nil
}

// Format is the wire format announced in stream/start
func (e *Engine) Format() audio.Format {
	return e.format
}

// Run streams until ctx is cancelled or the source is exhausted
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("audio engine starting", "codec", e.format.Codec, "rate", e.format.SampleRate,
		"channels", e.format.Channels, "period", e.period)
	defer e.enc.Close()

	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("audio engine stopping", "chunks", e.chunks)
			return nil
		case <-ticker.C:
			more, err := e.tick()
			if err != nil {
				return err
			}
			if !more {
				e.logger.Info("queue exhausted, audio engine stopping", "chunks", e.chunks)
				return nil
			}
		}
	}
}

// tick pulls, encodes and broadcasts one chunk. It reports false once the
// source has ended.
func (e *Engine) tick() (bool, error) {
	now := e.clock()
	if e.next < now {
		// First chunk, or the ticker fell behind: resync the timeline
		e.next = now + e.ahead.Microseconds()
	}

	n, err := audio.Read(e.src, e.block)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read queue: %w", err)
	}
	// A short final block is padded with silence
	clear(e.block[n:])

	data, err := e.enc.Encode(e.block)
	if err != nil {
		e.logger.Warn("encode failed, dropping chunk", "err", err)
		return true, nil
	}

	sent := e.hub.broadcast(CreateAudioChunk(e.next, data))
	if e.chunks%500 == 0 {
		e.logger.Debug("chunk", "playback_time", e.next, "server_time", now, "clients", sent)
	}
	e.chunks++
	e.next += audio.FramesToDuration(len(e.block), e.format.Channels, e.format.SampleRate).Microseconds()

	return n == len(e.block), nil
}
