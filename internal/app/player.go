// ABOUTME: Local playback of a file list through the queue
// ABOUTME: Decodes tracks, queues them with signals and pumps the queue into a sink
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Sendspin/sendspin-queue/internal/config"
	"github.com/Sendspin/sendspin-queue/internal/ui"
	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/decode"
	"github.com/Sendspin/sendspin-queue/pkg/audio/output"
	"github.com/Sendspin/sendspin-queue/pkg/audio/resample"
	"github.com/Sendspin/sendspin-queue/pkg/queue"
	"github.com/charmbracelet/log"
)

// newQueue builds a queue pair from config. observer may be nil.
func newQueue(cfg config.QueueConfig, keepAlive bool, logger *log.Logger, observer queue.Observer) (*queue.Input, *queue.Output) {
	opts := []queue.Option{
		queue.WithFillerDuration(cfg.FillerDuration),
		queue.WithLogger(logger.WithPrefix("queue")),
	}
	if cfg.FixedFillerChannels > 0 && cfg.FixedFillerRate > 0 {
		opts = append(opts, queue.WithFixedFillerFormat(cfg.FixedFillerChannels, cfg.FixedFillerRate))
	}
	if observer != nil {
		opts = append(opts, queue.WithObserver(observer))
	}
	return queue.New(keepAlive, opts...)
}

// outputFormat is the format every track is conformed to before the sink
func outputFormat(cfg config.OutputConfig) audio.Format {
	return audio.Format{
		Codec:      "pcm",
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		BitDepth:   cfg.BitDepth,
	}
}

type track struct {
	path   string
	stream *decode.Stream
	ticket queue.Ticket
}

// Player plays queued files back to back
type Player struct {
	cfg    *config.Config
	in     *queue.Input
	out    *queue.Output
	logger *log.Logger
	tracks []track

	// current is the 1-based index of the playing track, 0 when none
	current atomic.Int32
}

// NewPlayer creates a player; keep-alive comes from cfg.Queue
func NewPlayer(cfg *config.Config, logger *log.Logger) *Player {
	in, out := newQueue(cfg.Queue, cfg.Queue.KeepAlive, logger, nil)
	return &Player{
		cfg:    cfg,
		in:     in,
		out:    out,
		logger: logger.WithPrefix("player"),
	}
}

// Enqueue decodes every path and appends them in order. Nothing is queued
// if any file fails to open.
func (p *Player) Enqueue(paths []string) error {
	streams := make([]*decode.Stream, 0, len(paths))
	for _, path := range paths {
		s, err := decode.Open(path)
		if err != nil {
			for _, opened := range streams {
				opened.Close()
			}
			return fmt.Errorf("open %s: %w", path, err)
		}
		streams = append(streams, s)
	}

	for i, s := range streams {
		t := track{path: paths[i], stream: s}
		t.ticket = p.in.Submit(s, true)
		p.tracks = append(p.tracks, t)
		p.logger.Debug("queued", "title", s.Title(), "id", t.ticket.ID,
			"rate", s.SampleRate(), "channels", s.Channels())
	}
	return nil
}

// Run opens sink, plays the queue into it and closes it. It returns when
// the queue ends or ctx is cancelled; cancellation is not an error.
func (p *Player) Run(ctx context.Context, sink output.Output) (err error) {
	format := outputFormat(p.cfg.Output)
	if err := sink.Open(format); err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()
	if vc, ok := sink.(output.VolumeControl); ok {
		vc.SetVolume(p.cfg.Output.Volume)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		p.report(ctx)
	}()

	src := resample.Conform(p.out, format.SampleRate, format.Channels)
	err = output.Pump(ctx, src, sink, p.cfg.Output.BlockSize)
	if err == nil {
		// Every signal has fired once the queue is exhausted
		<-reported
	}
	cancel()
	<-reported

	if errors.Is(err, context.Canceled) {
		p.logger.Info("playback interrupted")
		return nil
	}
	return err
}

// report logs each track as the queue moves past it
func (p *Player) report(ctx context.Context) {
	defer p.current.Store(0)
	for i, t := range p.tracks {
		p.current.Store(int32(i + 1))
		p.logger.Info("playing", "title", t.stream.Title(), "path", t.path)
		select {
		case <-t.ticket.Done:
		case <-ctx.Done():
			return
		}
		if err := t.stream.Err(); err != nil {
			p.logger.Warn("track ended early", "title", t.stream.Title(), "err", err)
		} else {
			p.logger.Info("finished", "title", t.stream.Title())
		}
	}
}

// Status is a snapshot for the now-playing view. Safe to call while Run is
// in progress.
func (p *Player) Status() ui.Status {
	format := outputFormat(p.cfg.Output)
	st := ui.Status{
		Total:      len(p.tracks),
		State:      p.out.State().String(),
		Pending:    p.in.Len(),
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		BitDepth:   format.BitDepth,
	}
	if i := int(p.current.Load()); i > 0 && i <= len(p.tracks) {
		st.Index = i
		st.Title = p.tracks[i-1].stream.Title()
	}
	return st
}
