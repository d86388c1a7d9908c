// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams 16-bit PCM through a pipe into a persistent oto player
package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/encode"
	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library
type Oto struct {
	*gain
	logger *log.Logger

	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeWriter *io.PipeWriter
	encoder    *encode.PCMEncoder
	format     audio.Format
	scratch    []int32
	bytes      []byte
}

// NewOto creates a new Oto output
func NewOto(logger *log.Logger) *Oto {
	return &Oto{
		gain:   newGain(),
		logger: logger.WithPrefix("oto"),
	}
}

// Open initializes the output device. oto allows one context per process,
// so a later Open with a different format keeps the first format.
func (o *Oto) Open(format audio.Format) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if format.BitDepth != 16 {
		o.logger.Warn("oto only supports 16-bit output", "requested", format.BitDepth)
	}

	if o.otoCtx != nil {
		if o.format.SampleRate != format.SampleRate || o.format.Channels != format.Channels {
			o.logger.Warn("format change ignored, oto cannot reinitialize",
				"from_rate", o.format.SampleRate, "from_channels", o.format.Channels,
				"to_rate", format.SampleRate, "to_channels", format.Channels)
		}
		if o.pipeWriter == nil {
			o.startPlayer()
		}
		return nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	enc, err := encode.NewPCM(audio.Format{Codec: "pcm", SampleRate: format.SampleRate, Channels: format.Channels, BitDepth: 16})
	if err != nil {
		return err
	}

	o.otoCtx = ctx
	o.encoder = enc
	o.format = format
	o.startPlayer()

	o.logger.Info("audio output initialized", "rate", format.SampleRate, "channels", format.Channels)
	return nil
}

// startPlayer attaches a fresh pipe and player (must hold o.mu)
func (o *Oto) startPlayer() {
	pr, pw := io.Pipe()
	o.pipeWriter = pw
	o.player = o.otoCtx.NewPlayer(pr)
	o.player.Play()
	if err := o.otoCtx.Resume(); err != nil {
		o.logger.Warn("resume failed", "err", err)
	}
}

// Write outputs audio samples, blocking until the player takes them.
// Write must not be called concurrently.
func (o *Oto) Write(samples []int32) error {
	o.mu.Lock()
	pw, enc := o.pipeWriter, o.encoder
	o.mu.Unlock()
	if pw == nil {
		return ErrNotOpen
	}

	scaled := o.apply(&o.scratch, samples)
	o.bytes = enc.AppendEncode(o.bytes[:0], scaled)
	if _, err := pw.Write(o.bytes); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close stops playback. The oto context stays suspended for reuse.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			o.logger.Warn("player close failed", "err", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("suspend oto context: %w", err)
		}
	}
	return nil
}
