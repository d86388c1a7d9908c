// ABOUTME: Malgo-based audio output implementation with 24-bit support
// ABOUTME: Feeds miniaudio's playback callback from a byte ring buffer
package output

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"
)

// malgoBufferMillis sizes the ring buffer between Write and the device callback
const malgoBufferMillis = 500

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	*gain
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	format     audio.Format
	frameBytes int
	ring       *ringbuffer.RingBuffer

	scratch []int32
	bytes   []byte
}

// NewMalgo creates a new Malgo output
func NewMalgo(logger *log.Logger) *Malgo {
	ctx, cancel := context.WithCancel(context.Background())
	return &Malgo{
		gain:   newGain(),
		logger: logger.WithPrefix("malgo"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Open initializes the output device, reinitializing it on a format change
func (m *Malgo) Open(format audio.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil && m.format == format {
		return nil
	}
	if m.device != nil {
		m.logger.Info("format change, reinitializing device",
			"from", fmt.Sprintf("%dHz/%dch/%dbit", m.format.SampleRate, m.format.Channels, m.format.BitDepth),
			"to", fmt.Sprintf("%dHz/%dch/%dbit", format.SampleRate, format.Channels, format.BitDepth))
		m.closeDevice()
	}

	var deviceFormat malgo.FormatType
	switch format.BitDepth {
	case 16:
		deviceFormat = malgo.FormatS16
	case 24:
		deviceFormat = malgo.FormatS24
	case 32:
		deviceFormat = malgo.FormatS32
	default:
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", format.BitDepth)
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	m.frameBytes = format.Channels * format.BitDepth / 8
	frames := format.SampleRate * malgoBufferMillis / 1000
	m.ring = ringbuffer.New(frames * m.frameBytes)

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = deviceFormat
	cfg.Playback.Channels = uint32(format.Channels)
	cfg.SampleRate = uint32(format.SampleRate)
	cfg.Alsa.NoMMap = 1

	ring := m.ring
	device, err := malgo.InitDevice(m.malgoCtx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			fillFromRing(ring, out)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.format = format
	m.logger.Info("audio output initialized",
		"rate", format.SampleRate, "channels", format.Channels, "bits", format.BitDepth)
	return nil
}

// fillFromRing copies buffered bytes into the device buffer and zero-fills
// any underrun
func fillFromRing(ring *ringbuffer.RingBuffer, out []byte) {
	n, err := ring.Read(out)
	if err != nil {
		// Empty ring: play silence
		n = 0
	}
	clear(out[n:])
}

// Write queues samples for playback, waiting while the ring buffer is full.
// Write must not be called concurrently.
func (m *Malgo) Write(samples []int32) error {
	m.mu.Lock()
	ring, bitDepth, frameBytes := m.ring, m.format.BitDepth, m.frameBytes
	ready := m.device != nil
	m.mu.Unlock()
	if !ready {
		return ErrNotOpen
	}

	scaled := m.apply(&m.scratch, samples)
	m.bytes = encodeDevice(m.bytes[:0], scaled, bitDepth)

	data := m.bytes
	for len(data) > 0 {
		// Only whole frames go in so the callback never splits a sample
		free := ring.Free() / frameBytes * frameBytes
		if free > 0 {
			n, err := ring.Write(data[:min(free, len(data))])
			if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) {
				return fmt.Errorf("ring buffer write: %w", err)
			}
			data = data[n:]
			continue
		}

		select {
		case <-m.ctx.Done():
			return ErrNotOpen
		case <-time.After(5 * time.Millisecond):
		}
	}
	return nil
}

// encodeDevice converts 24-bit int32 samples to the device's little-endian layout
func encodeDevice(dst []byte, samples []int32, bitDepth int) []byte {
	for _, sample := range samples {
		switch bitDepth {
		case 16:
			s := audio.SampleToInt16(sample)
			dst = append(dst, byte(s), byte(s>>8))
		case 24:
			dst = append(dst, byte(sample), byte(sample>>8), byte(sample>>16))
		case 32:
			// 24-bit value in the upper bits of the 32-bit container
			s := sample << 8
			dst = append(dst, byte(s), byte(s>>8), byte(s>>16), byte(s>>24))
		}
	}
	return dst
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.logger.Warn("malgo context uninit error", "err", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device == nil {
		return
	}
	if err := m.device.Stop(); err != nil {
		m.logger.Warn("device stop error", "err", err)
	}
	m.device.Uninit()
	m.device = nil
}
