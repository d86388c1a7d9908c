// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms frames of int32 samples to Opus packets
package encode

import (
	"fmt"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusPacket is the largest packet the encoder is allowed to emit
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder   *opus.Encoder
	channels  int
	frameSize int
	pcm16     []int16
	packet    []byte
}

// NewOpus creates a new Opus encoder. Opus accepts 8, 12, 16, 24 and 48kHz.
func NewOpus(format audio.Format) (*OpusEncoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	// 64 kbps per channel
	if err := encoder.SetBitrate(64000 * format.Channels); err != nil {
		return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
	}

	frameSize := format.SampleRate / 50 // 20ms frame
	return &OpusEncoder{
		encoder:   encoder,
		channels:  format.Channels,
		frameSize: frameSize,
		pcm16:     make([]int16, frameSize*format.Channels),
		packet:    make([]byte, maxOpusPacket),
	}, nil
}

// FrameSamples is the interleaved sample count of one 20ms frame
func (e *OpusEncoder) FrameSamples() int {
	return e.frameSize * e.channels
}

// Encode converts exactly one frame of int32 samples to an Opus packet.
// Short frames are padded with silence.
func (e *OpusEncoder) Encode(samples []int32) ([]byte, error) {
	if len(samples) > len(e.pcm16) {
		return nil, fmt.Errorf("opus frame too large: %d samples (max %d)", len(samples), len(e.pcm16))
	}
	for i := range e.pcm16 {
		if i < len(samples) {
			e.pcm16[i] = audio.SampleToInt16(samples[i])
		} else {
			e.pcm16[i] = 0
		}
	}

	n, err := e.encoder.Encode(e.pcm16, e.packet)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	out := make([]byte, n)
	copy(out, e.packet[:n])
	return out, nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
