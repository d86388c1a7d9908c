// ABOUTME: WAV audio decoder
// ABOUTME: Streams RIFF/WAV PCM data as int32 samples in 24-bit range
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavChunkFrames is how many frames are decoded per block
const wavChunkFrames = 1024

// NewWAV decodes a WAV file from r
func NewWAV(r io.ReadSeeker) (*Stream, error) {
	decoder := wav.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.New("invalid WAV file format")
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth != 16 && bitDepth != 24 && bitDepth != 32 {
		return nil, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}

	channels := int(decoder.NumChans)
	s := &Stream{
		title:      "WAV",
		channels:   channels,
		sampleRate: int(decoder.SampleRate),
	}
	if d, err := decoder.Duration(); err == nil {
		s.total = d
		s.totalKnown = true
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: int(decoder.SampleRate)},
		Data:   make([]int, wavChunkFrames*channels),
	}
	s.fill = func() ([]int32, error) {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("wav decode error: %w", err)
		}
		if n == 0 {
			return nil, io.EOF
		}
		samples := make([]int32, n)
		for i := 0; i < n; i++ {
			samples[i] = audio.ScaleTo24Bit(int32(buf.Data[i]), bitDepth)
		}
		return samples, nil
	}

	return s, nil
}
