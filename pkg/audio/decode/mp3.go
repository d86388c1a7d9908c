// ABOUTME: MP3 audio decoder
// ABOUTME: Streams MP3 input as 16-bit stereo scaled to int32 samples
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

const (
	// go-mp3 always decodes to 16-bit little-endian stereo
	mp3Channels      = 2
	mp3BytesPerFrame = 4

	mp3ChunkBytes = 4608
)

// NewMP3 decodes MP3 data from r. The total duration is known when r is
// also an io.Seeker.
func NewMP3(r io.Reader) (*Stream, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	s := &Stream{
		title:      "MP3",
		channels:   mp3Channels,
		sampleRate: decoder.SampleRate(),
	}
	if length := decoder.Length(); length > 0 {
		s.total = audio.FramesToDuration(int(length/mp3BytesPerFrame), 1, decoder.SampleRate())
		s.totalKnown = true
	}

	buf := make([]byte, mp3ChunkBytes)
	s.fill = func() ([]int32, error) {
		n, err := io.ReadFull(decoder, buf)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		samples := make([]int32, n/2)
		for i := range samples {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
		}
		return samples, err
	}

	return s, nil
}
