// ABOUTME: FLAC audio decoder
// ABOUTME: Streams FLAC frames as interleaved int32 samples in 24-bit range
package decode

import (
	"fmt"
	"io"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/mewkiz/flac"
)

// NewFLAC decodes a FLAC stream from r one frame at a time
func NewFLAC(r io.Reader) (*Stream, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	s := &Stream{
		title:      "FLAC",
		channels:   channels,
		sampleRate: int(info.SampleRate),
	}
	if info.NSamples > 0 {
		s.total = audio.FramesToDuration(int(info.NSamples), 1, int(info.SampleRate))
		s.totalKnown = true
	}

	s.fill = func() ([]int32, error) {
		frame, err := stream.ParseNext()
		if err != nil {
			return nil, err
		}

		blockSize := int(frame.BlockSize)
		samples := make([]int32, 0, blockSize*channels)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, audio.ScaleTo24Bit(frame.Subframes[ch].Samples[i], bitDepth))
			}
		}
		return samples, nil
	}

	return s, nil
}
