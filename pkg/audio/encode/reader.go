// ABOUTME: io.Reader over an audio.Source
// ABOUTME: Pulls samples on demand and serves them as PCM bytes
package encode

import (
	"io"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
)

// Reader serves an audio.Source as little-endian PCM bytes. It is not safe
// for concurrent use.
type Reader struct {
	src     audio.Source
	enc     *PCMEncoder
	samples []int32
	pending []byte
	err     error
}

// NewReader reads src through enc, pulling at most blockSamples samples per refill
func NewReader(src audio.Source, enc *PCMEncoder, blockSamples int) *Reader {
	if blockSamples <= 0 {
		blockSamples = 1024
	}
	return &Reader{
		src:     src,
		enc:     enc,
		samples: make([]int32, blockSamples),
	}
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		n, err := audio.Read(r.src, r.samples)
		if err != nil {
			r.err = err
		} else if n < len(r.samples) {
			// Source ended mid-block
			r.err = io.EOF
		}
		r.pending = r.enc.AppendEncode(r.pending[:0], r.samples[:n])
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
