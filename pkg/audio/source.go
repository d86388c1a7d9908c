// ABOUTME: Playable source capability shared by generators, decoders and the queue
// ABOUTME: Pull-based sample iteration plus format metadata
package audio

import (
	"io"
	"time"
)

// Source is a lazily evaluated stream of interleaved int32 samples.
//
// Next returns false once the source is exhausted. Metadata describes the
// samples Next is about to return and may change between blocks.
type Source interface {
	// Next returns the next sample, or false when there are no more.
	Next() (int32, bool)

	// CurrentFrameLen returns the number of samples left before the
	// channel count or sample rate may change. false means unknown.
	CurrentFrameLen() (int, bool)

	// Channels returns the number of interleaved channels
	Channels() int

	// SampleRate returns samples per second per channel
	SampleRate() int

	// TotalDuration returns the full length of the source. false means
	// unknown or infinite.
	TotalDuration() (time.Duration, bool)
}

// SizeHinter is implemented by sources that can bound their remaining length.
type SizeHinter interface {
	// SizeHint returns a lower bound on remaining samples and, when
	// bounded is true, an upper bound.
	SizeHint() (lower int, upper int, bounded bool)
}

// SizeHint returns src's size hint, or (0, 0, false) when it has none.
func SizeHint(src Source) (lower int, upper int, bounded bool) {
	if h, ok := src.(SizeHinter); ok {
		return h.SizeHint()
	}
	return 0, 0, false
}

// Read fills buf by pulling from src. It returns io.EOF only when no samples
// were read and src is exhausted.
func Read(src Source, buf []int32) (int, error) {
	n := 0
	for n < len(buf) {
		s, ok := src.Next()
		if !ok {
			break
		}
		buf[n] = s
		n++
	}
	if n == 0 && len(buf) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// FramesToDuration converts a sample count to wall-clock time at the given format
func FramesToDuration(samples, channels, sampleRate int) time.Duration {
	if channels <= 0 || sampleRate <= 0 {
		return 0
	}
	frames := samples / channels
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// DurationToSamples converts a duration to an interleaved sample count
func DurationToSamples(d time.Duration, channels, sampleRate int) int {
	frames := int(d * time.Duration(sampleRate) / time.Second)
	return frames * channels
}
