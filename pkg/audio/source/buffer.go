// ABOUTME: In-memory sample buffer source
// ABOUTME: Plays back a fixed slice of interleaved samples once
package source

import (
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
)

// SamplesSource plays a slice of interleaved samples
type SamplesSource struct {
	data       []int32
	pos        int
	channels   int
	sampleRate int
}

// Samples returns a source over data. The slice is not copied.
func Samples(channels, sampleRate int, data []int32) *SamplesSource {
	if channels <= 0 {
		channels = 1
	}
	return &SamplesSource{data: data, channels: channels, sampleRate: sampleRate}
}

func (s *SamplesSource) Next() (int32, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	v := s.data[s.pos]
	s.pos++
	return v, true
}

func (s *SamplesSource) CurrentFrameLen() (int, bool) { return len(s.data) - s.pos, true }
func (s *SamplesSource) Channels() int                { return s.channels }
func (s *SamplesSource) SampleRate() int              { return s.sampleRate }

func (s *SamplesSource) TotalDuration() (time.Duration, bool) {
	return audio.FramesToDuration(len(s.data), s.channels, s.sampleRate), true
}

func (s *SamplesSource) SizeHint() (int, int, bool) {
	left := len(s.data) - s.pos
	return left, left, true
}
