// ABOUTME: Test tone generator
// ABOUTME: Generates an infinite sine wave duplicated across channels
package source

import (
	"math"
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
)

// ToneSource generates a sine wave test tone
type ToneSource struct {
	frequency  float64
	channels   int
	sampleRate int
	frameIndex uint64
	channel    int
	current    int32
}

// Tone creates a sine generator at frequency Hz.
// Zero channels or sample rate fall back to the package defaults.
func Tone(frequency float64, channels, sampleRate int) *ToneSource {
	if channels <= 0 {
		channels = audio.DefaultChannels
	}
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &ToneSource{
		frequency:  frequency,
		channels:   channels,
		sampleRate: sampleRate,
	}
}

func (s *ToneSource) Next() (int32, bool) {
	if s.channel == 0 {
		t := float64(s.frameIndex) / float64(s.sampleRate)
		// 50% volume to avoid clipping
		s.current = int32(math.Sin(2*math.Pi*s.frequency*t) * audio.Max24Bit * 0.5)
	}
	v := s.current
	s.channel++
	if s.channel == s.channels {
		s.channel = 0
		s.frameIndex++
	}
	return v, true
}

func (s *ToneSource) CurrentFrameLen() (int, bool)         { return 0, false }
func (s *ToneSource) Channels() int                        { return s.channels }
func (s *ToneSource) SampleRate() int                      { return s.sampleRate }
func (s *ToneSource) TotalDuration() (time.Duration, bool) { return 0, false }
