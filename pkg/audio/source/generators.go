// ABOUTME: Empty and silence generators
// ABOUTME: Zero-length placeholder and infinite zero-valued source
package source

import (
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
)

const (
	emptyChannels   = 1
	emptySampleRate = 48000
)

// EmptySource produces no samples
type EmptySource struct{}

// Empty returns a source that is exhausted from the start
func Empty() *EmptySource {
	return &EmptySource{}
}

func (EmptySource) Next() (int32, bool)                  { return 0, false }
func (EmptySource) CurrentFrameLen() (int, bool)         { return 0, true }
func (EmptySource) Channels() int                        { return emptyChannels }
func (EmptySource) SampleRate() int                      { return emptySampleRate }
func (EmptySource) TotalDuration() (time.Duration, bool) { return 0, true }
func (EmptySource) SizeHint() (int, int, bool)           { return 0, 0, true }

// ZeroSource produces silence forever
type ZeroSource struct {
	channels   int
	sampleRate int
}

// Zero returns an infinite silent source with the given format
func Zero(channels, sampleRate int) *ZeroSource {
	if channels <= 0 {
		channels = emptyChannels
	}
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &ZeroSource{channels: channels, sampleRate: sampleRate}
}

func (z *ZeroSource) Next() (int32, bool)                  { return 0, true }
func (z *ZeroSource) CurrentFrameLen() (int, bool)         { return 0, false }
func (z *ZeroSource) Channels() int                        { return z.channels }
func (z *ZeroSource) SampleRate() int                      { return z.sampleRate }
func (z *ZeroSource) TotalDuration() (time.Duration, bool) { return 0, false }
