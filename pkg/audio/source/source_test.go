// ABOUTME: Tests for basic generators
// ABOUTME: Verifies lengths, metadata and clipping behaviour
package source

import (
	"io"
	"testing"
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(src audio.Source) []int32 {
	var out []int32
	for {
		s, ok := src.Next()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}

func TestEmpty(t *testing.T) {
	src := Empty()

	_, ok := src.Next()
	assert.False(t, ok)
	assert.Equal(t, 1, src.Channels())
	assert.Equal(t, 48000, src.SampleRate())

	d, known := src.TotalDuration()
	assert.True(t, known)
	assert.Zero(t, d)
}

func TestZero_IsInfiniteSilence(t *testing.T) {
	src := Zero(2, 44100)

	for i := 0; i < 10000; i++ {
		s, ok := src.Next()
		require.True(t, ok)
		require.Zero(t, s)
	}

	_, known := src.TotalDuration()
	assert.False(t, known)
	assert.Equal(t, 2, src.Channels())
	assert.Equal(t, 44100, src.SampleRate())
}

func TestZero_Defaults(t *testing.T) {
	src := Zero(0, 0)
	assert.Equal(t, 1, src.Channels())
	assert.Equal(t, audio.DefaultSampleRate, src.SampleRate())
}

func TestTakeDuration(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		rate     int
		d        time.Duration
		expected int
	}{
		{"10ms mono 48k", 1, 48000, 10 * time.Millisecond, 480},
		{"10ms stereo 48k", 2, 48000, 10 * time.Millisecond, 960},
		{"sub-frame rounds up to one frame", 2, 1000, time.Microsecond, 2},
		{"zero duration", 1, 48000, 0, 0},
		{"negative duration", 1, 48000, -time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := TakeDuration(Zero(tt.channels, tt.rate), tt.d)
			assert.Len(t, drain(src), tt.expected)

			_, ok := src.Next()
			assert.False(t, ok, "clipped source must stay exhausted")
		})
	}
}

func TestTakeDuration_ShorterInner(t *testing.T) {
	inner := Samples(1, 1000, []int32{1, 2, 3})
	src := TakeDuration(inner, time.Second)

	assert.Equal(t, []int32{1, 2, 3}, drain(src))

	d, ok := src.TotalDuration()
	assert.True(t, ok)
	assert.Equal(t, 3*time.Millisecond, d)
}

func TestTakeDuration_FrameLenAndHint(t *testing.T) {
	src := TakeDuration(Samples(1, 1000, make([]int32, 100)), 10*time.Millisecond)

	n, ok := src.CurrentFrameLen()
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	lower, upper, bounded := src.SizeHint()
	assert.Equal(t, 10, lower)
	assert.Equal(t, 10, upper)
	assert.True(t, bounded)
}

func TestSamples(t *testing.T) {
	src := Samples(2, 48000, []int32{1, -1, 2, -2})

	n, ok := src.CurrentFrameLen()
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	buf := make([]int32, 3)
	read, err := audio.Read(src, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, read)
	assert.Equal(t, []int32{1, -1, 2}, buf)

	lower, upper, bounded := audio.SizeHint(src)
	assert.Equal(t, 1, lower)
	assert.Equal(t, 1, upper)
	assert.True(t, bounded)

	read, err = audio.Read(src, buf)
	require.NoError(t, err)
	assert.Equal(t, 1, read)

	_, err = audio.Read(src, buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTone(t *testing.T) {
	src := Tone(440, 2, 48000)

	first := drain(TakeDuration(src, 100*time.Millisecond))
	require.Len(t, first, 9600)

	var peak int32
	for i := 0; i < len(first); i += 2 {
		assert.Equal(t, first[i], first[i+1], "channels must carry the same sample")
		if first[i] > peak {
			peak = first[i]
		}
	}
	assert.InDelta(t, audio.Max24Bit/2, peak, audio.Max24Bit*0.01)
}
