// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion and scaling functions
package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleInt16Conversions(t *testing.T) {
	tests := []struct {
		name string
		in   int16
		wide int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wide, SampleFromInt16(tt.in))
			assert.Equal(t, tt.in, SampleToInt16(tt.wide))
		})
	}
}

func TestSampleToInt16_Truncates24Bit(t *testing.T) {
	assert.Equal(t, int16(3906), SampleToInt16(1000000))
	assert.Equal(t, int16(-3907), SampleToInt16(-1000000))
}

func TestSample24BitPacking(t *testing.T) {
	tests := []struct {
		name   string
		sample int32
		packed [3]byte
	}{
		{"zero", 0, [3]byte{0, 0, 0}},
		{"positive", 0x123456, [3]byte{0x56, 0x34, 0x12}},
		{"negative", -256, [3]byte{0x00, 0xFF, 0xFF}},
		{"max positive", Max24Bit, [3]byte{0xFF, 0xFF, 0x7F}},
		{"max negative", Min24Bit, [3]byte{0x00, 0x00, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.packed, SampleTo24Bit(tt.sample))
			assert.Equal(t, tt.sample, SampleFrom24Bit(tt.packed))
		})
	}
}

func TestScaleTo24Bit(t *testing.T) {
	tests := []struct {
		name     string
		sample   int32
		bitDepth int
		expected int32
	}{
		{"8-bit", 1, 8, 1 << 16},
		{"16-bit", 100, 16, 100 << 8},
		{"24-bit passthrough", 0x123456, 24, 0x123456},
		{"32-bit", 1 << 16, 32, 1 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ScaleTo24Bit(tt.sample, tt.bitDepth))
		})
	}
}

func TestClamp24Bit(t *testing.T) {
	assert.Equal(t, int32(Max24Bit), Clamp24Bit(Max24Bit+10))
	assert.Equal(t, int32(Min24Bit), Clamp24Bit(Min24Bit-10))
	assert.Equal(t, int32(42), Clamp24Bit(42))
}

func TestDurationConversions(t *testing.T) {
	assert.Equal(t, 960, DurationToSamples(10_000_000, 2, 48000)) // 10ms stereo
	assert.Equal(t, int64(10_000_000), int64(FramesToDuration(960, 2, 48000)))
	assert.Zero(t, FramesToDuration(100, 0, 48000))
}
