// ABOUTME: Tests for decoders and decoded streams
// ABOUTME: PCM packet decoding, WAV round trips and stream end-of-input handling
package decode

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
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

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name    string
		format  audio.Format
		wantErr string
	}{
		{"16-bit", audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}, ""},
		{"24-bit", audio.Format{Codec: "pcm", SampleRate: 192000, Channels: 2, BitDepth: 24}, ""},
		{"invalid codec", audio.Format{Codec: "opus", BitDepth: 16}, "invalid codec for PCM decoder: opus"},
		{"unsupported bit depth", audio.Format{Codec: "pcm", BitDepth: 32}, "unsupported bit depth: 32 (supported: 16, 24)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := NewPCM(tt.format)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				assert.Nil(t, dec)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, dec)
		})
	}
}

func TestPCMDecode(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		input    []byte
		expected []int32
	}{
		{"16-bit", 16, []byte{0x00, 0x01, 0x02, 0x03}, []int32{256 << 8, 770 << 8}},
		{"24-bit", 24, []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05}, []int32{0x020100, 0x050403}},
		{"16-bit odd trailing byte", 16, []byte{0x00, 0x01, 0x02}, []int32{256 << 8}},
		{"empty", 16, []byte{}, []int32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := NewPCM(audio.Format{Codec: "pcm", BitDepth: tt.bitDepth})
			require.NoError(t, err)

			out, err := dec.Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestNewOpus_InvalidCodec(t *testing.T) {
	dec, err := NewOpus(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2})
	require.EqualError(t, err, "invalid codec for Opus decoder: pcm")
	assert.Nil(t, dec)
}

func TestPacketStream(t *testing.T) {
	format := audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}
	dec, err := NewPCM(format)
	require.NoError(t, err)

	packets := [][]byte{
		{0x01, 0x00, 0x02, 0x00},
		{},
		{0x03, 0x00},
	}
	s := NewPacketStream(dec, format, PacketList(packets))

	assert.Equal(t, 2, s.Channels())
	assert.Equal(t, 48000, s.SampleRate())
	assert.Equal(t, []int32{1 << 8, 2 << 8, 3 << 8}, drain(s))
	assert.NoError(t, s.Err())

	_, ok := s.Next()
	assert.False(t, ok)
}

type countingCloser struct {
	closed int
}

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

func TestStream_ClosesOnceWhenExhausted(t *testing.T) {
	closer := &countingCloser{}
	calls := 0
	s := &Stream{
		channels:   1,
		sampleRate: 8000,
		closer:     closer,
		fill: func() ([]int32, error) {
			calls++
			if calls == 1 {
				return []int32{1, 2}, nil
			}
			return []int32{3}, io.EOF
		},
	}

	n, known := s.CurrentFrameLen()
	assert.False(t, known)
	assert.Zero(t, n)

	assert.Equal(t, []int32{1, 2, 3}, drain(s))
	assert.Equal(t, 1, closer.closed)
	assert.NoError(t, s.Err())

	drain(s)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, closer.closed)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, closer.closed)
}

func TestStream_DecodeErrorEndsStream(t *testing.T) {
	boom := errors.New("corrupt frame")
	calls := 0
	s := &Stream{
		channels: 1,
		fill: func() ([]int32, error) {
			calls++
			if calls == 1 {
				return []int32{9}, nil
			}
			return nil, boom
		},
	}

	assert.Equal(t, []int32{9}, drain(s))
	assert.ErrorIs(t, s.Err(), boom)
}

func TestStream_GivesUpOnEndlessEmptyChunks(t *testing.T) {
	s := &Stream{
		channels: 1,
		fill: func() ([]int32, error) {
			return nil, nil
		},
	}

	_, ok := s.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Err(), io.ErrNoProgress)
}

func writeWAV(t *testing.T, path string, sampleRate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestOpen_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beep.wav")
	data := make([]int, 2*3000) // stereo, more than one decode block
	for i := range data {
		data[i] = (i % 200) - 100
	}
	writeWAV(t, path, 44100, 2, data)

	s, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, "beep", s.Title())
	assert.Equal(t, 2, s.Channels())
	assert.Equal(t, 44100, s.SampleRate())

	got := drain(s)
	require.Len(t, got, len(data))
	for i := range data {
		require.Equal(t, int32(data[i])<<8, got[i], "sample %d", i)
	}
	assert.NoError(t, s.Err())
}

func TestOpen_Unsupported(t *testing.T) {
	_, err := Open("notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, Supported("notes.txt"))
	assert.True(t, Supported("SONG.FLAC"))
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNewWAV_Invalid(t *testing.T) {
	_, err := NewWAV(bytes.NewReader([]byte("definitely not a riff file")))
	assert.Error(t, err)
}

func TestNewFLAC_Invalid(t *testing.T) {
	_, err := NewFLAC(bytes.NewReader([]byte("fLaX garbage")))
	assert.Error(t, err)
}
