// ABOUTME: Tests for the command-line application
// ABOUTME: Renders files through the real command tree and plays into a recording sink
package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Sendspin/sendspin-queue/internal/config"
	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/decode"
	"github.com/Sendspin/sendspin-queue/pkg/audio/output"
	"github.com/charmbracelet/log"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeTone writes a 16-bit WAV whose samples count up from start
func writeTone(t *testing.T, path string, sampleRate, channels, frames, start int) []int {
	t.Helper()
	data := make([]int, frames*channels)
	for i := range data {
		data[i] = (start + i) % 30000
	}

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
	return data
}

func readAll(t *testing.T, path string) (*decode.Stream, []int32) {
	t.Helper()
	s, err := decode.Open(path)
	require.NoError(t, err)
	var out []int32
	for {
		v, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	require.NoError(t, s.Err())
	return s, out
}

// run executes the command tree in a clean directory so no config.yaml is picked up
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestRender_WAVIsGapless(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	first := writeTone(t, "a.wav", 48000, 2, 4800, 0)
	second := writeTone(t, "b.wav", 48000, 2, 2400, 1000)

	_, err := run(t, "render", "a.wav", "b.wav", "--out", "out.wav", "--log-level", "error")
	require.NoError(t, err)

	s, got := readAll(t, filepath.Join(dir, "out.wav"))
	assert.Equal(t, 48000, s.SampleRate())
	assert.Equal(t, 2, s.Channels())

	want := make([]int32, 0, len(first)+len(second))
	for _, v := range append(first, second...) {
		want = append(want, int32(v)<<8)
	}
	require.Equal(t, len(want), len(got))
	assert.Equal(t, want, got)
}

func TestRender_ConformsToFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeTone(t, "a.wav", 48000, 2, 4800, 0)

	_, err := run(t, "render", "a.wav", "-o", "mono.wav", "--rate", "24000", "--channels", "1", "--log-level", "error")
	require.NoError(t, err)

	s, got := readAll(t, "mono.wav")
	assert.Equal(t, 24000, s.SampleRate())
	assert.Equal(t, 1, s.Channels())
	assert.InDelta(t, 2400, len(got), 2)
}

func TestRender_EnvironmentOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SENDSPIN_QUEUE_OUTPUT_SAMPLE_RATE", "44100")
	writeTone(t, "a.wav", 48000, 2, 480, 0)

	_, err := run(t, "render", "a.wav", "-o", "out.wav", "--log-level", "error")
	require.NoError(t, err)

	s, _ := readAll(t, "out.wav")
	assert.Equal(t, 44100, s.SampleRate())
}

func TestRender_ConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("config.yaml", []byte("output:\n  channels: 1\n"), 0o644))
	writeTone(t, "a.wav", 48000, 2, 480, 0)

	_, err := run(t, "render", "a.wav", "-o", "out.wav", "--log-level", "error")
	require.NoError(t, err)

	s, _ := readAll(t, "out.wav")
	assert.Equal(t, 1, s.Channels())
}

func TestRender_RawPCM(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTone(t, "a.wav", 48000, 2, 1000, 0)
	writeTone(t, "b.wav", 48000, 2, 500, 0)

	_, err := run(t, "render", "a.wav", "b.wav", "-o", "out.pcm", "--log-level", "error")
	require.NoError(t, err)

	info, err := os.Stat("out.pcm")
	require.NoError(t, err)
	assert.EqualValues(t, (1000+500)*2*2, info.Size())
}

func TestRender_RawToStdout(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTone(t, "a.wav", 48000, 1, 100, 0)

	out, err := run(t, "render", "a.wav", "-o", "-", "--channels", "1", "--bit-depth", "24", "--log-level", "error")
	require.NoError(t, err)
	assert.Len(t, out, 100*3)
}

func TestRender_Errors(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTone(t, "a.wav", 48000, 2, 100, 0)

	tests := []struct {
		name string
		args []string
	}{
		{"no files", []string{"render", "-o", "out.wav"}},
		{"no output", []string{"render", "a.wav"}},
		{"unsupported file", []string{"render", "notes.txt", "-o", "out.wav"}},
		{"missing file", []string{"render", "a.wav", "missing.flac", "-o", "out.wav"}},
		{"invalid config", []string{"render", "a.wav", "-o", "out.wav", "--channels", "0"}},
		{"bad log level", []string{"render", "a.wav", "-o", "out.wav", "--log-level", "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestRender_UnsupportedFileWrapsSentinel(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "render", "notes.txt", "-o", "out.wav", "--log-level", "error")
	assert.ErrorIs(t, err, decode.ErrUnsupportedFormat)
}

// recordingSink collects everything written to it
type recordingSink struct {
	mu      sync.Mutex
	format  audio.Format
	samples []int32
	volume  int
	closed  bool
}

var (
	_ output.Output        = (*recordingSink)(nil)
	_ output.VolumeControl = (*recordingSink)(nil)
)

func (r *recordingSink) Open(format audio.Format) error {
	r.format = format
	return nil
}

func (r *recordingSink) Write(samples []int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, samples...)
	return nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func (r *recordingSink) SetVolume(volume int) { r.volume = volume }
func (r *recordingSink) SetMuted(bool)        {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	return cfg
}

func TestPlayer_PlaysAllTracksAndLogsThem(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Volume = 40
	first := writeTone(t, "one.wav", 48000, 2, 960, 0)
	second := writeTone(t, "two.wav", 48000, 2, 480, 0)

	var logs bytes.Buffer
	p := NewPlayer(cfg, log.New(&logs))
	require.NoError(t, p.Enqueue([]string{"one.wav", "two.wav"}))

	sink := &recordingSink{}
	require.NoError(t, p.Run(context.Background(), sink))

	assert.True(t, sink.closed)
	assert.Equal(t, 40, sink.volume)
	assert.Equal(t, audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16}, sink.format)
	assert.Len(t, sink.samples, len(first)+len(second))

	text := logs.String()
	assert.Contains(t, text, "finished title=one")
	assert.Contains(t, text, "finished title=two")
}

func TestPlayer_EnqueueIsAllOrNothing(t *testing.T) {
	cfg := testConfig(t)
	writeTone(t, "one.wav", 48000, 2, 100, 0)

	p := NewPlayer(cfg, log.New(&bytes.Buffer{}))
	err := p.Enqueue([]string{"one.wav", "missing.wav"})
	require.Error(t, err)
	assert.Zero(t, p.in.Len())
	assert.Empty(t, p.tracks)
}

func TestPlayer_CancelIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Queue.KeepAlive = true

	p := NewPlayer(cfg, log.New(&bytes.Buffer{}))
	ctx, cancel := context.WithCancel(context.Background())
	sink := &cancellingSink{cancel: cancel, after: 5}
	require.NoError(t, p.Run(ctx, sink))
	assert.GreaterOrEqual(t, sink.writes, 5)
}

// cancellingSink cancels playback after a number of writes
type cancellingSink struct {
	recordingSink
	cancel context.CancelFunc
	after  int
	writes int
}

func (c *cancellingSink) Write(samples []int32) error {
	c.writes++
	if c.writes == c.after {
		c.cancel()
	}
	return nil
}

func TestListenPort(t *testing.T) {
	port, err := listenPort(":8927")
	require.NoError(t, err)
	assert.Equal(t, 8927, port)

	port, err = listenPort("127.0.0.1:9000")
	require.NoError(t, err)
	assert.Equal(t, 9000, port)

	_, err = listenPort("localhost")
	assert.Error(t, err)
	_, err = listenPort(":http")
	assert.Error(t, err)
}

func TestIsRawPath(t *testing.T) {
	assert.True(t, isRawPath("-"))
	assert.True(t, isRawPath("out.PCM"))
	assert.True(t, isRawPath("dump.raw"))
	assert.False(t, isRawPath("out.wav"))
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestPlayer_StatusFollowsTracks(t *testing.T) {
	cfg := testConfig(t)
	writeTone(t, "one.wav", 48000, 2, 100, 0)
	writeTone(t, "two.wav", 48000, 1, 100, 0)

	p := NewPlayer(cfg, log.New(&bytes.Buffer{}))
	require.NoError(t, p.Enqueue([]string{"one.wav", "two.wav"}))

	st := p.Status()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.Pending)
	assert.Zero(t, st.Index)
	assert.Equal(t, "playing", st.State)
	assert.Equal(t, 48000, st.SampleRate)

	require.NoError(t, p.Run(context.Background(), &recordingSink{}))

	st = p.Status()
	assert.Zero(t, st.Index)
	assert.Zero(t, st.Pending)
	assert.Equal(t, "exhausted", st.State)
}
