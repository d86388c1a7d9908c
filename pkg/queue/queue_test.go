// ABOUTME: Tests for the sequential playback queue
// ABOUTME: Covers ordering, signals, keep-alive silence and concurrent appends
package queue

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/source"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func pull(t *testing.T, src audio.Source, n int) []int32 {
	t.Helper()
	out := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		s, ok := src.Next()
		require.True(t, ok, "unexpected end of stream after %d samples", i)
		out = append(out, s)
	}
	return out
}

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

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func mono(samples ...int32) audio.Source {
	return source.Samples(1, 48000, samples)
}

func TestQueue_PlaysInAppendOrder(t *testing.T) {
	in, out := New(false)

	in.Append(mono(1, 2))
	in.Append(mono(3))
	in.Append(mono(4, 5, 6))

	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, drain(out))
	assert.Equal(t, StateExhausted, out.State())
}

func TestQueue_EmptyWithoutKeepAliveEndsImmediately(t *testing.T) {
	_, out := New(false)

	_, ok := out.Next()
	assert.False(t, ok)
	assert.Equal(t, StateExhausted, out.State())
}

func TestQueue_ExhaustedStaysExhausted(t *testing.T) {
	in, out := New(false)
	in.Append(mono(1))

	assert.Equal(t, []int32{1}, drain(out))

	// Appends after exhaustion are never played
	in.Append(mono(2))
	for i := 0; i < 5; i++ {
		_, ok := out.Next()
		assert.False(t, ok)
	}
	assert.Equal(t, 1, in.Len())

	_, err := out.Read(make([]int32, 8))
	assert.ErrorIs(t, err, io.EOF)
}

func TestQueue_SkipsEmptySources(t *testing.T) {
	in, out := New(false)

	in.Append(source.Empty())
	in.Append(source.Empty())
	in.Append(mono(7))
	in.Append(source.Empty())

	assert.Equal(t, []int32{7}, drain(out))
}

func TestQueue_KeepAliveProducesSilence(t *testing.T) {
	_, out := New(true)

	// Several filler cycles worth of samples
	samples := pull(t, out, 48000)
	for i, s := range samples {
		require.Zero(t, s, "sample %d", i)
	}
	assert.Equal(t, StateSilence, out.State())

	_, known := out.TotalDuration()
	assert.False(t, known)
}

func TestQueue_KeepAlivePicksUpLateAppend(t *testing.T) {
	in, out := New(true)

	// Part way into a filler
	pull(t, out, 100)

	in.Append(mono(7, 8))

	// Filler is 10ms of mono 48kHz, so the source must start within 480 samples
	fillerLen := audio.DurationToSamples(DefaultFillerDuration, 1, 48000)
	got := pull(t, out, fillerLen+2)

	idx := -1
	for i, s := range got {
		if s == 7 {
			idx = i
			break
		}
	}
	require.NotEqual(t, -1, idx, "appended source not picked up within one filler")
	assert.LessOrEqual(t, idx, fillerLen)
	assert.Equal(t, int32(8), got[idx+1])

	// Back to silence afterwards
	for _, s := range pull(t, out, 1000) {
		assert.Zero(t, s)
	}
}

func TestQueue_SignalFiresWhenRetired(t *testing.T) {
	in, out := New(false)

	first := in.AppendWithSignal(mono(1, 2, 3))
	second := in.AppendWithSignal(mono(4))

	assert.False(t, isClosed(first))
	assert.False(t, isClosed(second))

	pull(t, out, 3)
	// All samples produced, but the queue has not moved past it yet
	assert.False(t, isClosed(first))

	s, ok := out.Next()
	require.True(t, ok)
	assert.Equal(t, int32(4), s)
	assert.True(t, isClosed(first))
	assert.False(t, isClosed(second))

	_, ok = out.Next()
	assert.False(t, ok)
	assert.True(t, isClosed(second))
}

func TestQueue_SignalFiresWithKeepAlive(t *testing.T) {
	in, out := New(true)

	done := in.AppendWithSignal(mono(1, 2))
	pull(t, out, 3) // two samples plus the first of the filler

	assert.True(t, isClosed(done))
	assert.Equal(t, StateSilence, out.State())
}

func TestQueue_DroppedReceiverIsHarmless(t *testing.T) {
	in, out := New(false)

	_ = in.AppendWithSignal(mono(1))
	_ = in.AppendWithSignal(mono(2))

	assert.NotPanics(t, func() {
		assert.Equal(t, []int32{1, 2}, drain(out))
	})
}

func TestQueue_ConcurrentAppends(t *testing.T) {
	const producers = 8
	const perProducer = 200

	in, out := New(true)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				// Values start at 1 so silence (0) is distinguishable
				in.Append(mono(int32(p*perProducer + i + 1)))
			}
		}(p)
	}

	seen := make(map[int32]int)
	lastPerProducer := make([]int32, producers)
	deadline := time.Now().Add(10 * time.Second)

	for pulls := 0; len(seen) < producers*perProducer; pulls++ {
		if pulls%1024 == 0 {
			require.True(t, time.Now().Before(deadline), "timed out with %d sources played", len(seen))
		}
		s, ok := out.Next()
		require.True(t, ok)
		if s == 0 {
			continue
		}
		seen[s]++

		// Each producer's own appends stay in order
		p := (s - 1) / perProducer
		assert.Greater(t, s, lastPerProducer[p])
		lastPerProducer[p] = s
	}
	wg.Wait()

	// Nothing left over and nothing played twice
	for _, s := range pull(t, out, 2000) {
		assert.Zero(t, s)
	}
	for v, n := range seen {
		assert.Equal(t, 1, n, "value %d played %d times", v, n)
	}
	assert.Len(t, seen, producers*perProducer)
	assert.Zero(t, in.Len())
}

func TestQueue_MetadataFollowsCurrentSource(t *testing.T) {
	in, out := New(false)

	// Placeholder before anything plays
	assert.Equal(t, 1, out.Channels())
	assert.Equal(t, 48000, out.SampleRate())

	in.Append(source.Samples(2, 44100, []int32{1, 1}))
	in.Append(source.Samples(1, 22050, []int32{2}))

	pull(t, out, 1)
	assert.Equal(t, 2, out.Channels())
	assert.Equal(t, 44100, out.SampleRate())
	n, ok := out.CurrentFrameLen()
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	pull(t, out, 2)
	assert.Equal(t, 1, out.Channels())
	assert.Equal(t, 22050, out.SampleRate())

	_, known := out.TotalDuration()
	assert.False(t, known)
}

func TestQueue_SizeHint(t *testing.T) {
	in, out := New(false)
	in.Append(mono(1, 2, 3))

	pull(t, out, 1)
	lower, _, bounded := out.SizeHint()
	assert.Equal(t, 2, lower)
	assert.False(t, bounded)
}

func TestQueue_FillerInheritsFormat(t *testing.T) {
	in, out := New(true)
	in.Append(source.Samples(2, 44100, []int32{5, 5}))

	pull(t, out, 3)
	assert.Equal(t, StateSilence, out.State())
	assert.Equal(t, 2, out.Channels())
	assert.Equal(t, 44100, out.SampleRate())

	n, ok := out.CurrentFrameLen()
	assert.True(t, ok)
	assert.Equal(t, 882-1, n) // 10ms stereo at 44.1kHz, one sample consumed
}

func TestQueue_FixedFillerFormat(t *testing.T) {
	in, out := New(true, WithFixedFillerFormat(1, 44000))
	in.Append(source.Samples(2, 48000, []int32{5, 5}))

	pull(t, out, 3)
	assert.Equal(t, 1, out.Channels())
	assert.Equal(t, 44000, out.SampleRate())
}

func TestQueue_FillerDuration(t *testing.T) {
	obs := &recordingObserver{}
	_, out := New(true, WithFillerDuration(5*time.Millisecond), WithObserver(obs))

	// 5ms of mono 48kHz is 240 samples: 960 samples span four fillers
	pull(t, out, 960)
	assert.Equal(t, 4, obs.count(TransitionSilence))
}

func TestQueue_ObserverSeesAppendsAndTransitions(t *testing.T) {
	obs := &recordingObserver{}
	in, out := New(false, WithObserver(obs))

	in.Append(mono(1))
	in.Append(mono(2))

	assert.Equal(t, []int{1, 2}, obs.appendedLens())

	drain(out)
	assert.Equal(t, 2, obs.count(TransitionNext))
	assert.Equal(t, 1, obs.count(TransitionExhausted))
}

func TestQueue_CurrentID(t *testing.T) {
	in, out := New(false)
	assert.Equal(t, uuid.Nil, out.CurrentID())

	in.Append(mono(1))
	pull(t, out, 1)
	assert.NotEqual(t, uuid.Nil, out.CurrentID())
}

func TestQueue_SubmitTicket(t *testing.T) {
	in, out := New(false)
	plain := in.Submit(mono(1), false)
	signalled := in.Submit(mono(2), true)

	assert.Nil(t, plain.Done)
	require.NotNil(t, signalled.Done)
	assert.NotEqual(t, plain.ID, signalled.ID)

	pull(t, out, 1)
	assert.Equal(t, plain.ID, out.CurrentID())
	pull(t, out, 1)
	assert.Equal(t, signalled.ID, out.CurrentID())
	assert.False(t, isClosed(signalled.Done))

	drain(out)
	assert.True(t, isClosed(signalled.Done))
}

func TestQueue_LogsTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	in, out := New(false, WithLogger(logger))
	in.Append(mono(1))
	drain(out)

	assert.Contains(t, buf.String(), "advanced to next source")
	assert.Contains(t, buf.String(), "queue exhausted")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "silence", StateSilence.String())
	assert.Equal(t, "exhausted", StateExhausted.String())
	assert.Equal(t, "next", TransitionNext.String())
}

type recordingObserver struct {
	mu          sync.Mutex
	appended    []int
	transitions []Transition
}

func (r *recordingObserver) Appended(pending int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appended = append(r.appended, pending)
}

func (r *recordingObserver) Transitioned(kind Transition, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, kind)
}

func (r *recordingObserver) appendedLens() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.appended...)
}

func (r *recordingObserver) count(kind Transition) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, k := range r.transitions {
		if k == kind {
			n++
		}
	}
	return n
}
