// ABOUTME: Software volume and mute shared by playback backends
// ABOUTME: Safe to adjust while another goroutine is writing
package output

import (
	"sync/atomic"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
)

type gain struct {
	volume atomic.Int32
	muted  atomic.Bool
}

func newGain() *gain {
	g := &gain{}
	g.volume.Store(100)
	return g
}

// SetVolume sets the volume (0-100)
func (g *gain) SetVolume(volume int) {
	g.volume.Store(int32(min(max(volume, 0), 100)))
}

// SetMuted sets mute state
func (g *gain) SetMuted(muted bool) {
	g.muted.Store(muted)
}

// Volume returns current volume
func (g *gain) Volume() int {
	return int(g.volume.Load())
}

// IsMuted returns mute state
func (g *gain) IsMuted() bool {
	return g.muted.Load()
}

// apply scales samples into *buf with clipping protection. Unity gain
// returns samples unchanged.
func (g *gain) apply(buf *[]int32, samples []int32) []int32 {
	multiplier := g.multiplier()
	if multiplier == 1.0 {
		return samples
	}
	out := (*buf)[:0]
	for _, sample := range samples {
		out = append(out, audio.Clamp24Bit(int64(float64(sample)*multiplier)))
	}
	*buf = out
	return out
}

func (g *gain) multiplier() float64 {
	if g.muted.Load() {
		return 0.0
	}
	return float64(g.volume.Load()) / 100.0
}
