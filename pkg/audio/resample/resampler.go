// ABOUTME: Linear interpolator between two neighbouring frames
// ABOUTME: Tracks the fractional read position as the input rate changes
package resample

import "math"

// Resampler steps through input frames at inputRate/outputRate per output frame
type Resampler struct {
	outputRate int
	inputRate  int
	ratio      float64
	position   float64 // fraction between prev and next, in [0, 1)
	prev       []int32
	next       []int32
}

// New creates a resampler for the given output rate
func New(outputRate int) *Resampler {
	return &Resampler{outputRate: outputRate, inputRate: outputRate, ratio: 1}
}

// SetInputRate updates the step size. Rates at or below zero are ignored.
func (r *Resampler) SetInputRate(rate int) {
	if rate <= 0 || rate == r.inputRate {
		return
	}
	r.inputRate = rate
	r.ratio = float64(rate) / float64(r.outputRate)
}

// Push makes frame the next interpolation target
func (r *Resampler) Push(frame []int32) {
	r.prev, r.next = r.next, append(r.prev[:0], frame...)
}

// Hold repeats the newest frame so the tail of the input is emitted.
// It returns false when no frame has been pushed.
func (r *Resampler) Hold() bool {
	if r.next == nil {
		return false
	}
	r.Push(r.next)
	return true
}

// Ready reports whether both neighbouring frames are loaded
func (r *Resampler) Ready() bool {
	return r.prev != nil && r.next != nil
}

// Interpolate writes the frame at the current position into out
func (r *Resampler) Interpolate(out []int32) {
	frac := r.position
	for ch := range out {
		a, b := r.prev[ch], r.next[ch]
		out[ch] = int32(math.Round(float64(a)*(1.0-frac) + float64(b)*frac))
	}
}

// Advance moves one output frame forward and returns how many input
// frames must be pushed before the next Interpolate
func (r *Resampler) Advance() int {
	r.position += r.ratio
	steps := int(r.position)
	r.position -= float64(steps)
	return steps
}

// Reset drops loaded frames and the fractional position
func (r *Resampler) Reset() {
	r.position = 0
	r.prev = nil
	r.next = nil
}
