// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Conforms sources of any rate and channel count to one output format
// Package resample provides sample rate and channel count conversion.
//
// Uses linear interpolation between neighbouring frames. Handles both
// upsampling and downsampling, and re-reads the inner format at every
// frame so a queue output whose sources differ in format can be played
// through a single fixed-format sink.
//
// Example:
//
//	src := resample.Conform(queueOutput, 48000, 2)
package resample
