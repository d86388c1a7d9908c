// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Source, Format and sample conversion functions
// Package audio provides fundamental audio types and utilities.
//
// This package defines core types used throughout sendspin-queue:
//   - Source: a pull-based stream of int32 samples with format metadata
//   - Format: describes a PCM stream (sample rate, channels, bit depth)
//
// Samples are int32 values in the 24-bit range. Helpers convert between
// 16-bit, 24-bit and packed byte representations.
//
// Example:
//
//	buf := make([]int32, 960)
//	n, err := audio.Read(src, buf)
//	if err == io.EOF {
//	    // src is exhausted
//	}
package audio
