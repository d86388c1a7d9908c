// ABOUTME: Basic audio generators implementing audio.Source
// ABOUTME: Empty placeholder, silence, duration clipping, sample buffers and test tones
// Package source provides small audio.Source building blocks.
//
// These are used as placeholders and fillers by the queue and as test
// signals by the CLI and tests:
//   - Empty: a zero-length source
//   - Zero: infinite silence
//   - TakeDuration: clips any source to a fixed length
//   - Samples: plays back an in-memory sample slice
//   - Tone: an infinite sine wave
//
// Example:
//
//	beep := source.TakeDuration(source.Tone(440, 2, 48000), 250*time.Millisecond)
//	in.Append(beep)
package source
