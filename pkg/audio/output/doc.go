// ABOUTME: Audio output package for playing or rendering audio
// ABOUTME: Provides Output interface, oto, malgo and WAV file sinks and Pump
// Package output provides audio sinks and the loop that feeds them.
//
// Backends:
//   - oto: 16-bit playback through a pipe-fed oto player
//   - malgo: 16/24/32-bit playback through miniaudio with a byte ring buffer
//   - wav: renders to a WAV file via go-audio/wav
//
// Example:
//
//	out, err := output.New(output.BackendOto, "", logger)
//	err = out.Open(audio.Format{Codec: "pcm", SampleRate: 48000, Channels: 2, BitDepth: 16})
//	err = output.Pump(ctx, src, out, 1024)
package output
