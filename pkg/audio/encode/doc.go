// ABOUTME: Audio encoder package for encoding PCM to wire formats
// ABOUTME: Provides Encoder interface, PCM and Opus encoders and a Source byte reader
// Package encode turns int32 samples in 24-bit range into encoded bytes.
//
// Supports: PCM (16-bit and 24-bit little-endian), Opus
//
// Reader adapts an audio.Source into an io.Reader of encoded bytes for
// sinks that pull raw PCM, such as oto players.
//
// Example:
//
//	encoder, err := encode.NewPCM(format)
//	data, err := encoder.Encode(samples)
package encode
