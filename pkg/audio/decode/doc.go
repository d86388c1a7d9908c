// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Turns MP3, FLAC, WAV, PCM and Opus input into audio.Source streams
// Package decode provides audio decoders for various codecs.
//
// File formats (MP3, FLAC, WAV) decode lazily into a *Stream, an
// audio.Source that pulls one decoded block at a time and closes its input
// once exhausted. Packet codecs (PCM, Opus) implement Decoder and can be
// wrapped with NewPacketStream.
//
// All decoders output int32 samples in 24-bit range.
//
// Example:
//
//	src, err := decode.Open("track.flac")
//	if err != nil {
//	    return err
//	}
//	in.AppendWithSignal(src)
package decode
