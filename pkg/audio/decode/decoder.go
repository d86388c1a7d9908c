// ABOUTME: Decoder interface and file/packet stream constructors
// ABOUTME: Dispatches files to MP3, FLAC or WAV decoding by extension
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
)

// ErrUnsupportedFormat is returned by Open for unknown file extensions
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder decodes audio packets to PCM int32 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

// Supported reports whether Open can decode the file at path
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".flac", ".wav":
		return true
	}
	return false
}

// Open decodes an audio file, choosing the decoder by extension.
// The file is closed when the returned stream is exhausted.
func Open(path string) (*Stream, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s (supported: .mp3, .flac, .wav)", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	var s *Stream
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		s, err = NewMP3(f)
	case ".flac":
		s, err = NewFLAC(f)
	case ".wav":
		s, err = NewWAV(f)
	}
	if err != nil {
		f.Close()
		return nil, err
	}

	s.title = titleFromPath(path)
	s.closer = f
	return s, nil
}

// NewPacketStream decodes packets returned by next until it reports io.EOF.
// The format gives the channel count and sample rate of decoded output.
func NewPacketStream(dec Decoder, format audio.Format, next func() ([]byte, error)) *Stream {
	return &Stream{
		title:      format.Codec,
		channels:   format.Channels,
		sampleRate: format.SampleRate,
		closer:     dec,
		fill: func() ([]int32, error) {
			packet, err := next()
			if err != nil {
				return nil, err
			}
			return dec.Decode(packet)
		},
	}
}

// PacketList adapts a fixed set of packets to NewPacketStream's next func
func PacketList(packets [][]byte) func() ([]byte, error) {
	i := 0
	return func() ([]byte, error) {
		if i >= len(packets) {
			return nil, io.EOF
		}
		p := packets[i]
		i++
		return p, nil
	}
}

func titleFromPath(path string) string {
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
