// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio sinks and the backend factory
package output

import (
	"errors"
	"fmt"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/charmbracelet/log"
)

// ErrNotOpen is returned by Write before Open succeeds or after Close
var ErrNotOpen = errors.New("output not initialized")

// Backend names accepted by New
const (
	BackendOto   = "oto"
	BackendMalgo = "malgo"
	BackendWAV   = "wav"
)

// Output represents an audio sink
type Output interface {
	// Open initializes the sink for interleaved samples in format
	Open(format audio.Format) error

	// Write outputs audio samples (blocks until accepted)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}

// VolumeControl is implemented by sinks with software gain
type VolumeControl interface {
	SetVolume(volume int)
	SetMuted(muted bool)
}

// New creates the named backend. path is only used by the WAV sink.
func New(backend, path string, logger *log.Logger) (Output, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch backend {
	case BackendOto:
		return NewOto(logger), nil
	case BackendMalgo:
		return NewMalgo(logger), nil
	case BackendWAV:
		if path == "" {
			return nil, errors.New("wav output requires a file path")
		}
		return NewWAV(path, logger), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %q (supported: %s, %s, %s)",
			backend, BackendOto, BackendMalgo, BackendWAV)
	}
}
