// ABOUTME: WAV file output for offline rendering
// ABOUTME: Encodes written samples to a PCM WAV file via go-audio/wav
package output

import (
	"fmt"
	"os"
	"sync"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/charmbracelet/log"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAV writes audio to a file instead of a device
type WAV struct {
	path   string
	logger *log.Logger

	mu      sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	format  audio.Format
	buf     *goaudio.IntBuffer
	written int
}

// NewWAV creates a WAV sink writing to path on Open
func NewWAV(path string, logger *log.Logger) *WAV {
	return &WAV{path: path, logger: logger.WithPrefix("wav")}
}

// Open creates the file. A second Open is a no-op; the first format wins.
func (w *WAV) Open(format audio.Format) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.encoder != nil {
		return nil
	}
	switch format.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", format.BitDepth)
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}

	w.file = f
	w.format = format
	w.encoder = wav.NewEncoder(f, format.SampleRate, format.BitDepth, format.Channels, 1)
	w.buf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{SampleRate: format.SampleRate, NumChannels: format.Channels},
		SourceBitDepth: format.BitDepth,
	}
	w.logger.Debug("rendering to file", "path", w.path, "rate", format.SampleRate,
		"channels", format.Channels, "bits", format.BitDepth)
	return nil
}

// Write appends samples to the file
func (w *WAV) Write(samples []int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.encoder == nil {
		return ErrNotOpen
	}

	data := w.buf.Data[:0]
	for _, s := range samples {
		data = append(data, fromSample(s, w.format.BitDepth))
	}
	w.buf.Data = data

	if err := w.encoder.Write(w.buf); err != nil {
		return fmt.Errorf("wav encode: %w", err)
	}
	w.written += len(samples)
	return nil
}

// fromSample converts a 24-bit range sample to the file's bit depth
func fromSample(s int32, bitDepth int) int {
	switch bitDepth {
	case 16:
		return int(audio.SampleToInt16(s))
	case 32:
		return int(s) << 8
	default:
		return int(s)
	}
}

// Close finalizes the WAV header and closes the file
func (w *WAV) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.encoder == nil {
		return nil
	}
	encErr := w.encoder.Close()
	fileErr := w.file.Close()
	w.encoder = nil
	w.file = nil

	if encErr != nil {
		return fmt.Errorf("finalize wav: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close wav file: %w", fileErr)
	}
	w.logger.Info("render complete", "path", w.path,
		"duration", audio.FramesToDuration(w.written, w.format.Channels, w.format.SampleRate))
	return nil
}
