// ABOUTME: Spool directory watcher feeding a playback queue
// ABOUTME: Appends each new audio file once it has stopped changing
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/decode"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must go without writes before it is queued
const DefaultSettle = 250 * time.Millisecond

// Appender receives decoded files; *queue.Input satisfies it
type Appender interface {
	Append(src audio.Source)
}

// Opener decodes a file into a source
type Opener func(path string) (audio.Source, error)

// Config configures a Watcher
type Config struct {
	Dir string
	// Settle delays queueing until writes stop; DefaultSettle when zero
	Settle time.Duration
	// IncludeExisting queues files already in Dir, in name order, at start
	IncludeExisting bool
	// Open defaults to decode.Open
	Open   Opener
	Logger *log.Logger
}

// Watcher queues audio files that appear in a directory
type Watcher struct {
	dir      string
	settle   time.Duration
	existing bool
	open     Opener
	in       Appender
	logger   *log.Logger

	seen    map[string]bool
	pending map[string]time.Time // path -> time it becomes eligible
}

// New creates a watcher appending to in
func New(cfg Config, in Appender) *Watcher {
	w := &Watcher{
		dir:      cfg.Dir,
		settle:   cfg.Settle,
		existing: cfg.IncludeExisting,
		open:     cfg.Open,
		in:       in,
		logger:   cfg.Logger,
		seen:     make(map[string]bool),
		pending:  make(map[string]time.Time),
	}
	if w.settle <= 0 {
		w.settle = DefaultSettle
	}
	if w.open == nil {
		w.open = func(path string) (audio.Source, error) { return decode.Open(path) }
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}
	w.logger = w.logger.WithPrefix("watch")
	return w
}

// Run watches until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	w.logger.Info("watching directory", "dir", w.dir)

	if w.existing {
		if err := w.queueExisting(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, time.Now())
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fsnotify error", "dir", w.dir, "err", err)
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, now time.Time) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !decode.Supported(event.Name) || w.seen[event.Name] {
		return
	}
	w.logger.Debug("fsnotify event", "file", event.Name, "event", event.Op)
	w.pending[event.Name] = now.Add(w.settle)
}

// flush queues every pending file whose settle time has passed, by name
func (w *Watcher) flush(now time.Time) {
	var due []string
	for path, at := range w.pending {
		if !now.Before(at) {
			due = append(due, path)
		}
	}
	slices.Sort(due)
	for _, path := range due {
		delete(w.pending, path)
		w.queue(path)
	}
}

func (w *Watcher) queueExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read watch dir: %w", err)
	}
	// ReadDir returns entries sorted by filename
	for _, entry := range entries {
		if entry.Type().IsRegular() && decode.Supported(entry.Name()) {
			w.queue(filepath.Join(w.dir, entry.Name()))
		}
	}
	return nil
}

// queue decodes and appends path unless it was queued before. Failed files
// are retried on their next write.
func (w *Watcher) queue(path string) {
	if w.seen[path] {
		return
	}
	src, err := w.open(path)
	if err != nil {
		w.logger.Warn("skipping file", "file", path, "err", err)
		return
	}
	w.seen[path] = true
	w.in.Append(src)
	w.logger.Info("queued file", "file", path)
}
