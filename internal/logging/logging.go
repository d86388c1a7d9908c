// ABOUTME: Structured logger construction for the CLI and server
// ABOUTME: Builds a charmbracelet logger writing to stderr and an optional file
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Config selects level, output format and an optional log file
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json, logfmt
	File   string // appended to alongside stderr when set
}

// New builds a logger from cfg. A nil stderr leaves only the log file, or
// discards everything without one. The returned closer releases the log
// file and is never nil.
func New(cfg Config, stderr io.Writer) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, nil, err
	}

	var closer io.Closer = nopCloser{}
	w := stderr
	if w == nil {
		w = io.Discard
	}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening log file: %w", err)
		}
		if stderr == nil {
			w = f
		} else {
			w = io.MultiWriter(stderr, f)
		}
		closer = f
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	return logger, closer, nil
}

func parseFormat(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("unknown log format %q (supported: text, json, logfmt)", format)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
