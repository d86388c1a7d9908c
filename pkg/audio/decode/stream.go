// ABOUTME: Block-decoding audio.Source shared by all decoders
// ABOUTME: Pulls decoded chunks on demand and closes the input when done
package decode

import (
	"errors"
	"io"
	"time"
)

// maxEmptyChunks bounds how many empty chunks in a row a decoder may return
// before the stream gives up
const maxEmptyChunks = 64

// fillFunc decodes the next block of interleaved samples. It returns io.EOF
// (possibly together with a final block) at the end of the input.
type fillFunc func() ([]int32, error)

// Stream is an audio.Source backed by a block decoder
type Stream struct {
	title      string
	channels   int
	sampleRate int
	total      time.Duration
	totalKnown bool

	fill   fillFunc
	closer io.Closer

	chunk []int32
	pos   int
	done  bool
	err   error
}

func (s *Stream) Next() (int32, bool) {
	empty := 0
	for s.pos >= len(s.chunk) {
		if s.done {
			return 0, false
		}
		chunk, err := s.fill()
		s.chunk, s.pos = chunk, 0
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			s.finish()
			continue
		}
		if len(chunk) == 0 {
			empty++
			if empty > maxEmptyChunks {
				s.err = io.ErrNoProgress
				s.finish()
			}
		}
	}
	v := s.chunk[s.pos]
	s.pos++
	return v, true
}

// CurrentFrameLen reports the samples left in the current decoded block
func (s *Stream) CurrentFrameLen() (int, bool) {
	if left := len(s.chunk) - s.pos; left > 0 {
		return left, true
	}
	if s.done {
		return 0, true
	}
	return 0, false
}

func (s *Stream) Channels() int   { return s.channels }
func (s *Stream) SampleRate() int { return s.sampleRate }

func (s *Stream) TotalDuration() (time.Duration, bool) {
	return s.total, s.totalKnown
}

// Title returns a display name for the stream
func (s *Stream) Title() string {
	return s.title
}

// Err returns the decode error that ended the stream early, if any
func (s *Stream) Err() error {
	return s.err
}

// Close releases the underlying input. Streams close themselves once
// exhausted; Close is only needed when abandoning one early.
func (s *Stream) Close() error {
	if s.closer == nil {
		s.done = true
		return nil
	}
	c := s.closer
	s.closer = nil
	s.done = true
	return c.Close()
}

func (s *Stream) finish() {
	if err := s.Close(); err != nil && s.err == nil {
		s.err = err
	}
}
