package streaming

import (
	"fmt"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/errors"
)

// StreamWriter appends chunks to a WAV file in order. The file is opened
// once, never seeks backwards while writing, and is finalised on Close.
type StreamWriter struct {
	path string
	w    *audio.Writer
}

// NewStreamWriter creates path for writing in format. Failure to create
// the file is a FILE error.
func NewStreamWriter(path string, format audio.Format) (*StreamWriter, error) {
	w, err := audio.Create(path, format)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFile, "cannot create output %s", path)
	}
	return &StreamWriter{path: path, w: w}, nil
}

// WriteChunk appends b.
func (s *StreamWriter) WriteChunk(b *audio.Buffer) error {
	if err := s.w.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Frames returns how many frames have been written.
func (s *StreamWriter) Frames() int64 {
	return s.w.Frames()
}

// ClippedSamples returns how many samples were clamped to full scale.
func (s *StreamWriter) ClippedSamples() int64 {
	return s.w.ClippedSamples()
}

// Close finalises the file.
func (s *StreamWriter) Close() error {
	if err := s.w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	return nil
}
