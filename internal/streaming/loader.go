package streaming

import (
	"fmt"
	"sync"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/errors"
)

// ChunkLoader decodes source regions on demand. Each file is opened once
// and kept open for the life of the loader; a new loader is made for each
// render pass.
type ChunkLoader struct {
	format audio.Format

	mu      sync.Mutex
	sources map[string]*openSource
}

type openSource struct {
	mu  sync.Mutex
	src audio.Source
}

// NewChunkLoader returns a loader decoding to format.
func NewChunkLoader(format audio.Format) *ChunkLoader {
	return &ChunkLoader{format: format, sources: make(map[string]*openSource)}
}

// Read decodes n frames of path from frame start, at the loader's format.
// The result always holds n frames; anything past the end of the source
// is silence. A source that cannot be opened is a FILE error.
func (l *ChunkLoader) Read(path string, start, n int64) (*audio.Buffer, error) {
	s, err := l.open(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	b, err := audio.ReadRegion(s.src, l.format, start, n)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("decode %s at frame %d: %w", path, start, err)
	}

	if int64(b.Frames()) < n {
		padded := audio.NewBuffer(l.format.SampleRate, l.format.Channels, int(n))
		padded.Overlay(b, 0)
		b = padded
	}
	return b, nil
}

func (l *ChunkLoader) open(path string) (*openSource, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.sources[path]; ok {
		return s, nil
	}
	src, err := audio.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFile, "audio file not found: %s", path)
	}
	s := &openSource{src: src}
	l.sources[path] = s
	return s, nil
}

// Open returns how many files are open.
func (l *ChunkLoader) Open() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sources)
}

// Close closes every open file.
func (l *ChunkLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for path, s := range l.sources {
		if err := s.src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
	}
	l.sources = make(map[string]*openSource)
	return errors.Join(errs...)
}
