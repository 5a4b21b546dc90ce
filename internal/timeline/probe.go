package timeline

import (
	"sync"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// ProbeCache memoises source metadata per path. It is safe for concurrent
// use.
type ProbeCache struct {
	mu      sync.Mutex
	entries map[string]probeEntry
}

type probeEntry struct {
	meta audio.Metadata
	err  error
}

// NewProbeCache returns an empty cache.
func NewProbeCache() *ProbeCache {
	return &ProbeCache{entries: make(map[string]probeEntry)}
}

// Metadata probes path once and returns the cached result thereafter,
// including failures.
func (p *ProbeCache) Metadata(path string) (audio.Metadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[path]; ok {
		return e.meta, e.err
	}
	var e probeEntry
	meta, err := audio.Probe(path)
	if err != nil {
		e.err = err
	} else {
		e.meta = *meta
	}
	p.entries[path] = e
	return e.meta, e.err
}

// Duration returns the source length in seconds.
func (p *ProbeCache) Duration(path string) (float64, error) {
	m, err := p.Metadata(path)
	if err != nil {
		return 0, err
	}
	return m.Duration, nil
}
