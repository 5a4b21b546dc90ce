package streaming

import (
	"sync"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/render"
)

// ChunkEffects filters with causal chains and compresses with the
// envelope-following compressor. Both keep their state per clip, so a clip
// fed one chunk at a time comes out as if processed in one go.
//
// Calls for one key must arrive in timeline order and never concurrently;
// different keys may be processed in parallel.
type ChunkEffects struct {
	render.GainEffects

	sampleRate int

	mu    sync.Mutex
	chain map[render.StateKey]*dsp.Chain
	comp  map[render.StateKey]*dsp.StreamingCompressor
}

// NewChunkEffects returns effects with every filter and compressor at
// rest.
func NewChunkEffects(sampleRate int) *ChunkEffects {
	return &ChunkEffects{
		sampleRate: sampleRate,
		chain:      make(map[render.StateKey]*dsp.Chain),
		comp:       make(map[render.StateKey]*dsp.StreamingCompressor),
	}
}

// Filter runs the clip's chain over b and keeps its state for the next
// chunk.
func (e *ChunkEffects) Filter(b *audio.Buffer, key render.StateKey, sections []dsp.Section) {
	e.mu.Lock()
	c, ok := e.chain[key]
	if !ok {
		c = dsp.NewChain(sections)
		e.chain[key] = c
	}
	e.mu.Unlock()
	c.Process(b)
}

// Compress runs the clip's compressor over b.
func (e *ChunkEffects) Compress(b *audio.Buffer, key render.StateKey, p dsp.CompressorParams) error {
	e.mu.Lock()
	c, ok := e.comp[key]
	if !ok {
		var err error
		c, err = dsp.NewStreamingCompressor(e.sampleRate, p)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		e.comp[key] = c
	}
	e.mu.Unlock()
	c.Process(b)
	return nil
}

// States returns how many filter chains and compressors are live.
func (e *ChunkEffects) States() (chains, compressors int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.chain), len(e.comp)
}
