package render

import (
	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
)

// StateKey identifies the stateful filter chain and compressor of one
// clip across chunks.
type StateKey struct {
	Track  string
	Clip   int   // index within the track
	Start  int64 // timeline frame
	Preset string
}

// ClipEffects is the capability set the clip processor delegates to. The
// whole-file renderer and the chunked renderer supply different filter and
// compressor implementations behind it.
type ClipEffects interface {
	// Filter runs the clip's EQ and dehum sections over b.
	Filter(b *audio.Buffer, key StateKey, sections []dsp.Section)
	// Compress applies dialogue compression to b.
	Compress(b *audio.Buffer, key StateKey, p dsp.CompressorParams) error
	// Duck applies env to b, whose first frame sits at timeline frame offset.
	Duck(b *audio.Buffer, env *dsp.DuckEnvelope, offset int64)
	// Fade applies f to b, whose first frame sits at timeline frame offset.
	Fade(b *audio.Buffer, f dsp.Fade, offset int64)
}

// GainEffects implements the effects that depend only on timeline
// position. Both renderers embed it.
type GainEffects struct{}

// Duck applies the envelope at absolute positions.
func (GainEffects) Duck(b *audio.Buffer, env *dsp.DuckEnvelope, offset int64) {
	env.Apply(b, offset)
}

// Fade applies the fade at absolute positions.
func (GainEffects) Fade(b *audio.Buffer, f dsp.Fade, offset int64) {
	f.Apply(b, offset)
}

// WholeClipEffects filters zero-phase and compresses with the batch
// compressor. Every call sees a complete clip, so no state is kept.
type WholeClipEffects struct {
	GainEffects
}

// Filter runs each section forward and backward.
func (WholeClipEffects) Filter(b *audio.Buffer, _ StateKey, sections []dsp.Section) {
	dsp.ApplyZeroPhase(b, sections)
}

// Compress runs the batch compressor.
func (WholeClipEffects) Compress(b *audio.Buffer, _ StateKey, p dsp.CompressorParams) error {
	return dsp.Compress(b, p)
}
