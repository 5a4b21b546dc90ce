package render

import (
	"math"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/errors"
)

// PreLoop runs the stages that act on one pass through the source, in
// order: gain, EQ and dehum, SFX timing, SFX semantic loudness, SFX scene
// energy, the music energy ramp, and the dialogue density trim. b's first
// frame is frame sourceOffset of the source.
//
// Semantic loudness needs the whole pass: when it has not been set with
// SetSFXLoudness it is measured on b, so b must then start at offset 0 and
// hold the complete source.
func PreLoop(p *ClipPlan, b *audio.Buffer, sourceOffset int64, fx ClipEffects) (*audio.Buffer, error) {
	if !b.Valid() {
		return nil, errors.AudioProcessingf("clip %s: source produced no audio", p.Name())
	}

	b.ApplyGainDB(p.GainDB)
	if len(p.Sections) > 0 {
		fx.Filter(b, p.Key, p.Sections)
	}

	if p.SemanticRole != "" {
		b = dsp.ApplySFXTiming(b, p.SemanticRole)
		if p.HasSFXTarget {
			if !p.sfxMeasured {
				gain, _ := dsp.CorrectionGain(dsp.IntegratedLoudness(b), p.SFXTarget)
				p.SetSFXLoudness(gain)
			}
			b.ApplyGainDB(p.sfxLoudnessDB)
		}
		b.ApplyGainDB(p.SFXEnergyDB)
	}

	if p.Ramp != nil {
		p.Ramp.Apply(b, sourceOffset)
	}
	b.ApplyGainDB(p.DensityTrimDB)

	return b, checkFinite(p, b, "pre-loop")
}

// PostLoop runs the stages that act on timeline-placed audio: ducking,
// dialogue compression, and the clip fades. b's first frame sits at
// timeline frame offset. A failed compression is a DSP error.
func PostLoop(p *ClipPlan, b *audio.Buffer, offset int64, fx ClipEffects) (*audio.Buffer, error) {
	if p.Duck != nil {
		fx.Duck(b, p.Duck, offset)
	} else if p.DuckFlatDB != 0 {
		b.ApplyGainDB(p.DuckFlatDB)
	}

	if p.Compressor != nil {
		if err := fx.Compress(b, p.Key, *p.Compressor); err != nil {
			return nil, errors.Wrapf(err, errors.CodeDSP, "dialogue compression failed for %s", p.Name())
		}
	}

	fx.Fade(b, p.FadeIn, offset)
	fx.Fade(b, p.FadeOut, offset)

	return b, checkFinite(p, b, "post-loop")
}

// ProcessClip runs the whole chain on one decoded pass through the source
// and returns the clip's timeline-length audio, ready to overlay at
// p.Start.
func ProcessClip(p *ClipPlan, src *audio.Buffer, fx ClipEffects) (*audio.Buffer, error) {
	b, err := PreLoop(p, src, 0, fx)
	if err != nil {
		return nil, err
	}
	if p.Looping {
		b = b.Loop(int(p.Frames))
	} else if int64(b.Frames()) > p.Frames {
		b = b.Slice(0, int(p.Frames))
	}
	return PostLoop(p, b, p.Start, fx)
}

func checkFinite(p *ClipPlan, b *audio.Buffer, stage string) error {
	if !b.Valid() {
		return errors.AudioProcessingf("clip %s: %s stages produced an invalid buffer", p.Name(), stage)
	}
	for _, samples := range b.Data {
		for _, v := range samples {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.AudioProcessingf("clip %s: %s stages produced non-finite samples", p.Name(), stage)
			}
		}
	}
	return nil
}
