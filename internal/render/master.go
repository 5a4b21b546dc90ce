package render

import (
	"fmt"
	"math"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

// MasterResult records what the master chain measured and applied.
type MasterResult struct {
	MeasuredLUFS float64 // before loudness correction, -Inf when not measured
	LUFSGainDB   float64
	PeakDBFS     float64 // before peak normalisation
	PeakGainDB   float64
	FinalLUFS    float64
	FinalPeak    float64 // dBFS
}

// TonalSections designs the mix-level tonal shaping. An unknown tilt is
// logged and the remaining shelves still apply.
func TonalSections(rc *Context, sampleRate int) []dsp.Section {
	if rc.Config.Tonal.IsZero() {
		return nil
	}
	sections, err := rc.Config.Tonal.Sections(sampleRate)
	if err != nil {
		rc.Logger.Warn("tonal shaping", "error", err)
	}
	return sections
}

// MasterFade returns the master fade-out for a mix of frames length,
// clamped to the mix.
func MasterFade(cfg timeline.RenderConfig, frames int64, sampleRate int) dsp.Fade {
	if !cfg.MasterFadeOut {
		return dsp.Fade{}
	}
	n := min(audio.FramesFor(cfg.MasterFadeDuration, sampleRate), frames)
	return dsp.FadeOut(frames, n, cfg.MasterFadeCurve)
}

// ProcessMaster runs the master chain over the whole mix in place order:
// tonal shaping, master gain, loudness correction, peak normalisation,
// and the master fade-out. A stage that fails or produces non-finite
// samples is logged and the mix from the previous stage carries on.
func ProcessMaster(rc *Context, b *audio.Buffer) (*audio.Buffer, MasterResult) {
	cfg := rc.Config
	res := MasterResult{MeasuredLUFS: math.Inf(-1), PeakDBFS: math.Inf(-1)}

	if sections := TonalSections(rc, b.SampleRate); len(sections) > 0 {
		b = masterStage(rc, b, "tonal shaping", func(w *audio.Buffer) error {
			dsp.ApplyZeroPhase(w, sections)
			return nil
		})
	}

	b = masterStage(rc, b, "master gain", func(w *audio.Buffer) error {
		w.ApplyGainDB(cfg.MasterGainDB)
		return nil
	})

	if cfg.LoudnessEnabled {
		b = masterStage(rc, b, "loudness", func(w *audio.Buffer) error {
			measured, gain := dsp.ApplyLUFSTarget(w, cfg.TargetLUFS)
			if math.IsInf(measured, 0) {
				return fmt.Errorf("mix too quiet or short to measure")
			}
			res.MeasuredLUFS, res.LUFSGainDB = measured, gain
			return nil
		})
	}

	if cfg.Normalize {
		b = masterStage(rc, b, "peak normalisation", func(w *audio.Buffer) error {
			res.PeakDBFS = dsp.PeakDBFS(w)
			res.PeakGainDB = dsp.PeakNormalize(w, cfg.PeakTargetDBFS)
			return nil
		})
	}

	if fade := MasterFade(cfg, int64(b.Frames()), b.SampleRate); fade.Active() {
		b = masterStage(rc, b, "master fade-out", func(w *audio.Buffer) error {
			fade.Apply(w, 0)
			return nil
		})
	}

	res.FinalLUFS = dsp.IntegratedLoudness(b)
	res.FinalPeak = dsp.PeakDBFS(b)
	return b, res
}

func masterStage(rc *Context, b *audio.Buffer, name string, fn func(*audio.Buffer) error) *audio.Buffer {
	work := b.Clone()
	if err := fn(work); err != nil {
		rc.Logger.Warn("master stage skipped", "stage", name, "error", err)
		return b
	}
	for _, samples := range work.Data {
		for _, v := range samples {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				rc.Logger.Warn("master stage skipped", "stage", name, "error", "non-finite samples")
				return b
			}
		}
	}
	return work
}
