package render

import (
	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/errors"
)

// SourceFunc returns one decoded pass through a source file at the render
// format. Callers may modify the returned buffer.
type SourceFunc func(path string) (*audio.Buffer, error)

// TrackResult summarises one mixed track.
type TrackResult struct {
	ID           string
	Role         string
	Clips        int
	Skipped      int
	MeasuredLUFS float64
	GainDB       float64
}

// MixTrack folds every clip of tp through the clip processor onto a
// silent buffer of frames length, in order, then applies the role loudness
// correction. A clip that fails processing is logged and skipped; a
// missing source aborts with a FILE error.
func MixTrack(rc *Context, tp *TrackPlan, frames int64, f audio.Format, load SourceFunc, fx ClipEffects) (*audio.Buffer, TrackResult, error) {
	res := TrackResult{ID: tp.Track.ID, Role: tp.Track.Role, Clips: len(tp.Clips)}
	canvas := audio.NewBuffer(f.SampleRate, f.Channels, int(frames))

	for _, cp := range tp.Clips {
		src, err := load(cp.Clip.File)
		if err != nil {
			return nil, res, errors.Wrapf(err, errors.CodeFile, "failed to load %s", cp.Clip.File)
		}
		out, err := ProcessClip(cp, src, fx)
		if err != nil {
			res.Skipped++
			rc.Logger.Warn("clip skipped", "clip", cp.Name(), "error", err)
			continue
		}
		canvas.Overlay(out, int(cp.Start))
	}

	res.MeasuredLUFS = dsp.IntegratedLoudness(canvas)
	if tp.HasTarget {
		if gain, ok := dsp.CorrectionGain(res.MeasuredLUFS, tp.TargetLUFS); ok {
			canvas.ApplyGainDB(gain)
			res.GainDB = gain
		}
	}
	tp.GainDB = res.GainDB
	rc.Logger.Debug("track mixed",
		"track", tp.Track.ID, "role", tp.Track.Role,
		"lufs", res.MeasuredLUFS, "gain_db", res.GainDB)
	return canvas, res, nil
}
