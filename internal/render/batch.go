package render

import (
	"context"
	"fmt"
	"time"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/errors"
)

// Batch renders the whole timeline in memory: every track is mixed in
// full, summed onto one canvas, and mastered before a single write.
type Batch struct{}

// Name identifies the renderer in logs and reports.
func (Batch) Name() string { return "batch" }

// Render mixes job and writes it to output.
func (b Batch) Render(ctx context.Context, rc *Context, job *Job, output string) (*Result, error) {
	f := job.Format
	res := &Result{
		RenderID: rc.ID,
		Output:   output,
		Renderer: b.Name(),
		Strategy: rc.Config.Strategy(),
		Format:   f,
		Frames:   job.Frames,
		Started:  time.Now(),
	}

	canvas := audio.NewBuffer(f.SampleRate, f.Channels, int(job.Frames))
	load := decodedSources(f)
	fx := WholeClipEffects{}

	err := res.TimePass(PassRendering, func() error {
		rc.Report(1, PassRendering, 0, 0)
		for i, tp := range job.Tracks {
			if err := ctx.Err(); err != nil {
				return err
			}
			track, tr, err := MixTrack(rc, tp, job.Frames, f, load, fx)
			if err != nil {
				return err
			}
			canvas.Overlay(track, 0)
			res.Tracks = append(res.Tracks, tr)
			rc.Report(1, PassRendering, float64(i+1)/float64(len(job.Tracks)), dsp.PeakDBFS(canvas))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	canvas, res.Master = ProcessMaster(rc, canvas)

	w, err := audio.Create(output, f)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFile, "cannot create output %s", output)
	}
	if err := w.Write(canvas); err != nil {
		w.Close()
		return nil, fmt.Errorf("write %s: %w", output, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", output, err)
	}
	res.ClippedSamples = w.ClippedSamples()
	res.Finished = time.Now()
	return res, nil
}

// decodedSources decodes each source once per render and hands out
// copies.
func decodedSources(f audio.Format) SourceFunc {
	cache := make(map[string]*audio.Buffer)
	return func(path string) (*audio.Buffer, error) {
		if b, ok := cache[path]; ok {
			return b.Clone(), nil
		}
		b, err := audio.ReadAll(path, f)
		if err != nil {
			return nil, err
		}
		cache[path] = b
		return b.Clone(), nil
	}
}
