package render

import (
	"context"

	"github.com/linuxmatters/jivemix/internal/timeline"
)

// Renderer turns a planned job into an output file.
type Renderer interface {
	Name() string
	Render(ctx context.Context, rc *Context, job *Job, output string) (*Result, error)
}

// Orchestrator prepares a timeline and hands it to the batch or the
// streaming renderer, as the render configuration asks.
type Orchestrator struct {
	Batch     Renderer
	Streaming Renderer
}

// NewOrchestrator returns an orchestrator with the whole-file renderer and
// the given streaming renderer. A nil streaming renderer forces batch.
func NewOrchestrator(streaming Renderer) *Orchestrator {
	return &Orchestrator{Batch: Batch{}, Streaming: streaming}
}

// Prepare expands, fixes, validates, and plans tl without rendering.
func Prepare(rc *Context, tl *timeline.Timeline) (*Job, []string, error) {
	probe := timeline.NewProbeCache()
	prep, err := timeline.Prepare(tl, probe.Duration)
	var warnings []string
	if prep != nil {
		warnings = append(warnings, prep.Warnings...)
		for _, w := range prep.Warnings {
			rc.Logger.Warn(w)
		}
	}
	if err != nil {
		return nil, warnings, err
	}

	job, err := Plan(rc, prep, probe.Metadata)
	if err != nil {
		return nil, warnings, err
	}
	return job, append(warnings, job.Warnings...), nil
}

// Run renders tl to output.
func (o *Orchestrator) Run(ctx context.Context, rc *Context, tl *timeline.Timeline, output string) (*Result, error) {
	job, warnings, err := Prepare(rc, tl)
	if err != nil {
		return nil, err
	}

	r := o.Batch
	if rc.Config.Streaming && o.Streaming != nil {
		r = o.Streaming
	}
	rc.Logger.Info("rendering",
		"renderer", r.Name(),
		"output", output,
		"tracks", len(job.Tracks),
		"duration", tl.Duration(),
		"format", job.Format.String(),
		"mains", job.Mains.Source)

	res, err := r.Render(ctx, rc, job, output)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(warnings, res.Warnings...)
	rc.Logger.Info("render complete",
		"output", output,
		"frames", res.Frames,
		"lufs", res.Master.FinalLUFS,
		"peak_dbfs", res.Master.FinalPeak,
		"elapsed", res.Elapsed())
	return res, nil
}
