package render

import (
	"time"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

// PassTiming is the wall time of one render pass.
type PassTiming struct {
	Name    string
	Elapsed time.Duration
}

// Result describes a finished render.
type Result struct {
	RenderID       string
	Output         string
	Renderer       string
	Strategy       timeline.LoudnessStrategy
	Format         audio.Format
	Frames         int64
	Tracks         []TrackResult
	Master         MasterResult
	ClippedSamples int64
	Passes         []PassTiming
	Warnings       []string
	Started        time.Time
	Finished       time.Time
}

// Duration returns the rendered length in seconds.
func (r *Result) Duration() float64 {
	if r.Format.SampleRate <= 0 {
		return 0
	}
	return float64(r.Frames) / float64(r.Format.SampleRate)
}

// Elapsed returns the total wall time.
func (r *Result) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}

// TimePass runs fn as a named pass and records its wall time.
func (r *Result) TimePass(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.Passes = append(r.Passes, PassTiming{Name: name, Elapsed: time.Since(start)})
	return err
}
