// Package render turns a prepared timeline into audio: per-clip effect
// plans, the clip processor, the track mixer, the master chain, the
// whole-file renderer, and the orchestrator that picks a renderer.
package render

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linuxmatters/jivemix/internal/timeline"
)

// ProgressFunc receives pass progress. progress runs 0..1 within a pass;
// level is the current output peak in dBFS.
type ProgressFunc func(pass int, passName string, progress float64, level float64)

// Pass names reported through ProgressFunc.
const (
	PassAnalysing = "Analysing"
	PassMeasuring = "Measuring"
	PassRendering = "Rendering"
)

// Context carries everything one render needs besides the timeline. It is
// passed explicitly; nothing in the renderer reads process-wide state.
type Context struct {
	ID       string
	Config   timeline.RenderConfig
	Logger   *slog.Logger
	Progress ProgressFunc
}

// NewContext returns a context with a fresh render ID. A nil logger
// discards output.
func NewContext(cfg timeline.RenderConfig, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := uuid.NewString()
	return &Context{
		ID:     id,
		Config: cfg,
		Logger: logger.With("render_id", id),
	}
}

// Report forwards a progress update when a callback is set.
func (c *Context) Report(pass int, passName string, progress, level float64) {
	if c.Progress != nil {
		c.Progress(pass, passName, progress, level)
	}
}
