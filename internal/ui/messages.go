package ui

import (
	"github.com/linuxmatters/jivemix/internal/render"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

// ProgressMsg represents a progress update from the renderer
type ProgressMsg struct {
	Pass     int     // 1-based pass number
	PassName string  // "Analysing", "Measuring", or "Rendering"
	Progress float64 // 0.0 to 1.0
	Level    float64 // Current output peak in dBFS
}

// RenderStartMsg indicates the render has been planned and is starting
type RenderStartMsg struct {
	Timeline  string
	Output    string
	Streaming bool
	Strategy  timeline.LoudnessStrategy
	Tracks    int
	Duration  float64 // seconds
}

// RenderCompleteMsg indicates the render has finished
type RenderCompleteMsg struct {
	Result *render.Result
	Error  error
}
