// Package ui provides the Bubbletea terminal user interface for jivemix
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/jivemix/internal/render"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

// Spinner frames for the active pass
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// silenceFloor initialises the level meters
const silenceFloor = -60.0

// PassStatus represents the state of a single render pass
type PassStatus int

const (
	PassQueued PassStatus = iota
	PassActive
	PassComplete
)

// PassProgress tracks progress for a single render pass
type PassProgress struct {
	Name   string
	Status PassStatus

	// Progress tracking (percentage-based)
	Progress    float64 // 0.0 to 1.0
	StartTime   time.Time
	ElapsedTime time.Duration
}

// Model is the Bubbletea model for the render UI
type Model struct {
	// Render being shown
	Timeline  string
	Output    string
	Streaming bool
	Strategy  timeline.LoudnessStrategy
	Tracks    int
	Duration  float64

	Passes  []PassProgress
	Current int // index into Passes, -1 before the first update

	// Output level
	CurrentLevel float64
	PeakLevel    float64

	// Completion
	Result  *render.Result
	Error   error
	Done    bool
	Aborted bool // the user quit before the render finished

	StartTime time.Time

	// Channel for receiving progress updates from the renderer
	ProgressChan chan tea.Msg

	spinnerIndex int

	// Terminal dimensions
	Width  int
	Height int
}

// tickMsg is sent for spinner/timer animation
type tickMsg time.Time

// NewModel creates a UI model for rendering timelinePath to output.
func NewModel(timelinePath, output string) Model {
	return Model{
		Timeline:     timelinePath,
		Output:       output,
		Current:      -1,
		CurrentLevel: silenceFloor,
		PeakLevel:    silenceFloor,
		StartTime:    time.Now(),
		ProgressChan: make(chan tea.Msg, 100), // Buffered channel
	}
}

// PlannedPasses lists the passes a render will report, in order.
func PlannedPasses(streaming bool, strategy timeline.LoudnessStrategy) []string {
	if !streaming {
		return []string{render.PassRendering}
	}
	switch strategy {
	case timeline.StrategyTwoPass, timeline.StrategyPeak:
		return []string{render.PassAnalysing, render.PassMeasuring, render.PassRendering}
	default:
		return []string{render.PassAnalysing, render.PassRendering}
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForProgress(m.ProgressChan), tickCmd())
}

// tickCmd returns a command that sends a tick message every 100ms
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.Done {
				m.Aborted = true
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if !m.Done {
			m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
			if m.Current >= 0 {
				p := &m.Passes[m.Current]
				p.ElapsedTime = time.Since(p.StartTime)
			}
			return m, tickCmd()
		}
		return m, nil

	case RenderStartMsg:
		m.Timeline = msg.Timeline
		m.Output = msg.Output
		m.Streaming = msg.Streaming
		m.Strategy = msg.Strategy
		m.Tracks = msg.Tracks
		m.Duration = msg.Duration
		m.Passes = nil
		for _, name := range PlannedPasses(msg.Streaming, msg.Strategy) {
			m.Passes = append(m.Passes, PassProgress{Name: name})
		}
		m.StartTime = time.Now()
		return m, waitForProgress(m.ProgressChan)

	case ProgressMsg:
		m = m.updateProgress(msg)
		return m, waitForProgress(m.ProgressChan)

	case RenderCompleteMsg:
		m.Result = msg.Result
		m.Error = msg.Error
		m.Done = true
		if msg.Error == nil {
			for i := range m.Passes {
				m.Passes[i].Status = PassComplete
				m.Passes[i].Progress = 1
			}
		}
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nTimeline: %s\n", m.Timeline)
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderRenderingView(m)
}

// updateProgress moves the model to msg's pass, completing earlier
// passes, and records the output level.
func (m Model) updateProgress(msg ProgressMsg) Model {
	idx := m.passIndex(msg.PassName)
	if idx != m.Current {
		for i := 0; i < idx; i++ {
			m.Passes[i].Status = PassComplete
			m.Passes[i].Progress = 1
		}
		m.Passes[idx].StartTime = time.Now()
		m.Current = idx
	}

	p := &m.Passes[idx]
	p.Status = PassActive
	p.Progress = msg.Progress
	p.ElapsedTime = time.Since(p.StartTime)

	if msg.Level != 0 {
		m.CurrentLevel = max(msg.Level, silenceFloor)
		if m.CurrentLevel > m.PeakLevel {
			m.PeakLevel = m.CurrentLevel
		}
	}
	return m
}

// passIndex finds name among the planned passes, appending it when the
// renderer reports a pass that was not planned.
func (m *Model) passIndex(name string) int {
	for i, p := range m.Passes {
		if p.Name == name {
			return i
		}
	}
	m.Passes = append(m.Passes, PassProgress{Name: name})
	return len(m.Passes) - 1
}

// waitForProgress creates a command that waits for progress messages
func waitForProgress(progressChan chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-progressChan
	}
}
