package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/linuxmatters/jivemix/internal/cli"
	"github.com/linuxmatters/jivemix/internal/logging"
	"github.com/linuxmatters/jivemix/internal/render"
	"github.com/linuxmatters/jivemix/internal/streaming"
	"github.com/linuxmatters/jivemix/internal/timeline"
	"github.com/linuxmatters/jivemix/internal/ui"
)

// RenderCmd renders a timeline.
type RenderCmd struct {
	Timeline string `arg:"" type:"existingfile" help:"Timeline document (.json, .yaml, .yml)"`
	Output   string `arg:"" type:"path" help:"Output WAV file"`

	Streaming bool    `xor:"renderer" help:"Use the streaming renderer"`
	Batch     bool    `xor:"renderer" help:"Use the whole-file renderer"`
	Workers   int     `short:"w" help:"Tracks rendered in parallel when streaming" placeholder:"n"`
	ChunkSize float64 `help:"Streaming chunk length in seconds" placeholder:"seconds"`
	KeepTemp  bool    `help:"Keep the two-pass measurement file"`
	Mains     string  `help:"Mains frequency for dehum: auto, 50, 60, off" placeholder:"hz"`
	Report    string  `type:"path" help:"Write a render report to this file" placeholder:"file"`
	NoTUI     bool    `name:"no-tui" help:"Disable the progress display"`
}

// Run renders the timeline.
func (c *RenderCmd) Run(app *App) error {
	tl, err := timeline.Load(c.Timeline)
	if err != nil {
		return err
	}
	rc := c.renderConfig(app, tl)

	tui := app.Config.UI.Enabled && !c.NoTUI && isTerminal(app.Stdout)
	logger, closeLog, err := app.Logger(tui)
	if err != nil {
		return err
	}
	defer closeLogger(closeLog)

	rctx := render.NewContext(rc, logger)
	orch := render.NewOrchestrator(streaming.Renderer{})

	var res *render.Result
	if tui {
		res, err = c.runWithUI(app.Ctx, orch, rctx, tl)
	} else {
		res, err = orch.Run(app.Ctx, rctx, tl, c.Output)
	}
	if err != nil {
		return err
	}

	if tui {
		cli.PrintWarnings(res.Warnings)
	}
	cli.PrintSummary(app.Stdout, res)

	if c.Report != "" {
		data := logging.ReportData{TimelinePath: c.Timeline, Result: res, Config: rc}
		if err := logging.GenerateReport(c.Report, data); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		logger.Info("report written", "path", c.Report)
	}
	return nil
}

// renderConfig resolves the render settings: timeline, then config file,
// then flags.
func (c *RenderCmd) renderConfig(app *App, tl *timeline.Timeline) timeline.RenderConfig {
	rc := app.Config.Apply(timeline.NewRenderConfig(tl.Settings), tl)
	switch {
	case c.Streaming:
		rc = rc.WithStreaming(true)
	case c.Batch:
		rc = rc.WithStreaming(false)
	}
	rc = rc.WithMaxWorkers(c.Workers).
		WithChunkSize(c.ChunkSize).
		WithMains(timeline.MainsFrequency(c.Mains))
	if c.KeepTemp {
		rc = rc.WithKeepTemp(true)
	}
	return rc
}

type outcome struct {
	res *render.Result
	err error
}

// runWithUI renders in the background while the progress UI runs. Quitting
// the UI cancels the render.
func (c *RenderCmd) runWithUI(ctx context.Context, orch *render.Orchestrator, rctx *render.Context, tl *timeline.Timeline) (*render.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(c.Timeline, c.Output)
	progress := model.ProgressChan
	p := tea.NewProgram(model, tea.WithAltScreen())

	rctx.Progress = func(pass int, passName string, fraction float64, level float64) {
		select {
		case progress <- ui.ProgressMsg{Pass: pass, PassName: passName, Progress: fraction, Level: level}:
		default:
			// UI is behind; the next update supersedes this one
		}
	}

	done := make(chan outcome, 1)
	go func() {
		progress <- ui.RenderStartMsg{
			Timeline:  c.Timeline,
			Output:    c.Output,
			Streaming: rctx.Config.Streaming,
			Strategy:  rctx.Config.Strategy(),
			Tracks:    len(tl.Tracks),
			Duration:  tl.Duration(),
		}
		res, err := orch.Run(ctx, rctx, tl, c.Output)
		done <- outcome{res: res, err: err}
		p.Send(ui.RenderCompleteMsg{Result: res, Error: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("UI error: %w", err)
	}
	if m, ok := final.(ui.Model); ok && m.Aborted {
		cancel()
	}
	out := <-done
	return out.res, out.err
}
