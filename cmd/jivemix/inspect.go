package main

import (
	"encoding/json"
	"fmt"

	"github.com/linuxmatters/jivemix/internal/cli"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

// InspectCmd prints a timeline as the renderer will see it.
type InspectCmd struct {
	Timeline string `arg:"" type:"existingfile" help:"Timeline document (.json, .yaml, .yml)"`
	JSON     bool   `help:"Print the resolved timeline as JSON"`
}

// Run expands scenes, fixes overlaps, and validates, then prints the
// result and any warnings. A timeline that fails validation is still
// printed before the error is returned.
func (c *InspectCmd) Run(app *App) error {
	logger, closeLog, err := app.Logger(false)
	if err != nil {
		return err
	}
	defer closeLogger(closeLog)

	tl, err := timeline.Load(c.Timeline)
	if err != nil {
		return err
	}

	probe := timeline.NewProbeCache()
	prep, prepErr := timeline.Prepare(tl, probe.Duration)
	if prep == nil {
		return prepErr
	}
	logger.Debug("timeline prepared", "tracks", len(tl.Tracks), "warnings", len(prep.Warnings))

	if c.JSON {
		data, err := json.MarshalIndent(prep.Timeline, "", "  ")
		if err != nil {
			return fmt.Errorf("encode timeline: %w", err)
		}
		fmt.Fprintln(app.Stdout, string(data))
	} else {
		fmt.Fprintln(app.Stdout, timeline.Table(prep.Timeline, probe.Duration))
	}
	cli.PrintWarnings(prep.Warnings)
	return prepErr
}
