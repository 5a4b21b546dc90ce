package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/errors"
)

// SliceCmd saves the start of an audio file, for auditioning sources.
type SliceCmd struct {
	Input   string  `arg:"" type:"existingfile" help:"Audio file (.wav, .mp3)"`
	Seconds float64 `arg:"" help:"Seconds to keep from the start"`
	OutDir  string  `type:"path" default:"trim_audio" help:"Output directory" placeholder:"dir"`
	Fade    float64 `default:"1.0" help:"Linear fade in and out, in seconds" placeholder:"seconds"`
}

// Run writes the slice and prints its path.
func (c *SliceCmd) Run(app *App) error {
	logger, closeLog, err := app.Logger(false)
	if err != nil {
		return err
	}
	defer closeLogger(closeLog)

	out, err := sliceAudio(c.Input, c.Seconds, c.Fade, c.OutDir)
	if err != nil {
		return err
	}
	logger.Info("slice written", "input", c.Input, "seconds", c.Seconds, "output", out)
	fmt.Fprintf(app.Stdout, "Saved trimmed audio to: %s\n", out)
	return nil
}

// sliceAudio writes the first seconds of input to
// <outDir>/<name>_<seconds>s.wav in the source's own rate and channel
// layout, with linear fades of fade seconds at both ends. Fades longer
// than half the slice are shortened to half.
func sliceAudio(input string, seconds, fade float64, outDir string) (string, error) {
	if seconds <= 0 {
		return "", errors.Filef("slice length must be positive, got %g", seconds)
	}
	src, err := audio.Open(input)
	if err != nil {
		return "", err
	}
	defer src.Close()

	meta := src.Metadata()
	f := audio.Format{SampleRate: meta.SampleRate, Channels: meta.Channels, BitDepth: meta.BitDepth}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		f.BitDepth = 16
	}

	b, err := audio.ReadRegion(src, f, 0, audio.FramesFor(seconds, f.SampleRate))
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeFile, "cannot decode %s", input)
	}
	n := int64(b.Frames())
	fadeFrames := min(audio.FramesFor(max(fade, 0), f.SampleRate), n/2)
	dsp.FadeIn(0, fadeFrames, dsp.CurveLinear).Apply(b, 0)
	dsp.FadeOut(n, fadeFrames, dsp.CurveLinear).Apply(b, 0)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", errors.Wrapf(err, errors.CodeFile, "cannot create %s", outDir)
	}
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	out := filepath.Join(outDir, fmt.Sprintf("%s_%ss.wav", name, strconv.FormatFloat(seconds, 'f', -1, 64)))
	if err := audio.WriteFile(out, b, f); err != nil {
		return "", errors.Wrapf(err, errors.CodeFile, "cannot write %s", out)
	}
	return out, nil
}
