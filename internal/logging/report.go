package logging

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/linuxmatters/jivemix/internal/render"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

// ReportData contains all the information needed to write a render report.
type ReportData struct {
	TimelinePath string
	Result       *render.Result
	Config       timeline.RenderConfig
}

// ReportPath names the default report for output: mix.wav → mix.log.
func ReportPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".log"
}

// GenerateReport writes the render report to path.
func GenerateReport(path string, data ReportData) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := WriteReport(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteReport writes the render report to w.
//
// Report structure:
// 1. Header - files, format, and timestamp
// 2. Processing Summary - renderer, strategy, pass timings
// 3. Tracks - per-track loudness and applied gain
// 4. Master - loudness and peak before and after correction
// 5. Warnings
func WriteReport(w io.Writer, data ReportData) error {
	if data.Result == nil {
		return fmt.Errorf("no render result to report")
	}
	ew := &errWriter{w: w}
	writeReportHeader(ew, data)
	writeProcessingSummary(ew, data)
	writeTrackTable(ew, data.Result)
	writeMasterTable(ew, data)
	writeWarnings(ew, data.Result)
	return ew.err
}

// errWriter keeps the first write error so the section writers can ignore
// errors.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, nil
}

// writeSection writes a section header with title and dashed underline.
// The underline length matches the title length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// writeReportHeader outputs the report header with file info and timestamp.
func writeReportHeader(w io.Writer, data ReportData) {
	res := data.Result
	fmt.Fprintln(w, "Jivemix Render Report")
	fmt.Fprintln(w, "=====================")
	if data.TimelinePath != "" {
		fmt.Fprintf(w, "Timeline: %s\n", filepath.Base(data.TimelinePath))
	}
	fmt.Fprintf(w, "Output: %s\n", filepath.Base(res.Output))
	fmt.Fprintf(w, "Rendered: %s\n", res.Finished.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Render ID: %s\n", res.RenderID)
	fmt.Fprintf(w, "Duration: %s\n", formatDuration(time.Duration(res.Duration()*float64(time.Second))))
	fmt.Fprintf(w, "Format: %d Hz, %s, %d-bit\n",
		res.Format.SampleRate, channelName(res.Format.Channels), res.Format.BitDepth)
	fmt.Fprintln(w, "")
}

// writeProcessingSummary outputs the renderer, strategy, and the time
// spent in each pass.
func writeProcessingSummary(w io.Writer, data ReportData) {
	res := data.Result
	writeSection(w, "Processing Summary")

	fmt.Fprintf(w, "Renderer:  %s\n", res.Renderer)
	if res.Renderer == "streaming" {
		fmt.Fprintf(w, "Strategy:  %s\n", res.Strategy)
		fmt.Fprintf(w, "Chunks:    %ss, %d workers\n", formatNumber(data.Config.ChunkSizeSec, 2), data.Config.MaxWorkers)
	}
	for i, p := range res.Passes {
		label := fmt.Sprintf("Pass %d (%s):", i+1, p.Name)
		fmt.Fprintf(w, "%-24s%s\n", label, formatDuration(p.Elapsed))
	}

	total := res.Elapsed()
	fmt.Fprintf(w, "%-24s%s", "Total:", formatDuration(total))
	if audioDuration := res.Duration(); audioDuration > 0 && total > 0 {
		rtf := audioDuration / total.Seconds()
		fmt.Fprintf(w, " (%.0fx real-time)", rtf)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "")
}

// writeTrackTable outputs one row per track: role loudness before
// correction and the gain applied to reach the role target.
func writeTrackTable(w io.Writer, res *render.Result) {
	writeSection(w, "Tracks")
	if len(res.Tracks) == 0 {
		fmt.Fprintln(w, "(no tracks)")
		fmt.Fprintln(w, "")
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Track", "Role", "Clips", "Skipped", "Measured", "Gain"})
	for _, tr := range res.Tracks {
		measured := MissingValue
		if !math.IsInf(tr.MeasuredLUFS, -1) {
			measured = formatLUFS(tr.MeasuredLUFS) + " LUFS"
		}
		tw.AppendRow(table.Row{
			tr.ID, tr.Role, tr.Clips, tr.Skipped,
			measured,
			formatSigned(tr.GainDB, 1) + " dB",
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	fmt.Fprintln(w, tw.Render())
	fmt.Fprintln(w, "")
}

// writeMasterTable outputs the master loudness and peak before and after
// correction.
func writeMasterTable(w io.Writer, data ReportData) {
	res := data.Result
	m := res.Master
	writeSection(w, "Master")

	t := newLevelTable()
	measuredLUFS, lufsGain := math.NaN(), math.NaN()
	if data.Config.LoudnessEnabled {
		measuredLUFS, lufsGain = notMeasured(m.MeasuredLUFS), m.LUFSGainDB
	}
	t.add("Integrated Loudness", measuredLUFS, lufsGain, m.FinalLUFS,
		formatLUFS, "LUFS", targetNote(data.Config.LoudnessEnabled, data.Config.TargetLUFS, "LUFS"))

	peak, peakGain := math.NaN(), math.NaN()
	if data.Config.Normalize {
		peak, peakGain = notMeasured(m.PeakDBFS), m.PeakGainDB
	}
	t.add("Sample Peak", peak, peakGain, m.FinalPeak,
		formatPeak, "dBFS", targetNote(data.Config.Normalize, data.Config.PeakTargetDBFS, "dBFS"))
	fmt.Fprint(w, t.String())

	if data.Config.MasterGainDB != 0 {
		fmt.Fprintf(w, "Master gain: %s dB\n", formatSigned(data.Config.MasterGainDB, 1))
	}
	if data.Config.MasterFadeOut {
		fmt.Fprintf(w, "Fade-out: %ss %s\n", formatNumber(data.Config.MasterFadeDuration, 1), data.Config.MasterFadeCurve)
	}
	if res.ClippedSamples > 0 {
		fmt.Fprintf(w, "Clipped samples: %d\n", res.ClippedSamples)
	}
	fmt.Fprintln(w, "")
}

func writeWarnings(w io.Writer, res *render.Result) {
	if len(res.Warnings) == 0 {
		return
	}
	writeSection(w, "Warnings")
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "- %s\n", warning)
	}
	fmt.Fprintln(w, "")
}

// notMeasured maps the meters' -Inf "no measurement" to NaN.
func notMeasured(v float64) float64 {
	if math.IsInf(v, -1) {
		return math.NaN()
	}
	return v
}

func targetNote(enabled bool, target float64, unit string) string {
	if !enabled {
		return ""
	}
	return fmt.Sprintf("target %s %s", formatNumber(target, 1), unit)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// channelName returns a human-readable channel name
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
