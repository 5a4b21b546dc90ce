package ui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	redColor   = lipgloss.Color("#A40000")
	greenColor = lipgloss.Color("#00AA00")
	amberColor = lipgloss.Color("#FFA500")
	grayColor  = lipgloss.Color("#888888")
)

// renderRenderingView renders the main progress view
func renderRenderingView(m Model) string {
	var b strings.Builder

	// Header
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	// Pass list
	b.WriteString(renderPasses(m))
	b.WriteString("\n")

	// Output level and elapsed time
	b.WriteString(renderStatus(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(redColor).
		Render("Jivemix 🎚 - Timeline Mixer")

	mode := "batch"
	if m.Streaming {
		mode = "streaming, " + string(m.Strategy)
	}
	subtitle := lipgloss.NewStyle().
		Foreground(grayColor).
		Italic(true).
		Render(fmt.Sprintf("%s → %s (%d tracks, %.1fs, %s)",
			filepath.Base(m.Timeline), filepath.Base(m.Output), m.Tracks, m.Duration, mode))

	return title + "\n" + subtitle
}

// renderPasses renders the list of passes with their status
func renderPasses(m Model) string {
	var b strings.Builder

	if len(m.Passes) == 0 {
		b.WriteString(" Preparing timeline...\n")
		return b.String()
	}
	for i, pass := range m.Passes {
		b.WriteString(renderPassEntry(m, pass, i))
		b.WriteString("\n")
	}

	return b.String()
}

// renderPassEntry renders a single pass line
func renderPassEntry(m Model, pass PassProgress, index int) string {
	label := fmt.Sprintf("Pass %d/%d: %-10s", index+1, len(m.Passes), pass.Name)

	switch pass.Status {
	case PassComplete:
		// ✓ completed pass with its time
		icon := lipgloss.NewStyle().Foreground(greenColor).Render("✓")
		return fmt.Sprintf(" %s %s %s", icon, label, formatElapsed(pass.ElapsedTime))

	case PassActive:
		spinner := lipgloss.NewStyle().Foreground(redColor).Render(spinnerFrames[m.spinnerIndex])
		return fmt.Sprintf(" %s %s %s", spinner, label, renderProgressBar(pass.Progress, 40, pass.ElapsedTime))

	default:
		// ○ queued pass
		icon := lipgloss.NewStyle().Foreground(grayColor).Render("○")
		return fmt.Sprintf(" %s %s", icon, label)
	}
}

// renderProgressBar renders a progress bar with percentage and elapsed time
func renderProgressBar(progress float64, width int, elapsed time.Duration) string {
	progress = math.Max(0, math.Min(1, progress))
	filled := int(progress * float64(width))
	empty := width - filled

	filledStyle := lipgloss.NewStyle().Foreground(redColor)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	bar := filledStyle.Render(strings.Repeat("━", filled)) +
		emptyStyle.Render(strings.Repeat("━", empty))

	percentage := int(progress * 100)

	return fmt.Sprintf("%s %3d%% [%s]", bar, percentage, formatElapsed(elapsed))
}

// renderStatus renders the level meter and overall time
func renderStatus(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(grayColor).
		Padding(0, 1).
		Width(60)

	content := fmt.Sprintf("📊 Level: %5.1f dBFS | Peak: %5.1f dBFS\n⏱  Elapsed: %s",
		m.CurrentLevel, m.PeakLevel, formatElapsed(time.Since(m.StartTime)))
	return box.Render(content)
}

// renderCompletionSummary renders the final summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	if m.Error != nil {
		icon := lipgloss.NewStyle().Bold(true).Foreground(redColor).Render("✗ Render failed")
		b.WriteString(icon)
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("   Error: %v\n", m.Error))
		return b.String()
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(greenColor).
		Render("✨ Render Complete!")
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, pass := range m.Passes {
		icon := lipgloss.NewStyle().Foreground(greenColor).Render("✓")
		b.WriteString(fmt.Sprintf(" %s %-10s %s\n", icon, pass.Name, formatElapsed(pass.ElapsedTime)))
	}

	if res := m.Result; res != nil {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("─", 60))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" %s → %s\n", filepath.Base(m.Timeline), filepath.Base(res.Output)))
		b.WriteString(fmt.Sprintf("   Loudness: %s | Peak: %s\n",
			formatLevel(res.Master.FinalLUFS, "LUFS"), formatLevel(res.Master.FinalPeak, "dBFS")))
		if res.ClippedSamples > 0 {
			warn := lipgloss.NewStyle().Foreground(amberColor).Render(
				fmt.Sprintf("   %d samples clipped", res.ClippedSamples))
			b.WriteString(warn)
			b.WriteString("\n")
		}
		if n := len(res.Warnings); n > 0 {
			warn := lipgloss.NewStyle().Foreground(amberColor).Render(
				fmt.Sprintf("   %d warning(s), see log", n))
			b.WriteString(warn)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func formatLevel(v float64, unit string) string {
	if math.IsInf(v, -1) || math.IsNaN(v) {
		return "silent"
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
