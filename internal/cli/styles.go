package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/jivemix/internal/render"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#A40000") // Jivemix red
	accentColor  = lipgloss.Color("#FFA500") // Orange
	mutedColor   = lipgloss.Color("#888888") // Gray
	textColor    = lipgloss.Color("#FFFFFF") // White
)

// Styles
var (
	// Title style - bold red
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// Error message style
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// Warning message style
	WarningStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// Key-value pair styles
	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("Jivemix 🎚"))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarnings prints timeline and render warnings to stderr.
func PrintWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle.Render("Warning:"), w)
	}
}

// PrintSummary prints the outcome of a render as key-value lines.
func PrintSummary(w io.Writer, res *render.Result) {
	kv := func(key, value string) {
		fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(fmt.Sprintf("%-10s", key+":")), ValueStyle.Render(value))
	}

	fmt.Fprintln(w, TitleStyle.Render("Jivemix 🎚"))
	kv("Output", filepath.Base(res.Output))
	kv("Renderer", res.Renderer)
	if res.Renderer == "streaming" {
		kv("Strategy", string(res.Strategy))
	}
	kv("Duration", fmt.Sprintf("%.1fs", res.Duration()))
	kv("Loudness", formatLevel(res.Master.FinalLUFS, "LUFS"))
	kv("Peak", formatLevel(res.Master.FinalPeak, "dBFS"))
	kv("Elapsed", fmt.Sprintf("%.1fs", res.Elapsed().Seconds()))
	if res.ClippedSamples > 0 {
		kv("Clipped", fmt.Sprintf("%d samples", res.ClippedSamples))
	}
	fmt.Fprintln(w)
}

func formatLevel(v float64, unit string) string {
	if math.IsInf(v, -1) || math.IsNaN(v) {
		return "silent"
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}
