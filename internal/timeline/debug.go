package timeline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table renders the resolved timeline as a rounded table, one row per clip
// in start order.
func Table(t *Timeline, duration DurationFunc) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("Project Duration: %.2fs", t.Duration()))
	tw.AppendHeader(table.Row{"Track", "Role", "Gain", "Clip", "Start", "End", "Fades", "Rules"})

	for _, tr := range t.Tracks {
		role := tr.Role
		if tr.SemanticRole != "" {
			role += ":" + tr.SemanticRole
		}

		var clips []*Clip
		for _, c := range tr.Clips {
			if c.Start != nil {
				clips = append(clips, c)
			}
		}
		sort.SliceStable(clips, func(i, j int) bool { return clips[i].StartSec() < clips[j].StartSec() })

		if len(clips) == 0 {
			tw.AppendRow(table.Row{tr.ID, role, formatDB(tr.Gain), "(no clips)", "", "", "", ""})
			continue
		}

		for _, c := range clips {
			end := "?"
			if c.Loop {
				end = formatSeconds(c.End(0)) + "s (loop)"
			} else if d, err := duration(c.File); err == nil {
				end = formatSeconds(c.End(d)) + "s"
			}
			tw.AppendRow(table.Row{
				tr.ID, role, formatDB(tr.Gain),
				filepath.Base(c.File),
				formatSeconds(c.StartSec()) + "s", end,
				describeFades(c), describeRules(c.Rules),
			})
		}
		tw.AppendSeparator()
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}

func describeFades(c *Clip) string {
	var parts []string
	if c.FadeIn != nil {
		parts = append(parts, fmt.Sprintf("in %ss %s", formatSeconds(c.FadeIn.Duration), c.FadeIn.CurveOrLinear()))
	}
	if c.FadeOut != nil {
		parts = append(parts, fmt.Sprintf("out %ss %s", formatSeconds(c.FadeOut.Duration), c.FadeOut.CurveOrLinear()))
	}
	return strings.Join(parts, ", ")
}

func describeRules(r *Rules) string {
	if r == nil {
		return ""
	}
	parts := []string{fmt.Sprintf("energy %.2f", r.SceneEnergy)}
	if r.PrevSceneEnergy != nil {
		parts[0] += fmt.Sprintf(" (from %.2f)", *r.PrevSceneEnergy)
	}
	if r.DialogueDensityLabel != "" {
		parts = append(parts, "density "+r.DialogueDensityLabel)
	}
	if r.Ducking.Enabled {
		parts = append(parts, fmt.Sprintf("duck %s dB", formatDB(r.Ducking.DuckAmount)))
	}
	if r.DialogueCompression.Enabled {
		parts = append(parts, fmt.Sprintf("comp %s dB", formatDB(r.DialogueCompression.Threshold)))
	}
	return strings.Join(parts, ", ")
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatDB(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
