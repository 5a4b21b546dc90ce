package timeline

import (
	"fmt"

	"github.com/linuxmatters/jivemix/internal/dsp"
)

// RoleRanges maps a role key (a mix role, or sfx:<semantic>) to the spans
// its clips occupy on the timeline. Ducking reads it; it is always built
// from the whole timeline.
type RoleRanges map[string][]dsp.Range

// BuildRoleRanges collects the spans of every placed clip. Looped clips
// span to loop_until. Clips whose source cannot be probed are skipped with
// a warning.
func BuildRoleRanges(t *Timeline, duration DurationFunc) (RoleRanges, []string) {
	ranges := make(RoleRanges)
	var warnings []string
	for _, tr := range t.Tracks {
		if tr.Role == "" {
			continue
		}
		for _, c := range tr.Clips {
			if c.Start == nil || c.File == "" {
				continue
			}
			var d float64
			if !c.Loop {
				var err error
				if d, err = duration(c.File); err != nil {
					warnings = append(warnings, fmt.Sprintf("role range skipped for %s: %v", c.File, err))
					continue
				}
			}
			r := dsp.Range{Start: c.StartSec(), End: c.End(d)}
			ranges[tr.Role] = append(ranges[tr.Role], r)
			if key := tr.RoleKey(c); key != tr.Role {
				ranges[key] = append(ranges[key], r)
			}
		}
	}
	return ranges, warnings
}

// Lookup returns the ranges of a role key.
func (r RoleRanges) Lookup(key string) ([]dsp.Range, bool) {
	v, ok := r[key]
	return v, ok && len(v) > 0
}

// annotateDensity labels scene clips that carry no dialogue density with
// the share of their scene window covered by voice.
func annotateDensity(t *Timeline, ranges RoleRanges) {
	voice := ranges[RoleVoice]
	for _, tr := range t.Tracks {
		for _, c := range tr.Clips {
			if c.Rules == nil || c.Rules.DialogueDensityLabel != "" {
				continue
			}
			ratio := dsp.DialogueDensity(voice, c.Rules.SceneStart, c.Rules.SceneEnd)
			c.Rules.DialogueDensityLabel = dsp.ClassifyDialogueDensity(ratio)
		}
	}
}
