package timeline

import (
	"fmt"
	"strings"

	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/errors"
)

// Validate checks an expanded timeline. Structural problems (no project,
// non-positive duration, negative starts, loop_until not after start) are
// a TIMELINE error; missing or unreadable sources are a FILE error. Both
// list every problem found. Everything else is returned as advisory
// warnings.
func Validate(t *Timeline, duration DurationFunc) ([]string, error) {
	var problems, missing, warnings []string

	if t.Project == nil {
		problems = append(problems, "missing project section")
	}
	projectDur := t.Duration()
	if projectDur <= 0 {
		problems = append(problems, "project duration must be a positive number")
	}

	for _, tr := range t.Tracks {
		if tr.SemanticRole != "" && !dsp.IsSemanticRole(tr.SemanticRole) {
			warnings = append(warnings, fmt.Sprintf("track '%s': unknown semantic role '%s'", tr.ID, tr.SemanticRole))
		}
		if tr.EQPreset != "" {
			if _, err := dsp.ResolvePreset(tr.EQPreset); err != nil {
				warnings = append(warnings, fmt.Sprintf("track '%s': %v", tr.ID, err))
			}
		}

		var lastEnd float64
		for _, c := range tr.Clips {
			if c.File == "" {
				problems = append(problems, fmt.Sprintf("track '%s': clip missing file path", tr.ID))
				continue
			}
			d, err := duration(c.File)
			if err != nil {
				missing = append(missing, err.Error())
				continue
			}

			start := c.StartSec()
			if start < 0 {
				problems = append(problems, fmt.Sprintf("negative start time in '%s'", c.File))
			}
			if c.Loop && c.LoopUntil != nil && *c.LoopUntil <= start {
				problems = append(problems, fmt.Sprintf("invalid loop_until for '%s'", c.File))
			}
			if c.SemanticRole != "" && !dsp.IsSemanticRole(c.SemanticRole) {
				warnings = append(warnings, fmt.Sprintf("clip '%s': unknown semantic role '%s'", c.Name(), c.SemanticRole))
			}
			if c.EQPreset != "" {
				if _, err := dsp.ResolvePreset(c.EQPreset); err != nil {
					warnings = append(warnings, fmt.Sprintf("clip '%s': %v", c.Name(), err))
				}
			}

			if projectDur > 0 {
				end := c.End(d)
				if start > projectDur {
					warnings = append(warnings, fmt.Sprintf("clip '%s' starts after project end", c.File))
				} else if end > projectDur {
					warnings = append(warnings, fmt.Sprintf("clip '%s' exceeds project duration", c.File))
				}
			}
			if start < lastEnd-c.crossfadeLead {
				warnings = append(warnings, fmt.Sprintf("overlap detected in track '%s' at '%s'", tr.ID, c.File))
			}
			lastEnd = max(lastEnd, c.End(d))
		}
	}

	if len(missing) > 0 {
		return warnings, errors.Filef("%s", strings.Join(missing, "; "))
	}
	if len(problems) > 0 {
		return warnings, errors.Timelinef("validation failed: %s", strings.Join(problems, "; "))
	}
	return warnings, nil
}
