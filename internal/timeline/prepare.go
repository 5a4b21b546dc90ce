package timeline

import (
	"fmt"
)

// Prepared is a timeline ready to render: placed, expanded, fixed, and
// validated, with its role ranges.
type Prepared struct {
	Timeline *Timeline
	Ranges   RoleRanges
	Warnings []string
}

// Prepare runs the pre-render steps in order: implicit placement, scene
// expansion, rule validation, per-track overlap fixing, validation, role
// ranges, and dialogue density labels. It mutates t.
func Prepare(t *Timeline, duration DurationFunc) (*Prepared, error) {
	placeClips(t, duration)

	if err := ExpandScenes(t, duration); err != nil {
		return nil, err
	}
	if err := newValidator().check(t); err != nil {
		return nil, err
	}

	var warnings []string
	for _, tr := range t.Tracks {
		if err := AutoFix(tr, t.Settings.DefaultSilence, duration); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to auto-fix overlaps for track %s: %v", tr.ID, err))
		}
	}

	vw, err := Validate(t, duration)
	warnings = append(warnings, vw...)
	if err != nil {
		return &Prepared{Timeline: t, Warnings: warnings}, err
	}

	ranges, rw := BuildRoleRanges(t, duration)
	warnings = append(warnings, rw...)
	annotateDensity(t, ranges)

	return &Prepared{Timeline: t, Ranges: ranges, Warnings: warnings}, nil
}
