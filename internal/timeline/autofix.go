package timeline

import (
	"sort"
)

// AutoFix sorts a track's clips by start and shifts any clip that starts
// before the previous clip's end plus minGap forward to that point,
// carrying loop_until along so looped clips keep their length. Clips a
// scene crossfade pulled over their predecessor keep that overlap.
// Duration lookup failures are returned; the clips fixed so far stay
// fixed.
func AutoFix(tr *Track, minGap float64, duration DurationFunc) error {
	if len(tr.Clips) < 2 {
		return nil
	}
	sort.SliceStable(tr.Clips, func(i, j int) bool {
		return tr.Clips[i].StartSec() < tr.Clips[j].StartSec()
	})

	var (
		prevEnd float64
		first   = true
	)
	for _, c := range tr.Clips {
		if c.Start == nil {
			continue
		}
		start := c.StartSec()

		var length float64
		if c.Loop {
			if c.LoopUntil != nil {
				length = *c.LoopUntil - start
			}
		} else {
			d, err := duration(c.File)
			if err != nil {
				return err
			}
			length = d
		}

		if earliest := prevEnd + minGap - c.crossfadeLead; !first && start < earliest {
			delta := earliest - start
			c.SetStart(earliest)
			if c.Loop && c.LoopUntil != nil {
				*c.LoopUntil += delta
			}
		}

		prevEnd = max(prevEnd, c.StartSec()+length)
		first = false
	}
	return nil
}

// placeClips gives clips without a start the end of the latest clip before
// them on the track, and loops without loop_until the project end. Sources
// whose duration cannot be read count as empty; Validate reports them.
func placeClips(t *Timeline, duration DurationFunc) {
	for _, tr := range t.Tracks {
		var cursor float64
		for _, c := range tr.Clips {
			if c.Start == nil {
				c.SetStart(cursor)
			}
			if c.Loop && c.LoopUntil == nil {
				end := t.Duration()
				c.LoopUntil = &end
			}
			var d float64
			if !c.Loop {
				d, _ = duration(c.File)
			}
			cursor = max(cursor, c.End(d))
		}
	}
}
