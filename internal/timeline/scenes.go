package timeline

import (
	"math"
	"sort"

	"github.com/linuxmatters/jivemix/internal/errors"
)

// DurationFunc returns the duration in seconds of a source file.
type DurationFunc func(path string) (float64, error)

// ExpandScenes turns scene blocks into ordinary track clips. Each scene
// clip is cloned, placed at scene start + offset, looped to the scene end
// when it loops, and given the scene's effective rules. A scene naming an
// unknown track is a TIMELINE error and leaves the timeline untouched. A
// timeline without scenes is returned unchanged, as is one already
// expanded.
func ExpandScenes(t *Timeline, duration DurationFunc) error {
	if len(t.Scenes) == 0 || t.expanded {
		return nil
	}

	scenes := make([]*Scene, len(t.Scenes))
	copy(scenes, t.Scenes)
	sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].Start < scenes[j].Start })

	for _, sc := range scenes {
		for id := range sc.Tracks {
			if t.Track(id) == nil {
				return errors.Timelinef("scene %q references unknown track %q", sceneName(sc), id)
			}
		}
	}

	type pending struct {
		track *Track
		clip  *Clip
	}
	var added []pending

	for i, sc := range scenes {
		rules, err := decodeRules(mergeRules(t.rawSettings, sc.Rules))
		if err != nil {
			return errors.Wrapf(err, errors.CodeTimeline, "scene %q has invalid rules", sceneName(sc))
		}
		rules.SceneID = sc.ID
		rules.SceneStart = sc.Start
		rules.SceneEnd = sc.End()
		rules.SceneEnergy = sc.EnergyOrDefault()
		if rules.PrevSceneEnergy == nil && i > 0 {
			prev := scenes[i-1].EnergyOrDefault()
			rules.PrevSceneEnergy = &prev
		}

		ids := make([]string, 0, len(sc.Tracks))
		for id := range sc.Tracks {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			tr := t.Track(id)
			for _, clip := range sc.Tracks[id] {
				nc := clip.Clone()
				nc.SetStart(sc.Start + clip.Offset)
				if nc.Loop {
					end := sc.End()
					nc.LoopUntil = &end
				}
				r := rules
				nc.Rules = &r
				added = append(added, pending{track: tr, clip: nc})
			}
		}
	}

	for _, p := range added {
		p.track.Clips = append(p.track.Clips, p.clip)
	}
	t.expanded = true

	if !t.Settings.SceneCrossfade.Enabled {
		return nil
	}
	for _, tr := range t.Tracks {
		if err := applyCrossfades(tr, duration); err != nil {
			return err
		}
	}
	return nil
}

// applyCrossfades fades between consecutive scene clips on a track whose
// end and start touch within DefaultCrossfadeTolerance. The later clip
// gains a fade-in, the earlier a fade-out, and the later clip moves earlier
// by the crossfade duration so the two overlap.
func applyCrossfades(tr *Track, duration DurationFunc) error {
	var clips []*Clip
	for _, c := range tr.Clips {
		if c.Start != nil {
			clips = append(clips, c)
		}
	}
	if len(clips) < 2 {
		return nil
	}
	sort.SliceStable(clips, func(i, j int) bool { return clips[i].StartSec() < clips[j].StartSec() })

	for i := 0; i < len(clips)-1; i++ {
		a, b := clips[i], clips[i+1]
		if a.Rules == nil || b.Rules == nil {
			continue
		}

		var srcDur float64
		if !a.Loop {
			d, err := duration(a.File)
			if err != nil {
				return err
			}
			srcDur = d
		}
		if math.Abs(a.End(srcDur)-b.StartSec()) >= DefaultCrossfadeTolerance {
			continue
		}

		d := b.Rules.SceneCrossfade.Duration
		a.FadeOut = widenFade(a.FadeOut, d)
		b.FadeIn = widenFade(b.FadeIn, d)

		start := b.StartSec()
		moved := math.Max(0, start-d)
		b.SetStart(moved)
		b.crossfadeLead = start - moved
	}
	return nil
}

// widenFade returns f lengthened to at least d seconds.
func widenFade(f *FadeSpec, d float64) *FadeSpec {
	if f == nil {
		return &FadeSpec{Duration: d}
	}
	if f.Duration < d {
		f.Duration = d
	}
	return f
}

func sceneName(sc *Scene) string {
	if sc.ID != "" {
		return sc.ID
	}
	return "@" + formatSeconds(sc.Start)
}
