package render

import (
	"fmt"
	"sort"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/errors"
	"github.com/linuxmatters/jivemix/internal/mains"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

// MetadataFunc probes a source file.
type MetadataFunc func(path string) (audio.Metadata, error)

// ClipPlan is everything the clip processor needs for one clip, resolved
// once per render. Frame positions are at the render sample rate.
type ClipPlan struct {
	Track *timeline.Track
	Clip  *timeline.Clip
	Key   StateKey

	Start        int64 // timeline frame of the first sample
	Frames       int64 // timeline length, loops included
	SourceFrames int64 // one pass through the source
	Looping      bool

	GainDB   float64 // track gain plus clip gain
	Preset   string  // versioned preset name, empty when none
	Sections []dsp.Section

	SemanticRole string
	SFXTarget    float64 // LUFS, valid when HasSFXTarget
	HasSFXTarget bool
	SFXEnergyDB  float64

	Ramp          *dsp.EnergyRamp // in source-iteration frames
	DensityTrimDB float64

	Duck       *dsp.DuckEnvelope
	DuckFlatDB float64
	Compressor *dsp.CompressorParams

	FadeIn  dsp.Fade
	FadeOut dsp.Fade

	// sfxLoudnessDB is the measured semantic loudness correction. The
	// whole-file renderer measures it in place; the chunked renderer sets
	// it through SetSFXLoudness after its analysis pass.
	sfxLoudnessDB float64
	sfxMeasured   bool
}

// End returns the timeline frame one past the clip's last sample.
func (p *ClipPlan) End() int64 {
	return p.Start + p.Frames
}

// Name identifies the clip in logs.
func (p *ClipPlan) Name() string {
	return fmt.Sprintf("%s/%s", p.Track.ID, p.Clip.Name())
}

// SetSFXLoudness records a semantic loudness correction measured
// elsewhere.
func (p *ClipPlan) SetSFXLoudness(gainDB float64) {
	p.sfxLoudnessDB = gainDB
	p.sfxMeasured = true
}

// TrackPlan is one track's clips in processing order plus its role
// loudness target.
type TrackPlan struct {
	Track      *timeline.Track
	Clips      []*ClipPlan
	TargetLUFS float64
	HasTarget  bool // false for sfx, whose loudness is set per clip

	// GainDB is the role loudness correction once known. The chunked
	// renderer fills it from its analysis pass.
	GainDB float64
}

// Job is a planned render.
type Job struct {
	Timeline *timeline.Timeline
	Ranges   timeline.RoleRanges
	Tracks   []*TrackPlan // sorted by track ID
	Frames   int64        // project length
	Format   audio.Format
	Mains    mains.Resolution
	Warnings []string
}

// Plan resolves every clip of a prepared timeline against the render
// configuration. Unknown presets and unusable clips become warnings; a
// source that cannot be probed is a FILE error.
func Plan(rc *Context, prep *timeline.Prepared, probe MetadataFunc) (*Job, error) {
	cfg := rc.Config
	f := cfg.Format
	tl := prep.Timeline

	job := &Job{
		Timeline: tl,
		Ranges:   prep.Ranges,
		Frames:   audio.FramesFor(tl.Duration(), f.SampleRate),
		Format:   f,
	}

	res, err := mains.Resolve(string(cfg.Mains))
	if err != nil {
		job.warn(rc, fmt.Sprintf("mains: %v, dehum disabled", err))
		res = mains.Resolution{Source: mains.Off}
	}
	job.Mains = res

	if cfg.IgnoresRolling() {
		job.warn(rc, "streaming: normalize measures the whole mix first, rolling estimator not used")
	}

	tracks := make([]*timeline.Track, len(tl.Tracks))
	copy(tracks, tl.Tracks)
	sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].ID < tracks[j].ID })

	for _, tr := range tracks {
		tp := &TrackPlan{Track: tr}
		if target, ok := dsp.RoleLoudnessTargets[tr.Role]; ok && tr.Role != timeline.RoleSFX {
			tp.TargetLUFS, tp.HasTarget = target, true
		}
		for i, c := range tr.Clips {
			cp, err := planClip(rc, job, tr, c, i, probe)
			if err != nil {
				return nil, err
			}
			if cp != nil {
				tp.Clips = append(tp.Clips, cp)
			}
		}
		job.Tracks = append(job.Tracks, tp)
	}
	return job, nil
}

func planClip(rc *Context, job *Job, tr *timeline.Track, c *timeline.Clip, index int, probe MetadataFunc) (*ClipPlan, error) {
	rate := job.Format.SampleRate
	tl := job.Timeline

	if c.Start == nil || c.File == "" {
		return nil, nil
	}
	meta, err := probe(c.File)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFile, "audio file not found: %s", c.File)
	}

	p := &ClipPlan{
		Track:        tr,
		Clip:         c,
		Start:        audio.FramesFor(c.StartSec(), rate),
		SourceFrames: audio.FramesAt(meta, rate),
		GainDB:       tr.Gain + c.GainDB(),
	}
	if p.SourceFrames <= 0 {
		job.warn(rc, fmt.Sprintf("clip %s/%s has no audio, skipped", tr.ID, c.Name()))
		return nil, nil
	}
	p.Frames = p.SourceFrames
	if c.Loop && c.LoopUntil != nil {
		p.Looping = true
		p.Frames = max(0, audio.FramesFor(*c.LoopUntil, rate)-p.Start)
	}
	if p.Frames == 0 {
		return nil, nil
	}

	settings := tl.Settings
	energy := timeline.DefaultSceneEnergy
	var (
		prevEnergy *float64
		rampMs     = dsp.DefaultEnergyRampMs
		density    string
	)
	if r := c.Rules; r != nil {
		settings = r.Settings
		energy = r.SceneEnergy
		prevEnergy = r.PrevSceneEnergy
		rampMs = r.EnergyRampDuration
		density = r.DialogueDensityLabel
	}

	// EQ: clip preset, then track preset, then the role default
	if tr.Role == timeline.RoleSFX {
		p.SemanticRole = tr.ClipSemanticRole(c)
	}
	name := c.EQPreset
	if name == "" {
		name = tr.EQPreset
	}
	if name == "" {
		name = dsp.PresetForRole(tr.Role, p.SemanticRole)
	}
	if name != "" {
		resolved, err := dsp.ResolvePreset(name)
		if err != nil {
			job.warn(rc, fmt.Sprintf("clip %s/%s: %v, EQ skipped", tr.ID, c.Name(), err))
		} else {
			preset, _ := dsp.LookupPreset(resolved)
			p.Preset = resolved
			p.Sections = preset.Sections(rate)
		}
	}
	if tr.Dehum && job.Mains.Hz > 0 {
		p.Sections = append(p.Sections, dsp.DehumSections(float64(job.Mains.Hz), rate)...)
	}
	p.Key = StateKey{Track: tr.ID, Clip: index, Start: p.Start, Preset: p.Preset}

	var sfxFades dsp.SFXFades
	var hasSFXFades bool
	if p.SemanticRole != "" {
		p.SFXTarget, p.HasSFXTarget = dsp.SFXLoudnessTarget(p.SemanticRole)
		if rng, ok := dsp.SceneEnergyGainRange(p.SemanticRole, c.Rules.SFXGainOverride()); ok {
			p.SFXEnergyDB = dsp.SceneEnergyGainDB(energy, rng)
		}
		sfxFades, hasSFXFades = dsp.SFXFadeDefaults(p.SemanticRole)
	}

	if tr.Role == timeline.RoleMusic || tr.Role == timeline.RoleBackground {
		ramp := dsp.NewEnergyRamp(energy, prevEnergy, rampMs, rate, 0, p.SourceFrames)
		p.Ramp = &ramp
		p.DensityTrimDB = dsp.DensityTrimDB(density)
	}

	planDucking(p, tr, c, settings.Ducking, job.Ranges, rate)

	if tr.Role == timeline.RoleVoice && settings.DialogueCompression.Enabled {
		params := settings.DialogueCompression.Params()
		p.Compressor = &params
	}

	// Explicit fades win over the semantic defaults
	if c.FadeIn != nil {
		p.FadeIn = dsp.FadeIn(p.Start, min(audio.FramesFor(c.FadeIn.Duration, rate), p.Frames), c.FadeIn.CurveOrLinear())
	} else if hasSFXFades && sfxFades.InMs > 0 {
		p.FadeIn = dsp.FadeIn(p.Start, min(audio.FramesFor(sfxFades.InMs/1000, rate), p.Frames), sfxFades.InCurve)
	}
	end := min(p.End(), job.Frames)
	if c.FadeOut != nil {
		p.FadeOut = dsp.FadeOut(end, min(audio.FramesFor(c.FadeOut.Duration, rate), end-p.Start), c.FadeOut.CurveOrLinear())
	} else if hasSFXFades && sfxFades.OutMs > 0 {
		p.FadeOut = dsp.FadeOut(end, min(audio.FramesFor(sfxFades.OutMs/1000, rate), end-p.Start), sfxFades.OutCurve)
	}

	return p, nil
}

// planDucking picks the first rule whose duck list selects this clip and
// whose trigger role has ranges.
func planDucking(p *ClipPlan, tr *timeline.Track, c *timeline.Clip, d timeline.DuckingSettings, ranges timeline.RoleRanges, rate int) {
	if !d.Enabled {
		return
	}
	for _, rule := range d.Rules {
		if !matchesAny(tr, c, rule.Duck) {
			continue
		}
		trigger, ok := ranges.Lookup(rule.When)
		if !ok {
			continue
		}
		if !d.EnvelopeMode() {
			p.DuckFlatDB = d.DuckAmount
			return
		}
		env := dsp.NewDuckEnvelope(trigger, d.Params(), rate)
		if !env.Empty() {
			p.Duck = env
			return
		}
	}
}

func matchesAny(tr *timeline.Track, c *timeline.Clip, patterns []string) bool {
	for _, pat := range patterns {
		if tr.MatchesRole(pat, c) {
			return true
		}
	}
	return false
}

func (j *Job) warn(rc *Context, msg string) {
	j.Warnings = append(j.Warnings, msg)
	rc.Logger.Warn(msg)
}
