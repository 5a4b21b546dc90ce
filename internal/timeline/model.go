// Package timeline loads, expands, and checks timeline documents: the typed
// model, settings defaults and validation, scene expansion, overlap
// auto-fix, role ranges, and the resolved RenderConfig.
package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/linuxmatters/jivemix/internal/dsp"
)

// Mix roles.
const (
	RoleVoice      = "voice"
	RoleMusic      = "music"
	RoleBackground = "background"
	RoleSFX        = "sfx"
)

// Timeline is a parsed timeline document.
type Timeline struct {
	Project  *Project `json:"project" validate:"required"`
	Tracks   []*Track `json:"tracks" validate:"dive"`
	Scenes   []*Scene `json:"scenes,omitempty" validate:"dive"`
	Settings Settings `json:"settings"`

	// rawSettings is the settings block as authored, kept for merging
	// scene rules key by key.
	rawSettings map[string]any
	expanded    bool
}

// Project holds document-level metadata.
type Project struct {
	Name     string  `json:"name,omitempty"`
	Duration float64 `json:"duration" validate:"gt=0"`
}

// Track is one mix bus.
type Track struct {
	ID           string  `json:"id" validate:"required"`
	Role         string  `json:"role" validate:"oneof=voice music background sfx"`
	SemanticRole string  `json:"semantic_role,omitempty"`
	Gain         float64 `json:"gain,omitempty"`
	EQPreset     string  `json:"eq_preset,omitempty"`
	Dehum        bool    `json:"dehum,omitempty"`
	Clips        []*Clip `json:"clips" validate:"dive"`
}

// Clip places a source file on a track.
type Clip struct {
	ID           string    `json:"id,omitempty"`
	File         string    `json:"file" validate:"required"`
	Start        *float64  `json:"start,omitempty" validate:"omitempty,gte=0"`
	Offset       float64   `json:"offset,omitempty" validate:"gte=0"`
	Gain         *float64  `json:"gain,omitempty"`
	Loop         bool      `json:"loop,omitempty"`
	LoopUntil    *float64  `json:"loop_until,omitempty"`
	FadeIn       *FadeSpec `json:"fade_in,omitempty"`
	FadeOut      *FadeSpec `json:"fade_out,omitempty"`
	EQPreset     string    `json:"eq_preset,omitempty"`
	SemanticRole string    `json:"semantic_role,omitempty"`

	// Rules are attached by scene expansion; authored clips have none.
	Rules *Rules `json:"_rules,omitempty"`

	// crossfadeLead is how far a crossfade pulled the clip over its
	// predecessor.
	crossfadeLead float64
}

// Scene groups clips under shared rules and an energy level. Clip offsets
// are relative to the scene start.
type Scene struct {
	ID       string             `json:"id,omitempty"`
	Start    float64            `json:"start" validate:"gte=0"`
	Duration float64            `json:"duration" validate:"gt=0"`
	Energy   *float64           `json:"energy,omitempty" validate:"omitempty,gte=0,lte=1"`
	Tracks   map[string][]*Clip `json:"tracks"`
	Rules    map[string]any     `json:"rules,omitempty"`
}

// End returns the scene end time.
func (s *Scene) End() float64 {
	return s.Start + s.Duration
}

// EnergyOrDefault returns the scene energy, 0.5 when unset.
func (s *Scene) EnergyOrDefault() float64 {
	if s.Energy == nil {
		return DefaultSceneEnergy
	}
	return *s.Energy
}

// StartSec returns the clip start, 0 when unplaced.
func (c *Clip) StartSec() float64 {
	if c.Start == nil {
		return 0
	}
	return *c.Start
}

// SetStart places the clip.
func (c *Clip) SetStart(v float64) {
	c.Start = &v
}

// GainDB returns the clip gain override, 0 when unset.
func (c *Clip) GainDB() float64 {
	if c.Gain == nil {
		return 0
	}
	return *c.Gain
}

// End returns the clip's end on the timeline given its source duration.
// Looping clips end at LoopUntil.
func (c *Clip) End(sourceDuration float64) float64 {
	if c.Loop && c.LoopUntil != nil {
		return *c.LoopUntil
	}
	return c.StartSec() + sourceDuration
}

// Name returns the clip ID, or its file when it has none.
func (c *Clip) Name() string {
	if c.ID != "" {
		return c.ID
	}
	return c.File
}

// Clone returns a deep copy of the clip.
func (c *Clip) Clone() *Clip {
	n := *c
	if c.Start != nil {
		n.SetStart(*c.Start)
	}
	if c.Gain != nil {
		g := *c.Gain
		n.Gain = &g
	}
	if c.LoopUntil != nil {
		l := *c.LoopUntil
		n.LoopUntil = &l
	}
	if c.FadeIn != nil {
		f := *c.FadeIn
		n.FadeIn = &f
	}
	if c.FadeOut != nil {
		f := *c.FadeOut
		n.FadeOut = &f
	}
	if c.Rules != nil {
		r := *c.Rules
		n.Rules = &r
	}
	return &n
}

// FadeSpec is a fade length in seconds plus a curve. Documents may write a
// bare number of seconds (linear) or {duration, curve}.
type FadeSpec struct {
	Duration float64   `json:"duration"`
	Curve    dsp.Curve `json:"curve,omitempty"`
}

// UnmarshalJSON accepts a number or an object.
func (f *FadeSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var secs float64
		if err := json.Unmarshal(data, &secs); err != nil {
			return fmt.Errorf("fade must be seconds or {duration, curve}: %w", err)
		}
		*f = FadeSpec{Duration: secs, Curve: dsp.CurveLinear}
		return nil
	}
	var obj struct {
		Duration float64 `json:"duration"`
		Curve    string  `json:"curve"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*f = FadeSpec{Duration: obj.Duration, Curve: dsp.ParseCurve(obj.Curve)}
	return nil
}

// CurveOrLinear returns the fade curve, linear when unset.
func (f FadeSpec) CurveOrLinear() dsp.Curve {
	if f.Curve == "" {
		return dsp.CurveLinear
	}
	return f.Curve
}

// Track returns the track with id, or nil.
func (t *Timeline) Track(id string) *Track {
	for _, tr := range t.Tracks {
		if tr.ID == id {
			return tr
		}
	}
	return nil
}

// Duration returns the project duration in seconds.
func (t *Timeline) Duration() float64 {
	if t.Project == nil {
		return 0
	}
	return t.Project.Duration
}

// Authored reports whether the document's settings block sets the key at
// path, e.g. Authored("streaming", "max_workers").
func (t *Timeline) Authored(path ...string) bool {
	var node any = t.rawSettings
	for _, key := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return false
		}
		if node, ok = m[key]; !ok {
			return false
		}
	}
	return len(path) > 0
}

// ClipSemanticRole returns the clip's semantic role, falling back to the
// track's.
func (tr *Track) ClipSemanticRole(c *Clip) string {
	if c.SemanticRole != "" {
		return c.SemanticRole
	}
	return tr.SemanticRole
}

// RoleKey returns the ducking role key of a clip: the mix role, or
// sfx:<semantic> for SFX clips with a semantic role.
func (tr *Track) RoleKey(c *Clip) string {
	if tr.Role == RoleSFX {
		if sr := tr.ClipSemanticRole(c); sr != "" {
			return RoleSFX + ":" + sr
		}
	}
	return tr.Role
}

// MatchesRole reports whether a ducking role pattern (a mix role or
// sfx:<semantic>) selects clip c on this track.
func (tr *Track) MatchesRole(pattern string, c *Clip) bool {
	if pattern == tr.Role {
		return true
	}
	if sem, ok := strings.CutPrefix(pattern, RoleSFX+":"); ok && tr.Role == RoleSFX {
		return tr.ClipSemanticRole(c) == sem
	}
	return false
}
