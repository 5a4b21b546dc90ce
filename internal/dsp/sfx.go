package dsp

import (
	"fmt"
	"math"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// SemanticRoles are the recognised SFX semantic roles.
var SemanticRoles = []string{"impact", "movement", "ambience", "interaction", "texture"}

// IsSemanticRole reports whether role is a recognised SFX semantic role.
func IsSemanticRole(role string) bool {
	_, ok := sfxLoudnessTargets[role]
	return ok
}

var sfxLoudnessTargets = map[string]float64{
	"impact":      -18.0,
	"movement":    -20.0,
	"interaction": -20.0,
	"ambience":    -22.0,
	"texture":     -24.0,
}

// SFXLoudnessTarget returns the LUFS target for a semantic role.
func SFXLoudnessTarget(role string) (float64, bool) {
	t, ok := sfxLoudnessTargets[role]
	return t, ok
}

// SFXFades are the default fades for a semantic role.
type SFXFades struct {
	InMs     float64
	OutMs    float64
	InCurve  Curve
	OutCurve Curve
}

var sfxFadeDefaults = map[string]SFXFades{
	"impact":      {InMs: 0, OutMs: 75, InCurve: CurveLinear, OutCurve: CurveExponential},
	"movement":    {InMs: 150, OutMs: 150, InCurve: CurveLinear, OutCurve: CurveLinear},
	"ambience":    {InMs: 750, OutMs: 750, InCurve: CurveLogarithmic, OutCurve: CurveLogarithmic},
	"interaction": {InMs: 250, OutMs: 250, InCurve: CurveLinear, OutCurve: CurveLinear},
	"texture":     {InMs: 1500, OutMs: 1500, InCurve: CurveLogarithmic, OutCurve: CurveLogarithmic},
}

// SFXFadeDefaults returns the default fades for a semantic role.
func SFXFadeDefaults(role string) (SFXFades, bool) {
	f, ok := sfxFadeDefaults[role]
	return f, ok
}

// GainRange is a dB span mapped onto scene energy 0..1.
type GainRange struct {
	MinDB float64
	MaxDB float64
}

var sceneEnergyGainMap = map[string]GainRange{
	"impact":      {MinDB: -1.5, MaxDB: 1.5},
	"movement":    {MinDB: -1.0, MaxDB: 1.0},
	"ambience":    {MinDB: -2.0, MaxDB: 0.5},
	"interaction": {MinDB: -1.0, MaxDB: 1.0},
	"texture":     {MinDB: -2.5, MaxDB: 0.5},
}

// Scene-energy SFX gain never leaves this band.
const (
	SceneEnergyGainFloor = -6.0
	SceneEnergyGainCeil  = 3.0
)

// GainOverride replaces the default scene-energy gain range of SFX clips.
// Exactly one form is set: Symmetric (±|n| dB), a Min/Max pair where a
// missing side falls back to the default, or PerRole keyed by semantic
// role.
type GainOverride struct {
	Symmetric *float64
	Min       *float64
	Max       *float64
	PerRole   map[string]*GainOverride
}

// ParseGainOverride reads the loosely typed sfx_scene_energy_gain value as
// decoded from JSON or YAML: a number, a [min, max] pair, an object with
// min_db/min and max_db/max keys, or an object keyed by semantic role.
func ParseGainOverride(v any) (*GainOverride, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		if len(t) != 2 {
			return nil, fmt.Errorf("gain range must have two elements, got %d", len(t))
		}
		lo, ok1 := toFloat(t[0])
		hi, ok2 := toFloat(t[1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("gain range elements must be numbers")
		}
		return &GainOverride{Min: &lo, Max: &hi}, nil
	case map[string]any:
		o := &GainOverride{}
		for _, k := range []string{"min_db", "min"} {
			if raw, ok := t[k]; ok && o.Min == nil {
				f, ok := toFloat(raw)
				if !ok {
					return nil, fmt.Errorf("%s must be a number", k)
				}
				o.Min = &f
			}
		}
		for _, k := range []string{"max_db", "max"} {
			if raw, ok := t[k]; ok && o.Max == nil {
				f, ok := toFloat(raw)
				if !ok {
					return nil, fmt.Errorf("%s must be a number", k)
				}
				o.Max = &f
			}
		}
		for _, role := range SemanticRoles {
			raw, ok := t[role]
			if !ok {
				continue
			}
			sub, err := ParseGainOverride(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", role, err)
			}
			if o.PerRole == nil {
				o.PerRole = make(map[string]*GainOverride)
			}
			o.PerRole[role] = sub
		}
		return o, nil
	default:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("unsupported gain override %T", v)
		}
		return &GainOverride{Symmetric: &f}, nil
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// SceneEnergyGainRange resolves the gain range for role, applying any
// override. ok is false for roles without a range.
func SceneEnergyGainRange(role string, o *GainOverride) (GainRange, bool) {
	def, ok := sceneEnergyGainMap[role]
	if !ok {
		return GainRange{}, false
	}
	if o == nil {
		return def, true
	}
	if sub, ok := o.PerRole[role]; ok && sub != nil {
		o = sub
	}
	if o.Symmetric != nil {
		m := math.Abs(*o.Symmetric)
		return GainRange{MinDB: -m, MaxDB: m}, true
	}
	if o.Min != nil || o.Max != nil {
		r := def
		if o.Min != nil {
			r.MinDB = *o.Min
		}
		if o.Max != nil {
			r.MaxDB = *o.Max
		}
		return r, true
	}
	return def, true
}

// SceneEnergyGainDB maps scene energy 0..1 across r, clamped to the global
// scene-energy band.
func SceneEnergyGainDB(energy float64, r GainRange) float64 {
	norm := clamp(energy, 0, 1)*2 - 1
	g := r.MinDB + (norm+1)*0.5*(r.MaxDB-r.MinDB)
	return clamp(g, SceneEnergyGainFloor, SceneEnergyGainCeil)
}

// ApplySFXTiming is the micro-timing stage for SFX. It currently leaves
// audio untouched; timeline positions are never shifted here.
func ApplySFXTiming(b *audio.Buffer, role string) *audio.Buffer {
	return b
}
