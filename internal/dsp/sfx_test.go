package dsp

import (
	"math"
	"testing"
)

func TestSceneEnergyGainDB(t *testing.T) {
	impact := GainRange{MinDB: -1.5, MaxDB: 1.5}
	tests := []struct {
		name   string
		energy float64
		r      GainRange
		want   float64
	}{
		{"low energy", 0, impact, -1.5},
		{"neutral", 0.5, impact, 0},
		{"high energy", 1, impact, 1.5},
		{"energy clamped", 3, impact, 1.5},
		{"ceiling", 1, GainRange{MinDB: 0, MaxDB: 10}, SceneEnergyGainCeil},
		{"floor", 0, GainRange{MinDB: -20, MaxDB: 0}, SceneEnergyGainFloor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SceneEnergyGainDB(tt.energy, tt.r); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("SceneEnergyGainDB = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseGainOverride(t *testing.T) {
	tests := []struct {
		name string
		in   any
		role string
		want GainRange
	}{
		{"none", nil, "impact", GainRange{-1.5, 1.5}},
		{"symmetric number", 2.0, "texture", GainRange{-2, 2}},
		{"negative number", -3, "texture", GainRange{-3, 3}},
		{"pair", []any{-4.0, 1.0}, "movement", GainRange{-4, 1}},
		{"min_db max_db", map[string]any{"min_db": -3.0, "max_db": 2.0}, "impact", GainRange{-3, 2}},
		{"partial min", map[string]any{"min": -5.0}, "ambience", GainRange{-5, 0.5}},
		{"per role", map[string]any{"impact": 1.0}, "impact", GainRange{-1, 1}},
		{"per role other role", map[string]any{"impact": 1.0}, "texture", GainRange{-2.5, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := ParseGainOverride(tt.in)
			if err != nil {
				t.Fatalf("ParseGainOverride: %v", err)
			}
			got, ok := SceneEnergyGainRange(tt.role, o)
			if !ok {
				t.Fatalf("no range for %s", tt.role)
			}
			if got != tt.want {
				t.Errorf("range = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseGainOverrideErrors(t *testing.T) {
	for _, in := range []any{"loud", []any{1.0}, []any{"a", "b"}, map[string]any{"min": "x"}} {
		if _, err := ParseGainOverride(in); err == nil {
			t.Errorf("ParseGainOverride(%v) should fail", in)
		}
	}
}

func TestSFXTables(t *testing.T) {
	for _, role := range SemanticRoles {
		if !IsSemanticRole(role) {
			t.Errorf("%s should be a semantic role", role)
		}
		if _, ok := SFXLoudnessTarget(role); !ok {
			t.Errorf("%s has no loudness target", role)
		}
		if _, ok := SFXFadeDefaults(role); !ok {
			t.Errorf("%s has no fade defaults", role)
		}
		if _, ok := SceneEnergyGainRange(role, nil); !ok {
			t.Errorf("%s has no energy gain range", role)
		}
	}
	if IsSemanticRole("explosion") {
		t.Error("explosion is not a semantic role")
	}

	f, _ := SFXFadeDefaults("impact")
	if f.InMs != 0 || f.OutMs != 75 || f.OutCurve != CurveExponential {
		t.Errorf("impact fades = %+v", f)
	}
}
