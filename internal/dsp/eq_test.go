package dsp

import (
	"math"
	"testing"
)

func TestResolvePreset(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"dialogue_clean", "dialogue_clean@v1", false},
		{"music_bed@v1", "music_bed@v1", false},
		{"flat", "flat@v1", false},
		{"dialogue_clean@v9", "", true},
		{"telephone", "", true},
	}
	for _, tt := range tests {
		got, err := ResolvePreset(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ResolvePreset(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolvePreset(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPresetForRole(t *testing.T) {
	tests := []struct {
		role, semantic, want string
	}{
		{"voice", "", "dialogue_clean"},
		{"music", "", "music_bed"},
		{"background", "", "background_soft"},
		{"sfx", "", ""},
		{"sfx", "impact", "sfx_punch"},
		{"sfx", "ambience", "background_soft"},
		{"sfx", "interaction", ""},
		{"voice", "impact", "dialogue_clean"},
	}
	for _, tt := range tests {
		if got := PresetForRole(tt.role, tt.semantic); got != tt.want {
			t.Errorf("PresetForRole(%q, %q) = %q, want %q", tt.role, tt.semantic, got, tt.want)
		}
	}
}

func TestPresetSections(t *testing.T) {
	p, err := LookupPreset("music_bed")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(p.Sections(44100)); got != 3 {
		t.Errorf("music_bed sections = %d, want 3", got)
	}
	// The 12 kHz low-pass cannot exist at 22.05 kHz
	if got := len(p.Sections(22050)); got != 2 {
		t.Errorf("music_bed sections at 22.05 kHz = %d, want 2", got)
	}

	flat, _ := LookupPreset("flat")
	if got := len(flat.Sections(44100)); got != 0 {
		t.Errorf("flat sections = %d, want 0", got)
	}
}

// Both variants of a bell reach the preset gain at the centre frequency:
// the causal section once, the zero-phase section over two passes.
func TestPrimaryBandGainMatchesAcrossVariants(t *testing.T) {
	s, ok := primarySection(Band{Freq: 3000, Gain: 2, Q: 1}, 44100)
	if !ok {
		t.Fatal("primary band rejected")
	}
	causal := magnitudeDB(s.Causal, 3000, 44100)
	zero := 2 * magnitudeDB(s.ZeroPhase, 3000, 44100)
	if math.Abs(causal-2) > 0.01 || math.Abs(zero-2) > 0.01 {
		t.Errorf("centre gain causal %.3f, zero-phase %.3f; want 2", causal, zero)
	}
}

func TestPrimaryBandClamps(t *testing.T) {
	tests := []struct {
		name     string
		band     Band
		freq     float64
		wantGain float64
	}{
		{"gain clamped", Band{Freq: 1000, Gain: 12, Q: 1}, 1000, PrimaryBandGainMax},
		{"cut clamped", Band{Freq: 1000, Gain: -12, Q: 1}, 1000, -PrimaryBandGainMax},
		{"frequency clamped low", Band{Freq: 20, Gain: 2, Q: 1}, PrimaryBandFreqMin, 2},
		{"frequency clamped high", Band{Freq: 15000, Gain: 2, Q: 1}, PrimaryBandFreqMax, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := primarySection(tt.band, 44100)
			if !ok {
				t.Fatal("primary band rejected")
			}
			if got := magnitudeDB(s.Causal, tt.freq, 44100); math.Abs(got-tt.wantGain) > 0.01 {
				t.Errorf("gain at %v Hz = %.3f, want %.3f", tt.freq, got, tt.wantGain)
			}
		})
	}

	if _, ok := primarySection(Band{Freq: 1000, Gain: 0.05, Q: 1}, 44100); ok {
		t.Error("negligible gain should produce no section")
	}
}

func TestTonalSections(t *testing.T) {
	tests := []struct {
		name    string
		tonal   Tonal
		want    int
		wantErr bool
	}{
		{"warm", Tonal{Tilt: "warm"}, 2, false},
		{"neutral", Tonal{Tilt: "neutral"}, 0, false},
		{"bright plus shelf", Tonal{Tilt: "bright", HighShelf: -2}, 3, false},
		{"shelves only", Tonal{HighShelf: 1, LowShelf: -1}, 2, false},
		{"unknown tilt keeps shelves", Tonal{Tilt: "dark", LowShelf: 2}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.tonal.Sections(44100)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(s) != tt.want {
				t.Errorf("sections = %d, want %d", len(s), tt.want)
			}
		})
	}
	if !(Tonal{}).IsZero() {
		t.Error("empty tonal should be zero")
	}
}

func TestDehumSections(t *testing.T) {
	if got := len(DehumSections(50, 44100)); got != 3 {
		t.Errorf("50 Hz dehum sections = %d, want 3", got)
	}
	// 180 Hz is above Nyquist at 300 Hz sample rate
	if got := len(DehumSections(60, 300)); got != 2 {
		t.Errorf("60 Hz dehum at 300 Hz = %d sections, want 2", got)
	}
	if got := len(DehumSections(0, 44100)); got != 0 {
		t.Errorf("disabled dehum sections = %d, want 0", got)
	}
}

func TestChainMatchesSequentialBiquads(t *testing.T) {
	p, _ := LookupPreset("dialogue_clean")
	sections := p.Sections(44100)
	src := generateNoise(44100, 2, 0.5, -6, 5)

	viaChain := src.Clone()
	NewChain(sections).Process(viaChain)

	manual := src.Clone()
	for _, s := range sections {
		NewBiquad(s.Causal).Process(manual)
	}
	if d := maxAbsDiff(viaChain, manual); d != 0 {
		t.Errorf("chain differs from sequential biquads by %v", d)
	}
}
