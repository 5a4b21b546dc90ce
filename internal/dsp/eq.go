package dsp

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// Primary band limits keep presets broad rather than surgical.
const (
	PrimaryBandQMin    = 0.7
	PrimaryBandQMax    = 1.2
	PrimaryBandGainMax = 3.0
	PrimaryBandFreqMin = 80.0
	PrimaryBandFreqMax = 8000.0
)

// Band is a peaking filter.
type Band struct {
	Freq float64
	Gain float64
	Q    float64
}

// Preset is a versioned EQ curve: optional high-pass and low-pass corners
// plus an optional primary band. Zero corners are disabled.
type Preset struct {
	HighPass float64
	LowPass  float64
	Primary  *Band
}

var presets = map[string]Preset{
	"dialogue_clean@v1":     {HighPass: 80, Primary: &Band{Freq: 3000, Gain: 2, Q: 1}},
	"dialogue_warm@v1":      {HighPass: 60, Primary: &Band{Freq: 200, Gain: 1, Q: 0.8}},
	"dialogue_broadcast@v1": {HighPass: 100, Primary: &Band{Freq: 3000, Gain: 3, Q: 1}},
	"music_full@v1":         {HighPass: 40},
	"music_bed@v1":          {HighPass: 80, LowPass: 12000, Primary: &Band{Freq: 2500, Gain: -2, Q: 0.8}},
	"background_soft@v1":    {HighPass: 100, LowPass: 8000},
	"background_distant@v1": {HighPass: 150, LowPass: 6000, Primary: &Band{Freq: 1000, Gain: -2, Q: 0.7}},
	"sfx_punch@v1":          {HighPass: 60, Primary: &Band{Freq: 100, Gain: 2, Q: 0.8}},
	"sfx_subtle@v1":         {HighPass: 80, LowPass: 10000},
	"flat@v1":               {},
}

// presetAliases point author-facing names at the current preset version.
var presetAliases = map[string]string{
	"dialogue_clean":     "dialogue_clean@v1",
	"dialogue_warm":      "dialogue_warm@v1",
	"dialogue_broadcast": "dialogue_broadcast@v1",
	"music_full":         "music_full@v1",
	"music_bed":          "music_bed@v1",
	"background_soft":    "background_soft@v1",
	"background_distant": "background_distant@v1",
	"sfx_punch":          "sfx_punch@v1",
	"sfx_subtle":         "sfx_subtle@v1",
	"flat":               "flat@v1",
}

var roleDefaultPresets = map[string]string{
	"voice":      "dialogue_clean",
	"music":      "music_bed",
	"background": "background_soft",
}

// interaction has no default; those sounds vary too much.
var semanticRolePresets = map[string]string{
	"impact":   "sfx_punch",
	"movement": "sfx_subtle",
	"ambience": "background_soft",
	"texture":  "background_distant",
}

// ResolvePreset maps an alias or versioned name to its versioned name.
func ResolvePreset(name string) (string, error) {
	if strings.Contains(name, "@") {
		if _, ok := presets[name]; ok {
			return name, nil
		}
		return "", fmt.Errorf("unknown versioned preset: %s", name)
	}
	if v, ok := presetAliases[name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("unknown preset: %s", name)
}

// LookupPreset returns the preset for an alias or versioned name.
func LookupPreset(name string) (Preset, error) {
	v, err := ResolvePreset(name)
	if err != nil {
		return Preset{}, err
	}
	return presets[v], nil
}

// PresetNames lists the author-facing preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presetAliases))
	for n := range presetAliases {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PresetForRole returns the default preset for a mix role, preferring the
// SFX semantic-role default when one exists. Empty means no default.
func PresetForRole(role, semanticRole string) string {
	if role == "sfx" && semanticRole != "" {
		if p, ok := semanticRolePresets[semanticRole]; ok {
			return p
		}
	}
	return roleDefaultPresets[role]
}

// Section is one filter stage, designed twice: Causal for a single forward
// pass and ZeroPhase for forward-backward filtering. Bell and shelf stages
// use half the gain per zero-phase pass so both variants reach the same
// gain at the corner; Butterworth stages use the same design for both.
type Section struct {
	Name      string
	Causal    Coefficients
	ZeroPhase Coefficients
}

// Sections designs the preset's filter stages at sampleRate. Stages whose
// frequency falls at or above Nyquist are left out.
func (p Preset) Sections(sampleRate int) []Section {
	var out []Section
	if p.HighPass > 0 {
		if c, ok := HighPass(p.HighPass, sampleRate); ok {
			out = append(out, Section{Name: fmt.Sprintf("hp%.0f", p.HighPass), Causal: c, ZeroPhase: c})
		}
	}
	if p.LowPass > 0 {
		if c, ok := LowPass(p.LowPass, sampleRate); ok {
			out = append(out, Section{Name: fmt.Sprintf("lp%.0f", p.LowPass), Causal: c, ZeroPhase: c})
		}
	}
	if p.Primary != nil {
		if s, ok := primarySection(*p.Primary, sampleRate); ok {
			out = append(out, s)
		}
	}
	return out
}

func primarySection(b Band, sampleRate int) (Section, bool) {
	q := clamp(b.Q, PrimaryBandQMin, PrimaryBandQMax)
	gain := clamp(b.Gain, -PrimaryBandGainMax, PrimaryBandGainMax)
	freq := clamp(b.Freq, PrimaryBandFreqMin, PrimaryBandFreqMax)
	if math.Abs(gain) < 0.1 {
		return Section{}, false
	}
	causal, ok := Peaking(freq, gain, q, sampleRate)
	if !ok {
		return Section{}, false
	}
	zp, _ := Peaking(freq, gain/2, q, sampleRate)
	return Section{Name: fmt.Sprintf("bell%.0f", freq), Causal: causal, ZeroPhase: zp}, true
}

func shelfSection(freq, gain float64, high bool, sampleRate int) (Section, bool) {
	if math.Abs(gain) < 0.1 {
		return Section{}, false
	}
	design, name := LowShelf, "ls"
	if high {
		design, name = HighShelf, "hs"
	}
	causal, ok := design(freq, gain, sampleRate)
	if !ok {
		return Section{}, false
	}
	zp, _ := design(freq, gain/2, sampleRate)
	return Section{Name: fmt.Sprintf("%s%.0f", name, freq), Causal: causal, ZeroPhase: zp}, true
}

// ApplyZeroPhase runs each section forward and backward over b in place.
func ApplyZeroPhase(b *audio.Buffer, sections []Section) {
	for _, s := range sections {
		FiltFilt(s.ZeroPhase, b)
	}
}

// Chain is a cascade of stateful causal sections for chunked processing.
type Chain struct {
	filters []*Biquad
}

// NewChain builds a chain at rest from the sections' causal designs.
func NewChain(sections []Section) *Chain {
	c := &Chain{filters: make([]*Biquad, len(sections))}
	for i, s := range sections {
		c.filters[i] = NewBiquad(s.Causal)
	}
	return c
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	return len(c.filters)
}

// Process filters b in place, carrying state to the next call.
func (c *Chain) Process(b *audio.Buffer) {
	for _, f := range c.filters {
		f.Process(b)
	}
}

// Reset returns every stage to rest.
func (c *Chain) Reset() {
	for _, f := range c.filters {
		f.Reset()
	}
}

// Tonal is scene-level tonal shaping of the mix. Only broad moves are
// allowed: a tilt preset plus fixed-corner shelves.
type Tonal struct {
	Tilt      string
	HighShelf float64 // dB at 4 kHz
	LowShelf  float64 // dB at 200 Hz
}

type tilt struct {
	lowFreq, lowGain   float64
	highFreq, highGain float64
}

var tiltPresets = map[string]tilt{
	"warm":    {lowFreq: 200, lowGain: 1.5, highFreq: 4000, highGain: -1.5},
	"neutral": {},
	"bright":  {lowFreq: 200, lowGain: -1, highFreq: 4000, highGain: 2},
}

// IsZero reports whether t changes nothing.
func (t Tonal) IsZero() bool {
	return t.Tilt == "" && t.HighShelf == 0 && t.LowShelf == 0
}

// Sections designs the tonal stages. An unknown tilt is returned as an
// error alongside the remaining shelf stages so callers can warn and carry
// on.
func (t Tonal) Sections(sampleRate int) ([]Section, error) {
	var (
		out []Section
		err error
	)
	if t.Tilt != "" {
		tp, ok := tiltPresets[t.Tilt]
		if !ok {
			err = fmt.Errorf("unknown tilt preset %q (valid: warm, neutral, bright)", t.Tilt)
		} else {
			if s, ok := shelfSection(tp.lowFreq, tp.lowGain, false, sampleRate); ok {
				out = append(out, s)
			}
			if s, ok := shelfSection(tp.highFreq, tp.highGain, true, sampleRate); ok {
				out = append(out, s)
			}
		}
	}
	if s, ok := shelfSection(4000, t.HighShelf, true, sampleRate); ok {
		out = append(out, s)
	}
	if s, ok := shelfSection(200, t.LowShelf, false, sampleRate); ok {
		out = append(out, s)
	}
	return out, err
}

// DehumQ is the notch quality for mains hum removal.
const DehumQ = 10.0

// DehumSections designs notches at the mains fundamental and its 2nd and
// 3rd harmonics. Harmonics at or above Nyquist are left out.
func DehumSections(fundamental float64, sampleRate int) []Section {
	if fundamental <= 0 {
		return nil
	}
	var out []Section
	for h := 1; h <= 3; h++ {
		f := fundamental * float64(h)
		c, ok := Notch(f, DehumQ, sampleRate)
		if !ok {
			continue
		}
		out = append(out, Section{Name: fmt.Sprintf("notch%.0f", f), Causal: c, ZeroPhase: c})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
