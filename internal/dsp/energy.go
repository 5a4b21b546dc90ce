package dsp

import (
	"github.com/linuxmatters/jivemix/internal/audio"
)

// Music and background gain range driven by scene energy.
const (
	EnergyMinGainDB = -8.0
	EnergyMaxGainDB = 0.0
)

// DefaultEnergyRampMs is the transition time between scene energies.
const DefaultEnergyRampMs = 3000.0

// EnergyToMusicGain maps scene energy 0..1 onto [-8, 0] dB.
func EnergyToMusicGain(energy float64) float64 {
	return EnergyMinGainDB + (EnergyMaxGainDB-EnergyMinGainDB)*clamp(energy, 0, 1)
}

// InterpolateGain moves linearly from start to end as progress goes 0..1.
func InterpolateGain(start, end, progress float64) float64 {
	return start + (end-start)*clamp(progress, 0, 1)
}

// EnergyRamp is the scene-energy gain of a music or background clip. The
// first Frames of the clip (from Origin) interpolate in dB from StartDB to
// TargetDB; the rest holds TargetDB.
type EnergyRamp struct {
	Origin   int64
	Frames   int64
	StartDB  float64
	TargetDB float64
}

// NewEnergyRamp builds the ramp for a clip starting at absolute frame
// origin with clipFrames of audio. With no previous energy the clip sits
// flat at the target gain. The ramp never outlasts the clip.
func NewEnergyRamp(energy float64, prev *float64, rampMs float64, sampleRate int, origin, clipFrames int64) EnergyRamp {
	target := EnergyToMusicGain(energy)
	r := EnergyRamp{Origin: origin, StartDB: target, TargetDB: target}
	if prev == nil {
		return r
	}
	frames := min(audio.FramesFor(rampMs/1000, sampleRate), clipFrames)
	if frames <= 0 {
		return r
	}
	r.StartDB = EnergyToMusicGain(*prev)
	r.Frames = frames
	return r
}

// GainDBAt returns the gain in dB at absolute frame pos.
func (r EnergyRamp) GainDBAt(pos int64) float64 {
	if r.Frames <= 0 || pos >= r.Origin+r.Frames {
		return r.TargetDB
	}
	if pos <= r.Origin {
		return r.StartDB
	}
	return InterpolateGain(r.StartDB, r.TargetDB, float64(pos-r.Origin)/float64(r.Frames))
}

// Apply scales b, whose first frame sits at absolute frame offset.
func (r EnergyRamp) Apply(b *audio.Buffer, offset int64) {
	if r.Frames <= 0 || offset >= r.Origin+r.Frames {
		b.ApplyGainDB(r.TargetDB)
		return
	}
	for i := 0; i < b.Frames(); i++ {
		g := audio.DBToLinear(r.GainDBAt(offset + int64(i)))
		for ch := range b.Data {
			b.Data[ch][i] *= g
		}
	}
}

// DensityTrimDB returns the music/background trim for a dialogue-density
// label.
func DensityTrimDB(label string) float64 {
	switch label {
	case "high":
		return -6
	case "medium":
		return -3
	default:
		return 0
	}
}

// DialogueDensity returns the fraction of [start, end) covered by ranges.
// Overlapping ranges count once.
func DialogueDensity(ranges []Range, start, end float64) float64 {
	window := end - start
	if window <= 0 {
		return 0
	}
	var covered float64
	for _, r := range MergeRanges(NormalizeRanges(ranges), 0) {
		s, e := max(r.Start, start), min(r.End, end)
		if s < e {
			covered += e - s
		}
	}
	return covered / window
}

// ClassifyDialogueDensity labels a density ratio as low, medium, or high.
func ClassifyDialogueDensity(ratio float64) string {
	switch {
	case ratio < 0.25:
		return "low"
	case ratio < 0.6:
		return "medium"
	default:
		return "high"
	}
}
