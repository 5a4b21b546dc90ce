// Package dsp holds the signal-processing primitives used by the renderers:
// fade curves, biquad filters, EQ presets, loudness measurement, compression,
// ducking envelopes, and the scene-energy gain laws.
//
// Every primitive operates on planar float64 audio.Buffers. Gain functions
// that depend on time (fades, ramps, ducking) are evaluated at absolute frame
// positions, so applying them to a whole clip or to any slice of it gives the
// same samples.
package dsp

import (
	"math"
	"strings"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// Curve is the shape of a fade.
type Curve string

const (
	// CurveLinear ramps gain in proportion to progress.
	CurveLinear Curve = "linear"
	// CurveLogarithmic starts slow and accelerates.
	CurveLogarithmic Curve = "logarithmic"
	// CurveExponential starts fast and decelerates.
	CurveExponential Curve = "exponential"
)

// ParseCurve maps a curve name to a Curve. Empty or unknown names are linear.
func ParseCurve(s string) Curve {
	switch Curve(strings.ToLower(strings.TrimSpace(s))) {
	case CurveLogarithmic:
		return CurveLogarithmic
	case CurveExponential:
		return CurveExponential
	default:
		return CurveLinear
	}
}

// shape maps progress in [0,1] to a fade-in gain in [0,1].
func (c Curve) shape(p float64) float64 {
	var g float64
	switch c {
	case CurveLogarithmic:
		g = math.Log10(1 + 9*p)
	case CurveExponential:
		g = (math.Pow(10, p) - 1) / 9
	default:
		g = p
	}
	return math.Max(0, math.Min(1, g))
}

// FadeGain returns the gain at index i of an n-sample fade. Progress is
// linearly spaced over [0,1] inclusive. A fade-out is the time reverse of
// the matching fade-in.
func FadeGain(c Curve, n, i int64, fadeIn bool) float64 {
	if n <= 1 {
		return c.shape(0)
	}
	if !fadeIn {
		i = n - 1 - i
	}
	return c.shape(float64(i) / float64(n-1))
}

// FadeCurve returns the n gain multipliers of a fade. Fade-ins run 0 to 1,
// fade-outs 1 to 0.
func FadeCurve(c Curve, n int, fadeIn bool) []float64 {
	if n <= 0 {
		return nil
	}
	gains := make([]float64, n)
	for i := range gains {
		gains[i] = FadeGain(c, int64(n), int64(i), fadeIn)
	}
	return gains
}

// Fade is a gain ramp over an absolute frame span [Start, Start+Frames).
// Frames outside the span pass at unity.
type Fade struct {
	Start  int64
	Frames int64
	Curve  Curve
	In     bool
}

// Active reports whether the fade does anything.
func (f Fade) Active() bool {
	return f.Frames > 0
}

// GainAt returns the fade gain at absolute frame pos.
func (f Fade) GainAt(pos int64) float64 {
	if pos < f.Start || pos >= f.Start+f.Frames {
		return 1
	}
	return FadeGain(f.Curve, f.Frames, pos-f.Start, f.In)
}

// Apply scales b, whose first frame sits at absolute frame offset.
func (f Fade) Apply(b *audio.Buffer, offset int64) {
	if !f.Active() {
		return
	}
	n := int64(b.Frames())
	lo := max(f.Start, offset)
	hi := min(f.Start+f.Frames, offset+n)
	for pos := lo; pos < hi; pos++ {
		g := FadeGain(f.Curve, f.Frames, pos-f.Start, f.In)
		i := pos - offset
		for ch := range b.Data {
			b.Data[ch][i] *= g
		}
	}
}

// FadeIn builds a fade-in of frames length starting at start.
func FadeIn(start, frames int64, c Curve) Fade {
	return Fade{Start: start, Frames: max(0, frames), Curve: c, In: true}
}

// FadeOut builds a fade-out that finishes exactly at end.
func FadeOut(end, frames int64, c Curve) Fade {
	frames = max(0, frames)
	return Fade{Start: end - frames, Frames: frames, Curve: c}
}
