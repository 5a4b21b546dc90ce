package dsp

import (
	"math"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// Coefficients of a normalised second-order section (a0 == 1).
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// HighPass designs a 2nd-order Butterworth high-pass. ok is false when the
// cutoff is not below Nyquist.
func HighPass(cutoff float64, sampleRate int) (Coefficients, bool) {
	if cutoff <= 0 || cutoff >= float64(sampleRate)/2 {
		return Coefficients{}, false
	}
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2 // Q = 1/sqrt(2)
	return normalise(
		(1+cosw)/2, -(1 + cosw), (1+cosw)/2,
		1+alpha, -2*cosw, 1-alpha,
	), true
}

// LowPass designs a 2nd-order Butterworth low-pass. ok is false when the
// cutoff is not below Nyquist.
func LowPass(cutoff float64, sampleRate int) (Coefficients, bool) {
	if cutoff <= 0 || cutoff >= float64(sampleRate)/2 {
		return Coefficients{}, false
	}
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2
	return normalise(
		(1-cosw)/2, 1-cosw, (1-cosw)/2,
		1+alpha, -2*cosw, 1-alpha,
	), true
}

// Peaking designs a cookbook peaking (bell) filter.
func Peaking(freq, gainDB, q float64, sampleRate int) (Coefficients, bool) {
	if freq <= 0 || freq >= float64(sampleRate)/2 || q <= 0 {
		return Coefficients{}, false
	}
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	return normalise(
		1+alpha*a, -2*cosw, 1-alpha*a,
		1+alpha/a, -2*cosw, 1-alpha/a,
	), true
}

// LowShelf designs a cookbook low shelf with slope S = 1.
func LowShelf(freq, gainDB float64, sampleRate int) (Coefficients, bool) {
	return shelf(freq, gainDB, sampleRate, false)
}

// HighShelf designs a cookbook high shelf with slope S = 1.
func HighShelf(freq, gainDB float64, sampleRate int) (Coefficients, bool) {
	return shelf(freq, gainDB, sampleRate, true)
}

func shelf(freq, gainDB float64, sampleRate int, high bool) (Coefficients, bool) {
	if freq <= 0 || freq >= float64(sampleRate)/2 {
		return Coefficients{}, false
	}
	const slope = 1.0
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / 2 * math.Sqrt((a+1/a)*(1/slope-1)+2)
	sq := 2 * math.Sqrt(a) * alpha

	if high {
		return normalise(
			a*((a+1)+(a-1)*cosw+sq),
			-2*a*((a-1)+(a+1)*cosw),
			a*((a+1)+(a-1)*cosw-sq),
			(a+1)-(a-1)*cosw+sq,
			2*((a-1)-(a+1)*cosw),
			(a+1)-(a-1)*cosw-sq,
		), true
	}
	return normalise(
		a*((a+1)-(a-1)*cosw+sq),
		2*a*((a-1)-(a+1)*cosw),
		a*((a+1)-(a-1)*cosw-sq),
		(a+1)+(a-1)*cosw+sq,
		-2*((a-1)+(a+1)*cosw),
		(a+1)+(a-1)*cosw-sq,
	), true
}

// Notch designs a cookbook band-reject filter.
func Notch(freq, q float64, sampleRate int) (Coefficients, bool) {
	if freq <= 0 || freq >= float64(sampleRate)/2 || q <= 0 {
		return Coefficients{}, false
	}
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	return normalise(
		1, -2*cosw, 1,
		1+alpha, -2*cosw, 1-alpha,
	), true
}

func normalise(b0, b1, b2, a0, a1, a2 float64) Coefficients {
	return Coefficients{B0: b0 / a0, B1: b1 / a0, B2: b2 / a0, A1: a1 / a0, A2: a2 / a0}
}

// steadyState returns the transposed direct-form II state that makes the
// section's output settle immediately for a unit step input.
func (c Coefficients) steadyState() (z1, z2 float64) {
	den := 1 + c.A1 + c.A2
	if den == 0 {
		return 0, 0
	}
	g := (c.B0 + c.B1 + c.B2) / den
	return g - c.B0, c.B2 - c.A2*g
}

// filter runs the section over x in place from state (z1, z2) and returns
// the final state.
func (c Coefficients) filter(x []float64, z1, z2 float64) (float64, float64) {
	for i, in := range x {
		out := c.B0*in + z1
		z1 = c.B1*in - c.A1*out + z2
		z2 = c.B2*in - c.A2*out
		x[i] = out
	}
	return z1, z2
}

// Biquad is a causal second-order section that keeps per-channel state
// between calls, so consecutive chunks filter exactly like one long signal.
type Biquad struct {
	c      Coefficients
	z1, z2 []float64
}

// NewBiquad returns a filter starting from rest.
func NewBiquad(c Coefficients) *Biquad {
	return &Biquad{c: c}
}

// Process filters b in place.
func (f *Biquad) Process(b *audio.Buffer) {
	if len(f.z1) != b.Channels() {
		f.z1 = make([]float64, b.Channels())
		f.z2 = make([]float64, b.Channels())
	}
	for ch, samples := range b.Data {
		f.z1[ch], f.z2[ch] = f.c.filter(samples, f.z1[ch], f.z2[ch])
	}
}

// Reset returns the filter to rest.
func (f *Biquad) Reset() {
	f.z1, f.z2 = nil, nil
}

// FiltFilt applies the section forward then backward over every channel of
// b, giving zero phase and the squared magnitude response. The signal is
// extended at both ends by odd reflection and each pass starts from the
// steady state scaled to the first sample, which suppresses edge transients.
func FiltFilt(c Coefficients, b *audio.Buffer) {
	for _, samples := range b.Data {
		filtFilt(c, samples)
	}
}

// padLen is three times the section length.
const padLen = 9

func filtFilt(c Coefficients, x []float64) {
	n := len(x)
	if n == 0 {
		return
	}
	pad := min(padLen, n-1)

	ext := make([]float64, n+2*pad)
	for i := 0; i < pad; i++ {
		ext[i] = 2*x[0] - x[pad-i]
		ext[n+pad+i] = 2*x[n-1] - x[n-2-i]
	}
	copy(ext[pad:], x)

	zi1, zi2 := c.steadyState()
	x0 := ext[0]
	c.filter(ext, zi1*x0, zi2*x0)

	reverse(ext)
	y0 := ext[0]
	c.filter(ext, zi1*y0, zi2*y0)
	reverse(ext)

	copy(x, ext[pad:pad+n])
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
