package dsp

import (
	"math"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// Loudness correction limits.
const (
	MaxBoostDB = 6.0
	MaxCutDB   = 10.0
)

// BS.1770 gating constants.
const (
	blockSeconds   = 0.4
	blockStep      = 0.25 // fraction of a block between block starts
	absoluteGate   = -70.0
	relativeGate   = -10.0
	loudnessOffset = -0.691
)

// RoleLoudnessTargets are the integrated loudness targets per mix role.
var RoleLoudnessTargets = map[string]float64{
	"voice":      -18.0,
	"music":      -28.0,
	"background": -30.0,
	"sfx":        -20.0,
}

// channelWeight returns the BS.1770 weighting for channel index ch.
func channelWeight(ch int) float64 {
	if ch == 3 || ch == 4 {
		return 1.41 // surrounds
	}
	return 1.0
}

// kWeighting returns the two K-weighting pre-filter stages at sampleRate:
// a high shelf at 1500 Hz (+4 dB, Q 1/sqrt(2)) and a high-pass at 38 Hz
// (Q 0.5).
func kWeighting(sampleRate int) [2]Coefficients {
	fs := float64(sampleRate)

	a := math.Pow(10, 4.0/40)
	w0 := 2 * math.Pi * 1500 / fs
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 / math.Sqrt2)
	sq := 2 * math.Sqrt(a) * alpha
	shelf := normalise(
		a*((a+1)+(a-1)*cosw+sq),
		-2*a*((a-1)+(a+1)*cosw),
		a*((a+1)+(a-1)*cosw-sq),
		(a+1)-(a-1)*cosw+sq,
		2*((a-1)-(a+1)*cosw),
		(a+1)-(a-1)*cosw-sq,
	)

	w0 = 2 * math.Pi * 38 / fs
	cosw = math.Cos(w0)
	alpha = math.Sin(w0) / (2 * 0.5)
	hp := normalise(
		(1+cosw)/2, -(1 + cosw), (1+cosw)/2,
		1+alpha, -2*cosw, 1-alpha,
	)
	return [2]Coefficients{shelf, hp}
}

// Meter measures integrated loudness (ITU-R BS.1770) incrementally. Audio
// is fed in order through Write; K-weighting state carries across calls and
// the mean-square energy is accumulated per 100 ms hop, so feeding a signal
// in chunks gives the same result as measuring it whole.
type Meter struct {
	sampleRate int
	channels   int
	kw         [2]Coefficients
	state      [][4]float64 // per channel: shelf z1,z2 then high-pass z1,z2
	hops       [][]float64  // per channel: sum of squares per hop
	pos        int64
	hop        int
	hopEnd     int64
}

// NewMeter returns a meter for audio at sampleRate with the given channels.
func NewMeter(sampleRate, channels int) *Meter {
	m := &Meter{sampleRate: sampleRate, channels: channels, kw: kWeighting(sampleRate)}
	m.Reset()
	return m
}

// Reset discards everything measured so far.
func (m *Meter) Reset() {
	m.state = make([][4]float64, m.channels)
	m.hops = make([][]float64, m.channels)
	m.pos = 0
	m.hop = 0
	m.hopEnd = m.hopBoundary(1)
}

// hopBoundary is the first sample of hop k.
func (m *Meter) hopBoundary(k int) int64 {
	return int64(blockSeconds * (float64(k) * blockStep) * float64(m.sampleRate))
}

// Samples returns how many frames have been measured.
func (m *Meter) Samples() int64 {
	return m.pos
}

// Write feeds b into the meter. Extra channels beyond the meter's channel
// count are ignored; missing ones count as silence.
func (m *Meter) Write(b *audio.Buffer) {
	n := b.Frames()
	chans := min(m.channels, b.Channels())
	for i := 0; i < n; i++ {
		for m.pos >= m.hopEnd {
			m.hop++
			m.hopEnd = m.hopBoundary(m.hop + 1)
		}
		for ch := 0; ch < m.channels; ch++ {
			for len(m.hops[ch]) <= m.hop {
				m.hops[ch] = append(m.hops[ch], 0)
			}
			var x float64
			if ch < chans {
				x = b.Data[ch][i]
			}
			st := &m.state[ch]
			y := m.kw[0].B0*x + st[0]
			st[0] = m.kw[0].B1*x - m.kw[0].A1*y + st[1]
			st[1] = m.kw[0].B2*x - m.kw[0].A2*y
			z := m.kw[1].B0*y + st[2]
			st[2] = m.kw[1].B1*y - m.kw[1].A1*z + st[3]
			st[3] = m.kw[1].B2*y - m.kw[1].A2*z
			m.hops[ch][m.hop] += z * z
		}
		m.pos++
	}
}

// Integrated returns the gated integrated loudness in LUFS, or -Inf when
// less than one block has been measured or every block is gated out.
func (m *Meter) Integrated() float64 {
	if m.sampleRate <= 0 || m.channels == 0 {
		return math.Inf(-1)
	}
	duration := float64(m.pos) / float64(m.sampleRate)
	if duration < blockSeconds {
		return math.Inf(-1)
	}
	numBlocks := int(math.RoundToEven((duration-blockSeconds)/(blockSeconds*blockStep))) + 1
	hopsPerBlock := int(math.Round(1 / blockStep))
	norm := 1 / (blockSeconds * float64(m.sampleRate))

	// z[ch][j] is the mean square of block j on channel ch
	z := make([][]float64, m.channels)
	for ch := range z {
		z[ch] = make([]float64, numBlocks)
		for j := 0; j < numBlocks; j++ {
			var sum float64
			for k := j; k < j+hopsPerBlock && k < len(m.hops[ch]); k++ {
				sum += m.hops[ch][k]
			}
			z[ch][j] = sum * norm
		}
	}

	blockLoudness := make([]float64, numBlocks)
	for j := range blockLoudness {
		var s float64
		for ch := range z {
			s += channelWeight(ch) * z[ch][j]
		}
		blockLoudness[j] = loudnessOffset + 10*math.Log10(s)
	}

	gated := func(keep func(l float64) bool) (float64, bool) {
		var s float64
		count := 0
		means := make([]float64, m.channels)
		for j, l := range blockLoudness {
			if !keep(l) {
				continue
			}
			count++
			for ch := range z {
				means[ch] += z[ch][j]
			}
		}
		if count == 0 {
			return math.Inf(-1), false
		}
		for ch, v := range means {
			s += channelWeight(ch) * v / float64(count)
		}
		return loudnessOffset + 10*math.Log10(s), true
	}

	abs, ok := gated(func(l float64) bool { return l >= absoluteGate })
	if !ok {
		return math.Inf(-1)
	}
	rel := abs + relativeGate
	lufs, ok := gated(func(l float64) bool { return l > rel && l > absoluteGate })
	if !ok {
		return math.Inf(-1)
	}
	return lufs
}

// IntegratedLoudness measures a whole buffer.
func IntegratedLoudness(b *audio.Buffer) float64 {
	m := NewMeter(b.SampleRate, b.Channels())
	m.Write(b)
	return m.Integrated()
}

// CorrectionGain returns target - measured clamped to [-MaxCutDB,
// +MaxBoostDB]. ok is false when measured is not finite (silence or too
// short to measure), in which case no gain should be applied.
func CorrectionGain(measured, target float64) (gainDB float64, ok bool) {
	if math.IsInf(measured, 0) || math.IsNaN(measured) {
		return 0, false
	}
	return clamp(target-measured, -MaxCutDB, MaxBoostDB), true
}

// ApplyLUFSTarget measures b and applies the clamped correction gain in
// place. It returns the measurement and the gain applied.
func ApplyLUFSTarget(b *audio.Buffer, target float64) (measured, gainDB float64) {
	measured = IntegratedLoudness(b)
	gainDB, ok := CorrectionGain(measured, target)
	if ok {
		b.ApplyGainDB(gainDB)
	}
	return measured, gainDB
}

// PeakDBFS returns the absolute sample peak in dBFS (-Inf for silence).
func PeakDBFS(b *audio.Buffer) float64 {
	return audio.LinearToDB(b.Peak())
}

// PeakNormalizeGain returns the gain that brings peak (linear) to
// targetDBFS. ok is false for silence.
func PeakNormalizeGain(peak, targetDBFS float64) (gainDB float64, ok bool) {
	if peak <= 0 {
		return 0, false
	}
	return targetDBFS - audio.LinearToDB(peak), true
}

// PeakNormalize scales b so its peak sits at targetDBFS. Silent input is
// left untouched.
func PeakNormalize(b *audio.Buffer, targetDBFS float64) float64 {
	gainDB, ok := PeakNormalizeGain(b.Peak(), targetDBFS)
	if ok {
		b.ApplyGainDB(gainDB)
	}
	return gainDB
}

// RollingEstimator approximates integrated loudness on the fly as the mean
// of per-chunk loudness readings. It is causal: the gain it suggests only
// reflects chunks already seen.
type RollingEstimator struct {
	target       float64
	measurements []float64
}

// NewRollingEstimator returns an estimator aiming at target LUFS.
func NewRollingEstimator(target float64) *RollingEstimator {
	return &RollingEstimator{target: target}
}

// Observe measures one chunk. Chunks too short or too quiet to measure
// are ignored.
func (e *RollingEstimator) Observe(b *audio.Buffer) {
	l := IntegratedLoudness(b)
	if math.IsInf(l, 0) || math.IsNaN(l) {
		return
	}
	e.measurements = append(e.measurements, l)
}

// Estimate returns the current loudness estimate, or -Inf before any
// measurable chunk.
func (e *RollingEstimator) Estimate() float64 {
	if len(e.measurements) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, v := range e.measurements {
		sum += v
	}
	return sum / float64(len(e.measurements))
}

// GainDB returns the clamped correction gain for the current estimate, or
// 0 before any measurement.
func (e *RollingEstimator) GainDB() float64 {
	g, _ := CorrectionGain(e.Estimate(), e.target)
	return g
}

// PeakEstimator tracks the running absolute peak across chunks.
type PeakEstimator struct {
	peak float64
}

// Observe folds b into the running peak.
func (p *PeakEstimator) Observe(b *audio.Buffer) {
	p.peak = math.Max(p.peak, b.Peak())
}

// Peak returns the largest absolute sample seen (linear).
func (p *PeakEstimator) Peak() float64 {
	return p.peak
}
