package dsp

import (
	"math"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/errors"
)

// CompressorParams configures dialogue compression.
type CompressorParams struct {
	ThresholdDB  float64
	Ratio        float64
	AttackMs     float64
	ReleaseMs    float64
	MakeupGainDB float64
}

// DefaultCompressorParams returns -18 dB threshold, 4:1, 10/120 ms.
func DefaultCompressorParams() CompressorParams {
	return CompressorParams{ThresholdDB: -18, Ratio: 4, AttackMs: 10, ReleaseMs: 120}
}

func (p CompressorParams) validate() error {
	if p.Ratio < 1 || math.IsNaN(p.Ratio) {
		return errors.DSPf("compression ratio must be >= 1, got %v", p.Ratio)
	}
	if p.AttackMs <= 0 || p.ReleaseMs <= 0 {
		return errors.DSPf("compression attack and release must be > 0 (attack %v ms, release %v ms)", p.AttackMs, p.ReleaseMs)
	}
	return nil
}

// Compress applies whole-buffer dynamic range compression in place.
//
// Level is the RMS across all channels of the attack window preceding each
// frame. While the level is over threshold, attenuation climbs linearly
// towards (1 - 1/ratio) of the overshoot in dB, reaching it after the
// attack time; otherwise it falls back to zero over the release time.
// The same attenuation is applied to every channel of a frame.
func Compress(b *audio.Buffer, p CompressorParams) error {
	if err := p.validate(); err != nil {
		return err
	}
	if !b.Valid() {
		return errors.DSPf("cannot compress an invalid buffer")
	}

	rate := float64(b.SampleRate)
	threshold := audio.DBToLinear(p.ThresholdDB)
	lookFrames := int(rate * p.AttackMs / 1000)
	attackFrames := rate * p.AttackMs / 1000
	releaseFrames := rate * p.ReleaseMs / 1000
	channels := b.Channels()
	n := b.Frames()

	// frameEnergy(i) is the summed square of frame i across channels
	frameEnergy := func(i int) float64 {
		var s float64
		for ch := range b.Data {
			v := b.Data[ch][i]
			s += v * v
		}
		return s
	}

	var (
		windowSum   float64 // energy of frames [i-lookFrames, i)
		attenuation float64 // dB
		released    float64 // attenuation at the start of the current release
		gains       = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		var rms float64
		if width := min(i, lookFrames); width > 0 {
			rms = math.Sqrt(max(0, windowSum) / float64(width*channels))
		}

		var maxAttenuation float64
		if rms > 0 {
			maxAttenuation = (1 - 1/p.Ratio) * math.Max(0, audio.LinearToDB(rms/threshold))
		}

		if rms > threshold && attenuation <= maxAttenuation {
			attenuation = math.Min(attenuation+maxAttenuation/attackFrames, maxAttenuation)
			released = attenuation
		} else {
			step := math.Max(maxAttenuation, released) / releaseFrames
			attenuation = math.Max(attenuation-step, 0)
		}
		gains[i] = audio.DBToLinear(-attenuation)

		windowSum += frameEnergy(i)
		if lookFrames > 0 && i-lookFrames >= 0 {
			windowSum -= frameEnergy(i - lookFrames)
		}
	}

	makeup := audio.DBToLinear(p.MakeupGainDB)
	for ch := range b.Data {
		for i := range b.Data[ch] {
			b.Data[ch][i] *= gains[i] * makeup
		}
	}
	return nil
}

// StreamingCompressor is a per-channel peak compressor whose envelope
// carries across Process calls, so chunked input compresses exactly like
// the whole signal.
type StreamingCompressor struct {
	threshold    float64
	ratio        float64
	attackCoeff  float64
	releaseCoeff float64
	makeup       float64
	env          []float64
}

// NewStreamingCompressor builds a compressor at rest for sampleRate.
func NewStreamingCompressor(sampleRate int, p CompressorParams) (*StreamingCompressor, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	rate := float64(sampleRate)
	return &StreamingCompressor{
		threshold:    audio.DBToLinear(p.ThresholdDB),
		ratio:        math.Max(p.Ratio, 1),
		attackCoeff:  math.Exp(-1 / (rate * p.AttackMs / 1000)),
		releaseCoeff: math.Exp(-1 / (rate * p.ReleaseMs / 1000)),
		makeup:       audio.DBToLinear(p.MakeupGainDB),
	}, nil
}

// Process compresses b in place.
func (c *StreamingCompressor) Process(b *audio.Buffer) {
	if len(c.env) != b.Channels() {
		c.env = make([]float64, b.Channels())
	}
	for ch, samples := range b.Data {
		env := c.env[ch]
		for i, x := range samples {
			level := math.Abs(x)
			if level > env {
				env = c.attackCoeff*env + (1-c.attackCoeff)*level
			} else {
				env = c.releaseCoeff*env + (1-c.releaseCoeff)*level
			}
			gain := 1.0
			if env > c.threshold && env > 0 {
				gain = (c.threshold + (env-c.threshold)/c.ratio) / env
			}
			samples[i] = x * gain * c.makeup
		}
		c.env[ch] = env
	}
}

// Reset returns the envelope to rest.
func (c *StreamingCompressor) Reset() {
	c.env = nil
}
