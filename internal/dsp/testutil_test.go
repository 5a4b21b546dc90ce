package dsp

import (
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// generateSine returns a buffer with the same sine tone on every channel.
// Level is the peak in dBFS.
func generateSine(sampleRate, channels int, seconds, freq, levelDB float64) *audio.Buffer {
	n := int(seconds * float64(sampleRate))
	b := audio.NewBuffer(sampleRate, channels, n)
	amp := math.Pow(10, levelDB/20)
	for i := 0; i < n; i++ {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		for ch := range b.Data {
			b.Data[ch][i] = v
		}
	}
	return b
}

// generateNoise returns deterministic white noise at a peak level.
func generateNoise(sampleRate, channels int, seconds, levelDB float64, seed int64) *audio.Buffer {
	rng := rand.New(rand.NewSource(seed))
	n := int(seconds * float64(sampleRate))
	b := audio.NewBuffer(sampleRate, channels, n)
	amp := math.Pow(10, levelDB/20)
	for ch := range b.Data {
		for i := range b.Data[ch] {
			b.Data[ch][i] = amp * (rng.Float64()*2 - 1)
		}
	}
	return b
}

// processInChunks slices b into chunks of size frames, runs fn over each
// with its absolute offset, and joins the results.
func processInChunks(b *audio.Buffer, size int, fn func(chunk *audio.Buffer, offset int64)) *audio.Buffer {
	out := audio.NewBuffer(b.SampleRate, b.Channels(), 0)
	for start := 0; start < b.Frames(); start += size {
		chunk := b.Slice(start, start+size)
		fn(chunk, int64(start))
		for ch := range out.Data {
			out.Data[ch] = append(out.Data[ch], chunk.Data[ch]...)
		}
	}
	return out
}

// magnitudeDB returns the section's magnitude response at freq.
func magnitudeDB(c Coefficients, freq float64, sampleRate int) float64 {
	w := 2 * math.Pi * freq / float64(sampleRate)
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1
	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := 1 + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	return 20 * math.Log10(cmplx.Abs(num/den))
}

func maxAbsDiff(a, b *audio.Buffer) float64 {
	var d float64
	for ch := range a.Data {
		for i := range a.Data[ch] {
			d = math.Max(d, math.Abs(a.Data[ch][i]-b.Data[ch][i]))
		}
	}
	return d
}
