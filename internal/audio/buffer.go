package audio

import (
	"math"
)

// Buffer holds planar float64 samples normalised to [-1, 1], one slice per
// channel. Values may exceed full scale while mixing; they are clamped only
// when written to a file.
type Buffer struct {
	SampleRate int
	Data       [][]float64
}

// NewBuffer allocates a silent buffer.
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	if frames < 0 {
		frames = 0
	}
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, frames)
	}
	return &Buffer{SampleRate: sampleRate, Data: data}
}

// Channels returns the channel count.
func (b *Buffer) Channels() int {
	return len(b.Data)
}

// Frames returns the number of sample frames.
func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Valid reports whether the buffer has a positive rate, at least one channel,
// and equal-length channels.
func (b *Buffer) Valid() bool {
	if b == nil || b.SampleRate <= 0 || len(b.Data) == 0 {
		return false
	}
	n := len(b.Data[0])
	for _, ch := range b.Data[1:] {
		if len(ch) != n {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{SampleRate: b.SampleRate, Data: make([][]float64, len(b.Data))}
	for ch, samples := range b.Data {
		out.Data[ch] = append([]float64(nil), samples...)
	}
	return out
}

// Slice returns a copy of frames [start, end), clamped to the buffer.
func (b *Buffer) Slice(start, end int) *Buffer {
	n := b.Frames()
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	out := &Buffer{SampleRate: b.SampleRate, Data: make([][]float64, len(b.Data))}
	for ch, samples := range b.Data {
		out.Data[ch] = append([]float64(nil), samples[start:end]...)
	}
	return out
}

// Scale multiplies every sample by a linear gain.
func (b *Buffer) Scale(gain float64) {
	if gain == 1 {
		return
	}
	for _, samples := range b.Data {
		for i := range samples {
			samples[i] *= gain
		}
	}
}

// ApplyGainDB multiplies every sample by a gain in decibels.
func (b *Buffer) ApplyGainDB(db float64) {
	if db == 0 {
		return
	}
	b.Scale(DBToLinear(db))
}

// Overlay mixes src into b starting at frame offset. Offsets may be negative;
// anything falling outside b is dropped, so b never grows. Channel counts are
// matched by wrapping src channels.
func (b *Buffer) Overlay(src *Buffer, offset int) {
	if src == nil || src.Channels() == 0 {
		return
	}
	dstFrames := b.Frames()
	srcFrames := src.Frames()
	from := max(0, -offset)
	to := min(srcFrames, dstFrames-offset)
	if from >= to {
		return
	}
	for ch, dst := range b.Data {
		s := src.Data[ch%src.Channels()]
		for i := from; i < to; i++ {
			dst[offset+i] += s[i]
		}
	}
}

// Peak returns the maximum absolute sample value.
func (b *Buffer) Peak() float64 {
	peak := 0.0
	for _, samples := range b.Data {
		for _, v := range samples {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	return peak
}

// IsSilent reports whether every sample is zero.
func (b *Buffer) IsSilent() bool {
	return b.Peak() == 0
}

// Loop tiles the buffer until it is exactly frames long.
func (b *Buffer) Loop(frames int) *Buffer {
	out := NewBuffer(b.SampleRate, b.Channels(), frames)
	n := b.Frames()
	if n == 0 {
		return out
	}
	for ch, samples := range b.Data {
		dst := out.Data[ch]
		for pos := 0; pos < frames; pos += n {
			copy(dst[pos:], samples)
		}
	}
	return out
}

// DBToLinear converts decibels to a linear amplitude ratio.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts a linear amplitude ratio to decibels (-Inf for zero).
func LinearToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// FramesFor converts seconds to a sample-accurate frame position or count.
func FramesFor(seconds float64, sampleRate int) int64 {
	return int64(math.Round(seconds * float64(sampleRate)))
}
