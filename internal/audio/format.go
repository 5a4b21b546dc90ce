package audio

import "fmt"

// Format describes the sample layout of rendered output.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	// Float writes 32-bit IEEE float samples, unclamped.
	Float bool
}

// DefaultFormat is 44.1 kHz stereo 16-bit.
func DefaultFormat() Format {
	return Format{SampleRate: 44100, Channels: 2, BitDepth: 16}
}

// FormatFromSampleWidth builds a Format from a sample width in bytes.
func FormatFromSampleWidth(sampleRate, channels, sampleWidth int) Format {
	return Format{SampleRate: sampleRate, Channels: channels, BitDepth: sampleWidth * 8}
}

// SampleWidth returns bytes per sample.
func (f Format) SampleWidth() int {
	return f.BitDepth / 8
}

// Validate checks the format can be written as WAV.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	if f.Float && f.BitDepth != 32 {
		return fmt.Errorf("float output must be 32-bit, got %d", f.BitDepth)
	}
	switch f.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth %d", f.BitDepth)
	}
	return nil
}

func (f Format) String() string {
	if f.Float {
		return fmt.Sprintf("%d Hz, %d ch, 32-bit float", f.SampleRate, f.Channels)
	}
	return fmt.Sprintf("%d Hz, %d ch, %d-bit", f.SampleRate, f.Channels, f.BitDepth)
}
