package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// TestAudioOptions configures the synthetic audio to generate
type TestAudioOptions struct {
	DurationSecs float64 // Total duration in seconds
	SampleRate   int     // Sample rate (default: 44100)
	Channels     int     // Channel count (default: 1)
	ToneFreq     float64 // Sine wave frequency in Hz (0 = no tone)
	ToneLevel    float64 // Tone level in dBFS (e.g., -23.0)
}

// generateTestWAV creates a synthetic 16-bit WAV file in a test temp dir and
// returns its path.
func generateTestWAV(t *testing.T, opts TestAudioOptions) string {
	t.Helper()

	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}
	if opts.DurationSecs == 0 {
		opts.DurationSecs = 1.0
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}

	frames := int(opts.DurationSecs * float64(opts.SampleRate))
	samples := make([]int16, frames*opts.Channels)

	toneAmp := 0.0
	if opts.ToneFreq > 0 && opts.ToneLevel < 0 {
		toneAmp = math.Pow(10.0, opts.ToneLevel/20.0)
	}

	for i := 0; i < frames; i++ {
		ts := float64(i) / float64(opts.SampleRate)
		v := toneAmp * math.Sin(2.0*math.Pi*opts.ToneFreq*ts)
		for ch := 0; ch < opts.Channels; ch++ {
			samples[i*opts.Channels+ch] = int16(math.Round(v * 32767))
		}
	}

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := writeWAV(f, samples, opts.SampleRate, opts.Channels); err != nil {
		t.Fatalf("failed to write WAV file: %v", err)
	}
	return path
}

// writeWAV writes interleaved 16-bit PCM with a canonical 44-byte header
func writeWAV(f *os.File, samples []int16, sampleRate, numChannels int) error {
	const bitsPerSample = 16

	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	header := []any{
		[]byte("RIFF"), uint32(fileSize), []byte("WAVE"),
		[]byte("fmt "), uint32(16), uint16(1), uint16(numChannels),
		uint32(sampleRate), uint32(byteRate), uint16(blockAlign), uint16(bitsPerSample),
		[]byte("data"), uint32(dataSize),
	}
	for _, field := range header {
		if err := binary.Write(f, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return binary.Write(f, binary.LittleEndian, samples)
}

// sineBuffer returns a buffer holding a sine tone on every channel
func sineBuffer(sampleRate, channels, frames int, freq, amp float64) *Buffer {
	b := NewBuffer(sampleRate, channels, frames)
	for i := 0; i < frames; i++ {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		for ch := range b.Data {
			b.Data[ch][i] = v
		}
	}
	return b
}

// writeExtensibleWAV writes mono samples behind a WAVE_FORMAT_EXTENSIBLE
// header, either as 32-bit IEEE float or as 16-bit PCM.
func writeExtensibleWAV(t *testing.T, samples []float64, sampleRate int, float bool) string {
	t.Helper()

	bits, subFormat := 16, uint16(1)
	if float {
		bits, subFormat = 32, 3
	}
	blockAlign := bits / 8
	dataSize := len(samples) * blockAlign

	header := []any{
		[]byte("RIFF"), uint32(4 + 48 + 8 + dataSize), []byte("WAVE"),
		[]byte("fmt "), uint32(40), uint16(0xFFFE), uint16(1),
		uint32(sampleRate), uint32(sampleRate * blockAlign), uint16(blockAlign), uint16(bits),
		uint16(22), uint16(bits), uint32(4),
		subFormat, []byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71},
		[]byte("data"), uint32(dataSize),
	}

	path := filepath.Join(t.TempDir(), "extensible.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	for _, field := range header {
		if err := binary.Write(f, binary.LittleEndian, field); err != nil {
			t.Fatalf("failed to write header: %v", err)
		}
	}
	for _, v := range samples {
		var err error
		if float {
			err = binary.Write(f, binary.LittleEndian, float32(v))
		} else {
			err = binary.Write(f, binary.LittleEndian, int16(math.Round(v*32767)))
		}
		if err != nil {
			t.Fatalf("failed to write samples: %v", err)
		}
	}
	return path
}
