package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Writer appends buffers to a WAV file. Integer samples are clamped to
// full scale and quantised to the target bit depth as they are written;
// float samples pass through untouched. The header sizes are finalised on
// Close.
type Writer struct {
	f      *os.File
	enc    *wav.Encoder
	format Format
	frames int64
	clips  int64
}

// Create opens path for writing, creating parent directories as needed.
func Create(path string, format Format) (*Writer, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("output format: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	tag := wavFormatPCM
	if format.Float {
		tag = wavFormatFloat
	}
	return &Writer{
		f:      f,
		enc:    wav.NewEncoder(f, format.SampleRate, format.BitDepth, format.Channels, tag),
		format: format,
	}, nil
}

// Format returns the output format.
func (w *Writer) Format() Format {
	return w.format
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int64 {
	return w.frames
}

// ClippedSamples returns how many samples were clamped to full scale.
func (w *Writer) ClippedSamples() int64 {
	return w.clips
}

// Write quantises and appends b. The buffer's channel count must match.
func (w *Writer) Write(b *Buffer) error {
	if b.Channels() != w.format.Channels {
		return fmt.Errorf("buffer has %d channels, writer expects %d", b.Channels(), w.format.Channels)
	}
	frames := b.Frames()
	scale := math.Ldexp(1, w.format.BitDepth-1)
	hi := scale - 1
	data := make([]int, frames*w.format.Channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < w.format.Channels; ch++ {
			if w.format.Float {
				// the encoder writes the int32 bit pattern as is
				data[i*w.format.Channels+ch] = int(int32(math.Float32bits(float32(b.Data[ch][i]))))
				continue
			}
			v := math.Round(b.Data[ch][i] * scale)
			if v > hi {
				v = hi
				w.clips++
			} else if v < -scale {
				v = -scale
				w.clips++
			}
			if w.format.BitDepth == 8 {
				v += 128 // 8-bit WAV is unsigned
			}
			data[i*w.format.Channels+ch] = int(v)
		}
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: w.format.Channels, SampleRate: w.format.SampleRate},
		Data:           data,
		SourceBitDepth: w.format.BitDepth,
	}
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("write PCM: %w", err)
	}
	w.frames += int64(frames)
	return nil
}

// Close finalises the header and closes the file.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("finalise WAV: %w", err)
	}
	return w.f.Close()
}

// WriteFile writes a whole buffer to path in one go.
func WriteFile(path string, b *Buffer, format Format) error {
	w, err := Create(path, format)
	if err != nil {
		return err
	}
	if err := w.Write(b); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
