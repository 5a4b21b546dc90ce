// Package audio provides audio file I/O: metadata probing, partial decode of
// WAV and MP3 sources, format conversion, and WAV output.
package audio

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/jivemix/internal/errors"
)

// Metadata contains audio file metadata
type Metadata struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	SampleFmt  string
	BitDepth   int
	Frames     int64
	Codec      string
}

// Source decodes arbitrary frame ranges from an audio file without decoding
// the whole file. Implementations are safe for concurrent use.
type Source interface {
	Metadata() Metadata
	// ReadFrames decodes up to n frames starting at frame start, in the
	// source's native rate and channel layout. Reads past the end are
	// truncated.
	ReadFrames(start, n int64) (*Buffer, error)
	Close() error
}

// Open opens an audio file for partial decoding. A missing or unreadable
// file is reported as a FILE error.
func Open(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, errors.CodeFile, "audio file not found: %s", path)
		}
		return nil, errors.Wrapf(err, errors.CodeFile, "cannot access audio file: %s", path)
	}

	var (
		src Source
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		src, err = openMP3(path)
	case ".wav", ".wave":
		src, err = openWAV(path)
	default:
		// Unknown extension: sniff as WAV first, then MP3
		src, err = openWAV(path)
		if err != nil {
			src, err = openMP3(path)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFile, "unreadable audio file: %s", path)
	}
	return src, nil
}

// Probe returns metadata for an audio file.
func Probe(path string) (*Metadata, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	meta := src.Metadata()
	return &meta, nil
}

// FramesAt returns the length of a source once converted to sampleRate.
func FramesAt(meta Metadata, sampleRate int) int64 {
	if meta.SampleRate == sampleRate {
		return meta.Frames
	}
	return int64(math.Round(float64(meta.Frames) * float64(sampleRate) / float64(meta.SampleRate)))
}

// ReadRegion decodes n frames starting at frame start, where both are
// expressed at the target format's sample rate. Resampling positions are
// computed from absolute frame indices, so adjacent regions join seamlessly
// and a region read equals the same span of a whole-file read.
func ReadRegion(src Source, f Format, start, n int64) (*Buffer, error) {
	meta := src.Metadata()
	if n <= 0 {
		return NewBuffer(f.SampleRate, f.Channels, 0), nil
	}
	total := FramesAt(meta, f.SampleRate)
	if start >= total {
		return NewBuffer(f.SampleRate, f.Channels, 0), nil
	}
	n = min(n, total-start)

	var native *Buffer
	if meta.SampleRate == f.SampleRate {
		buf, err := src.ReadFrames(start, n)
		if err != nil {
			return nil, err
		}
		native = buf
	} else {
		ratio := float64(meta.SampleRate) / float64(f.SampleRate)
		first := int64(math.Floor(float64(start) * ratio))
		last := int64(math.Floor(float64(start+n-1)*ratio)) + 1
		buf, err := src.ReadFrames(first, last-first+1)
		if err != nil {
			return nil, err
		}
		native = resampleLinear(buf, f.SampleRate, start, int(n), ratio, first)
	}
	return convertChannels(native, f.Channels), nil
}

// ReadAll decodes a whole file into the target format.
func ReadAll(path string, f Format) (*Buffer, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return ReadRegion(src, f, 0, FramesAt(src.Metadata(), f.SampleRate))
}

// resampleLinear produces n output frames at outRate, starting at absolute
// output frame start, from native frames beginning at absolute frame first.
func resampleLinear(in *Buffer, outRate int, start int64, n int, ratio float64, first int64) *Buffer {
	out := NewBuffer(outRate, in.Channels(), n)
	inFrames := in.Frames()
	if inFrames == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		pos := float64(start+int64(i)) * ratio
		idx := int64(math.Floor(pos))
		frac := pos - float64(idx)
		j := int(idx - first)
		j0 := max(0, min(j, inFrames-1))
		j1 := max(0, min(j+1, inFrames-1))
		for ch, samples := range in.Data {
			out.Data[ch][i] = samples[j0] + (samples[j1]-samples[j0])*frac
		}
	}
	return out
}

// convertChannels maps a buffer to the requested channel count. Mono sources
// are duplicated, downmix to mono averages all channels, anything else wraps.
func convertChannels(in *Buffer, channels int) *Buffer {
	if in.Channels() == channels {
		return in
	}
	frames := in.Frames()
	out := NewBuffer(in.SampleRate, channels, frames)
	if channels == 1 {
		scale := 1.0 / float64(in.Channels())
		for _, samples := range in.Data {
			for i, v := range samples {
				out.Data[0][i] += v * scale
			}
		}
		return out
	}
	for ch := range out.Data {
		copy(out.Data[ch], in.Data[ch%in.Channels()])
	}
	return out
}

func describeFormat(bits int, float bool) string {
	if float {
		return fmt.Sprintf("f%d", bits)
	}
	if bits == 8 {
		return "u8"
	}
	return fmt.Sprintf("s%d", bits)
}
