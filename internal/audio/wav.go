package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// wavSource reads PCM regions straight from the data chunk with ReadAt.
// go-audio/wav parses the RIFF headers and positions the file at the start
// of the PCM data; the sample payload is then addressed by byte offset.
type wavSource struct {
	f          *os.File
	meta       Metadata
	dataStart  int64
	dataSize   int64
	blockAlign int
	bits       int
	float      bool
}

func openWAV(path string) (*wavSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("not a valid WAV file")
	}
	if err := d.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("locate PCM data: %w", err)
	}
	dataStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("locate PCM data: %w", err)
	}

	bits := int(d.BitDepth)
	channels := int(d.NumChans)
	format := d.WavAudioFormat
	if format == wavFormatExtensible {
		// go-audio/wav stops at the format tag; the real encoding is the
		// first two bytes of the sub-format GUID
		if format, err = extensibleSubFormat(f); err != nil {
			f.Close()
			return nil, err
		}
	}
	float := format == wavFormatFloat
	switch format {
	case wavFormatPCM, wavFormatFloat:
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported WAV encoding %d", format)
	}
	if float && bits != 32 && bits != 64 {
		f.Close()
		return nil, fmt.Errorf("unsupported float bit depth %d", bits)
	}
	if !float && bits != 8 && bits != 16 && bits != 24 && bits != 32 {
		f.Close()
		return nil, fmt.Errorf("unsupported PCM bit depth %d", bits)
	}

	blockAlign := channels * bits / 8
	dataSize := int64(d.PCMSize)
	// Writers that never finalised their header leave a bogus size
	if info, err := f.Stat(); err == nil {
		if avail := info.Size() - dataStart; dataSize <= 0 || dataSize > avail {
			dataSize = avail
		}
	}
	frames := dataSize / int64(blockAlign)

	return &wavSource{
		f: f,
		meta: Metadata{
			Duration:   float64(frames) / float64(d.SampleRate),
			SampleRate: int(d.SampleRate),
			Channels:   channels,
			SampleFmt:  describeFormat(bits, float),
			BitDepth:   bits,
			Frames:     frames,
			Codec:      "pcm_wav",
		},
		dataStart:  dataStart,
		dataSize:   dataSize,
		blockAlign: blockAlign,
		bits:       bits,
		float:      float,
	}, nil
}

// extensibleSubFormat walks the RIFF chunks for the fmt chunk of a
// WAVE_FORMAT_EXTENSIBLE file and returns the encoding in its sub-format.
func extensibleSubFormat(f *os.File) (uint16, error) {
	var hdr [8]byte
	for off := int64(12); ; {
		if _, err := f.ReadAt(hdr[:], off); err != nil {
			return 0, fmt.Errorf("read fmt chunk: %w", err)
		}
		size := int64(binary.LittleEndian.Uint32(hdr[4:]))
		if string(hdr[:4]) != "fmt " {
			off += 8 + size + size&1
			continue
		}
		// 16 base bytes, cbSize, valid bits, channel mask, then the GUID
		if size < 40 {
			return 0, fmt.Errorf("extensible fmt chunk too short (%d bytes)", size)
		}
		var sub [2]byte
		if _, err := f.ReadAt(sub[:], off+8+24); err != nil {
			return 0, fmt.Errorf("read fmt chunk: %w", err)
		}
		return binary.LittleEndian.Uint16(sub[:]), nil
	}
}

func (s *wavSource) Metadata() Metadata {
	return s.meta
}

func (s *wavSource) ReadFrames(start, n int64) (*Buffer, error) {
	if start < 0 {
		start = 0
	}
	n = max(0, min(n, s.meta.Frames-start))
	out := NewBuffer(s.meta.SampleRate, s.meta.Channels, int(n))
	if n == 0 {
		return out, nil
	}

	raw := make([]byte, n*int64(s.blockAlign))
	read, err := s.f.ReadAt(raw, s.dataStart+start*int64(s.blockAlign))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read PCM region: %w", err)
	}
	frames := read / s.blockAlign
	width := s.bits / 8
	for i := 0; i < frames; i++ {
		frame := raw[i*s.blockAlign:]
		for ch := 0; ch < s.meta.Channels; ch++ {
			out.Data[ch][i] = s.decodeSample(frame[ch*width : (ch+1)*width])
		}
	}
	if frames < int(n) {
		return out.Slice(0, frames), nil
	}
	return out, nil
}

func (s *wavSource) decodeSample(b []byte) float64 {
	if s.float {
		if s.bits == 64 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	switch s.bits {
	case 8:
		return (float64(b[0]) - 128) / 128
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(b))) / 32768
	case 24:
		v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16)
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / 8388608
	default:
		return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648
	}
}

func (s *wavSource) Close() error {
	return s.f.Close()
}
