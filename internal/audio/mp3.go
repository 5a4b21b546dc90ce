package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to interleaved 16-bit little-endian stereo.
const mp3BytesPerFrame = 4

// mp3Source seeks the decoder to the requested frame before each read.
// The decoder is stateful, so reads are serialised.
type mp3Source struct {
	mu   sync.Mutex
	f    *os.File
	dec  *mp3.Decoder
	meta Metadata
}

func openMP3(path string) (*mp3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode MP3 header: %w", err)
	}
	length := dec.Length()
	if length < 0 {
		f.Close()
		return nil, fmt.Errorf("MP3 length unknown")
	}
	frames := length / mp3BytesPerFrame
	return &mp3Source{
		f:   f,
		dec: dec,
		meta: Metadata{
			Duration:   float64(frames) / float64(dec.SampleRate()),
			SampleRate: dec.SampleRate(),
			Channels:   2,
			SampleFmt:  "s16",
			BitDepth:   16,
			Frames:     frames,
			Codec:      "mp3",
		},
	}, nil
}

func (s *mp3Source) Metadata() Metadata {
	return s.meta
}

func (s *mp3Source) ReadFrames(start, n int64) (*Buffer, error) {
	if start < 0 {
		start = 0
	}
	n = max(0, min(n, s.meta.Frames-start))
	if n == 0 {
		return NewBuffer(s.meta.SampleRate, 2, 0), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.dec.Seek(start*mp3BytesPerFrame, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek MP3: %w", err)
	}
	raw := make([]byte, n*mp3BytesPerFrame)
	read, err := io.ReadFull(s.dec, raw)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("decode MP3 region: %w", err)
	}

	frames := read / mp3BytesPerFrame
	out := NewBuffer(s.meta.SampleRate, 2, frames)
	for i := 0; i < frames; i++ {
		off := i * mp3BytesPerFrame
		out.Data[0][i] = float64(int16(binary.LittleEndian.Uint16(raw[off:]))) / 32768
		out.Data[1][i] = float64(int16(binary.LittleEndian.Uint16(raw[off+2:]))) / 32768
	}
	return out, nil
}

func (s *mp3Source) Close() error {
	return s.f.Close()
}
