package audio

import (
	"math"
	"testing"
)

func TestBufferOverlay(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		want   []float64
	}{
		{"inside", 1, []float64{0, 1, 1, 0, 0}},
		{"clipped at end", 4, []float64{0, 0, 0, 0, 1}},
		{"negative offset", -1, []float64{1, 0, 0, 0, 0}},
		{"past end", 5, []float64{0, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := NewBuffer(100, 1, 5)
			src := &Buffer{SampleRate: 100, Data: [][]float64{{1, 1}}}
			dst.Overlay(src, tt.offset)
			for i, v := range tt.want {
				if dst.Data[0][i] != v {
					t.Errorf("frame %d = %v, want %v", i, dst.Data[0][i], v)
				}
			}
		})
	}
}

func TestBufferOverlayMonoIntoStereo(t *testing.T) {
	dst := NewBuffer(100, 2, 3)
	src := &Buffer{SampleRate: 100, Data: [][]float64{{0.5, 0.5, 0.5}}}
	dst.Overlay(src, 0)
	if dst.Data[1][2] != 0.5 {
		t.Errorf("right channel = %v, want 0.5", dst.Data[1][2])
	}
}

func TestBufferLoop(t *testing.T) {
	src := &Buffer{SampleRate: 10, Data: [][]float64{{1, 2, 3}}}
	got := src.Loop(7)
	want := []float64{1, 2, 3, 1, 2, 3, 1}
	if got.Frames() != len(want) {
		t.Fatalf("Loop length = %d, want %d", got.Frames(), len(want))
	}
	for i, v := range want {
		if got.Data[0][i] != v {
			t.Errorf("frame %d = %v, want %v", i, got.Data[0][i], v)
		}
	}
}

func TestBufferGainAndPeak(t *testing.T) {
	b := sineBuffer(8000, 2, 800, 100, 0.5)
	b.ApplyGainDB(6.0206)
	if math.Abs(b.Peak()-1.0) > 1e-3 {
		t.Errorf("Peak after +6 dB = %v, want ~1.0", b.Peak())
	}
	if NewBuffer(8000, 2, 10).IsSilent() != true {
		t.Error("new buffer should be silent")
	}
}

func TestBufferSliceClamps(t *testing.T) {
	b := &Buffer{SampleRate: 10, Data: [][]float64{{1, 2, 3, 4}}}
	if got := b.Slice(2, 10).Frames(); got != 2 {
		t.Errorf("Slice(2,10) frames = %d, want 2", got)
	}
	if got := b.Slice(5, 3).Frames(); got != 0 {
		t.Errorf("Slice(5,3) frames = %d, want 0", got)
	}
}

func TestBufferValid(t *testing.T) {
	tests := []struct {
		name string
		buf  *Buffer
		want bool
	}{
		{"nil", nil, false},
		{"no channels", &Buffer{SampleRate: 10}, false},
		{"zero rate", &Buffer{Data: [][]float64{{0}}}, false},
		{"ragged", &Buffer{SampleRate: 10, Data: [][]float64{{0}, {0, 0}}}, false},
		{"ok", NewBuffer(10, 2, 4), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.buf.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFramesFor(t *testing.T) {
	if got := FramesFor(1.5, 44100); got != 66150 {
		t.Errorf("FramesFor(1.5, 44100) = %d, want 66150", got)
	}
	if got := FramesFor(0.00001, 44100); got != 0 {
		t.Errorf("FramesFor(0.00001, 44100) = %d, want 0", got)
	}
}
