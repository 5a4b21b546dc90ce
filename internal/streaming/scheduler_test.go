package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/jivemix/internal/render"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

func clipPlan(start, frames, source int64, looping bool) *render.ClipPlan {
	return &render.ClipPlan{
		Track:        &timeline.Track{ID: "t", Role: timeline.RoleMusic},
		Clip:         &timeline.Clip{File: "x.wav"},
		Start:        start,
		Frames:       frames,
		SourceFrames: source,
		Looping:      looping,
	}
}

func TestClipSlices(t *testing.T) {
	tests := []struct {
		name   string
		plan   *render.ClipPlan
		t0, t1 int64
		want   []Slice
	}{
		{
			name: "clip inside window",
			plan: clipPlan(10, 20, 20, false),
			t0:   0, t1: 100,
			want: []Slice{{SourceOffset: 0, Start: 10, Frames: 20}},
		},
		{
			name: "window cuts both ends",
			plan: clipPlan(10, 50, 50, false),
			t0:   20, t1: 40,
			want: []Slice{{SourceOffset: 10, Start: 20, Frames: 20}},
		},
		{
			name: "no overlap",
			plan: clipPlan(100, 50, 50, false),
			t0:   0, t1: 100,
		},
		{
			name: "loop wraps inside window",
			plan: clipPlan(0, 250, 100, true),
			t0:   50, t1: 230,
			want: []Slice{
				{SourceOffset: 50, Start: 50, Frames: 50},
				{SourceOffset: 0, Start: 100, Frames: 100},
				{SourceOffset: 0, Start: 200, Frames: 30},
			},
		},
		{
			name: "partial final loop",
			plan: clipPlan(10, 250, 100, true),
			t0:   200, t1: 400,
			want: []Slice{
				{SourceOffset: 90, Start: 200, Frames: 10},
				{SourceOffset: 0, Start: 210, Frames: 50},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClipSlices(tt.plan, tt.t0, tt.t1)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.Same(t, tt.plan, got[i].Plan)
				assert.Equal(t, w.SourceOffset, got[i].SourceOffset, "slice %d source offset", i)
				assert.Equal(t, w.Start, got[i].Start, "slice %d start", i)
				assert.Equal(t, w.Frames, got[i].Frames, "slice %d frames", i)
			}
		})
	}
}

func TestClipSlices_CoverEveryFrameOnce(t *testing.T) {
	p := clipPlan(7, 1000, 93, true)
	covered := make([]int, 1100)
	for t0 := int64(0); t0 < 1100; t0 += 64 {
		for _, s := range ClipSlices(p, t0, t0+64) {
			assert.GreaterOrEqual(t, s.ChunkOffset(t0), 0)
			for i := int64(0); i < s.Frames; i++ {
				pos := s.Start + i
				covered[pos]++
				assert.Equal(t, (pos-p.Start)%p.SourceFrames, s.SourceOffset+i)
			}
		}
	}
	for pos, n := range covered {
		want := 0
		if pos >= 7 && pos < 1007 {
			want = 1
		}
		require.Equal(t, want, n, "frame %d", pos)
	}
}

func TestClipScheduler_KeepsTrackOrder(t *testing.T) {
	a := &render.TrackPlan{Track: &timeline.Track{ID: "a"}, Clips: []*render.ClipPlan{clipPlan(0, 10, 10, false)}}
	b := &render.TrackPlan{Track: &timeline.Track{ID: "b"}, Clips: []*render.ClipPlan{clipPlan(50, 10, 10, false)}}
	s := NewClipScheduler(&render.Job{Tracks: []*render.TrackPlan{a, b}})

	got := s.Schedule(0, 20)
	require.Len(t, got, 2)
	assert.Same(t, a, got[0].Track)
	assert.Len(t, got[0].Slices, 1)
	assert.Same(t, b, got[1].Track)
	assert.Empty(t, got[1].Slices)
}
