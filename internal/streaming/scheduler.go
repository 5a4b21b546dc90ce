// Package streaming renders a planned job a chunk at a time: clips are
// scheduled into chunk windows, decoded region by region, processed with
// stateful filters, and appended to the output as each chunk completes.
package streaming

import (
	"github.com/linuxmatters/jivemix/internal/render"
)

// Slice is the part of one clip that falls inside a chunk window.
type Slice struct {
	Plan         *render.ClipPlan
	SourceOffset int64 // frame within one pass through the source
	Start        int64 // timeline frame of the first sample
	Frames       int64
}

// ChunkOffset returns the slice position within a chunk starting at t0.
func (s Slice) ChunkOffset(t0 int64) int {
	return int(s.Start - t0)
}

// TrackSlices is one track's work for a chunk.
type TrackSlices struct {
	Track  *render.TrackPlan
	Slices []Slice
}

// ClipScheduler resolves which parts of which clips fall in a chunk.
type ClipScheduler struct {
	tracks []*render.TrackPlan
}

// NewClipScheduler returns a scheduler over the job's tracks.
func NewClipScheduler(job *render.Job) *ClipScheduler {
	return &ClipScheduler{tracks: job.Tracks}
}

// Schedule returns, per track in job order, the slices intersecting the
// window [t0, t1). Tracks with nothing to play still appear, with no
// slices.
func (s *ClipScheduler) Schedule(t0, t1 int64) []TrackSlices {
	out := make([]TrackSlices, len(s.tracks))
	for i, tp := range s.tracks {
		out[i].Track = tp
		for _, cp := range tp.Clips {
			out[i].Slices = append(out[i].Slices, ClipSlices(cp, t0, t1)...)
		}
	}
	return out
}

// ClipSlices splits the part of p inside [t0, t1) at loop boundaries. A
// non-looping clip yields at most one slice; a looping clip yields one per
// pass through the source that the window touches.
func ClipSlices(p *render.ClipPlan, t0, t1 int64) []Slice {
	lo := max(t0, p.Start)
	hi := min(t1, p.End())
	if !p.Looping {
		hi = min(hi, p.Start+p.SourceFrames)
	}
	if lo >= hi || p.SourceFrames <= 0 {
		return nil
	}

	var out []Slice
	for pos := lo; pos < hi; {
		src := (pos - p.Start) % p.SourceFrames
		n := min(hi-pos, p.SourceFrames-src)
		out = append(out, Slice{Plan: p, SourceOffset: src, Start: pos, Frames: n})
		pos += n
	}
	return out
}
