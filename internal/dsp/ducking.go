package dsp

import (
	"math"
	"sort"

	"github.com/linuxmatters/jivemix/internal/audio"
)

// Range is a time interval in seconds, end exclusive.
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// MergeRanges sorts ranges and joins those that overlap or sit within
// minGapMs of each other.
func MergeRanges(ranges []Range, minGapMs float64) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if (r.Start-last.End)*1000 <= minGapMs {
			last.End = math.Max(last.End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// ClampRanges limits ranges to [lo, hi], dropping any left empty.
func ClampRanges(ranges []Range, lo, hi float64) []Range {
	var out []Range
	for _, r := range ranges {
		s, e := math.Max(lo, r.Start), math.Min(hi, r.End)
		if s < e {
			out = append(out, Range{Start: s, End: e})
		}
	}
	return out
}

// NormalizeRanges drops empty or inverted ranges and sorts the rest.
func NormalizeRanges(ranges []Range) []Range {
	var out []Range
	for _, r := range ranges {
		if r.Start < r.End {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// DuckParams configures envelope ducking.
type DuckParams struct {
	AmountDB     float64
	FadeDownMs   float64
	FadeUpMs     float64
	MinPauseMs   float64
	OnsetDelayMs float64
}

// DuckEnvelope is a gain curve over absolute timeline frames. For each
// trigger range it ramps linearly from unity to the duck gain over the fade
// down time ending at the (delayed) range start, holds through the range,
// and ramps back to unity over the fade up time. Where ranges overlap the
// lowest gain wins.
type DuckEnvelope struct {
	gain   float64
	down   int64
	up     int64
	ranges [][2]int64
}

// NewDuckEnvelope builds the envelope for trigger ranges at sampleRate.
// Ranges closer than MinPauseMs are merged first.
func NewDuckEnvelope(ranges []Range, p DuckParams, sampleRate int) *DuckEnvelope {
	e := &DuckEnvelope{
		gain: audio.DBToLinear(p.AmountDB),
		down: audio.FramesFor(p.FadeDownMs/1000, sampleRate),
		up:   audio.FramesFor(p.FadeUpMs/1000, sampleRate),
	}
	delay := p.OnsetDelayMs / 1000
	for _, r := range MergeRanges(ranges, p.MinPauseMs) {
		start := audio.FramesFor(r.Start+delay, sampleRate)
		end := audio.FramesFor(r.End, sampleRate)
		if start >= end {
			continue
		}
		e.ranges = append(e.ranges, [2]int64{start, end})
	}
	return e
}

// Empty reports whether the envelope never ducks.
func (e *DuckEnvelope) Empty() bool {
	return len(e.ranges) == 0
}

// GainAt returns the linear gain at absolute frame pos.
func (e *DuckEnvelope) GainAt(pos int64) float64 {
	g := 1.0
	for _, r := range e.ranges {
		g = math.Min(g, e.rangeGain(r, pos))
	}
	return g
}

func (e *DuckEnvelope) rangeGain(r [2]int64, pos int64) float64 {
	start, end := r[0], r[1]
	switch {
	case pos >= start && pos < end:
		return e.gain
	case pos < start && pos >= start-e.down:
		p := float64(pos-(start-e.down)) / float64(e.down)
		return 1 + (e.gain-1)*p
	case pos >= end && pos < end+e.up:
		p := float64(pos-end) / float64(e.up)
		return e.gain + (1-e.gain)*p
	default:
		return 1
	}
}

// Apply scales b, whose first frame sits at absolute frame offset.
func (e *DuckEnvelope) Apply(b *audio.Buffer, offset int64) {
	hi := offset + int64(b.Frames())
	next := offset // first frame not yet visited
	for _, r := range e.ranges {
		s := max(next, r[0]-e.down)
		t := min(hi, r[1]+e.up)
		for pos := s; pos < t; pos++ {
			g := e.GainAt(pos)
			for ch := range b.Data {
				b.Data[ch][pos-offset] *= g
			}
		}
		next = max(next, t)
	}
}
