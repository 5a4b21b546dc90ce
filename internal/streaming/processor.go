package streaming

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/render"
)

// ChunkProcessor renders the tracks of a job one chunk window at a time.
// It owns the loader and the clip state of a single pass; make a new one
// for every pass so nothing leaks between them.
type ChunkProcessor struct {
	rc      *render.Context
	job     *render.Job
	sched   *ClipScheduler
	loader  *ChunkLoader
	fx      *ChunkEffects
	workers int

	mu     sync.Mutex
	failed map[*render.ClipPlan]bool
}

// NewChunkProcessor returns a processor with a fresh loader and every
// filter and compressor at rest.
func NewChunkProcessor(rc *render.Context, job *render.Job) *ChunkProcessor {
	return &ChunkProcessor{
		rc:      rc,
		job:     job,
		sched:   NewClipScheduler(job),
		loader:  NewChunkLoader(job.Format),
		fx:      NewChunkEffects(job.Format.SampleRate),
		workers: max(1, rc.Config.MaxWorkers),
		failed:  make(map[*render.ClipPlan]bool),
	}
}

// Loader returns the processor's source loader.
func (p *ChunkProcessor) Loader() *ChunkLoader {
	return p.loader
}

// Close releases the pass's open sources.
func (p *ChunkProcessor) Close() error {
	return p.loader.Close()
}

// Tracks renders [t0, t1) for every track, in job order, before role
// loudness correction. Tracks run in parallel on at most MaxWorkers
// goroutines; each owns its buffer. A clip that fails is logged, dropped
// for the rest of the pass, and left silent; a source that cannot be read
// aborts with its error.
func (p *ChunkProcessor) Tracks(ctx context.Context, t0, t1 int64) ([]*audio.Buffer, error) {
	work := p.sched.Schedule(t0, t1)
	out := make([]*audio.Buffer, len(work))
	f := p.job.Format

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, ts := range work {
		g.Go(func() error {
			buf := audio.NewBuffer(f.SampleRate, f.Channels, int(t1-t0))
			for _, s := range ts.Slices {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := p.slice(buf, s, t0); err != nil {
					return err
				}
			}
			out[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Mix renders [t0, t1), applies each track's role loudness gain, and sums
// the tracks in job order.
func (p *ChunkProcessor) Mix(ctx context.Context, t0, t1 int64) (*audio.Buffer, error) {
	tracks, err := p.Tracks(ctx, t0, t1)
	if err != nil {
		return nil, err
	}
	f := p.job.Format
	mix := audio.NewBuffer(f.SampleRate, f.Channels, int(t1-t0))
	for i, b := range tracks {
		b.ApplyGainDB(p.job.Tracks[i].GainDB)
		mix.Overlay(b, 0)
	}
	return mix, nil
}

func (p *ChunkProcessor) slice(dst *audio.Buffer, s Slice, t0 int64) error {
	cp := s.Plan
	if p.hasFailed(cp) {
		return nil
	}
	b, err := p.loader.Read(cp.Clip.File, s.SourceOffset, s.Frames)
	if err != nil {
		return err
	}
	b, err = render.PreLoop(cp, b, s.SourceOffset, p.fx)
	if err == nil {
		b, err = render.PostLoop(cp, b, s.Start, p.fx)
	}
	if err != nil {
		p.fail(cp)
		p.rc.Logger.Warn("clip skipped", "clip", cp.Name(), "frame", s.Start, "error", err)
		return nil
	}
	dst.Overlay(b, s.ChunkOffset(t0))
	return nil
}

func (p *ChunkProcessor) hasFailed(cp *render.ClipPlan) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed[cp]
}

func (p *ChunkProcessor) fail(cp *render.ClipPlan) {
	p.mu.Lock()
	p.failed[cp] = true
	p.mu.Unlock()
}

// Skipped returns how many clips of tp have failed this pass.
func (p *ChunkProcessor) Skipped(tp *render.TrackPlan) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, cp := range tp.Clips {
		if p.failed[cp] {
			n++
		}
	}
	return n
}
