package streaming

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/render"
	"github.com/linuxmatters/jivemix/internal/timeline"
)


// Renderer renders a job chunk by chunk. Chunks run strictly in order;
// the tracks inside a chunk run in parallel.
//
// Before the render pass an analysis pass measures each track's role
// loudness and each SFX clip's semantic loudness, so the render pass
// applies the same fixed gains the whole-file renderer does. The loudness
// strategy decides whether a measuring pass runs in between.
type Renderer struct{}

// Name identifies the renderer in logs and reports.
func (Renderer) Name() string { return "streaming" }

// Render mixes job and writes it to output.
func (r Renderer) Render(ctx context.Context, rc *render.Context, job *render.Job, output string) (*render.Result, error) {
	cfg := rc.Config
	strategy := cfg.Strategy()
	res := &render.Result{
		RenderID: rc.ID,
		Output:   output,
		Renderer: r.Name(),
		Strategy: strategy,
		Format:   job.Format,
		Frames:   job.Frames,
		Started:  time.Now(),
	}
	res.Master.MeasuredLUFS = math.Inf(-1)
	res.Master.PeakDBFS = math.Inf(-1)

	s := &session{
		rc:    rc,
		job:   job,
		chunk: max(1, audio.FramesFor(cfg.ChunkSizeSec, job.Format.SampleRate)),
	}
	rc.Logger.Debug("streaming render",
		"strategy", string(strategy),
		"chunk_frames", s.chunk,
		"workers", cfg.MaxWorkers)

	measured, err := s.timed(ctx, res, render.PassAnalysing, s.analyse)
	if err != nil {
		return nil, err
	}

	m := newMasterChain(rc, job)
	switch strategy {
	case timeline.StrategyTwoPass, timeline.StrategyPeak:
		if _, err := s.timed(ctx, res, render.PassMeasuring, func(ctx context.Context, pass int) ([]float64, error) {
			return nil, s.measure(ctx, pass, output, m, &res.Master)
		}); err != nil {
			return nil, err
		}
	case timeline.StrategyRolling:
		m.rolling = dsp.NewRollingEstimator(cfg.TargetLUFS)
	}

	if _, err := s.timed(ctx, res, render.PassRendering, func(ctx context.Context, pass int) ([]float64, error) {
		return nil, s.write(ctx, pass, output, m, res)
	}); err != nil {
		return nil, err
	}

	if m.rolling != nil {
		res.Master.MeasuredLUFS = m.rolling.Estimate()
		res.Master.LUFSGainDB = m.lufsDB
	}
	for i := range res.Tracks {
		res.Tracks[i].MeasuredLUFS = measured[i]
	}
	res.Finished = time.Now()
	return res, nil
}

// session is the state shared by the passes of one render.
type session struct {
	rc    *render.Context
	job   *render.Job
	chunk int64
	pass  int
}

type passFunc func(ctx context.Context, pass int) ([]float64, error)

func (s *session) timed(ctx context.Context, res *render.Result, name string, fn passFunc) ([]float64, error) {
	s.pass++
	var out []float64
	err := res.TimePass(name, func() error {
		var err error
		out, err = fn(ctx, s.pass)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s pass failed: %w", strings.ToLower(name), err)
	}
	return out, nil
}

type chunkFunc func(t0, t1 int64) (level float64, err error)

// chunks calls fn for each chunk window in order and reports progress.
func (s *session) chunks(ctx context.Context, pass int, name string, fn chunkFunc) error {
	return s.chunkSpan(ctx, pass, name, 0, 1, fn)
}

// chunkSpan is chunks with progress mapped onto [lo, hi] of the pass.
func (s *session) chunkSpan(ctx context.Context, pass int, name string, lo, hi float64, fn chunkFunc) error {
	total := s.job.Frames
	s.rc.Report(pass, name, lo, 0)
	for t0 := int64(0); t0 < total; t0 += s.chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		t1 := min(t0+s.chunk, total)
		level, err := fn(t0, t1)
		if err != nil {
			return err
		}
		s.rc.Report(pass, name, lo+(hi-lo)*float64(t1)/float64(total), level)
	}
	return nil
}

// analyse resolves the fixed gains of the render pass: SFX semantic
// loudness per clip, measured on one whole pass through its source, and
// role loudness per track, measured on the track before correction. It
// returns each track's measured loudness.
func (s *session) analyse(ctx context.Context, pass int) ([]float64, error) {
	proc := NewChunkProcessor(s.rc, s.job)
	defer proc.Close()

	measured := make([]float64, len(s.job.Tracks))
	meters := make([]*dsp.Meter, len(s.job.Tracks))
	f := s.job.Format
	metered := false
	for i, tp := range s.job.Tracks {
		measured[i] = math.Inf(-1)
		for _, cp := range tp.Clips {
			if cp.HasSFXTarget {
				s.measureSFX(proc, cp)
			}
		}
		if tp.HasTarget {
			meters[i] = dsp.NewMeter(f.SampleRate, f.Channels)
			metered = true
		}
	}
	if !metered {
		return measured, nil
	}

	err := s.chunks(ctx, pass, render.PassAnalysing, func(t0, t1 int64) (float64, error) {
		tracks, err := proc.Tracks(ctx, t0, t1)
		if err != nil {
			return 0, err
		}
		for i, b := range tracks {
			if meters[i] != nil {
				meters[i].Write(b)
			}
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}

	for i, tp := range s.job.Tracks {
		if meters[i] == nil {
			continue
		}
		measured[i] = meters[i].Integrated()
		tp.GainDB = 0
		if gain, ok := dsp.CorrectionGain(measured[i], tp.TargetLUFS); ok {
			tp.GainDB = gain
		}
		s.rc.Logger.Debug("track analysed",
			"track", tp.Track.ID, "role", tp.Track.Role,
			"lufs", measured[i], "gain_db", tp.GainDB)
	}
	return measured, nil
}

func (s *session) measureSFX(proc *ChunkProcessor, cp *render.ClipPlan) {
	src, err := proc.Loader().Read(cp.Clip.File, 0, cp.SourceFrames)
	if err == nil {
		_, err = render.PreLoop(cp, src, 0, render.WholeClipEffects{})
	}
	if err != nil {
		s.rc.Logger.Warn("sfx loudness not measured", "clip", cp.Name(), "error", err)
		cp.SetSFXLoudness(0)
	}
}

// measure renders the mix up to the loudness stage into a float
// temporary file, then streams that file back through a loader to measure
// its loudness and peak, and sets the master's loudness and peak gains.
func (s *session) measure(ctx context.Context, pass int, output string, m *masterChain, mr *render.MasterResult) error {
	cfg := s.rc.Config
	tmp := tempPath(output, s.rc.ID)
	if cfg.KeepTemp {
		s.rc.Logger.Info("keeping measurement file", "path", tmp)
	} else {
		defer os.Remove(tmp)
	}

	if err := s.writePreMaster(ctx, pass, tmp, m); err != nil {
		return err
	}
	lufs, peak, err := s.measureFile(ctx, pass, tmp)
	if err != nil {
		return err
	}

	if cfg.LoudnessEnabled {
		mr.MeasuredLUFS = lufs
		if gain, ok := dsp.CorrectionGain(lufs, cfg.TargetLUFS); ok {
			m.lufsDB = gain
		} else {
			s.rc.Logger.Warn("master stage skipped", "stage", "loudness", "error", "mix too quiet or short to measure")
		}
		mr.LUFSGainDB = m.lufsDB
	}
	if cfg.Normalize {
		p := peak * audio.DBToLinear(m.lufsDB)
		mr.PeakDBFS = audio.LinearToDB(p)
		if gain, ok := dsp.PeakNormalizeGain(p, cfg.PeakTargetDBFS); ok {
			m.peakDB = gain
		}
		mr.PeakGainDB = m.peakDB
	}
	s.rc.Logger.Debug("mix measured",
		"path", tmp,
		"lufs", lufs,
		"peak_dbfs", audio.LinearToDB(peak),
		"lufs_gain_db", m.lufsDB,
		"peak_gain_db", m.peakDB)
	return nil
}

// writePreMaster writes the mix, with the master stages ahead of loudness
// applied, to path as 32-bit float so nothing above full scale is lost.
func (s *session) writePreMaster(ctx context.Context, pass int, path string, m *masterChain) error {
	f := s.job.Format
	proc := NewChunkProcessor(s.rc, s.job)
	defer proc.Close()
	m.reset()

	w, err := NewStreamWriter(path, measureFormat(f))
	if err != nil {
		return err
	}
	err = s.chunkSpan(ctx, pass, render.PassMeasuring, 0, 0.5, func(t0, t1 int64) (float64, error) {
		mix, err := proc.Mix(ctx, t0, t1)
		if err != nil {
			return 0, err
		}
		m.pre(mix, t0)
		return dsp.PeakDBFS(mix), w.WriteChunk(mix)
	})
	if err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// measureFile returns the integrated loudness and linear sample peak of
// the measurement file.
func (s *session) measureFile(ctx context.Context, pass int, path string) (lufs, peak float64, err error) {
	f := measureFormat(s.job.Format)
	loader := NewChunkLoader(f)
	defer loader.Close()

	meter := dsp.NewMeter(f.SampleRate, f.Channels)
	var pe dsp.PeakEstimator
	err = s.chunkSpan(ctx, pass, render.PassMeasuring, 0.5, 1, func(t0, t1 int64) (float64, error) {
		b, err := loader.Read(path, t0, t1-t0)
		if err != nil {
			return 0, err
		}
		meter.Write(b)
		pe.Observe(b)
		return dsp.PeakDBFS(b), nil
	})
	if err != nil {
		return 0, 0, err
	}
	return meter.Integrated(), pe.Peak(), nil
}

// write renders the final mix to output.
func (s *session) write(ctx context.Context, pass int, output string, m *masterChain, res *render.Result) error {
	f := s.job.Format
	proc := NewChunkProcessor(s.rc, s.job)
	defer proc.Close()
	m.reset()

	w, err := NewStreamWriter(output, f)
	if err != nil {
		return err
	}
	meter := dsp.NewMeter(f.SampleRate, f.Channels)
	var peak dsp.PeakEstimator
	err = s.chunks(ctx, pass, render.PassRendering, func(t0, t1 int64) (float64, error) {
		mix, err := proc.Mix(ctx, t0, t1)
		if err != nil {
			return 0, err
		}
		m.pre(mix, t0)
		m.post(mix, t0)
		meter.Write(mix)
		peak.Observe(mix)
		return dsp.PeakDBFS(mix), w.WriteChunk(mix)
	})
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	res.ClippedSamples = w.ClippedSamples()
	res.Master.FinalLUFS = meter.Integrated()
	res.Master.FinalPeak = audio.LinearToDB(peak.Peak())
	for _, tp := range s.job.Tracks {
		res.Tracks = append(res.Tracks, render.TrackResult{
			ID:      tp.Track.ID,
			Role:    tp.Track.Role,
			Clips:   len(tp.Clips),
			Skipped: proc.Skipped(tp),
			GainDB:  tp.GainDB,
		})
	}
	return nil
}

// measureFormat is the layout of the measurement file.
func measureFormat(f audio.Format) audio.Format {
	return audio.Format{SampleRate: f.SampleRate, Channels: f.Channels, BitDepth: 32, Float: true}
}

// tempPath names the measurement file next to the output, tagged with the
// render ID.
func tempPath(output, renderID string) string {
	base := strings.TrimSuffix(output, filepath.Ext(output))
	return fmt.Sprintf("%s.%s.tmp.wav", base, renderID[:min(8, len(renderID))])
}
