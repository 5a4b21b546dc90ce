package streaming

import (
	"log/slog"
	"math"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/render"
)

// masterChain is the master processor run a chunk at a time, in the same
// order as the whole-file master: tonal shaping, master gain, loudness
// gain, peak gain, fade-out.
type masterChain struct {
	logger  *slog.Logger
	tonal   *dsp.Chain
	gainDB  float64
	lufsDB  float64
	peakDB  float64
	fade    dsp.Fade
	rolling *dsp.RollingEstimator
}

func newMasterChain(rc *render.Context, job *render.Job) *masterChain {
	rate := job.Format.SampleRate
	m := &masterChain{
		logger: rc.Logger,
		gainDB: rc.Config.MasterGainDB,
		fade:   render.MasterFade(rc.Config, job.Frames, rate),
	}
	if sections := render.TonalSections(rc, rate); len(sections) > 0 {
		m.tonal = dsp.NewChain(sections)
	}
	return m
}

// reset returns the tonal filters to rest for a new pass.
func (m *masterChain) reset() {
	if m.tonal != nil {
		m.tonal.Reset()
	}
}

// pre applies the stages that come before loudness measurement.
func (m *masterChain) pre(b *audio.Buffer, t0 int64) {
	if m.tonal != nil {
		m.tonal.Process(b)
	}
	b.ApplyGainDB(m.gainDB)
	m.check(b, t0, "tonal shaping")
}

// post applies the loudness and peak gains and the fade. With a rolling
// estimator the loudness gain follows the estimate, chunk by chunk.
func (m *masterChain) post(b *audio.Buffer, t0 int64) {
	if m.rolling != nil {
		m.rolling.Observe(b)
		m.lufsDB = m.rolling.GainDB()
	}
	b.ApplyGainDB(m.lufsDB + m.peakDB)
	m.fade.Apply(b, t0)
	m.check(b, t0, "loudness")
}

// check silences non-finite samples. Filters that produced them are reset.
func (m *masterChain) check(b *audio.Buffer, t0 int64, stage string) {
	bad := 0
	for _, samples := range b.Data {
		for i, v := range samples {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				samples[i] = 0
				bad++
			}
		}
	}
	if bad > 0 {
		m.logger.Warn("non-finite master samples silenced", "stage", stage, "frame", t0, "samples", bad)
		if stage == "tonal shaping" {
			m.reset()
		}
	}
}
