package timeline

import (
	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
)

// RenderConfig is the flattened, resolved view of a timeline's settings
// for one render. It is a value: the With* methods return modified copies.
type RenderConfig struct {
	LoudnessEnabled bool
	TargetLUFS      float64

	Normalize      bool
	PeakTargetDBFS float64

	MasterGainDB float64

	MasterFadeOut      bool
	MasterFadeDuration float64 // seconds
	MasterFadeCurve    dsp.Curve

	DefaultSilence float64
	Tonal          dsp.Tonal
	Mains          MainsFrequency

	Streaming        bool
	ChunkSizeSec     float64
	MaxWorkers       int
	TwoPassLUFS      bool
	RollingEstimator bool
	KeepTemp         bool // keep the two-pass measurement file
	Format           audio.Format
}

// NewRenderConfig flattens settings into a RenderConfig.
func NewRenderConfig(s Settings) RenderConfig {
	return RenderConfig{
		LoudnessEnabled:    s.Loudness.Enabled,
		TargetLUFS:         s.Loudness.TargetLUFS,
		Normalize:          s.Normalize,
		PeakTargetDBFS:     DefaultPeakTargetDBFS,
		MasterGainDB:       s.MasterGain,
		MasterFadeOut:      s.MasterFadeOut.Enabled && s.MasterFadeOut.Duration > 0,
		MasterFadeDuration: s.MasterFadeOut.Duration,
		MasterFadeCurve:    dsp.ParseCurve(s.MasterFadeOut.Curve),
		DefaultSilence:     s.DefaultSilence,
		Tonal:              s.EQ.Tonal(),
		Mains:              s.Mains.Frequency,
		Streaming:          s.Streaming.Enabled,
		ChunkSizeSec:       s.Streaming.ChunkSizeSec,
		MaxWorkers:         s.Streaming.MaxWorkers,
		TwoPassLUFS:        s.Streaming.TwoPassLUFS,
		RollingEstimator:   s.Streaming.RollingEstimator,
		Format: audio.FormatFromSampleWidth(
			s.Streaming.SampleRate, s.Streaming.Channels, s.Streaming.SampleWidth),
	}
}

// WithStreaming returns a copy with the streaming renderer switched on or
// off.
func (c RenderConfig) WithStreaming(on bool) RenderConfig {
	c.Streaming = on
	return c
}

// WithMaxWorkers returns a copy with a different worker bound. Values
// below one are ignored.
func (c RenderConfig) WithMaxWorkers(n int) RenderConfig {
	if n >= 1 {
		c.MaxWorkers = n
	}
	return c
}

// WithChunkSize returns a copy with a different chunk length. Non-positive
// values are ignored.
func (c RenderConfig) WithChunkSize(sec float64) RenderConfig {
	if sec > 0 {
		c.ChunkSizeSec = sec
	}
	return c
}

// WithKeepTemp returns a copy that keeps or removes the two-pass
// measurement file.
func (c RenderConfig) WithKeepTemp(keep bool) RenderConfig {
	c.KeepTemp = keep
	return c
}

// WithMains returns a copy with a different mains setting. Empty values
// are ignored.
func (c RenderConfig) WithMains(m MainsFrequency) RenderConfig {
	if m != "" {
		c.Mains = m
	}
	return c
}

// LoudnessStrategy names how the streaming renderer reaches the loudness
// and peak targets.
type LoudnessStrategy string

// Streaming loudness strategies.
const (
	StrategyNone    LoudnessStrategy = "none"
	StrategyTwoPass LoudnessStrategy = "two-pass"
	StrategyPeak    LoudnessStrategy = "two-pass-peak"
	StrategyRolling LoudnessStrategy = "rolling"
)

// Strategy picks the streaming loudness strategy. Peak normalisation
// always measures first and takes precedence: with normalize set,
// rolling_estimator and two_pass_lufs are ignored (see IgnoresRolling).
// Otherwise LUFS targeting is two-pass unless two_pass_lufs is off or
// rolling_estimator is on, in which case the rolling estimator corrects on
// the fly.
func (c RenderConfig) Strategy() LoudnessStrategy {
	switch {
	case c.Normalize:
		return StrategyPeak
	case c.LoudnessEnabled && (c.RollingEstimator || !c.TwoPassLUFS):
		return StrategyRolling
	case c.LoudnessEnabled:
		return StrategyTwoPass
	default:
		return StrategyNone
	}
}

// IgnoresRolling reports whether rolling_estimator is asked for but
// overruled by peak normalisation.
func (c RenderConfig) IgnoresRolling() bool {
	return c.Streaming && c.Normalize && c.LoudnessEnabled && (c.RollingEstimator || !c.TwoPassLUFS)
}
