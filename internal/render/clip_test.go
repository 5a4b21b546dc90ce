package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/errors"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

func testPlan(role string, start, frames, sourceFrames int64) *ClipPlan {
	return &ClipPlan{
		Track:        &timeline.Track{ID: "t", Role: role},
		Clip:         &timeline.Clip{File: "src.wav"},
		Start:        start,
		Frames:       frames,
		SourceFrames: sourceFrames,
	}
}

func sine(frames int, freq, levelDB float64) *audio.Buffer {
	b := audio.NewBuffer(testRate, 2, frames)
	amp := audio.DBToLinear(levelDB)
	for ch := range b.Data {
		for i := range b.Data[ch] {
			b.Data[ch][i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testRate)
		}
	}
	return b
}

func TestProcessClip_LoopsToTimelineLength(t *testing.T) {
	p := testPlan(timeline.RoleMusic, 100, 250, 100)
	p.Looping = true

	out, err := ProcessClip(p, constBuffer(100, 0.5), WholeClipEffects{})
	require.NoError(t, err)

	assert.Equal(t, 250, out.Frames())
	for _, i := range []int{0, 99, 100, 249} {
		assert.InDelta(t, 0.5, out.Data[1][i], 1e-12, "frame %d", i)
	}
}

func TestProcessClip_TruncatesToPlannedLength(t *testing.T) {
	p := testPlan(timeline.RoleVoice, 0, 60, 100)

	out, err := ProcessClip(p, constBuffer(100, 0.25), WholeClipEffects{})
	require.NoError(t, err)
	assert.Equal(t, 60, out.Frames())
}

func TestProcessClip_FadesUseTimelinePositions(t *testing.T) {
	p := testPlan(timeline.RoleVoice, 100, 200, 200)
	p.FadeIn = dsp.FadeIn(100, 50, dsp.CurveLinear)
	p.FadeOut = dsp.FadeOut(300, 50, dsp.CurveLinear)

	out, err := ProcessClip(p, constBuffer(200, 0.5), WholeClipEffects{})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, out.Data[0][0], 1e-12)
	assert.InDelta(t, 0.5, out.Data[0][100], 1e-12)
	assert.Less(t, out.Data[0][199], 0.02)
}

func TestProcessClip_GainAndFlatDuck(t *testing.T) {
	p := testPlan(timeline.RoleMusic, 0, 100, 100)
	p.GainDB = 6
	p.DuckFlatDB = -6

	out, err := ProcessClip(p, constBuffer(100, 0.5), WholeClipEffects{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.Data[0][50], 1e-9)
}

func TestProcessClip_CompressionFailureIsDSPError(t *testing.T) {
	p := testPlan(timeline.RoleVoice, 0, 100, 100)
	p.Compressor = &dsp.CompressorParams{ThresholdDB: -18, Ratio: 0.5, AttackMs: 10, ReleaseMs: 100}

	_, err := ProcessClip(p, constBuffer(100, 0.5), WholeClipEffects{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDSP))
}

func TestProcessClip_EmptySourceIsRejected(t *testing.T) {
	p := testPlan(timeline.RoleVoice, 0, 100, 100)

	_, err := ProcessClip(p, audio.NewBuffer(testRate, 2, 0), WholeClipEffects{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAudioProcessing))
}

func TestPreLoop_RampMatchesAcrossSlices(t *testing.T) {
	prev := 0.2
	ramp := dsp.NewEnergyRamp(0.8, &prev, 100, testRate, 0, 4000)
	p := testPlan(timeline.RoleMusic, 0, 4000, 4000)
	p.Ramp = &ramp
	p.DensityTrimDB = -1

	src := sine(4000, 220, -12)
	whole, err := PreLoop(p, src.Clone(), 0, WholeClipEffects{})
	require.NoError(t, err)

	head, err := PreLoop(p, src.Slice(0, 1000), 0, WholeClipEffects{})
	require.NoError(t, err)
	tail, err := PreLoop(p, src.Slice(1000, 4000), 1000, WholeClipEffects{})
	require.NoError(t, err)

	for ch := range whole.Data {
		for i := range 1000 {
			require.InDelta(t, whole.Data[ch][i], head.Data[ch][i], 1e-12)
		}
		for i := range 3000 {
			require.InDelta(t, whole.Data[ch][1000+i], tail.Data[ch][i], 1e-12)
		}
	}
}

func TestPreLoop_MeasuresSFXLoudnessOnce(t *testing.T) {
	p := testPlan(timeline.RoleSFX, 0, testRate, testRate)
	p.SemanticRole = "impact"
	p.SFXTarget, p.HasSFXTarget = -18, true

	out, err := PreLoop(p, sine(testRate, 1000, -20), 0, WholeClipEffects{})
	require.NoError(t, err)
	assert.InDelta(t, -18.0, dsp.IntegratedLoudness(out), 0.3)
	assert.True(t, p.sfxMeasured)

	// A preset value is used as is.
	q := testPlan(timeline.RoleSFX, 0, testRate, testRate)
	q.SemanticRole = "impact"
	q.SFXTarget, q.HasSFXTarget = -18, true
	q.SetSFXLoudness(-6)

	src := constBuffer(100, 0.5)
	out, err = PreLoop(q, src, 0, WholeClipEffects{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5*audio.DBToLinear(-6), out.Data[0][10], 1e-9)
}
