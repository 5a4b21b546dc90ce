package streaming

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/errors"
	"github.com/linuxmatters/jivemix/internal/render"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

// mixTimeline has a voice, a looping ducked music bed and an impact, all
// on flat presets with compression off, so both renderers run the same
// arithmetic.
func mixTimeline(t *testing.T, dir, settings string) *timeline.Timeline {
	voice := writeTone(t, dir, "voice.wav", 2, 300, -16)
	bed := writeTone(t, dir, "bed.wav", 1.3, 90, -14)
	hit := writeTone(t, dir, "hit.wav", 0.4, 60, -10)
	return loadTimeline(t, fmt.Sprintf(`{
	  "project": {"duration": 6},
	  "tracks": [
	    {"id": "bed", "role": "music", "eq_preset": "flat",
	     "clips": [{"file": %q, "start": 0, "loop": true, "fade_in": 1}]},
	    {"id": "fx", "role": "sfx", "semantic_role": "impact", "eq_preset": "flat",
	     "clips": [{"file": %q, "start": 3.5}]},
	    {"id": "vo", "role": "voice", "eq_preset": "flat",
	     "clips": [{"file": %q, "start": 1}, {"file": %q, "start": 3.6}]}
	  ],
	  "settings": %s
	}`, bed, hit, voice, voice, settings))
}

func renderBoth(t *testing.T, tl *timeline.Timeline, dir string, tweak func(*render.Context)) (batch, stream *audio.Buffer, bres, sres *render.Result) {
	t.Helper()
	run := func(r render.Renderer, name string) (*audio.Buffer, *render.Result) {
		rc := testContext(tl)
		if tweak != nil {
			tweak(rc)
		}
		job := plan(t, rc, tl)
		out := filepath.Join(dir, name)
		res, err := r.Render(context.Background(), rc, job, out)
		require.NoError(t, err)
		b, err := audio.ReadAll(out, testFormat)
		require.NoError(t, err)
		return b, res
	}
	batch, bres = run(render.Batch{}, "batch.wav")
	stream, sres = run(Renderer{}, "stream.wav")
	return batch, stream, bres, sres
}

func assertEquivalent(t *testing.T, batch, stream *audio.Buffer) {
	t.Helper()
	tolerance := int(audio.FramesFor(0.005, testRate))
	assert.InDelta(t, batch.Frames(), stream.Frames(), float64(tolerance), "length")
	assert.InDelta(t, dsp.IntegratedLoudness(batch), dsp.IntegratedLoudness(stream), 1.0, "loudness")
	assert.Less(t, meanAbsError(batch, stream), 0.02, "mean absolute error")
}

func TestRenderer_MatchesBatch(t *testing.T) {
	settings := []struct {
		name string
		doc  string
	}{
		{"plain", `{"ducking": {"enabled": true, "rules": [{"when": "voice", "duck": ["music"]}]}}`},
		{"loudness", `{"loudness": {"enabled": true, "target_lufs": -16},
		               "master_fade_out": {"enabled": true, "duration": 2, "curve": "exponential"}}`},
		{"peak", `{"normalize": true, "master_gain": -3}`},
	}
	for _, s := range settings {
		t.Run(s.name, func(t *testing.T) {
			dir := t.TempDir()
			tl := mixTimeline(t, dir, s.doc)
			batch, stream, bres, sres := renderBoth(t, tl, dir, func(rc *render.Context) {
				rc.Config = rc.Config.WithChunkSize(0.25).WithMaxWorkers(3)
			})

			assertEquivalent(t, batch, stream)
			assert.Equal(t, bres.Strategy, sres.Strategy)
			require.Len(t, sres.Tracks, 3)
			for i := range bres.Tracks {
				assert.Equal(t, bres.Tracks[i].ID, sres.Tracks[i].ID)
				assert.InDelta(t, bres.Tracks[i].GainDB, sres.Tracks[i].GainDB, 0.01, "track %s", bres.Tracks[i].ID)
			}
		})
	}
}

func TestRenderer_MatchesBatchWithFilters(t *testing.T) {
	dir := t.TempDir()
	voice := writeTone(t, dir, "voice.wav", 2, 1000, -18)
	bed := writeTone(t, dir, "bed.wav", 2, 500, -20)
	tl := loadTimeline(t, fmt.Sprintf(`{
	  "project": {"duration": 4},
	  "tracks": [
	    {"id": "bed", "role": "music", "clips": [{"file": %q, "start": 0, "loop": true}]},
	    {"id": "vo", "role": "voice", "clips": [{"file": %q, "start": 1}]}
	  ],
	  "settings": {"eq": {"tilt": "warm"}}
	}`, bed, voice))

	batch, stream, _, _ := renderBoth(t, tl, dir, nil)
	assertEquivalent(t, batch, stream)
}

// With the role default presets the whole-file renderer filters zero-phase
// and the chunked renderer filters causally, so waveforms drift apart in
// phase while length, loudness and level stay put.
func TestRenderer_DefaultPresetsMatchBatchLevels(t *testing.T) {
	dir := t.TempDir()
	voice := writeTone(t, dir, "voice.wav", 2, 300, -16)
	bed := writeTone(t, dir, "bed.wav", 1.3, 90, -14)
	hit := writeTone(t, dir, "hit.wav", 0.4, 60, -10)
	tl := loadTimeline(t, fmt.Sprintf(`{
	  "project": {"duration": 6},
	  "tracks": [
	    {"id": "bed", "role": "music", "clips": [{"file": %q, "start": 0, "loop": true, "fade_in": 1}]},
	    {"id": "fx", "role": "sfx", "semantic_role": "impact", "clips": [{"file": %q, "start": 3.5}]},
	    {"id": "vo", "role": "voice", "clips": [{"file": %q, "start": 1}, {"file": %q, "start": 3.6}]}
	  ],
	  "settings": {
	    "loudness": {"enabled": true, "target_lufs": -18},
	    "ducking": {"enabled": true, "rules": [{"when": "voice", "duck": ["music"]}]},
	    "eq": {"tilt": "bright"}
	  }
	}`, bed, hit, voice, voice))

	batch, stream, bres, sres := renderBoth(t, tl, dir, func(rc *render.Context) {
		rc.Config = rc.Config.WithChunkSize(0.25)
	})

	assert.Equal(t, batch.Frames(), stream.Frames())
	assert.Equal(t, bres.Frames, sres.Frames)
	assert.InDelta(t, dsp.IntegratedLoudness(batch), dsp.IntegratedLoudness(stream), 0.5, "loudness")
	assert.InDelta(t, -18.0, sres.Master.FinalLUFS, 0.5)
	assert.InDelta(t, audio.LinearToDB(batch.Peak()), audio.LinearToDB(stream.Peak()), 1.5, "peak")
	assert.Zero(t, bres.ClippedSamples)
	assert.Zero(t, sres.ClippedSamples)
}

func TestRenderer_RollingEstimator(t *testing.T) {
	dir := t.TempDir()
	tl := mixTimeline(t, dir, `{"loudness": {"enabled": true, "target_lufs": -20},
	                            "streaming": {"rolling_estimator": true}}`)
	rc := testContext(tl)
	job := plan(t, rc, tl)

	res, err := Renderer{}.Render(context.Background(), rc, job, filepath.Join(dir, "out.wav"))
	require.NoError(t, err)

	assert.Equal(t, timeline.StrategyRolling, res.Strategy)
	assert.False(t, math.IsInf(res.Master.MeasuredLUFS, 0))
	assert.InDelta(t, -20.0, res.Master.FinalLUFS, 3.0, "causal estimate lands near the target")
	names := make([]string, len(res.Passes))
	for i, p := range res.Passes {
		names[i] = p.Name
	}
	assert.Equal(t, []string{render.PassAnalysing, render.PassRendering}, names)
}

func TestRenderer_TwoPassTempFile(t *testing.T) {
	for _, keep := range []bool{false, true} {
		t.Run(fmt.Sprintf("keep=%v", keep), func(t *testing.T) {
			dir := t.TempDir()
			tl := mixTimeline(t, dir, `{"loudness": {"enabled": true, "target_lufs": -18}}`)
			rc := testContext(tl)
			rc.Config = rc.Config.WithKeepTemp(keep)
			job := plan(t, rc, tl)
			out := filepath.Join(dir, "out.wav")

			var passes []string
			rc.Progress = func(pass int, name string, progress, _ float64) {
				if progress == 0 {
					passes = append(passes, name)
					assert.Equal(t, len(passes), pass)
				}
			}
			res, err := Renderer{}.Render(context.Background(), rc, job, out)
			require.NoError(t, err)

			assert.Equal(t, []string{render.PassAnalysing, render.PassMeasuring, render.PassRendering}, passes)
			assert.InDelta(t, -18.0, res.Master.FinalLUFS, 0.2)

			tmp := tempPath(out, rc.ID)
			_, err = os.Stat(tmp)
			if !keep {
				assert.True(t, os.IsNotExist(err))
				return
			}
			require.NoError(t, err)
			src, err := audio.Open(tmp)
			require.NoError(t, err)
			meta := src.Metadata()
			require.NoError(t, src.Close())
			assert.Equal(t, "f32", meta.SampleFmt)
			assert.Equal(t, job.Frames, meta.Frames)

			kept, err := audio.ReadAll(tmp, measureFormat(testFormat))
			require.NoError(t, err)
			assert.InDelta(t, dsp.IntegratedLoudness(kept), res.Master.MeasuredLUFS, 0.01,
				"loudness gain comes from the measurement file")
		})
	}
}

func TestRenderer_PeakNormalizeAboveFullScale(t *testing.T) {
	dir := t.TempDir()
	tl := mixTimeline(t, dir, `{"normalize": true, "master_gain": 20}`)
	rc := testContext(tl)
	job := plan(t, rc, tl)

	res, err := Renderer{}.Render(context.Background(), rc, job, filepath.Join(dir, "out.wav"))
	require.NoError(t, err)

	assert.Greater(t, res.Master.PeakDBFS, 0.0, "pre-master mix is measured unclamped")
	assert.InDelta(t, rc.Config.PeakTargetDBFS, res.Master.FinalPeak, 0.1)
	assert.Zero(t, res.ClippedSamples)
}

func TestRenderer_OutputFailureIsFileError(t *testing.T) {
	dir := t.TempDir()
	tl := mixTimeline(t, dir, `{}`)
	rc := testContext(tl)
	job := plan(t, rc, tl)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Renderer{}.Render(context.Background(), rc, job, filepath.Join(blocker, "out.wav"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFile))
}

func TestRenderer_Cancelled(t *testing.T) {
	dir := t.TempDir()
	tl := mixTimeline(t, dir, `{}`)
	rc := testContext(tl)
	job := plan(t, rc, tl)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Renderer{}.Render(ctx, rc, job, filepath.Join(dir, "out.wav"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderer_ThroughOrchestrator(t *testing.T) {
	dir := t.TempDir()
	tl := mixTimeline(t, dir, `{"streaming": {"enabled": true, "chunk_size_sec": 0.5}}`)
	rc := testContext(tl)

	res, err := render.NewOrchestrator(Renderer{}).Run(context.Background(), rc, tl, filepath.Join(dir, "out.wav"))
	require.NoError(t, err)
	assert.Equal(t, "streaming", res.Renderer)
	assert.Equal(t, int64(6*testRate), res.Frames)
}

func TestTempPath(t *testing.T) {
	assert.Equal(t, "/tmp/mix.0123abcd.tmp.wav", tempPath("/tmp/mix.wav", "0123abcd-ffff"))
}
