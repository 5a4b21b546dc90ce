package streaming

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/render"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

const testRate = 22050

var testFormat = audio.Format{SampleRate: testRate, Channels: 2, BitDepth: 16}

// writeTone writes a mono 16-bit sine WAV and returns its path.
func writeTone(t *testing.T, dir, name string, seconds, freq, levelDB float64) string {
	t.Helper()
	n := int(audio.FramesFor(seconds, testRate))
	b := audio.NewBuffer(testRate, 1, n)
	amp := audio.DBToLinear(levelDB)
	for i := range b.Data[0] {
		b.Data[0][i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, audio.WriteFile(path, b, audio.Format{SampleRate: testRate, Channels: 1, BitDepth: 16}))
	return path
}

// writeRamp writes a mono 16-bit file whose sample i is i/n, for checking
// source offsets.
func writeRamp(t *testing.T, dir, name string, n int) string {
	t.Helper()
	b := audio.NewBuffer(testRate, 1, n)
	for i := range b.Data[0] {
		b.Data[0][i] = float64(i) / float64(n)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, audio.WriteFile(path, b, audio.Format{SampleRate: testRate, Channels: 1, BitDepth: 16}))
	return path
}

func loadTimeline(t *testing.T, doc string) *timeline.Timeline {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &raw))
	tl, err := timeline.Decode(raw)
	require.NoError(t, err)
	return tl
}

func testContext(tl *timeline.Timeline) *render.Context {
	cfg := timeline.NewRenderConfig(tl.Settings)
	cfg.Format = testFormat
	cfg.Mains = "off"
	return render.NewContext(cfg, nil)
}

// plan prepares tl and returns the planned job.
func plan(t *testing.T, rc *render.Context, tl *timeline.Timeline) *render.Job {
	t.Helper()
	job, _, err := render.Prepare(rc, tl)
	require.NoError(t, err)
	return job
}

// renderTracks runs the processor over consecutive windows of chunk frames
// and joins the results per track.
func renderTracks(t *testing.T, rc *render.Context, job *render.Job, chunk int64) []*audio.Buffer {
	t.Helper()
	proc := NewChunkProcessor(rc, job)
	defer proc.Close()

	out := make([]*audio.Buffer, len(job.Tracks))
	for i := range out {
		out[i] = audio.NewBuffer(testRate, 2, int(job.Frames))
	}
	for t0 := int64(0); t0 < job.Frames; t0 += chunk {
		t1 := min(t0+chunk, job.Frames)
		tracks, err := proc.Tracks(context.Background(), t0, t1)
		require.NoError(t, err)
		for i, b := range tracks {
			require.Equal(t, int(t1-t0), b.Frames())
			out[i].Overlay(b, int(t0))
		}
	}
	return out
}

// meanAbsError returns the mean absolute sample difference over the
// shorter of a and b.
func meanAbsError(a, b *audio.Buffer) float64 {
	n := min(a.Frames(), b.Frames())
	var sum float64
	var count int
	for ch := range a.Data {
		for i := 0; i < n; i++ {
			sum += math.Abs(a.Data[ch][i] - b.Data[ch][i])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
