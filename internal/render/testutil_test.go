package render

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/jivemix/internal/audio"
	"github.com/linuxmatters/jivemix/internal/timeline"
)

const testRate = 22050

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

// loadTimeline decodes a document literal after substituting source
// paths with %q verbs.
func loadTimeline(t *testing.T, doc string) *timeline.Timeline {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &raw))
	tl, err := timeline.Decode(raw)
	require.NoError(t, err)
	return tl
}

// testContext returns a render context at the test rate for tl.
func testContext(tl *timeline.Timeline) *Context {
	cfg := timeline.NewRenderConfig(tl.Settings)
	cfg.Format = audio.Format{SampleRate: testRate, Channels: 2, BitDepth: 16}
	cfg.Mains = "off"
	return NewContext(cfg, nil)
}

// constBuffer returns a stereo buffer holding v everywhere.
func constBuffer(frames int, v float64) *audio.Buffer {
	b := audio.NewBuffer(testRate, 2, frames)
	for ch := range b.Data {
		for i := range b.Data[ch] {
			b.Data[ch][i] = v
		}
	}
	return b
}
