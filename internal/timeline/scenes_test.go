package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/jivemix/internal/dsp"
	"github.com/linuxmatters/jivemix/internal/errors"
)

const sceneDoc = `{
  "project": {"name": "demo", "duration": 40},
  "tracks": [
    {"id": "dialogue", "role": "voice", "clips": []},
    {"id": "music", "role": "music", "clips": []}
  ],
  "scenes": [
    {
      "id": "outro", "start": 20, "duration": 20, "energy": 0.9,
      "tracks": {"music": [{"file": "bed.wav", "offset": 0, "loop": true}]}
    },
    {
      "id": "intro", "start": 0, "duration": 20, "energy": 0.2,
      "rules": {"ducking": {"fade_up_ms": 900}},
      "tracks": {
        "music": [{"file": "bed.wav", "offset": 0, "loop": true}],
        "dialogue": [{"file": "hello.wav", "offset": 2.5}]
      }
    }
  ],
  "settings": {"ducking": {"enabled": true, "duck_amount": -10}}
}`

func TestExpandScenes_PlacesClipsWithRules(t *testing.T) {
	tl := decodeJSON(t, sceneDoc)

	require.NoError(t, ExpandScenes(tl, durations{"bed.wav": 30, "hello.wav": 3}.lookup))

	dialogue := tl.Track("dialogue").Clips
	require.Len(t, dialogue, 1)
	assert.InDelta(t, 2.5, dialogue[0].StartSec(), 1e-9)
	require.NotNil(t, dialogue[0].Rules)
	assert.Equal(t, "intro", dialogue[0].Rules.SceneID)

	music := tl.Track("music").Clips
	require.Len(t, music, 2)
	intro, outro := music[0], music[1]
	assert.InDelta(t, 0.0, intro.StartSec(), 1e-9)
	assert.InDelta(t, 20.0, *intro.LoopUntil, 1e-9)
	assert.InDelta(t, 20.0, outro.StartSec(), 1e-9)
	assert.InDelta(t, 40.0, *outro.LoopUntil, 1e-9)

	assert.InDelta(t, 0.2, intro.Rules.SceneEnergy, 1e-9)
	assert.Nil(t, intro.Rules.PrevSceneEnergy)
	assert.InDelta(t, 0.9, outro.Rules.SceneEnergy, 1e-9)
	require.NotNil(t, outro.Rules.PrevSceneEnergy)
	assert.InDelta(t, 0.2, *outro.Rules.PrevSceneEnergy, 1e-9)
	assert.InDelta(t, 20.0, outro.Rules.SceneStart, 1e-9)
	assert.InDelta(t, 40.0, outro.Rules.SceneEnd, 1e-9)
}

func TestExpandScenes_MergesRulesKeyByKey(t *testing.T) {
	tl := decodeJSON(t, sceneDoc)
	require.NoError(t, ExpandScenes(tl, durations{"bed.wav": 30, "hello.wav": 3}.lookup))

	intro := tl.Track("music").Clips[0].Rules
	assert.True(t, intro.Ducking.Enabled, "global key survives")
	assert.InDelta(t, -10.0, intro.Ducking.DuckAmount, 1e-9)
	assert.InDelta(t, 900.0, intro.Ducking.FadeUpMs, 1e-9, "scene key overrides")
	assert.InDelta(t, 300.0, intro.Ducking.FadeDownMs, 1e-9, "default fills the rest")
	assert.InDelta(t, dsp.DefaultEnergyRampMs, intro.EnergyRampDuration, 1e-9)

	outro := tl.Track("music").Clips[1].Rules
	assert.InDelta(t, 500.0, outro.Ducking.FadeUpMs, 1e-9, "rules do not leak between scenes")
}

func TestExpandScenes_Idempotent(t *testing.T) {
	tl := decodeJSON(t, sceneDoc)
	dur := durations{"bed.wav": 30, "hello.wav": 3}.lookup

	require.NoError(t, ExpandScenes(tl, dur))
	require.NoError(t, ExpandScenes(tl, dur))

	assert.Len(t, tl.Track("music").Clips, 2)
}

func TestExpandScenes_NoScenes(t *testing.T) {
	tl := decodeJSON(t, `{
	  "project": {"duration": 10},
	  "tracks": [{"id": "dialogue", "role": "voice", "clips": [{"file": "a.wav", "start": 1}]}]
	}`)

	require.NoError(t, ExpandScenes(tl, durations{}.lookup))

	require.Len(t, tl.Tracks[0].Clips, 1)
	assert.Nil(t, tl.Tracks[0].Clips[0].Rules)
}

func TestExpandScenes_UnknownTrack(t *testing.T) {
	tl := decodeJSON(t, `{
	  "project": {"duration": 10},
	  "tracks": [{"id": "music", "role": "music", "clips": []}],
	  "scenes": [
	    {"start": 0, "duration": 5, "tracks": {"music": [{"file": "bed.wav"}]}},
	    {"start": 5, "duration": 5, "tracks": {"drums": [{"file": "kit.wav"}]}}
	  ]
	}`)

	err := ExpandScenes(tl, durations{"bed.wav": 5}.lookup)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTimeline))
	assert.Contains(t, err.Error(), "drums")
	assert.Empty(t, tl.Track("music").Clips, "nothing is added on failure")
}

func TestExpandScenes_Crossfade(t *testing.T) {
	tl := decodeJSON(t, `{
	  "project": {"duration": 20},
	  "tracks": [{"id": "music", "role": "music", "clips": []}],
	  "scenes": [
	    {"id": "a", "start": 0, "duration": 10, "tracks": {"music": [{"file": "a.wav", "loop": true}]}},
	    {"id": "b", "start": 10, "duration": 10, "tracks": {"music": [{"file": "b.wav", "loop": true}]}}
	  ],
	  "settings": {"scene_crossfade": {"enabled": true, "duration": 1}}
	}`)
	dur := durations{"a.wav": 4, "b.wav": 4}.lookup

	require.NoError(t, ExpandScenes(tl, dur))

	clips := tl.Track("music").Clips
	require.Len(t, clips, 2)
	first, second := clips[0], clips[1]

	require.NotNil(t, first.FadeOut)
	assert.InDelta(t, 1.0, first.FadeOut.Duration, 1e-9)
	require.NotNil(t, second.FadeIn)
	assert.InDelta(t, 1.0, second.FadeIn.Duration, 1e-9)
	assert.InDelta(t, 9.0, second.StartSec(), 1e-9)

	// Overlap fixing leaves the crossfade in place
	require.NoError(t, AutoFix(tl.Track("music"), 0, dur))
	assert.InDelta(t, 9.0, second.StartSec(), 1e-9)
}

func TestMergeRules_DoesNotMutateGlobal(t *testing.T) {
	global := map[string]any{
		"ducking":     map[string]any{"enabled": true, "duck_amount": -12.0},
		"master_gain": 0.0,
	}
	scene := map[string]any{
		"ducking":     map[string]any{"duck_amount": -6.0},
		"master_gain": 2.0,
	}

	merged := mergeRules(global, scene)

	assert.Equal(t, map[string]any{"enabled": true, "duck_amount": -6.0}, merged["ducking"])
	assert.Equal(t, 2.0, merged["master_gain"])
	assert.Equal(t, -12.0, global["ducking"].(map[string]any)["duck_amount"])
}

func TestDecodeRules_SFXGainOverride(t *testing.T) {
	r, err := decodeRules(map[string]any{"sfx_scene_energy_gain": []any{-3.0, 3.0}})
	require.NoError(t, err)
	require.NotNil(t, r.SFXGainOverride())

	_, err = decodeRules(map[string]any{"sfx_scene_energy_gain": "loud"})
	assert.Error(t, err)

	var none *Rules
	assert.Nil(t, none.SFXGainOverride())
}
