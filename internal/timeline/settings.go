package timeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/linuxmatters/jivemix/internal/dsp"
)

// Defaults for settings and scene rules.
const (
	DefaultSceneEnergy        = 0.5
	DefaultCrossfadeTolerance = 0.05 // seconds
	DefaultPeakTargetDBFS     = -1.0
)

// Ducking modes. "audacity" is accepted as an alias of envelope.
const (
	DuckModeEnvelope = "envelope"
	DuckModeAudacity = "audacity"
	DuckModeScene    = "scene"
)

// Settings are the global render defaults of a timeline. Scene rules
// override them key by key.
type Settings struct {
	Ducking             DuckingSettings     `json:"ducking"`
	DialogueCompression CompressionSettings `json:"dialogue_compression"`
	Loudness            LoudnessSettings    `json:"loudness"`
	Normalize           bool                `json:"normalize"`
	MasterGain          float64             `json:"master_gain" validate:"gte=-60,lte=24"`
	DefaultSilence      float64             `json:"default_silence" validate:"gte=0"`
	MasterFadeOut       FadeOutSettings     `json:"master_fade_out"`
	SceneCrossfade      CrossfadeSettings   `json:"scene_crossfade"`
	EQ                  TonalSettings       `json:"eq"`
	Mains               MainsSettings       `json:"mains"`
	Streaming           StreamingSettings   `json:"streaming"`
}

// DuckingSettings configures ducking.
type DuckingSettings struct {
	Enabled      bool       `json:"enabled"`
	Mode         string     `json:"mode" validate:"oneof=envelope audacity scene"`
	DuckAmount   float64    `json:"duck_amount" validate:"gte=-60,lte=0"`
	FadeDownMs   float64    `json:"fade_down_ms" validate:"gte=0"`
	FadeUpMs     float64    `json:"fade_up_ms" validate:"gte=0"`
	MinPauseMs   float64    `json:"min_pause_ms" validate:"gte=0"`
	OnsetDelayMs float64    `json:"onset_delay_ms" validate:"gte=0"`
	Rules        []DuckRule `json:"rules" validate:"dive"`
}

// DuckRule ducks the Duck roles while When is sounding.
type DuckRule struct {
	When string   `json:"when" validate:"required"`
	Duck []string `json:"duck" validate:"required,min=1,dive,required"`
}

// EnvelopeMode reports whether ducking follows the trigger envelope rather
// than a flat scene trim.
func (d DuckingSettings) EnvelopeMode() bool {
	return d.Mode == DuckModeEnvelope || d.Mode == DuckModeAudacity
}

// Params converts the settings to envelope parameters.
func (d DuckingSettings) Params() dsp.DuckParams {
	return dsp.DuckParams{
		AmountDB:     d.DuckAmount,
		FadeDownMs:   d.FadeDownMs,
		FadeUpMs:     d.FadeUpMs,
		MinPauseMs:   d.MinPauseMs,
		OnsetDelayMs: d.OnsetDelayMs,
	}
}

// CompressionSettings configures dialogue compression.
type CompressionSettings struct {
	Enabled    bool    `json:"enabled"`
	Threshold  float64 `json:"threshold" validate:"lte=0"`
	Ratio      float64 `json:"ratio" validate:"gte=1"`
	AttackMs   float64 `json:"attack_ms" validate:"gt=0"`
	ReleaseMs  float64 `json:"release_ms" validate:"gt=0"`
	MakeupGain float64 `json:"makeup_gain" validate:"gte=0,lte=24"`
}

// Params converts the settings to compressor parameters.
func (c CompressionSettings) Params() dsp.CompressorParams {
	return dsp.CompressorParams{
		ThresholdDB:  c.Threshold,
		Ratio:        c.Ratio,
		AttackMs:     c.AttackMs,
		ReleaseMs:    c.ReleaseMs,
		MakeupGainDB: c.MakeupGain,
	}
}

// LoudnessSettings configures master loudness targeting.
type LoudnessSettings struct {
	Enabled    bool    `json:"enabled"`
	TargetLUFS float64 `json:"target_lufs" validate:"gte=-70,lte=0"`
}

// FadeOutSettings configures the master fade-out.
type FadeOutSettings struct {
	Enabled  bool    `json:"enabled"`
	Duration float64 `json:"duration" validate:"gte=0"`
	Curve    string  `json:"curve" validate:"omitempty,oneof=linear logarithmic exponential"`
}

// CrossfadeSettings configures fades between touching scene clips.
type CrossfadeSettings struct {
	Enabled  bool    `json:"enabled"`
	Duration float64 `json:"duration" validate:"gte=0"`
}

// TonalSettings is broad tonal shaping of the final mix. An unknown tilt is
// reported at render time and skipped.
type TonalSettings struct {
	Tilt      string  `json:"tilt,omitempty"`
	HighShelf float64 `json:"high_shelf,omitempty" validate:"gte=-6,lte=6"`
	LowShelf  float64 `json:"low_shelf,omitempty" validate:"gte=-6,lte=6"`
}

// Tonal converts the settings to the DSP shaping description.
func (t TonalSettings) Tonal() dsp.Tonal {
	return dsp.Tonal{Tilt: t.Tilt, HighShelf: t.HighShelf, LowShelf: t.LowShelf}
}

// MainsSettings selects the dehum fundamental.
type MainsSettings struct {
	Frequency MainsFrequency `json:"frequency" validate:"oneof=auto 50 60 off"`
}

// MainsFrequency is "auto", "50", "60", or "off". Documents may write the
// numbers bare.
type MainsFrequency string

// UnmarshalJSON accepts a string or a number.
func (m *MainsFrequency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MainsFrequency(strings.ToLower(strings.TrimSpace(s)))
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("mains frequency must be auto, 50, 60, or off")
	}
	*m = MainsFrequency(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// StreamingSettings configures the chunked renderer.
type StreamingSettings struct {
	Enabled          bool    `json:"enabled"`
	ChunkSizeSec     float64 `json:"chunk_size_sec" validate:"gt=0,lte=600"`
	MaxWorkers       int     `json:"max_workers" validate:"gte=1,lte=64"`
	TwoPassLUFS      bool    `json:"two_pass_lufs"`
	RollingEstimator bool    `json:"rolling_estimator"`
	SampleRate       int     `json:"sample_rate" validate:"gte=8000,lte=192000"`
	Channels         int     `json:"channels" validate:"gte=1,lte=8"`
	SampleWidth      int     `json:"sample_width" validate:"oneof=1 2 3 4"`
}

// DefaultSettings returns the settings used for every key a document
// leaves out.
func DefaultSettings() Settings {
	return Settings{
		Ducking: DuckingSettings{
			Mode:       DuckModeEnvelope,
			DuckAmount: -12,
			FadeDownMs: 300,
			FadeUpMs:   500,
			MinPauseMs: 300,
		},
		DialogueCompression: CompressionSettings{
			Threshold: -18,
			Ratio:     4,
			AttackMs:  10,
			ReleaseMs: 120,
		},
		Loudness:       LoudnessSettings{TargetLUFS: -20},
		MasterFadeOut:  FadeOutSettings{Duration: 10, Curve: string(dsp.CurveLinear)},
		SceneCrossfade: CrossfadeSettings{Duration: 1.5},
		Mains:          MainsSettings{Frequency: "auto"},
		Streaming: StreamingSettings{
			ChunkSizeSec: 1.0,
			MaxWorkers:   4,
			TwoPassLUFS:  true,
			SampleRate:   44100,
			Channels:     2,
			SampleWidth:  2,
		},
	}
}

// Rules are the effective settings of a scene clip: the global settings
// merged with the scene's rules, plus scene-only keys.
type Rules struct {
	Settings

	SceneID              string   `json:"scene_id,omitempty"`
	SceneStart           float64  `json:"scene_start"`
	SceneEnd             float64  `json:"scene_end"`
	SceneEnergy          float64  `json:"scene_energy" validate:"gte=0,lte=1"`
	PrevSceneEnergy      *float64 `json:"prev_scene_energy,omitempty" validate:"omitempty,gte=0,lte=1"`
	DialogueDensityLabel string   `json:"dialogue_density_label,omitempty" validate:"omitempty,oneof=low medium high"`
	EnergyRampDuration   float64  `json:"energy_ramp_duration" validate:"gte=0"` // ms
	SFXSceneEnergyGain   any      `json:"sfx_scene_energy_gain,omitempty"`

	sfxGain *dsp.GainOverride
}

// SFXGainOverride returns the parsed sfx_scene_energy_gain, nil when unset.
func (r *Rules) SFXGainOverride() *dsp.GainOverride {
	if r == nil {
		return nil
	}
	return r.sfxGain
}

func defaultRules() Rules {
	return Rules{
		Settings:           DefaultSettings(),
		SceneEnergy:        DefaultSceneEnergy,
		EnergyRampDuration: dsp.DefaultEnergyRampMs,
	}
}

// mergeRules overlays scene rules on the global settings. Top-level keys
// are replaced, except nested objects, which merge key by key.
func mergeRules(global, scene map[string]any) map[string]any {
	merged := make(map[string]any, len(global)+len(scene))
	for k, v := range global {
		if m, ok := v.(map[string]any); ok {
			merged[k] = copyMap(m)
			continue
		}
		merged[k] = v
	}
	for k, v := range scene {
		dst, dstIsMap := merged[k].(map[string]any)
		src, srcIsMap := v.(map[string]any)
		if dstIsMap && srcIsMap {
			for sk, sv := range src {
				dst[sk] = sv
			}
			continue
		}
		merged[k] = v
	}
	return merged
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// decodeSettings lays raw settings over the defaults.
func decodeSettings(raw map[string]any) (Settings, error) {
	s := DefaultSettings()
	if len(raw) == 0 {
		return s, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, err
	}
	return s, nil
}

// decodeRules lays merged raw rules over the default rules.
func decodeRules(raw map[string]any) (Rules, error) {
	r := defaultRules()
	data, err := json.Marshal(raw)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, err
	}
	if r.SFXSceneEnergyGain != nil {
		o, err := dsp.ParseGainOverride(r.SFXSceneEnergyGain)
		if err != nil {
			return r, fmt.Errorf("sfx_scene_energy_gain: %w", err)
		}
		r.sfxGain = o
	}
	return r, nil
}
