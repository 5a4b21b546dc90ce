// Package config loads the optional application config file. Values in
// the file sit between the built-in defaults and the command line: flags
// override the file, and a timeline's own settings override the file for
// anything that changes how the mix sounds.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/linuxmatters/jivemix/internal/timeline"
)

// FileName is the project-local config file.
const FileName = "jivemix.toml"

// Logging configures the application logger.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"` // log destination while the progress UI runs
}

// Render holds render defaults. Unset keys leave the timeline's value.
type Render struct {
	Streaming    *bool    `toml:"streaming"`
	MaxWorkers   *int     `toml:"max_workers"`
	ChunkSizeSec *float64 `toml:"chunk_size_sec"`
	KeepTemp     bool     `toml:"keep_temp"`
}

// Mains sets the default dehum fundamental.
type Mains struct {
	Frequency string `toml:"frequency"`
}

// UI configures the terminal progress view.
type UI struct {
	Enabled bool `toml:"enabled"`
}

// Config is the application config.
type Config struct {
	Logging Logging `toml:"logging"`
	Render  Render  `toml:"render"`
	Mains   Mains   `toml:"mains"`
	UI      UI      `toml:"ui"`
}

// Default returns the config used when no file exists.
func Default() Config {
	return Config{
		Logging: Logging{Level: "info", Format: "pretty", File: "jivemix.log"},
		UI:      UI{Enabled: true},
	}
}

// DefaultConfigPath returns ~/.config/jivemix/config.toml.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/jivemix/config.toml")
}

// Load reads the config at path, or the first of the user and project
// config files when path is empty. It returns the config, the path it
// resolved, and whether that file exists. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config %s: %s", resolvedPath, strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, "", false, fmt.Errorf("%s: %w", resolvedPath, err)
	}
	return &cfg, resolvedPath, exists, nil
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Mains.Frequency = strings.ToLower(strings.TrimSpace(c.Mains.Frequency))
	if c.Logging.File != "" {
		if p, err := expandPath(c.Logging.File); err == nil {
			c.Logging.File = p
		}
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "pretty", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}
	if w := c.Render.MaxWorkers; w != nil && (*w < 1 || *w > 64) {
		return fmt.Errorf("render.max_workers: %d is outside 1..64", *w)
	}
	if s := c.Render.ChunkSizeSec; s != nil && (*s <= 0 || *s > 600) {
		return fmt.Errorf("render.chunk_size_sec: %g is outside (0, 600]", *s)
	}
	switch c.Mains.Frequency {
	case "", "auto", "50", "60", "off":
	default:
		return fmt.Errorf("mains.frequency: unknown value %q (valid: auto, 50, 60, off)", c.Mains.Frequency)
	}
	return nil
}

// Apply lays the file's render defaults under tl's settings: a key is
// taken from the file only when the timeline does not set it.
func (c *Config) Apply(rc timeline.RenderConfig, tl *timeline.Timeline) timeline.RenderConfig {
	r := c.Render
	if r.Streaming != nil && !tl.Authored("streaming", "enabled") {
		rc = rc.WithStreaming(*r.Streaming)
	}
	if r.MaxWorkers != nil && !tl.Authored("streaming", "max_workers") {
		rc = rc.WithMaxWorkers(*r.MaxWorkers)
	}
	if r.ChunkSizeSec != nil && !tl.Authored("streaming", "chunk_size_sec") {
		rc = rc.WithChunkSize(*r.ChunkSizeSec)
	}
	if c.Mains.Frequency != "" && !tl.Authored("mains", "frequency") {
		rc = rc.WithMains(timeline.MainsFrequency(c.Mains.Frequency))
	}
	return rc.WithKeepTemp(rc.KeepTemp || r.KeepTemp)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(FileName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
