package timeline

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linuxmatters/jivemix/internal/errors"
)

// Load reads a timeline document from a .json, .yaml, or .yml file. A
// missing, unreadable, or syntactically invalid file is a FILE error; a
// document with the wrong shape is a TIMELINE error.
func Load(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, errors.CodeFile, "timeline file not found: %s", path)
		}
		return nil, errors.Wrapf(err, errors.CodeFile, "failed to read timeline file: %s", path)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeFile, "invalid timeline document %s", path)
	}
	if raw == nil {
		return nil, errors.Filef("empty timeline document: %s", path)
	}

	t, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode builds a Timeline from a generic document tree, filling settings
// defaults and validating the result.
func Decode(raw map[string]any) (*Timeline, error) {
	var rawSettings map[string]any
	switch s := raw["settings"].(type) {
	case nil:
	case map[string]any:
		rawSettings = s
	default:
		return nil, errors.Timelinef("settings must be an object, got %T", s)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTimeline, "timeline cannot be encoded")
	}

	t := &Timeline{Settings: DefaultSettings(), rawSettings: rawSettings}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, errors.Wrap(err, errors.CodeTimeline, "malformed timeline")
	}

	if err := newValidator().check(t); err != nil {
		return nil, err
	}
	return t, nil
}
