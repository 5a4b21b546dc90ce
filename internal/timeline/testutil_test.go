package timeline

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// durations is a DurationFunc backed by a map; unknown paths fail like a
// missing file.
type durations map[string]float64

func (d durations) lookup(path string) (float64, error) {
	if v, ok := d[path]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("audio file not found: %s", path)
}

// decodeJSON decodes a timeline document literal.
func decodeJSON(t *testing.T, doc string) *Timeline {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &raw))
	tl, err := Decode(raw)
	require.NoError(t, err)
	return tl
}

func ptr(v float64) *float64 { return &v }

func placed(file string, start float64) *Clip {
	return &Clip{File: file, Start: ptr(start)}
}
