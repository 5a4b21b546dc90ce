package logging

import (
	"fmt"
	"math"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// MissingValue stands in for a level that was not measured.
const MissingValue = "-"

const (
	// silenceFloorDBFS is where sample peaks stop being worth printing.
	silenceFloorDBFS = -120.0
	// lufsGateFloor is the BS.1770 absolute gate.
	lufsGateFloor = -70.0
)

// levelTable renders master levels as measured, gain and final columns.
type levelTable struct {
	tw table.Writer
}

func newLevelTable() *levelTable {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"", "Measured", "Gain", "Final", "", ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return &levelTable{tw: tw}
}

// add appends one level. A NaN measured or gain value prints as
// MissingValue, which is how disabled stages show up.
func (t *levelTable) add(label string, measured, gain, final float64, format func(float64) string, unit, note string) {
	t.tw.AppendRow(table.Row{label, format(measured), formatSigned(gain, 1), format(final), unit, note})
}

func (t *levelTable) String() string {
	return t.tw.Render() + "\n"
}

func formatNumber(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingValue
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func formatSigned(v float64, decimals int) string {
	s := formatNumber(v, decimals)
	if s != MissingValue && v >= 0 {
		return "+" + s
	}
	return s
}

// formatPeak prints a dBFS level, collapsing digital silence.
func formatPeak(v float64) string {
	if math.IsInf(v, -1) || (!math.IsNaN(v) && v <= silenceFloorDBFS) {
		return fmt.Sprintf("< %.0f", silenceFloorDBFS)
	}
	return formatNumber(v, 1)
}

// formatLUFS prints an integrated loudness, collapsing anything under
// the gate.
func formatLUFS(v float64) string {
	if !math.IsNaN(v) && v < lufsGateFloor {
		return fmt.Sprintf("< %.0f", lufsGateFloor)
	}
	return formatNumber(v, 1)
}
