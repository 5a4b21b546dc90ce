package logging

import (
	"math"
	"strings"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		decimals int
		want     string
	}{
		{"zero", 0.0, 2, "0.00"},
		{"rounds", 3.14159, 2, "3.14"},
		{"negative", -16.5, 1, "-16.5"},
		{"nan", math.NaN(), 2, MissingValue},
		{"positive_inf", math.Inf(1), 2, MissingValue},
		{"negative_inf", math.Inf(-1), 2, MissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatNumber(tt.value, tt.decimals); got != tt.want {
				t.Errorf("formatNumber(%v, %d) = %q, want %q", tt.value, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestFormatSigned(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{2.5, "+2.5"},
		{-1.2, "-1.2"},
		{0, "+0.0"},
		{math.NaN(), MissingValue},
	}

	for _, tt := range tests {
		if got := formatSigned(tt.value, 1); got != tt.want {
			t.Errorf("formatSigned(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestFormatPeak(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"normal", -50.0, "-50.0"},
		{"above_full_scale", 2.3, "2.3"},
		{"digital_zero", math.Inf(-1), "< -120"},
		{"at_floor", -120.0, "< -120"},
		{"just_above_floor", -119.9, "-119.9"},
		{"nan", math.NaN(), MissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPeak(tt.value); got != tt.want {
				t.Errorf("formatPeak(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestFormatLUFS(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"normal", -23.0, "-23.0"},
		{"at_gate", -70.0, "-70.0"},
		{"below_gate", -163.0, "< -70"},
		{"nan", math.NaN(), MissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLUFS(tt.value); got != tt.want {
				t.Errorf("formatLUFS(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestLevelTable(t *testing.T) {
	lt := newLevelTable()
	lt.add("Integrated Loudness", -23.5, 5.5, -18.0, formatLUFS, "LUFS", "target -18.0 LUFS")
	lt.add("Sample Peak", math.NaN(), math.NaN(), -3.2, formatPeak, "dBFS", "")
	out := lt.String()

	for _, want := range []string{"Measured", "Gain", "Final", "-23.5", "+5.5", "-18.0", "target -18.0 LUFS", "-3.2"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	var peakLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Sample Peak") {
			peakLine = line
		}
	}
	if strings.Count(peakLine, MissingValue) < 3 {
		t.Errorf("disabled peak stage should show %q for measured and gain: %q", MissingValue, peakLine)
	}
}
