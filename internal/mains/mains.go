// Package mains resolves the electrical mains frequency that the dehum
// notch targets, either from an explicit setting or from the system
// timezone.
package mains

import (
	"fmt"
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Setting values accepted by Resolve.
const (
	Auto = "auto"
	Off  = "off"
)

// FallbackHz is used when the timezone says nothing useful.
const FallbackHz = 50

// Resolution is a resolved mains frequency and where it came from.
type Resolution struct {
	Hz     int    // 0 when dehum is off
	Source string // "setting", "timezone <name>", "fallback", or "off"
}

// Resolve turns a mains setting ("auto", "50", "60", "off", or empty for
// auto) into a frequency. Auto detects from the local timezone.
func Resolve(setting string) (Resolution, error) {
	return resolve(setting, tzlocal.RuntimeTZ)
}

func resolve(setting string, localTZ func() (string, error)) (Resolution, error) {
	switch s := strings.ToLower(strings.TrimSpace(setting)); s {
	case Off:
		return Resolution{Source: Off}, nil
	case "50", "60":
		hz := 50
		if s == "60" {
			hz = 60
		}
		return Resolution{Hz: hz, Source: "setting"}, nil
	case "", Auto:
		name, err := localTZ()
		if err != nil || name == "" {
			return Resolution{Hz: FallbackHz, Source: "fallback"}, nil
		}
		return Resolution{Hz: FrequencyForTimezone(name), Source: "timezone " + name}, nil
	default:
		return Resolution{}, fmt.Errorf("unknown mains frequency %q (valid: auto, 50, 60, off)", setting)
	}
}

// FrequencyForTimezone returns the mains frequency for an IANA timezone,
// 50 Hz when the zone has no country or the country is unknown.
func FrequencyForTimezone(timezone string) int {
	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return FallbackHz
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return FallbackHz
	}
	country, err := tzMap.GetCountry(timezone)
	if err != nil {
		return FallbackHz
	}
	if hz60Countries[country] {
		return 60
	}
	// Japan is split by region; the Tokyo side is 50 Hz
	return FallbackHz
}

// hz60Countries lists countries on 60 Hz mains. Everywhere else is 50 Hz.
var hz60Countries = map[string]bool{
	"United States": true,
	"Canada":        true,
	"Mexico":        true,

	"Belize":      true,
	"Costa Rica":  true,
	"El Salvador": true,
	"Guatemala":   true,
	"Honduras":    true,
	"Nicaragua":   true,
	"Panama":      true,

	"Bahamas":             true,
	"Barbados":            true,
	"Cayman Islands":      true,
	"Cuba":                true,
	"Dominican Republic":  true,
	"Haiti":               true,
	"Jamaica":             true,
	"Puerto Rico":         true,
	"Trinidad and Tobago": true,
	"U.S. Virgin Islands": true,

	"Brazil":    true, // mixed, 60 Hz predominant
	"Colombia":  true,
	"Ecuador":   true,
	"Guyana":    true,
	"Peru":      true,
	"Suriname":  true,
	"Venezuela": true,

	"South Korea":  true,
	"Taiwan":       true,
	"Philippines":  true,
	"Saudi Arabia": true,

	"Guam":             true,
	"American Samoa":   true,
	"Marshall Islands": true,
	"Micronesia":       true,
	"Palau":            true,
}
