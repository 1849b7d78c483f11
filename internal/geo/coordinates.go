// Package geo resolves the coordinates astronomical reminders are computed
// for, either from manually entered values or from a live location source,
// according to a user policy.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinates is a position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Latitude, c.Longitude)
}

// Manual holds the manually entered coordinates exactly as typed.
type Manual struct {
	Latitude  string `json:"latitude" yaml:"latitude"`
	Longitude string `json:"longitude" yaml:"longitude"`
}

// Coordinates parses m. Both fields must be finite numbers.
func (m Manual) Coordinates() (Coordinates, error) {
	lat, ok := parseFinite(m.Latitude)
	if !ok {
		return Coordinates{}, fmt.Errorf("%w: latitude %q", ErrInvalidManualCoordinates, m.Latitude)
	}
	lng, ok := parseFinite(m.Longitude)
	if !ok {
		return Coordinates{}, fmt.Errorf("%w: longitude %q", ErrInvalidManualCoordinates, m.Longitude)
	}
	return Coordinates{Latitude: lat, Longitude: lng}, nil
}

// ManualFrom formats c for storage as manual coordinates.
func ManualFrom(c Coordinates) Manual {
	return Manual{
		Latitude:  strconv.FormatFloat(c.Latitude, 'f', -1, 64),
		Longitude: strconv.FormatFloat(c.Longitude, 'f', -1, 64),
	}
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Policy selects where coordinates come from.
type Policy string

const (
	// PolicyNever only uses manual coordinates.
	PolicyNever Policy = "never"
	// PolicyWhenAvailable prefers the live source and falls back to manual.
	PolicyWhenAvailable Policy = "when-available"
	// PolicyAlways only uses the live source.
	PolicyAlways Policy = "always"
)

// DefaultPolicy is used when no policy was stored.
const DefaultPolicy = PolicyWhenAvailable

// ParsePolicy validates s. The empty string yields DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyNever, PolicyWhenAvailable, PolicyAlways:
		return p, nil
	case "":
		return DefaultPolicy, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}
