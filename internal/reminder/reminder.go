// Package reminder defines reminder definitions, the user's location
// settings, and the stores that persist both.
package reminder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/brettz9/sundriven/internal/geo"
	"github.com/brettz9/sundriven/internal/solar"
	"github.com/brettz9/sundriven/internal/timemath"
)

// Frequency says whether a reminder repeats.
type Frequency string

const (
	Daily   Frequency = "daily"
	OneTime Frequency = "one-time"
)

// EventNow anchors a reminder to the moment it is scheduled.
const EventNow = "now"

var (
	ErrNotFound      = errors.New("reminder not found")
	ErrDuplicateName = errors.New("please supply a unique name")
	ErrInvalid       = errors.New("invalid reminder")
)

// Reminder is one user-defined notification rule.
type Reminder struct {
	Name             string            `json:"name" yaml:"name"`
	Enabled          bool              `json:"enabled" yaml:"enabled"`
	Frequency        Frequency         `json:"frequency" yaml:"frequency"`
	RelativeEvent    string            `json:"relativeEvent" yaml:"relativeEvent"`
	Minutes          string            `json:"minutes" yaml:"minutes"`
	RelativePosition timemath.Position `json:"relativePosition" yaml:"relativePosition"`
}

// Default is the template a new reminder starts from.
func Default() Reminder {
	return Reminder{
		Enabled:          true,
		Frequency:        Daily,
		RelativeEvent:    EventNow,
		Minutes:          "60",
		RelativePosition: timemath.After,
	}
}

// Validate checks every field. Errors wrap ErrInvalid.
func (r Reminder) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalid)
	}
	switch r.Frequency {
	case Daily, OneTime:
	default:
		return fmt.Errorf("%w: frequency %q", ErrInvalid, r.Frequency)
	}
	if r.IsAstronomical() {
		if _, err := solar.ParseEvent(r.RelativeEvent); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if _, err := timemath.ParsePosition(string(r.RelativePosition)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := r.Offset(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// IsAstronomical reports whether the reminder is anchored to a solar event.
func (r Reminder) IsAstronomical() bool {
	return r.RelativeEvent != EventNow
}

// Event returns the solar event of an astronomical reminder.
func (r Reminder) Event() (solar.Event, error) {
	return solar.ParseEvent(r.RelativeEvent)
}

// Offset parses Minutes.
func (r Reminder) Offset() (float64, error) {
	return timemath.ParseMinutes(r.Minutes)
}

// UnmarshalJSON accepts "enabled" as a boolean or the strings "true" and
// "false", and "minutes" as a number or a string, which is how older
// browser-side storage wrote them.
func (r *Reminder) UnmarshalJSON(b []byte) error {
	type plain Reminder
	var raw struct {
		plain
		Enabled json.RawMessage `json:"enabled"`
		Minutes json.RawMessage `json:"minutes"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Reminder(raw.plain)
	switch en := string(bytes.TrimSpace(raw.Enabled)); en {
	case "", "null":
		r.Enabled = false
	case "true", `"true"`:
		r.Enabled = true
	case "false", `"false"`:
		r.Enabled = false
	default:
		return fmt.Errorf("enabled: unexpected value %s", en)
	}
	m := bytes.TrimSpace(raw.Minutes)
	switch {
	case len(m) == 0 || string(m) == "null":
		r.Minutes = ""
	case m[0] == '"':
		if err := json.Unmarshal(m, &r.Minutes); err != nil {
			return fmt.Errorf("minutes: %w", err)
		}
	default:
		var f float64
		if err := json.Unmarshal(m, &f); err != nil {
			return fmt.Errorf("minutes: %w", err)
		}
		r.Minutes = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return nil
}

// Set maps reminder names to definitions.
type Set map[string]Reminder

// Names returns the keys in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Settings are the user's location preferences.
type Settings struct {
	GeolocUsage geo.Policy `json:"geoloc-usage" yaml:"geolocUsage"`
	Latitude    string     `json:"latitude" yaml:"latitude"`
	Longitude   string     `json:"longitude" yaml:"longitude"`
}

// Policy returns the stored policy, or geo.DefaultPolicy when unset.
func (s Settings) Policy() geo.Policy {
	if s.GeolocUsage == "" {
		return geo.DefaultPolicy
	}
	return s.GeolocUsage
}

// Manual returns the manual coordinates as entered.
func (s Settings) Manual() geo.Manual {
	return geo.Manual{Latitude: s.Latitude, Longitude: s.Longitude}
}

// Validate checks the policy. Manual coordinates may be left blank or
// invalid; that only matters when they are needed.
func (s Settings) Validate() error {
	if _, err := geo.ParsePolicy(string(s.GeolocUsage)); err != nil {
		return err
	}
	return nil
}
