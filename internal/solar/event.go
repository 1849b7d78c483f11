// Package solar computes the daily astronomical events reminders can be
// anchored to and wraps the computation so callers always receive an
// occurrence that lies in the future.
package solar

import (
	"errors"
	"fmt"
)

// Event names a daily solar milestone.
type Event string

const (
	Sunrise          Event = "sunrise"
	Sunset           Event = "sunset"
	SolarNoon        Event = "solarNoon"
	CivilDawn        Event = "civilDawn"
	CivilDusk        Event = "civilDusk"
	NauticalDawn     Event = "nauticalDawn"
	NauticalDusk     Event = "nauticalDusk"
	AstronomicalDawn Event = "astronomicalDawn"
	AstronomicalDusk Event = "astronomicalDusk"
)

// Events lists every supported event in chronological order within a day.
var Events = []Event{
	AstronomicalDawn,
	NauticalDawn,
	CivilDawn,
	Sunrise,
	SolarNoon,
	Sunset,
	CivilDusk,
	NauticalDusk,
	AstronomicalDusk,
}

var (
	// ErrUnknownEvent is returned by ParseEvent.
	ErrUnknownEvent = errors.New("unknown astronomical event")
	// ErrNoEvent means the sun does not reach the event's altitude on that
	// date at that latitude (polar day or night).
	ErrNoEvent = errors.New("event does not occur on this date")
)

// ParseEvent validates s as an astronomical Event.
func ParseEvent(s string) (Event, error) {
	e := Event(s)
	if e.Valid() {
		return e, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// Valid reports whether e is one of the supported events.
func (e Event) Valid() bool {
	_, ok := sunTimes[e]
	return ok
}
