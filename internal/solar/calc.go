package solar

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// Backend computes event instants for a calendar date. SolarNoon depends
// on longitude only; the remaining events also need latitude.
type Backend interface {
	SolarNoon(date time.Time, longitude float64) time.Time
	EventTime(event Event, date time.Time, latitude, longitude float64) (time.Time, error)
}

// Calculator is the default Backend, computed by suncalc. The date is
// interpreted as a calendar day in date's own location.
type Calculator struct{}

// suncalc names astronomical twilight after the night it ends or begins.
var sunTimes = map[Event]suncalc.DayTimeName{
	Sunrise:          suncalc.Sunrise,
	Sunset:           suncalc.Sunset,
	SolarNoon:        suncalc.SolarNoon,
	CivilDawn:        suncalc.Dawn,
	CivilDusk:        suncalc.Dusk,
	NauticalDawn:     suncalc.NauticalDawn,
	NauticalDusk:     suncalc.NauticalDusk,
	AstronomicalDawn: suncalc.NightEnd,
	AstronomicalDusk: suncalc.Night,
}

// localNoon anchors the computation so every instant of a calendar day
// maps to the same solar cycle.
func localNoon(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, date.Location())
}

// SolarNoon returns the instant the sun transits the meridian.
func (Calculator) SolarNoon(date time.Time, longitude float64) time.Time {
	times := suncalc.GetTimes(localNoon(date), 0, longitude)
	return times[suncalc.SolarNoon].Value.In(date.Location())
}

// EventTime returns the instant of event on date. ErrNoEvent is returned
// when the sun never crosses the event's altitude that day.
func (c Calculator) EventTime(event Event, date time.Time, latitude, longitude float64) (time.Time, error) {
	name, ok := sunTimes[event]
	if !ok {
		return time.Time{}, ErrUnknownEvent
	}
	anchor := localNoon(date)
	times := suncalc.GetTimes(anchor, latitude, longitude)
	dt, ok := times[name]
	// polar days and nights come back missing or far outside the day
	if !ok || dt.Value.Before(anchor.Add(-24*time.Hour)) || dt.Value.After(anchor.Add(24*time.Hour)) {
		return time.Time{}, ErrNoEvent
	}
	return dt.Value.In(date.Location()), nil
}

var _ Backend = Calculator{}
