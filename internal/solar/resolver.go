package solar

import (
	"errors"
	"fmt"
	"time"

	"github.com/brettz9/sundriven/internal/geo"
	"github.com/brettz9/sundriven/internal/timemath"
)

// maxAdvance bounds how many days Resolve walks forward looking for an
// occurrence after now.
const maxAdvance = 366

// ErrNoFutureEvent is returned when no occurrence after now was found
// within maxAdvance days of the requested date.
var ErrNoFutureEvent = errors.New("no upcoming occurrence of event")

// Resolver turns (event, date, coordinates) into the next instant of the
// event that has not happened yet.
type Resolver struct {
	backend Backend
	now     func() time.Time
}

// NewResolver creates a Resolver. A nil backend selects Calculator and a
// nil now selects time.Now.
func NewResolver(backend Backend, now func() time.Time) *Resolver {
	if backend == nil {
		backend = Calculator{}
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{backend: backend, now: now}
}

func (r *Resolver) at(event Event, date time.Time, c geo.Coordinates) (time.Time, error) {
	if event == SolarNoon {
		return r.backend.SolarNoon(date, c.Longitude), nil
	}
	return r.backend.EventTime(event, date, c.Latitude, c.Longitude)
}

// Resolve returns the instant of event on date at c. When that instant is
// already in the past the date is advanced with timemath.IncrementDate
// until the event lies strictly after now.
func (r *Resolver) Resolve(event Event, date time.Time, c geo.Coordinates) (time.Time, error) {
	if !event.Valid() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	now := r.now()
	if date.IsZero() {
		date = now
	}
	for i := 0; i <= maxAdvance; i++ {
		ts, err := r.at(event, date, c)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s on %s: %w", event, date.Format(time.DateOnly), err)
		}
		if ts.After(now) {
			return ts, nil
		}
		date = timemath.IncrementDate(date)
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrNoFutureEvent, event)
}

// Occurrence is one row of Today.
type Occurrence struct {
	Event Event
	Time  time.Time
	Err   error
}

// Today lists every event on date at c without the future-only adjustment.
func (r *Resolver) Today(date time.Time, c geo.Coordinates) []Occurrence {
	out := make([]Occurrence, 0, len(Events))
	for _, e := range Events {
		ts, err := r.at(e, date, c)
		out = append(out, Occurrence{Event: e, Time: ts, Err: err})
	}
	return out
}
