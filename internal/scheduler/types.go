package scheduler

import (
	"time"

	"github.com/brettz9/sundriven/internal/geo"
	"github.com/brettz9/sundriven/internal/reminder"
	"github.com/brettz9/sundriven/internal/solar"
)

// armed is a live timer for one reminder name.
type armed struct {
	name     string
	reminder reminder.Reminder
	// event is empty for reminders relative to "now"
	event  solar.Event
	coords geo.Coordinates
	// effective is the base date the offset was applied to
	effective time.Time
	duration  time.Duration
	armedAt   time.Time
	deadline  time.Time
	index     int
}

// pendingWatch is the location subscription of an astronomical reminder.
type pendingWatch struct {
	token    uint64
	handle   geo.Watch
	resolved bool
}

// State of a reminder as reported by Status.
type State string

const (
	StateArmed     State = "armed"
	StateResolving State = "resolving"
)

// Status describes one scheduled reminder.
type Status struct {
	Name          string             `json:"name"`
	State         State              `json:"state"`
	Frequency     reminder.Frequency `json:"frequency"`
	RelativeEvent string             `json:"relativeEvent"`
	EffectiveDate time.Time          `json:"effectiveDate,omitempty"`
	Deadline      time.Time          `json:"deadline,omitempty"`
	ArmedAt       time.Time          `json:"armedAt,omitempty"`
}

// EventType classifies scheduler events.
type EventType string

const (
	EventArmed       EventType = "armed"
	EventFired       EventType = "fired"
	EventDisabled    EventType = "disabled"
	EventUnscheduled EventType = "unscheduled"
	EventAlert       EventType = "alert"
)

// Event is published to subscribers on every state change.
type Event struct {
	Type     EventType `json:"type"`
	Name     string    `json:"name"`
	At       time.Time `json:"at"`
	Deadline time.Time `json:"deadline,omitempty"`
	Message  string    `json:"message,omitempty"`
}
