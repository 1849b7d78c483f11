// Package timemath holds the date and offset arithmetic used to turn a
// reminder's "N minutes before/after X" rule into a timer delay.
package timemath

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Position says on which side of the base date the offset lies.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
)

var (
	// ErrInvalidOffset is returned when minutes is not a finite number.
	ErrInvalidOffset = errors.New("offset minutes must be a finite number")
	// ErrInvalidPosition is returned by ParsePosition for unknown values.
	ErrInvalidPosition = errors.New("relative position must be \"before\" or \"after\"")
)

// ParsePosition validates s as a Position.
func ParsePosition(s string) (Position, error) {
	switch p := Position(s); p {
	case Before, After:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPosition, s)
}

// ParseMinutes parses the textual offset of a reminder. Empty, negative
// and non-finite values are rejected.
func ParseMinutes(text string) (float64, error) {
	s := strings.TrimSpace(text)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOffset, text)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidOffset, text)
	}
	return v, nil
}

// Expiry is the result of UntilExpiry.
type Expiry struct {
	// EffectiveDate is the base date the offset was applied to.
	EffectiveDate time.Time
	// Duration is the delay from now until EffectiveDate+offset, never negative.
	Duration time.Duration
}

// Milliseconds returns Duration in whole milliseconds.
func (e Expiry) Milliseconds() int64 {
	return e.Duration.Milliseconds()
}

// Deadline returns the wall-clock instant the delay ends at, given the
// now the expiry was computed against.
func (e Expiry) Deadline(now time.Time) time.Time {
	return now.Add(e.Duration)
}

// UntilExpiry computes how long to wait from now until base shifted by
// minutes in the direction of pos. A zero base means now. The result is
// clamped at zero so a timer never receives a negative delay.
func UntilExpiry(now, base time.Time, minutes float64, pos Position) (Expiry, error) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return Expiry{}, ErrInvalidOffset
	}
	if base.IsZero() {
		base = now
	}
	offset := minutesToDuration(minutes)
	if pos == Before {
		offset = -offset
	}
	d := base.Sub(now)
	// saturate instead of wrapping on absurd offsets
	switch {
	case offset > 0 && d > math.MaxInt64-offset:
		d = math.MaxInt64
	case offset < 0 && d < math.MinInt64-offset:
		d = math.MinInt64
	default:
		d += offset
	}
	if d < 0 {
		d = 0
	}
	return Expiry{EffectiveDate: base, Duration: d}, nil
}

func minutesToDuration(minutes float64) time.Duration {
	ns := minutes * float64(time.Minute)
	if ns >= math.MaxInt64 {
		return math.MaxInt64
	}
	if ns <= math.MinInt64 {
		return math.MinInt64 + 1
	}
	return time.Duration(ns)
}

// IncrementDate returns t advanced by one calendar day, keeping the same
// wall-clock time in t's location (so a DST change makes the gap 23 or 25
// hours).
func IncrementDate(t time.Time) time.Time {
	return t.AddDate(0, 0, 1)
}
