// Package scheduler arms, fires and re-arms reminders.
//
// A Scheduler is an active object: one goroutine (Run) owns the table of
// armed timers and the table of location watches, and every public
// operation and every timer or coordinate callback is funnelled through
// it. That gives each reminder name a total order of operations and keeps
// at most one live timer per name.
//
// Armed timers sit in a min-heap keyed by wall-clock deadline. The loop
// sleeps until the earliest deadline, capped at MaxSleep, and re-checks
// the wall clock on every wake-up so NTP steps, DST transitions and
// system suspend cannot make a reminder fire late by more than the cap.
package scheduler
