// Package notify presents fired reminders and user-facing alerts.
package notify

import (
	"errors"
	"time"

	"github.com/brettz9/sundriven/pkg/logger"
)

// Options accompany a notification.
type Options struct {
	Body               string `json:"body"`
	Lang               string `json:"lang"`
	RequireInteraction bool   `json:"requireInteraction"`
}

// Notifier shows a fired reminder.
type Notifier interface {
	Show(title string, opts Options) error
}

// Vibrator buzzes the device, where one exists.
type Vibrator interface {
	Vibrate(d time.Duration) error
}

// Alerter surfaces a problem that needs the user's attention.
type Alerter interface {
	Alert(message string)
}

// Multi fans out to several backends. Every backend is tried; the
// returned error joins the individual failures.
type Multi struct {
	Notifiers []Notifier
	Vibrators []Vibrator
	Alerters  []Alerter
}

func (m *Multi) Show(title string, opts Options) error {
	var errs []error
	for _, n := range m.Notifiers {
		if err := n.Show(title, opts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Vibrate(d time.Duration) error {
	var errs []error
	for _, v := range m.Vibrators {
		if err := v.Vibrate(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Alert(message string) {
	for _, a := range m.Alerters {
		a.Alert(message)
	}
}

// LogNotifier writes notifications, vibrations and alerts to a logger.
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(l logger.Logger) *LogNotifier {
	return &LogNotifier{log: logger.OrNop(l)}
}

func (n *LogNotifier) Show(title string, opts Options) error {
	n.log.Info("notify: %s: %s", title, opts.Body)
	return nil
}

func (n *LogNotifier) Vibrate(d time.Duration) error {
	n.log.Info("notify: vibrate %v", d)
	return nil
}

func (n *LogNotifier) Alert(message string) {
	n.log.Warning("alert: %s", message)
}

var (
	_ Notifier = (*Multi)(nil)
	_ Vibrator = (*Multi)(nil)
	_ Alerter  = (*Multi)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Vibrator = (*LogNotifier)(nil)
	_ Alerter  = (*LogNotifier)(nil)
)
