package sundcli

import (
	"context"

	"github.com/brettz9/sundriven/internal/reminder"
	"github.com/brettz9/sundriven/internal/scheduler"
	"github.com/brettz9/sundriven/internal/server"
)

func (c *Client) Version(ctx context.Context) (*server.VersionResult, error) {
	return call[server.VersionResult](ctx, c, "system.getVersion", nil)
}

// List returns every stored reminder ordered by name.
func (c *Client) List(ctx context.Context) ([]reminder.Reminder, error) {
	res, err := call[server.ListResult](ctx, c, "reminder.list", nil)
	if err != nil {
		return nil, err
	}
	return res.Reminders, nil
}

func (c *Client) Get(ctx context.Context, name string) (*reminder.Reminder, error) {
	return call[reminder.Reminder](ctx, c, "reminder.get", &server.NameParam{Name: name})
}

// Save creates r, or replaces originalName with it when originalName is set.
func (c *Client) Save(ctx context.Context, r reminder.Reminder, originalName string) (*reminder.Reminder, error) {
	return call[reminder.Reminder](ctx, c, "reminder.save", &server.SaveParams{
		Reminder:     r,
		OriginalName: originalName,
	})
}

func (c *Client) Delete(ctx context.Context, name string) error {
	_, err := call[server.EmptyResult](ctx, c, "reminder.delete", &server.NameParam{Name: name})
	return err
}

func (c *Client) SetEnabled(ctx context.Context, name string, enabled bool) (*reminder.Reminder, error) {
	return call[reminder.Reminder](ctx, c, "reminder.setEnabled", &server.EnabledParams{
		Name:    name,
		Enabled: enabled,
	})
}

// Import merges set into the stored reminders, or replaces them all.
func (c *Client) Import(ctx context.Context, set reminder.Set, settings *reminder.Settings, replace bool) ([]reminder.Reminder, error) {
	res, err := call[server.ListResult](ctx, c, "reminder.import", &server.ImportParams{
		Reminders: set,
		Settings:  settings,
		Replace:   replace,
	})
	if err != nil {
		return nil, err
	}
	return res.Reminders, nil
}

// Status lists the reminders the daemon currently has scheduled.
func (c *Client) Status(ctx context.Context) ([]scheduler.Status, error) {
	res, err := call[server.StatusResult](ctx, c, "reminder.status", nil)
	if err != nil {
		return nil, err
	}
	return res.Reminders, nil
}

func (c *Client) Settings(ctx context.Context) (*reminder.Settings, error) {
	return call[reminder.Settings](ctx, c, "settings.get", nil)
}

func (c *Client) SaveSettings(ctx context.Context, st *reminder.Settings) (*reminder.Settings, error) {
	return call[reminder.Settings](ctx, c, "settings.set", st)
}

// Locate asks the daemon's live location source for a position.
func (c *Client) Locate(ctx context.Context, save bool) (*server.LocationResult, error) {
	return call[server.LocationResult](ctx, c, "location.retrieve", &server.LocationParams{Save: save})
}

// Times lists the solar events for date (YYYY-MM-DD, empty for today).
func (c *Client) Times(ctx context.Context, date string) (*server.TimesResult, error) {
	return call[server.TimesResult](ctx, c, "events.times", &server.TimesParams{Date: date})
}
