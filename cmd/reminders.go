package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/brettz9/sundriven/cmd/common"
	"github.com/brettz9/sundriven/internal/reminder"
	"github.com/brettz9/sundriven/internal/timemath"
)

var (
	originalName string
	frequency    string
	relEvent     string
	minutes      string
	position     string
	disabled     bool

	saveFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "original, o",
			Usage:       "name of the reminder to replace (renames it when different)",
			Destination: &originalName,
		},
		cli.StringFlag{
			Name:        "frequency, f",
			Usage:       "daily or one-time",
			Destination: &frequency,
		},
		cli.StringFlag{
			Name:        "event, e",
			Usage:       "now, or a solar event such as sunrise, sunset or civilDusk",
			Destination: &relEvent,
		},
		cli.StringFlag{
			Name:        "minutes, m",
			Usage:       "offset from the event in minutes",
			Destination: &minutes,
		},
		cli.StringFlag{
			Name:        "position, p",
			Usage:       "before or after the event",
			Destination: &position,
		},
		cli.BoolFlag{
			Name:        "disabled, d",
			Usage:       "store the reminder without arming it",
			Destination: &disabled,
		},
	}
)

var errNameRequired = errors.New("reminder name is required")

// buildReminder layers the given flags over base.
func buildReminder(ctx *cli.Context, base reminder.Reminder, name string) reminder.Reminder {
	r := base
	r.Name = name
	if ctx.IsSet("frequency") {
		r.Frequency = reminder.Frequency(frequency)
	}
	if ctx.IsSet("event") {
		r.RelativeEvent = relEvent
	}
	if ctx.IsSet("minutes") {
		r.Minutes = minutes
	}
	if ctx.IsSet("position") {
		r.RelativePosition = timemath.Position(position)
	}
	if ctx.IsSet("disabled") {
		r.Enabled = !disabled
	}
	return r
}

func save(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return common.PrintErrWithCmdHelp(ctx, errNameRequired)
	}
	client := getClient(ctx, "save", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	bg := context.Background()
	base := reminder.Default()
	if originalName != "" {
		existing, err := client.Get(bg, originalName)
		if err != nil {
			common.PrintRuntimeErr(ctx, "save", "get_original", err)
			return nil
		}
		base = *existing
	}
	r, err := client.Save(bg, buildReminder(ctx, base, name), originalName)
	if err != nil {
		common.PrintRuntimeErr(ctx, "save", "client-save", err)
		return nil
	}
	fmt.Printf("Saved %q: %s\n", r.Name, describeRule(*r))
	return nil
}

func deleteReminder(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return common.PrintErrWithCmdHelp(ctx, errNameRequired)
	}
	client := getClient(ctx, "delete", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	if err := client.Delete(context.Background(), name); err != nil {
		common.PrintRuntimeErr(ctx, "delete", "client-delete", err)
		return nil
	}
	fmt.Printf("Deleted %q\n", name)
	return nil
}

func setEnabled(enabled bool) cli.ActionFunc {
	cmd, verb := "disable", "Disabled"
	if enabled {
		cmd, verb = "enable", "Enabled"
	}
	return func(ctx *cli.Context) error {
		name := ctx.Args().First()
		if name == "" {
			return common.PrintErrWithCmdHelp(ctx, errNameRequired)
		}
		client := getClient(ctx, cmd, nil)
		if client == nil {
			return nil
		}
		defer client.Close()

		if _, err := client.SetEnabled(context.Background(), name, enabled); err != nil {
			common.PrintRuntimeErr(ctx, cmd, "client-set_enabled", err)
			return nil
		}
		fmt.Printf("%s %q\n", verb, name)
		return nil
	}
}

func show(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return common.PrintErrWithCmdHelp(ctx, errNameRequired)
	}
	client := getClient(ctx, "show", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	r, err := client.Get(context.Background(), name)
	if err != nil {
		common.PrintRuntimeErr(ctx, "show", "client-get", err)
		return nil
	}
	state := "enabled"
	if !r.Enabled {
		state = "disabled"
	}
	fmt.Printf("Name:      %s\n", r.Name)
	fmt.Printf("State:     %s\n", state)
	fmt.Printf("Frequency: %s\n", r.Frequency)
	fmt.Printf("Rule:      %s\n", describeRule(*r))
	return nil
}

// describeRule renders "15 minutes before sunset".
func describeRule(r reminder.Reminder) string {
	unit := "minutes"
	if r.Minutes == "1" {
		unit = "minute"
	}
	return fmt.Sprintf("%s %s %s %s", r.Minutes, unit, r.RelativePosition, r.RelativeEvent)
}
