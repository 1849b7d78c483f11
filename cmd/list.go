package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli"

	"github.com/brettz9/sundriven/cmd/common"
	"github.com/brettz9/sundriven/internal/reminder"
	"github.com/brettz9/sundriven/internal/scheduler"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	disabledStyle = cellStyle.Foreground(lipgloss.Color("240"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// remindersTable renders reminders in the order given. Disabled rows are
// dimmed.
func remindersTable(rs []reminder.Reminder) string {
	t := newTable("Name", "State", "Frequency", "Rule")
	for _, r := range rs {
		state := "enabled"
		if !r.Enabled {
			state = "disabled"
		}
		t.Row(r.Name, state, string(r.Frequency), describeRule(r))
	}
	t.StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if row >= 0 && row < len(rs) && !rs[row].Enabled {
			return disabledStyle
		}
		return cellStyle
	})
	return t.String()
}

func list(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client := getClient(ctx, "list", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	rs, err := client.List(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "get_list", err)
		return nil
	}
	if len(rs) == 0 {
		fmt.Println("sundriven: no reminders found")
		return nil
	}
	fmt.Println(remindersTable(rs))
	return nil
}

// statusTable renders the scheduler's view: armed reminders with their
// deadline and the time left, then those waiting for a location.
func statusTable(sts []scheduler.Status, now time.Time) string {
	t := newTable("Name", "Event", "Fires at", "In")
	for _, st := range sts {
		if st.State != scheduler.StateArmed {
			t.Row(st.Name, st.RelativeEvent, "waiting for location", "")
			continue
		}
		left := st.Deadline.Sub(now).Round(time.Second)
		if left < 0 {
			left = 0
		}
		t.Row(st.Name, st.RelativeEvent, st.Deadline.Local().Format(time.DateTime), left.String())
	}
	t.StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	return t.String()
}
