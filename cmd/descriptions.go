package cmd

const DESCRIPTION = `
Sundriven fires reminders relative to the sun. A reminder goes off a
number of minutes before or after sunrise, sunset, solar noon or one of
the twilight boundaries at your location, or simply some minutes from
now. Reminders repeat daily or fire once and disable themselves.
`

const (
	SaveDescription = `The save command creates a reminder, or replaces one when
--original names an existing reminder. Omitted flags take the
defaults of a new reminder: daily, enabled, 60 minutes after now.

Example:
        sundriven save --event sunset --minutes 15 --position before "close the blinds"
        sundriven save --original walk --minutes 30 "evening walk"

`
	DeleteDescription = `The delete command removes a reminder and cancels its timer.

Example:
        sundriven delete "close the blinds"

`
	EnableDescription = `The enable and disable commands arm or disarm a reminder
without changing its rule.

Example:
        sundriven disable "evening walk"

`
	ListDescription = `The list command displays every stored reminder with its rule.

Example:
        sundriven list

`
	ShowDescription = `The show command prints one reminder.

Example:
        sundriven show "evening walk"

`
	NextDescription = `The next command lists the reminders the daemon has armed,
soonest first. With --watch it draws a countdown per reminder
until interrupted.

Example:
        sundriven next --watch

`
	SettingsDescription = `The settings command prints the location settings, or
updates them when flags are given. --geoloc is one of never,
when-available or always.

Example:
        sundriven settings --geoloc never --lat 51.48 --lon 0

`
	LocateDescription = `The locate command asks the daemon's location source for the
current position. --save stores it as the manual coordinates.

Example:
        sundriven locate --save

`
	TimesDescription = `The times command lists today's solar event times at the
resolved location, or those of --date (YYYY-MM-DD).

Example:
        sundriven times --date 2024-06-21

`
	WatchDescription = `The watch command stays connected to the daemon and prints
notifications, alerts and scheduling events as they happen.

Example:
        sundriven watch

`
	ExportDescription = `The export command writes all reminders and settings as YAML
to stdout or --output.

Example:
        sundriven export -o reminders.yaml

`
	ImportDescription = `The import command reads reminders (and settings, when
present) from a YAML file written by export. Without --replace the
imported reminders are merged over the stored ones.

Example:
        sundriven import reminders.yaml

`
	MCPDescription = `The mcp command serves the reminder tools over stdio for
Model Context Protocol clients.

Example:
        sundriven mcp

`
)
