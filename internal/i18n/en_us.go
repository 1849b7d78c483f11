package i18n

var enUS = map[string]string{
	"notification_title": "Reminder (Click inside me to stop)",

	"notification_message_daily":                "Daily reminder \"{name}\" for {date} (waiting since {start}, now {now}).",
	"notification_message_daily_astronomical":   "Daily reminder \"{name}\" for {date} (waiting since {start}, now {now}), relative to {event}.",
	"notification_message_onetime":              "One-time reminder \"{name}\" for {date} (waiting since {start}, now {now}).",
	"notification_message_onetime_astronomical": "One-time reminder \"{name}\" for {date} (waiting since {start}, now {now}), relative to {event}.",

	"geoloc_disallowed_invalid_manual":  "Per your settings, Geolocation is disallowed, and the manual coordinates are not formatted correctly, so the reminder \"{name}\" cannot be set.",
	"geoloc_unavailable_invalid_manual": "Geolocation is not currently available, and the manual coordinates are not formatted correctly in your settings, so the reminder \"{name}\" cannot be set.",
	"geoloc_error":                      "Geolocation error for reminder \"{name}\" (code {code}): {message}",
	"geoloc_unsupported":                "No live location source is configured, so the reminder \"{name}\" cannot use geolocation.",
	"event_not_found":                   "The reminder \"{name}\" could not be set: {reason}",
	"invalid_minutes":                   "The reminder \"{name}\" has an invalid number of minutes: {minutes}",
	"storage_error":                     "ERROR: Problem setting storage; reloading to try to resolve...",
	"storage_read_error":                "ERROR: Problem reading storage: {reason}",

	"sunrise":          "sunrise",
	"sunset":           "sunset",
	"solarNoon":        "solar noon",
	"civilDawn":        "civil dawn",
	"civilDusk":        "civil dusk",
	"nauticalDawn":     "nautical dawn",
	"nauticalDusk":     "nautical dusk",
	"astronomicalDawn": "astronomical dawn",
	"astronomicalDusk": "astronomical dusk",
	"now":              "now",
}
