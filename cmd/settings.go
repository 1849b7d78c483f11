package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/brettz9/sundriven/cmd/common"
	"github.com/brettz9/sundriven/internal/geo"
	"github.com/brettz9/sundriven/internal/reminder"
)

var (
	geolocUsage string
	latitude    string
	longitude   string
	saveFix     bool
	timesDate   string

	settingsFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "geoloc, g",
			Usage:       "location policy: never, when-available or always",
			Destination: &geolocUsage,
		},
		cli.StringFlag{
			Name:        "lat",
			Usage:       "manual latitude in decimal degrees",
			Destination: &latitude,
		},
		cli.StringFlag{
			Name:        "lon",
			Usage:       "manual longitude in decimal degrees",
			Destination: &longitude,
		},
	}

	locateFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "save, s",
			Usage:       "store the position as the manual coordinates",
			Destination: &saveFix,
		},
	}

	timesFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "date, d",
			Usage:       "day to compute, as YYYY-MM-DD (default: today)",
			Destination: &timesDate,
		},
	}
)

func printSettings(st *reminder.Settings) {
	lat, lon := st.Latitude, st.Longitude
	if lat == "" {
		lat = "-"
	}
	if lon == "" {
		lon = "-"
	}
	fmt.Printf("Location policy: %s\n", st.Policy())
	fmt.Printf("Latitude:        %s\n", lat)
	fmt.Printf("Longitude:       %s\n", lon)
}

func settings(ctx *cli.Context) error {
	client := getClient(ctx, "settings", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	bg := context.Background()
	st, err := client.Settings(bg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "settings", "get_settings", err)
		return nil
	}
	if ctx.IsSet("geoloc") || ctx.IsSet("lat") || ctx.IsSet("lon") {
		if ctx.IsSet("geoloc") {
			policy, err := geo.ParsePolicy(geolocUsage)
			if err != nil {
				return common.PrintErrWithCmdHelp(ctx, err)
			}
			st.GeolocUsage = policy
		}
		if ctx.IsSet("lat") {
			st.Latitude = latitude
		}
		if ctx.IsSet("lon") {
			st.Longitude = longitude
		}
		if st, err = client.SaveSettings(bg, st); err != nil {
			common.PrintRuntimeErr(ctx, "settings", "save_settings", err)
			return nil
		}
	}
	printSettings(st)
	return nil
}

func locate(ctx *cli.Context) error {
	client := getClient(ctx, "locate", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	fix, err := client.Locate(context.Background(), saveFix)
	if err != nil {
		common.PrintRuntimeErr(ctx, "locate", "retrieve", err)
		return nil
	}
	fmt.Println(geo.Coordinates{Latitude: fix.Latitude, Longitude: fix.Longitude})
	if saveFix {
		fmt.Println("Saved as the manual coordinates")
	}
	return nil
}

func times(ctx *cli.Context) error {
	if timesDate != "" {
		if _, err := time.Parse(time.DateOnly, timesDate); err != nil {
			return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", timesDate))
		}
	}
	client := getClient(ctx, "times", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	res, err := client.Times(context.Background(), timesDate)
	if err != nil {
		common.PrintRuntimeErr(ctx, "times", "get_times", err)
		return nil
	}
	fmt.Printf("Solar events on %s at %s\n", res.Date, geo.Coordinates{Latitude: res.Latitude, Longitude: res.Longitude})
	t := newTable("Event", "Time")
	for _, ev := range res.Events {
		at := ev.Error
		if ev.Time != nil {
			at = ev.Time.Local().Format("15:04:05")
		}
		t.Row(ev.Event, at)
	}
	fmt.Println(t.String())
	return nil
}
