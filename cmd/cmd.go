package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/brettz9/sundriven/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var currentBuildArgs BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "sundriven",
		HelpName:              "sundriven",
		Usage:                 "Reminders relative to sunrise, sunset and twilight.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "sundriven <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:   "daemon",
				Usage:  "run the reminder scheduler in the foreground",
				Action: runDaemon,
			},
			{
				Name:   "stop-daemon",
				Usage:  "stop a running daemon",
				Action: stopDaemon,
			},
			{
				Name:                   "save",
				Aliases:                []string{"add"},
				Usage:                  "create or replace a reminder",
				ArgsUsage:              "<name>",
				Description:            SaveDescription,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Action:                 save,
				Flags:                  saveFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "delete",
				Aliases:            []string{"rm"},
				Usage:              "delete a reminder",
				ArgsUsage:          "<name>",
				Description:        DeleteDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             deleteReminder,
			},
			{
				Name:               "enable",
				Usage:              "arm a reminder",
				ArgsUsage:          "<name>",
				Description:        EnableDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             setEnabled(true),
			},
			{
				Name:               "disable",
				Usage:              "disarm a reminder",
				ArgsUsage:          "<name>",
				Description:        EnableDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             setEnabled(false),
			},
			{
				Name:               "list",
				Aliases:            []string{"l"},
				Usage:              "display stored reminders",
				Description:        ListDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             list,
			},
			{
				Name:               "show",
				Usage:              "display one reminder",
				ArgsUsage:          "<name>",
				Description:        ShowDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             show,
			},
			{
				Name:                   "next",
				Aliases:                []string{"n"},
				Usage:                  "display armed reminders, soonest first",
				Description:            NextDescription,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Action:                 next,
				Flags:                  nextFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "settings",
				Usage:              "display or change location settings",
				Description:        SettingsDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             settings,
				Flags:              settingsFlags,
			},
			{
				Name:               "locate",
				Usage:              "retrieve the current position",
				Description:        LocateDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             locate,
				Flags:              locateFlags,
			},
			{
				Name:               "times",
				Usage:              "display solar event times",
				Description:        TimesDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             times,
				Flags:              timesFlags,
			},
			{
				Name:               "watch",
				Aliases:            []string{"w"},
				Usage:              "print notifications as they fire",
				Description:        WatchDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             watch,
			},
			{
				Name:               "export",
				Usage:              "write reminders and settings as YAML",
				Description:        ExportDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             export,
				Flags:              exportFlags,
			},
			{
				Name:               "import",
				Usage:              "read reminders from a YAML file",
				ArgsUsage:          "<file>",
				Description:        ImportDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             importReminders,
				Flags:              importFlags,
			},
			{
				Name:               "mcp",
				Usage:              "serve reminder tools to MCP clients over stdio",
				Description:        MCPDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             serveMCP,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of sundriven",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
