package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/brettz9/sundriven/cmd/common"
	"github.com/brettz9/sundriven/internal/reminder"
)

// fileSystem backs export and import; swapped in tests.
var fileSystem = afero.NewOsFs()

var (
	outputPath     string
	skipSettings   bool
	replaceOnWrite bool

	exportFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "output, o",
			Usage:       "write to this file instead of stdout",
			Destination: &outputPath,
		},
		cli.BoolFlag{
			Name:        "no-settings",
			Usage:       "leave the location settings out",
			Destination: &skipSettings,
		},
	}

	importFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "replace, r",
			Usage:       "drop every stored reminder not in the file",
			Destination: &replaceOnWrite,
		},
		cli.BoolFlag{
			Name:        "no-settings",
			Usage:       "ignore location settings in the file",
			Destination: &skipSettings,
		},
	}
)

func export(ctx *cli.Context) error {
	client := getClient(ctx, "export", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	bg := context.Background()
	rs, err := client.List(bg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "export", "get_list", err)
		return nil
	}
	set := make(reminder.Set, len(rs))
	for _, r := range rs {
		set[r.Name] = r
	}
	var st *reminder.Settings
	if !skipSettings {
		if st, err = client.Settings(bg); err != nil {
			common.PrintRuntimeErr(ctx, "export", "get_settings", err)
			return nil
		}
	}

	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := fileSystem.Create(outputPath)
		if err != nil {
			common.PrintRuntimeErr(ctx, "export", "create_file", err)
			return nil
		}
		defer f.Close()
		w = f
	}
	if err := reminder.ExportYAML(w, set, st); err != nil {
		common.PrintRuntimeErr(ctx, "export", "write_yaml", err)
		return nil
	}
	if outputPath != "" {
		fmt.Printf("Exported %d reminders to %s\n", len(set), outputPath)
	}
	return nil
}

func importReminders(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("file to import is required"))
	}
	f, err := fileSystem.Open(path)
	if err != nil {
		common.PrintRuntimeErr(ctx, "import", "open_file", err)
		return nil
	}
	set, st, err := reminder.ImportYAML(f)
	f.Close()
	if err != nil {
		common.PrintRuntimeErr(ctx, "import", "read_yaml", err)
		return nil
	}
	if skipSettings {
		st = nil
	}

	client := getClient(ctx, "import", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	rs, err := client.Import(context.Background(), set, st, replaceOnWrite)
	if err != nil {
		common.PrintRuntimeErr(ctx, "import", "client-import", err)
		return nil
	}
	fmt.Printf("Imported %d reminders, %d stored\n", len(set), len(rs))
	return nil
}
