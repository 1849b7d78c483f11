package main

import (
	"fmt"
	"os"

	"github.com/brettz9/sundriven/cmd"
)

var (
	version   string = "dev"
	commit    string
	date      string
	buildType string = "unclassified"
)

var osExit = os.Exit

func main() {
	osExit(runMain(os.Args, func(args []string) error {
		return cmd.Execute(args, cmd.BuildArgs{
			Version:   version,
			Commit:    commit,
			Date:      date,
			BuildType: buildType,
		})
	}))
}

// runMain runs execute and maps its error to an exit code.
func runMain(args []string, execute func([]string) error) int {
	if err := execute(args); err != nil {
		fmt.Printf("sundriven: %s\n", err.Error())
		return 1
	}
	return 0
}
