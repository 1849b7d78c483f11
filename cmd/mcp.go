package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/brettz9/sundriven/internal/mcptools"
)

// serveMCP serves the reminder tools on stdio. Stdout belongs to the
// protocol, so failures go to stderr.
func serveMCP(ctx *cli.Context) error {
	client, err := dialDaemon(context.Background(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: mcp[new_client]: %v\n", ctx.App.HelpName, err)
		return nil
	}
	defer client.Close()

	s := mcptools.NewServer(client, currentBuildArgs.Version)
	if err := s.ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: mcp[serve]: %v\n", ctx.App.HelpName, err)
	}
	return nil
}
