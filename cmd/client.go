package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli"

	"github.com/brettz9/sundriven/cmd/common"
	"github.com/brettz9/sundriven/internal/config"
	"github.com/brettz9/sundriven/pkg/credman/keyring"
	"github.com/brettz9/sundriven/pkg/logger"
	"github.com/brettz9/sundriven/pkg/sundcli"
)

// skipDaemonEnv stops the CLI from spawning a daemon when none answers.
const skipDaemonEnv = "SUNDRIVEN_SKIP_DAEMON"

var (
	configPath string

	globalFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config",
			Usage:       "path of the YAML configuration file",
			EnvVar:      config.PathEnv,
			Destination: &configPath,
		},
	}
)

// loadConfig reads and validates the configuration. A --config path is
// exported so that a spawned daemon reads the same file.
var loadConfig = func() (*config.Config, error) {
	if configPath != "" {
		_ = os.Setenv(config.PathEnv, configPath)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveSecret returns the configured RPC secret or the one held by the
// keyring, creating it on first use.
var resolveSecret = func(cfg *config.Config, l keyring.Logger) (string, error) {
	if cfg.RPC.Secret != "" {
		return cfg.RPC.Secret, nil
	}
	return keyring.NewSecretStore(config.Dir(), l).Secret()
}

// dialDaemon connects to the daemon, starting it first when needed.
var dialDaemon = func(ctx context.Context, opts *sundcli.Options) (*sundcli.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	secret, err := resolveSecret(cfg, logger.NewStandardLogger(log.New(os.Stderr, "", 0)))
	if err != nil {
		return nil, fmt.Errorf("rpc secret: %w", err)
	}
	if os.Getenv(skipDaemonEnv) == "" {
		if err := sundcli.EnsureDaemon(ctx, cfg.BaseURL()); err != nil {
			return nil, err
		}
	}
	client, err := sundcli.Dial(ctx, cfg.BaseURL(), secret, opts)
	if err != nil {
		return nil, err
	}
	client.CheckVersionMismatch(ctx, os.Stderr, currentBuildArgs.Version)
	return client, nil
}

// getClient dials the daemon for a command, printing failures in the
// runtime error format. A nil client means the error was reported.
func getClient(ctx *cli.Context, cmd string, opts *sundcli.Options) *sundcli.Client {
	client, err := dialDaemon(context.Background(), opts)
	if err != nil {
		common.PrintRuntimeErr(ctx, cmd, "new_client", err)
		return nil
	}
	return client
}
