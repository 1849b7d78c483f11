package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli"

	"github.com/brettz9/sundriven/cmd/common"
	"github.com/brettz9/sundriven/internal/daemon"
)

func runDaemon(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "load_config", err)
		return nil
	}
	log, err := newLogger(cfg, os.Stderr)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "log_file", err)
		return nil
	}
	defer log.Close()

	if err := CleanupStalePidFile(); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "pid_file", err)
		return nil
	}

	secret, err := resolveSecret(cfg, log)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "rpc_secret", err)
		return nil
	}
	comps, err := initDaemonComponents(cfg, secret, log)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "init", err)
		return nil
	}
	defer comps.Close()

	if err := WritePidFile(); err != nil {
		log.Warning("writing pid file: %v", err)
	}
	defer func() { _ = RemovePidFile() }()

	sctx, cancel := setupShutdownHandler()
	defer cancel()

	runner := daemon.New(&daemon.Config{
		Addr:            cfg.Addr(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
	}, &daemon.Dependencies{
		Server:   comps.Web,
		Services: comps.Services(),
		Logger:   log,
	})
	if err := runner.Start(sctx); err != nil && !errors.Is(err, context.Canceled) {
		common.PrintRuntimeErr(ctx, "daemon", "run", err)
	}
	return nil
}
