package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
)

// defaultStopTimeout is used when the configuration cannot be read.
const defaultStopTimeout = 5 * time.Second

// stopTimeout gives the daemon its own shutdown budget plus a second to
// close the store before it is killed.
func stopTimeout() time.Duration {
	cfg, err := loadConfig()
	if err != nil {
		return defaultStopTimeout
	}
	return cfg.ShutdownTimeout() + time.Second
}

func stopDaemon(ctx *cli.Context) error {
	pid, err := ReadPidFile()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Daemon is not running (PID file not found)")
			return nil
		}
		fmt.Fprintf(os.Stderr, "Error reading PID file: %v\n", err)
		return nil
	}

	fmt.Printf("Stopping daemon (PID %d)...\n", pid)

	if err := killDaemon(pid, stopTimeout()); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping daemon: %v\n", err)
		return nil
	}

	// the daemon removes its own PID file on exit
	fmt.Println("Daemon stopped successfully")
	return nil
}
