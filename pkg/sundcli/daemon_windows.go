//go:build windows

package sundcli

import (
	"fmt"
	"os"
	"os/exec"
)

// spawnDaemon starts the daemon as a background process on Windows.
func spawnDaemon() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, "daemon")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	_ = cmd.Process.Release()
	return nil
}
