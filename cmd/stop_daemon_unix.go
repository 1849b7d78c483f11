//go:build !windows

package cmd

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

const pollInterval = 100 * time.Millisecond

// killDaemon sends SIGTERM and waits up to timeout for the process to
// exit, then sends SIGKILL.
func killDaemon(pid int, timeout time.Duration) error {
	if !isProcessRunning(pid) {
		return fmt.Errorf("daemon not running (PID %d)", pid)
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !isProcessRunning(pid) {
			return nil
		}
		time.Sleep(pollInterval)
	}

	fmt.Println("Graceful shutdown timeout, forcing kill...")
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}
	time.Sleep(5 * pollInterval)
	return nil
}
