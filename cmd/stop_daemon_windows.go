//go:build windows

package cmd

import (
	"fmt"
	"os"
	"time"
)

// killDaemon interrupts the daemon and kills it if it is still running
// after timeout. os.Interrupt is not deliverable to every process, in
// which case it is killed straight away.
func killDaemon(pid int, timeout time.Duration) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}
	if err := process.Signal(os.Interrupt); err != nil {
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to stop daemon: %w", err)
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := process.Wait()
		done <- err
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		fmt.Println("Graceful shutdown timeout, forcing kill...")
		if err := process.Kill(); err != nil {
			return fmt.Errorf("failed to kill daemon: %w", err)
		}
		return nil
	}
}
