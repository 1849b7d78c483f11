package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brettz9/sundriven/internal/config"
)

const pidFileName = "daemon.pid"

// ErrDaemonAlreadyRunning is returned when the PID file names a live process.
var ErrDaemonAlreadyRunning = errors.New("daemon already running")

// stateDir holds the pid file; swapped in tests.
var stateDir = config.Dir

// getPidFilePath returns the path to the daemon PID file.
func getPidFilePath() string {
	return filepath.Join(stateDir(), pidFileName)
}

// WritePidFile writes the current process ID to the PID file.
func WritePidFile() error {
	if err := os.MkdirAll(stateDir(), 0755); err != nil {
		return err
	}
	pid := os.Getpid()
	return os.WriteFile(getPidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

// ReadPidFile reads and returns the PID from the PID file.
func ReadPidFile() (int, error) {
	data, err := os.ReadFile(getPidFilePath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID: %d", pid)
	}
	return pid, nil
}

// RemovePidFile removes the PID file.
func RemovePidFile() error {
	err := os.Remove(getPidFilePath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CleanupStalePidFile removes a PID file left behind by a daemon that did
// not exit cleanly. It returns ErrDaemonAlreadyRunning when the recorded
// process is still alive.
func CleanupStalePidFile() error {
	pid, err := ReadPidFile()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return RemovePidFile()
	}
	if isProcessRunning(pid) {
		return fmt.Errorf("%w (PID %d)", ErrDaemonAlreadyRunning, pid)
	}
	return RemovePidFile()
}
