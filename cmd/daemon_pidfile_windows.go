//go:build windows

package cmd

import (
	"golang.org/x/sys/windows"
)

// isProcessRunning opens pid with SYNCHRONIZE access, the least right
// that proves the process exists.
func isProcessRunning(pid int) bool {
	handle, err := windows.OpenProcess(windows.SYNCHRONIZE, false, uint32(pid))
	if err != nil {
		return false
	}
	_ = windows.CloseHandle(handle)
	return true
}
