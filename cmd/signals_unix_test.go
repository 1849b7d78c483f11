//go:build !windows

package cmd

import (
	"syscall"
	"testing"
	"time"
)

func TestSetupShutdownHandler_CancelsOnSignal(t *testing.T) {
	ctx, cancel := setupShutdownHandler()
	defer cancel()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGHUP); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled by SIGHUP")
	}
}

func TestSetupShutdownHandler_CancelFunc(t *testing.T) {
	ctx, cancel := setupShutdownHandler()
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not end the context")
	}
}
