//go:build !windows

package cmd

import (
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"github.com/urfave/cli"
)

// startCat runs a process that exits on SIGTERM. It is reaped in the
// background so that it does not linger as a zombie.
func startCat(t *testing.T) (int, <-chan struct{}) {
	t.Helper()
	cmd := exec.Command("cat")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatalf("Failed to get stdin pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start test process: %v", err)
	}
	t.Cleanup(func() { stdin.Close() })
	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	return cmd.Process.Pid, exited
}

func waitExited(t *testing.T, exited <-chan struct{}) {
	t.Helper()
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("expected process to be dead")
	}
}

func TestStopDaemon_PidFileProblems(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no pid file", "", "Daemon is not running"},
		{"invalid pid file", "invalid", ""},
		{"process not running", "999999999", "Stopping daemon (PID 999999999)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useStateDir(t)
			if tt.content != "" {
				if err := os.WriteFile(getPidFilePath(), []byte(tt.content), 0644); err != nil {
					t.Fatalf("WriteFile: %v", err)
				}
			}
			ctx := newContext(cli.NewApp(), nil, "stop-daemon")
			var err error
			stdout, _ := captureOutput(func() { err = stopDaemon(ctx) })
			if err != nil {
				t.Fatalf("stopDaemon: %v", err)
			}
			if tt.want != "" {
				assertContains(t, stdout, tt.want)
			}
			assertNotContains(t, stdout, "stopped successfully")
		})
	}
}

func TestKillDaemon_ProcessNotFound(t *testing.T) {
	if err := killDaemon(999999999, time.Second); err == nil {
		t.Fatal("expected error for non-existent process")
	}
}

func TestKillDaemon_ProcessExits(t *testing.T) {
	pid, exited := startCat(t)

	if err := killDaemon(pid, 5*time.Second); err != nil {
		t.Fatalf("killDaemon: %v", err)
	}
	waitExited(t, exited)
}

func TestStopDaemon_RunningProcess(t *testing.T) {
	useStateDir(t)
	pid, exited := startCat(t)

	if err := os.WriteFile(getPidFilePath(), []byte(strconv.Itoa(pid)), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx := newContext(cli.NewApp(), nil, "stop-daemon")
	var err error
	stdout, _ := captureOutput(func() { err = stopDaemon(ctx) })
	if err != nil {
		t.Fatalf("stopDaemon: %v", err)
	}
	assertContains(t, stdout, "Daemon stopped successfully")
	waitExited(t, exited)
}
