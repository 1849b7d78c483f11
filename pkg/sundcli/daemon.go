package sundcli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	daemonStartTimeout = 3 * time.Second
	healthPollInterval = 50 * time.Millisecond
	healthTimeout      = 200 * time.Millisecond
)

// spawn starts the daemon process; swapped in tests.
var spawn = spawnDaemon

// EnsureDaemon checks if the daemon answers on baseURL and spawns it if not.
// Returns nil if daemon is running or was successfully started.
func EnsureDaemon(ctx context.Context, baseURL string) error {
	if IsDaemonRunning(ctx, baseURL) {
		return nil
	}
	if err := spawn(); err != nil {
		return err
	}
	return waitForDaemon(ctx, baseURL, daemonStartTimeout)
}

// IsDaemonRunning reports whether GET /healthz succeeds.
func IsDaemonRunning(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(baseURL, "/")+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// waitForDaemon polls until the daemon answers or timeout expires.
func waitForDaemon(ctx context.Context, baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if IsDaemonRunning(ctx, baseURL) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthPollInterval):
		}
	}
	return fmt.Errorf("daemon failed to start within %v", timeout)
}
