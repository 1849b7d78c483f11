// Package daemon provides the core daemon runner for sundriven.
// It manages the lifecycle of the reminder service including start, stop,
// and graceful shutdown capabilities.
package daemon

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/brettz9/sundriven/pkg/logger"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// DefaultAddr binds loopback on an ephemeral port.
const DefaultAddr = "127.0.0.1:0"

// Config holds the configuration for the daemon runner.
type Config struct {
	// Addr is the TCP address the RPC server listens on.
	Addr string

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration
}

// Server is the network front end served on the runner's listener.
type Server interface {
	Serve(ln net.Listener) error
	Shutdown(ctx context.Context) error
}

// Service is a background loop that runs until its context is cancelled.
type Service func(ctx context.Context) error

// Dependencies holds the external dependencies for the daemon runner.
// This enables dependency injection for testing.
type Dependencies struct {
	// ListenerFactory creates network listeners.
	// If nil, net.Listen is used.
	ListenerFactory func(network, address string) (net.Listener, error)

	// Server is served on the listener. If nil, the listener is only held open.
	Server Server

	// Services run alongside the server. The first one to fail stops the daemon.
	Services []Service

	// ShutdownFunc is called during shutdown to clean up resources.
	// If nil, no cleanup function is called.
	ShutdownFunc func() error

	Logger logger.Logger
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config   *Config
	deps     *Dependencies
	running  bool
	mu       sync.Mutex
	cancel   context.CancelFunc
	listener net.Listener
}

// New creates a new daemon runner with the given configuration and dependencies.
// If config is nil, default values are used.
// If deps is nil, default dependencies (using net.Listen) are used.
func New(config *Config, deps *Dependencies) *Runner {
	return &Runner{
		config: applyConfigDefaults(config),
		deps:   applyDependencyDefaults(deps),
	}
}

func applyConfigDefaults(config *Config) *Config {
	if config == nil {
		return &Config{Addr: DefaultAddr}
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	return config
}

func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	deps.Logger = logger.OrNop(deps.Logger)
	return deps
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Addr returns the bound listener address, or "" when not running.
func (r *Runner) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return ""
	}
	return r.listener.Addr().String()
}

// Start binds the listener, serves and runs every service, and blocks until
// the context is cancelled, Shutdown is called, or a component fails.
// Returns ErrAlreadyRunning if the daemon is already started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, r.cancel = context.WithCancel(ctx)

	// Create listener BEFORE setting running=true to avoid race condition
	listener, err := r.deps.ListenerFactory("tcp", r.config.Addr)
	if err != nil {
		r.cancel()
		r.mu.Unlock()
		return err
	}
	r.listener = listener
	r.running = true
	cancel := r.cancel
	r.mu.Unlock()

	errCh := make(chan error, len(r.deps.Services)+1)
	var wg sync.WaitGroup
	if r.deps.Server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.deps.Server.Serve(listener); err != nil {
				errCh <- err
			}
		}()
	}
	for _, svc := range r.deps.Services {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			if err := svc(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}(svc)
	}

	var result error
	select {
	case <-ctx.Done():
		result = ctx.Err()
	case result = <-errCh:
		r.deps.Logger.Error("daemon: component failed: %v", result)
	}
	cancel()

	r.stopServer()
	wg.Wait()
	r.cleanupOnStop()

	return result
}

func (r *Runner) stopServer() {
	if r.deps.Server == nil {
		return
	}
	ctx := context.Background()
	if r.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.ShutdownTimeout)
		defer cancel()
	}
	if err := r.deps.Server.Shutdown(ctx); err != nil {
		r.deps.Logger.Warning("daemon: server shutdown: %v", err)
	}
}

// cleanupOnStop performs cleanup when the daemon stops.
func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	r.closeListener()
}

// closeListener closes the listener if it exists.
// Caller must hold the mutex.
func (r *Runner) closeListener() {
	if r.listener != nil {
		_ = r.listener.Close()
		r.listener = nil
	}
}

// Shutdown gracefully stops the daemon.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if the shutdown function exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	if err := r.validateRunning(); err != nil {
		return err
	}

	if err := r.executeShutdownFunc(); err != nil {
		return err
	}

	r.performShutdown()
	return nil
}

func (r *Runner) validateRunning() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}
	return nil
}

// executeShutdownFunc runs the shutdown function with timeout if configured.
func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}

	if r.config.ShutdownTimeout > 0 {
		return r.executeWithTimeout(r.deps.ShutdownFunc, r.config.ShutdownTimeout)
	}

	// The shutdown must proceed regardless of cleanup errors.
	if err := r.deps.ShutdownFunc(); err != nil {
		r.deps.Logger.Warning("daemon: shutdown func: %v", err)
	}
	return nil
}

// executeWithTimeout runs a function with a timeout.
// Returns ErrShutdownTimeout if the function exceeds the timeout.
// Returns the function's error if it completes within the timeout.
func (r *Runner) executeWithTimeout(fn func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.forceStop()
		return ErrShutdownTimeout
	}
}

// forceStop forces the daemon to stop without waiting for cleanup.
func (r *Runner) forceStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runner) performShutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
