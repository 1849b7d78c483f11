// Package logger provides the logging interface shared by every sundriven
// component, with console, structured (slog) and test backends.
package logger

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"
)

// Logger defines the printf-style logging interface used by the daemon,
// the scheduler and the location sources.
type Logger interface {
	// Info logs an informational message (e.g., "scheduler: armed \"tea\"").
	Info(format string, args ...interface{})

	// Warning logs a recoverable problem (e.g., "geo: retry 2/3").
	Warning(format string, args ...interface{})

	// Error logs a failure (e.g., "store: write failed: disk full").
	Error(format string, args ...interface{})

	// Close releases resources held by the logger. Safe to call multiple times.
	Close() error
}

// StandardLogger wraps the stdlib *log.Logger for console/file output.
type StandardLogger struct {
	logger *log.Logger
}

// NewStandardLogger creates a logger that wraps the given *log.Logger.
func NewStandardLogger(l *log.Logger) *StandardLogger {
	return &StandardLogger{logger: l}
}

// Info logs an informational message with [INFO] prefix.
func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logger.Printf("[INFO] "+format, args...)
}

// Warning logs a warning message with [WARNING] prefix.
func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logger.Printf("[WARNING] "+format, args...)
}

// Error logs an error message with [ERROR] prefix.
func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logger.Printf("[ERROR] "+format, args...)
}

// Close is a no-op for StandardLogger.
func (s *StandardLogger) Close() error {
	return nil
}

// SlogLogger adapts a *slog.Logger to Logger. Messages are formatted
// before being handed to slog, so handlers see a single "msg" attribute.
type SlogLogger struct {
	logger *slog.Logger
	closer io.Closer
	once   sync.Once
}

// NewSlogLogger wraps l. When c is non-nil it is the handler's writer and
// Close closes it.
func NewSlogLogger(l *slog.Logger, c io.Closer) *SlogLogger {
	return &SlogLogger{logger: l, closer: c}
}

func (s *SlogLogger) Info(format string, args ...interface{}) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Warning(format string, args ...interface{}) {
	s.logger.Warn(fmt.Sprintf(format, args...))
}

func (s *SlogLogger) Error(format string, args ...interface{}) {
	s.logger.Error(fmt.Sprintf(format, args...))
}

// Close closes the writer passed to NewSlogLogger, once.
func (s *SlogLogger) Close() error {
	var err error
	s.once.Do(func() {
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

// NopLogger is a logger that discards all messages.
type NopLogger struct{}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}
func (n *NopLogger) Close() error                               { return nil }

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*SlogLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)

// MockLogger records every call for verification in tests.
// It is safe for use from multiple goroutines.
type MockLogger struct {
	mu           sync.Mutex
	InfoCalls    []string
	WarningCalls []string
	ErrorCalls   []string
	CloseCalled  bool
}

// NewMockLogger creates a new MockLogger for testing.
func NewMockLogger() *MockLogger {
	return &MockLogger{
		InfoCalls:    make([]string, 0),
		WarningCalls: make([]string, 0),
		ErrorCalls:   make([]string, 0),
	}
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalls = append(m.InfoCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarningCalls = append(m.WarningCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCalls = append(m.ErrorCalls, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
	return nil
}

// Errors returns a copy of the recorded error messages.
func (m *MockLogger) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ErrorCalls...)
}

// Warnings returns a copy of the recorded warning messages.
func (m *MockLogger) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.WarningCalls...)
}

var _ Logger = (*MockLogger)(nil)
