package logger

import "errors"

// MultiLogger fans each message out to the console logger and, when
// log.file is set, the file logger.
type MultiLogger struct {
	backends []Logger
}

// NewMultiLogger returns a logger writing to every non-nil backend in
// argument order.
func NewMultiLogger(backends ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, b := range backends {
		if b != nil {
			m.backends = append(m.backends, b)
		}
	}
	return m
}

func (m *MultiLogger) each(fn func(Logger)) {
	for _, b := range m.backends {
		fn(b)
	}
}

func (m *MultiLogger) Info(format string, args ...interface{}) {
	m.each(func(b Logger) { b.Info(format, args...) })
}

func (m *MultiLogger) Warning(format string, args ...interface{}) {
	m.each(func(b Logger) { b.Warning(format, args...) })
}

func (m *MultiLogger) Error(format string, args ...interface{}) {
	m.each(func(b Logger) { b.Error(format, args...) })
}

// Close closes every backend, even after a failure, and joins the errors.
func (m *MultiLogger) Close() error {
	var errs []error
	m.each(func(b Logger) {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

var _ Logger = (*MultiLogger)(nil)
