package geo

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidManualCoordinates means a manual latitude or longitude is
	// not a finite number.
	ErrInvalidManualCoordinates = errors.New("manual coordinates are not valid numbers")
	// ErrNoCoordinatesAvailable means the live source failed and the
	// manual fallback was invalid too.
	ErrNoCoordinatesAvailable = errors.New("no coordinates available")
	// ErrInvalidPolicy is returned by ParsePolicy.
	ErrInvalidPolicy = errors.New("invalid geolocation policy")

	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("geolocation position unavailable")
	ErrTimeout             = errors.New("geolocation timed out")
	// ErrUnsupported means no live location source is configured.
	ErrUnsupported = errors.New("geolocation is not supported")
)

// PositionErrorCode mirrors the three failure classes of a position request.
type PositionErrorCode int

const (
	PermissionDenied    PositionErrorCode = 1
	PositionUnavailable PositionErrorCode = 2
	Timeout             PositionErrorCode = 3
)

// PositionError is a failed live position request.
type PositionError struct {
	Code    PositionErrorCode
	Message string
	cause   error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("geolocation error %d: %s", e.Code, e.Message)
}

// Unwrap exposes the code's sentinel and the underlying cause.
func (e *PositionError) Unwrap() []error {
	var sentinel error
	switch e.Code {
	case PermissionDenied:
		sentinel = ErrPermissionDenied
	case Timeout:
		sentinel = ErrTimeout
	default:
		sentinel = ErrPositionUnavailable
	}
	if e.cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.cause}
}

// NewPositionError builds a PositionError wrapping cause.
func NewPositionError(code PositionErrorCode, cause error) *PositionError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &PositionError{Code: code, Message: msg, cause: cause}
}

// AsPositionError classifies any source error as a *PositionError.
func AsPositionError(err error) *PositionError {
	var pe *PositionError
	switch {
	case errors.As(err, &pe):
		return pe
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		return NewPositionError(Timeout, err)
	case errors.Is(err, ErrPermissionDenied):
		return NewPositionError(PermissionDenied, err)
	}
	return NewPositionError(PositionUnavailable, err)
}
