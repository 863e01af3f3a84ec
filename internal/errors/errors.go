package errors

import (
	"errors"
	"fmt"
	"time"
)

// Base error types
var (
	ErrTimeout          = errors.New("timeout")
	ErrConnectionFailed = errors.New("connection failed")
	ErrOutputTruncated  = errors.New("output truncated")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeAcquisition ErrorType = "acquisition"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeParse       ErrorType = "parse"
	ErrorTypeEmission    ErrorType = "emission"
	ErrorTypeConfig      ErrorType = "config"
)

// MonitorError is a structured error for monitoring operations
type MonitorError struct {
	Type      ErrorType
	Op        string // Operation that failed (e.g., "run_nodetool", "write_point")
	Target    string // Target node the operation ran against
	Err       error  // Underlying error
	Timestamp time.Time
}

func (e *MonitorError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s failed on %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *MonitorError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *MonitorError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrTimeout:
		return e.Type == ErrorTypeTimeout
	case ErrConnectionFailed:
		return e.Type == ErrorTypeAcquisition
	}

	return errors.Is(e.Err, target)
}

// NewMonitorError creates a new MonitorError
func NewMonitorError(errorType ErrorType, op, target string, err error) *MonitorError {
	return &MonitorError{
		Type:      errorType,
		Op:        op,
		Target:    target,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Helper functions

// WrapAcquisitionError wraps a remote execution failure with context
func WrapAcquisitionError(op, target string, err error) error {
	return NewMonitorError(ErrorTypeAcquisition, op, target, err)
}

// WrapTimeoutError wraps a deadline failure with context
func WrapTimeoutError(op, target string, err error) error {
	return NewMonitorError(ErrorTypeTimeout, op, target, err)
}

// WrapEmissionError wraps a sink write failure with context
func WrapEmissionError(op, target string, err error) error {
	return NewMonitorError(ErrorTypeEmission, op, target, err)
}

// Classify returns the error category label used by instrumentation.
func Classify(err error) string {
	if err == nil {
		return "none"
	}

	var monErr *MonitorError
	if errors.As(err, &monErr) {
		return string(monErr.Type)
	}
	if errors.Is(err, ErrTimeout) {
		return string(ErrorTypeTimeout)
	}
	return "unknown"
}

// IsAcquisitionError checks if an error came from remote command execution
func IsAcquisitionError(err error) bool {
	var monErr *MonitorError
	if errors.As(err, &monErr) {
		return monErr.Type == ErrorTypeAcquisition || monErr.Type == ErrorTypeTimeout
	}
	return errors.Is(err, ErrConnectionFailed)
}
