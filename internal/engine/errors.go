// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// Common engine errors
var (
	// ErrRunNotStarted is returned when the rendering surface is unreachable
	// before any content was loaded. No partial ledger exists in that case.
	ErrRunNotStarted = errors.New("run could not start: rendering surface unreachable")

	ErrSurfaceLost     = errors.New("rendering surface lost")
	ErrLoaderExhausted = errors.New("loader already consumed")
	ErrLedgerFinalized = errors.New("ledger already finalized")
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	ErrCodeStartFailure ErrorCode = "START_FAILURE"
	ErrCodeSurfaceLost  ErrorCode = "SURFACE_LOST"
	ErrCodeCancelled    ErrorCode = "CANCELLED"
	ErrCodeParseError   ErrorCode = "PARSE_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION"
)

// EngineError wraps errors with additional context
type EngineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewEngineError creates a new EngineError
func NewEngineError(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]interface{}),
	}
}

// WithDetail adds a detail to the error
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	e.Details[key] = value
	return e
}
