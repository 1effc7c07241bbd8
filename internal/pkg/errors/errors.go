// Package errors provides domain-specific error types for ChartVault.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
	ErrInternal   = errors.New("internal error")
)

// Kind classifies an AppError for callers that branch on failure class
// without inspecting codes.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage"
	KindInternal   Kind = "internal"
)

// AppError is a structured application error with a machine-readable code.
type AppError struct {
	// Code is a machine-readable error code (e.g., "RETENTION_OUT_OF_RANGE").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Kind is the failure class.
	Kind Kind `json:"-"`

	// Params carries structured context for diagnostics.
	Params map[string]interface{} `json:"params,omitempty"`

	// Err is the wrapped underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
// AppErrors without a wrapped cause unwrap to their kind's sentinel.
func (e *AppError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	switch e.Kind {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindStorage:
		return ErrStorage
	default:
		return ErrInternal
	}
}

// New creates a new AppError.
func New(code, message string, kind Kind) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// Wrap wraps an existing error into an AppError.
func Wrap(err error, code, message string, kind Kind) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kind,
		Err:     err,
	}
}

// WithParams attaches structured parameters to the error.
func (e *AppError) WithParams(params map[string]interface{}) *AppError {
	if e == nil || len(params) == 0 {
		return e
	}
	e.Params = params
	return e
}

// Common error constructors.

// Validation creates a validation error.
func Validation(code, message string) *AppError {
	return New(code, message, KindValidation)
}

// NotFound creates a not-found error.
func NotFound(code, message string) *AppError {
	return New(code, message, KindNotFound)
}

// Storage wraps a storage-engine failure.
func Storage(err error, code, message string) *AppError {
	return Wrap(err, code, message, KindStorage)
}

// Internal creates an internal error.
func Internal(code, message string) *AppError {
	return New(code, message, KindInternal)
}

// IsAppError checks if an error is an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
