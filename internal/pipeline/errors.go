// Package pipeline defines the typed errors shared by every stage of the
// preprocessing run.
package pipeline

import (
	"errors"
	"fmt"
	"maps"
)

type ErrorType string

const (
	ErrorTypeDownload   ErrorType = "download_error"
	ErrorTypeParse      ErrorType = "parse_error"
	ErrorTypeTransform  ErrorType = "transform_error"
	ErrorTypeIO         ErrorType = "io_error"
	ErrorTypeRemoteCall ErrorType = "remote_call_error"
)

// Error is a typed pipeline failure carrying the operation that failed and
// optional structured context for logging.
type Error struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error

	context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed in %s: %s (caused by: %v)", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s failed in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Context returns a copy of the structured context attached to the error.
func (e *Error) Context() map[string]any {
	return maps.Clone(e.context)
}

// WithContext returns a copy of the error with an extra context key/value.
func (e *Error) WithContext(key string, value any) *Error {
	cloned := maps.Clone(e.context)
	if cloned == nil {
		cloned = make(map[string]any)
	}
	cloned[key] = value
	return &Error{
		Type:      e.Type,
		Operation: e.Operation,
		Message:   e.Message,
		Cause:     e.Cause,
		context:   cloned,
	}
}

func NewError(errType ErrorType, operation, message string, cause error) *Error {
	return &Error{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

func NewDownloadError(operation, message string, cause error) *Error {
	return NewError(ErrorTypeDownload, operation, message, cause)
}

func NewParseError(operation, message string, cause error) *Error {
	return NewError(ErrorTypeParse, operation, message, cause)
}

func NewTransformError(operation, message string, cause error) *Error {
	return NewError(ErrorTypeTransform, operation, message, cause)
}

func NewIOError(operation, message string, cause error) *Error {
	return NewError(ErrorTypeIO, operation, message, cause)
}

func NewRemoteCallError(operation, message string, cause error) *Error {
	return NewError(ErrorTypeRemoteCall, operation, message, cause)
}

// TypeOf reports the pipeline error type of err, or "" if err carries none.
func TypeOf(err error) ErrorType {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ""
}
