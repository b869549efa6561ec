// Package errors provides typed errors for the quote engine and its CLI.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeInput indicates malformed caller input (flags, selection files)
	TypeInput Type = "INPUT_ERROR"

	// TypeSchema indicates a schema authoring defect
	TypeSchema Type = "SCHEMA_ERROR"

	// TypeValidation indicates rejected selections
	TypeValidation Type = "VALIDATION_ERROR"

	// TypeDerivation indicates a derivation rule that could not be applied
	TypeDerivation Type = "DERIVATION_ERROR"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"

	// TypeNotFound indicates a missing file or control
	TypeNotFound Type = "NOT_FOUND"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a type and message
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{Type: errType, Message: message, Cause: cause}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsType reports whether err, or any error it wraps, is of type t
func IsType(err error, t Type) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// Input creates an input error
func Input(message string) *Error {
	return New(TypeInput, message)
}

// Schema wraps a schema decoding or validation failure
func Schema(message string, cause error) *Error {
	return Wrap(TypeSchema, message, cause)
}

// Config wraps a configuration failure
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// Derivation wraps a derivation rule failure
func Derivation(rule string, cause error) *Error {
	return Wrapf(TypeDerivation, cause, "derivation %s failed", rule)
}

// NotFound creates a not found error
func NotFound(kind, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", kind, identifier)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
