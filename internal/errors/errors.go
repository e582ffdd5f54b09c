package errors

import (
	stderrors "errors"
	"fmt"
)

// DocdexError is the structured error type for docdex.
// It provides rich context for error handling, logging, and user presentation.
type DocdexError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Transient, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *DocdexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocdexError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with DocdexError.
func (e *DocdexError) Is(target error) bool {
	if t, ok := target.(*DocdexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *DocdexError) WithDetail(key, value string) *DocdexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new DocdexError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DocdexError {
	return &DocdexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DocdexError from an existing error.
// The error's message becomes the DocdexError message.
func Wrap(code string, err error) *DocdexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocdexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ExtractionError creates an extraction-related error.
func ExtractionError(message string, cause error) *DocdexError {
	return New(ErrCodeCorruptDocument, message, cause)
}

// EmbedderError creates a retryable embedder-unavailable error.
func EmbedderError(message string, cause error) *DocdexError {
	return New(ErrCodeEmbedderUnavailable, message, cause)
}

// StoreError creates a retryable store-write error.
func StoreError(message string, cause error) *DocdexError {
	return New(ErrCodeStoreWrite, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *DocdexError {
	return New(ErrCodeInvalidInput, message, cause)
}

// NotFoundError creates a not-found error for a missing document or category.
func NotFoundError(message string) *DocdexError {
	return New(ErrCodeNotFound, message, nil)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocdexError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if any error in the chain is a DocdexError with Retryable set.
func IsRetryable(err error) bool {
	var de *DocdexError
	if stderrors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// CodeOf returns the error code of the first DocdexError in the chain,
// or ErrCodeInternal if none is found.
func CodeOf(err error) string {
	var de *DocdexError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

// Is re-exports errors.Is so callers don't need both packages.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As re-exports errors.As so callers don't need both packages.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
