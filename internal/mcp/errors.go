// Package mcp exposes the docdex index to AI clients over the Model
// Context Protocol.
package mcp

import (
	stderrors "errors"
	"fmt"

	derrors "github.com/docdex/docdex/internal/errors"
)

// MCP protocol error codes.
const (
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603

	// ErrCodeSearchUnavailable indicates the search backend cannot
	// serve queries right now (embedder down, store unreadable).
	ErrCodeSearchUnavailable = -32001

	// ErrCodeDocumentNotFound indicates the requested document is not
	// in the index.
	ErrCodeDocumentNotFound = -32004
)

// Error is an MCP protocol error with a JSON-RPC code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-params error.
func NewInvalidParamsError(message string) *Error {
	return &Error{Code: ErrCodeInvalidParams, Message: message}
}

// MapError converts internal errors into protocol errors. Transient
// backend failures become an explicit "search unavailable" message so
// clients can tell an outage from an empty result set.
func MapError(err error) *Error {
	if err == nil {
		return nil
	}

	var de *derrors.DocdexError
	if derrors.As(err, &de) {
		switch de.Category {
		case derrors.CategoryValidation:
			if de.Code == derrors.ErrCodeNotFound {
				return &Error{Code: ErrCodeDocumentNotFound, Message: de.Message}
			}
			return &Error{Code: ErrCodeInvalidParams, Message: de.Message}
		}
		if hasTransientCause(err) {
			return &Error{Code: ErrCodeSearchUnavailable,
				Message: "search unavailable: " + de.Message}
		}
		return &Error{Code: ErrCodeInternalError, Message: de.Message}
	}

	return &Error{Code: ErrCodeInternalError, Message: err.Error()}
}

// hasTransientCause walks the error chain looking for a transient
// failure. An internal wrapper around an embedder or store outage is
// still an outage, not a server bug.
func hasTransientCause(err error) bool {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if de, ok := e.(*derrors.DocdexError); ok && de.Category == derrors.CategoryTransient {
			return true
		}
	}
	return false
}
