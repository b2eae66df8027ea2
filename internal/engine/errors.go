package engine

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/knowledged/internal/embeddings"
	"github.com/fyrsmithlabs/knowledged/internal/vectorstore"
)

// Machine-stable error codes surfaced to callers.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeConsistencyError = "CONSISTENCY_ERROR"
	CodeContextError     = "CONTEXT_ERROR"
	CodeTraceError       = "TRACE_ERROR"
)

// retrySuggestion is attached when a backend dependency failed.
const retrySuggestion = "the embedding service or vector store may be temporarily unavailable; retry shortly"

// Error is the uniform caller-visible error envelope. Every failure inside a
// pipeline maps to one of these at the operation boundary; the hosting
// process never sees an unstructured crash.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// invalidInput builds an INVALID_INPUT error. Nothing has been called yet
// when one of these is raised.
func invalidInput(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// validationError builds a VALIDATION_ERROR for caller contract violations.
func validationError(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidationError, Message: fmt.Sprintf(format, args...)}
}

// notFound builds a NOT_FOUND error after a missed lookup.
func notFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// operationError maps a backend fault to the operation's error code,
// attaching a retry hint when the dependency itself was unavailable.
func operationError(code string, err error) *Error {
	e := &Error{Code: code, Message: err.Error()}
	if isBackendFault(err) {
		e.Suggestion = retrySuggestion
	}
	return e
}

// isBackendFault reports whether err stems from an unavailable dependency
// rather than from the caller's input.
func isBackendFault(err error) bool {
	return errors.Is(err, embeddings.ErrEmbeddingFailed) ||
		errors.Is(err, vectorstore.ErrStoreUnavailable) ||
		errors.Is(err, vectorstore.ErrPartialSearch)
}

// AsError coerces any pipeline failure into the envelope shape. Errors the
// engine already tagged pass through; anything else gets the fallback code.
func AsError(err error, fallbackCode string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return operationError(fallbackCode, err)
}
