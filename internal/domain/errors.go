package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindSearchFailed     ErrorKind = "search_failed"
	KindGenerationFailed ErrorKind = "generation_failed"
	KindUploadDegraded   ErrorKind = "upload_degraded"
	KindPublishFailed    ErrorKind = "publish_failed"
	KindCancelled        ErrorKind = "cancelled"
	KindValidationFailed ErrorKind = "validation_failed"
)

// CodeSearchEmpty marks a search that returned no products.
const CodeSearchEmpty = "SEARCH_EMPTY"

// Error is the tagged error type surfaced by the orchestrator and runner.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a tagged error. The message defaults to the cause text.
func NewError(kind ErrorKind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the kind of a tagged error, or "" for untagged errors.
func KindOf(err error) ErrorKind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return ""
}

// IsKind reports whether err is a tagged error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// APIError is a provider-level failure reported by an adapter.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
}
