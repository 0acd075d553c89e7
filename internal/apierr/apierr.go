// Package apierr defines the error taxonomy shared by the retry pipeline,
// key rotator, resolver, and worker: QUOTA, TRANSIENT, FATAL_CLIENT,
// NO_KEYS, RETRIES_EXHAUSTED, CANCELLED, and CONFIG.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed. It is not an error type itself;
// *Error below carries a Kind plus the underlying cause.
type Kind string

const (
	Quota             Kind = "QUOTA"
	Transient         Kind = "TRANSIENT"
	FatalClient       Kind = "FATAL_CLIENT"
	NoKeys            Kind = "NO_KEYS"
	RetriesExhausted  Kind = "RETRIES_EXHAUSTED"
	Cancelled         Kind = "CANCELLED"
	Config            Kind = "CONFIG"
)

// Error wraps an underlying cause with a Kind so callers can branch on
// classification with errors.As without string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPError carries the status code and YouTube API error reasons needed to
// classify a transport failure, extracted from the JSON error.errors[*].reason
// field on a non-2xx response.
type HTTPError struct {
	StatusCode int
	Reasons    []string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("youtube api: http %d: reasons=%v", e.StatusCode, e.Reasons)
}

// HasReason reports whether any of the error's reasons matches one of want.
func (e *HTTPError) HasReason(want ...string) bool {
	for _, r := range e.Reasons {
		for _, w := range want {
			if r == w {
				return true
			}
		}
	}
	return false
}
