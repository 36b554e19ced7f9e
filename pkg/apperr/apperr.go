// Package apperr defines the error taxonomy shared by all domain services
// and the echo error handler that maps it onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	// KindValidation marks malformed or semantically invalid input.
	KindValidation Kind = iota
	// KindNotFound marks an absent entity, or one outside the caller's
	// visibility scope (scope violations on reads deliberately report as
	// not-found so they do not confirm the record exists).
	KindNotFound
	// KindForbidden marks a wrong-role or wrong-actor action attempt.
	KindForbidden
	// KindUnauthorized marks missing or invalid credentials.
	KindUnauthorized
	// KindConflict marks invalid state transitions, double assignment,
	// already-consumed OTPs and unique-constraint violations.
	KindConflict
	// KindRateLimited marks a caller exceeding an issuance quota.
	KindRateLimited
	// KindUpstream marks a failed call to an external collaborator.
	KindUpstream
	// KindInternal is everything else.
	KindInternal
)

// Error is the application error type. Fields carries optional per-field
// validation detail.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates a cause with a kind and message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Validation creates a validation error with field-level detail.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// NotFound creates a not-found error for the named entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Conflict creates a state-conflict error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// RateLimited creates a quota-exceeded error.
func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Message: message}
}

// Upstream wraps an external collaborator failure.
func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: message, cause: cause}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
