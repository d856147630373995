// Package apperr defines the error taxonomy shared by services and handlers:
// validation, not-found, conflict, unauthorized, and forbidden conditions,
// each carrying a stable machine-readable code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP status mapping
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validation reports a missing or malformed field
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: "validation", Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown entity id
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: "not_found", Message: entity + " not found"}
}

// Conflict reports an invalid state transition or guard failure
func Conflict(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized reports a missing or invalid session
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: "unauthorized", Message: message}
}

// Forbidden reports an actor without rights over the entity
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "forbidden", Message: message}
}

// RequestTaken is the distinct lost-race outcome for accept: the client must
// surface "no longer available", not a generic failure.
func RequestTaken() *Error {
	return &Error{Kind: KindConflict, Code: "request_taken", Message: "request is no longer available"}
}

// As extracts an *Error from an error chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
