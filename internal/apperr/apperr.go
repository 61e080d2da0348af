// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apperr defines the closed error taxonomy shared by every component
// that can fail a request: the query manager, the cache, the backup manager,
// authentication, and the HTTP dispatcher. Every operation that can fail
// returns (or wraps) one of these kinds so the dispatcher is the only place
// that ever turns an error into an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a closed taxonomy of error classes. New kinds are never introduced
// ad hoc at call sites; each one is declared here alongside its HTTP status
// and whether its message may be shown on auth-walled endpoints.
type Kind string

const (
	// KindInvalidInput is a malformed or missing request parameter.
	KindInvalidInput Kind = "InvalidInput"
	// KindInvalidBounds is a marker timestamp outside [0, duration) or start >= end.
	KindInvalidBounds Kind = "InvalidBounds"
	// KindOverlap means the requested range collides with an existing marker.
	KindOverlap Kind = "Overlap"
	// KindNotFound means the marker, base item, or section does not exist.
	KindNotFound Kind = "NotFound"
	// KindUnauthorized means no valid session was presented.
	KindUnauthorized Kind = "Unauthorized"
	// KindForbidden means a valid session lacks permission for the action.
	KindForbidden Kind = "Forbidden"
	// KindSuspended means the server is in the Suspended lifecycle state.
	KindSuspended Kind = "Suspended"
	// KindShuttingDown means the server is tearing down.
	KindShuttingDown Kind = "ShuttingDown"
	// KindConfigInvalid means the current configuration blocks the operation.
	KindConfigInvalid Kind = "ConfigInvalid"
	// KindBackend is a host or backup database failure.
	KindBackend Kind = "Backend"
	// KindExternal is a failure in an external collaborator (the media tool).
	KindExternal Kind = "External"
)

// Error is the concrete error type every component returns. It wraps an
// underlying cause (for logging) while exposing a stable Kind and a
// user-facing Message that is safe to send across the auth wall only when
// Safe is true.
type Error struct {
	Kind    Kind
	Message string
	Safe    bool
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// kindMeta describes the fixed properties of a Kind.
type kindMeta struct {
	status  int
	safe    bool // may this Kind's message cross an auth-walled endpoint verbatim
	logWarn bool // log at warn/error instead of suppressing (user-actionable kinds are not logged as errors)
}

var metaByKind = map[Kind]kindMeta{
	KindInvalidInput:  {status: http.StatusBadRequest, safe: true},
	KindInvalidBounds: {status: http.StatusBadRequest, safe: true},
	KindOverlap:       {status: http.StatusConflict, safe: true},
	KindNotFound:      {status: http.StatusNotFound, safe: true},
	KindUnauthorized:  {status: http.StatusUnauthorized, safe: false},
	KindForbidden:     {status: http.StatusForbidden, safe: false},
	KindSuspended:     {status: http.StatusServiceUnavailable, safe: true},
	KindShuttingDown:  {status: http.StatusServiceUnavailable, safe: true},
	KindConfigInvalid: {status: http.StatusServiceUnavailable, safe: true},
	KindBackend:       {status: http.StatusInternalServerError, safe: false, logWarn: true},
	KindExternal:      {status: http.StatusBadGateway, safe: false, logWarn: true},
}

// Status returns the HTTP status code the dispatcher should use for err's Kind.
// Errors that are not *Error map to 500.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) {
		if m, ok := metaByKind[e.Kind]; ok {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// SafeMessage returns the message that may be shown to the client. For
// unsafe kinds it returns a generic message instead of leaking internals.
func SafeMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if m, ok := metaByKind[e.Kind]; ok && m.safe {
			return e.Message
		}
	}
	return "internal error"
}

// ShouldLogAsError reports whether err warrants error-level logging with a
// stack/cause. NotFound and Overlap are user-actionable and never logged at
// error level (spec §7).
func ShouldLogAsError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		if m, ok := metaByKind[e.Kind]; ok {
			return m.logWarn
		}
	}
	return true
}

func new(kind Kind, safe bool, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Safe: safe}
}

func wrap(kind Kind, safe bool, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Safe: safe, cause: cause}
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(format string, args ...interface{}) *Error {
	return new(KindInvalidInput, true, format, args...)
}

// InvalidBounds builds a KindInvalidBounds error.
func InvalidBounds(format string, args ...interface{}) *Error {
	return new(KindInvalidBounds, true, format, args...)
}

// Overlap builds a KindOverlap error.
func Overlap(format string, args ...interface{}) *Error {
	return new(KindOverlap, true, format, args...)
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return new(KindNotFound, true, format, args...)
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(format string, args ...interface{}) *Error {
	return new(KindUnauthorized, false, format, args...)
}

// Forbidden builds a KindForbidden error.
func Forbidden(format string, args ...interface{}) *Error {
	return new(KindForbidden, false, format, args...)
}

// Suspended builds a KindSuspended error.
func Suspended(format string, args ...interface{}) *Error {
	return new(KindSuspended, true, format, args...)
}

// ShuttingDown builds a KindShuttingDown error.
func ShuttingDown(format string, args ...interface{}) *Error {
	return new(KindShuttingDown, true, format, args...)
}

// ConfigInvalid builds a KindConfigInvalid error.
func ConfigInvalid(format string, args ...interface{}) *Error {
	return new(KindConfigInvalid, true, format, args...)
}

// Backend wraps a backend (host/backup database) failure.
func Backend(cause error, format string, args ...interface{}) *Error {
	return wrap(KindBackend, false, cause, format, args...)
}

// External wraps an external-tool failure.
func External(cause error, format string, args ...interface{}) *Error {
	return wrap(KindExternal, false, cause, format, args...)
}

// Is reports whether err (or anything it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
