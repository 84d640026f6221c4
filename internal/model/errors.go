package model

import (
	"errors"
	"fmt"
)

// Kind classifies the failure modes the control plane can report. HTTP
// handlers translate a Kind to a status code; nothing outside internal/model
// and internal/httpapi needs to know the mapping.
type Kind int

const (
	// KindInternal is the zero value: an error with no special handling.
	KindInternal Kind = iota
	KindValidationFailed
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidReorder
)

// Error wraps a cause with a Kind so callers can classify it with errors.As
// without parsing messages.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newErrf(k Kind, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// ValidationFailed reports a malformed or semantically invalid DisplayItem,
// brightness value, or reorder request body.
func ValidationFailed(format string, args ...any) error {
	return newErrf(KindValidationFailed, format, args...)
}

// NotFound reports a missing playlist item or preview session.
func NotFound(format string, args ...any) error {
	return newErrf(KindNotFound, format, args...)
}

// Forbidden reports a session_id that does not own the active preview.
func Forbidden(format string, args ...any) error {
	return newErrf(KindForbidden, format, args...)
}

// Conflict reports an attempt to acquire preview while another session holds it.
func Conflict(format string, args ...any) error {
	return newErrf(KindConflict, format, args...)
}

// InvalidReorder reports a reorder request whose id set or length doesn't
// match the current playlist.
func InvalidReorder(format string, args ...any) error {
	return newErrf(KindInvalidReorder, format, args...)
}

// KindOf extracts the Kind from err, defaulting to KindInternal if err does
// not wrap a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
