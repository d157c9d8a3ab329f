// Package apperr defines the error taxonomy shared by the service layer
// and the HTTP handlers. Business-rule failures carry a Kind so handlers
// can choose a status code without inspecting message text; anything that
// is not an *Error is treated as internal and hidden behind a generic
// 500 response.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	Internal   Kind = iota // unexpected failure (database, mail, broker)
	Validation             // bad input or business-rule violation
	NotFound               // missing settings, OTP or booking
	Conflict               // per-user seat limit, duplicate seat
)

// Error is a classified application error safe to surface to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validationf builds a Validation error from a format string.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: Validation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error from a format string.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a Conflict error from a format string.
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or Internal when err is not an
// application error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}
