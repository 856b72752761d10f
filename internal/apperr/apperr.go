// Package apperr defines the error kinds the API reports and the single
// table that maps them to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	InvalidCredentials
	ProfileNotFound
	Unauthenticated
	Forbidden
	Validation
	DuplicateAccount
	NotFound

	kindCount
)

// Sub-codes reported for Unauthenticated so clients can tell an expired
// session from a bad token. Both map to 401.
const (
	CodeTokenExpired = "TokenExpired"
	CodeTokenInvalid = "TokenInvalid"
	CodeTokenMissing = "TokenMissing"
)

var kindTable = [kindCount]struct {
	name   string
	status int
}{
	Internal:           {"Internal", http.StatusInternalServerError},
	InvalidCredentials: {"InvalidCredentials", http.StatusUnauthorized},
	ProfileNotFound:    {"ProfileNotFound", http.StatusNotFound},
	Unauthenticated:    {"Unauthenticated", http.StatusUnauthorized},
	Forbidden:          {"Forbidden", http.StatusForbidden},
	Validation:         {"ValidationError", http.StatusBadRequest},
	DuplicateAccount:   {"DuplicateAccount", http.StatusConflict},
	NotFound:           {"NotFound", http.StatusNotFound},
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return kindTable[Internal].name
	}
	return kindTable[k].name
}

// Status returns the HTTP status for k. Unknown kinds are 500.
func Status(k Kind) int {
	if k < 0 || k >= kindCount {
		return http.StatusInternalServerError
	}
	return kindTable[k].status
}

// Error is an error with a kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	// Code refines Kind for client messaging; defaults to the kind name.
	Code string
	// Fields holds per-field validation messages.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.E(Forbidden, ""))
// works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// ErrorCode returns Code, falling back to the kind name.
func (e *Error) ErrorCode() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NewInvalidCredentials() *Error {
	return E(InvalidCredentials, "Invalid email or password")
}

func NewProfileNotFound(role fmt.Stringer) *Error {
	return E(ProfileNotFound, fmt.Sprintf("No %s profile is linked to this account", role))
}

func NewUnauthenticated(code, message string) *Error {
	return &Error{Kind: Unauthenticated, Code: code, Message: message}
}

func NewForbidden(message string) *Error {
	return E(Forbidden, message)
}

func NewValidation(message string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

func NewDuplicateAccount(message string) *Error {
	return E(DuplicateAccount, message)
}

func NewNotFound(what string) *Error {
	return E(NotFound, what+" not found")
}

// KindOf reports the kind of err. Errors that are not *Error are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// As extracts the *Error from err, wrapping unknown errors as Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(Internal, "Internal server error", err)
}
