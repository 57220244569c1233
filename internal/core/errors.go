package core

import (
	"errors"

	"geomeet.io/geo-meet/internal/store"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrStorage       = errors.New("storage error")
	ErrUnknownAction = errors.New("unrecognized action")
	ErrConflict      = errors.New("concurrent update conflict")
)

// Error carries a kind, a message safe to show to the caller, and the
// underlying cause if any.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PublicMessage returns the caller-facing text of err, hiding causes.
func PublicMessage(err error) string {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Msg
	}
	return "Internal server error"
}

func validationError(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

// fromStore classifies an error returned by the store.
func fromStore(msg string, notFoundMsg string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: ErrNotFound, Msg: notFoundMsg, Err: err}
	}
	return &Error{Kind: ErrStorage, Msg: msg, Err: err}
}
