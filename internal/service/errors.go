package service

import (
	"errors"

	"github.com/atinyakov/rccdash/internal/catalog"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrUnknownIdentity    = errors.New("unknown identity")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrDataLoad           = catalog.ErrDataLoad
)

// DataLoadMessage is the banner shown while reference data is unavailable.
const DataLoadMessage = "Error loading data. Check CSV filenames or run via a local server."

// Error is a user-facing failure of a dashboard operation.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Message is the text shown to the user.
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes Kind to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Message returns the user-facing text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
