package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	// ErrMalformed indicates a document that is not shaped like a schema.
	ErrMalformed = errors.New("schema: malformed document")

	// ErrUnknownValidator indicates a property spec naming a validator the
	// registry cannot resolve.
	ErrUnknownValidator = errors.New("schema: unknown validator")
)

// Error is a structural schema failure at a location in the document.
// It wraps ErrMalformed or ErrUnknownValidator.
type Error struct {
	Location string // e.g. "Node Index Person Property Index: name"
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.Location == "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Msg)
	}

	return fmt.Sprintf("%s: %s: %s", e.Err.Error(), e.Location, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func malformed(location, format string, args ...any) *Error {
	return &Error{Location: location, Msg: fmt.Sprintf(format, args...), Err: ErrMalformed}
}
