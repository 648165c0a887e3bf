package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine package.
var (
	// ErrValidation is wrapped by every per-entity validation failure.
	ErrValidation = errors.New("engine: validation failed")

	// ErrStore is wrapped by failures of the persistence store.
	ErrStore = errors.New("engine: store failure")

	// ErrUnresolvedValidator is returned by New when the registry cannot
	// resolve a validator named in the schema.
	ErrUnresolvedValidator = errors.New("engine: unresolved validator")
)

// ValidationError is an entity that does not conform to the schema.
// Its message is part of the external contract and is returned verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
