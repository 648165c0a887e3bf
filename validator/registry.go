// Package validator provides the named property-value validators a schema
// document refers to.
//
// A validator is an opaque capability: it receives one property value and
// either accepts it (nil error) or rejects it with a message that is surfaced
// verbatim to the caller of the schema engine. The engine only ever resolves
// validators by exact name through the Registry interface.
package validator

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for the validator package.
var (
	// ErrEmptyName is returned when registering a validator without a name.
	ErrEmptyName = errors.New("validator: empty name")

	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("validator: duplicate name")

	// ErrNilFunc is returned when registering a nil validator.
	ErrNilFunc = errors.New("validator: nil func")
)

// Func validates a single property value.
// A nil return means the value passed.
type Func func(value any) error

// Registry resolves a validator name to its Func.
type Registry interface {
	Lookup(name string) (Func, bool)
}

// Set is a Registry backed by a map.
//
// Register must not be called concurrently with Lookup. Once populated a Set
// is read-only and safe to share between goroutines.
type Set struct {
	funcs map[string]Func
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{funcs: make(map[string]Func)}
}

// Register adds a named validator.
func (s *Set) Register(name string, fn Func) error {
	if name == "" {
		return ErrEmptyName
	}

	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilFunc, name)
	}

	if _, exists := s.funcs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}

	s.funcs[name] = fn

	return nil
}

// MustRegister is like Register but panics on error.
func (s *Set) MustRegister(name string, fn Func) {
	if err := s.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup implements Registry.
func (s *Set) Lookup(name string) (Func, bool) {
	fn, ok := s.funcs[name]

	return fn, ok
}

// Names returns the registered names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.funcs))
	for name := range s.funcs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of registered validators.
func (s *Set) Len() int {
	return len(s.funcs)
}

var _ Registry = (*Set)(nil)
