package validator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Built-in validator names.
const (
	NameInteger  = "integer"
	NameFloat    = "float"
	NameString   = "string"
	NameBoolean  = "boolean"
	NameNonEmpty = "nonEmpty"
	NameConflict = "conflict"
)

var (
	errNotInteger = errors.New("Not an integer and could not convert to an integer") //nolint:staticcheck // message is user facing
	errNotFloat   = errors.New("Not a number and could not convert to a number")     //nolint:staticcheck // message is user facing
	errNotString  = errors.New("Not a string and could not convert to a string")     //nolint:staticcheck // message is user facing
	errNotBoolean = errors.New("Not a boolean")                                      //nolint:staticcheck // message is user facing
	errEmpty      = errors.New("Value is empty")                                     //nolint:staticcheck // message is user facing
)

// Builtins returns a Set holding the built-in validators.
func Builtins() *Set {
	s := NewSet()
	s.MustRegister(NameInteger, Integer)
	s.MustRegister(NameFloat, Float)
	s.MustRegister(NameString, String)
	s.MustRegister(NameBoolean, Boolean)
	s.MustRegister(NameNonEmpty, NonEmpty)
	s.MustRegister(NameConflict, Accept)

	return s
}

// Integer accepts values that convert to an integer: integer kinds, finite
// floats (truncated), booleans and strings that parse as base-10 integers.
func Integer(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float32:
		return integral(float64(v))
	case float64:
		return integral(v)
	case bool:
		return nil
	case string:
		if _, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err != nil {
			return errNotInteger
		}

		return nil
	default:
		return errNotInteger
	}
}

func integral(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errNotInteger
	}

	return nil
}

// Float accepts any numeric value or a string that parses as a float.
func Float(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return nil
	case string:
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			return errNotFloat
		}

		return nil
	default:
		return errNotFloat
	}
}

// String accepts scalar values that have a string form.
func String(value any) error {
	switch value.(type) {
	case string, []byte, fmt.Stringer, bool,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return nil
	default:
		return errNotString
	}
}

// Boolean accepts booleans only.
func Boolean(value any) error {
	if _, ok := value.(bool); !ok {
		return errNotBoolean
	}

	return nil
}

// NonEmpty rejects nil, empty strings and empty collections.
func NonEmpty(value any) error {
	switch v := value.(type) {
	case nil:
		return errEmpty
	case string:
		if strings.TrimSpace(v) == "" {
			return errEmpty
		}
	case []any:
		if len(v) == 0 {
			return errEmpty
		}
	case []string:
		if len(v) == 0 {
			return errEmpty
		}
	case map[string]any:
		if len(v) == 0 {
			return errEmpty
		}
	}

	return nil
}

// Accept accepts every value.
func Accept(any) error {
	return nil
}
