package validator

import (
	"errors"
	"fmt"

	"github.com/grafana/regexp"
)

// ErrPattern is returned when a pattern validator does not compile.
var ErrPattern = errors.New("validator: invalid pattern")

// Pattern returns a validator accepting strings that match the regular
// expression. Non-string values are rejected.
func Pattern(pattern, message string) (Func, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPattern, pattern, err)
	}

	return func(value any) error {
		s, ok := value.(string)
		if ok && re.MatchString(s) {
			return nil
		}

		if message != "" {
			return errors.New(message)
		}

		return fmt.Errorf("%v does not match %s", value, pattern)
	}, nil
}
