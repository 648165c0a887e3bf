package validator

import (
	"fmt"
	"strings"
)

// Enum returns a validator accepting only the given string values.
// The failure message lists the allowed values in declaration order.
func Enum(values ...string) Func {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}

	list := strings.Join(values, ", ")

	return func(value any) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%v is not in list of values %s", value, list)
		}

		if _, ok := allowed[s]; !ok {
			return fmt.Errorf("%s is not in list of values %s", s, list)
		}

		return nil
	}
}
