package validator

import (
	"fmt"
	"sort"

	"github.com/rlch/schemagate"
)

// FromConfig returns the built-in validators extended with the validators
// declared in the config. A configured name may not shadow a built-in.
func FromConfig(cfgs map[string]schemagate.ValidatorConfig) (*Set, error) {
	s := Builtins()

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fn, err := build(cfgs[name])
		if err != nil {
			return nil, fmt.Errorf("validator %s: %w", name, err)
		}

		if err := s.Register(name, fn); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func build(cfg schemagate.ValidatorConfig) (Func, error) {
	kind, err := cfg.Kind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case schemagate.ValidatorKindEnum:
		return Enum(cfg.Enum...), nil
	case schemagate.ValidatorKindExpr:
		return Expr(cfg.Expr, cfg.Message)
	case schemagate.ValidatorKindPattern:
		return Pattern(cfg.Pattern, cfg.Message)
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", schemagate.ErrInvalidValidator, kind)
	}
}
