package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rlch/schemagate/schema"
)

// conflict is a property bound to different validators by different specs.
type conflict struct {
	property   string
	validators []string
}

func joinValidators(c *conflict) string {
	return strings.Join(c.validators, ", ")
}

// mergeProperties unions property specs. If a property name is bound to more
// than one validator, the conflict with the smallest property name is
// returned, so the result does not depend on the order of sources.
func mergeProperties(sources []schema.Properties) (schema.Properties, *conflict) {
	merged := make(schema.Properties)
	validators := make(map[string]map[string]struct{})

	for _, props := range sources {
		for name, spec := range props {
			if validators[name] == nil {
				validators[name] = make(map[string]struct{})
				merged[name] = spec
			}

			validators[name][spec.Validator] = struct{}{}
		}
	}

	var found *conflict

	for name, set := range validators {
		if len(set) < 2 {
			continue
		}

		if found != nil && found.property < name {
			continue
		}

		names := make([]string, 0, len(set))
		for v := range set {
			names = append(names, v)
		}

		sort.Strings(names)

		found = &conflict{property: name, validators: names}
	}

	if found != nil {
		return nil, found
	}

	return merged, nil
}

// checkProperties verifies that every required property is present in props
// and then that every value passes its validator. Properties are visited in
// sorted order.
func (e *Engine) checkProperties(required schema.Properties, props map[string]any, where string) Outcome {
	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if v, ok := props[name]; !ok || v == nil {
			return Fail("Required property %s is not specified in the %s.", name, where)
		}
	}

	for _, name := range names {
		spec := required[name]

		if err := e.runValidator(spec.Validator, props[name]); err != nil {
			return Fail("The required property %s did not pass validation: %s", name, err.Error())
		}
	}

	return Pass()
}

func (e *Engine) runValidator(name string, value any) (err error) {
	fn, ok := e.validators[name]
	if !ok {
		return fmt.Errorf("validator %s is not registered", name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator %s panicked: %v", name, r)
		}
	}()

	return fn(value)
}
