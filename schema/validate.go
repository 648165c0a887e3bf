package schema

import (
	"fmt"

	"github.com/rlch/schemagate/validator"
)

// Validate checks that raw, a decoded JSON or YAML value, is shaped like a
// schema document and that every validator it names resolves in reg.
//
// Validation stops at the first violation. Keys are visited in sorted order
// so the reported violation is deterministic.
func Validate(raw any, reg validator.Registry) error {
	labels, err := asMap(raw, "", "schema")
	if err != nil {
		return err
	}

	if len(labels) == 0 {
		return malformed("", "empty schema")
	}

	for _, label := range sortedKeys(labels) {
		if err := validateLabel(label, labels[label], reg); err != nil {
			return err
		}
	}

	return nil
}

func validateLabel(label string, raw any, reg validator.Registry) error {
	loc := "Node Index " + label
	if label == "" {
		return malformed(loc, "empty node label")
	}

	def, err := asMap(raw, loc, "node definition")
	if err != nil {
		return err
	}

	if err := checkDescription(def, loc); err != nil {
		return err
	}

	if rawProps, ok := def["requiredProperties"]; ok {
		props, err := asMap(rawProps, loc, "requiredProperties")
		if err != nil {
			return err
		}

		if err := validateProperties(props, loc, reg); err != nil {
			return err
		}
	}

	rawRels, ok := def["validRelations"]
	if !ok {
		return nil
	}

	rels, err := asMap(rawRels, loc, "validRelations")
	if err != nil {
		return err
	}

	for _, relType := range sortedKeys(rels) {
		relLoc := loc + " Relation Index: " + relType
		if relType == "" {
			return malformed(relLoc, "empty relation type")
		}

		targets, err := asMap(rels[relType], relLoc, "relation definition")
		if err != nil {
			return err
		}

		for _, target := range sortedKeys(targets) {
			targetLoc := relLoc + " Target Index: " + target
			if target == "" {
				return malformed(targetLoc, "empty target label")
			}

			props, err := asMap(targets[target], targetLoc, "target definition")
			if err != nil {
				return err
			}

			if err := validateProperties(props, targetLoc, reg); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateProperties(props map[string]any, loc string, reg validator.Registry) error {
	for _, name := range sortedKeys(props) {
		propLoc := loc + " Property Index: " + name
		if name == "" {
			return malformed(propLoc, "empty property name")
		}

		def, err := asMap(props[name], propLoc, "property definition")
		if err != nil {
			return err
		}

		v, ok := def["validator"].(string)
		if !ok || v == "" {
			return malformed(propLoc, "no validator or invalid validator value")
		}

		if _, ok := reg.Lookup(v); !ok {
			return &Error{Location: propLoc, Msg: fmt.Sprintf("validator %q is not registered", v), Err: ErrUnknownValidator}
		}

		if err := checkDescription(def, propLoc); err != nil {
			return err
		}
	}

	return nil
}

func checkDescription(def map[string]any, loc string) error {
	d, ok := def["description"]
	if !ok {
		return nil
	}

	if _, ok := d.(string); !ok {
		return malformed(loc, "description is not a string")
	}

	return nil
}

// asMap normalises a decoded mapping. YAML decodes mappings with non-string
// keys as map[any]any; those are rejected.
func asMap(raw any, loc, what string) (map[string]any, error) {
	switch m := raw.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			s, ok := k.(string)
			if !ok {
				return nil, malformed(loc, "invalid key %v in %s", k, what)
			}

			out[s] = v
		}

		return out, nil
	default:
		return nil, malformed(loc, "%s is not a mapping", what)
	}
}
