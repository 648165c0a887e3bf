package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rlch/schemagate/validator"
	"gopkg.in/yaml.v3"
)

// Load reads, validates and indexes the schema document at path.
func Load(path string, reg validator.Registry) (*Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	doc, err := Parse(data, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

// Parse decodes a JSON or YAML schema document, validates its structure
// against reg and returns the indexed Document.
func Parse(data []byte, reg validator.Registry) (*Document, error) {
	unmarshal := yaml.Unmarshal
	if isJSON(data) {
		unmarshal = json.Unmarshal
	}

	var raw any
	if err := unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing schema: %w", ErrMalformed, err)
	}

	if err := Validate(raw, reg); err != nil {
		return nil, err
	}

	var specs Specs
	if err := unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("%w: decoding schema: %w", ErrMalformed, err)
	}

	return New(specs, reg)
}

// New builds a Document from already-decoded specs. The specs are copied, so
// later changes by the caller do not affect the Document.
func New(specs Specs, reg validator.Registry) (*Document, error) {
	if len(specs) == 0 {
		return nil, malformed("", "empty schema")
	}

	for _, label := range sortedKeys(specs) {
		loc := "Node Index " + label
		if label == "" {
			return nil, malformed(loc, "empty node label")
		}

		spec := specs[label]
		if spec == nil {
			return nil, malformed(loc, "node definition is not a mapping")
		}

		if err := resolveProperties(spec.RequiredProperties, loc, reg); err != nil {
			return nil, err
		}

		for _, relType := range sortedKeys(spec.ValidRelations) {
			relLoc := loc + " Relation Index: " + relType
			if relType == "" {
				return nil, malformed(relLoc, "empty relation type")
			}

			targets := spec.ValidRelations[relType]
			for _, target := range sortedKeys(targets) {
				targetLoc := relLoc + " Target Index: " + target
				if target == "" {
					return nil, malformed(targetLoc, "empty target label")
				}

				if err := resolveProperties(targets[target], targetLoc, reg); err != nil {
					return nil, err
				}
			}
		}
	}

	return newDocument(clone(specs)), nil
}

func resolveProperties(props Properties, loc string, reg validator.Registry) error {
	for _, name := range sortedKeys(props) {
		propLoc := loc + " Property Index: " + name
		if name == "" {
			return malformed(propLoc, "empty property name")
		}

		v := props[name].Validator
		if v == "" {
			return malformed(propLoc, "no validator or invalid validator value")
		}

		if _, ok := reg.Lookup(v); !ok {
			return &Error{Location: propLoc, Msg: fmt.Sprintf("validator %q is not registered", v), Err: ErrUnknownValidator}
		}
	}

	return nil
}

func clone(specs Specs) Specs {
	out := make(Specs, len(specs))

	for label, spec := range specs {
		c := &LabelSpec{
			Description:        spec.Description,
			RequiredProperties: cloneProperties(spec.RequiredProperties),
		}

		if spec.ValidRelations != nil {
			c.ValidRelations = make(map[string]Targets, len(spec.ValidRelations))
			for relType, targets := range spec.ValidRelations {
				ct := make(Targets, len(targets))
				for target, props := range targets {
					ct[target] = cloneProperties(props)
				}

				c.ValidRelations[relType] = ct
			}
		}

		out[label] = c
	}

	return out
}

func cloneProperties(props Properties) Properties {
	if props == nil {
		return nil
	}

	out := make(Properties, len(props))
	for k, v := range props {
		out[k] = v
	}

	return out
}

func isJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)

	return len(trimmed) > 0 && trimmed[0] == '{'
}

// WriteJSON writes specs as JSON with sorted keys and four-space indentation.
func WriteJSON(w io.Writer, specs Specs) error {
	data, err := json.MarshalIndent(specs, "", "    ")
	if err != nil {
		return err
	}

	data = append(data, '\n')

	_, err = w.Write(data)

	return err
}

// WriteYAML writes specs as YAML.
func WriteYAML(w io.Writer, specs Specs) (err error) {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	defer func() {
		if cerr := encoder.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return encoder.Encode(specs)
}
