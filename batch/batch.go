// Package batch decodes batch files into entities for the engine.
//
// A batch file declares nodes by reference and then lists, in order, the
// entities to apply:
//
//	nodes:
//	  bob:    {labels: [Person], properties: {name: Bob, age: 26}}
//	  python: {id: "4:abc:7", labels: [ProgLanguage]}
//	apply:
//	  - node: bob
//	  - relationship: {type: codesIn, start: bob, end: python, properties: {experience: rookie}}
//
// Every use of a reference resolves to the same *engine.Node, so an id
// assigned while applying one entry is seen by later entries.
package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rlch/schemagate/engine"
)

// Sentinel errors for batch decoding.
var (
	ErrMalformed  = errors.New("batch: malformed file")
	ErrUnknownRef = errors.New("batch: unknown node reference")
	ErrStep       = errors.New("batch: invalid apply step")
)

// NodeDef declares a node. A node with an ID is bound.
type NodeDef struct {
	ID         string         `json:"id,omitempty"         yaml:"id,omitempty"`
	Labels     []string       `json:"labels"               yaml:"labels"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// RelationshipDef declares a relationship between two node references.
type RelationshipDef struct {
	ID         string         `json:"id,omitempty"         yaml:"id,omitempty"`
	Type       string         `json:"type"                 yaml:"type"`
	Start      string         `json:"start"                yaml:"start"`
	End        string         `json:"end"                  yaml:"end"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Step is one apply entry. Exactly one field is set.
type Step struct {
	Node         string           `json:"node,omitempty"         yaml:"node,omitempty"`
	Relationship *RelationshipDef `json:"relationship,omitempty" yaml:"relationship,omitempty"`
}

// File is the serialised form of a batch.
type File struct {
	Nodes map[string]NodeDef `json:"nodes" yaml:"nodes"`
	Apply []Step             `json:"apply" yaml:"apply"`
}

// Batch is a decoded batch, ready for engine.Apply.
type Batch struct {
	// Entities are in apply order.
	Entities []engine.Entity

	// Names describe each entity for reports, e.g. "bob" or
	// "bob-[codesIn]->python".
	Names []string

	// Nodes maps each reference to its node.
	Nodes map[string]*engine.Node
}

// Load reads and decodes a batch file.
func Load(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	b, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return b, nil
}

// Decode decodes a YAML or JSON batch.
func Decode(data []byte) (*Batch, error) {
	var f File

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()

		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	} else if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return f.Build()
}

// Build resolves references and returns the batch.
func (f *File) Build() (*Batch, error) {
	b := &Batch{Nodes: make(map[string]*engine.Node, len(f.Nodes))}

	for ref, def := range f.Nodes {
		n := engine.NewNode(def.Labels, normalizeMap(def.Properties))
		n.ID = def.ID
		b.Nodes[ref] = n
	}

	lookup := func(i int, ref string) (*engine.Node, error) {
		n, ok := b.Nodes[ref]
		if !ok {
			return nil, fmt.Errorf("%w: apply[%d]: %q", ErrUnknownRef, i, ref)
		}

		return n, nil
	}

	for i, step := range f.Apply {
		switch {
		case step.Node != "" && step.Relationship != nil:
			return nil, fmt.Errorf("%w: apply[%d]: both node and relationship set", ErrStep, i)

		case step.Node != "":
			n, err := lookup(i, step.Node)
			if err != nil {
				return nil, err
			}

			b.Entities = append(b.Entities, n)
			b.Names = append(b.Names, step.Node)

		case step.Relationship != nil:
			def := step.Relationship
			if def.Type == "" {
				return nil, fmt.Errorf("%w: apply[%d]: relationship has no type", ErrStep, i)
			}

			start, err := lookup(i, def.Start)
			if err != nil {
				return nil, err
			}

			end, err := lookup(i, def.End)
			if err != nil {
				return nil, err
			}

			r := engine.NewRelationship(start, def.Type, end, normalizeMap(def.Properties))
			r.ID = def.ID

			b.Entities = append(b.Entities, r)
			b.Names = append(b.Names, def.Start+"-["+def.Type+"]->"+def.End)

		default:
			return nil, fmt.Errorf("%w: apply[%d]: neither node nor relationship set", ErrStep, i)
		}
	}

	return b, nil
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}

	return out
}

// normalize converts JSON numbers to int64 or float64 and nested YAML maps
// to map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}

		if f, err := strconv.ParseFloat(t.String(), 64); err == nil {
			return f
		}

		return t.String()
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}

		return out
	default:
		return v
	}
}
