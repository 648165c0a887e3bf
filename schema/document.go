// Package schema holds the declarative graph schema the engine enforces.
//
// A schema document maps node labels to a LabelSpec. A LabelSpec lists the
// properties a node carrying the label must have, and the relationship types
// (and, per type, the target labels and relationship properties) a node
// carrying the label may originate.
//
// Two wildcard rules derive from a document:
//
//   - a label without required properties is a property wildcard: nodes
//     carrying it skip the unknown-label check;
//   - a label without valid relations is a relation wildcard: relationships
//     starting at a node carrying it are not restricted.
//
// Documents are built once through Parse, Load or New and are read-only
// afterwards, so a single Document may be shared between goroutines.
package schema

import "sort"

// PropertySpec binds a property name to a named validator.
type PropertySpec struct {
	Validator   string `json:"validator"   yaml:"validator"`
	Description string `json:"description" yaml:"description,omitempty"`
}

// Properties maps property names to their spec.
type Properties map[string]PropertySpec

// Targets maps a target label to the properties a relationship into a node
// with that label must carry.
type Targets map[string]Properties

// LabelSpec describes a single label.
type LabelSpec struct {
	Description        string             `json:"description,omitempty" yaml:"description,omitempty"`
	RequiredProperties Properties         `json:"requiredProperties"    yaml:"requiredProperties,omitempty"`
	ValidRelations     map[string]Targets `json:"validRelations"        yaml:"validRelations,omitempty"`
}

// Specs maps a label to its spec. It is the serialised form of a Document.
type Specs map[string]*LabelSpec

// Document is a validated, immutable schema.
type Document struct {
	specs Specs

	propertyWildcards map[string]struct{}
	relationWildcards map[string]struct{}
	relationDeclaring map[string]struct{}
}

func newDocument(specs Specs) *Document {
	d := &Document{
		specs:             specs,
		propertyWildcards: make(map[string]struct{}),
		relationWildcards: make(map[string]struct{}),
		relationDeclaring: make(map[string]struct{}),
	}

	for label, spec := range specs {
		if len(spec.RequiredProperties) == 0 {
			d.propertyWildcards[label] = struct{}{}
		}

		if len(spec.ValidRelations) == 0 {
			d.relationWildcards[label] = struct{}{}
		} else {
			d.relationDeclaring[label] = struct{}{}
		}
	}

	return d
}

// Label returns the spec of a label. The returned spec must not be modified.
func (d *Document) Label(label string) (*LabelSpec, bool) {
	spec, ok := d.specs[label]

	return spec, ok
}

// Has reports whether the label is declared.
func (d *Document) Has(label string) bool {
	_, ok := d.specs[label]

	return ok
}

// IsPropertyWildcard reports whether label is declared without required properties.
func (d *Document) IsPropertyWildcard(label string) bool {
	_, ok := d.propertyWildcards[label]

	return ok
}

// IsRelationWildcard reports whether label is declared without valid relations.
func (d *Document) IsRelationWildcard(label string) bool {
	_, ok := d.relationWildcards[label]

	return ok
}

// DeclaresRelations reports whether label is declared with at least one valid relation.
func (d *Document) DeclaresRelations(label string) bool {
	_, ok := d.relationDeclaring[label]

	return ok
}

// Labels returns the declared labels in sorted order.
func (d *Document) Labels() []string {
	return sortedKeys(d.specs)
}

// PropertyWildcards returns the property wildcard labels in sorted order.
func (d *Document) PropertyWildcards() []string {
	return sortedKeys(d.propertyWildcards)
}

// RelationWildcards returns the relation wildcard labels in sorted order.
func (d *Document) RelationWildcards() []string {
	return sortedKeys(d.relationWildcards)
}

// Specs returns the underlying label specs. The result must not be modified.
func (d *Document) Specs() Specs {
	return d.specs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
