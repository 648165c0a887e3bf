package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/rlch/schemagate/schema"
)

// describeRow is one (describe node, outgoing relationship) pair.
type describeRow struct {
	name          any
	properties    any
	relType       any
	target        any
	relProperties any
}

func skeletonQuery(describeLabel string) string {
	return "MATCH (d" + labelClause([]string{describeLabel}) + ")\n" +
		"OPTIONAL MATCH (d)-[r]->(t)\n" +
		"RETURN d.name AS name, d.properties AS properties, type(r) AS type, " +
		"t.name AS target, r.properties AS relProperties\n" +
		"ORDER BY name, type, target"
}

// Skeleton builds a schema skeleton from nodes carrying describeLabel.
//
// Each describe node names a label through its "name" property and lists
// the label's required properties in its "properties" property. Each
// outgoing relationship of a describe node declares a valid relation whose
// target is the "name" of the end node, with the relationship's own
// "properties" as the relation's required properties.
//
// Validators are left empty, so the skeleton must be completed before it
// can be loaded.
func (s *Store) Skeleton(ctx context.Context, describeLabel string) (schema.Specs, error) {
	records, err := s.run(ctx, neo4j.AccessModeRead, skeletonQuery(describeLabel), nil)
	if err != nil {
		return nil, err
	}

	rows := make([]describeRow, 0, len(records))

	for _, record := range records {
		if len(record.Values) != 5 {
			return nil, fmt.Errorf("neo4j: expected 5 values, got %d", len(record.Values))
		}

		v := record.Values
		rows = append(rows, describeRow{
			name:          v[0],
			properties:    v[1],
			relType:       v[2],
			target:        v[3],
			relProperties: v[4],
		})
	}

	return buildSkeleton(rows), nil
}

// buildSkeleton folds describe rows into specs. Rows without a string name
// are ignored, as are relationships whose end node has no string name.
func buildSkeleton(rows []describeRow) schema.Specs {
	specs := make(schema.Specs)

	for _, row := range rows {
		name, ok := row.name.(string)
		if !ok || name == "" {
			continue
		}

		spec, ok := specs[name]
		if !ok {
			spec = &schema.LabelSpec{
				RequiredProperties: make(schema.Properties),
				ValidRelations:     make(map[string]schema.Targets),
			}
			specs[name] = spec
		}

		addProperties(spec.RequiredProperties, row.properties)

		relType, ok := row.relType.(string)
		if !ok || relType == "" {
			continue
		}

		target, ok := row.target.(string)
		if !ok || target == "" {
			continue
		}

		targets, ok := spec.ValidRelations[relType]
		if !ok {
			targets = make(schema.Targets)
			spec.ValidRelations[relType] = targets
		}

		props, ok := targets[target]
		if !ok {
			props = make(schema.Properties)
			targets[target] = props
		}

		addProperties(props, row.relProperties)
	}

	return specs
}

func addProperties(props schema.Properties, list any) {
	var names []string

	switch v := list.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	case []string:
		names = v
	case string:
		names = []string{v}
	}

	for _, name := range names {
		if name == "" {
			continue
		}

		if _, ok := props[name]; !ok {
			props[name] = schema.PropertySpec{}
		}
	}
}
