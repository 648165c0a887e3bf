package engine

import (
	"context"
	"strings"

	"github.com/rlch/schemagate/schema"
)

// CheckRelationship validates a relationship and its endpoints and persists
// it on success. The endpoint named by skip is not validated; CheckNode uses
// it to exclude the node whose relationships it is walking.
func (e *Engine) CheckRelationship(ctx context.Context, r *Relationship, skip Endpoint) Outcome {
	if r == nil || r.Start == nil || r.End == nil {
		return Fail("A relation must have exactly two nodes")
	}

	if skip != EndpointStart {
		if out := e.CheckNode(ctx, r.Start, true); !out.Success {
			if out.IsStoreError() {
				return out
			}

			return Fail("starting node failed validation: %s", out.Message())
		}
	}

	if skip != EndpointEnd {
		if out := e.CheckNode(ctx, r.End, true); !out.Success {
			if out.IsStoreError() {
				return out
			}

			return Fail("ending node failed validation: %s", out.Message())
		}
	}

	if out := e.validateRelationship(r); !out.Success {
		return out
	}

	return e.persistRelationship(ctx, r)
}

func (e *Engine) validateRelationship(r *Relationship) Outcome {
	startLabels := uniqueSorted(r.Start.Labels)

	var declaring []*schema.LabelSpec

	for _, label := range startLabels {
		if e.doc.IsRelationWildcard(label) {
			return Pass()
		}

		if spec, ok := e.doc.Label(label); ok && e.doc.DeclaresRelations(label) {
			declaring = append(declaring, spec)
		}
	}

	if len(declaring) == 0 {
		return Pass()
	}

	allowedTypes := make(map[string]struct{})
	for _, spec := range declaring {
		for relType := range spec.ValidRelations {
			allowedTypes[relType] = struct{}{}
		}
	}

	if _, ok := allowedTypes[r.Type]; !ok {
		return Fail("The relation type %s is not in the allowed list of [%s]", r.Type, joinKeys(allowedTypes))
	}

	perTarget := make(map[string][]schema.Properties)
	for _, spec := range declaring {
		for target, props := range spec.ValidRelations[r.Type] {
			perTarget[target] = append(perTarget[target], props)
		}
	}

	// A declared type without targets accepts any end node.
	if len(perTarget) == 0 {
		return Pass()
	}

	allowedTargets := make(map[string]struct{}, len(perTarget))
	merged := make(map[string]schema.Properties, len(perTarget))
	conflicted := make(map[string]*conflict)

	for target, sources := range perTarget {
		allowedTargets[target] = struct{}{}

		props, c := mergeProperties(sources)
		if c != nil {
			conflicted[target] = c

			continue
		}

		merged[target] = props
	}

	endLabels := uniqueSorted(r.End.Labels)

	for _, label := range endLabels {
		if c, ok := conflicted[label]; ok {
			return Fail("The target label %s has conflicting validators for property %s: %s",
				label, c.property, joinValidators(c))
		}
	}

	var sources []schema.Properties

	for _, label := range endLabels {
		if _, ok := allowedTargets[label]; ok {
			sources = append(sources, merged[label])
		}
	}

	if len(sources) == 0 {
		return Fail("The target node has no label(s) that fall into the allowed list of [%s]", joinKeys(allowedTargets))
	}

	required, c := mergeProperties(sources)
	if c != nil {
		return Fail("Property %s has conflicting validators across target labels: %s", c.property, joinValidators(c))
	}

	return e.checkProperties(required, r.Properties, "relation")
}

func (e *Engine) persistRelationship(ctx context.Context, r *Relationship) Outcome {
	if e.store == nil {
		return Pass()
	}

	if r.Bound() {
		if err := e.store.UpdateRelationship(ctx, r); err != nil {
			return e.storeFailure("update relationship", err)
		}

		return Pass()
	}

	if err := e.store.CreateRelationship(ctx, r); err != nil {
		return e.storeFailure("create relationship", err)
	}

	return Pass()
}

func joinKeys(set map[string]struct{}) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}

	return strings.Join(uniqueSorted(keys), ", ")
}
