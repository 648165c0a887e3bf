package engine

import (
	"context"

	"github.com/rlch/schemagate/schema"
	"go.uber.org/zap"
)

// CheckNode validates a node and persists it on success.
//
// Unless fromRelationshipCheck is set, a bound node also has each of its
// stored relationships validated, with the node itself excluded from the
// endpoint checks. fromRelationshipCheck is set when the node is an endpoint
// of a relationship being checked, which stops the cascade there.
func (e *Engine) CheckNode(ctx context.Context, n *Node, fromRelationshipCheck bool) Outcome {
	if n == nil {
		return Fail("node is nil")
	}

	if out := e.validateNode(n); !out.Success {
		return out
	}

	if !fromRelationshipCheck && n.Bound() && e.store != nil {
		if out := e.cascade(ctx, n); !out.Success {
			return out
		}
	}

	return e.persistNode(ctx, n)
}

func (e *Engine) validateNode(n *Node) Outcome {
	wildcard := false

	for _, label := range n.Labels {
		if e.doc.IsPropertyWildcard(label) {
			wildcard = true

			break
		}
	}

	if !wildcard {
		for _, label := range n.Labels {
			if !e.doc.Has(label) {
				return Fail("%s is not a valid label", label)
			}
		}
	}

	var sources []schema.Properties

	for _, label := range uniqueSorted(n.Labels) {
		if spec, ok := e.doc.Label(label); ok && len(spec.RequiredProperties) > 0 {
			sources = append(sources, spec.RequiredProperties)
		}
	}

	required, c := mergeProperties(sources)
	if c != nil {
		return Fail("Property %s has conflicting validators across labels: %s", c.property, joinValidators(c))
	}

	return e.checkProperties(required, n.Properties, "node")
}

// cascade validates the stored relationships of a bound node.
func (e *Engine) cascade(ctx context.Context, n *Node) Outcome {
	inbound, err := e.store.Inbound(ctx, n)
	if err != nil {
		return e.storeFailure("inbound relations", err)
	}

	for _, rel := range inbound {
		r := *rel
		r.End = n

		if out := e.CheckRelationship(ctx, &r, EndpointEnd); !out.Success {
			if out.IsStoreError() {
				return out
			}

			e.logger.Debug("inbound relation check failed",
				zap.String("node", n.ID),
				zap.String("relation", r.Type),
				zap.String("nested", out.Message()),
			)

			return Fail("Inbound relation check failed")
		}
	}

	outbound, err := e.store.Outbound(ctx, n)
	if err != nil {
		return e.storeFailure("outbound relations", err)
	}

	for _, rel := range outbound {
		r := *rel
		r.Start = n

		if out := e.CheckRelationship(ctx, &r, EndpointStart); !out.Success {
			if out.IsStoreError() {
				return out
			}

			e.logger.Debug("outbound relation check failed",
				zap.String("node", n.ID),
				zap.String("relation", r.Type),
				zap.String("nested", out.Message()),
			)

			return Fail("Outbound relation check failed")
		}
	}

	return Pass()
}

func (e *Engine) persistNode(ctx context.Context, n *Node) Outcome {
	if e.store == nil {
		return Pass()
	}

	if n.Bound() {
		if err := e.store.UpdateNode(ctx, n); err != nil {
			return e.storeFailure("update node", err)
		}

		return Pass()
	}

	if err := e.store.CreateNode(ctx, n); err != nil {
		return e.storeFailure("create node", err)
	}

	return Pass()
}

func (e *Engine) storeFailure(op string, err error) Outcome {
	e.logger.Warn("store operation failed", zap.String("op", op), zap.Error(err))

	return failStore(storeError(op, err))
}
