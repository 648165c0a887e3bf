// Package engine enforces a schema.Document on nodes and relationships
// before they are written to a graph store.
//
// Validation of a node may cascade into the relationships of the node, and
// validation of a relationship always cascades into its endpoints. The
// cascade is bounded to one hop in each direction: a node checked on behalf
// of a relationship does not look at its own relationships, and a
// relationship checked on behalf of a node does not re-check that node.
//
// Entities that pass are handed to a Store for creation or update. Failures
// are reported as Outcomes, never as returned errors, so one bad entity does
// not stop a batch. Writes of earlier entities in a batch are not undone
// when a later one fails.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rlch/schemagate/schema"
	"github.com/rlch/schemagate/validator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine validates and persists entities against a schema.
type Engine struct {
	doc        *schema.Document
	validators map[string]validator.Func
	store      Store

	logger      *zap.Logger
	metrics     *Metrics
	parallelism int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Nested cascade failures are logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records outcomes and latencies.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithParallelism sets how many batch entities Apply evaluates at once.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// New creates an Engine. Every validator named in doc is resolved against reg
// once, here; a name reg cannot resolve is an error.
//
// A nil store makes a validation-only engine that persists nothing and does
// not cascade from bound nodes into their stored relationships.
func New(doc *schema.Document, reg validator.Registry, store Store, opts ...Option) (*Engine, error) {
	validators, err := resolve(doc, reg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		doc:         doc,
		validators:  validators,
		store:       store,
		logger:      zap.NewNop(),
		parallelism: 1,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

func resolve(doc *schema.Document, reg validator.Registry) (map[string]validator.Func, error) {
	validators := make(map[string]validator.Func)

	add := func(props schema.Properties) error {
		for _, p := range props {
			if _, ok := validators[p.Validator]; ok {
				continue
			}

			fn, ok := reg.Lookup(p.Validator)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnresolvedValidator, p.Validator)
			}

			validators[p.Validator] = fn
		}

		return nil
	}

	for _, label := range doc.Labels() {
		spec, _ := doc.Label(label)
		if err := add(spec.RequiredProperties); err != nil {
			return nil, err
		}

		for _, targets := range spec.ValidRelations {
			for _, props := range targets {
				if err := add(props); err != nil {
					return nil, err
				}
			}
		}
	}

	return validators, nil
}

// Document returns the schema the engine enforces.
func (e *Engine) Document() *schema.Document {
	return e.doc
}

// Apply validates each entity and persists the ones that pass. The returned
// outcomes are in input order, one per entity.
//
// With parallelism above one, entities are evaluated concurrently unless two
// of them share a node or a bound node is among them, in which case the
// batch runs sequentially.
func (e *Engine) Apply(ctx context.Context, entities ...Entity) []Outcome {
	outcomes := make([]Outcome, len(entities))

	if e.parallelism <= 1 || len(entities) < 2 || !independent(entities) {
		for i, entity := range entities {
			outcomes[i] = e.apply(ctx, i, entity)
		}

		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(e.parallelism)

	for i, entity := range entities {
		g.Go(func() error {
			outcomes[i] = e.apply(ctx, i, entity)

			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}

func (e *Engine) apply(ctx context.Context, index int, entity Entity) Outcome {
	start := time.Now()

	var (
		out  Outcome
		kind string
	)

	switch v := entity.(type) {
	case *Node:
		kind = KindNode.String()
		out = e.CheckNode(ctx, v, false)
	case *Relationship:
		kind = KindRelationship.String()
		out = e.CheckRelationship(ctx, v, EndpointNone)
	default:
		kind = "unknown"
		out = Fail("not sure what to do with an instance of %T", entity)
	}

	if e.metrics != nil {
		e.metrics.observe(kind, out, time.Since(start))
	}

	if !out.Success {
		e.logger.Debug("entity rejected",
			zap.Int("index", index),
			zap.String("kind", kind),
			zap.Bool("store", out.IsStoreError()),
			zap.String("error", out.Message()),
		)
	}

	return out
}

// independent reports whether the entities can be evaluated concurrently:
// no bound node is checked on its own, and no node is referenced by more
// than one entity. Bound nodes are compared by ID as well as by pointer.
//
// A bound node re-checks its stored relationships, and that check writes the
// neighbours as they were read from the store, so it may overwrite a
// concurrent update of a neighbour.
func independent(entities []Entity) bool {
	byNode := make(map[*Node]int)
	byID := make(map[string]int)

	mark := func(n *Node, i int) bool {
		if n == nil {
			return true
		}

		if owner, ok := byNode[n]; ok && owner != i {
			return false
		}

		byNode[n] = i

		if !n.Bound() {
			return true
		}

		if owner, ok := byID[n.ID]; ok && owner != i {
			return false
		}

		byID[n.ID] = i

		return true
	}

	for i, entity := range entities {
		switch v := entity.(type) {
		case *Node:
			if v != nil && v.Bound() {
				return false
			}

			if !mark(v, i) {
				return false
			}
		case *Relationship:
			if v == nil {
				continue
			}

			if !mark(v.Start, i) || !mark(v.End, i) {
				return false
			}
		}
	}

	return true
}

func uniqueSorted(values []string) []string {
	set := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		if _, ok := set[v]; ok {
			continue
		}

		set[v] = struct{}{}
		out = append(out, v)
	}

	sort.Strings(out)

	return out
}
