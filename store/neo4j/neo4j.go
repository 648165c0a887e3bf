// Package neo4j provides an engine.Store backed by Neo4j.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/rlch/schemagate"
	"github.com/rlch/schemagate/engine"
)

var (
	// ErrNotFound is returned when an element id matches nothing.
	ErrNotFound = errors.New("neo4j: element not found")

	// ErrUnbound is returned when a relationship endpoint has no element id.
	ErrUnbound = errors.New("neo4j: relationship endpoint is not persisted")

	// ErrNoURI is returned by New when the configuration has no URI.
	ErrNoURI = errors.New("neo4j: uri is required")
)

// Store implements engine.Store for Neo4j. Element ids are used as entity IDs.
type Store struct {
	driver neo4j.DriverWithContext
	db     string
}

// New connects to the Neo4j instance described by cfg.
func New(ctx context.Context, cfg *schemagate.Neo4jConfig) (*Store, error) {
	if cfg == nil || cfg.URI == "" {
		return nil, ErrNoURI
	}

	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver: %w", err)
	}

	err = driver.VerifyConnectivity(ctx)
	if err != nil {
		_ = driver.Close(ctx)

		return nil, fmt.Errorf("neo4j: failed to connect: %w", err)
	}

	return &Store{driver: driver, db: cfg.Database}, nil
}

// Close releases the driver.
func (s *Store) Close(ctx context.Context) error {
	if err := s.driver.Close(ctx); err != nil {
		return fmt.Errorf("neo4j: failed to close driver: %w", err)
	}

	return nil
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	cfg := neo4j.SessionConfig{AccessMode: mode}
	if s.db != "" {
		cfg.DatabaseName = s.db
	}

	return s.driver.NewSession(ctx, cfg)
}

func (s *Store) run(ctx context.Context, mode neo4j.AccessMode, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.session(ctx, mode)
	defer func() { _ = session.Close(ctx) }()

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("neo4j: query execution failed: %w", err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to collect results: %w", err)
	}

	return records, nil
}

// writeID runs a write returning a single element id as "id".
func (s *Store) writeID(ctx context.Context, query string, params map[string]any, what string) (string, error) {
	records, err := s.run(ctx, neo4j.AccessModeWrite, query, params)
	if err != nil {
		return "", err
	}

	if len(records) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, what)
	}

	id, _ := records[0].Get("id")

	str, ok := id.(string)
	if !ok {
		return "", fmt.Errorf("neo4j: unexpected element id %T", id)
	}

	return str, nil
}

// CreateNode creates n and sets its ID to the new element id.
func (s *Store) CreateNode(ctx context.Context, n *engine.Node) error {
	id, err := s.writeID(ctx, createNodeQuery(n.Labels), map[string]any{
		"props": properties(n.Properties),
	}, "node")
	if err != nil {
		return err
	}

	n.ID = id

	return nil
}

// UpdateNode replaces the properties of n and adds its labels. Labels the
// stored node carries beyond n.Labels are left in place.
func (s *Store) UpdateNode(ctx context.Context, n *engine.Node) error {
	_, err := s.writeID(ctx, updateNodeQuery(n.Labels), map[string]any{
		"id":    n.ID,
		"props": properties(n.Properties),
	}, "node "+n.ID)

	return err
}

// CreateRelationship creates r between its stored endpoints and sets its ID.
func (s *Store) CreateRelationship(ctx context.Context, r *engine.Relationship) error {
	if !r.Start.Bound() || !r.End.Bound() {
		return ErrUnbound
	}

	id, err := s.writeID(ctx, createRelationshipQuery(r.Type), map[string]any{
		"start": r.Start.ID,
		"end":   r.End.ID,
		"props": properties(r.Properties),
	}, "endpoints "+r.Start.ID+", "+r.End.ID)
	if err != nil {
		return err
	}

	r.ID = id

	return nil
}

// UpdateRelationship replaces the properties of r.
func (s *Store) UpdateRelationship(ctx context.Context, r *engine.Relationship) error {
	_, err := s.writeID(ctx, updateRelationshipQuery, map[string]any{
		"id":    r.ID,
		"props": properties(r.Properties),
	}, "relationship "+r.ID)

	return err
}

// Inbound returns the relationships ending at n.
func (s *Store) Inbound(ctx context.Context, n *engine.Node) ([]*engine.Relationship, error) {
	return s.relationships(ctx, inboundQuery, n)
}

// Outbound returns the relationships starting at n.
func (s *Store) Outbound(ctx context.Context, n *engine.Node) ([]*engine.Relationship, error) {
	return s.relationships(ctx, outboundQuery, n)
}

func (s *Store) relationships(ctx context.Context, query string, n *engine.Node) ([]*engine.Relationship, error) {
	records, err := s.run(ctx, neo4j.AccessModeRead, query, map[string]any{"id": n.ID})
	if err != nil {
		return nil, err
	}

	out := make([]*engine.Relationship, 0, len(records))

	for _, record := range records {
		rel, err := hydrate(record.Values)
		if err != nil {
			return nil, err
		}

		out = append(out, rel)
	}

	return out, nil
}

const (
	updateRelationshipQuery = `MATCH ()-[r]->() WHERE elementId(r) = $id
SET r = $props
RETURN elementId(r) AS id`

	inboundQuery = `MATCH (a)-[r]->(b) WHERE elementId(b) = $id
RETURN a, r, b ORDER BY elementId(r)`

	outboundQuery = `MATCH (a)-[r]->(b) WHERE elementId(a) = $id
RETURN a, r, b ORDER BY elementId(r)`
)

func createNodeQuery(labels []string) string {
	return "CREATE (n" + labelClause(labels) + ")\nSET n = $props\nRETURN elementId(n) AS id"
}

func updateNodeQuery(labels []string) string {
	var b strings.Builder

	b.WriteString("MATCH (n) WHERE elementId(n) = $id\nSET n = $props")

	if len(labels) > 0 {
		b.WriteString("\nSET n")
		b.WriteString(labelClause(labels))
	}

	b.WriteString("\nRETURN elementId(n) AS id")

	return b.String()
}

func createRelationshipQuery(relType string) string {
	return "MATCH (a), (b) WHERE elementId(a) = $start AND elementId(b) = $end\n" +
		"CREATE (a)-[r:" + quote(relType) + "]->(b)\n" +
		"SET r = $props\n" +
		"RETURN elementId(r) AS id"
}

func labelClause(labels []string) string {
	var b strings.Builder

	for _, label := range labels {
		b.WriteString(":")
		b.WriteString(quote(label))
	}

	return b.String()
}

// quote escapes a label or relationship type as a Cypher identifier.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// properties returns a map the driver can send. Neo4j stores no nulls, so nil
// values are dropped.
func properties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))

	for k, v := range props {
		if v == nil {
			continue
		}

		out[k] = v
	}

	return out
}

// hydrate converts an (a, r, b) record into a relationship.
func hydrate(values []any) (*engine.Relationship, error) {
	if len(values) != 3 {
		return nil, fmt.Errorf("neo4j: expected 3 values, got %d", len(values))
	}

	start, ok := values[0].(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("neo4j: expected node, got %T", values[0])
	}

	rel, ok := values[1].(dbtype.Relationship)
	if !ok {
		return nil, fmt.Errorf("neo4j: expected relationship, got %T", values[1])
	}

	end, ok := values[2].(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("neo4j: expected node, got %T", values[2])
	}

	return &engine.Relationship{
		ID:         rel.ElementId,
		Type:       rel.Type,
		Start:      toNode(start),
		End:        toNode(end),
		Properties: nonNil(rel.Props),
	}, nil
}

func toNode(n dbtype.Node) *engine.Node {
	return &engine.Node{ID: n.ElementId, Labels: n.Labels, Properties: nonNil(n.Props)}
}

func nonNil(props map[string]any) map[string]any {
	if props == nil {
		return make(map[string]any)
	}

	return props
}

var _ engine.Store = (*Store)(nil)
