// Package memory provides a thread-safe in-memory graph store.
//
// The store backs dry runs and tests. It keeps a label index and inbound and
// outbound edge indexes so the relationships of a node are found without a
// scan. Entities are copied on the way in and on the way out; callers never
// share maps with the store.
//
// Example:
//
//	st := memory.New()
//	eng, err := engine.New(doc, validators, st)
//	if err != nil {
//		return err
//	}
//
//	outcomes := eng.Apply(ctx, entities...)
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/rlch/schemagate/engine"
)

// Sentinel errors for the memory store.
var (
	ErrNotFound = errors.New("memory: not found")
	ErrUnbound  = errors.New("memory: relationship endpoint is not persisted")
	ErrBound    = errors.New("memory: entity already has an id")
	ErrClosed   = errors.New("memory: store is closed")
)

type node struct {
	id         string
	labels     []string
	properties map[string]any
}

type relationship struct {
	id         string
	typ        string
	start      string
	end        string
	properties map[string]any
}

// Store is an in-memory engine.Store.
type Store struct {
	mu sync.RWMutex

	nodes         map[string]*node
	relationships map[string]*relationship

	nodesByLabel map[string]map[string]struct{}
	outgoing     map[string]map[string]struct{}
	incoming     map[string]map[string]struct{}

	seq    int
	closed bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nodes:         make(map[string]*node),
		relationships: make(map[string]*relationship),
		nodesByLabel:  make(map[string]map[string]struct{}),
		outgoing:      make(map[string]map[string]struct{}),
		incoming:      make(map[string]map[string]struct{}),
	}
}

func (s *Store) nextID(prefix string) string {
	s.seq++

	return fmt.Sprintf("%s%d", prefix, s.seq)
}

// CreateNode stores n and assigns its ID.
func (s *Store) CreateNode(_ context.Context, n *engine.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if n.Bound() {
		return fmt.Errorf("%w: node %s", ErrBound, n.ID)
	}

	stored := &node{
		id:         s.nextID("n"),
		labels:     slices.Clone(n.Labels),
		properties: maps.Clone(n.Properties),
	}

	s.nodes[stored.id] = stored
	s.indexLabels(stored.id, stored.labels)

	n.ID = stored.id

	return nil
}

// UpdateNode replaces the labels and properties of a stored node.
func (s *Store) UpdateNode(_ context.Context, n *engine.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	stored, ok := s.nodes[n.ID]
	if !ok {
		return fmt.Errorf("%w: node %s", ErrNotFound, n.ID)
	}

	s.unindexLabels(stored.id, stored.labels)

	stored.labels = slices.Clone(n.Labels)
	stored.properties = maps.Clone(n.Properties)

	s.indexLabels(stored.id, stored.labels)

	return nil
}

// CreateRelationship stores r and assigns its ID. Both endpoints must
// already be stored.
func (s *Store) CreateRelationship(_ context.Context, r *engine.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if r.Bound() {
		return fmt.Errorf("%w: relationship %s", ErrBound, r.ID)
	}

	if err := s.checkEndpoint(r.Start); err != nil {
		return err
	}

	if err := s.checkEndpoint(r.End); err != nil {
		return err
	}

	stored := &relationship{
		id:         s.nextID("r"),
		typ:        r.Type,
		start:      r.Start.ID,
		end:        r.End.ID,
		properties: maps.Clone(r.Properties),
	}

	s.relationships[stored.id] = stored
	addIndex(s.outgoing, stored.start, stored.id)
	addIndex(s.incoming, stored.end, stored.id)

	r.ID = stored.id

	return nil
}

// UpdateRelationship replaces the properties of a stored relationship. The
// type and endpoints of a relationship are fixed at creation.
func (s *Store) UpdateRelationship(_ context.Context, r *engine.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	stored, ok := s.relationships[r.ID]
	if !ok {
		return fmt.Errorf("%w: relationship %s", ErrNotFound, r.ID)
	}

	stored.properties = maps.Clone(r.Properties)

	return nil
}

// Inbound returns the relationships ending at n, ordered by id.
func (s *Store) Inbound(_ context.Context, n *engine.Node) ([]*engine.Relationship, error) {
	return s.edges(n, s.incoming)
}

// Outbound returns the relationships starting at n, ordered by id.
func (s *Store) Outbound(_ context.Context, n *engine.Node) ([]*engine.Relationship, error) {
	return s.edges(n, s.outgoing)
}

func (s *Store) edges(n *engine.Node, index map[string]map[string]struct{}) ([]*engine.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	if _, ok := s.nodes[n.ID]; !ok {
		return nil, fmt.Errorf("%w: node %s", ErrNotFound, n.ID)
	}

	ids := sortedIDs(index[n.ID])
	out := make([]*engine.Relationship, 0, len(ids))

	for _, id := range ids {
		out = append(out, s.copyRelationship(s.relationships[id]))
	}

	return out, nil
}

// Node returns a copy of the stored node with the given id.
func (s *Store) Node(id string) (*engine.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: node %s", ErrNotFound, id)
	}

	return copyNode(stored), nil
}

// Relationship returns a copy of the stored relationship with the given id.
func (s *Store) Relationship(id string) (*engine.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.relationships[id]
	if !ok {
		return nil, fmt.Errorf("%w: relationship %s", ErrNotFound, id)
	}

	return s.copyRelationship(stored), nil
}

// NodesByLabel returns copies of the nodes carrying label, ordered by id.
func (s *Store) NodesByLabel(label string) []*engine.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := sortedIDs(s.nodesByLabel[label])
	out := make([]*engine.Node, 0, len(ids))

	for _, id := range ids {
		out = append(out, copyNode(s.nodes[id]))
	}

	return out
}

// NodeCount returns the number of stored nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes)
}

// RelationshipCount returns the number of stored relationships.
func (s *Store) RelationshipCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.relationships)
}

// Close marks the store closed. Later writes and lookups fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *Store) checkEndpoint(n *engine.Node) error {
	if n == nil || !n.Bound() {
		return ErrUnbound
	}

	if _, ok := s.nodes[n.ID]; !ok {
		return fmt.Errorf("%w: node %s", ErrNotFound, n.ID)
	}

	return nil
}

func (s *Store) indexLabels(id string, labels []string) {
	for _, label := range labels {
		addIndex(s.nodesByLabel, label, id)
	}
}

func (s *Store) unindexLabels(id string, labels []string) {
	for _, label := range labels {
		ids := s.nodesByLabel[label]
		delete(ids, id)

		if len(ids) == 0 {
			delete(s.nodesByLabel, label)
		}
	}
}

func (s *Store) copyRelationship(r *relationship) *engine.Relationship {
	return &engine.Relationship{
		ID:         r.id,
		Type:       r.typ,
		Start:      copyNode(s.nodes[r.start]),
		End:        copyNode(s.nodes[r.end]),
		Properties: maps.Clone(r.properties),
	}
}

func copyNode(n *node) *engine.Node {
	props := maps.Clone(n.properties)
	if props == nil {
		props = make(map[string]any)
	}

	return &engine.Node{
		ID:         n.id,
		Labels:     slices.Clone(n.labels),
		Properties: props,
	}
}

func addIndex(index map[string]map[string]struct{}, key, id string) {
	if index[key] == nil {
		index[key] = make(map[string]struct{})
	}

	index[key][id] = struct{}{}
}

// sortedIDs orders ids by creation, so n10 follows n9.
func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}

		return ids[i] < ids[j]
	})

	return ids
}

var _ engine.Store = (*Store)(nil)
