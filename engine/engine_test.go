package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/schemagate/schema"
	"github.com/rlch/schemagate/validator"
)

func messages(outcomes []Outcome) []string {
	out := make([]string, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Message()
	}

	return out
}

func TestNew_UnresolvedValidator(t *testing.T) {
	t.Parallel()

	doc := parseSchema(t, exampleSchema)

	_, err := New(doc, validator.Builtins(), nil)
	require.ErrorIs(t, err, ErrUnresolvedValidator)
	assert.Contains(t, err.Error(), "codeExEnum")

	e, err := New(doc, testRegistry(), nil)
	require.NoError(t, err)
	assert.Same(t, doc, e.Document())
}

func TestNew_ResolvesFromDocumentBuiltWithNew(t *testing.T) {
	t.Parallel()

	doc, err := schema.New(schema.Specs{
		"Person": {RequiredProperties: schema.Properties{"name": {Validator: "string"}}},
	}, validator.Builtins())
	require.NoError(t, err)

	e, err := New(doc, validator.Builtins(), nil)
	require.NoError(t, err)

	out := e.CheckNode(t.Context(), NewNode([]string{"Person"}, map[string]any{"name": "Ann"}), false)
	assert.True(t, out.Success, out.Message())
}

func TestApply_PreservesOrder(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, exampleSchema, nil)

	bob := NewNode([]string{"Person"}, nil)

	outcomes := e.Apply(t.Context(),
		bob,
		NewRelationship(bob, "knows", NewNode([]string{"ProgLanguage"}, nil), nil),
		alienEntity{},
		NewNode([]string{"Alien"}, nil),
		NewRelationship(bob, "knows", NewNode([]string{"Person"}, nil), nil),
	)

	want := []string{
		"",
		"The target node has no label(s) that fall into the allowed list of [Person]",
		"not sure what to do with an instance of engine.alienEntity",
		"Alien is not a valid label",
		"",
	}

	if diff := cmp.Diff(want, messages(outcomes)); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[2].Success)
	assert.True(t, outcomes[4].Success)
}

func TestApply_Empty(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, exampleSchema, nil)

	assert.Empty(t, e.Apply(t.Context()))
}

func TestApply_ContinuesAfterStoreFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	e := newTestEngine(t, exampleSchema, store)

	ok := NewNode([]string{"ProgLanguage"}, nil)
	store.fail["UpdateNode"] = fmt.Errorf("disk full")

	outcomes := e.Apply(t.Context(),
		&Node{ID: "n9", Labels: []string{"Person"}},
		ok,
	)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].IsStoreError())
	assert.True(t, outcomes[1].Success, outcomes[1].Message())
	assert.NotEmpty(t, ok.ID)
}

func TestApply_Parallel(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	e := newTestEngine(t, exampleSchema, store, WithParallelism(4))

	const n = 32

	entities := make([]Entity, n)
	want := make([]string, n)

	for i := range n {
		if i%3 == 0 {
			entities[i] = NewNode([]string{fmt.Sprintf("Alien%d", i)}, nil)
			want[i] = fmt.Sprintf("Alien%d is not a valid label", i)

			continue
		}

		entities[i] = NewNode([]string{"Person"}, map[string]any{"i": i})
	}

	outcomes := e.Apply(t.Context(), entities...)

	if diff := cmp.Diff(want, messages(outcomes)); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, n-11, store.count("CreateNode"))
}

func TestApply_SharedNodesRunSequentially(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	e := newTestEngine(t, exampleSchema, store, WithParallelism(8))

	bob := NewNode([]string{"Person"}, nil)
	jim := NewNode([]string{"Person"}, nil)

	outcomes := e.Apply(t.Context(),
		bob,
		jim,
		NewRelationship(bob, "knows", jim, nil),
	)

	for _, o := range outcomes {
		assert.True(t, o.Success, o.Message())
	}

	// Sequential order: the relationship sees the ids assigned to its endpoints.
	assert.Equal(t, []string{
		"CreateNode ",
		"CreateNode ",
		"UpdateNode n1",
		"UpdateNode n2",
		"CreateRelationship ",
	}, store.Calls())
}

// slowGraph keeps node properties by id and serves stored relationships
// with latency, returning fresh copies of the endpoints on every read.
type slowGraph struct {
	mu    sync.Mutex
	props map[string]map[string]any
	rels  [][2]string // start id, end id of "knows" relationships
	delay time.Duration
}

func (g *slowGraph) node(id string) *Node {
	return &Node{ID: id, Labels: []string{"Person"}, Properties: maps.Clone(g.props[id])}
}

func (g *slowGraph) CreateNode(context.Context, *Node) error { return nil }

func (g *slowGraph) UpdateNode(_ context.Context, n *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.props[n.ID] = maps.Clone(n.Properties)

	return nil
}

func (g *slowGraph) CreateRelationship(context.Context, *Relationship) error { return nil }

func (g *slowGraph) UpdateRelationship(context.Context, *Relationship) error { return nil }

func (g *slowGraph) edges(n *Node, end bool) []*Relationship {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []*Relationship

	for i, rel := range g.rels {
		if (end && rel[1] == n.ID) || (!end && rel[0] == n.ID) {
			out = append(out, &Relationship{
				ID:    fmt.Sprintf("r%d", i),
				Type:  "knows",
				Start: g.node(rel[0]),
				End:   g.node(rel[1]),
			})
		}
	}

	return out
}

func (g *slowGraph) Inbound(_ context.Context, n *Node) ([]*Relationship, error) {
	time.Sleep(g.delay)

	return g.edges(n, true), nil
}

func (g *slowGraph) Outbound(_ context.Context, n *Node) ([]*Relationship, error) {
	rels := g.edges(n, false)
	if len(rels) > 0 {
		time.Sleep(3 * g.delay)
	}

	return rels, nil
}

func TestApply_BoundNodesKeepUpdates(t *testing.T) {
	t.Parallel()

	for range 10 {
		g := &slowGraph{
			props: map[string]map[string]any{
				"a": {"v": "old"},
				"b": {"v": "old"},
			},
			rels:  [][2]string{{"a", "b"}},
			delay: 2 * time.Millisecond,
		}

		e := newTestEngine(t, exampleSchema, g, WithParallelism(2))

		outcomes := e.Apply(t.Context(),
			&Node{ID: "a", Labels: []string{"Person"}, Properties: map[string]any{"v": "old"}},
			&Node{ID: "b", Labels: []string{"Person"}, Properties: map[string]any{"v": "new"}},
		)

		for _, o := range outcomes {
			require.True(t, o.Success, o.Message())
		}

		assert.Equal(t, map[string]any{"v": "new"}, g.props["b"])
	}
}

func TestIndependent(t *testing.T) {
	t.Parallel()

	a := NewNode([]string{"A"}, nil)
	b := NewNode([]string{"B"}, nil)
	c := NewNode([]string{"C"}, nil)

	tests := []struct {
		name     string
		entities []Entity
		want     bool
	}{
		{"distinct nodes", []Entity{a, b, c}, true},
		{"same node twice", []Entity{a, a}, false},
		{"node and its relationship", []Entity{a, NewRelationship(a, "r", b, nil)}, false},
		{"disjoint relationships", []Entity{NewRelationship(a, "r", b, nil), c}, true},
		{"self loop", []Entity{NewRelationship(a, "r", a, nil)}, true},
		{"nil relationship", []Entity{(*Relationship)(nil), a}, true},
		{"bound node", []Entity{&Node{ID: "n1", Labels: []string{"A"}}, b}, false},
		{
			"bound endpoint by id",
			[]Entity{
				NewRelationship(&Node{ID: "n1"}, "r", b, nil),
				NewRelationship(&Node{ID: "n1"}, "r", c, nil),
			},
			false,
		},
		{
			"distinct bound endpoints",
			[]Entity{
				NewRelationship(&Node{ID: "n1"}, "r", b, nil),
				NewRelationship(&Node{ID: "n2"}, "r", c, nil),
			},
			true,
		},
		{"unknown entity", []Entity{alienEntity{}, a}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, independent(tt.entities))
		})
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()

	store := newFakeStore()
	store.fail["CreateRelationship"] = fmt.Errorf("timeout")

	e := newTestEngine(t, exampleSchema, store, WithMetrics(NewMetrics(reg)))

	bob := &Node{ID: "bob", Labels: []string{"Person"}}

	e.Apply(t.Context(),
		bob,
		NewNode([]string{"Alien"}, nil),
		NewRelationship(bob, "knows", NewNode([]string{"Person"}, nil), nil),
		alienEntity{},
	)

	expected := `
# HELP schemagate_outcomes_total Total number of entities processed by kind and result.
# TYPE schemagate_outcomes_total counter
schemagate_outcomes_total{kind="node",result="invalid"} 1
schemagate_outcomes_total{kind="node",result="success"} 1
schemagate_outcomes_total{kind="relationship",result="store_error"} 1
schemagate_outcomes_total{kind="unknown",result="invalid"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "schemagate_outcomes_total"))
	assert.Equal(t, 3, testutil.CollectAndCount(reg, "schemagate_check_duration_seconds"))
}

func TestOutcome_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  Outcome
		want string
	}{
		{"pass", Pass(), `{"success":true,"error":null}`},
		{"fail", Fail("%s is not a valid label", "Alien"), `{"success":false,"error":"Alien is not a valid label"}`},
		{
			"store",
			failStore(storeError("create node", fmt.Errorf("refused"))),
			`{"success":false,"error":"engine: store failure: create node: refused","storeError":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := json.Marshal(tt.out)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "node", NewNode(nil, nil).Kind().String())
	assert.Equal(t, "relationship", NewRelationship(nil, "", nil, nil).Kind().String())
	assert.Equal(t, "unknown", alienEntity{}.Kind().String())
}
