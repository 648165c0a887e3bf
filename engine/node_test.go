package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const labelledSchema = `{
	"Person": {
		"requiredProperties": {
			"name": {"validator": "string"},
			"age":  {"validator": "integer"}
		}
	},
	"Employee": {
		"requiredProperties": {
			"employer": {"validator": "string"},
			"age":      {"validator": "integer"}
		}
	},
	"Robot": {
		"requiredProperties": {
			"name": {"validator": "integer"}
		}
	},
	"Tag": {},
	"Risky": {
		"requiredProperties": {
			"x": {"validator": "boom"}
		}
	}
}`

func TestCheckNode_UnknownLabel(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, labelledSchema, nil)

	out := e.CheckNode(t.Context(), NewNode([]string{"Alien"}, nil), false)
	require.False(t, out.Success)
	assert.Equal(t, "Alien is not a valid label", out.Message())
	assert.ErrorIs(t, out.Err, ErrValidation)

	out = e.CheckNode(t.Context(), NewNode([]string{"Person", "Alien"}, map[string]any{"name": "Bob", "age": 3}), false)
	require.False(t, out.Success)
	assert.Equal(t, "Alien is not a valid label", out.Message())
}

func TestCheckNode_PropertyWildcardAllowsUnknownLabels(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, labelledSchema, nil)

	out := e.CheckNode(t.Context(), NewNode([]string{"Alien", "Tag"}, nil), false)
	assert.True(t, out.Success, out.Message())

	// The wildcard only lifts the label check; required properties still apply.
	out = e.CheckNode(t.Context(), NewNode([]string{"Tag", "Person"}, map[string]any{"name": "Bob"}), false)
	require.False(t, out.Success)
	assert.Equal(t, "Required property age is not specified in the node.", out.Message())
}

func TestCheckNode_MissingRequiredProperty(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, labelledSchema, nil)

	tests := []struct {
		props map[string]any
		want  string
	}{
		{map[string]any{"age": 26}, "Required property name is not specified in the node."},
		{map[string]any{"name": "Bob"}, "Required property age is not specified in the node."},
		{map[string]any{"name": "Bob", "age": nil}, "Required property age is not specified in the node."},
		{map[string]any{}, "Required property age is not specified in the node."},
	}

	for _, tt := range tests {
		out := e.CheckNode(t.Context(), NewNode([]string{"Person"}, tt.props), false)
		require.False(t, out.Success)
		assert.Equal(t, tt.want, out.Message())
	}
}

func TestCheckNode_ValidatorRejects(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, labelledSchema, nil)

	out := e.CheckNode(t.Context(), NewNode([]string{"Person"}, map[string]any{"name": "Bob", "age": "old"}), false)
	require.False(t, out.Success)
	assert.Equal(t,
		"The required property age did not pass validation: Not an integer and could not convert to an integer",
		out.Message())
}

func TestCheckNode_PresenceBeforeValidators(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, labelledSchema, nil)

	// age fails its validator but name is missing; presence is reported first.
	out := e.CheckNode(t.Context(), NewNode([]string{"Person"}, map[string]any{"age": "old"}), false)
	require.False(t, out.Success)
	assert.Equal(t, "Required property name is not specified in the node.", out.Message())
}

func TestCheckNode_ValidatorConflictIndependentOfOrder(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, labelledSchema, nil)

	props := map[string]any{"name": "R2", "age": 40}
	want := "Property name has conflicting validators across labels: integer, string"

	for _, labels := range [][]string{{"Person", "Robot"}, {"Robot", "Person"}} {
		out := e.CheckNode(t.Context(), NewNode(labels, props), false)
		require.False(t, out.Success)
		assert.Equal(t, want, out.Message())
	}
}

func TestCheckNode_SharedPropertySameValidator(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, labelledSchema, nil)

	out := e.CheckNode(t.Context(), NewNode([]string{"Person", "Employee"}, map[string]any{
		"name": "Bob", "age": 30,
	}), false)
	require.False(t, out.Success)
	assert.Equal(t, "Required property employer is not specified in the node.", out.Message())

	out = e.CheckNode(t.Context(), NewNode([]string{"Person", "Employee"}, map[string]any{
		"name": "Bob", "age": 30, "employer": "ACME",
	}), false)
	assert.True(t, out.Success, out.Message())
}

func TestCheckNode_ValidatorPanic(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, labelledSchema, nil)

	out := e.CheckNode(t.Context(), NewNode([]string{"Risky"}, map[string]any{"x": 1}), false)
	require.False(t, out.Success)
	assert.Equal(t, "The required property x did not pass validation: validator boom panicked: kaboom", out.Message())
}

func TestCheckNode_Persistence(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	e := newTestEngine(t, labelledSchema, store)

	n := NewNode([]string{"Tag"}, nil)

	out := e.CheckNode(t.Context(), n, false)
	require.True(t, out.Success, out.Message())
	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, []string{"CreateNode "}, store.Calls())

	// Rejected nodes are not persisted.
	out = e.CheckNode(t.Context(), NewNode([]string{"Person"}, nil), false)
	require.False(t, out.Success)
	assert.Len(t, store.Calls(), 1)
}

func TestCheckNode_BoundNodeIsUpdatedEveryTime(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	e := newTestEngine(t, labelledSchema, store)

	n := &Node{ID: "n7", Labels: []string{"Person"}, Properties: map[string]any{"name": "Bob", "age": 26}}

	for range 2 {
		out := e.CheckNode(t.Context(), n, false)
		require.True(t, out.Success, out.Message())
	}

	assert.Equal(t, 2, store.count("UpdateNode"))
	assert.Zero(t, store.count("CreateNode"))
}

func TestCheckNode_Cascade(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	e := newTestEngine(t, exampleSchema, store)

	bob := &Node{ID: "bob", Labels: []string{"Person"}, Properties: map[string]any{"name": "Bob"}}
	jim := &Node{ID: "jim", Labels: []string{"Person"}}
	python := &Node{ID: "py", Labels: []string{"ProgLanguage"}}

	store.inbound["bob"] = []*Relationship{
		{ID: "r1", Type: "knows", Start: jim, End: &Node{ID: "bob", Labels: []string{"Stale"}}},
	}
	store.outbound["bob"] = []*Relationship{
		{ID: "r2", Type: "codesIn", Start: &Node{ID: "bob"}, End: python, Properties: map[string]any{"experience": "veteran"}},
	}

	out := e.CheckNode(t.Context(), bob, false)
	require.True(t, out.Success, out.Message())

	assert.Equal(t, []string{
		"Inbound bob",
		"UpdateNode jim",
		"UpdateRelationship r1",
		"Outbound bob",
		"UpdateNode py",
		"UpdateRelationship r2",
		"UpdateNode bob",
	}, store.Calls())
}

func TestCheckNode_CascadeFailures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)

	store := newFakeStore()
	e := newTestEngine(t, exampleSchema, store, WithLogger(zap.New(core)))

	alien := &Node{ID: "eve", Labels: []string{"Alien"}}
	store.inbound["bob"] = []*Relationship{{ID: "r1", Type: "knows", Start: alien}}
	store.outbound["ann"] = []*Relationship{{ID: "r2", Type: "knows", End: &Node{ID: "py", Labels: []string{"ProgLanguage"}}}}

	out := e.CheckNode(t.Context(), &Node{ID: "bob", Labels: []string{"Person"}}, false)
	require.False(t, out.Success)
	assert.Equal(t, "Inbound relation check failed", out.Message())

	out = e.CheckNode(t.Context(), &Node{ID: "ann", Labels: []string{"Person"}}, false)
	require.False(t, out.Success)
	assert.Equal(t, "Outbound relation check failed", out.Message())

	assert.NotContains(t, store.Calls(), "UpdateNode bob", "nodes with failing relations are not persisted")
	assert.NotContains(t, store.Calls(), "UpdateNode ann")

	nested := logs.FilterMessage("inbound relation check failed").All()
	require.Len(t, nested, 1)
	assert.Equal(t, "starting node failed validation: Alien is not a valid label", nested[0].ContextMap()["nested"])
	assert.Equal(t, 1, logs.FilterMessage("outbound relation check failed").Len())
}

func TestCheckNode_FromRelationshipCheckDoesNotCascade(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	e := newTestEngine(t, exampleSchema, store)

	store.inbound["bob"] = []*Relationship{{ID: "r1", Type: "knows", Start: &Node{Labels: []string{"Alien"}}}}

	out := e.CheckNode(t.Context(), &Node{ID: "bob", Labels: []string{"Person"}}, true)
	require.True(t, out.Success, out.Message())
	assert.Equal(t, []string{"UpdateNode bob"}, store.Calls())
}

func TestCheckNode_StoreFailures(t *testing.T) {
	t.Parallel()

	errDown := errors.New("connection refused")

	tests := []struct {
		op   string
		node *Node
		want string
	}{
		{"CreateNode", &Node{Labels: []string{"Person"}}, "create node"},
		{"UpdateNode", &Node{ID: "n1", Labels: []string{"Person"}}, "update node"},
		{"Inbound", &Node{ID: "n1", Labels: []string{"Person"}}, "inbound relations"},
		{"Outbound", &Node{ID: "n1", Labels: []string{"Person"}}, "outbound relations"},
	}

	for _, tt := range tests {
		store := newFakeStore()
		store.fail[tt.op] = errDown

		e := newTestEngine(t, exampleSchema, store)

		out := e.CheckNode(t.Context(), tt.node, false)
		require.False(t, out.Success, tt.op)
		assert.True(t, out.IsStoreError(), tt.op)
		assert.ErrorIs(t, out.Err, ErrStore)
		assert.ErrorIs(t, out.Err, errDown)
		assert.NotErrorIs(t, out.Err, ErrValidation)
		assert.Contains(t, out.Message(), tt.want)
	}
}

func TestCheckNode_Nil(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, exampleSchema, nil)

	out := e.CheckNode(t.Context(), nil, false)
	require.False(t, out.Success)
	assert.Equal(t, "node is nil", out.Message())
}
