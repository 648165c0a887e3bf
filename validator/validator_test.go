package validator

import (
	"testing"

	"github.com/rlch/schemagate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_Register(t *testing.T) {
	t.Parallel()

	s := NewSet()
	require.NoError(t, s.Register("a", Accept))

	require.ErrorIs(t, s.Register("a", Accept), ErrDuplicate)
	require.ErrorIs(t, s.Register("", Accept), ErrEmptyName)
	require.ErrorIs(t, s.Register("b", nil), ErrNilFunc)

	fn, ok := s.Lookup("a")
	require.True(t, ok)
	require.NoError(t, fn("anything"))

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, s.Names())
}

func TestBuiltins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{NameInteger, 26, true},
		{NameInteger, int64(-3), true},
		{NameInteger, "42", true},
		{NameInteger, 2.5, true},
		{NameInteger, "forty", false},
		{NameInteger, nil, false},
		{NameFloat, "3.14", true},
		{NameFloat, 3, true},
		{NameFloat, "pi", false},
		{NameString, "Bob", true},
		{NameString, 26, true},
		{NameString, map[string]any{}, false},
		{NameBoolean, true, true},
		{NameBoolean, "true", false},
		{NameNonEmpty, "x", true},
		{NameNonEmpty, "  ", false},
		{NameNonEmpty, []any{}, false},
		{NameConflict, nil, true},
	}

	builtins := Builtins()

	for _, tt := range tests {
		fn, ok := builtins.Lookup(tt.name)
		require.True(t, ok, tt.name)

		err := fn(tt.value)
		if tt.ok {
			assert.NoError(t, err, "%s(%v)", tt.name, tt.value)
		} else {
			assert.Error(t, err, "%s(%v)", tt.name, tt.value)
		}
	}
}

func TestIntegerMessage(t *testing.T) {
	t.Parallel()

	err := Integer("abc")
	require.Error(t, err)
	assert.Equal(t, "Not an integer and could not convert to an integer", err.Error())
}

func TestEnum(t *testing.T) {
	t.Parallel()

	fn := Enum("rookie", "midlevel", "veteran")

	require.NoError(t, fn("rookie"))

	err := fn("Low")
	require.Error(t, err)
	assert.Equal(t, "Low is not in list of values rookie, midlevel, veteran", err.Error())

	err = fn(3)
	require.Error(t, err)
	assert.Equal(t, "3 is not in list of values rookie, midlevel, veteran", err.Error())
}

func TestExpr(t *testing.T) {
	t.Parallel()

	fn, err := Expr("value >= 18", "")
	require.NoError(t, err)

	require.NoError(t, fn(26))

	err = fn(12)
	require.Error(t, err)
	assert.Equal(t, "12 does not satisfy value >= 18", err.Error())

	custom, err := Expr(`value in ["a", "b"]`, "must be a or b")
	require.NoError(t, err)
	require.NoError(t, custom("a"))
	require.EqualError(t, custom("c"), "must be a or b")
}

func TestExpr_CompileError(t *testing.T) {
	t.Parallel()

	_, err := Expr("value >=", "")
	require.ErrorIs(t, err, ErrCompile)

	_, err = Expr("1 + 2", "")
	require.ErrorIs(t, err, ErrCompile, "non-boolean expressions are rejected")
}

func TestPattern(t *testing.T) {
	t.Parallel()

	fn, err := Pattern("^[a-z0-9-]+$", "")
	require.NoError(t, err)

	require.NoError(t, fn("hello-world"))
	require.EqualError(t, fn("Hello World"), "Hello World does not match ^[a-z0-9-]+$")
	require.Error(t, fn(42))

	_, err = Pattern("([", "")
	require.ErrorIs(t, err, ErrPattern)
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	s, err := FromConfig(map[string]schemagate.ValidatorConfig{
		"codeExEnum": {Enum: []string{"rookie", "midlevel", "veteran"}},
		"adult":      {Expr: "value >= 18"},
		"slug":       {Pattern: "^[a-z-]+$"},
	})
	require.NoError(t, err)

	for _, name := range []string{"codeExEnum", "adult", "slug", NameInteger, NameString} {
		_, ok := s.Lookup(name)
		assert.True(t, ok, name)
	}

	fn, _ := s.Lookup("codeExEnum")
	require.EqualError(t, fn("Low"), "Low is not in list of values rookie, midlevel, veteran")
}

func TestFromConfig_Errors(t *testing.T) {
	t.Parallel()

	_, err := FromConfig(map[string]schemagate.ValidatorConfig{
		"both": {Enum: []string{"a"}, Expr: "true"},
	})
	require.ErrorIs(t, err, schemagate.ErrInvalidValidator)

	_, err = FromConfig(map[string]schemagate.ValidatorConfig{
		"none": {},
	})
	require.ErrorIs(t, err, schemagate.ErrInvalidValidator)

	_, err = FromConfig(map[string]schemagate.ValidatorConfig{
		NameInteger: {Enum: []string{"1"}},
	})
	require.ErrorIs(t, err, ErrDuplicate)
}
