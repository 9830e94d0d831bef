package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcreteAtomUnification(t *testing.T) {
	c := NewChecker()
	assert.NoError(t, c.Unify(Int, Int))
}

func TestConcretePolyUnification(t *testing.T) {
	c := NewChecker()
	assert.NoError(t, c.Unify(NewTuple(Int, Bool), NewTuple(Int, Bool)))
}

func TestVarUnification(t *testing.T) {
	c := NewChecker()
	tv := c.FreshVar(false)
	uv := c.FreshVar(false)

	assert.False(t, c.Unifiers.SameSet(tv, uv))

	require.NoError(t, c.Unify(tv, uv))
	assert.True(t, c.Unifiers.SameSet(tv, uv))

	require.NoError(t, c.Unify(tv, Bool))
	assert.True(t, c.Unifiers.SameSet(tv, Bool))
	assert.True(t, c.Unifiers.SameSet(uv, Bool))
}

func TestUnifyThroughCompoundTerms(t *testing.T) {
	c := NewChecker()
	tv := c.FreshVar(false)
	uv := c.FreshVar(false)

	require.NoError(t, c.Unify(NewTuple(tv, Bool), NewTuple(Int, uv)))
	assert.True(t, c.Unifiers.SameSet(tv, Int))
	assert.True(t, c.Unifiers.SameSet(uv, Bool))
}

func TestUnificationErrors(t *testing.T) {
	t.Run("conflicting constants", func(t *testing.T) {
		c := NewChecker()
		tv := c.FreshVar(false)
		err := c.Unify(NewTuple(Bool, Int), NewTuple(tv, tv))
		require.Error(t, err)
		assert.IsType(t, &TypeMismatchError{}, err)
	})

	t.Run("arity mismatch", func(t *testing.T) {
		c := NewChecker()
		err := c.Unify(NewTuple(Bool, Int), NewTuple(Bool))
		require.Error(t, err)
		assert.IsType(t, &TypeMismatchError{}, err)
	})

	t.Run("constructor mismatch", func(t *testing.T) {
		c := NewChecker()
		err := c.Unify(NewTuple(Bool, Int), NewFn(Bool, Int))
		require.Error(t, err)
		assert.IsType(t, &TypeMismatchError{}, err)
	})
}

func TestOccursCheck(t *testing.T) {
	c := NewChecker()
	tv := c.FreshVar(false)

	err := c.Unify(tv, NewFn(tv, Int))
	require.Error(t, err)
	assert.IsType(t, &RecursiveTypeError{}, err)
}

func TestConcreteTermWinsAsRoot(t *testing.T) {
	c := NewChecker()

	// Grow a heavy set of variables, then unify with a concrete term: the
	// concrete term must still become the root.
	vars := make([]*Var, 5)
	for i := range vars {
		vars[i] = c.FreshVar(false)
	}
	for _, v := range vars[1:] {
		require.NoError(t, c.Unify(vars[0], v))
	}

	require.NoError(t, c.Unify(vars[0], Int))
	for _, v := range vars {
		assert.Same(t, Int, c.Unifiers.RootOf(v))
	}
}

func TestConcretize(t *testing.T) {
	c := NewChecker()
	tv := c.FreshVar(false)

	require.NoError(t, c.Unify(tv, Int))

	assert.True(t, Equal(Int, c.Concretize(tv)))
	assert.True(t, Equal(NewTuple(Int), c.Concretize(NewTuple(tv))))
}

func TestConcretizeIsIdempotent(t *testing.T) {
	c := NewChecker()
	tv := c.FreshVar(false)
	uv := c.FreshVar(false)

	require.NoError(t, c.Unify(tv, NewFn(uv, Int)))
	require.NoError(t, c.Unify(uv, Bool))

	term := NewTuple(tv, uv, NewFn(tv, uv))
	once := c.Concretize(term)
	twice := c.Concretize(once)
	assert.True(t, Equal(once, twice))
}

func TestNonGenericPropagation(t *testing.T) {
	c := NewChecker()
	nonGeneric := c.FreshVar(true)
	generic := c.FreshVar(false)

	require.NoError(t, c.Unify(nonGeneric, NewTuple(generic)))
	assert.True(t, c.IsNonGeneric(generic),
		"unifying a non-generic var with a term makes the term's vars non-generic")
}

func TestNonGenericPropagatesBothWays(t *testing.T) {
	c := NewChecker()
	generic := c.FreshVar(false)
	nonGeneric := c.FreshVar(true)

	require.NoError(t, c.Unify(generic, nonGeneric))
	assert.True(t, c.IsNonGeneric(generic))
}

func TestMakeNonGenericWalksCompounds(t *testing.T) {
	c := NewChecker()
	tv := c.FreshVar(false)
	uv := c.FreshVar(false)

	assert.True(t, c.IsGeneric(tv))
	assert.True(t, c.IsGeneric(uv))

	c.Unifiers.MakeNonGeneric(NewTuple(tv, Int, NewTuple(uv)))

	assert.True(t, c.IsNonGeneric(tv))
	assert.True(t, c.IsNonGeneric(uv))
}

func TestFreshVarNames(t *testing.T) {
	u := NewUnifierSet()

	assert.Equal(t, "α", u.FreshVar(false).Name)
	assert.Equal(t, "β", u.FreshVar(false).Name)

	// Exhaust the first round of the alphabet.
	for i := 2; i < 24; i++ {
		u.FreshVar(false)
	}
	assert.Equal(t, "α1", u.FreshVar(false).Name)
}

func TestTypeStrings(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Int, "int"},
		{Bool, "bool"},
		{Unit, "unit"},
		{NewFn(Int, Bool), "(int -> bool)"},
		{NewFn(Int, Int, Int), "(int -> (int -> int))"},
		{NewTuple(Int, Bool), "(int * bool)"},
		{&List{Elem: Int}, "(list int)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}
