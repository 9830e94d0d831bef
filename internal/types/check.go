package types

import (
	"github.com/sunholo/camlc/internal/ast"
)

// Checker owns all type-inference state for one compilation: the unifier
// set, the scoped identifier environment, and the per-node cache of inferred
// types read later by the lowering pass.
type Checker struct {
	Unifiers *UnifierSet
	TypeEnv  *Env

	// inferred caches the (possibly non-concretized) type returned by Infer
	// for each node. TypeOf concretizes on read.
	inferred map[ast.Node]Type
}

// NewChecker creates a checker whose environment is seeded with the standard
// prelude signatures.
func NewChecker() *Checker {
	c := &Checker{
		Unifiers: NewUnifierSet(),
		inferred: make(map[ast.Node]Type),
	}
	c.TypeEnv = stdEnv(c)
	return c
}

// stdEnv builds the initial typing environment. Binary operators are typed
// as functions of a pair, matching the desugaring of `a op b` into
// `op (a, b)`.
func stdEnv(c *Checker) *Env {
	t := c.FreshVar(false)
	u := c.FreshVar(false)
	v := c.FreshVar(false)
	w := c.FreshVar(false)

	intPair := NewTuple(Int, Int)

	env := NewEnv()
	env.Bind("null", NewFn(&List{Elem: t}, Bool))
	env.Bind("tail", NewFn(&List{Elem: u}, &List{Elem: u}))
	env.Bind("zero", NewFn(Int, Bool))
	env.Bind("succ", NewFn(Int, Int))
	env.Bind("pred", NewFn(Int, Int))
	env.Bind("times", NewFn(Int, Int, Int))
	env.Bind("pair", NewFn(v, w, NewTuple(v, w)))

	env.Bind("+", NewFn(intPair, Int))
	env.Bind("-", NewFn(intPair, Int))
	env.Bind("*", NewFn(intPair, Int))
	env.Bind("div", NewFn(intPair, Int))
	env.Bind("mod", NewFn(intPair, Int))
	env.Bind("=", NewFn(intPair, Bool))

	env.Bind("exit", NewFn(Int, Unit))
	env.Bind("print_int", NewFn(Int, Unit))
	return env
}

// FreshVar allocates a fresh type variable.
func (c *Checker) FreshVar(nonGeneric bool) *Var {
	return c.Unifiers.FreshVar(nonGeneric)
}

// IsNonGeneric reports whether v is currently non-generic.
func (c *Checker) IsNonGeneric(v *Var) bool {
	return c.Unifiers.IsNonGeneric(v)
}

// IsGeneric reports whether v is currently generic.
func (c *Checker) IsGeneric(v *Var) bool {
	return !c.IsNonGeneric(v)
}

// Unify delegates to the unifier set.
func (c *Checker) Unify(t1, t2 Type) error {
	return c.Unifiers.Unify(t1, t2)
}

// Concretize recursively replaces every variable in t with the term at its
// root.
func (c *Checker) Concretize(t Type) Type {
	return c.Unifiers.Concretize(t)
}

// NewScope runs body with a fresh innermost environment scope. The previous
// scope is restored on every exit path, including error returns.
func (c *Checker) NewScope(body func() error) error {
	saved := c.TypeEnv
	c.TypeEnv = NewEnvWithParent(saved)
	defer func() { c.TypeEnv = saved }()
	return body()
}

// ScopedNonGeneric allocates a fresh variable that is non-generic only for
// the duration of body. Generic status is restored on every exit path.
func (c *Checker) ScopedNonGeneric(body func(alpha *Var) error) (*Var, error) {
	alpha := c.FreshVar(true)
	defer c.Unifiers.MakeGeneric(alpha)
	return alpha, body(alpha)
}

// DuplicateType copies a type for instantiation at an identifier use. Only
// generic variables are duplicated; non-generic variables are shared between
// the copy and the original. Repeated occurrences of the same generic
// variable all map to one fresh variable (tracked through subst).
//
// "In copying a type, we must only copy the generic variables, while the
// non-generic variables must be shared."
//   -- Luca Cardelli, Basic Polymorphic Typechecking, 1988, pg. 11
func (c *Checker) DuplicateType(t Type, subst map[*Var]*Var) Type {
	// If t is a variable unified with a concrete term, duplicate the term,
	// not the variable.
	t = c.Concretize(t)

	switch t := t.(type) {
	case *Var:
		if c.IsNonGeneric(t) {
			return t
		}
		if fresh, ok := subst[t]; ok {
			return fresh
		}
		fresh := c.FreshVar(false)
		subst[t] = fresh
		return fresh
	default:
		kids := children(t)
		if len(kids) == 0 {
			return t
		}
		newKids := make([]Type, len(kids))
		for i, kid := range kids {
			newKids[i] = c.DuplicateType(kid, subst)
		}
		return rebuild(t, newKids)
	}
}

// cache records the type inferred for a node.
func (c *Checker) cache(node ast.Node, t Type) Type {
	c.inferred[node] = t
	return t
}

// TypeOf returns the concretized cached type for a node. It is only valid
// after Infer has visited the node.
func (c *Checker) TypeOf(node ast.Node) (Type, bool) {
	t, ok := c.inferred[node]
	if !ok {
		return nil, false
	}
	return c.Concretize(t), true
}
