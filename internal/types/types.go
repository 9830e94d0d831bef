package types

import (
	"fmt"
	"strings"
)

// Type represents a type term: either a variable or a constructor applied to
// a fixed number of children.
type Type interface {
	String() string
	isType()
}

// Var represents a type variable. Identity is the numeric id; the name is a
// display spelling drawn from a Greek-letter stream (α, β, …, α1, β1, …).
type Var struct {
	ID   int
	Name string
}

func (v *Var) String() string { return v.Name }
func (v *Var) isType()        {}

// Con represents a nullary type constructor (int, bool, unit).
type Con struct {
	Name string
}

func (c *Con) String() string { return c.Name }
func (c *Con) isType()        {}

// Fn represents a function type. Always binary: curried functions nest.
type Fn struct {
	Arg Type
	Ret Type
}

func (f *Fn) String() string {
	return fmt.Sprintf("(%s -> %s)", f.Arg, f.Ret)
}
func (f *Fn) isType() {}

// Tuple represents a fixed-arity product type.
type Tuple struct {
	Elems []Type
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " * "))
}
func (t *Tuple) isType() {}

// List represents a homogeneous list type. It appears only in prelude
// signatures.
type List struct {
	Elem Type
}

func (l *List) String() string {
	return fmt.Sprintf("(list %s)", l.Elem)
}
func (l *List) isType() {}

// Nullary constants. Compared by pointer identity everywhere, so these
// singletons are the only instances.
var (
	Int  = &Con{Name: "int"}
	Bool = &Con{Name: "bool"}
	Unit = &Con{Name: "unit"}
)

// NewFn builds a curried function type from left to right:
// NewFn(a, b, c) = a -> (b -> c).
func NewFn(ts ...Type) Type {
	if len(ts) < 2 {
		panic("NewFn needs at least two types")
	}
	ret := ts[len(ts)-1]
	for i := len(ts) - 2; i >= 0; i-- {
		ret = &Fn{Arg: ts[i], Ret: ret}
	}
	return ret
}

// NewTuple builds a tuple type.
func NewTuple(ts ...Type) *Tuple {
	return &Tuple{Elems: ts}
}

// children returns the child terms of a constructor, or nil for variables
// and nullary constants.
func children(t Type) []Type {
	switch t := t.(type) {
	case *Fn:
		return []Type{t.Arg, t.Ret}
	case *Tuple:
		return t.Elems
	case *List:
		return []Type{t.Elem}
	default:
		return nil
	}
}

// rebuild constructs a term of the same head as t from new children. The
// child count must match t's arity.
func rebuild(t Type, kids []Type) Type {
	switch t.(type) {
	case *Fn:
		return &Fn{Arg: kids[0], Ret: kids[1]}
	case *Tuple:
		return &Tuple{Elems: kids}
	case *List:
		return &List{Elem: kids[0]}
	default:
		return t
	}
}

// sameHead reports whether two terms are the same constructor with the same
// arity. Variables never match here.
func sameHead(t1, t2 Type) bool {
	switch a := t1.(type) {
	case *Con:
		b, ok := t2.(*Con)
		return ok && a == b
	case *Fn:
		_, ok := t2.(*Fn)
		return ok
	case *Tuple:
		b, ok := t2.(*Tuple)
		return ok && len(a.Elems) == len(b.Elems)
	case *List:
		_, ok := t2.(*List)
		return ok
	default:
		return false
	}
}

// Equal reports structural equality of two terms. Variables compare by id.
func Equal(t1, t2 Type) bool {
	if v1, ok := t1.(*Var); ok {
		v2, ok := t2.(*Var)
		return ok && v1.ID == v2.ID
	}
	if !sameHead(t1, t2) {
		return false
	}
	k1, k2 := children(t1), children(t2)
	if len(k1) != len(k2) {
		return false
	}
	for i := range k1 {
		if !Equal(k1[i], k2[i]) {
			return false
		}
	}
	return true
}
