package types

import "fmt"

// greekLower is the display alphabet for fresh type variables.
var greekLower = []rune("αβγδεζηθικλμνξοπρστυφχψω")

// freshName returns the nth name in the stream α, β, …, ω, α1, β1, ….
func freshName(n int) string {
	letter := greekLower[n%len(greekLower)]
	round := n / len(greekLower)
	if round == 0 {
		return string(letter)
	}
	return fmt.Sprintf("%c%d", letter, round)
}

// UnifierSet is a disjoint-set forest over type terms with path compression
// and weighted joins. A root may be a variable or a concrete term; joining a
// variable with a concrete term always makes the concrete term the root.
// Alongside the forest it tracks which variables are non-generic.
type UnifierSet struct {
	parent     map[Type]Type
	size       map[Type]int
	nonGeneric map[*Var]bool
	nextID     int
}

// NewUnifierSet creates an empty unifier set.
func NewUnifierSet() *UnifierSet {
	return &UnifierSet{
		parent:     make(map[Type]Type),
		size:       make(map[Type]int),
		nonGeneric: make(map[*Var]bool),
	}
}

// FreshVar allocates a fresh type variable and inserts it as its own root.
func (u *UnifierSet) FreshVar(nonGeneric bool) *Var {
	v := &Var{ID: u.nextID, Name: freshName(u.nextID)}
	u.nextID++
	u.Add(v)
	if nonGeneric {
		u.nonGeneric[v] = true
	}
	return v
}

// Add inserts a term as a singleton set if it is not already present.
func (u *UnifierSet) Add(t Type) {
	if _, ok := u.parent[t]; !ok {
		u.parent[t] = t
		u.size[t] = 1
	}
}

// Contains reports whether the term has been added to the forest.
func (u *UnifierSet) Contains(t Type) bool {
	_, ok := u.parent[t]
	return ok
}

// RootOf returns the representative of t's set, compressing the path along
// the way. A term never added is its own root.
func (u *UnifierSet) RootOf(t Type) Type {
	p, ok := u.parent[t]
	if !ok || p == t {
		return t
	}
	root := u.RootOf(p)
	u.parent[t] = root
	return root
}

// SameSet reports whether all terms share a representative.
func (u *UnifierSet) SameSet(t Type, others ...Type) bool {
	root := u.RootOf(t)
	for _, o := range others {
		r := u.RootOf(o)
		if !Equal(root, r) {
			return false
		}
	}
	return true
}

// IsNonGeneric reports whether v is currently marked non-generic.
func (u *UnifierSet) IsNonGeneric(v *Var) bool {
	return u.nonGeneric[v]
}

// MakeNonGeneric walks t and marks every contained variable non-generic.
func (u *UnifierSet) MakeNonGeneric(t Type) {
	switch t := t.(type) {
	case *Var:
		u.nonGeneric[t] = true
	default:
		for _, kid := range children(t) {
			u.MakeNonGeneric(kid)
		}
	}
}

// MakeGeneric removes v from the non-generic set.
func (u *UnifierSet) MakeGeneric(v *Var) {
	delete(u.nonGeneric, v)
}

// OccursInType reports whether v occurs anywhere inside t, including at the
// top.
func (u *UnifierSet) OccursInType(v *Var, t Type) bool {
	if Equal(v, t) {
		return true
	}
	for _, kid := range children(t) {
		if u.OccursInType(v, kid) {
			return true
		}
	}
	return false
}

// Unify performs structural unification of two terms with an occurs check.
// Unifying a non-generic variable with a term makes every variable contained
// in that term non-generic.
func (u *UnifierSet) Unify(t1, t2 Type) error {
	if v1, ok := t1.(*Var); ok {
		u.Add(t1)
		u.Add(t2)

		// "In unifying a non-generic type variable to a term, all the type
		// variables contained in that term become non-generic."
		//   -- Luca Cardelli, Basic Polymorphic Typechecking, 1988, pg. 11
		if u.IsNonGeneric(v1) {
			u.MakeNonGeneric(t2)
		}
		if v2, ok := t2.(*Var); ok && u.IsNonGeneric(v2) {
			u.MakeNonGeneric(t1)
		}

		if Equal(t1, t2) {
			return nil
		}
		if u.OccursInType(v1, t2) {
			return &RecursiveTypeError{Var: v1, Term: t2}
		}
		return u.join(t1, t2)
	}

	if _, ok := t2.(*Var); ok {
		// Swap args and try again.
		return u.Unify(t2, t1)
	}

	if !sameHead(t1, t2) {
		return &TypeMismatchError{T1: t1, T2: t2}
	}
	k1, k2 := children(t1), children(t2)
	if len(k1) != len(k2) {
		return &TypeMismatchError{T1: t1, T2: t2}
	}
	for i := range k1 {
		if err := u.Unify(k1[i], k2[i]); err != nil {
			return err
		}
	}
	return nil
}

// join merges the sets containing e1 and e2.
func (u *UnifierSet) join(e1, e2 Type) error {
	r1 := u.RootOf(e1)
	r2 := u.RootOf(e2)
	return u.joinRoots(r1, r2)
}

// joinRoots links two roots. A concrete term beats a variable regardless of
// subtree weight; two variables use the weighting heuristic; two concrete
// terms are unified structurally.
func (u *UnifierSet) joinRoots(r1, r2 Type) error {
	_, var1 := r1.(*Var)
	_, var2 := r2.(*Var)
	size1, size2 := u.size[r1], u.size[r2]

	switch {
	case var1 && !var2:
		u.size[r2] += size1
		u.parent[r1] = r2
	case var2 && !var1:
		u.size[r1] += size2
		u.parent[r2] = r1
	case var1 && var2:
		if size1 > size2 {
			u.size[r1] += size2
			u.parent[r2] = r1
		} else {
			u.size[r2] += size1
			u.parent[r1] = r2
		}
	default:
		if !sameHead(r1, r2) {
			return &TypeMismatchError{T1: r1, T2: r2}
		}
		return u.Unify(r1, r2)
	}
	return nil
}

// Concretize rebuilds t with every variable replaced by the term at its
// root. Idempotent: concretizing a concretized term is a no-op.
func (u *UnifierSet) Concretize(t Type) Type {
	switch t := t.(type) {
	case *Var:
		r := u.RootOf(t)
		if Equal(r, t) {
			return t
		}
		return u.Concretize(r)
	default:
		kids := children(t)
		if len(kids) == 0 {
			return t
		}
		newKids := make([]Type, len(kids))
		for i, kid := range kids {
			newKids[i] = u.Concretize(kid)
		}
		return rebuild(t, newKids)
	}
}
