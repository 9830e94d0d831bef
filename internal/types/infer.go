package types

import (
	"fmt"

	"github.com/sunholo/camlc/internal/ast"
)

// Infer walks the AST assigning every node an inferred type. The returned
// term may still contain unifier variables; use TypeOf or Concretize for the
// resolved form.
func (c *Checker) Infer(node ast.Node) (Type, error) {
	switch node := node.(type) {
	case *ast.Const:
		return c.inferConst(node)
	case *ast.Ident:
		return c.inferIdent(node)
	case *ast.Lambda:
		return c.inferLambda(node)
	case *ast.Call:
		return c.inferCall(node)
	case *ast.If:
		return c.inferIf(node)
	case *ast.Let:
		return c.inferLet(node)
	case *ast.TupleLit:
		return c.inferTuple(node)
	case *ast.LetStmt:
		return c.inferLetStmt(node)
	case *ast.TopLevelStmts:
		return c.inferProgram(node)
	default:
		return nil, fmt.Errorf("cannot infer type of %T", node)
	}
}

func (c *Checker) inferConst(node *ast.Const) (Type, error) {
	switch node.Kind {
	case ast.IntLit:
		return c.cache(node, Int), nil
	case ast.BoolLit:
		return c.cache(node, Bool), nil
	default:
		return c.cache(node, Unit), nil
	}
}

// inferIdent looks the name up and instantiates it: generic variables in the
// binding are rewired to fresh ones while non-generic ones stay shared.
func (c *Checker) inferIdent(node *ast.Ident) (Type, error) {
	t, err := c.TypeEnv.Lookup(node.Name)
	if err != nil {
		return nil, err
	}
	return c.cache(node, c.DuplicateType(t, map[*Var]*Var{})), nil
}

// inferLambda checks the body in a new scope where the parameter is bound to
// a fresh variable that stays non-generic while the body is inferred.
func (c *Checker) inferLambda(node *ast.Lambda) (Type, error) {
	var bodyType Type
	var argVar *Var

	err := c.NewScope(func() error {
		alpha, err := c.ScopedNonGeneric(func(alpha *Var) error {
			c.TypeEnv.Bind(node.Param, alpha)
			var inferErr error
			bodyType, inferErr = c.Infer(node.Body)
			return inferErr
		})
		argVar = alpha
		return err
	})
	if err != nil {
		return nil, err
	}

	// After inferring the body, the parameter's type may be known.
	return c.cache(node, &Fn{Arg: c.Concretize(argVar), Ret: bodyType}), nil
}

func (c *Checker) inferCall(node *ast.Call) (Type, error) {
	argType, err := c.Infer(node.Arg)
	if err != nil {
		return nil, err
	}

	beta := c.FreshVar(false)

	fnType, err := c.Infer(node.Fn)
	if err != nil {
		return nil, err
	}
	if err := c.Unify(fnType, &Fn{Arg: argType, Ret: beta}); err != nil {
		return nil, err
	}

	// The unification may have moved beta's root.
	return c.cache(node, c.Concretize(beta)), nil
}

func (c *Checker) inferIf(node *ast.If) (Type, error) {
	predType, err := c.Infer(node.Pred)
	if err != nil {
		return nil, err
	}
	if err := c.Unify(predType, Bool); err != nil {
		return nil, err
	}

	yesType, err := c.Infer(node.Yes)
	if err != nil {
		return nil, err
	}
	noType, err := c.Infer(node.No)
	if err != nil {
		return nil, err
	}
	if err := c.Unify(yesType, noType); err != nil {
		return nil, err
	}

	return c.cache(node, c.Concretize(yesType)), nil
}

// inferLet binds the name to a fresh variable first so that recursive
// bindings can mention themselves, infers the right-hand side with that
// variable non-generic, links the two, and only then checks the body.
func (c *Checker) inferLet(node *ast.Let) (Type, error) {
	var bodyType Type

	err := c.NewScope(func() error {
		var rhsType Type
		alpha, err := c.ScopedNonGeneric(func(alpha *Var) error {
			c.TypeEnv.Bind(node.Name, alpha)
			var inferErr error
			rhsType, inferErr = c.Infer(node.Rhs)
			return inferErr
		})
		if err != nil {
			return err
		}
		if err := c.Unify(alpha, rhsType); err != nil {
			return err
		}

		bodyType, err = c.Infer(node.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	return c.cache(node, bodyType), nil
}

func (c *Checker) inferTuple(node *ast.TupleLit) (Type, error) {
	elems := make([]Type, len(node.Vals))
	for i, v := range node.Vals {
		t, err := c.Infer(v)
		if err != nil {
			return nil, err
		}
		elems[i] = t
	}
	return c.cache(node, &Tuple{Elems: elems}), nil
}

// inferLetStmt is inferLet without a body: the binding lands in the current
// scope and the statement itself has type unit.
func (c *Checker) inferLetStmt(node *ast.LetStmt) (Type, error) {
	var rhsType Type
	alpha, err := c.ScopedNonGeneric(func(alpha *Var) error {
		c.TypeEnv.Bind(node.Name, alpha)
		var inferErr error
		rhsType, inferErr = c.Infer(node.Rhs)
		return inferErr
	})
	if err != nil {
		return nil, err
	}
	if err := c.Unify(alpha, rhsType); err != nil {
		return nil, err
	}

	return c.cache(node, Unit), nil
}

func (c *Checker) inferProgram(node *ast.TopLevelStmts) (Type, error) {
	for _, stmt := range node.Stmts {
		if _, err := c.Infer(stmt); err != nil {
			return nil, err
		}
	}
	return c.cache(node, Unit), nil
}
