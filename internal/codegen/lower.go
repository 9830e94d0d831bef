package codegen

import (
	"github.com/sunholo/camlc/internal/ast"
	"github.com/sunholo/camlc/internal/lir"
	"github.com/sunholo/camlc/internal/types"
)

// binOpNames maps infix operator identifiers to their intrinsic dispatch.
var binOpNames = map[string]string{
	"+":   "add",
	"-":   "sub",
	"*":   "mul",
	"div": "div",
	"mod": "mod",
	"=":   "eq",
}

// Lower emits LIR for an AST node into the current function and returns the
// node's value handle: a stack temporary, an immediate, or the zero-sized
// temporary for unit values.
func (c *GenCtx) Lower(node ast.Node) (lir.Value, error) {
	switch node := node.(type) {
	case *ast.Const:
		return c.lowerConst(node)
	case *ast.Ident:
		return c.lookupName(node.Name)
	case *ast.TupleLit:
		return c.lowerTuple(node)
	case *ast.If:
		return c.lowerIf(node)
	case *ast.Call:
		return c.lowerCall(node)
	case *ast.Lambda:
		return c.lowerLambda(node)
	case *ast.Let:
		return c.lowerLet(node)
	case *ast.LetStmt:
		return c.lowerLetStmt(node)
	case *ast.TopLevelStmts:
		return c.lowerProgram(node)
	default:
		return nil, loweringErrf("cannot lower %T", node)
	}
}

func (c *GenCtx) lowerConst(node *ast.Const) (lir.Value, error) {
	switch node.Kind {
	case ast.IntLit:
		return &lir.I64{Val: node.Int}, nil
	case ast.BoolLit:
		if node.Bool {
			return &lir.I64{Val: 1}, nil
		}
		return &lir.I64{Val: 0}, nil
	default:
		return &lir.Temp0{}, nil
	}
}

func (c *GenCtx) lowerTuple(node *ast.TupleLit) (lir.Value, error) {
	res := c.NewTemp64()

	vals := make([]lir.Value, 0, len(node.Vals))
	for _, v := range node.Vals {
		lowered, err := c.Lower(v)
		if err != nil {
			return nil, err
		}
		// Unit components are zero-sized and occupy no slot.
		if lowered.Size() == 0 {
			continue
		}
		vals = append(vals, lowered)
	}

	c.Add(&lir.CreateTuple{Values: vals, Ret: res})
	return res, nil
}

// lowerIf emits the diamond: a conditional branch around the yes block, an
// unconditional jump over the no block, and a shared result slot. When the
// expression's type is unit there is no result to materialize.
func (c *GenCtx) lowerIf(node *ast.If) (lir.Value, error) {
	unit := c.nodeHasUnitType(node)

	var res *lir.Temp64
	if !unit {
		res = c.NewTemp64()
	}

	pred, err := c.Lower(node.Pred)
	if err != nil {
		return nil, err
	}

	elseLbl := c.NewLabel("")
	endLbl := c.NewLabel("")

	c.Add(&lir.IfFalse{Cond: pred, Label: elseLbl})

	yesVal, err := c.Lower(node.Yes)
	if err != nil {
		return nil, err
	}
	if !unit {
		c.Add(&lir.Assign{Dst: res, Src: yesVal})
	}
	c.Add(&lir.Goto{Label: endLbl})

	c.Add(elseLbl.AsInstr())
	noVal, err := c.Lower(node.No)
	if err != nil {
		return nil, err
	}
	if !unit {
		c.Add(&lir.Assign{Dst: res, Src: noVal})
	}
	c.Add(endLbl.AsInstr())

	if unit {
		return &lir.Temp0{}, nil
	}
	return res, nil
}

// lowerCall first recognizes the built-in call shapes -- exit, print_int and
// the infix operators applied to a literal pair -- and emits their
// intrinsics directly. Anything else goes through the closure-call protocol.
func (c *GenCtx) lowerCall(node *ast.Call) (lir.Value, error) {
	if id, ok := node.Fn.(*ast.Ident); ok {
		switch id.Name {
		case "exit":
			arg, err := c.Lower(node.Arg)
			if err != nil {
				return nil, err
			}
			c.Add(&lir.Exit{Code: arg})
			return &lir.Temp0{}, nil

		case "print_int":
			arg, err := c.Lower(node.Arg)
			if err != nil {
				return nil, err
			}
			c.Add(&lir.PrintInt{Arg: arg, FmtLbl: c.printIntFmt})
			return &lir.Temp0{}, nil
		}

		if op, isOp := binOpNames[id.Name]; isOp {
			if tup, isTup := node.Arg.(*ast.TupleLit); isTup && len(tup.Vals) == 2 {
				return c.lowerBinOp(op, tup.Vals[0], tup.Vals[1])
			}
		}
	}

	return c.lowerCallGeneric(node)
}

func (c *GenCtx) lowerBinOp(op string, lhs, rhs ast.Expr) (lir.Value, error) {
	ret := c.NewTemp64()

	arg1, err := c.Lower(lhs)
	if err != nil {
		return nil, err
	}
	arg2, err := c.Lower(rhs)
	if err != nil {
		return nil, err
	}

	c.Add(binOpInstr(op, arg1, arg2, ret))
	return ret, nil
}

// binOpInstr dispatches an operator name to its arithmetic intrinsic.
func binOpInstr(op string, arg1, arg2 lir.Value, ret *lir.Temp64) lir.Instr {
	switch op {
	case "add", "sub":
		return &lir.AddSub{Op: op, Arg1: arg1, Arg2: arg2, Res: ret}
	case "eq":
		return &lir.EqI64{Arg1: arg1, Arg2: arg2, Ret: ret}
	default:
		return &lir.MulDivMod{Op: op, Arg1: arg1, Arg2: arg2, Res: ret}
	}
}

// lowerCallGeneric emits a call through a closure pointer. The callee is
// always a 64-bit temporary holding the closure block's address; calling
// anything else is a compiler bug.
func (c *GenCtx) lowerCallGeneric(node *ast.Call) (lir.Value, error) {
	var ret *lir.Temp64
	unit := c.nodeHasUnitType(node)
	if !unit {
		ret = c.NewTemp64()
	}

	arg, err := c.Lower(node.Arg)
	if err != nil {
		return nil, err
	}
	fnVal, err := c.Lower(node.Fn)
	if err != nil {
		return nil, err
	}

	fnTmp, ok := fnVal.(*lir.Temp64)
	if !ok {
		return nil, loweringErrf("cannot call a %T as if it were a closure", fnVal)
	}

	c.Add(&lir.CallClosure{Fn: fnTmp, Arg: arg, Ret: ret})
	if unit {
		return &lir.Temp0{}, nil
	}
	return ret, nil
}

// lowerLambda lowers an anonymous function expression: the ordered capture
// list is resolved in the enclosing scope, the body is lowered in a fresh
// frame whose environment indices follow the capture order, and a closure
// over the capture values is left in a temporary.
func (c *GenCtx) lowerLambda(node *ast.Lambda) (lir.Value, error) {
	return c.lowerFn("", node, false)
}

// lowerFn builds the function definition and closure for a lambda. name is
// the binding's name for let-bound functions (giving the label a readable
// spelling and, when recursive, reserving environment index 0 for the
// closure's self pointer), or empty for anonymous ones.
func (c *GenCtx) lowerFn(name string, lam *ast.Lambda, recursive bool) (*lir.Temp64, error) {
	captureSet := lam.Captures()
	if recursive {
		// Self-reference goes through the closure's self slot, not the
		// enclosing frame.
		captureSet = captureSet.Without(name)
	}
	captureNames := captureSet.Sorted()

	// Resolve every captured value in the enclosing scope, in capture-list
	// order, before entering the new frame.
	captureVals := make([]lir.Value, len(captureNames))
	for i, n := range captureNames {
		v, err := c.lookupName(n)
		if err != nil {
			return nil, err
		}
		captureVals[i] = v
	}

	// Environment layout: the self slot, when present, is index 0 and the
	// captures follow; otherwise the captures start at 0. The indices must
	// agree with the write order in CreateClosure.
	captured := make(map[string]int, len(captureNames)+1)
	base := 0
	if recursive {
		captured[name] = 0
		base = 1
	}
	for i, n := range captureNames {
		captured[n] = base + i
	}

	label, err := c.InsideFnDef(name, captured, func(param lir.Value) error {
		c.localNames[lam.Param] = param
		bodyVal, err := c.Lower(lam.Body)
		if err != nil {
			return err
		}
		c.Add(&lir.Return{Value: bodyVal})
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := c.NewTemp64()
	c.Add(&lir.CreateClosure{
		FnLbl:     label.AsValue(),
		Captures:  captureVals,
		Ret:       res,
		Recursive: recursive,
	})
	return res, nil
}

// lowerLet binds a name in the current frame and lowers the body under that
// binding. A lambda right-hand side becomes a named function definition,
// which is what makes `let rec` able to call itself.
func (c *GenCtx) lowerLet(node *ast.Let) (lir.Value, error) {
	if err := c.lowerBinding(node.Name, node.Rhs, node.Recursive); err != nil {
		return nil, err
	}
	return c.Lower(node.Body)
}

func (c *GenCtx) lowerLetStmt(node *ast.LetStmt) (lir.Value, error) {
	if err := c.lowerBinding(node.Name, node.Rhs, node.Recursive); err != nil {
		return nil, err
	}
	return &lir.Temp0{}, nil
}

func (c *GenCtx) lowerBinding(name string, rhs ast.Expr, recursive bool) error {
	if lam, ok := rhs.(*ast.Lambda); ok {
		closure, err := c.lowerFn(name, lam, recursive)
		if err != nil {
			return err
		}
		c.localNames[name] = closure
		return nil
	}

	val, err := c.Lower(rhs)
	if err != nil {
		return err
	}
	c.localNames[name] = val
	return nil
}

func (c *GenCtx) lowerProgram(node *ast.TopLevelStmts) (lir.Value, error) {
	for _, stmt := range node.Stmts {
		if _, err := c.Lower(stmt); err != nil {
			return nil, err
		}
	}
	return &lir.Temp0{}, nil
}

// nodeHasUnitType consults the checker's cache; nodes lowered without a
// prior inference pass conservatively count as non-unit.
func (c *GenCtx) nodeHasUnitType(node ast.Node) bool {
	if c.checker == nil {
		return false
	}
	t, ok := c.checker.TypeOf(node)
	return ok && t == types.Unit
}
