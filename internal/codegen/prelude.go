package codegen

import (
	"github.com/sunholo/camlc/internal/lir"
)

// preludeBinOps lists the operators installed as prelude closures, in
// emission order, with the label stem of each.
var preludeBinOps = []struct {
	name string
	op   string
	stem string
}{
	{"+", "add", "_$add"},
	{"-", "sub", "_$sub"},
	{"*", "mul", "_$mul"},
	{"div", "div", "_$div"},
	{"mod", "mod", "_$mod"},
	{"=", "eq", "_$eq"},
}

// InstallPrelude seeds the main frame with pre-built closures for exit,
// print_int and a curried form of every infix operator, so that built-ins
// survive first-class use (`let my_exit = exit`) and capture.
func (c *GenCtx) InstallPrelude() error {
	if err := c.installExit(); err != nil {
		return err
	}
	if err := c.installPrintInt(); err != nil {
		return err
	}
	for _, binOp := range preludeBinOps {
		if err := c.installBinOp(binOp.name, binOp.op, binOp.stem); err != nil {
			return err
		}
	}
	return nil
}

func (c *GenCtx) installExit() error {
	label, err := c.InsideFnDef("_$exit", nil, func(param lir.Value) error {
		c.Add(&lir.Exit{Code: param})
		return nil
	})
	if err != nil {
		return err
	}

	tmp := c.NewTemp64()
	c.Add(&lir.CreateClosure{FnLbl: label.AsValue(), Ret: tmp})
	c.localNames["exit"] = tmp
	return nil
}

func (c *GenCtx) installPrintInt() error {
	// The printf format string: "%d" followed by a newline and a NUL.
	c.printIntFmt = c.NewLabel("_$print_int_fmt")
	c.AddStatic(&lir.StaticByteArray{
		Label:      c.printIntFmt,
		Components: []lir.DataComponent{lir.Str("%d"), lir.Byte(0x0A), lir.Byte(0x0)},
	})

	label, err := c.InsideFnDef("_$print_int", nil, func(param lir.Value) error {
		c.Add(&lir.PrintInt{Arg: param, FmtLbl: c.printIntFmt})
		c.Add(&lir.Return{})
		return nil
	})
	if err != nil {
		return err
	}

	tmp := c.NewTemp64()
	c.Add(&lir.CreateClosure{FnLbl: label.AsValue(), Ret: tmp})
	c.localNames["print_int"] = tmp
	return nil
}

// installBinOp builds the curried closure pair for one operator: the outer
// function receives the first operand and closes over it; the inner one
// receives the second operand and runs the arithmetic intrinsic.
func (c *GenCtx) installBinOp(name, op, stem string) error {
	outerLbl, err := c.InsideFnDef(stem, nil, func(x lir.Value) error {
		innerLbl, err := c.InsideFnDef(stem+"$curried", nil, func(y lir.Value) error {
			captured := c.NewTemp64()
			c.Add(&lir.EnvLookup{Index: 0, Res: captured})

			ret := c.NewTemp64()
			c.Add(binOpInstr(op, captured, y, ret))
			c.Add(&lir.Return{Value: ret})
			return nil
		})
		if err != nil {
			return err
		}

		res := c.NewTemp64()
		c.Add(&lir.CreateClosure{
			FnLbl:    innerLbl.AsValue(),
			Captures: []lir.Value{x},
			Ret:      res,
		})
		c.Add(&lir.Return{Value: res})
		return nil
	})
	if err != nil {
		return err
	}

	tmp := c.NewTemp64()
	c.Add(&lir.CreateClosure{FnLbl: outerLbl.AsValue(), Ret: tmp})
	c.localNames[name] = tmp
	return nil
}
