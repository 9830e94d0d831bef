package lir

import (
	"fmt"
)

// CreateTuple heap-allocates a block of 8-byte slots and stores each value
// at its index.
type CreateTuple struct {
	Values []Value
	Ret    *Temp64
}

func (i *CreateTuple) NASM(fn *FnDef) ([]string, error) {
	ret, err := i.Ret.NASMVal(fn)
	if err != nil {
		return nil, err
	}

	lines := []string{
		fmt.Sprintf("mov rdi, %d", len(i.Values)*8),
		"call malloc",
		"mov " + ret + ", rax",
	}
	for idx, val := range i.Values {
		sep := &SetElementPtr{Ptr: i.Ret, Index: idx, Stride: 8, Value: val}
		expanded, err := sep.NASM(fn)
		if err != nil {
			return nil, err
		}
		lines = append(lines, expanded...)
	}
	return annotate("CreateTuple", []attr{{"arity", fmt.Sprintf("%d", len(i.Values))}}, lines), nil
}

// AddSub is 64-bit addition or subtraction into rax, optionally spilled to a
// result slot.
type AddSub struct {
	Op   string // "add" or "sub"
	Arg1 Value
	Arg2 Value
	Res  *Temp64
}

// Add builds an addition instruction.
func Add(arg1, arg2 Value, res *Temp64) *AddSub {
	return &AddSub{Op: "add", Arg1: arg1, Arg2: arg2, Res: res}
}

// Sub builds a subtraction instruction.
func Sub(arg1, arg2 Value, res *Temp64) *AddSub {
	return &AddSub{Op: "sub", Arg1: arg1, Arg2: arg2, Res: res}
}

func (i *AddSub) NASM(fn *FnDef) ([]string, error) {
	arg1, err := i.Arg1.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	arg2, err := i.Arg2.NASMVal(fn)
	if err != nil {
		return nil, err
	}

	lines := []string{
		"mov rax, " + arg1,
		i.Op + " rax, " + arg2,
	}
	if i.Res != nil {
		res, err := i.Res.NASMVal(fn)
		if err != nil {
			return nil, err
		}
		lines = append(lines, "mov "+res+", rax")
	}
	return annotate("AddSub", []attr{{"operation", i.Op}}, lines), nil
}

// MulDivMod is 64-bit unsigned multiplication, division or remainder.
// Division zeroes rdx first; remainder moves rdx into rax afterwards.
type MulDivMod struct {
	Op   string // "mul", "div" or "mod"
	Arg1 Value
	Arg2 Value
	Res  *Temp64
}

// Mul builds a multiplication instruction.
func Mul(arg1, arg2 Value, res *Temp64) *MulDivMod {
	return &MulDivMod{Op: "mul", Arg1: arg1, Arg2: arg2, Res: res}
}

// Div builds a division instruction.
func Div(arg1, arg2 Value, res *Temp64) *MulDivMod {
	return &MulDivMod{Op: "div", Arg1: arg1, Arg2: arg2, Res: res}
}

// Mod builds a remainder instruction.
func Mod(arg1, arg2 Value, res *Temp64) *MulDivMod {
	return &MulDivMod{Op: "mod", Arg1: arg1, Arg2: arg2, Res: res}
}

func (i *MulDivMod) NASM(fn *FnDef) ([]string, error) {
	arg1, err := i.Arg1.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	arg2, err := i.Arg2.NASMVal(fn)
	if err != nil {
		return nil, err
	}

	mnemonic := "mul"
	if i.Op == "div" || i.Op == "mod" {
		mnemonic = "div"
	}

	var lines []string
	if mnemonic == "div" {
		// Zero out the top bits of the dividend.
		lines = append(lines, "xor rdx, rdx")
	}
	lines = append(lines,
		"mov rax, "+arg1,
		"mov r8, "+arg2,
		mnemonic+" r8",
	)
	if i.Op == "mod" {
		// The remainder lands in rdx.
		lines = append(lines, "mov rax, rdx")
	}
	if i.Res != nil {
		res, err := i.Res.NASMVal(fn)
		if err != nil {
			return nil, err
		}
		lines = append(lines, "mov "+res+", rax")
	}
	return annotate("MulDivMod", []attr{{"operation", i.Op}}, lines), nil
}

// EqI64 compares two 64-bit values for equality, leaving 1 or 0 in the low
// byte of rax.
type EqI64 struct {
	Arg1 Value
	Arg2 Value
	Ret  *Temp64
}

func (i *EqI64) NASM(fn *FnDef) ([]string, error) {
	arg1, err := i.Arg1.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	arg2, err := i.Arg2.NASMVal(fn)
	if err != nil {
		return nil, err
	}

	lines := []string{
		"mov rax, 0",
		"mov r8, " + arg1,
		"cmp r8, " + arg2,
		"sete al",
	}
	if i.Ret != nil {
		ret, err := i.Ret.NASMVal(fn)
		if err != nil {
			return nil, err
		}
		lines = append(lines, "mov "+ret+", rax")
	}
	return annotate("EqI64", nil, lines), nil
}

// Exit invokes the exit system call with the given status.
type Exit struct {
	Code Value
}

func (i *Exit) NASM(fn *FnDef) ([]string, error) {
	code, err := i.Code.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	return annotate("Exit", nil, []string{
		"mov rdi, " + code,
		"mov rax, 60",
		"syscall",
	}), nil
}

// PrintInt writes the integer argument to stdout via printf with the
// newline-terminated "%d" format string at FmtLbl.
type PrintInt struct {
	Arg    Value
	FmtLbl *Label
}

func (i *PrintInt) NASM(fn *FnDef) ([]string, error) {
	arg, err := i.Arg.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	return annotate("PrintInt", nil, []string{
		"mov rsi, " + arg,
		"mov rdi, " + i.FmtLbl.Name(),
		"xor rax, rax",
		"call printf",
	}), nil
}
