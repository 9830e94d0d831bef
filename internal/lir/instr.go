package lir

import (
	"fmt"
	"strconv"
)

// Assign copies a 64-bit value into a stack slot, staging through rax since
// both operands may be memory.
type Assign struct {
	Dst *Temp64
	Src Value
}

func (i *Assign) NASM(fn *FnDef) ([]string, error) {
	src, err := i.Src.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	dst, err := i.Dst.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	return annotate("Assign", nil, []string{
		"mov rax, " + src,
		"mov " + dst + ", rax",
	}), nil
}

// GetElementPtr loads *(ptr + index*stride) into Res.
type GetElementPtr struct {
	Ptr    Value
	Index  int
	Stride int
	Res    *Temp64 // nil discards the load into rax only
}

func (i *GetElementPtr) NASM(fn *FnDef) ([]string, error) {
	if i.Ptr.Size() == 0 {
		return nil, &ZeroSizedValueError{}
	}
	ptr, err := i.Ptr.NASMVal(fn)
	if err != nil {
		return nil, err
	}

	offset := i.Stride * i.Index
	lines := []string{
		"mov rax, " + ptr,
		fmt.Sprintf("mov rax, [rax%+d]", offset),
	}
	if i.Res != nil {
		res, err := i.Res.NASMVal(fn)
		if err != nil {
			return nil, err
		}
		lines = append(lines, "mov "+res+", rax")
	}
	return annotate("GetElementPtr", []attr{{"stride", strconv.Itoa(i.Stride)}}, lines), nil
}

// SetElementPtr stores a value at *(ptr + index*stride).
type SetElementPtr struct {
	Ptr    *Temp64
	Index  int
	Stride int
	Value  Value
}

func (i *SetElementPtr) NASM(fn *FnDef) ([]string, error) {
	ptr, err := i.Ptr.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	val, err := i.Value.NASMVal(fn)
	if err != nil {
		return nil, err
	}

	offset := i.Stride * i.Index
	return annotate("SetElementPtr", []attr{{"stride", strconv.Itoa(i.Stride)}}, []string{
		"mov rax, " + ptr,
		"mov r8, " + val,
		fmt.Sprintf("mov [rax%+d], r8", offset),
	}), nil
}

// EnvLookup loads a captured value out of the current function's environment
// vector. Index 0 is the first environment slot: the self pointer for
// recursive closures, the first capture otherwise.
type EnvLookup struct {
	Index int
	Res   *Temp64
}

func (i *EnvLookup) NASM(fn *FnDef) ([]string, error) {
	gep := &GetElementPtr{
		Ptr: fn.Env,

		// Skip the code pointer in slot 0 of the closure block.
		Index: i.Index + 1,

		// Every environment element is 8 bytes.
		Stride: 8,
		Res:    i.Res,
	}
	inner, err := gep.NASM(fn)
	if err != nil {
		return nil, err
	}
	return annotate("EnvLookup", []attr{{"index", strconv.Itoa(i.Index)}}, inner), nil
}

// CallClosure calls through a closure pointer: the closure itself is pushed
// as the environment, then the argument, then control transfers through the
// code pointer in the closure's first slot. The callee pops both pushes on
// return.
type CallClosure struct {
	Fn  *Temp64
	Arg Value
	Ret *Temp64 // nil when the result is unit
}

func (i *CallClosure) NASM(fn *FnDef) ([]string, error) {
	fnVal, err := i.Fn.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	arg, err := i.Arg.NASMVal(fn)
	if err != nil {
		return nil, err
	}

	lines := []string{
		"mov rax, " + fnVal,
		"push rax",
		"push " + arg,
		"call [rax]",
	}
	if i.Ret != nil {
		ret, err := i.Ret.NASMVal(fn)
		if err != nil {
			return nil, err
		}
		lines = append(lines, "mov "+ret+", rax")
	}
	return annotate("CallClosure", nil, lines), nil
}

// CreateClosure heap-allocates a closure block and stores its address in
// Ret. Layout: code pointer at offset 0; for recursive closures the block's
// own address at offset 8; then each capture in order, 8 bytes apiece.
type CreateClosure struct {
	FnLbl     *LabelRef
	Captures  []Value
	Ret       *Temp64
	Recursive bool
}

func (i *CreateClosure) NASM(fn *FnDef) ([]string, error) {
	size := i.FnLbl.Size()
	if i.Recursive {
		size += 8
	}
	for _, val := range i.Captures {
		size += val.Size()
	}

	lbl, err := i.FnLbl.NASMVal(fn)
	if err != nil {
		return nil, err
	}

	lines := []string{
		fmt.Sprintf("mov rdi, %d", size),
		"call malloc",
		"mov r8, rax",
		"mov QWORD [r8], " + lbl,
	}

	// Offset of the next slot to fill. The self pointer, when present, sits
	// at offset 8 so that the body can always reach it as environment
	// index 0.
	offset := i.FnLbl.Size()
	if i.Recursive {
		lines = append(lines, fmt.Sprintf("mov [r8%+d], r8", offset))
		offset += 8
	}

	if len(i.Captures) > 0 {
		lines = append(lines, "; <ConstructEnvironment>")
		for _, val := range i.Captures {
			v, err := val.NASMVal(fn)
			if err != nil {
				return nil, err
			}
			lines = append(lines,
				"mov rax, "+v,
				fmt.Sprintf("mov QWORD [r8%+d], rax", offset),
			)
			offset += val.Size()
		}
		lines = append(lines, "; </ConstructEnvironment>")
	}

	lines = append(lines, "mov rax, r8")

	if i.Ret != nil {
		ret, err := i.Ret.NASMVal(fn)
		if err != nil {
			return nil, err
		}
		lines = append(lines, "mov "+ret+", rax")
	}

	recursive := "false"
	if i.Recursive {
		recursive = "true"
	}
	return annotate("CreateClosure", []attr{{"recursive", recursive}}, lines), nil
}

// IfFalse branches to the label when the condition's low byte is zero.
type IfFalse struct {
	Cond  Value
	Label *Label
}

func (i *IfFalse) NASM(fn *FnDef) ([]string, error) {
	cond, err := i.Cond.NASMVal(fn)
	if err != nil {
		return nil, err
	}
	return annotate("IfFalse", nil, []string{
		"mov rax, " + cond,
		"test al, al",
		"je " + i.Label.Name(),
	}), nil
}

// Goto branches unconditionally.
type Goto struct {
	Label *Label
}

func (i *Goto) NASM(fn *FnDef) ([]string, error) {
	return annotate("Goto", nil, []string{
		"jmp " + i.Label.Name(),
	}), nil
}

// Return moves the result into rax (zero for unit results) and runs the
// epilogue.
type Return struct {
	Value Value
}

func (i *Return) NASM(fn *FnDef) ([]string, error) {
	var lines []string
	if i.Value == nil || i.Value.Size() == 0 {
		lines = []string{"mov rax, 0"}
	} else {
		val, err := i.Value.NASMVal(fn)
		if err != nil {
			return nil, err
		}
		lines = []string{"mov rax, " + val}
	}
	lines = append(lines, fn.Epilogue()...)
	return annotate("Return", nil, lines), nil
}

// Comment is a free-form assembly comment.
type Comment struct {
	Text string
}

func (i *Comment) NASM(fn *FnDef) ([]string, error) {
	return []string{";;; " + i.Text}, nil
}
