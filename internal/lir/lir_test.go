package lir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expand(t *testing.T, fn *FnDef, instr Instr) []string {
	t.Helper()
	lines, err := instr.NASM(fn)
	require.NoError(t, err)
	return lines
}

func joined(lines []string) string {
	return strings.Join(lines, "\n")
}

func TestTempOffsets(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1, CustomName: "f"})

	t0 := fn.NewTemp64()
	t1 := fn.NewTemp64()

	off0, err := fn.OffsetOf(t0)
	require.NoError(t, err)
	off1, err := fn.OffsetOf(t1)
	require.NoError(t, err)

	assert.Equal(t, -8, off0, "locals grow downward in 8-byte steps")
	assert.Equal(t, -16, off1)

	param, ok := fn.Param.(*Temp64)
	require.True(t, ok)
	env, ok := fn.Env.(*Temp64)
	require.True(t, ok)

	paramOff, err := fn.OffsetOf(param)
	require.NoError(t, err)
	envOff, err := fn.OffsetOf(env)
	require.NoError(t, err)

	assert.Equal(t, 16, paramOff, "argument lives above the saved rbp and return address")
	assert.Equal(t, 24, envOff)
}

func TestTempNASMVal(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	tmp := fn.NewTemp64()

	val, err := tmp.NASMVal(fn)
	require.NoError(t, err)
	assert.Equal(t, "QWORD [rbp-8]", val)

	param := fn.Param.(*Temp64)
	val, err = param.NASMVal(fn)
	require.NoError(t, err)
	assert.Equal(t, "QWORD [rbp+16]", val)
}

func TestTemp0HasNoAddress(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})

	_, err := (&Temp0{}).NASMVal(fn)
	require.Error(t, err)
	assert.IsType(t, &ZeroSizedValueError{}, err)
}

func TestLabelNames(t *testing.T) {
	assert.Equal(t, "L7", (&Label{ID: 7}).Name())
	assert.Equal(t, "main", (&Label{ID: 0, CustomName: "main"}).Name())
}

func TestEpilogue(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1, CustomName: "f"})
	assert.Equal(t, []string{"leave", "ret 16"}, fn.Epilogue(),
		"callee pops its own argument and environment")

	main := NewMainFnDef(&Label{ID: 0, CustomName: "main"})
	assert.Equal(t, []string{"leave", "ret 0"}, main.Epilogue(),
		"main has zero-sized param and env")
}

func TestLocalAllocaSizeExcludesParamAndEnv(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	assert.Equal(t, 0, fn.LocalAllocaSize())

	fn.NewTemp64()
	fn.NewTemp64()
	fn.NewTemp64()
	assert.Equal(t, 24, fn.LocalAllocaSize())
}

func TestAnnotationTags(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	tmp := fn.NewTemp64()

	lines := expand(t, fn, &Assign{Dst: tmp, Src: &I64{Val: 3}})

	assert.Equal(t, "; <Assign>", lines[0])
	assert.Equal(t, "; </Assign>", lines[len(lines)-1])
	for _, inner := range lines[1 : len(lines)-1] {
		assert.True(t, strings.HasPrefix(inner, "    "), "inner lines are indented: %q", inner)
	}
}

func TestCreateClosureEmptyCaptures(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	ret := fn.NewTemp64()

	instr := &CreateClosure{
		FnLbl: (&Label{ID: 2, CustomName: "f"}).AsValue(),
		Ret:   ret,
	}
	text := joined(expand(t, fn, instr))

	assert.Contains(t, text, "mov rdi, 8", "code pointer only: 8 bytes")
	assert.Contains(t, text, "call malloc")
	assert.Contains(t, text, "mov QWORD [r8], f")
	assert.NotContains(t, text, "ConstructEnvironment")
	assert.Contains(t, text, `recursive="false"`)
}

func TestCreateClosureWithCaptures(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	cap0 := fn.NewTemp64()
	cap1 := fn.NewTemp64()
	ret := fn.NewTemp64()

	instr := &CreateClosure{
		FnLbl:    (&Label{ID: 2, CustomName: "f"}).AsValue(),
		Captures: []Value{cap0, cap1},
		Ret:      ret,
	}
	text := joined(expand(t, fn, instr))

	assert.Contains(t, text, "mov rdi, 24")
	assert.Contains(t, text, "mov QWORD [r8+8], rax", "first capture right after the code pointer")
	assert.Contains(t, text, "mov QWORD [r8+16], rax")
}

func TestRecursiveClosureSelfSlotPrecedesCaptures(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	cap0 := fn.NewTemp64()
	ret := fn.NewTemp64()

	instr := &CreateClosure{
		FnLbl:     (&Label{ID: 2, CustomName: "fact"}).AsValue(),
		Captures:  []Value{cap0},
		Ret:       ret,
		Recursive: true,
	}
	text := joined(expand(t, fn, instr))

	assert.Contains(t, text, "mov rdi, 24", "code pointer + self slot + one capture")
	assert.Contains(t, text, "mov [r8+8], r8", "self pointer at offset 8")
	assert.Contains(t, text, "mov QWORD [r8+16], rax", "captures begin at offset 16")
	assert.Contains(t, text, `recursive="true"`)

	selfIdx := strings.Index(text, "mov [r8+8], r8")
	capIdx := strings.Index(text, "mov QWORD [r8+16], rax")
	assert.Less(t, selfIdx, capIdx, "the self slot is written before the captures")
}

func TestCallClosurePushesEnvThenArg(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	closure := fn.NewTemp64()
	ret := fn.NewTemp64()

	lines := expand(t, fn, &CallClosure{Fn: closure, Arg: &I64{Val: 11}, Ret: ret})
	text := joined(lines)

	assert.Contains(t, text, "mov rax, QWORD [rbp-8]")
	assert.Contains(t, text, "push rax")
	assert.Contains(t, text, "push QWORD 11")
	assert.Contains(t, text, "call [rax]", "indirect call through the closure's code pointer")
	assert.Contains(t, text, "mov QWORD [rbp-16], rax")

	pushEnv := strings.Index(text, "push rax")
	pushArg := strings.Index(text, "push QWORD 11")
	assert.Less(t, pushEnv, pushArg, "environment is pushed before the argument")
}

func TestCallClosureUnitResult(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	closure := fn.NewTemp64()

	lines := expand(t, fn, &CallClosure{Fn: closure, Arg: &I64{Val: 1}})
	text := joined(lines)

	assert.NotContains(t, text, "mov QWORD [rbp-16], rax",
		"no result move when the call returns unit")
}

func TestEnvLookupSkipsCodePointer(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	res := fn.NewTemp64()

	text := joined(expand(t, fn, &EnvLookup{Index: 0, Res: res}))

	assert.Contains(t, text, "mov rax, QWORD [rbp+24]", "environment pointer at [rbp+24]")
	assert.Contains(t, text, "mov rax, [rax+8]", "index 0 is the slot after the code pointer")
	assert.Contains(t, text, `<EnvLookup index="0">`)
}

func TestEnvLookupInMainFails(t *testing.T) {
	main := NewMainFnDef(&Label{ID: 0, CustomName: "main"})
	res := main.NewTemp64()

	_, err := (&EnvLookup{Index: 0, Res: res}).NASM(main)
	require.Error(t, err, "main has no environment")
}

func TestReturnValue(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	tmp := fn.NewTemp64()

	text := joined(expand(t, fn, &Return{Value: tmp}))
	assert.Contains(t, text, "mov rax, QWORD [rbp-8]")
	assert.Contains(t, text, "leave")
	assert.Contains(t, text, "ret 16")
}

func TestReturnUnitZeroesRax(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})

	text := joined(expand(t, fn, &Return{Value: &Temp0{}}))
	assert.Contains(t, text, "mov rax, 0")

	text = joined(expand(t, fn, &Return{}))
	assert.Contains(t, text, "mov rax, 0")
}

func TestArithmetic(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	res := fn.NewTemp64()

	t.Run("add", func(t *testing.T) {
		text := joined(expand(t, fn, Add(&I64{Val: 2}, &I64{Val: 3}, res)))
		assert.Contains(t, text, "mov rax, QWORD 2")
		assert.Contains(t, text, "add rax, QWORD 3")
		assert.Contains(t, text, "mov QWORD [rbp-8], rax")
	})

	t.Run("sub", func(t *testing.T) {
		text := joined(expand(t, fn, Sub(&I64{Val: 9}, &I64{Val: 4}, res)))
		assert.Contains(t, text, "sub rax, QWORD 4")
	})

	t.Run("div zeroes rdx", func(t *testing.T) {
		text := joined(expand(t, fn, Div(&I64{Val: 9}, &I64{Val: 2}, res)))
		assert.Contains(t, text, "xor rdx, rdx")
		assert.Contains(t, text, "div r8")
		assert.NotContains(t, text, "mov rax, rdx")
	})

	t.Run("mod takes remainder from rdx", func(t *testing.T) {
		text := joined(expand(t, fn, Mod(&I64{Val: 7}, &I64{Val: 3}, res)))
		assert.Contains(t, text, "xor rdx, rdx")
		assert.Contains(t, text, "mov rax, rdx")
	})

	t.Run("mul", func(t *testing.T) {
		text := joined(expand(t, fn, Mul(&I64{Val: 2}, &I64{Val: 3}, res)))
		assert.Contains(t, text, "mul r8")
		assert.NotContains(t, text, "xor rdx, rdx")
	})

	t.Run("eq", func(t *testing.T) {
		text := joined(expand(t, fn, &EqI64{Arg1: &I64{Val: 1}, Arg2: &I64{Val: 1}, Ret: res}))
		assert.Contains(t, text, "cmp r8, QWORD 1")
		assert.Contains(t, text, "sete al")
	})
}

func TestCreateTuple(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	ret := fn.NewTemp64()

	instr := &CreateTuple{Values: []Value{&I64{Val: 1}, &I64{Val: 2}}, Ret: ret}
	text := joined(expand(t, fn, instr))

	assert.Contains(t, text, "mov rdi, 16")
	assert.Contains(t, text, `<CreateTuple arity="2">`)
	assert.Contains(t, text, "mov [rax+0], r8")
	assert.Contains(t, text, "mov [rax+8], r8")
}

func TestExitSyscall(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})

	text := joined(expand(t, fn, &Exit{Code: &I64{Val: 5}}))
	assert.Contains(t, text, "mov rdi, QWORD 5")
	assert.Contains(t, text, "mov rax, 60")
	assert.Contains(t, text, "syscall")
}

func TestPrintIntCallsPrintf(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	fmtLbl := &Label{ID: 9, CustomName: "_$print_int_fmt"}

	text := joined(expand(t, fn, &PrintInt{Arg: &I64{Val: 42}, FmtLbl: fmtLbl}))
	assert.Contains(t, text, "mov rsi, QWORD 42")
	assert.Contains(t, text, "mov rdi, _$print_int_fmt")
	assert.Contains(t, text, "xor rax, rax")
	assert.Contains(t, text, "call printf")
}

func TestStaticByteArray(t *testing.T) {
	s := &StaticByteArray{
		Label:      &Label{ID: 1, CustomName: "_$print_int_fmt"},
		Components: []DataComponent{Str("%d"), Byte(0x0A), Byte(0x0)},
	}
	assert.Equal(t, "_$print_int_fmt db '%d', 0xA, 0x0", s.NASM())
}

func TestIfFalseTestsLowByte(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1})
	cond := fn.NewTemp64()

	text := joined(expand(t, fn, &IfFalse{Cond: cond, Label: &Label{ID: 3}}))
	assert.Contains(t, text, "test al, al")
	assert.Contains(t, text, "je L3")
}

func TestFnDefLayout(t *testing.T) {
	fn := NewFnDef(&Label{ID: 1, CustomName: "f"})
	tmp := fn.NewTemp64()
	fn.Body = append(fn.Body,
		&Assign{Dst: tmp, Src: &I64{Val: 1}},
		&Return{Value: tmp},
	)

	lines, err := fn.NASM()
	require.NoError(t, err)
	text := joined(lines)

	assert.Contains(t, text, "f:")
	assert.Contains(t, text, "enter 8, 0")
	assert.Contains(t, text, "leave")
	assert.Contains(t, text, "ret 16")

	labelIdx := strings.Index(text, "f:")
	enterIdx := strings.Index(text, "enter 8, 0")
	assert.Less(t, labelIdx, enterIdx)
}
