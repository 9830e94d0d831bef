package lir

import (
	"fmt"
	"strings"
)

// Value is anything an instruction can read: a stack temporary, an immediate,
// or a label used as an address.
type Value interface {
	// Size returns the value's size in bytes. Unit values are zero-sized.
	Size() int

	// NASMVal renders the value as a NASM operand in the frame of fn.
	NASMVal(fn *FnDef) (string, error)
}

// Instr is a single low-level instruction. NASM expands it to assembly lines
// in the frame of fn, wrapped in tag comments for introspection.
type Instr interface {
	NASM(fn *FnDef) ([]string, error)
}

// attr is one key="value" pair on an instruction's tag comment.
type attr struct {
	key string
	val string
}

// annotate wraps expanded assembly lines in an XML-like comment pair:
//
//	; <Tag key="val">
//	    ...
//	; </Tag>
func annotate(tag string, attrs []attr, lines []string) []string {
	props := make([]string, len(attrs))
	for i, a := range attrs {
		props[i] = fmt.Sprintf("%s=%q", a.key, a.val)
	}
	open := "; <" + tag
	if len(props) > 0 {
		open += " " + strings.Join(props, ", ")
	}
	open += ">"

	out := make([]string, 0, len(lines)+2)
	out = append(out, open)
	for _, line := range lines {
		out = append(out, "    "+line)
	}
	out = append(out, "; </"+tag+">")
	return out
}

// Label is a symbolic code location, usable both as an instruction
// (definition site) and as a value (address).
type Label struct {
	ID         int
	CustomName string
}

// Name returns the label's assembly name: the custom name if set, L<id>
// otherwise.
func (l *Label) Name() string {
	if l.CustomName == "" {
		return fmt.Sprintf("L%d", l.ID)
	}
	return l.CustomName
}

// AsInstr returns the label as a definition-site instruction.
func (l *Label) AsInstr() *LabelInstr {
	return &LabelInstr{Label: l}
}

// AsValue returns the label as an 8-byte address value.
func (l *Label) AsValue() *LabelRef {
	return &LabelRef{Label: l}
}

// LabelInstr is a label definition site.
type LabelInstr struct {
	Label *Label
}

func (l *LabelInstr) NASM(fn *FnDef) ([]string, error) {
	return []string{l.Label.Name() + ":"}, nil
}

// LabelRef is a label used as an address value.
type LabelRef struct {
	Label *Label
}

func (l *LabelRef) Size() int { return 8 }

func (l *LabelRef) NASMVal(fn *FnDef) (string, error) {
	return l.Label.Name(), nil
}

// Temp64 is a 64-bit stack-allocated temporary, addressed relative to the
// frame pointer of its owning function.
type Temp64 struct {
	ID int
}

func (t *Temp64) Size() int { return 8 }

func (t *Temp64) NASMVal(fn *FnDef) (string, error) {
	offset, err := fn.OffsetOf(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("QWORD [rbp%+d]", offset), nil
}

// Temp0 is a zero-sized virtual temporary standing in for values of unit
// type. It has no address.
type Temp0 struct{}

func (t *Temp0) Size() int { return 0 }

func (t *Temp0) NASMVal(fn *FnDef) (string, error) {
	return "", &ZeroSizedValueError{}
}

// ZeroSizedValueError reports an attempt to address a zero-sized temporary.
// Reaching it means the lowering pass emitted an instruction that reads a
// unit value.
type ZeroSizedValueError struct{}

func (e *ZeroSizedValueError) Error() string {
	return "cannot take the address of a zero-sized temporary"
}

// I64 is a 64-bit immediate literal.
type I64 struct {
	Val int64
}

func (i *I64) Size() int { return 8 }

func (i *I64) NASMVal(fn *FnDef) (string, error) {
	return fmt.Sprintf("QWORD %d", i.Val), nil
}

// StaticByteArray is a labeled data-section entry. String components are
// emitted quoted, byte components as hex.
type StaticByteArray struct {
	Label      *Label
	Components []DataComponent
}

// DataComponent is one element of a static byte array.
type DataComponent interface {
	dataNASM() string
}

// Str is a quoted string component.
type Str string

func (s Str) dataNASM() string { return fmt.Sprintf("'%s'", string(s)) }

// Byte is a single raw byte component.
type Byte byte

func (b Byte) dataNASM() string { return fmt.Sprintf("0x%X", byte(b)) }

// NASM renders the data-section definition line.
func (s *StaticByteArray) NASM() string {
	parts := make([]string, len(s.Components))
	for i, c := range s.Components {
		parts[i] = c.dataNASM()
	}
	return fmt.Sprintf("%s db %s", s.Label.Name(), strings.Join(parts, ", "))
}

// Fixed frame offsets: the caller pushes the environment pointer, then the
// argument, then calls. With the saved frame pointer and return address in
// between, the argument sits at [rbp+16] and the environment at [rbp+24].
const (
	paramID     = -1
	envID       = -2
	paramOffset = 16
	envOffset   = 24
)

// FnDef is one assembler function: a label, the fixed parameter and
// environment slots, a body of instructions, and the frame layout of every
// temporary allocated while lowering the body.
type FnDef struct {
	Label *Label
	Param Value // *Temp64 with fixed offset, or *Temp0 for main
	Env   Value

	Body []Instr

	offsets       map[*Temp64]int
	currentOffset int
	nextTempID    int
}

// NewFnDef creates a function with 64-bit parameter and environment slots at
// their fixed positive offsets.
func NewFnDef(label *Label) *FnDef {
	param := &Temp64{ID: paramID}
	env := &Temp64{ID: envID}
	return &FnDef{
		Label:   label,
		Param:   param,
		Env:     env,
		offsets: map[*Temp64]int{param: paramOffset, env: envOffset},
	}
}

// NewMainFnDef creates the outermost function. Main takes no argument and no
// environment, so both slots are zero-sized.
func NewMainFnDef(label *Label) *FnDef {
	return &FnDef{
		Label:   label,
		Param:   &Temp0{},
		Env:     &Temp0{},
		offsets: map[*Temp64]int{},
	}
}

// NewTemp64 allocates a fresh stack temporary. Locals grow downward from the
// frame pointer in 8-byte steps.
func (f *FnDef) NewTemp64() *Temp64 {
	t := &Temp64{ID: f.nextTempID}
	f.nextTempID++
	f.currentOffset -= t.Size()
	f.offsets[t] = f.currentOffset
	return t
}

// OffsetOf returns the frame-pointer offset of a temporary.
func (f *FnDef) OffsetOf(t *Temp64) (int, error) {
	offset, ok := f.offsets[t]
	if !ok {
		return 0, fmt.Errorf("temporary t%d has no slot in %s", t.ID, f.Label.Name())
	}
	return offset, nil
}

// LocalAllocaSize is the number of bytes of locals the prologue must
// reserve; the parameter and environment slots live above the saved frame
// pointer and are excluded.
func (f *FnDef) LocalAllocaSize() int {
	size := 0
	for t := range f.offsets {
		if t.ID != paramID && t.ID != envID {
			size += t.Size()
		}
	}
	return size
}

// Epilogue restores the caller's frame and pops the argument and environment
// pushed by the caller.
func (f *FnDef) Epilogue() []string {
	return []string{
		"leave",
		fmt.Sprintf("ret %d", f.Param.Size()+f.Env.Size()),
	}
}

// NASM renders the whole function: label, prologue, body, epilogue.
func (f *FnDef) NASM() ([]string, error) {
	lines := []string{
		f.Label.Name() + ":",
		fmt.Sprintf("enter %d, 0", f.LocalAllocaSize()),
	}
	for _, instr := range f.Body {
		expanded, err := instr.NASM(f)
		if err != nil {
			return nil, err
		}
		lines = append(lines, expanded...)
	}
	lines = append(lines, f.Epilogue()...)
	return annotate("FnDef", []attr{{"label", f.Label.Name()}}, lines), nil
}
