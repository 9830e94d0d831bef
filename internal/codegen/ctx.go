package codegen

import (
	"fmt"

	"github.com/sunholo/camlc/internal/lir"
	"github.com/sunholo/camlc/internal/types"
)

// LoweringError reports a compiler invariant violated while lowering the AST
// to LIR, such as calling a value that is not a closure temporary.
type LoweringError struct {
	Message string
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("lowering error: %s", e.Message)
}

func loweringErrf(format string, args ...interface{}) error {
	return &LoweringError{Message: fmt.Sprintf(format, args...)}
}

// GenCtx is the per-compilation code generation context: the list of emitted
// functions, static data, and the scope state of the function currently
// being built.
type GenCtx struct {
	checker *types.Checker

	nextLabelID int

	// localNames maps source names to values in the current frame;
	// capturedNames maps source names to indices in the current function's
	// environment vector.
	localNames    map[string]lir.Value
	capturedNames map[string]int

	statics   []*lir.StaticByteArray
	currentFn *lir.FnDef
	fns       []*lir.FnDef

	// printIntFmt labels the printf format string installed by the prelude.
	printIntFmt *lir.Label
}

// NewGenCtx creates a context whose first function is the implicit main
// frame. The checker supplies inferred node types during lowering.
func NewGenCtx(checker *types.Checker) *GenCtx {
	c := &GenCtx{
		checker:       checker,
		localNames:    make(map[string]lir.Value),
		capturedNames: make(map[string]int),
	}
	main := lir.NewMainFnDef(c.NewLabel("main"))
	c.currentFn = main
	c.fns = append(c.fns, main)
	return c
}

// NewLabel allocates a fresh label. An empty custom name yields a numbered
// one.
func (c *GenCtx) NewLabel(customName string) *lir.Label {
	label := &lir.Label{ID: c.nextLabelID, CustomName: customName}
	c.nextLabelID++
	return label
}

// NewTemp64 allocates a stack temporary in the current function.
func (c *GenCtx) NewTemp64() *lir.Temp64 {
	return c.currentFn.NewTemp64()
}

// Add appends an instruction to the current function's body.
func (c *GenCtx) Add(instr lir.Instr) {
	c.currentFn.Body = append(c.currentFn.Body, instr)
}

// AddStatic appends a data-section entry.
func (c *GenCtx) AddStatic(s *lir.StaticByteArray) {
	c.statics = append(c.statics, s)
}

// Fns returns the functions built so far; the first is main.
func (c *GenCtx) Fns() []*lir.FnDef {
	return c.fns
}

// CurrentFn returns the function currently being built.
func (c *GenCtx) CurrentFn() *lir.FnDef {
	return c.currentFn
}

// InsideFnDef builds a nested function definition. The current function,
// its locals and its capture map are saved, a fresh frame with the given
// capture map becomes current, and the previous state is restored on every
// exit path. body receives the new function's parameter slot.
func (c *GenCtx) InsideFnDef(customName string, captured map[string]int, body func(param lir.Value) error) (*lir.Label, error) {
	oldFn := c.currentFn
	oldLocals := c.localNames
	oldCaptured := c.capturedNames

	label := c.NewLabel(customName)
	fn := lir.NewFnDef(label)
	c.currentFn = fn
	c.fns = append(c.fns, fn)
	c.localNames = make(map[string]lir.Value)
	if captured == nil {
		captured = make(map[string]int)
	}
	c.capturedNames = captured

	defer func() {
		c.currentFn = oldFn
		c.localNames = oldLocals
		c.capturedNames = oldCaptured
	}()

	if err := body(fn.Param); err != nil {
		return nil, err
	}
	return label, nil
}

// lookupName resolves a source identifier in the current frame: local names
// win, then environment captures, which cost an EnvLookup into a fresh
// temporary.
func (c *GenCtx) lookupName(name string) (lir.Value, error) {
	if v, ok := c.localNames[name]; ok {
		return v, nil
	}
	if idx, ok := c.capturedNames[name]; ok {
		tmp := c.NewTemp64()
		c.Add(&lir.EnvLookup{Index: idx, Res: tmp})
		return tmp, nil
	}
	return nil, loweringErrf("name %q is neither local nor captured", name)
}
