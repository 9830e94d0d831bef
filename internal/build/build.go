package build

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sunholo/camlc/internal/codegen"
	"github.com/sunholo/camlc/internal/lexer"
	"github.com/sunholo/camlc/internal/parser"
	"github.com/sunholo/camlc/internal/types"
)

// ToolchainError reports an assembler or linker that exited non-zero.
type ToolchainError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ToolchainError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// CompileSource runs the full front end and code generator over source text
// and returns the NASM program. filename is used for positions in
// diagnostics.
func CompileSource(src, filename string) (string, error) {
	normalized := lexer.Normalize([]byte(src))

	l := lexer.New(string(normalized), filename)
	p := parser.New(l)
	program, err := p.Parse()
	if err != nil {
		return "", err
	}

	checker := types.NewChecker()
	if _, err := checker.Infer(program); err != nil {
		return "", err
	}

	ctx := codegen.NewGenCtx(checker)
	if err := ctx.InstallPrelude(); err != nil {
		return "", err
	}
	if _, err := ctx.Lower(program); err != nil {
		return "", err
	}

	return ctx.Emit()
}

// Options controls one compiler invocation.
type Options struct {
	// Source is the input file path.
	Source string

	// Output is the executable path; empty means the source basename.
	Output string

	// EmitAsmOnly stops after writing the .asm file.
	EmitAsmOnly bool

	// Config selects the toolchain; nil means DefaultConfig.
	Config *Config
}

// OutputName returns the executable path implied by the options: the -o
// value when given, the source basename otherwise.
func (o Options) OutputName() string {
	if o.Output != "" {
		return o.Output
	}
	base := filepath.Base(o.Source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Compile compiles one source file to a native executable: generate NASM,
// assemble with the configured assembler, link against the C runtime. No
// partial outputs are retained on failure.
func Compile(opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}

	src, err := os.ReadFile(opts.Source)
	if err != nil {
		return err
	}

	asm, err := CompileSource(string(src), opts.Source)
	if err != nil {
		return err
	}

	exeFile := opts.OutputName()
	asmFile := exeFile + ".asm"
	objFile := exeFile + ".o"

	if err := os.WriteFile(asmFile, []byte(asm), 0o644); err != nil {
		return err
	}
	if opts.EmitAsmOnly {
		return nil
	}

	if err := runTool(cfg.Assembler, append(cfg.AssemblerFlags, asmFile, "-o", objFile)...); err != nil {
		os.Remove(asmFile)
		os.Remove(objFile)
		return err
	}

	linkArgs := append([]string{}, cfg.LinkerFlags...)
	linkArgs = append(linkArgs, objFile, "-o", exeFile)
	if err := runTool(cfg.Linker, linkArgs...); err != nil {
		os.Remove(asmFile)
		os.Remove(objFile)
		os.Remove(exeFile)
		return err
	}

	os.Remove(objFile)
	if !cfg.KeepAsm {
		os.Remove(asmFile)
	}
	return nil
}

func runTool(tool string, args ...string) error {
	cmd := exec.Command(tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ToolchainError{Tool: tool, Err: err, Stderr: stderr.String()}
	}
	return nil
}
