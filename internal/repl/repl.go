package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/sunholo/camlc/internal/lexer"
	"github.com/sunholo/camlc/internal/parser"
	"github.com/sunholo/camlc/internal/types"
)

// Color functions for pretty output
var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// REPL is an interactive parse-and-infer loop. Each input line is checked
// against a persistent typing environment, so top-level bindings stay in
// scope for later lines. No code is generated.
type REPL struct {
	checker *types.Checker
	version string
}

// New creates a REPL with a fresh checker seeded with the prelude
// signatures.
func New(version string) *REPL {
	if version == "" {
		version = "dev"
	}
	return &REPL{
		checker: types.NewChecker(),
		version: version,
	}
}

// Start runs the loop until :quit or EOF.
func (r *REPL) Start(out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()

	historyFile := filepath.Join(os.TempDir(), ".camlc_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(prefix string) (c []string) {
		if strings.HasPrefix(prefix, ":") {
			for _, cmd := range []string{":help", ":quit", ":reset"} {
				if strings.HasPrefix(cmd, prefix) {
					c = append(c, cmd)
				}
			}
		}
		return
	})

	fmt.Fprintf(out, "%s %s\n", bold("camlc"), bold(r.version))
	fmt.Fprintln(out, dim("Type declarations or expressions; :help for help, :quit to exit"))
	fmt.Fprintln(out)

	for {
		input, err := line.Prompt("# ")
		if err == io.EOF || err == liner.ErrPromptAborted {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if r.handleCommand(input, out) {
				break
			}
			continue
		}

		r.eval(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// handleCommand runs a :command; it reports whether the REPL should exit.
func (r *REPL) handleCommand(cmd string, out io.Writer) bool {
	switch cmd {
	case ":quit", ":q":
		fmt.Fprintln(out, green("Goodbye!"))
		return true
	case ":reset":
		r.checker = types.NewChecker()
		fmt.Fprintln(out, "Environment reset")
	case ":help", ":h":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  :help, :h   Show this help")
		fmt.Fprintln(out, "  :quit, :q   Exit")
		fmt.Fprintln(out, "  :reset      Discard all bindings")
	default:
		fmt.Fprintf(out, "Unknown command: %s\n", cmd)
	}
	return false
}

// eval type-checks one input. Inputs with ";;" are whole statements whose
// bindings persist; anything else is treated as a single expression and its
// inferred type is printed.
func (r *REPL) eval(input string, out io.Writer) {
	if strings.Contains(input, ";;") {
		p := parser.New(lexer.New(input, "<repl>"))
		program, err := p.Parse()
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			return
		}
		if _, err := r.checker.Infer(program); err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			return
		}
		for _, stmt := range program.Stmts {
			fmt.Fprintf(out, "%s\n", dim(stmt.String()))
		}
		return
	}

	p := parser.New(lexer.New(input, "<repl>"))
	expr, err := p.ParseExpr()
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
		return
	}
	t, err := r.checker.Infer(expr)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
		return
	}
	fmt.Fprintf(out, "- : %s\n", yellow(r.checker.Concretize(t).String()))
}
