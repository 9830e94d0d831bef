package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sunholo/camlc/internal/build"
	"github.com/sunholo/camlc/internal/repl"
)

var (
	// Version info - set by ldflags during build
	Version = "dev"

	// Color output
	red  = color.New(color.FgRed).SprintFunc()
	cyan = color.New(color.FgCyan).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		helpFlag    = flag.Bool("help", false, "Show help")
		outputFlag  = flag.String("o", "", "Name of the executable to create")
		asmFlag     = flag.Bool("S", false, "Stop after emitting assembly")
		configFlag  = flag.String("config", "", "Path to a toolchain config file")
	)

	flag.Usage = printHelp
	flag.Parse()

	if *versionFlag {
		fmt.Printf("camlc %s\n", bold(Version))
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		if !*helpFlag {
			os.Exit(1)
		}
		return
	}

	if flag.Arg(0) == "repl" {
		repl.New(Version).Start(os.Stdout)
		return
	}

	opts := build.Options{
		Source:      flag.Arg(0),
		Output:      *outputFlag,
		EmitAsmOnly: *asmFlag,
	}

	// The flag package stops at the first positional argument, but the
	// conventional invocation is `camlc <SRC> -o <EXE>`. Pick up trailing
	// flags by hand.
	args := flag.Args()
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o":
			if i+1 >= len(args) {
				fatal(fmt.Errorf("-o requires an argument"))
			}
			i++
			opts.Output = args[i]
		case "-S":
			opts.EmitAsmOnly = true
		default:
			fatal(fmt.Errorf("unexpected argument %q", args[i]))
		}
	}

	if *configFlag != "" {
		cfg, err := build.LoadConfig(*configFlag)
		if err != nil {
			fatal(err)
		}
		opts.Config = cfg
	}

	if err := build.Compile(opts); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
	os.Exit(1)
}

func printHelp() {
	fmt.Println(bold("camlc - an ML compiler targeting x86-64"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  camlc <SRC> [-o EXE]")
	fmt.Println("  camlc repl")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -o <file>        Name of the executable (default: source basename)")
	fmt.Println("  -S               Stop after emitting the .asm file")
	fmt.Println("  -config <file>   Toolchain configuration (yaml)")
	fmt.Println("  --version        Print version information")
	fmt.Println("  --help           Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s      # Compile to ./fact\n", cyan("camlc fact.ml"))
	fmt.Printf("  %s  # Compile to ./a.out\n", cyan("camlc fact.ml -o a.out"))
	fmt.Printf("  %s         # Interactive type checking\n", cyan("camlc repl"))
}
