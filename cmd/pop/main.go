// cmd/pop/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kr/pretty"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"

	"github.com/kleopatra999/pop/cmd/pop/commands"
	"github.com/kleopatra999/pop/internal/bytecode"
	"github.com/kleopatra999/pop/internal/compiler"
	"github.com/kleopatra999/pop/internal/parser"
	"github.com/kleopatra999/pop/internal/repl"
	"github.com/kleopatra999/pop/internal/vm"
)

const VERSION = "0.2.0"

func main() {
	args := os.Args[1:]

	verbosity := 0
	var rest []string
	for _, arg := range args {
		switch arg {
		case "-v", "--verbose":
			verbosity++
		case "-vv":
			verbosity += 2
		default:
			rest = append(rest, arg)
		}
	}
	commonlog.Configure(verbosity, nil)
	args = rest

	if len(args) == 0 {
		showUsage()
		return
	}

	switch args[0] {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "version":
		fmt.Printf("Pop programming language v%s\n", VERSION)
	case "run":
		if len(args) < 2 {
			fatal("run requires a file")
		}
		runFile(args[1], args[2:])
	case "build":
		if err := commands.BuildCommand(args[1:]); err != nil {
			fatal("%v", err)
		}
	case "dis":
		if len(args) < 2 {
			fatal("dis requires a .pbc file")
		}
		disassembleFile(args[1])
	case "check":
		if len(args) < 2 {
			fatal("check requires a file")
		}
		checkSyntax(args[1])
	case "ast":
		if len(args) < 2 {
			fatal("ast requires a file")
		}
		dumpAst(args[1])
	case "repl":
		repl.Start()
	case "init":
		if err := commands.InitCommand(args[1:]); err != nil {
			fatal("%v", err)
		}
	default:
		// a bare file argument runs it
		if strings.HasSuffix(args[0], ".pop") || strings.HasSuffix(args[0], ".pbc") {
			runFile(args[0], args[1:])
			return
		}
		showUsage()
	}
}

func runFile(filename string, args []string) {
	code, err := loadCode(filename)
	if err != nil {
		fatal("%v", err)
	}

	machine := vm.New(code, vm.WithArgs(args))
	exitCode, err := machine.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if exitCode != vm.ExitPaused {
		os.Exit(exitCode)
	}
}

// loadCode reads either a source file or a compiled .pbc image and
// returns raw byte-code.
func loadCode(filename string) ([]byte, error) {
	if strings.HasSuffix(filename, ".pbc") {
		f, err := os.Open(filename)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, err := bytecode.ReadImage(f)
		if err != nil {
			return nil, err
		}
		return img.Code, nil
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(string(source), filename)
}

func disassembleFile(filename string) {
	code, err := loadCode(filename)
	if err != nil {
		fatal("%v", err)
	}
	ops, err := bytecode.Disassemble(code)
	if err != nil {
		fatal("%v", err)
	}
	for i := range ops {
		ops[i].Dis(os.Stdout)
	}
}

func checkSyntax(filename string) {
	source, err := os.ReadFile(filename)
	if err != nil {
		fatal("%v", err)
	}
	if _, err := parser.Parse(string(source), filename); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: syntax is valid\n", filename)
}

func dumpAst(filename string) {
	source, err := os.ReadFile(filename)
	if err != nil {
		fatal("%v", err)
	}
	mod, err := parser.Parse(string(source), filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	pretty.Println(mod)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func showUsage() {
	fmt.Println("Pop - a small byte-code compiled language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pop run <file.pop|file.pbc>   Compile if needed and execute")
	fmt.Println("  pop build [options] [file]    Compile to a .pbc image")
	fmt.Println("      -o FILE                   Output file")
	fmt.Println("      -L FILE                   Write an instruction listing")
	fmt.Println("  pop dis <file.pbc>            Disassemble a byte-code image")
	fmt.Println("  pop check <file.pop>          Check syntax without running")
	fmt.Println("  pop ast <file.pop>            Dump the parsed syntax tree")
	fmt.Println("  pop repl                      Start the interactive REPL")
	fmt.Println("  pop init [name]               Initialize a new project")
	fmt.Println()
	fmt.Println("  -v, --verbose                 Increase log verbosity")
}
