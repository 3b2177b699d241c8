// internal/compiler/compiler.go
package compiler

import (
	"github.com/tliron/commonlog"

	"github.com/kleopatra999/pop/internal/bytecode"
	"github.com/kleopatra999/pop/internal/parser"
)

var log = commonlog.GetLogger("pop.compiler")

// Compile runs the whole front half of the pipeline: scan, parse,
// lower, assemble. It returns the binary byte-code image.
func Compile(source, filename string) ([]byte, error) {
	ops, err := CompileToInstructions(source, filename)
	if err != nil {
		return nil, err
	}
	image, err := bytecode.Assemble(ops)
	if err != nil {
		return nil, err
	}
	log.Debugf("assembled %s: %d instructions, %d bytes", filename, len(ops), len(image))
	return image, nil
}

// CompileToInstructions stops before assembly, returning the lowered
// instruction list with its symbolic labels intact. Listings use this.
func CompileToInstructions(source, filename string) ([]bytecode.Instruction, error) {
	mod, err := parser.Parse(source, filename)
	if err != nil {
		return nil, err
	}
	return Lower(mod)
}

// CompileInteractive compiles one REPL entry as a chunk whose first
// byte will sit at base in the session's growing image. The chunk has
// no scope frame of its own (see LowerInteractive), so functions and
// bindings from earlier chunks stay live and addressable.
func CompileInteractive(source, filename string, base uint32) ([]byte, error) {
	mod, err := parser.Parse(source, filename)
	if err != nil {
		return nil, err
	}
	ops, err := LowerInteractive(mod)
	if err != nil {
		return nil, err
	}
	chunk, err := bytecode.AssembleWithBase(ops, base)
	if err != nil {
		return nil, err
	}
	log.Debugf("assembled interactive chunk at 0x%08X: %d instructions, %d bytes",
		base, len(ops), len(chunk))
	return chunk, nil
}
