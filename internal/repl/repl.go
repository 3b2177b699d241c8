// internal/repl/repl.go
package repl

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/kleopatra999/pop/internal/compiler"
	"github.com/kleopatra999/pop/internal/vm"
)

// Start runs a line-at-a-time read-compile-execute loop against one
// persistent machine. Each entry compiles to a chunk appended to a
// growing byte-code image, and the machine keeps its scope chain
// across entries, so bindings and functions from earlier lines stay
// usable.
func Start() {
	fmt.Println("Pop REPL (:quit to exit)")
	scanner := bufio.NewScanner(os.Stdin)

	machine := vm.New(nil, vm.WithRootEnv())
	var image []byte

	for {
		fmt.Print(">> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ":quit" || line == ":q" {
			return
		}

		// a bare expression is wrapped so its value prints
		source := line
		if !strings.HasSuffix(source, ";") && !strings.HasSuffix(source, "}") {
			source = "print(" + source + ");"
		}

		entry := uint32(len(image))
		chunk, err := compiler.CompileInteractive(source, "<repl>", entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			continue
		}
		image = append(image, chunk...)

		machine.ResetWithCode(image, entry)
		if _, err := machine.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
	}
}
