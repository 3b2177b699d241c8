// cmd/pop/commands/build.go
package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kleopatra999/pop/internal/bytecode"
	"github.com/kleopatra999/pop/internal/compiler"
)

// BuildCommand compiles a source file (or the project's entry point
// from pop.toml) into a .pbc image, optionally writing a listing.
func BuildCommand(args []string) error {
	var input, output, listing string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 >= len(args) {
				return fmt.Errorf("missing filename for %s option", args[i])
			}
			i++
			output = args[i]
		case "-L", "--listing":
			if i+1 >= len(args) {
				return fmt.Errorf("missing filename for %s option", args[i])
			}
			i++
			listing = args[i]
		default:
			input = args[i]
		}
	}

	if input == "" {
		m, err := LoadManifest(".")
		if err != nil {
			return fmt.Errorf("no input file and no project manifest: %w", err)
		}
		input = filepath.Join(m.Dir, m.Project.Entry)
		if output == "" {
			output = filepath.Join(m.Dir, m.Build.Output)
		}
		if listing == "" {
			listing = m.Build.Listing
		}
	}
	if output == "" {
		output = strings.TrimSuffix(input, ".pop") + ".pbc"
	}

	source, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	ops, err := compiler.CompileToInstructions(string(source), input)
	if err != nil {
		return err
	}
	code, err := bytecode.Assemble(ops)
	if err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := bytecode.WriteImage(out, input, code); err != nil {
		return err
	}

	if listing != "" {
		f, err := os.Create(listing)
		if err != nil {
			return err
		}
		defer f.Close()
		for i := range ops {
			ops[i].List(f)
		}
	}

	fmt.Printf("%s: compiled to %s (%d bytes)\n", input, output, len(code))
	return nil
}

// InitCommand initializes a new Pop project directory.
func InitCommand(args []string) error {
	projectName := "pop-project"
	if len(args) > 0 {
		projectName = args[0]
	}

	if err := os.MkdirAll(projectName, 0755); err != nil {
		return err
	}

	manifest := fmt.Sprintf(`[project]
name = "%s"
version = "0.1.0"
entry = "main.pop"

[build]
output = "%s.pbc"
`, projectName, projectName)

	if err := os.WriteFile(filepath.Join(projectName, "pop.toml"), []byte(manifest), 0644); err != nil {
		return err
	}

	mainSource := `// Main entry point

function main() {
	print("hello from pop");
}

main();
`
	if err := os.WriteFile(filepath.Join(projectName, "main.pop"), []byte(mainSource), 0644); err != nil {
		return err
	}

	gitignore := "*.pbc\n"
	if err := os.WriteFile(filepath.Join(projectName, ".gitignore"), []byte(gitignore), 0644); err != nil {
		return err
	}

	fmt.Printf("initialized project %s\n", projectName)
	fmt.Printf("  cd %s && pop run main.pop\n", projectName)
	return nil
}
