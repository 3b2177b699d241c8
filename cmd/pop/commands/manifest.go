// cmd/pop/commands/manifest.go
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a pop.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Build   BuildConfig `toml:"build"`

	// Dir is the directory containing the pop.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"`
}

// BuildConfig configures byte-code output.
type BuildConfig struct {
	Output  string `toml:"output"`
	Listing string `toml:"listing"`
}

// LoadManifest parses a pop.toml file from the given directory.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "pop.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir = dir

	if m.Project.Entry == "" {
		m.Project.Entry = "main.pop"
	}
	if m.Build.Output == "" {
		name := m.Project.Name
		if name == "" {
			name = "out"
		}
		m.Build.Output = name + ".pbc"
	}
	return &m, nil
}
