// Package manifest handles vmod.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a vmod.toml project configuration.
type Manifest struct {
	Vmod    Vmod    `toml:"vmod"`
	Output  Output  `toml:"output"`
	Options Options `toml:"options"`

	// Dir is the directory containing the vmod.toml file (set at load time).
	Dir string `toml:"-"`
}

// Vmod contains module metadata.
type Vmod struct {
	// Name is the module name VCL programs import. Defaults to the Go
	// package name of the sources.
	Name string `toml:"name"`
	// Package is the Go package pattern to load. Defaults to ".".
	Package string `toml:"package"`
}

// Output configures where artifacts are written.
type Output struct {
	Dir  string `toml:"dir"`
	Docs bool   `toml:"docs"`
}

// Options configures generation behavior.
type Options struct {
	// ABIVersion pins the host ABI string recorded in the descriptor.
	ABIVersion string `toml:"abi-version"`
	// Cache enables the artifact cache under .vmodgen/. On unless the
	// manifest turns it off.
	Cache bool `toml:"cache"`
	// SkipValidation disables descriptor schema validation.
	SkipValidation bool `toml:"skip-validation"`
}

// Load parses a vmod.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "vmod.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Vmod.Package == "" {
		m.Vmod.Package = "."
	}
	if m.Output.Dir == "" {
		m.Output.Dir = "."
	}
	if !md.IsDefined("options", "cache") {
		m.Options.Cache = true
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a vmod.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "vmod.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// OutputDir returns the absolute artifact directory.
func (m *Manifest) OutputDir() string {
	if filepath.IsAbs(m.Output.Dir) {
		return m.Output.Dir
	}
	return filepath.Join(m.Dir, m.Output.Dir)
}

// CachePath returns the path of the artifact cache database.
func (m *Manifest) CachePath() string {
	return filepath.Join(m.Dir, ".vmodgen", "cache.db")
}
