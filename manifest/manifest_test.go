package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	// Create a temporary directory with a vmod.toml
	dir := t.TempDir()
	tomlContent := `
[vmod]
name = "example"
package = "./vmod"

[output]
dir = "dist"
docs = true

[options]
abi-version = "Varnish 7.5.0"
cache = true
`
	if err := os.WriteFile(filepath.Join(dir, "vmod.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Vmod.Name != "example" {
		t.Errorf("vmod name = %q, want example", m.Vmod.Name)
	}
	if m.Vmod.Package != "./vmod" {
		t.Errorf("vmod package = %q, want ./vmod", m.Vmod.Package)
	}
	if m.Output.Dir != "dist" {
		t.Errorf("output dir = %q, want dist", m.Output.Dir)
	}
	if !m.Output.Docs {
		t.Error("output docs = false, want true")
	}
	if m.Options.ABIVersion != "Varnish 7.5.0" {
		t.Errorf("abi-version = %q, want Varnish 7.5.0", m.Options.ABIVersion)
	}
	if !m.Options.Cache {
		t.Error("options cache = false, want true")
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[vmod]
name = "minimal"
`
	if err := os.WriteFile(filepath.Join(dir, "vmod.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Vmod.Package != "." {
		t.Errorf("default package = %q, want .", m.Vmod.Package)
	}
	if m.Output.Dir != "." {
		t.Errorf("default output dir = %q, want .", m.Output.Dir)
	}
	if !m.Options.Cache {
		t.Error("cache should default to on")
	}
}

func TestLoadManifestCacheOff(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[vmod]
name = "nocache"

[options]
cache = false
`
	if err := os.WriteFile(filepath.Join(dir, "vmod.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Options.Cache {
		t.Error("cache = true, want false when the manifest turns it off")
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	tomlContent := `[vmod]
name = "found"
`
	if err := os.WriteFile(filepath.Join(dir, "vmod.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Vmod.Name != "found" {
		t.Errorf("vmod name = %q, want found", m.Vmod.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no vmod.toml exists")
	}
}

func TestOutputDir(t *testing.T) {
	m := &Manifest{Dir: "/app", Output: Output{Dir: "dist"}}
	if got := m.OutputDir(); got != "/app/dist" {
		t.Errorf("OutputDir = %q, want /app/dist", got)
	}
	m.Output.Dir = "/abs/out"
	if got := m.OutputDir(); got != "/abs/out" {
		t.Errorf("OutputDir = %q, want /abs/out", got)
	}
}

func TestCachePath(t *testing.T) {
	m := &Manifest{Dir: "/app"}
	want := filepath.Join("/app", ".vmodgen", "cache.db")
	if got := m.CachePath(); got != want {
		t.Errorf("CachePath = %q, want %q", got, want)
	}
}
