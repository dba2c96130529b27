// Vmodgen CLI - generates VMOD binding artifacts from annotated Go packages.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/varnish-go/vmodgen/buildcache"
	"github.com/varnish-go/vmodgen/diag"
	"github.com/varnish-go/vmodgen/gen"
	"github.com/varnish-go/vmodgen/loader"
	"github.com/varnish-go/vmodgen/manifest"
	"github.com/varnish-go/vmodgen/model"
	"github.com/varnish-go/vmodgen/model/hash"
	"github.com/varnish-go/vmodgen/parser"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	dir := flag.String("C", ".", "Project directory (where vmod.toml is searched from)")
	name := flag.String("name", "", "Module name (overrides vmod.toml and the package name)")
	out := flag.String("o", "", "Output directory (overrides vmod.toml)")
	abi := flag.String("abi", "", "Host ABI version string recorded in the descriptor")
	docs := flag.Bool("docs", false, "Also write the Markdown reference")
	noCache := flag.Bool("no-cache", false, "Bypass the artifact cache")
	noValidate := flag.Bool("no-validate", false, "Skip descriptor schema validation")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vmodgen [options]\n\n")
		fmt.Fprintf(os.Stderr, "Generates the interface descriptor, native prototypes, and cgo wrappers\n")
		fmt.Fprintf(os.Stderr, "for the annotated Go package configured in vmod.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  vmodgen                  # Generate into the configured output dir\n")
		fmt.Fprintf(os.Stderr, "  vmodgen -C ./vmod -o gen # Load ./vmod, write artifacts to gen/\n")
		fmt.Fprintf(os.Stderr, "  vmodgen -docs            # Also write vmod_<name>.md\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)
	log := commonlog.GetLogger("vmodgen")

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		abs, _ := filepath.Abs(*dir)
		m = &manifest.Manifest{Dir: abs}
		m.Vmod.Package = "."
		m.Output.Dir = "."
		m.Options.Cache = true
		log.Info("no vmod.toml found, using defaults")
	}
	if *out != "" {
		m.Output.Dir = *out
	}
	if *abi != "" {
		m.Options.ABIVersion = *abi
	}
	if *docs {
		m.Output.Docs = true
	}
	if *noValidate {
		m.Options.SkipValidation = true
	}

	pkg, err := loader.Load(m.Dir, m.Vmod.Package)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	modName := m.Vmod.Name
	if *name != "" {
		modName = *name
	}
	if modName == "" {
		modName = pkg.Name
	}
	log.Infof("generating module %s from package %s", modName, pkg.Name)

	info, err := parser.Parse(pkg.Fset, modName, pkg.Files)
	if err != nil {
		var ce *diag.CompileError
		if errors.As(err, &ce) {
			for _, d := range ce.Diags {
				fmt.Fprintf(os.Stderr, "%s\n", d)
			}
			fmt.Fprintf(os.Stderr, "vmodgen: %d error(s)\n", len(ce.Diags))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	out2, err := generate(log, m, info, *noCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := writeArtifacts(m, out2); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Infof("wrote artifacts to %s (file id %s)", m.OutputDir(), out2.FileID)
}

// generate runs the generator, routing through the artifact cache when the
// manifest enables it.
func generate(log commonlog.Logger, m *manifest.Manifest, info *model.VmodInfo, noCache bool) (*gen.Output, error) {
	opts := gen.Options{
		ABIVersion:     m.Options.ABIVersion,
		SkipValidation: m.Options.SkipValidation,
	}

	if !m.Options.Cache || noCache {
		return gen.Generate(info, opts)
	}

	cache, err := buildcache.Open(m.CachePath())
	if err != nil {
		log.Warningf("artifact cache unavailable: %v", err)
		return gen.Generate(info, opts)
	}
	defer cache.Close()

	fileID := hash.ModuleID(info)
	if e, err := cache.Get(fileID); err == nil {
		log.Infof("cache hit for %s", fileID)
		return &gen.Output{
			FileID:     e.FileID,
			JSON:       e.JSON,
			Header:     e.Header,
			CUnit:      e.CUnit,
			GoUnit:     e.GoUnit,
			Docs:       e.Docs,
			JSONName:   info.Name + ".vmod.json",
			HeaderName: info.Name + "_vmod.h",
			CUnitName:  info.Name + "_vmod.c",
			GoUnitName: info.Name + "_vmod.go",
			DocsName:   "vmod_" + info.Name + ".md",
		}, nil
	} else if !errors.Is(err, buildcache.ErrMiss) {
		log.Warningf("artifact cache read failed: %v", err)
	}

	out, err := gen.Generate(info, opts)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(&buildcache.Entry{
		FileID: out.FileID,
		JSON:   out.JSON,
		Header: out.Header,
		CUnit:  out.CUnit,
		GoUnit: out.GoUnit,
		Docs:   out.Docs,
	}); err != nil {
		log.Warningf("artifact cache write failed: %v", err)
	}
	return out, nil
}

// writeArtifacts stages every file and renames them into place only after
// all of them were written, so a failed run never leaves a mix of old and
// new artifacts.
func writeArtifacts(m *manifest.Manifest, out *gen.Output) error {
	outDir := m.OutputDir()
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	files := map[string][]byte{
		out.JSONName:   out.JSON,
		out.HeaderName: out.Header,
		out.CUnitName:  out.CUnit,
		out.GoUnitName: out.GoUnit,
	}
	if m.Output.Docs {
		files[out.DocsName] = out.Docs
	}

	var staged []string
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}
	for name, data := range files {
		tmp := filepath.Join(outDir, "."+name+".tmp")
		if err := os.WriteFile(tmp, data, 0644); err != nil {
			cleanup()
			return fmt.Errorf("writing %s: %w", name, err)
		}
		staged = append(staged, tmp)
	}
	for name := range files {
		tmp := filepath.Join(outDir, "."+name+".tmp")
		if err := os.Rename(tmp, filepath.Join(outDir, name)); err != nil {
			cleanup()
			return fmt.Errorf("renaming %s: %w", name, err)
		}
	}
	return nil
}
