// Package loader reads the annotated Go package a module is generated
// from. It stops at syntax: the parser works on declarations and doc
// comments, so full type information is never needed.
package loader

import (
	"fmt"
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/packages"
)

// Package is one loaded source package.
type Package struct {
	Name  string
	Fset  *token.FileSet
	Files []*ast.File

	// GoFiles are the source paths, for cache freshness checks.
	GoFiles []string
}

// Load loads the package matching pattern, resolved relative to dir.
func Load(dir, pattern string) (*Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		Dir:  dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", pattern, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", pattern)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("pattern %s matches %d packages; a module is generated from exactly one", pattern, len(pkgs))
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors)
	}
	if len(pkg.Syntax) == 0 {
		return nil, fmt.Errorf("package %s has no Go sources", pattern)
	}

	return &Package{
		Name:    pkg.Name,
		Fset:    pkg.Fset,
		Files:   pkg.Syntax,
		GoFiles: pkg.GoFiles,
	}, nil
}
