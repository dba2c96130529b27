package parser

import (
	"go/ast"
	"go/types"
	"strconv"

	"github.com/varnish-go/vmodgen/model"
)

// VCLImportPath is the capability library the generated wrappers call into.
// Parameter and return roles are recognized against this import.
const VCLImportPath = "github.com/varnish-go/vcl"

// fileScope resolves package qualifiers for one source file: the local
// names under which the capability library, time, and net/netip are
// imported there.
type fileScope struct {
	vclName   string
	timeName  string
	netipName string
}

func newFileScope(file *ast.File) *fileScope {
	fs := &fileScope{}
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		local := ""
		if imp.Name != nil {
			local = imp.Name.Name
		} else {
			local = lastSegment(path)
		}
		switch path {
		case VCLImportPath:
			fs.vclName = local
		case "time":
			fs.timeName = local
		case "net/netip":
			fs.netipName = local
		}
	}
	return fs
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// sel matches a qualified identifier `pkg.Name` and returns both parts.
func sel(e ast.Expr) (pkg, name string, ok bool) {
	s, ok := e.(*ast.SelectorExpr)
	if !ok {
		return "", "", false
	}
	x, ok := s.X.(*ast.Ident)
	if !ok {
		return "", "", false
	}
	return x.Name, s.Sel.Name, true
}

// deref matches a pointer type and returns its element.
func deref(e ast.Expr) (ast.Expr, bool) {
	s, ok := e.(*ast.StarExpr)
	if !ok {
		return nil, false
	}
	return s.X, true
}

// genericArg matches `base[T]` and returns base and the canonical spelling
// of T.
func genericArg(e ast.Expr) (base ast.Expr, arg string, ok bool) {
	ix, ok := e.(*ast.IndexExpr)
	if !ok {
		return nil, "", false
	}
	return ix.X, types.ExprString(ix.Index), true
}

// isVCL reports whether e is the named type from the capability library.
func (fs *fileScope) isVCL(e ast.Expr, name string) bool {
	if fs.vclName == "" {
		return false
	}
	pkg, n, ok := sel(e)
	return ok && pkg == fs.vclName && n == name
}

// tryValueTy recognizes the BasicType spellings: bool, int64, float64,
// string, time.Duration, netip.AddrPort, vcl.Probe, vcl.ProbeRef, and
// vcl.CString. Pointer wrapping is the caller's concern.
func (fs *fileScope) tryValueTy(e ast.Expr) (model.ParamTy, bool) {
	if id, ok := e.(*ast.Ident); ok {
		switch id.Name {
		case "bool":
			return model.TyBool, true
		case "int64":
			return model.TyInt64, true
		case "float64":
			return model.TyFloat64, true
		case "string":
			return model.TyString, true
		}
		return 0, false
	}
	pkg, name, ok := sel(e)
	if !ok {
		return 0, false
	}
	switch {
	case pkg == fs.timeName && fs.timeName != "" && name == "Duration":
		return model.TyDuration, true
	case pkg == fs.netipName && fs.netipName != "" && name == "AddrPort":
		return model.TySocketAddr, true
	case pkg == fs.vclName && fs.vclName != "":
		switch name {
		case "Probe":
			return model.TyProbe, true
		case "ProbeRef":
			return model.TyProbeRef, true
		case "CString":
			return model.TyCString, true
		}
	}
	return 0, false
}

// isErrorIdent matches the predeclared error type.
func isErrorIdent(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "error"
}

// isByteSlice matches []byte.
func isByteSlice(e ast.Expr) bool {
	arr, ok := e.(*ast.ArrayType)
	if !ok || arr.Len != nil {
		return false
	}
	id, ok := arr.Elt.(*ast.Ident)
	return ok && id.Name == "byte"
}
