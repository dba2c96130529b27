package parser

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"github.com/varnish-go/vmodgen/model"
)

// parseFunc lowers one function, method, constructor, or event handler
// declaration into a FuncInfo. The bool result is false when the
// declaration was too broken to keep; diagnostics are recorded either way.
func (p *parser) parseFunc(fs *fileScope, decl *ast.FuncDecl, kind model.FuncKind, objName string, d directives) (model.FuncInfo, bool) {
	pos := p.pos(decl)
	st := &funcState{kind: kind, objName: objName}
	before := p.errs.Len()

	var args []model.ParamTypeInfo
	idx := 0

	if kind == model.KindMethod {
		args = append(args, p.parseReceiver(decl, objName))
		idx = 1
	} else if decl.Recv != nil {
		p.Add(pos, "only methods of //vmod:object types may have a receiver")
	}

	for _, field := range decl.Type.Params.List {
		if _, variadic := field.Type.(*ast.Ellipsis); variadic {
			p.Add(p.pos(field), "variadic parameters are not supported")
			continue
		}
		if len(field.Names) == 0 {
			p.Add(p.pos(field), "parameters must be named")
			continue
		}
		for _, name := range field.Names {
			ty, ok := p.paramType(fs, st, &d, name.Name, field.Type, p.pos(field))
			if !ok {
				idx++
				continue
			}
			args = append(args, model.ParamTypeInfo{Name: name.Name, Idx: idx, Type: ty})
			idx++
		}
	}

	for name := range d.defaults {
		p.Addf(pos, "//vmod:default names unknown parameter %q", name)
	}
	for name := range d.required {
		p.Addf(pos, "//vmod:required names unknown parameter %q", name)
	}

	returns := p.parseReturns(fs, st, decl.Type, pos)

	hasOptional := false
	for _, a := range args {
		if v, ok := a.Type.(model.ValueParam); ok && v.Kind == model.KindOptional {
			hasOptional = true
			break
		}
	}

	info := model.FuncInfo{
		Kind:            kind,
		Name:            decl.Name.Name,
		GoName:          decl.Name.Name,
		Docs:            strings.TrimSpace(docText(decl.Doc)),
		HasOptionalArgs: hasOptional,
		Args:            args,
		Returns:         returns,
	}
	return info, p.errs.Len() == before
}

// parseReceiver validates a method receiver: it must be a pointer to the
// object type, and it is always the first parameter.
func (p *parser) parseReceiver(decl *ast.FuncDecl, objName string) model.ParamTypeInfo {
	recv := decl.Recv.List[0]
	name := ""
	if len(recv.Names) > 0 {
		name = recv.Names[0].Name
	}
	if inner, ok := deref(recv.Type); ok {
		if id, ok := inner.(*ast.Ident); !ok || id.Name != objName {
			p.Addf(p.pos(recv), "method receiver must be *%s", objName)
		}
	} else {
		p.Addf(p.pos(recv), "method receiver must be a pointer (*%s); the host shares one instance across tasks", objName)
	}
	return model.ParamTypeInfo{Name: name, Idx: 0, Type: model.SelfParam{}}
}

// parseReturns lowers a result list. At most one value plus a trailing
// error is supported.
func (p *parser) parseReturns(fs *fileScope, st *funcState, ft *ast.FuncType, pos token.Position) model.ReturnType {
	void := model.ReturnType{Value: model.VoidReturn{}}
	if ft.Results == nil || len(ft.Results.List) == 0 {
		p.checkConstructorReturn(st, void.Value, pos)
		return void
	}

	var exprs []ast.Expr
	for _, f := range ft.Results.List {
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			exprs = append(exprs, f.Type)
		}
	}

	var ret model.ReturnType
	switch len(exprs) {
	case 1:
		if isErrorIdent(exprs[0]) {
			ret = model.ReturnType{Value: model.VoidReturn{}, Fallible: true}
		} else {
			ret = model.ReturnType{Value: p.parseRetTy(fs, st, exprs[0], pos)}
		}
	case 2:
		if !isErrorIdent(exprs[1]) {
			p.Add(pos, "the second result must be error")
			return void
		}
		ret = model.ReturnType{Value: p.parseRetTy(fs, st, exprs[0], pos), Fallible: true}
	default:
		p.Add(pos, "at most one value plus a trailing error may be returned")
		return void
	}

	if st.kind == model.KindEvent {
		if _, isVoid := ret.Value.(model.VoidReturn); !isVoid {
			p.Add(pos, "event functions must not return a value; only an error is allowed")
			return model.ReturnType{Value: model.VoidReturn{}, Fallible: ret.Fallible}
		}
	}
	p.checkConstructorReturn(st, ret.Value, pos)
	return ret
}

func (p *parser) checkConstructorReturn(st *funcState, ty model.ReturnTy, pos token.Position) {
	if st.kind != model.KindConstructor {
		return
	}
	if _, ok := ty.(model.SelfReturn); !ok {
		p.Addf(pos, "constructor must return *%s or (*%s, error)", st.objName, st.objName)
	}
}

func (p *parser) parseRetTy(fs *fileScope, st *funcState, e ast.Expr, pos token.Position) model.ReturnTy {
	if id, ok := e.(*ast.Ident); ok && id.Name == "string" {
		return model.StringReturn{}
	}
	if isByteSlice(e) {
		return model.BytesReturn{}
	}
	if inner, ok := deref(e); ok {
		if id, ok := inner.(*ast.Ident); ok {
			if st.kind == model.KindConstructor && id.Name == st.objName {
				return model.SelfReturn{}
			}
			p.Addf(pos, "only a constructor may return the object type *%s", id.Name)
			return model.VoidReturn{}
		}
	}
	if fs.isVCL(e, "Backend") {
		return model.BackendReturn{}
	}
	if _, name, ok := sel(e); ok && fs.isVCL(e, name) {
		switch name {
		case "VCLBackend":
			return model.RawReturn{Name: "VCL_BACKEND"}
		case "VCLString":
			return model.RawReturn{Name: "VCL_STRING"}
		}
	}
	if ty, ok := fs.tryValueTy(e); ok {
		return model.ValueReturn{Ty: ty}
	}
	p.Addf(pos, "unsupported return type %s", types.ExprString(e))
	return model.VoidReturn{}
}

func docText(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	return doc.Text()
}
