// Package parser lowers annotated Go declarations into the validated
// semantic model. It enforces every structural and semantic rule of the
// interface contract, accumulating diagnostics so one pass reports all
// problems in a package rather than the first one.
package parser

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/varnish-go/vmodgen/diag"
	"github.com/varnish-go/vmodgen/model"
)

type parser struct {
	fset   *token.FileSet
	errs   diag.Errors
	shared model.SharedTypes

	funcs    []model.FuncInfo
	objects  []*objBuilder
	objIndex map[string]*objBuilder

	eventPos     []token.Position
	perVCLMut    int
	perVCLRef    int
	perVCLRefPos []token.Position
}

type objBuilder struct {
	name    string
	docs    string
	pos     token.Position
	ctor    *model.FuncInfo
	methods []model.FuncInfo
}

// Parse builds the semantic model for one package worth of declarations.
// On any rule violation it returns a *diag.CompileError carrying every
// diagnostic; no partial model is ever returned alongside an error.
func Parse(fset *token.FileSet, modName string, files []*ast.File) (*model.VmodInfo, error) {
	p := &parser{
		fset:     fset,
		objIndex: map[string]*objBuilder{},
	}

	// First pass: object types, so methods and constructors can be
	// attached no matter which file or order they appear in.
	for _, file := range files {
		p.collectObjects(file)
	}

	// Second pass: functions, constructors, methods, events.
	for _, file := range files {
		fs := newFileScope(file)
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok {
				continue
			}
			p.parseDecl(fs, fn)
		}
	}

	info := p.assemble(modName, files)
	p.validateModule(info)

	if err := p.errs.Resolve(); err != nil {
		return nil, err
	}
	return info, nil
}

func (p *parser) collectObjects(file *ast.File) {
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		d := parseDirectives(gd.Doc, p.pos(gd), &p.errs)
		if !d.object {
			continue
		}
		if d.function || d.event {
			p.Add(p.pos(gd), "//vmod:object cannot be combined with //vmod:function or //vmod:event")
		}
		if len(gd.Specs) != 1 {
			p.Add(p.pos(gd), "//vmod:object must mark a single type declaration")
			continue
		}
		spec := gd.Specs[0].(*ast.TypeSpec)
		if _, isStruct := spec.Type.(*ast.StructType); !isStruct {
			p.Addf(p.pos(spec), "object %s must be a struct type", spec.Name.Name)
			continue
		}
		if _, dup := p.objIndex[spec.Name.Name]; dup {
			p.Addf(p.pos(spec), "object %s declared more than once", spec.Name.Name)
			continue
		}
		ob := &objBuilder{
			name: spec.Name.Name,
			docs: strings.TrimSpace(docText(gd.Doc)),
			pos:  p.pos(spec),
		}
		p.objIndex[ob.name] = ob
		p.objects = append(p.objects, ob)
	}
}

func (p *parser) parseDecl(fs *fileScope, fn *ast.FuncDecl) {
	d := parseDirectives(fn.Doc, p.pos(fn), &p.errs)
	if d.object {
		p.Add(p.pos(fn), "//vmod:object can only mark a struct type declaration")
		return
	}

	if fn.Recv != nil {
		base := fn.Recv.List[0].Type
		if inner, ok := deref(base); ok {
			base = inner
		}
		id, ok := base.(*ast.Ident)
		if !ok {
			return
		}
		ob, isObj := p.objIndex[id.Name]
		if !isObj || !fn.Name.IsExported() {
			return
		}
		if d.function || d.event {
			p.Add(p.pos(fn), "methods of //vmod:object types are exported automatically; remove the directive")
		}
		if info, ok := p.parseFunc(fs, fn, model.KindMethod, ob.name, d); ok {
			info.Name = lowerFirst(info.Name)
			ob.methods = append(ob.methods, info)
		}
		return
	}

	// Constructors are recognized by convention: New<Object>.
	for _, ob := range p.objects {
		if fn.Name.Name != "New"+ob.name {
			continue
		}
		if d.function || d.event {
			p.Addf(p.pos(fn), "constructor %s must not carry //vmod:function or //vmod:event", fn.Name.Name)
		}
		if ob.ctor != nil {
			p.Addf(p.pos(fn), "object %s has more than one constructor", ob.name)
			return
		}
		if info, ok := p.parseFunc(fs, fn, model.KindConstructor, ob.name, d); ok {
			ob.ctor = &info
		}
		return
	}

	switch {
	case d.function && d.event:
		p.Add(p.pos(fn), "//vmod:function and //vmod:event cannot both be set")
	case d.event:
		p.eventPos = append(p.eventPos, p.pos(fn))
		if info, ok := p.parseFunc(fs, fn, model.KindEvent, "", d); ok {
			p.funcs = append(p.funcs, info)
		}
	case d.function:
		if !fn.Name.IsExported() {
			p.Addf(p.pos(fn), "exported vmod function %s must itself be exported", fn.Name.Name)
			return
		}
		if info, ok := p.parseFunc(fs, fn, model.KindFunction, "", d); ok {
			info.Name = lowerFirst(info.Name)
			p.funcs = append(p.funcs, info)
		}
	}
}

func (p *parser) assemble(modName string, files []*ast.File) *model.VmodInfo {
	info := &model.VmodInfo{
		Name:   modName,
		Funcs:  p.funcs,
		Shared: p.shared,
	}
	if len(files) > 0 {
		info.GoPackage = files[0].Name.Name
	}
	for _, file := range files {
		if file.Doc != nil {
			info.Docs = strings.TrimSpace(file.Doc.Text())
			break
		}
	}
	for _, ob := range p.objects {
		if ob.ctor == nil {
			p.Addf(ob.pos, "object %s must have a constructor named New%s", ob.name, ob.name)
			continue
		}
		info.Objects = append(info.Objects, model.ObjInfo{
			Name:        ob.name,
			Docs:        ob.docs,
			Constructor: *ob.ctor,
			Destructor:  synthesizeDestructor(),
			Methods:     ob.methods,
		})
	}
	return info
}

// synthesizeDestructor builds the one destructor every object gets; users
// never author it.
func synthesizeDestructor() model.FuncInfo {
	return model.FuncInfo{
		Kind:    model.KindDestructor,
		Name:    "_fini",
		Returns: model.ReturnType{Value: model.VoidReturn{}},
	}
}

func (p *parser) validateModule(info *model.VmodInfo) {
	for _, pos := range p.eventPos[min(len(p.eventPos), 1):] {
		p.Add(pos, "more than one event handler found; only one is allowed per module")
	}
	if p.perVCLRef > 0 && p.perVCLMut == 0 {
		p.Add(p.perVCLRefPos[0], "VCL-scoped slot value is never initialized; add a *vcl.PerVCL parameter to an event handler or a constructor")
	}
	if len(info.Funcs) == 0 && len(info.Objects) == 0 && p.errs.IsEmpty() {
		p.Addf(token.Position{}, "no exported functions or objects found in module %s", info.Name)
	}
}

func (p *parser) pos(node ast.Node) token.Position {
	return p.fset.Position(node.Pos())
}

func (p *parser) Add(pos token.Position, msg string) {
	p.errs.Add(pos, msg)
}

func (p *parser) Addf(pos token.Position, format string, args ...any) {
	p.errs.Addf(pos, format, args...)
}

// lowerFirst maps the exported Go spelling onto the descriptor's
// lower-case convention, e.g. HelloWorld -> helloWorld.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'A' && s[0] <= 'Z' {
		return string(s[0]+'a'-'A') + s[1:]
	}
	return s
}
