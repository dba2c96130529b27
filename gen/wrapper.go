package gen

import (
	"bytes"
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/varnish-go/vmodgen/model"
	"github.com/varnish-go/vmodgen/names"
)

// vclImport is the capability library the generated wrappers call into.
const vclImport = "github.com/varnish-go/vcl"

// goUnit renders the cgo wrapper file: one exported native function per
// model function, each converting ABI values, calling the user's Go code,
// and converting the result back. The file lives in the user's package so
// the wrappers can call the user functions directly.
func goUnit(info *model.VmodInfo, headerFile string) ([]byte, error) {
	f := jen.NewFile(info.GoPackage)
	f.HeaderComment("Code generated by vmodgen. DO NOT EDIT.")
	f.CgoPreamble(fmt.Sprintf("#include <stdlib.h>\n#include %q", headerFile))

	mod := names.New(info.Name)
	for _, fn := range info.AllFuncs() {
		w := &wrapperGen{
			info: info,
			fn:   fn,
			n:    funcNames(mod, info, fn),
			obj:  owningObject(info, fn),
		}
		w.emit(f)
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering wrapper unit: %w", err)
	}
	return buf.Bytes(), nil
}

type wrapperGen struct {
	info *model.VmodInfo
	fn   *model.FuncInfo
	n    names.Names
	obj  string
}

func (w *wrapperGen) emit(f *jen.File) {
	name := w.n.WrapperFnName()
	f.Comment("//export " + name)
	f.Func().Id(name).Params(w.params()...).Add(w.results()).Block(w.body()...)
	f.Line()
}

// objStructID is the cgo spelling of the instance struct type.
func (w *wrapperGen) objStructID() *jen.Statement {
	return jen.Id("C").Dot(fmt.Sprintf("struct_vmod_%s_%s", w.info.Name, w.obj))
}

func (w *wrapperGen) params() []jen.Code {
	switch w.fn.Kind {
	case model.KindDestructor:
		return []jen.Code{jen.Id("objpp").Op("**").Add(w.objStructID())}
	case model.KindEvent:
		return []jen.Code{
			jen.Id("vrtCtx").Op("*").Id("C").Dot("struct_vrt_ctx"),
			jen.Id("priv").Op("*").Id("C").Dot("struct_vmod_priv"),
			jen.Id("ev").Id("C").Dot("enum_vcl_event_e"),
		}
	}

	params := []jen.Code{jen.Id("vrtCtx").Op("*").Id("C").Dot("struct_vrt_ctx")}
	switch w.fn.Kind {
	case model.KindConstructor:
		params = append(params,
			jen.Id("objpp").Op("**").Add(w.objStructID()),
			jen.Id("vclName").Op("*").Id("C").Dot("char"))
	case model.KindMethod:
		params = append(params, jen.Id("objp").Op("*").Add(w.objStructID()))
	}

	if w.fn.HasOptionalArgs {
		return append(params, jen.Id("args").Op("*").Id("C").Dot("struct_"+w.n.ArgStructName()))
	}
	for _, a := range w.fn.Args {
		switch t := a.Type.(type) {
		case model.ValueParam:
			params = append(params, jen.Id(a.Name).Id("C").Dot(t.Ty.CType()))
		case model.PerTaskParam, model.PerVCLRefParam, model.PerVCLMutParam:
			params = append(params, jen.Id(a.Name).Op("*").Id("C").Dot("struct_vmod_priv"))
		}
	}
	return params
}

func (w *wrapperGen) results() jen.Code {
	if w.fn.Kind == model.KindEvent {
		return jen.Id("C").Dot("int")
	}
	switch w.fn.Returns.Value.(type) {
	case model.VoidReturn, model.SelfReturn:
		return jen.Null()
	}
	return jen.Id("C").Dot(w.fn.Returns.Value.CType())
}

// zeroReturn is what the wrapper hands back after a failure.
func (w *wrapperGen) zeroReturn() *jen.Statement {
	if w.fn.Kind == model.KindEvent {
		return jen.Return(jen.Lit(1))
	}
	switch r := w.fn.Returns.Value.(type) {
	case model.VoidReturn, model.SelfReturn:
		return jen.Return()
	case model.ValueReturn:
		switch r.Ty {
		case model.TyBool, model.TyInt64, model.TyFloat64, model.TyDuration:
			return jen.Return(jen.Lit(0))
		}
	}
	return jen.Return(jen.Nil())
}

func (w *wrapperGen) fail(err jen.Code) []jen.Code {
	out := []jen.Code{jen.Id("ctx").Dot("Fail").Call(err)}
	if w.fn.Kind == model.KindConstructor {
		out = append(out, jen.Op("*").Id("objpp").Op("=").Nil())
	}
	return append(out, w.zeroReturn())
}

func (w *wrapperGen) needsCtx() bool {
	if w.fn.Kind == model.KindDestructor {
		return false
	}
	if w.fn.Returns.Fallible || w.fn.Kind == model.KindConstructor {
		return true
	}
	switch r := w.fn.Returns.Value.(type) {
	case model.StringReturn, model.BytesReturn:
		return true
	case model.ValueReturn:
		if r.Ty == model.TyProbe || r.Ty == model.TySocketAddr {
			return true
		}
	}
	for _, a := range w.fn.Args {
		switch a.Type.(type) {
		case model.ContextParam, model.WorkspaceParam, model.PerTaskParam,
			model.FetchFiltersParam, model.DeliveryFiltersParam:
			return true
		}
	}
	return false
}

func (w *wrapperGen) body() []jen.Code {
	if w.fn.Kind == model.KindDestructor {
		return w.destructorBody()
	}

	var stmts []jen.Code
	if w.needsCtx() {
		stmts = append(stmts, jen.Id("ctx").Op(":=").Qual(vclImport, "CtxFromC").Call(unsafePtr(jen.Id("vrtCtx"))))
	}

	var callArgs []jen.Code
	for i, a := range w.fn.Args {
		if _, isSelf := a.Type.(model.SelfParam); isSelf {
			stmts = append(stmts, w.selfPrelude())
			continue
		}
		prelude, expr := w.argValue(i, a)
		stmts = append(stmts, prelude...)
		callArgs = append(callArgs, expr)
	}

	return append(stmts, w.callAndReturn(callArgs)...)
}

func (w *wrapperGen) destructorBody() []jen.Code {
	handle := jen.Qual("runtime/cgo", "Handle").Call(jen.Uintptr().Call(unsafePtr(jen.Op("*").Id("objpp"))))
	return []jen.Code{
		jen.If(jen.Id("objpp").Op("==").Nil().Op("||").Op("*").Id("objpp").Op("==").Nil()).Block(
			jen.Return(),
		),
		jen.Id("h").Op(":=").Add(handle),
		jen.If(
			jen.List(jen.Id("c"), jen.Id("ok")).Op(":=").Id("h").Dot("Value").Call().Assert(jen.Interface(jen.Id("Close").Params())),
			jen.Id("ok"),
		).Block(
			jen.Id("c").Dot("Close").Call(),
		),
		jen.Id("h").Dot("Delete").Call(),
		jen.Op("*").Id("objpp").Op("=").Nil(),
	}
}

func (w *wrapperGen) selfPrelude() jen.Code {
	return jen.Id("self").Op(":=").
		Qual("runtime/cgo", "Handle").Call(jen.Uintptr().Call(unsafePtr(jen.Id("objp")))).
		Dot("Value").Call().Assert(jen.Op("*").Id(w.obj))
}

// argValue produces the Go expression passed to the user function for one
// parameter, plus any prelude statements it needs.
func (w *wrapperGen) argValue(i int, a model.ParamTypeInfo) ([]jen.Code, jen.Code) {
	switch t := a.Type.(type) {
	case model.ContextParam:
		return nil, jen.Id("ctx")
	case model.WorkspaceParam:
		return nil, jen.Id("ctx").Dot("Workspace").Call()
	case model.EventParam:
		return nil, jen.Qual(vclImport, "Event").Call(jen.Id("ev"))
	case model.NameParam:
		return nil, jen.Qual(vclImport, "Name").Call(jen.Id("C").Dot("GoString").Call(jen.Id("vclName")))
	case model.FetchFiltersParam:
		return nil, jen.Id("ctx").Dot("FetchFilters").Call()
	case model.DeliveryFiltersParam:
		return nil, jen.Id("ctx").Dot("DeliveryFilters").Call()
	case model.PerTaskParam:
		slot, release := a.Name+"Slot", a.Name+"Release"
		prelude := []jen.Code{
			jen.List(jen.Id(slot), jen.Id(release)).Op(":=").
				Qual(vclImport, "TaskSlot").Index(jen.Id(w.info.Shared.PerTask)).
				Call(jen.Id("ctx"), unsafePtr(w.cArg(a.Name))),
			jen.Defer().Id(release).Call(),
		}
		return prelude, jen.Id(slot)
	case model.PerVCLRefParam:
		return nil, jen.Qual(vclImport, "VCLSlotRef").Index(jen.Id(w.info.Shared.PerVCL)).
			Call(unsafePtr(w.cArg(a.Name)))
	case model.PerVCLMutParam:
		priv := w.cArg(a.Name)
		if w.fn.Kind == model.KindEvent {
			priv = jen.Id("priv")
		}
		slot, release := a.Name+"Slot", a.Name+"Release"
		prelude := []jen.Code{
			jen.List(jen.Id(slot), jen.Id(release)).Op(":=").
				Qual(vclImport, "VCLSlot").Index(jen.Id(w.info.Shared.PerVCL)).Call(unsafePtr(priv)),
			jen.Defer().Id(release).Call(),
		}
		return prelude, jen.Id(slot)
	case model.ValueParam:
		return w.valueArg(i, a.Name, t)
	}
	panic(fmt.Sprintf("unhandled parameter role %T", a.Type))
}

// cArg is how the wrapper reaches one passed argument: a direct parameter
// normally, a field of the arguments struct when optional parameters are
// in play.
func (w *wrapperGen) cArg(name string) *jen.Statement {
	if w.fn.HasOptionalArgs {
		return jen.Id("args").Dot(name)
	}
	return jen.Id(name)
}

func (w *wrapperGen) valueArg(i int, name string, v model.ValueParam) ([]jen.Code, jen.Code) {
	if v.Kind == model.KindOptional {
		return w.optionalArg(i, name, v)
	}
	return nil, convertIn(v.Ty, w.cArg(name))
}

// optionalArg reads the validity byte and produces a pointer that is nil
// when the caller passed nothing.
func (w *wrapperGen) optionalArg(i int, name string, v model.ValueParam) ([]jen.Code, jen.Code) {
	local := fmt.Sprintf("p%d", i)
	valid := jen.Id("args").Dot("valid_" + name).Op("!=").Lit(0)

	if v.Ty.MustBeOptional() {
		// The converted form is already a nullable pointer.
		prelude := []jen.Code{
			jen.Var().Id(local).Add(goPtrType(v.Ty)),
			jen.If(valid).Block(
				jen.Id(local).Op("=").Add(convertIn(v.Ty, w.cArg(name))),
			),
		}
		return prelude, jen.Id(local)
	}

	tmp := fmt.Sprintf("v%d", i)
	prelude := []jen.Code{
		jen.Var().Id(local).Add(goPtrType(v.Ty)),
		jen.If(valid).Block(
			jen.Id(tmp).Op(":=").Add(convertIn(v.Ty, w.cArg(name))),
			jen.Id(local).Op("=").Op("&").Id(tmp),
		),
	}
	return prelude, jen.Id(local)
}

func (w *wrapperGen) callAndReturn(callArgs []jen.Code) []jen.Code {
	var callee *jen.Statement
	if w.fn.Kind == model.KindMethod {
		callee = jen.Id("self").Dot(w.fn.GoName)
	} else {
		callee = jen.Id(w.fn.GoName)
	}
	call := callee.Call(callArgs...)

	if w.fn.Kind == model.KindConstructor {
		return w.constructorReturn(call)
	}

	if _, void := w.fn.Returns.Value.(model.VoidReturn); void {
		if !w.fn.Returns.Fallible {
			if w.fn.Kind == model.KindEvent {
				return []jen.Code{call, jen.Return(jen.Lit(0))}
			}
			return []jen.Code{call}
		}
		stmts := []jen.Code{
			jen.If(jen.Err().Op(":=").Add(call), jen.Err().Op("!=").Nil()).Block(w.fail(jen.Err())...),
		}
		if w.fn.Kind == model.KindEvent {
			stmts = append(stmts, jen.Return(jen.Lit(0)))
		}
		return stmts
	}

	var stmts []jen.Code
	if w.fn.Returns.Fallible {
		stmts = append(stmts,
			jen.List(jen.Id("r0"), jen.Err()).Op(":=").Add(call),
			jen.If(jen.Err().Op("!=").Nil()).Block(w.fail(jen.Err())...),
		)
	} else {
		stmts = append(stmts, jen.Id("r0").Op(":=").Add(call))
	}
	return append(stmts, w.convertOut(jen.Id("r0"))...)
}

func (w *wrapperGen) constructorReturn(call *jen.Statement) []jen.Code {
	var stmts []jen.Code
	if w.fn.Returns.Fallible {
		stmts = append(stmts,
			jen.List(jen.Id("obj"), jen.Err()).Op(":=").Add(call),
			jen.If(jen.Err().Op("!=").Nil()).Block(w.fail(jen.Err())...),
		)
	} else {
		stmts = append(stmts, jen.Id("obj").Op(":=").Add(call))
	}
	handle := jen.Qual("runtime/cgo", "NewHandle").Call(jen.Id("obj"))
	return append(stmts,
		jen.Op("*").Id("objpp").Op("=").Parens(jen.Op("*").Add(w.objStructID())).Call(jen.Qual("unsafe", "Pointer").Call(handle)),
	)
}

// convertOut turns the user function's Go result into the native return
// value. Workspace-backed conversions can fail; the wrapper reports the
// failure and hands back the zero value.
func (w *wrapperGen) convertOut(r *jen.Statement) []jen.Code {
	ws := jen.Id("ctx").Dot("Workspace").Call()
	fallibleOut := func(conv *jen.Statement, ctype string) []jen.Code {
		return []jen.Code{
			jen.List(jen.Id("out"), jen.Id("cerr")).Op(":=").Add(conv),
			jen.If(jen.Id("cerr").Op("!=").Nil()).Block(w.fail(jen.Id("cerr"))...),
			jen.Return(cCast(ctype, jen.Id("out"))),
		}
	}

	switch ret := w.fn.Returns.Value.(type) {
	case model.StringReturn:
		return fallibleOut(jen.Qual(vclImport, "StringToC").Call(ws, r), "VCL_STRING")
	case model.BytesReturn:
		return fallibleOut(jen.Qual(vclImport, "BytesToC").Call(ws, r), "VCL_STRING")
	case model.BackendReturn:
		return []jen.Code{jen.Return(cCast("VCL_BACKEND", r.Clone().Dot("CPtr").Call()))}
	case model.RawReturn:
		return []jen.Code{jen.Return(cCast(ret.Name, jen.Qual("unsafe", "Pointer").Call(r)))}
	case model.ValueReturn:
		switch ret.Ty {
		case model.TyBool:
			return []jen.Code{
				jen.If(r).Block(jen.Return(jen.Lit(1))),
				jen.Return(jen.Lit(0)),
			}
		case model.TyInt64:
			return []jen.Code{jen.Return(jen.Id("C").Dot("VCL_INT").Call(r))}
		case model.TyFloat64:
			return []jen.Code{jen.Return(jen.Id("C").Dot("VCL_REAL").Call(r))}
		case model.TyDuration:
			return []jen.Code{jen.Return(jen.Id("C").Dot("VCL_DURATION").Call(jen.Qual(vclImport, "DurationToC").Call(r)))}
		case model.TyCString:
			return []jen.Code{jen.Return(cCast("VCL_STRING", jen.Qual(vclImport, "CStringPtr").Call(r)))}
		case model.TyProbe:
			return fallibleOut(jen.Qual(vclImport, "ProbeToC").Call(ws, r), "VCL_PROBE")
		case model.TyProbeRef:
			return []jen.Code{jen.Return(cCast("VCL_PROBE", jen.Qual(vclImport, "ProbeRefPtr").Call(r)))}
		case model.TySocketAddr:
			return fallibleOut(jen.Qual(vclImport, "AddrPortToC").Call(ws, r), "VCL_IP")
		}
	}
	panic(fmt.Sprintf("unhandled return shape %T", w.fn.Returns.Value))
}

// convertIn turns one native argument into the Go value the user function
// expects.
func convertIn(ty model.ParamTy, c *jen.Statement) *jen.Statement {
	switch ty {
	case model.TyBool:
		return c.Op("!=").Lit(0)
	case model.TyInt64:
		return jen.Int64().Call(c)
	case model.TyFloat64:
		return jen.Float64().Call(c)
	case model.TyDuration:
		return jen.Qual(vclImport, "DurationFromC").Call(jen.Float64().Call(c))
	case model.TyString:
		return jen.Qual(vclImport, "StringFromC").Call(unsafePtr(c))
	case model.TyCString:
		return jen.Qual(vclImport, "CStringFromC").Call(unsafePtr(c))
	case model.TyProbe:
		return jen.Qual(vclImport, "ProbeFromC").Call(unsafePtr(c))
	case model.TyProbeRef:
		return jen.Qual(vclImport, "ProbeRefFromC").Call(unsafePtr(c))
	case model.TySocketAddr:
		return jen.Qual(vclImport, "AddrPortFromC").Call(unsafePtr(c))
	}
	panic(fmt.Sprintf("unhandled value type %v", ty))
}

// goPtrType spells the pointer type an optional parameter has on the Go
// side.
func goPtrType(ty model.ParamTy) *jen.Statement {
	switch ty {
	case model.TyBool:
		return jen.Op("*").Bool()
	case model.TyInt64:
		return jen.Op("*").Int64()
	case model.TyFloat64:
		return jen.Op("*").Float64()
	case model.TyString:
		return jen.Op("*").String()
	case model.TyDuration:
		return jen.Op("*").Qual("time", "Duration")
	case model.TyCString:
		return jen.Op("*").Qual(vclImport, "CString")
	case model.TyProbe:
		return jen.Op("*").Qual(vclImport, "Probe")
	case model.TyProbeRef:
		return jen.Op("*").Qual(vclImport, "ProbeRef")
	case model.TySocketAddr:
		return jen.Op("*").Qual("net/netip", "AddrPort")
	}
	panic(fmt.Sprintf("unhandled value type %v", ty))
}

func cCast(ctype string, v jen.Code) *jen.Statement {
	return jen.Parens(jen.Id("C").Dot(ctype)).Call(v)
}

func unsafePtr(v jen.Code) *jen.Statement {
	return jen.Qual("unsafe", "Pointer").Call(v)
}
