package parser

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/varnish-go/vmodgen/model"
)

// funcState tracks per-function facts the parameter rules need: which
// single-use roles were already seen, and whether an optional value
// parameter has appeared (optional parameters must form a trailing run).
type funcState struct {
	kind    model.FuncKind
	objName string

	hasCtx     bool
	hasWs      bool
	hasEvent   bool
	hasPerTask bool
	hasPerVCL  bool
	hasName    bool
	hasFetch   bool
	hasDeliver bool

	firstOptional string
}

// paramType classifies one declared parameter. Each violation produces
// exactly one diagnostic and the parameter is dropped from the model; the
// caller keeps going so later parameters still get checked.
func (p *parser) paramType(fs *fileScope, st *funcState, d *directives, name string, expr ast.Expr, pos token.Position) (model.ParamType, bool) {
	inner, isPtr := deref(expr)
	elem := expr
	if isPtr {
		elem = inner
	}

	unique := func(seen *bool, msg string) bool {
		if *seen {
			p.Add(pos, msg)
			return false
		}
		*seen = true
		return true
	}

	switch {
	case fs.isVCL(elem, "Ctx"):
		if !unique(&st.hasCtx, "context parameter is allowed only once in a parameter list") {
			return nil, false
		}
		return model.ContextParam{Mut: isPtr}, true

	case fs.isVCL(elem, "Workspace"):
		if !unique(&st.hasWs, "workspace parameter is allowed only once in a parameter list") {
			return nil, false
		}
		return model.WorkspaceParam{Mut: isPtr}, true

	case fs.isVCL(elem, "Event"):
		if isPtr {
			p.Add(pos, "event parameter must be declared as vcl.Event, not a pointer")
			return nil, false
		}
		if st.kind != model.KindEvent {
			p.Add(pos, "event parameters are only allowed in event handlers; add //vmod:event to this function")
			return nil, false
		}
		if !unique(&st.hasEvent, "event parameter is allowed only once in a parameter list") {
			return nil, false
		}
		return model.EventParam{}, true

	case fs.isVCL(elem, "Name"):
		if isPtr {
			p.Add(pos, "instance-name parameter must be declared as vcl.Name, not a pointer")
			return nil, false
		}
		if st.kind != model.KindConstructor {
			p.Add(pos, "instance-name parameters are only allowed in object constructors")
			return nil, false
		}
		if !unique(&st.hasName, "instance-name parameter is allowed only once in a parameter list") {
			return nil, false
		}
		return model.NameParam{}, true

	case fs.isVCL(elem, "FetchFilters"):
		if !isPtr {
			p.Add(pos, "fetch-filter registry parameter must be declared as *vcl.FetchFilters")
			return nil, false
		}
		if st.kind == model.KindEvent {
			p.Add(pos, "event functions must not have registry-mutation parameters")
			return nil, false
		}
		if !unique(&st.hasFetch, "fetch-filter registry parameter is allowed only once in a parameter list") {
			return nil, false
		}
		return model.FetchFiltersParam{}, true

	case fs.isVCL(elem, "DeliveryFilters"):
		if !isPtr {
			p.Add(pos, "delivery-filter registry parameter must be declared as *vcl.DeliveryFilters")
			return nil, false
		}
		if st.kind == model.KindEvent {
			p.Add(pos, "event functions must not have registry-mutation parameters")
			return nil, false
		}
		if !unique(&st.hasDeliver, "delivery-filter registry parameter is allowed only once in a parameter list") {
			return nil, false
		}
		return model.DeliveryFiltersParam{}, true
	}

	if base, payload, ok := genericArg(elem); ok {
		switch {
		case fs.isVCL(base, "PerTask"):
			if !isPtr {
				p.Add(pos, "task-scoped slot parameters must be declared as *vcl.PerTask[T]")
				return nil, false
			}
			if st.kind == model.KindEvent {
				p.Add(pos, "event functions must not have task-scoped slot parameters")
				return nil, false
			}
			if !unique(&st.hasPerTask, "task-scoped slot parameter is allowed only once in a parameter list") {
				return nil, false
			}
			if !p.registerShared(&p.shared.PerTask, &p.shared.PerTaskPos, "task-scoped", payload, pos) {
				return nil, false
			}
			return model.PerTaskParam{}, true

		case fs.isVCL(base, "PerVCL"):
			if !unique(&st.hasPerVCL, "VCL-scoped slot parameter is allowed only once in a parameter list") {
				return nil, false
			}
			if !p.registerShared(&p.shared.PerVCL, &p.shared.PerVCLPos, "VCL-scoped", payload, pos) {
				return nil, false
			}
			if isPtr {
				if st.kind != model.KindConstructor && st.kind != model.KindEvent {
					p.Add(pos, "mutable VCL-scoped slot parameters are only allowed in constructors and event handlers")
					return nil, false
				}
				p.perVCLMut++
				return model.PerVCLMutParam{}, true
			}
			if st.kind != model.KindFunction && st.kind != model.KindMethod {
				p.Add(pos, "read-only VCL-scoped slot parameters are only allowed in functions and methods")
				return nil, false
			}
			p.perVCLRef++
			p.perVCLRefPos = append(p.perVCLRefPos, pos)
			return model.PerVCLRefParam{}, true
		}
	}

	// Only value types remain.
	ty, ok := fs.tryValueTy(elem)
	if !ok {
		p.Addf(pos, "unsupported parameter type %s", types.ExprString(expr))
		return nil, false
	}
	if st.kind == model.KindEvent {
		p.Add(pos, "event functions can only have context, event, and mutable VCL-scoped slot parameters")
		return nil, false
	}
	if !isPtr && ty.MustBeOptional() {
		p.Addf(pos, "parameters of type %s must be declared as a pointer; the host may pass no value", ty)
		return nil, false
	}

	def, ok := p.paramDefault(d, name, ty, pos)
	if !ok {
		return nil, false
	}

	kind := model.KindRegular
	if isPtr {
		kind = model.KindOptional
	}
	if d.required[name] {
		delete(d.required, name)
		if !isPtr {
			p.Addf(pos, "//vmod:required is only allowed on pointer-declared parameters")
			return nil, false
		}
		if !ty.MustBeOptional() {
			p.Addf(pos, "//vmod:required is only allowed on Probe, ProbeRef, and AddrPort parameters")
			return nil, false
		}
		kind = model.KindRequired
	}

	switch kind {
	case model.KindOptional:
		if st.firstOptional == "" {
			st.firstOptional = name
		}
	default:
		if st.firstOptional != "" {
			p.Addf(pos, "required parameter %q follows optional parameter %q; optional parameters must be trailing", name, st.firstOptional)
			return nil, false
		}
	}

	return model.ValueParam{Kind: kind, Default: def, Ty: ty}, true
}

// paramDefault consumes and checks the //vmod:default literal for one
// parameter, if any.
func (p *parser) paramDefault(d *directives, name string, ty model.ParamTy, pos token.Position) (any, bool) {
	def, present := d.defaults[name]
	if !present {
		return nil, true
	}
	delete(d.defaults, name)
	switch def.(type) {
	case string:
		if ty != model.TyString && ty != model.TyCString {
			p.Addf(pos, "only string parameters can have a default string value (parameter %q)", name)
			return nil, false
		}
	case int64:
		if ty != model.TyInt64 {
			p.Addf(pos, "only int64 parameters can have a default integer value (parameter %q)", name)
			return nil, false
		}
	case float64:
		if ty != model.TyFloat64 {
			p.Addf(pos, "only float64 parameters can have a default float value (parameter %q)", name)
			return nil, false
		}
	case bool:
		if ty != model.TyBool {
			p.Addf(pos, "only bool parameters can have a default boolean value (parameter %q)", name)
			return nil, false
		}
		// The host's loader expects numeric boolean defaults.
		if def == true {
			def = int64(1)
		} else {
			def = int64(0)
		}
	}
	return def, true
}

// registerShared enforces the one-payload-type rule for a shared slot
// scope. The first declaration wins; later mismatches cite it.
func (p *parser) registerShared(slot *string, slotPos *token.Position, scope, payload string, pos token.Position) bool {
	if *slot == "" {
		*slot = payload
		*slotPos = pos
		return true
	}
	if *slot != payload {
		p.Addf(pos, "%s slot payload type %s conflicts with %s first declared at %s", scope, payload, *slot, *slotPos)
		return false
	}
	return true
}
