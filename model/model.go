// Package model holds the validated intermediate representation of a VMOD
// interface. The parser builds one VmodInfo per compilation; generators read
// it and never modify it.
package model

import "go/token"

// VmodInfo is the whole module: every exported function and object plus the
// shared-slot payload registry.
type VmodInfo struct {
	Name      string
	GoPackage string
	Docs      string
	Funcs     []FuncInfo
	Objects   []ObjInfo
	Shared    SharedTypes
}

// AllFuncs returns every function in descriptor order: package-level
// functions first, then each object's constructor, destructor, and methods.
func (v *VmodInfo) AllFuncs() []*FuncInfo {
	var out []*FuncInfo
	for i := range v.Funcs {
		out = append(out, &v.Funcs[i])
	}
	for i := range v.Objects {
		out = append(out, v.Objects[i].AllFuncs()...)
	}
	return out
}

// SharedTypes records the single payload type allowed for task-scoped and
// VCL-scoped slots across the whole module. The positions remember the
// first declaration site so later mismatches can cite it.
type SharedTypes struct {
	PerTask    string
	PerTaskPos token.Position
	PerVCL     string
	PerVCLPos  token.Position
}

// ObjInfo is one exported object: a constructor (named by convention), a
// synthesized destructor, and its methods.
type ObjInfo struct {
	Name        string
	Docs        string
	Constructor FuncInfo
	Destructor  FuncInfo
	Methods     []FuncInfo
}

// AllFuncs returns the object's functions in descriptor order.
func (o *ObjInfo) AllFuncs() []*FuncInfo {
	out := []*FuncInfo{&o.Constructor, &o.Destructor}
	for i := range o.Methods {
		out = append(out, &o.Methods[i])
	}
	return out
}

// FuncKind tags what kind of callable a FuncInfo describes.
type FuncKind int

const (
	KindFunction FuncKind = iota
	KindConstructor
	KindDestructor
	KindMethod
	KindEvent
)

// VCCToken returns the fragment tag the descriptor uses for this kind.
func (k FuncKind) VCCToken() string {
	switch k {
	case KindConstructor:
		return "$INIT"
	case KindDestructor:
		return "$FINI"
	case KindMethod:
		return "$METHOD"
	case KindEvent:
		return "$EVENT"
	default:
		return "$FUNC"
	}
}

func (k FuncKind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindDestructor:
		return "destructor"
	case KindMethod:
		return "method"
	case KindEvent:
		return "event"
	default:
		return "function"
	}
}

// FuncInfo is one validated function, method, constructor, destructor, or
// event handler. Name is the descriptor spelling; GoName is the identifier
// the user wrote, which the generated wrapper calls.
type FuncInfo struct {
	Kind            FuncKind
	Name            string
	GoName          string
	Docs            string
	HasOptionalArgs bool
	Args            []ParamTypeInfo
	Returns         ReturnType
}

// ParamTypeInfo is one declared parameter with its role.
type ParamTypeInfo struct {
	Name string
	Docs string
	Idx  int
	Type ParamType
}

// ParamType is the closed set of parameter roles. One arm per role; the
// parser decides the arm, the generators switch on it.
type ParamType interface{ isParamType() }

// ContextParam is the execution-context handle.
type ContextParam struct{ Mut bool }

// WorkspaceParam is the scratch-allocator handle.
type WorkspaceParam struct{ Mut bool }

// SelfParam is a method's receiver.
type SelfParam struct{}

// EventParam is the event-payload argument of an event handler.
type EventParam struct{}

// NameParam is the instance-name string passed to constructors.
type NameParam struct{}

// PerTaskParam is a task-scoped shared slot. Its payload type lives in
// SharedTypes, not here: the whole module shares one.
type PerTaskParam struct{}

// PerVCLRefParam is a read-only borrow of the VCL-scoped slot.
type PerVCLRefParam struct{}

// PerVCLMutParam is the mutable, owning form of the VCL-scoped slot.
type PerVCLMutParam struct{}

// FetchFiltersParam is the fetch-filter registry-mutation handle.
type FetchFiltersParam struct{}

// DeliveryFiltersParam is the delivery-filter registry-mutation handle.
type DeliveryFiltersParam struct{}

// ValueParam is a plain value argument carrying a BasicType.
type ValueParam struct {
	Kind    ParamKind
	Default any // literal from //vmod:default, or nil
	Ty      ParamTy
}

func (ContextParam) isParamType()         {}
func (WorkspaceParam) isParamType()       {}
func (SelfParam) isParamType()            {}
func (EventParam) isParamType()           {}
func (NameParam) isParamType()            {}
func (PerTaskParam) isParamType()         {}
func (PerVCLRefParam) isParamType()       {}
func (PerVCLMutParam) isParamType()       {}
func (FetchFiltersParam) isParamType()    {}
func (DeliveryFiltersParam) isParamType() {}
func (ValueParam) isParamType()           {}

// ParamKind is the optionality of a ValueParam.
type ParamKind int

const (
	// KindRegular is a plainly declared parameter.
	KindRegular ParamKind = iota
	// KindOptional is a pointer-declared parameter; the host passes a
	// companion validity byte.
	KindOptional
	// KindRequired is pointer-declared but marked //vmod:required: the
	// caller must pass it, though its value may still be NULL.
	KindRequired
)
