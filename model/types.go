package model

// ParamTy is the closed set of basic value types a parameter may carry.
// Each maps to exactly one descriptor type name and one native ABI type
// name; both tables live here so parser and generators cannot drift apart.
type ParamTy int

const (
	TyBool ParamTy = iota
	TyDuration
	TyFloat64
	TyInt64
	TyProbe
	TyProbeRef
	TySocketAddr
	TyString
	TyCString
)

// VCCType returns the descriptor type name.
func (t ParamTy) VCCType() string {
	switch t {
	case TyBool:
		return "BOOL"
	case TyDuration:
		return "DURATION"
	case TyFloat64:
		return "REAL"
	case TyInt64:
		return "INT"
	case TyProbe, TyProbeRef:
		return "PROBE"
	case TySocketAddr:
		return "IP"
	default:
		return "STRING"
	}
}

// CType returns the native ABI type name.
func (t ParamTy) CType() string {
	switch t {
	case TyBool:
		return "VCL_BOOL"
	case TyDuration:
		return "VCL_DURATION"
	case TyFloat64:
		return "VCL_REAL"
	case TyInt64:
		return "VCL_INT"
	case TyProbe, TyProbeRef:
		return "VCL_PROBE"
	case TySocketAddr:
		return "VCL_IP"
	default:
		return "VCL_STRING"
	}
}

// MustBeOptional reports whether the type can only be declared in pointer
// form: the ABI passes it as a nullable reference, so a non-optional
// declaration would hide NULL from the user function.
func (t ParamTy) MustBeOptional() bool {
	switch t {
	case TyProbe, TyProbeRef, TySocketAddr:
		return true
	}
	return false
}

func (t ParamTy) String() string {
	switch t {
	case TyBool:
		return "bool"
	case TyDuration:
		return "time.Duration"
	case TyFloat64:
		return "float64"
	case TyInt64:
		return "int64"
	case TyProbe:
		return "vcl.Probe"
	case TyProbeRef:
		return "vcl.ProbeRef"
	case TySocketAddr:
		return "netip.AddrPort"
	case TyCString:
		return "vcl.CString"
	default:
		return "string"
	}
}

// ReturnType is a function's declared result: the value shape plus whether
// the declaration carried a trailing error.
type ReturnType struct {
	Value    ReturnTy
	Fallible bool
}

// ReturnTy is the closed set of return value shapes. Every arm knows its
// descriptor and ABI type names.
type ReturnTy interface {
	VCCType() string
	CType() string
}

// VoidReturn means the function returns nothing.
type VoidReturn struct{}

// SelfReturn is the constructor's object value; VOID at the ABI since the
// object travels through the out-pointer.
type SelfReturn struct{}

// ValueReturn is a BasicType result.
type ValueReturn struct{ Ty ParamTy }

// StringReturn is an owned host string copied into the scratch allocator.
type StringReturn struct{}

// BytesReturn is an owned byte buffer copied into the scratch allocator.
type BytesReturn struct{}

// BackendReturn is the opaque backend handle.
type BackendReturn struct{}

// RawReturn passes a native ABI value straight through; Name holds the
// full ABI spelling such as "VCL_BACKEND".
type RawReturn struct{ Name string }

func (VoidReturn) VCCType() string { return "VOID" }
func (VoidReturn) CType() string   { return "VCL_VOID" }

func (SelfReturn) VCCType() string { return "VOID" }
func (SelfReturn) CType() string   { return "VCL_VOID" }

func (r ValueReturn) VCCType() string { return r.Ty.VCCType() }
func (r ValueReturn) CType() string   { return r.Ty.CType() }

func (StringReturn) VCCType() string { return "STRING" }
func (StringReturn) CType() string   { return "VCL_STRING" }

func (BytesReturn) VCCType() string { return "STRING" }
func (BytesReturn) CType() string   { return "VCL_STRING" }

func (BackendReturn) VCCType() string { return "BACKEND" }
func (BackendReturn) CType() string   { return "VCL_BACKEND" }

func (r RawReturn) VCCType() string { return r.Name[len("VCL_"):] }
func (r RawReturn) CType() string   { return r.Name }
