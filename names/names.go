// Package names derives every identifier the generated artifacts need from
// the module/object/function identity chain. Pure text: the same inputs
// always produce the same names, which is what keeps the descriptor, the C
// prototypes, and the wrapper unit agreeing with each other.
package names

import (
	"fmt"

	"github.com/varnish-go/vmodgen/model"
)

// Names is an immutable identity chain: module, optionally an object,
// optionally a function. Build one with New and extend it with ToObj and
// ToFunc; the extended copies share nothing mutable with the original.
type Names struct {
	modName string
	objName string
	hasObj  bool
	fnKind  model.FuncKind
	fnName  string
	hasFn   bool
}

// New starts a chain at the module level.
func New(modName string) Names {
	return Names{modName: modName}
}

// ToObj extends the chain with an object name.
func (n Names) ToObj(objName string) Names {
	n.objName = objName
	n.hasObj = true
	return n
}

// ToFunc extends the chain with a function identity.
func (n Names) ToFunc(kind model.FuncKind, fnName string) Names {
	n.fnKind = kind
	n.fnName = fnName
	n.hasFn = true
	return n
}

// Mod returns the module name.
func (n Names) Mod() string { return n.modName }

// Obj returns the object name; empty at module or function level.
func (n Names) Obj() string { return n.objName }

// FnName returns the function name as the descriptor spells it:
// constructors and destructors surface as _init and _fini.
func (n Names) FnName() string {
	switch n.fnKind {
	case model.KindConstructor:
		return "_init"
	case model.KindDestructor:
		return "_fini"
	default:
		return n.fnName
	}
}

// FnNameUser returns the function name as the user wrote it.
func (n Names) FnNameUser() string { return n.fnName }

// FuncStructName names the aggregate function table the host loader reads.
func (n Names) FuncStructName() string {
	return fmt.Sprintf("Vmod_vmod_%s_Func", n.modName)
}

// DataStructName names the loader entry symbol. The host resolves exactly
// this symbol from the loaded library.
func (n Names) DataStructName() string {
	return fmt.Sprintf("Vmod_%s_Data", n.modName)
}

// ObjStructName names the opaque per-instance C struct.
func (n Names) ObjStructName() string {
	return fmt.Sprintf("struct vmod_%s_%s", n.modName, n.objName)
}

// WrapperFnName names the exported native wrapper symbol.
func (n Names) WrapperFnName() string {
	u, obj := n.objParts()
	return fmt.Sprintf("vmod_c%s%s_%s", u, obj, n.FnName())
}

// ArgStructName names the synthesized arguments record used when a function
// has optional parameters.
func (n Names) ArgStructName() string {
	u, obj := n.objParts()
	return fmt.Sprintf("arg_vmod_%s%s%s_%s", n.modName, u, obj, n.FnName())
}

// TypedefName names the C prototype typedef.
func (n Names) TypedefName() string {
	u, obj := n.objParts()
	return fmt.Sprintf("td_vmod_%s%s%s_%s", n.modName, u, obj, n.FnName())
}

// TableFieldName names the function-table member holding the wrapper.
func (n Names) TableFieldName() string {
	u, obj := n.objParts()
	return fmt.Sprintf("f%s%s_%s", u, obj, n.FnName())
}

// CallbackName is the descriptor's reference to the wrapper: the table
// struct plus the member holding it.
func (n Names) CallbackName() string {
	return n.FuncStructName() + "." + n.TableFieldName()
}

func (n Names) objParts() (underscore, obj string) {
	if n.hasObj {
		return "_", n.objName
	}
	return "", ""
}
