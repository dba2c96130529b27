// Package hash computes the content-derived build identity token for a
// compiled module. The token is a SHA-256 digest over a canonical CBOR
// serialization of a frozen copy of the semantic model, so identical
// declarations always produce the same token and any model change produces
// a new one. The host uses it to match a loaded wrapper library against its
// descriptor.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/varnish-go/vmodgen/model"
)

// Bump when the frozen form changes shape, so old and new serializations
// can never collide.
const hashVersion = 2

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("hash: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Frozen serialization model. Plain data only: no positions, nothing that
// depends on where the declarations came from.

type hModule struct {
	Version int       `cbor:"v"`
	Name    string    `cbor:"name"`
	Docs    string    `cbor:"docs"`
	Funcs   []hFunc   `cbor:"funcs"`
	Objects []hObject `cbor:"objects"`
	PerTask string    `cbor:"per_task"`
	PerVCL  string    `cbor:"per_vcl"`
}

type hObject struct {
	Name        string  `cbor:"name"`
	Docs        string  `cbor:"docs"`
	Constructor hFunc   `cbor:"ctor"`
	Destructor  hFunc   `cbor:"dtor"`
	Methods     []hFunc `cbor:"methods"`
}

type hFunc struct {
	Kind     int      `cbor:"kind"`
	Name     string   `cbor:"name"`
	Docs     string   `cbor:"docs"`
	Args     []hParam `cbor:"args"`
	Ret      string   `cbor:"ret"`
	Fallible bool     `cbor:"fallible"`
}

type hParam struct {
	Name    string `cbor:"name"`
	Role    string `cbor:"role"`
	Kind    int    `cbor:"kind"`
	Default string `cbor:"default"`
}

// ModuleID returns the identity token: lowercase hex SHA-256 of the frozen
// model's canonical CBOR encoding.
func ModuleID(info *model.VmodInfo) string {
	data, err := cborEncMode.Marshal(freeze(info))
	if err != nil {
		// The frozen form is plain strings, ints, and bools; canonical
		// encoding of it cannot fail.
		panic(fmt.Sprintf("hash: marshal frozen model: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func freeze(info *model.VmodInfo) hModule {
	m := hModule{
		Version: hashVersion,
		Name:    info.Name,
		Docs:    info.Docs,
		Funcs:   []hFunc{},
		Objects: []hObject{},
		PerTask: info.Shared.PerTask,
		PerVCL:  info.Shared.PerVCL,
	}
	for i := range info.Funcs {
		m.Funcs = append(m.Funcs, freezeFunc(&info.Funcs[i]))
	}
	for i := range info.Objects {
		o := &info.Objects[i]
		ho := hObject{
			Name:        o.Name,
			Docs:        o.Docs,
			Constructor: freezeFunc(&o.Constructor),
			Destructor:  freezeFunc(&o.Destructor),
			Methods:     []hFunc{},
		}
		for j := range o.Methods {
			ho.Methods = append(ho.Methods, freezeFunc(&o.Methods[j]))
		}
		m.Objects = append(m.Objects, ho)
	}
	return m
}

func freezeFunc(f *model.FuncInfo) hFunc {
	hf := hFunc{
		Kind:     int(f.Kind),
		Name:     f.Name,
		Docs:     f.Docs,
		Args:     []hParam{},
		Ret:      returnTag(f.Returns.Value),
		Fallible: f.Returns.Fallible,
	}
	for _, a := range f.Args {
		hf.Args = append(hf.Args, freezeParam(a))
	}
	return hf
}

func freezeParam(p model.ParamTypeInfo) hParam {
	hp := hParam{Name: p.Name}
	switch t := p.Type.(type) {
	case model.ContextParam:
		hp.Role = roleMut("ctx", t.Mut)
	case model.WorkspaceParam:
		hp.Role = roleMut("ws", t.Mut)
	case model.SelfParam:
		hp.Role = "self"
	case model.EventParam:
		hp.Role = "event"
	case model.NameParam:
		hp.Role = "vcl_name"
	case model.PerTaskParam:
		hp.Role = "per_task"
	case model.PerVCLRefParam:
		hp.Role = "per_vcl_ref"
	case model.PerVCLMutParam:
		hp.Role = "per_vcl_mut"
	case model.FetchFiltersParam:
		hp.Role = "fetch_filters"
	case model.DeliveryFiltersParam:
		hp.Role = "delivery_filters"
	case model.ValueParam:
		hp.Role = "value:" + t.Ty.String()
		hp.Kind = int(t.Kind)
		hp.Default = literalString(t.Default)
	}
	return hp
}

func roleMut(role string, mut bool) string {
	if mut {
		return role + ":mut"
	}
	return role
}

func returnTag(r model.ReturnTy) string {
	switch t := r.(type) {
	case model.SelfReturn:
		return "self"
	case model.StringReturn:
		return "string"
	case model.BytesReturn:
		return "bytes"
	case model.BackendReturn:
		return "backend"
	case model.RawReturn:
		return "raw:" + t.Name
	case model.ValueReturn:
		return "value:" + t.Ty.String()
	default:
		return "void"
	}
}

func literalString(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("hash: marshal default literal: %v", err))
	}
	return string(data)
}
