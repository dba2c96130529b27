package gen

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/varnish-go/vmodgen/model"
	"github.com/varnish-go/vmodgen/names"
)

// Descriptor framing. The host scans the library for the start marker and
// reads up to the terminator.
const (
	jsonMarker     = "VMOD_JSON_SPEC\x02\n"
	jsonTerminator = "\n\x03"
)

// jsonModule builds the whole descriptor document as a JSON value:
// a header row, the $CPROTO row, then one fragment per function and
// object.
func jsonModule(info *model.VmodInfo, fileID, abi, cproto string) []any {
	mod := names.New(info.Name)
	doc := []any{
		[]any{"$VMOD", "1.0", info.Name, mod.FuncStructName(), fileID, abi, "0", "0"},
		[]any{"$CPROTO", cproto},
	}
	for i := range info.Funcs {
		fn := &info.Funcs[i]
		doc = append(doc, jsonFunc(mod.ToFunc(fn.Kind, fn.Name), fn))
	}
	for i := range info.Objects {
		doc = append(doc, jsonObject(mod, &info.Objects[i]))
	}
	return doc
}

// jsonFunc renders one function fragment. Constructors and destructors
// omit the redundant name element; events carry only the callback.
func jsonFunc(n names.Names, fn *model.FuncInfo) []any {
	switch fn.Kind {
	case model.KindEvent:
		return []any{"$EVENT", n.CallbackName()}
	case model.KindConstructor, model.KindDestructor:
		return []any{fn.Kind.VCCToken(), jsonDecl(n, fn)}
	default:
		return []any{fn.Kind.VCCToken(), fn.Name, jsonDecl(n, fn)}
	}
}

// jsonObject renders the $OBJ fragment: name, annotations, the instance
// struct name, then the constructor, destructor, and method fragments.
func jsonObject(mod names.Names, ob *model.ObjInfo) []any {
	n := mod.ToObj(ob.Name)
	frag := []any{
		"$OBJ",
		ob.Name,
		map[string]any{"NULL_OK": false},
		n.ObjStructName(),
	}
	for _, fn := range ob.AllFuncs() {
		frag = append(frag, jsonFunc(n.ToFunc(fn.Kind, fn.Name), fn))
	}
	return frag
}

// jsonDecl renders the signature tuple: return type, callback, the
// optional-arguments struct name (or ""), then one tuple per passed
// argument.
func jsonDecl(n names.Names, fn *model.FuncInfo) []any {
	decl := []any{
		[]any{fn.Returns.Value.VCCType()},
		n.CallbackName(),
	}
	if fn.HasOptionalArgs {
		decl = append(decl, "struct "+n.ArgStructName())
	} else {
		decl = append(decl, "")
	}
	for _, a := range fn.Args {
		switch t := a.Type.(type) {
		case model.ValueParam:
			decl = append(decl, jsonValueArg(a.Name, t))
		case model.PerTaskParam:
			decl = append(decl, []any{"PRIV_TASK", a.Name})
		case model.PerVCLRefParam, model.PerVCLMutParam:
			decl = append(decl, []any{"PRIV_VCL", a.Name})
		}
	}
	return decl
}

// jsonValueArg renders one value argument tuple:
//
//	[type, name, default, spec, optional]
//
// The default is its JSON rendering or null; the spec slot is always
// null; the optional flag appears only for optional parameters. Trailing
// nulls are trimmed.
func jsonValueArg(name string, v model.ValueParam) []any {
	tuple := []any{v.Ty.VCCType(), name, defaultJSON(v.Default), nil}
	if v.Kind == model.KindOptional {
		tuple = append(tuple, true)
	} else {
		for len(tuple) > 2 && tuple[len(tuple)-1] == nil {
			tuple = tuple[:len(tuple)-1]
		}
	}
	return tuple
}

// defaultJSON renders a default literal the way the host expects it: as
// the JSON text of the value, or nil when there is no default.
func defaultJSON(def any) any {
	if def == nil {
		return nil
	}
	raw, err := json.Marshal(def)
	if err != nil {
		// Defaults are parser-vetted literals; this cannot happen.
		panic(fmt.Sprintf("unencodable default %#v: %v", def, err))
	}
	return string(raw)
}

// encodeJSON renders the document as pretty-printed JSON text.
func encodeJSON(doc []any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}
	// Encoder appends a trailing newline; framing supplies its own.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// frameJSON wraps the rendered document in the marker bytes the host
// scans for.
func frameJSON(raw []byte) []byte {
	framed := make([]byte, 0, len(jsonMarker)+len(raw)+len(jsonTerminator))
	framed = append(framed, jsonMarker...)
	framed = append(framed, raw...)
	framed = append(framed, jsonTerminator...)
	return framed
}
