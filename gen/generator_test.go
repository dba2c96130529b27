package gen

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/varnish-go/vmodgen/model"
	"github.com/varnish-go/vmodgen/names"
)

func exampleModule() *model.VmodInfo {
	return &model.VmodInfo{
		Name:      "example",
		GoPackage: "example",
		Funcs: []model.FuncInfo{
			{
				Kind:   model.KindFunction,
				Name:   "add",
				GoName: "Add",
				Args: []model.ParamTypeInfo{
					{Name: "a", Idx: 0, Type: model.ValueParam{Ty: model.TyInt64}},
					{Name: "b", Idx: 1, Type: model.ValueParam{Ty: model.TyInt64}},
				},
				Returns: model.ReturnType{Value: model.ValueReturn{Ty: model.TyInt64}},
			},
		},
		Objects: []model.ObjInfo{
			{
				Name: "kv",
				Constructor: model.FuncInfo{
					Kind:   model.KindConstructor,
					Name:   "NewKv",
					GoName: "NewKv",
					Args: []model.ParamTypeInfo{
						{Name: "name", Idx: 0, Type: model.NameParam{}},
					},
					Returns: model.ReturnType{Value: model.SelfReturn{}, Fallible: true},
				},
				Destructor: model.FuncInfo{
					Kind:    model.KindDestructor,
					Name:    "_fini",
					Returns: model.ReturnType{Value: model.VoidReturn{}},
				},
				Methods: []model.FuncInfo{
					{
						Kind:   model.KindMethod,
						Name:   "get",
						GoName: "Get",
						Args: []model.ParamTypeInfo{
							{Name: "k", Idx: 0, Type: model.SelfParam{}},
							{Name: "key", Idx: 1, Type: model.ValueParam{Ty: model.TyString}},
						},
						Returns: model.ReturnType{Value: model.StringReturn{}},
					},
				},
			},
		},
	}
}

func TestCprotoFunc(t *testing.T) {
	info := exampleModule()
	n := names.New("example").ToFunc(model.KindFunction, "add")
	got := cprotoFunc(n, &info.Funcs[0])
	want := "typedef VCL_INT td_vmod_example_add(\n    VRT_CTX,\n    VCL_INT a,\n    VCL_INT b);\n"
	if got != want {
		t.Errorf("cproto:\n%s\nwant:\n%s", got, want)
	}
}

func TestCprotoDestructorOmitsContext(t *testing.T) {
	info := exampleModule()
	n := names.New("example").ToObj("kv").ToFunc(model.KindDestructor, "_fini")
	got := cprotoFunc(n, &info.Objects[0].Destructor)
	want := "typedef VCL_VOID td_vmod_example_kv__fini(struct vmod_example_kv **);\n"
	if got != want {
		t.Errorf("cproto:\n%s\nwant:\n%s", got, want)
	}
}

func TestCprotoOptionalArgsStruct(t *testing.T) {
	fn := &model.FuncInfo{
		Kind:            model.KindFunction,
		Name:            "trim",
		GoName:          "Trim",
		HasOptionalArgs: true,
		Args: []model.ParamTypeInfo{
			{Name: "s", Idx: 0, Type: model.ValueParam{Ty: model.TyString}},
			{Name: "limit", Idx: 1, Type: model.ValueParam{Kind: model.KindOptional, Ty: model.TyInt64}},
		},
		Returns: model.ReturnType{Value: model.ValueReturn{Ty: model.TyString}},
	}
	n := names.New("example").ToFunc(fn.Kind, fn.Name)
	got := cprotoFunc(n, fn)
	for _, want := range []string{
		"struct arg_vmod_example_trim {",
		"char\t\t\tvalid_limit;",
		"VCL_STRING\t\t\ts;",
		"VCL_INT\t\t\tlimit;",
		"struct arg_vmod_example_trim *args);",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("cproto missing %q:\n%s", want, got)
		}
	}
}

func TestJSONFuncFragment(t *testing.T) {
	info := exampleModule()
	n := names.New("example").ToFunc(model.KindFunction, "add")
	frag := jsonFunc(n, &info.Funcs[0])
	raw, err := json.Marshal(frag)
	if err != nil {
		t.Fatal(err)
	}
	want := `["$FUNC","add",[["INT"],"Vmod_vmod_example_Func.f_add","",["INT","a"],["INT","b"]]]`
	if string(raw) != want {
		t.Errorf("fragment = %s\nwant       %s", raw, want)
	}
}

func TestJSONObjectFragment(t *testing.T) {
	info := exampleModule()
	frag := jsonObject(names.New("example"), &info.Objects[0])
	raw, err := json.Marshal(frag)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`"$OBJ","kv",{"NULL_OK":false},"struct vmod_example_kv"`,
		`["$INIT",[["VOID"],"Vmod_vmod_example_Func.f_kv__init",""]]`,
		`["$FINI",[["VOID"],"Vmod_vmod_example_Func.f_kv__fini",""]]`,
		`["$METHOD","get",[["STRING"],"Vmod_vmod_example_Func.f_kv_get","",["STRING","key"]]]`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("object fragment missing %s:\n%s", want, raw)
		}
	}
}

func TestJSONDefaultsAndOptional(t *testing.T) {
	fn := &model.FuncInfo{
		Kind:            model.KindFunction,
		Name:            "greet",
		GoName:          "Greet",
		HasOptionalArgs: true,
		Args: []model.ParamTypeInfo{
			{Name: "who", Idx: 0, Type: model.ValueParam{Ty: model.TyString, Default: "world"}},
			{Name: "times", Idx: 1, Type: model.ValueParam{Kind: model.KindOptional, Ty: model.TyInt64, Default: int64(1)}},
		},
		Returns: model.ReturnType{Value: model.StringReturn{}},
	}
	n := names.New("example").ToFunc(fn.Kind, fn.Name)
	raw, err := json.Marshal(jsonDecl(n, fn))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`"struct arg_vmod_example_greet"`,
		`["STRING","who","\"world\""]`,
		`["INT","times","1",null,true]`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("decl missing %s:\n%s", want, raw)
		}
	}
}

func TestJSONSharedSlotArgs(t *testing.T) {
	fn := &model.FuncInfo{
		Kind:   model.KindFunction,
		Name:   "use",
		GoName: "Use",
		Args: []model.ParamTypeInfo{
			{Name: "state", Idx: 0, Type: model.PerTaskParam{}},
			{Name: "cfg", Idx: 1, Type: model.PerVCLRefParam{}},
		},
		Returns: model.ReturnType{Value: model.VoidReturn{}},
	}
	n := names.New("example").ToFunc(fn.Kind, fn.Name)
	raw, err := json.Marshal(jsonDecl(n, fn))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`["PRIV_TASK","state"]`,
		`["PRIV_VCL","cfg"]`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("decl missing %s:\n%s", want, raw)
		}
	}
}

func TestGenerateArtifacts(t *testing.T) {
	info := exampleModule()
	out, err := Generate(info, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(out.FileID) != 64 {
		t.Errorf("file id = %q, want 64 hex chars", out.FileID)
	}
	if !bytes.HasPrefix(out.JSON, []byte("VMOD_JSON_SPEC\x02\n")) {
		t.Error("descriptor missing start marker")
	}
	if !bytes.HasSuffix(out.JSON, []byte("\n\x03")) {
		t.Error("descriptor missing terminator")
	}

	header := string(out.Header)
	for _, want := range []string{
		"#ifndef VMOD_EXAMPLE_VMOD_H",
		"struct vmod_example_kv;",
		"struct Vmod_vmod_example_Func {",
		"static struct Vmod_vmod_example_Func Vmod_vmod_example_Func;",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q", want)
		}
	}

	cunit := string(out.CUnit)
	for _, want := range []string{
		"td_vmod_example_add vmod_c_add;",
		`.file_id = "` + out.FileID + `"`,
		".abi = VMOD_ABI_Version,",
		"Vmod_vmod_example_Func.f_add = vmod_c_add;",
		"Vmod_vmod_example_Func.f_kv__init = vmod_c_kv__init;",
		`"VMOD_JSON_SPEC\002\n"`,
	} {
		if !strings.Contains(cunit, want) {
			t.Errorf("c unit missing %q", want)
		}
	}

	gounit := string(out.GoUnit)
	for _, want := range []string{
		"package example",
		"//export vmod_c_add",
		"//export vmod_c_kv__init",
		"//export vmod_c_kv__fini",
		"//export vmod_c_kv_get",
		"cgo.NewHandle",
	} {
		if !strings.Contains(gounit, want) {
			t.Errorf("wrapper unit missing %q:\n%s", want, gounit)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(exampleModule(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(exampleModule(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if a.FileID != b.FileID {
		t.Error("file id is not deterministic")
	}
	if !bytes.Equal(a.JSON, b.JSON) || !bytes.Equal(a.GoUnit, b.GoUnit) ||
		!bytes.Equal(a.CUnit, b.CUnit) || !bytes.Equal(a.Header, b.Header) {
		t.Error("artifacts are not deterministic")
	}
}

func TestFileIDTracksInterface(t *testing.T) {
	base, err := Generate(exampleModule(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	renamed := exampleModule()
	renamed.Funcs[0].Name = "sum"
	other, err := Generate(renamed, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if base.FileID == other.FileID {
		t.Error("renaming a function must change the file id")
	}
}

func TestDocsUnit(t *testing.T) {
	info := exampleModule()
	info.Docs = "Example module."
	docs := string(docsUnit(info))
	for _, want := range []string{
		"# VMOD example",
		"Example module.",
		"### INT example.add(INT a, INT b)",
		"## Object kv",
		"### STRING kv.get(STRING key)",
	} {
		if !strings.Contains(docs, want) {
			t.Errorf("docs missing %q:\n%s", want, docs)
		}
	}
}
