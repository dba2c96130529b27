package hash

import (
	"testing"

	"github.com/varnish-go/vmodgen/model"
)

func sampleModule() *model.VmodInfo {
	return &model.VmodInfo{
		Name: "example",
		Docs: "A test module.",
		Funcs: []model.FuncInfo{{
			Kind: model.KindFunction,
			Name: "fetch",
			Args: []model.ParamTypeInfo{
				{Name: "ctx", Idx: 0, Type: model.ContextParam{Mut: true}},
				{Name: "n", Idx: 1, Type: model.ValueParam{Kind: model.KindOptional, Ty: model.TyInt64, Default: int64(5)}},
			},
			HasOptionalArgs: true,
			Returns:         model.ReturnType{Value: model.StringReturn{}, Fallible: true},
		}},
	}
}

func TestModuleIDDeterministic(t *testing.T) {
	a := ModuleID(sampleModule())
	b := ModuleID(sampleModule())
	if a != b {
		t.Fatalf("identical models hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(a))
	}
	for _, c := range a {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Fatalf("token contains non-hex character %q: %s", c, a)
		}
	}
}

func TestModuleIDSensitivity(t *testing.T) {
	base := ModuleID(sampleModule())

	mutations := map[string]func(*model.VmodInfo){
		"rename function": func(m *model.VmodInfo) { m.Funcs[0].Name = "fetch2" },
		"rename param":    func(m *model.VmodInfo) { m.Funcs[0].Args[1].Name = "m" },
		"change default": func(m *model.VmodInfo) {
			p := m.Funcs[0].Args[1].Type.(model.ValueParam)
			p.Default = int64(6)
			m.Funcs[0].Args[1].Type = p
		},
		"change return": func(m *model.VmodInfo) {
			m.Funcs[0].Returns = model.ReturnType{Value: model.VoidReturn{}}
		},
		"change shared type": func(m *model.VmodInfo) { m.Shared.PerTask = "DNSState" },
		"change docs":        func(m *model.VmodInfo) { m.Funcs[0].Docs = "different" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			m := sampleModule()
			mutate(m)
			if got := ModuleID(m); got == base {
				t.Errorf("mutation %q did not change the identity token", name)
			}
		})
	}
}

func TestSimilarTypesHashDistinct(t *testing.T) {
	withParam := func(ty model.ParamTy) *model.VmodInfo {
		m := sampleModule()
		m.Funcs[0].Args[1].Type = model.ValueParam{Kind: model.KindOptional, Ty: ty}
		return m
	}
	withReturn := func(ty model.ParamTy) *model.VmodInfo {
		m := sampleModule()
		m.Funcs[0].Returns = model.ReturnType{Value: model.ValueReturn{Ty: ty}}
		return m
	}

	// Pairs that share a descriptor type name but differ at the ABI.
	pairs := map[string][2]*model.VmodInfo{
		"probe vs probe ref param": {withParam(model.TyProbe), withParam(model.TyProbeRef)},
		"string vs cstring param":  {withParam(model.TyString), withParam(model.TyCString)},
		"string vs cstring return": {withReturn(model.TyString), withReturn(model.TyCString)},
	}
	for name, pair := range pairs {
		t.Run(name, func(t *testing.T) {
			if ModuleID(pair[0]) == ModuleID(pair[1]) {
				t.Error("identity token does not separate the two types")
			}
		})
	}
}

func TestPositionsDoNotAffectToken(t *testing.T) {
	a := sampleModule()
	b := sampleModule()
	b.Shared.PerTaskPos.Filename = "elsewhere.go"
	b.Shared.PerTaskPos.Line = 99
	if ModuleID(a) != ModuleID(b) {
		t.Error("source positions leaked into the identity token")
	}
}
