package model

import "testing"

func TestParamTyTables(t *testing.T) {
	tests := []struct {
		ty   ParamTy
		vcc  string
		c    string
		mand bool
	}{
		{TyBool, "BOOL", "VCL_BOOL", false},
		{TyDuration, "DURATION", "VCL_DURATION", false},
		{TyFloat64, "REAL", "VCL_REAL", false},
		{TyInt64, "INT", "VCL_INT", false},
		{TyProbe, "PROBE", "VCL_PROBE", true},
		{TyProbeRef, "PROBE", "VCL_PROBE", true},
		{TySocketAddr, "IP", "VCL_IP", true},
		{TyString, "STRING", "VCL_STRING", false},
		{TyCString, "STRING", "VCL_STRING", false},
	}
	for _, tt := range tests {
		t.Run(tt.ty.String(), func(t *testing.T) {
			if got := tt.ty.VCCType(); got != tt.vcc {
				t.Errorf("VCCType() = %q, want %q", got, tt.vcc)
			}
			if got := tt.ty.CType(); got != tt.c {
				t.Errorf("CType() = %q, want %q", got, tt.c)
			}
			if got := tt.ty.MustBeOptional(); got != tt.mand {
				t.Errorf("MustBeOptional() = %v, want %v", got, tt.mand)
			}
		})
	}
}

func TestReturnTyTables(t *testing.T) {
	tests := []struct {
		name string
		ty   ReturnTy
		vcc  string
		c    string
	}{
		{"void", VoidReturn{}, "VOID", "VCL_VOID"},
		{"self", SelfReturn{}, "VOID", "VCL_VOID"},
		{"int", ValueReturn{TyInt64}, "INT", "VCL_INT"},
		{"string", StringReturn{}, "STRING", "VCL_STRING"},
		{"bytes", BytesReturn{}, "STRING", "VCL_STRING"},
		{"backend", BackendReturn{}, "BACKEND", "VCL_BACKEND"},
		{"raw", RawReturn{"VCL_STRING"}, "STRING", "VCL_STRING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ty.VCCType(); got != tt.vcc {
				t.Errorf("VCCType() = %q, want %q", got, tt.vcc)
			}
			if got := tt.ty.CType(); got != tt.c {
				t.Errorf("CType() = %q, want %q", got, tt.c)
			}
		})
	}
}

func TestFuncKindTokens(t *testing.T) {
	tests := []struct {
		kind  FuncKind
		token string
	}{
		{KindFunction, "$FUNC"},
		{KindConstructor, "$INIT"},
		{KindDestructor, "$FINI"},
		{KindMethod, "$METHOD"},
		{KindEvent, "$EVENT"},
	}
	for _, tt := range tests {
		if got := tt.kind.VCCToken(); got != tt.token {
			t.Errorf("%v.VCCToken() = %q, want %q", tt.kind, got, tt.token)
		}
	}
}

func TestAllFuncsOrder(t *testing.T) {
	info := &VmodInfo{
		Name:  "example",
		Funcs: []FuncInfo{{Kind: KindFunction, Name: "plain"}},
		Objects: []ObjInfo{{
			Name:        "obj1",
			Constructor: FuncInfo{Kind: KindConstructor, Name: "NewObj1"},
			Destructor:  FuncInfo{Kind: KindDestructor, Name: "_fini"},
			Methods:     []FuncInfo{{Kind: KindMethod, Name: "run"}},
		}},
	}
	var got []string
	for _, f := range info.AllFuncs() {
		got = append(got, f.Name)
	}
	want := []string{"plain", "NewObj1", "_fini", "run"}
	if len(got) != len(want) {
		t.Fatalf("AllFuncs() returned %d funcs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllFuncs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
