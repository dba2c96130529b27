package schema

import (
	"strings"
	"testing"
)

const validDoc = `[
  ["$VMOD", "1.0", "example", "Vmod_vmod_example_Func",
   "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
   "Varnish 7.6.0", "0", "0"],
  ["$CPROTO", "typedef VCL_BOOL td_vmod_example_isEven(VRT_CTX, VCL_INT n);"],
  ["$FUNC", "isEven", [["BOOL"], "Vmod_vmod_example_Func.f_isEven", "", ["INT", "n"], ["PRIV_TASK", "state"]]],
  ["$EVENT", "Vmod_vmod_example_Func.f_onEvent"],
  ["$OBJ", "kv", {"NULL_OK": false}, "struct vmod_example_kv",
   ["$INIT", [["VOID"], "Vmod_vmod_example_Func.f_kv__init", ""]],
   ["$FINI", [["VOID"], "Vmod_vmod_example_Func.f_kv__fini", ""]],
   ["$METHOD", "get", [["STRING"], "Vmod_vmod_example_Func.f_kv_get", "", ["STRING", "key"]]]]
]`

func TestValidateAccepts(t *testing.T) {
	if err := Validate([]byte(validDoc)); err != nil {
		t.Fatalf("Validate rejected a well-formed descriptor: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "bad version",
			doc:  strings.Replace(validDoc, `"1.0"`, `"2.0"`, 1),
		},
		{
			name: "bad file id",
			doc:  strings.Replace(validDoc, strings.Repeat("a", 64), "nothex", 1),
		},
		{
			name: "unknown type tag",
			doc:  strings.Replace(validDoc, `["INT", "n"]`, `["INTEGER", "n"]`, 1),
		},
		{
			name: "nameless shared slot",
			doc:  strings.Replace(validDoc, `["PRIV_TASK", "state"]`, `["PRIV_TASK"]`, 1),
		},
		{
			name: "not json",
			doc:  "{",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate([]byte(tt.doc)); err == nil {
				t.Fatal("Validate accepted a malformed descriptor")
			}
		})
	}
}
