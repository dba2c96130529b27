// Package schema checks a rendered interface descriptor against the
// embedded CUE definition before any artifact is written to disk.
package schema

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed vmod.cue
var schemaSrc string

var (
	once   sync.Once
	ctx    *cue.Context
	docDef cue.Value
)

func compile() {
	ctx = cuecontext.New()
	v := ctx.CompileString(schemaSrc, cue.Filename("vmod.cue"))
	if err := v.Err(); err != nil {
		panic(fmt.Sprintf("embedded descriptor schema does not compile: %v", err))
	}
	docDef = v.LookupPath(cue.ParsePath("#Doc"))
	if err := docDef.Err(); err != nil {
		panic(fmt.Sprintf("embedded descriptor schema lacks #Doc: %v", err))
	}
}

// Validate checks one descriptor JSON document. A nil return means every
// fragment matches the definition.
func Validate(doc []byte) error {
	once.Do(compile)

	expr, err := cuejson.Extract("descriptor.json", doc)
	if err != nil {
		return fmt.Errorf("descriptor is not valid JSON: %w", err)
	}
	data := ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return err
	}
	return docDef.Unify(data).Validate(cue.Concrete(true), cue.Final())
}
