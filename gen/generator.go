// Package gen turns a validated model into the four build artifacts: the
// framed interface descriptor, the native header, the glue translation
// unit, and the cgo wrapper unit. Generation is deterministic: the same
// model always yields byte-identical artifacts.
package gen

import (
	"fmt"

	"github.com/varnish-go/vmodgen/gen/schema"
	"github.com/varnish-go/vmodgen/model"
	"github.com/varnish-go/vmodgen/model/hash"
)

// DefaultABIVersion is the host ABI recorded in the descriptor when the
// manifest does not pin one.
const DefaultABIVersion = "Varnish 7.6.0"

// Options controls artifact generation.
type Options struct {
	// ABIVersion overrides the host ABI string in the descriptor header.
	ABIVersion string
	// SkipValidation disables schema-checking the descriptor before the
	// artifacts are handed back.
	SkipValidation bool
}

// Output is one complete generation result. FileID is the content-derived
// identity token; it changes exactly when the interface surface changes.
type Output struct {
	FileID string

	JSON   []byte
	Header []byte
	CUnit  []byte
	GoUnit []byte
	Docs   []byte

	JSONName   string
	HeaderName string
	CUnitName  string
	GoUnitName string
	DocsName   string
}

// Generate produces every artifact for one module.
func Generate(info *model.VmodInfo, opts Options) (*Output, error) {
	abi := opts.ABIVersion
	if abi == "" {
		abi = DefaultABIVersion
	}

	fileID := hash.ModuleID(info)
	cproto := cprotoModule(info)

	doc := jsonModule(info, fileID, abi, cproto)
	raw, err := encodeJSON(doc)
	if err != nil {
		return nil, err
	}
	if !opts.SkipValidation {
		if err := schema.Validate(raw); err != nil {
			return nil, fmt.Errorf("descriptor failed schema validation: %w", err)
		}
	}
	framed := frameJSON(raw)

	out := &Output{
		FileID:     fileID,
		JSON:       framed,
		JSONName:   info.Name + ".vmod.json",
		HeaderName: info.Name + "_vmod.h",
		CUnitName:  info.Name + "_vmod.c",
		GoUnitName: info.Name + "_vmod.go",
		DocsName:   "vmod_" + info.Name + ".md",
	}
	out.Header = headerUnit(info, cproto)
	out.CUnit = cUnit(info, out.HeaderName, fileID, framed)
	out.GoUnit, err = goUnit(info, out.HeaderName)
	if err != nil {
		return nil, err
	}
	out.Docs = docsUnit(info)
	return out, nil
}
