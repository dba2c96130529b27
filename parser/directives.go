package parser

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"

	"github.com/varnish-go/vmodgen/diag"
)

// Directive vocabulary, all in the //vmod: comment namespace:
//
//	//vmod:function            export a package-level function
//	//vmod:event               export a package-level function as the event handler
//	//vmod:object              export a struct type as an object
//	//vmod:default name=lit    default literal for a value parameter
//	//vmod:required name       required-but-nullable marker
type directives struct {
	function bool
	event    bool
	object   bool
	defaults map[string]any
	required map[string]bool
}

// parseDirectives extracts //vmod: directives from a doc comment. Problems
// are recorded against pos; doc text itself comes from CommentGroup.Text,
// which already omits directive lines.
func parseDirectives(doc *ast.CommentGroup, pos token.Position, errs *diag.Errors) directives {
	d := directives{
		defaults: map[string]any{},
		required: map[string]bool{},
	}
	if doc == nil {
		return d
	}
	for _, c := range doc.List {
		line, ok := strings.CutPrefix(c.Text, "//vmod:")
		if !ok {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		switch verb {
		case "function":
			d.function = true
		case "event":
			d.event = true
		case "object":
			d.object = true
		case "default":
			name, lit, ok := strings.Cut(rest, "=")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				errs.Add(pos, "malformed //vmod:default directive; expected //vmod:default <param>=<literal>")
				continue
			}
			val, err := parseLiteral(strings.TrimSpace(lit))
			if err != nil {
				errs.Addf(pos, "bad default for parameter %q: %v", name, err)
				continue
			}
			d.defaults[name] = val
		case "required":
			if rest == "" {
				errs.Add(pos, "malformed //vmod:required directive; expected //vmod:required <param>")
				continue
			}
			d.required[rest] = true
		default:
			errs.Addf(pos, "unknown directive //vmod:%s", verb)
		}
	}
	return d
}

// parseLiteral turns a default-value literal into a Go value: quoted
// strings, bools, integers, or floats.
func parseLiteral(lit string) (any, error) {
	if lit == "" {
		return nil, strconv.ErrSyntax
	}
	if lit[0] == '"' || lit[0] == '`' {
		return strconv.Unquote(lit)
	}
	switch lit {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return f, nil
	}
	return nil, strconv.ErrSyntax
}
