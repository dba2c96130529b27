package gen

import (
	"fmt"
	"strings"

	"github.com/varnish-go/vmodgen/model"
)

// docsUnit renders the module reference in Markdown: one signature heading
// per function with its doc text, objects with their constructors and
// methods grouped underneath.
func docsUnit(info *model.VmodInfo) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# VMOD %s\n", info.Name)
	if info.Docs != "" {
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(info.Docs))
	}

	var funcs, events []*model.FuncInfo
	for i := range info.Funcs {
		fn := &info.Funcs[i]
		if fn.Kind == model.KindEvent {
			events = append(events, fn)
		} else {
			funcs = append(funcs, fn)
		}
	}

	if len(funcs) > 0 {
		b.WriteString("\n## Functions\n")
		for _, fn := range funcs {
			writeDocsFunc(&b, info.Name+"."+fn.Name, fn)
		}
	}

	for i := range info.Objects {
		ob := &info.Objects[i]
		fmt.Fprintf(&b, "\n## Object %s\n", ob.Name)
		if ob.Docs != "" {
			fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(ob.Docs))
		}
		writeDocsFunc(&b, fmt.Sprintf("%s = %s.%s", ob.Name, info.Name, ob.Name), &ob.Constructor)
		for j := range ob.Methods {
			m := &ob.Methods[j]
			writeDocsFunc(&b, fmt.Sprintf("%s.%s", ob.Name, m.Name), m)
		}
	}

	if len(events) > 0 {
		b.WriteString("\n## Events\n")
		for _, fn := range events {
			fmt.Fprintf(&b, "\nThe module subscribes to VCL lifecycle events (handler `%s`).\n", fn.GoName)
		}
	}
	return []byte(b.String())
}

func writeDocsFunc(b *strings.Builder, display string, fn *model.FuncInfo) {
	fmt.Fprintf(b, "\n### %s %s(%s)\n", fn.Returns.Value.VCCType(), display, docsArgs(fn))
	if fn.Docs != "" {
		fmt.Fprintf(b, "\n%s\n", strings.TrimSpace(fn.Docs))
	}
}

// docsArgs renders the value arguments the VCL author sees; runtime-plumbing
// parameters are omitted. Optional arguments are bracketed, defaults shown
// inline.
func docsArgs(fn *model.FuncInfo) string {
	var parts []string
	for _, a := range fn.Args {
		v, ok := a.Type.(model.ValueParam)
		if !ok {
			continue
		}
		s := fmt.Sprintf("%s %s", v.Ty.VCCType(), a.Name)
		if v.Default != nil {
			s = fmt.Sprintf("%s = %v", s, v.Default)
		}
		if v.Kind == model.KindOptional {
			s = "[" + s + "]"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
