package gen

import (
	"fmt"
	"strings"

	"github.com/varnish-go/vmodgen/model"
	"github.com/varnish-go/vmodgen/names"
)

// headerUnit renders the generated header: the $CPROTO text wrapped in an
// include guard, pulling in the host ABI headers so the file stands alone.
func headerUnit(info *model.VmodInfo, cproto string) []byte {
	guard := fmt.Sprintf("VMOD_%s_VMOD_H", strings.ToUpper(info.Name))
	var b strings.Builder
	b.WriteString("/* Code generated by vmodgen. DO NOT EDIT. */\n\n")
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", guard, guard)
	b.WriteString("#include \"vdef.h\"\n#include \"vrt.h\"\n\n")
	b.WriteString(cproto)
	fmt.Fprintf(&b, "\n#endif /* %s */\n", guard)
	return []byte(b.String())
}

// cUnit renders the glue translation unit: extern declarations for the Go
// wrapper symbols, the framed descriptor as a byte literal, the loader
// entry record, and a constructor that fills the function table before the
// host reads it.
func cUnit(info *model.VmodInfo, headerFile, fileID string, framedJSON []byte) []byte {
	mod := names.New(info.Name)
	var b strings.Builder
	b.WriteString("/* Code generated by vmodgen. DO NOT EDIT. */\n\n")
	b.WriteString("#include <stddef.h>\n")
	fmt.Fprintf(&b, "#include %q\n\n", headerFile)

	for _, fn := range info.AllFuncs() {
		n := funcNames(mod, info, fn)
		if fn.Kind == model.KindEvent {
			fmt.Fprintf(&b, "vmod_event_f %s;\n", n.WrapperFnName())
		} else {
			fmt.Fprintf(&b, "%s %s;\n", n.TypedefName(), n.WrapperFnName())
		}
	}

	b.WriteString("\nstatic const char Vmod_Json[] =\n")
	lines := strings.Split(string(framedJSON), "\n")
	for i, line := range lines {
		nl := "\\n"
		if i == len(lines)-1 {
			nl = ""
		}
		fmt.Fprintf(&b, "\t\"%s%s\"", escapeC(line), nl)
		if i == len(lines)-1 {
			b.WriteString(";\n")
		} else {
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nconst struct vmod_data %s = {\n", mod.DataStructName())
	b.WriteString("\t.vrt_major = 0,\n")
	b.WriteString("\t.vrt_minor = 0,\n")
	fmt.Fprintf(&b, "\t.file_id = \"%s\",\n", fileID)
	fmt.Fprintf(&b, "\t.name = \"%s\",\n", info.Name)
	fmt.Fprintf(&b, "\t.func = &%s,\n", mod.FuncStructName())
	fmt.Fprintf(&b, "\t.func_len = sizeof(%s),\n", mod.FuncStructName())
	fmt.Fprintf(&b, "\t.func_name = \"%s\",\n", mod.FuncStructName())
	b.WriteString("\t.proto = NULL,\n")
	b.WriteString("\t.json = Vmod_Json,\n")
	b.WriteString("\t.abi = VMOD_ABI_Version,\n")
	b.WriteString("};\n\n")

	fmt.Fprintf(&b, "__attribute__((constructor)) static void\nvmod_%s_wire(void)\n{\n", info.Name)
	for _, fn := range info.AllFuncs() {
		n := funcNames(mod, info, fn)
		fmt.Fprintf(&b, "\t%s.%s = %s;\n", mod.FuncStructName(), n.TableFieldName(), n.WrapperFnName())
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

// escapeC escapes one line of descriptor text for a C string literal.
// Control bytes use three-digit octal escapes so a following digit cannot
// extend them.
func escapeC(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			b.WriteString("\\\"")
		case c == '\\':
			b.WriteString("\\\\")
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
