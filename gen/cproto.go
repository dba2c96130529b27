package gen

import (
	"fmt"
	"strings"

	"github.com/varnish-go/vmodgen/model"
	"github.com/varnish-go/vmodgen/names"
)

// cprotoFunc renders the native prototype block for one function: the
// optional-arguments struct (when the function has optional parameters)
// followed by the typedef the function table refers to. Event handlers
// use the host-supplied vmod_event_f type and contribute nothing here.
func cprotoFunc(n names.Names, fn *model.FuncInfo) string {
	if fn.Kind == model.KindEvent {
		return ""
	}

	var b strings.Builder
	if fn.HasOptionalArgs {
		fmt.Fprintf(&b, "struct %s {\n", n.ArgStructName())
		for _, a := range fn.Args {
			if v, ok := a.Type.(model.ValueParam); ok && v.Kind == model.KindOptional {
				fmt.Fprintf(&b, "\tchar\t\t\tvalid_%s;\n", a.Name)
			}
		}
		for _, a := range fn.Args {
			switch t := a.Type.(type) {
			case model.ValueParam:
				fmt.Fprintf(&b, "\t%s\t\t\t%s;\n", t.Ty.CType(), a.Name)
			case model.PerTaskParam, model.PerVCLRefParam, model.PerVCLMutParam:
				fmt.Fprintf(&b, "\tstruct vmod_priv\t*%s;\n", a.Name)
			}
		}
		b.WriteString("};\n")
	}

	fmt.Fprintf(&b, "typedef %s %s(", fn.Returns.Value.CType(), n.TypedefName())
	args := cprotoArgs(n, fn)
	if len(args) == 1 {
		fmt.Fprintf(&b, "%s);\n", args[0])
	} else {
		b.WriteString("\n    " + strings.Join(args, ",\n    ") + ");\n")
	}
	return b.String()
}

// cprotoArgs lists the native argument declarations in ABI order.
func cprotoArgs(n names.Names, fn *model.FuncInfo) []string {
	var args []string
	switch fn.Kind {
	case model.KindDestructor:
		args = append(args, n.ObjStructName()+" **")
		return args
	case model.KindConstructor:
		args = append(args, "VRT_CTX", n.ObjStructName()+" **", "const char *vcl_name")
	case model.KindMethod:
		args = append(args, "VRT_CTX", n.ObjStructName()+" *")
	default:
		args = append(args, "VRT_CTX")
	}

	if fn.HasOptionalArgs {
		args = append(args, fmt.Sprintf("struct %s *args", n.ArgStructName()))
		return args
	}
	for _, a := range fn.Args {
		switch t := a.Type.(type) {
		case model.ValueParam:
			args = append(args, fmt.Sprintf("%s %s", t.Ty.CType(), a.Name))
		case model.PerTaskParam, model.PerVCLRefParam, model.PerVCLMutParam:
			args = append(args, fmt.Sprintf("struct vmod_priv *%s", a.Name))
		}
	}
	return args
}

// cprotoModule assembles the whole $CPROTO block: object struct forward
// declarations, every function's typedefs, then the function table type
// and its instance.
func cprotoModule(info *model.VmodInfo) string {
	mod := names.New(info.Name)
	var b strings.Builder

	for _, ob := range info.Objects {
		fmt.Fprintf(&b, "%s;\n", mod.ToObj(ob.Name).ObjStructName())
	}
	if len(info.Objects) > 0 {
		b.WriteString("\n")
	}

	for _, fn := range info.AllFuncs() {
		if p := cprotoFunc(funcNames(mod, info, fn), fn); p != "" {
			b.WriteString(p)
		}
	}

	fmt.Fprintf(&b, "\nstruct %s {\n", mod.FuncStructName())
	for _, fn := range info.AllFuncs() {
		n := funcNames(mod, info, fn)
		if fn.Kind == model.KindEvent {
			fmt.Fprintf(&b, "\tvmod_event_f\t\t\t*%s;\n", n.TableFieldName())
		} else {
			fmt.Fprintf(&b, "\t%s\t\t\t*%s;\n", n.TypedefName(), n.TableFieldName())
		}
	}
	b.WriteString("};\n")
	fmt.Fprintf(&b, "static struct %s %s;\n", mod.FuncStructName(), mod.FuncStructName())
	return b.String()
}

// funcNames extends the module chain to one function, routing through the
// owning object when the function belongs to one.
func funcNames(mod names.Names, info *model.VmodInfo, fn *model.FuncInfo) names.Names {
	if obj := owningObject(info, fn); obj != "" {
		return mod.ToObj(obj).ToFunc(fn.Kind, fn.Name)
	}
	return mod.ToFunc(fn.Kind, fn.Name)
}

func owningObject(info *model.VmodInfo, fn *model.FuncInfo) string {
	for i := range info.Objects {
		for _, f := range info.Objects[i].AllFuncs() {
			if f == fn {
				return info.Objects[i].Name
			}
		}
	}
	return ""
}
