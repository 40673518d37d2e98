package ir

import (
	"io"
	"strings"
)

// Preamble is emitted ahead of every function. $fmt backs the printf call
// that reports top-level results. QBE has no declaration syntax, so the pow
// signature is only documented; the linker resolves it from libm.
const Preamble = "data $fmt = { b \"%2.4f\\n\", b 0 }\n" +
	"# export function d $pow(d %x, d %y)\n"

func (b Binary) String() string {
	if b.Op == Exp {
		return Call{Func: PowSymbol, Args: []Arg{D(b.X), D(b.Y)}}.String()
	}
	return b.Op.String() + " " + b.X.String() + ", " + b.Y.String()
}

func (c Call) String() string {
	var sb strings.Builder
	sb.WriteString("call $")
	sb.WriteString(c.Func)
	sb.WriteByte('(')
	for i, a := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	if len(c.VarArgs) > 0 {
		if len(c.Args) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
		for _, a := range c.VarArgs {
			sb.WriteString(", ")
			sb.WriteString(a.String())
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// String renders the instruction without indentation.
func (in Instruction) String() string {
	return in.Dest.String() + " =" + in.Type.String() + " " + in.Op.String()
}

// String renders the complete function definition.
func (f *Function) String() string {
	var sb strings.Builder
	f.write(&sb)
	return sb.String()
}

func (f *Function) write(sb *strings.Builder) {
	if f.Exported {
		sb.WriteString("export ")
	}
	sb.WriteString("function ")
	sb.WriteString(f.ReturnType.String())
	sb.WriteString(" $")
	sb.WriteString(f.Name)
	sb.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(") {\n@start\n")
	for _, in := range f.Body {
		sb.WriteByte('\t')
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	sb.WriteString("\tret ")
	sb.WriteString(f.Return.String())
	sb.WriteString("\n}\n")
}

// Format renders p as QBE SSA text: the preamble, the entry function, then
// each declared function, separated by blank lines. The output depends only
// on p.
func Format(p *Program) string {
	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteByte('\n')
	p.Entry.write(&sb)
	for i := range p.Functions {
		sb.WriteByte('\n')
		p.Functions[i].write(&sb)
	}
	return sb.String()
}

// WriteTo writes Format(p) to w.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, Format(p))
	return int64(n), err
}
