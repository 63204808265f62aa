package ir

import (
	"fmt"
	"strings"
)

// Format renders a method in a readable textual form.
func Format(m *Method) string {
	var b strings.Builder

	b.WriteString("method ")
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Mode != ByValue {
			b.WriteString(p.Mode.String())
			b.WriteByte(' ')
		}
		b.WriteString(p.Name)
		b.WriteByte(' ')
		b.WriteString(p.Type.String())
	}
	b.WriteString(") ")
	b.WriteString(m.Return.String())
	if m.Static {
		b.WriteString(" static")
	}
	if m.Hidden {
		b.WriteString(" hidden")
	}
	b.WriteByte('\n')

	for i, t := range m.Locals {
		fmt.Fprintf(&b, "  local %d %s\n", i, t)
	}
	for i, a := range m.Aspects {
		fmt.Fprintf(&b, "  aspect %d %s\n", i, a)
	}

	for i, blk := range m.Blocks {
		fmt.Fprintf(&b, "  b%d:\n", i)
		for _, in := range blk.Instrs {
			b.WriteString("    ")
			b.WriteString(FormatInstruction(m, in))
			b.WriteByte('\n')
		}
	}

	for i := range m.Regions {
		r := &m.Regions[i]
		fmt.Fprintf(&b, "  region try %s", formatRange(r.Try))
		for _, c := range r.Catches {
			typ := c.Type
			if typ == "" {
				typ = "*"
			}
			fmt.Fprintf(&b, " catch %s %s", typ, formatRange(c.Handler))
		}
		if r.Finally != nil {
			fmt.Fprintf(&b, " finally %s", formatRange(*r.Finally))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatInstruction renders one instruction. m may be nil.
func FormatInstruction(m *Method, in Instruction) string {
	name := in.Op.String()
	switch imm := in.Imm.(type) {
	case nil:
		return name
	case ConstImm:
		return name + " " + imm.Value.String()
	case LocalImm:
		return fmt.Sprintf("%s %d", name, imm.Index)
	case ParamImm:
		return fmt.Sprintf("%s %d", name, imm.Index)
	case CountImm:
		return fmt.Sprintf("%s %d", name, imm.N)
	case CallImm:
		return fmt.Sprintf("%s %s/%d", name, imm.Method, imm.Argc)
	case BranchImm:
		return fmt.Sprintf("%s b%d", name, imm.Target)
	case CondBranchImm:
		return fmt.Sprintf("%s b%d b%d", name, imm.Then, imm.Else)
	case NewExceptionImm:
		return name + " " + imm.Type
	case SuspendImm:
		return name + " " + imm.Kind.String()
	case ContextImm:
		kind := "execution"
		if imm.Interception {
			kind = "interception"
		}
		return fmt.Sprintf("%s %d %s", name, imm.Local, kind)
	case AdviceImm:
		return fmt.Sprintf("%s %d %s.%s", name, imm.Local, aspectName(m, imm.Aspect), imm.Hook)
	case InterceptImm:
		s := fmt.Sprintf("%s %d %s -> %s", name, imm.Local, aspectName(m, imm.Aspect), imm.Target)
		if imm.Async {
			s += " async"
		}
		return s
	}
	return fmt.Sprintf("%s %v", name, in.Imm)
}

func aspectName(m *Method, idx uint32) string {
	if m != nil && int(idx) < len(m.Aspects) {
		return m.Aspects[idx]
	}
	return fmt.Sprintf("#%d", idx)
}

func formatRange(r BlockRange) string {
	return fmt.Sprintf("[b%d,b%d)", r.Start, r.End)
}

func (m *Method) String() string { return Format(m) }
