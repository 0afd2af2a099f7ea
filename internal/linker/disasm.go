package linker

import (
	"fmt"
	"strings"

	"github.com/funvibe/kestrel/internal/ir"
)

// Disassemble returns a human-readable listing of the flat program.
func Disassemble(p *Program) string {
	var sb strings.Builder

	for offset, ins := range p.Code {
		if fn, ok := p.FunctionAt(offset); ok {
			sb.WriteString(fmt.Sprintf("== %s ==\n", fn.Name))
		}
		sb.WriteString(fmt.Sprintf("%04d ", offset))
		if offset > 0 && p.Lines[offset] == p.Lines[offset-1] {
			sb.WriteString("   | ")
		} else {
			sb.WriteString(fmt.Sprintf("%4d ", p.Lines[offset]))
		}
		sb.WriteString(describe(p, ins))
		sb.WriteString("\n")
	}

	if len(p.Data) > 0 {
		sb.WriteString("== data ==\n")
		for off := 0; off < len(p.Data); {
			s, _ := ir.String(p.Data, uint64(off))
			sb.WriteString(fmt.Sprintf("%04d %q\n", off, s))
			off += len(s) + 1
		}
	}
	return sb.String()
}

func describe(p *Program, ins ir.Instruction) string {
	switch ins.Op {
	case ir.OP_JUMP:
		return fmt.Sprintf("%-16s -> %04d", ins.Op, ins.A.AsInt())
	case ir.OP_JUMP_UNLESS:
		return fmt.Sprintf("%-16s %s -> %04d", ins.Op, ins.A, ins.B.AsInt())
	case ir.OP_CALL:
		target := int(ins.A.AsInt())
		if _, ok := p.FunctionAt(target); !ok {
			return fmt.Sprintf("%-16s %s%s/%d @%04d (no entry)", ins.Op, dest(ins), ins.Name, ins.B.AsInt(), target)
		}
		return fmt.Sprintf("%-16s %s%s/%d @%04d", ins.Op, dest(ins), ins.Name, ins.B.AsInt(), target)
	case ir.OP_CALL_NATIVE:
		symbol := "?"
		if i := int(ins.A.AsInt()); i >= 0 && i < len(p.Externs) {
			symbol = p.Externs[i].Symbol
		}
		return fmt.Sprintf("%-16s %s%s/%d (%s)", ins.Op, dest(ins), ins.Name, ins.B.AsInt(), symbol)
	case ir.OP_GET_GLOBAL:
		return fmt.Sprintf("%-16s %s%s", ins.Op, dest(ins), ins.Name)
	case ir.OP_SET_GLOBAL:
		return fmt.Sprintf("%-16s %s = %s", ins.Op, ins.Name, ins.B)
	case ir.OP_END, ir.OP_HALT:
		return ins.Op.String()
	}
	if ins.Op.IsBinary() {
		return fmt.Sprintf("%-16s %s%s, %s", ins.Op, dest(ins), ins.A, ins.B)
	}
	return fmt.Sprintf("%-16s %s%s", ins.Op, dest(ins), ins.A)
}

func dest(ins ir.Instruction) string {
	if ins.Dest == ir.NoDest {
		return ""
	}
	return fmt.Sprintf("t%d = ", ins.Dest)
}
