// Package linker flattens the compiler's chunks into one absolute-offset
// instruction array and prepares it for execution.
package linker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/funvibe/kestrel/internal/ir"
)

// Function describes one chunk inside the flat program.
type Function struct {
	Name   string `cbor:"1,keyasint"`
	Entry  int    `cbor:"2,keyasint"` // absolute offset of the first instruction
	Temps  int    `cbor:"3,keyasint"` // register window slots used
	Params int    `cbor:"4,keyasint"`
}

// Program is a linked, flat program. The top-level code starts at offset 0.
type Program struct {
	ID        string           `cbor:"1,keyasint"`
	Code      []ir.Instruction `cbor:"2,keyasint"`
	Lines     []int            `cbor:"3,keyasint"`
	Functions []Function       `cbor:"4,keyasint"` // Functions[0] is the top level
	Data      []byte           `cbor:"5,keyasint"`
	Externs   []ir.Extern      `cbor:"6,keyasint"`
	Globals   map[string]int   `cbor:"7,keyasint"`

	// Set by Relocate.
	Base      uint64 `cbor:"8,keyasint"`
	Relocated bool   `cbor:"9,keyasint"`
}

// FunctionAt returns the function whose entry is offset.
func (p *Program) FunctionAt(offset int) (Function, bool) {
	for _, fn := range p.Functions {
		if fn.Entry == offset {
			return fn, true
		}
	}
	return Function{}, false
}

// Flatten concatenates every chunk of m, top level first, and resolves
// labels and call targets to absolute offsets.
//
// Per chunk, pass one records for every label the absolute index of the
// instruction following it; pass two re-emits everything except labels,
// rewriting jump targets through that table and call targets to the
// callee's function index. A final pass replaces function indices with
// entry offsets.
func Flatten(m *ir.Module) (*Program, error) {
	if len(m.Chunks) == 0 || m.Chunks[0].Name != ir.TopLevel {
		return nil, fmt.Errorf("module has no top-level chunk")
	}

	prog := &Program{
		ID:      uuid.NewString(),
		Data:    append([]byte(nil), m.Data...),
		Externs: append([]ir.Extern(nil), m.Externs...),
		Globals: make(map[string]int, len(m.Globals)),
	}
	for name, slot := range m.Globals {
		prog.Globals[name] = slot
	}

	start := 0
	for _, chunk := range m.Chunks {
		labels := make(map[int64]int)
		pos := start
		for _, ins := range chunk.Code {
			if ins.Op == ir.OP_LABEL {
				labels[ins.A.AsInt()] = pos
				continue
			}
			pos++
		}

		prog.Functions = append(prog.Functions, Function{
			Name:   chunk.Name,
			Entry:  start,
			Temps:  chunk.Temps(),
			Params: len(chunk.Params),
		})

		for _, ins := range chunk.Code {
			switch ins.Op {
			case ir.OP_LABEL:
				continue
			case ir.OP_JUMP:
				target, ok := labels[ins.A.AsInt()]
				if !ok {
					return nil, fmt.Errorf("%s: jump to undefined label L%d", chunk.Name, ins.A.AsInt())
				}
				ins.A = ir.IntOp(int64(target))
			case ir.OP_JUMP_UNLESS:
				target, ok := labels[ins.B.AsInt()]
				if !ok {
					return nil, fmt.Errorf("%s: jump to undefined label L%d", chunk.Name, ins.B.AsInt())
				}
				ins.B = ir.IntOp(int64(target))
			case ir.OP_CALL:
				index, ok := m.Functions[ins.Name]
				if !ok || index == 0 {
					return nil, fmt.Errorf("%s: call to undefined function %s", chunk.Name, ins.Name)
				}
				ins.A = ir.IntOp(int64(index))
			}
			prog.Code = append(prog.Code, ins)
			prog.Lines = append(prog.Lines, ins.Line)
		}
		start = pos
	}

	// Backpatch call sites now that every entry is known.
	for i := range prog.Code {
		if prog.Code[i].Op == ir.OP_CALL {
			index := prog.Code[i].A.AsInt()
			prog.Code[i].A = ir.IntOp(int64(prog.Functions[index].Entry))
		}
	}

	log.Debugf("linked %d instructions in %d functions", len(prog.Code), len(prog.Functions))
	return prog, nil
}

// Relocate turns every section-relative pointer operand into a live
// address by adding base. A program is relocated at most once, so relocated
// and unrelocated pointers never mix.
func Relocate(prog *Program, base uint64) error {
	if prog.Relocated {
		return fmt.Errorf("program %s is already relocated", prog.ID)
	}
	for i := range prog.Code {
		relocate(&prog.Code[i].A, base)
		relocate(&prog.Code[i].B, base)
	}
	prog.Base = base
	prog.Relocated = true
	return nil
}

func relocate(op *ir.Operand, base uint64) {
	if op.Kind == ir.OperandPointer && !op.Relocated {
		*op = ir.AddressOp(base + op.Data)
	}
}

// Offset converts a pointer operand back to a data-section offset.
func (p *Program) Offset(op ir.Operand) (uint64, bool) {
	if op.Kind != ir.OperandPointer {
		return 0, false
	}
	if !op.Relocated {
		return op.Data, true
	}
	if op.Data < p.Base {
		return 0, false
	}
	return op.Data - p.Base, true
}
