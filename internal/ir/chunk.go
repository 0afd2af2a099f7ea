package ir

import (
	"fmt"
	"strings"
)

// NoDest marks an instruction that produces no temp.
const NoDest = -1

// Instruction is one three-address instruction.
type Instruction struct {
	Op   Opcode  `cbor:"1,keyasint"`
	Dest int     `cbor:"2,keyasint"`
	A    Operand `cbor:"3,keyasint"`
	B    Operand `cbor:"4,keyasint"`
	Type Type    `cbor:"5,keyasint"`           // type of Dest
	Name string  `cbor:"6,keyasint,omitempty"` // callee or global name
	Line int     `cbor:"7,keyasint"`
}

func (ins Instruction) String() string {
	var out strings.Builder
	out.WriteString(ins.Op.String())
	if ins.Dest != NoDest {
		fmt.Fprintf(&out, " t%d:%s =", ins.Dest, ins.Type)
	}
	switch ins.Op {
	case OP_LABEL:
		fmt.Fprintf(&out, " L%d", ins.A.AsInt())
		return out.String()
	case OP_CALL, OP_CALL_NATIVE:
		fmt.Fprintf(&out, " %s/%d", ins.Name, ins.B.AsInt())
		if ins.A.Kind != OperandNil {
			fmt.Fprintf(&out, " -> %d", ins.A.AsInt())
		}
		return out.String()
	case OP_GET_GLOBAL, OP_SET_GLOBAL:
		fmt.Fprintf(&out, " %s(%s)", ins.Name, ins.A)
		if ins.Op == OP_SET_GLOBAL {
			fmt.Fprintf(&out, " %s", ins.B)
		}
		return out.String()
	}
	if ins.A.Kind != OperandNil || ins.Op == OP_MOVE || ins.Op == OP_RETURN || ins.Op == OP_PRINT || ins.Op == OP_PARAM {
		fmt.Fprintf(&out, " %s", ins.A)
	}
	if ins.B.Kind != OperandNil || ins.Op.IsBinary() {
		fmt.Fprintf(&out, " %s", ins.B)
	}
	return out.String()
}

// Chunk is the code of one function, or of the top level.
type Chunk struct {
	Name   string
	Params []Type
	Return Type
	Code   []Instruction
	// Types holds the inferred type of every temp, indexed by temp number.
	Types []Type
}

// NewChunk creates an empty chunk.
func NewChunk(name string) *Chunk {
	return &Chunk{Name: name, Return: Nil}
}

// Temps is the number of temps the chunk uses; its register window must be
// at least this large.
func (c *Chunk) Temps() int {
	return len(c.Types)
}

// NewTemp allocates a temp of type t and returns its index.
func (c *Chunk) NewTemp(t Type) int {
	c.Types = append(c.Types, t)
	return len(c.Types) - 1
}

// Emit appends an instruction and returns its position.
func (c *Chunk) Emit(ins Instruction) int {
	c.Code = append(c.Code, ins)
	return len(c.Code) - 1
}

// Extern is a native function imported with an extern declaration.
type Extern struct {
	Symbol string `cbor:"1,keyasint"`
	Name   string `cbor:"2,keyasint"`
	Params []Type `cbor:"3,keyasint"`
	Return Type   `cbor:"4,keyasint"`
}

// TopLevel is the name of the implicit top-level chunk.
const TopLevel = "<main>"

// Module is the compiler's output: one chunk per function with the top
// level first, plus the shared data section.
type Module struct {
	Chunks    []*Chunk
	Functions map[string]int // function name -> index into Chunks
	Data      []byte
	Externs   []Extern
	Globals   map[string]int // global name -> top-level temp

	strings map[string]uint64
}

func NewModule() *Module {
	return &Module{
		Chunks:    []*Chunk{NewChunk(TopLevel)},
		Functions: map[string]int{TopLevel: 0},
		Globals:   make(map[string]int),
		strings:   make(map[string]uint64),
	}
}

// AddString stores s NUL-terminated in the data section and returns its
// offset. Equal strings share storage.
func (m *Module) AddString(s string) uint64 {
	if off, ok := m.strings[s]; ok {
		return off
	}
	off := uint64(len(m.Data))
	m.Data = append(m.Data, s...)
	m.Data = append(m.Data, 0)
	m.strings[s] = off
	return off
}

// String reads the NUL-terminated string at offset off of data.
func String(data []byte, off uint64) (string, bool) {
	if off >= uint64(len(data)) {
		return "", false
	}
	end := off
	for end < uint64(len(data)) && data[end] != 0 {
		end++
	}
	return string(data[off:end]), true
}

// Dump renders every chunk, for debugging.
func (m *Module) Dump() string {
	var out strings.Builder
	for _, c := range m.Chunks {
		fmt.Fprintf(&out, "== %s (%d temps) ==\n", c.Name, c.Temps())
		for i, ins := range c.Code {
			fmt.Fprintf(&out, "%04d %s\n", i, ins)
		}
	}
	return out.String()
}
