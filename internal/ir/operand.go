package ir

import (
	"fmt"
	"math"
	"strconv"
)

// OperandKind identifies what an Operand holds.
type OperandKind uint8

const (
	OperandNil OperandKind = iota
	OperandInt
	OperandFloat
	OperandBool
	OperandChar
	OperandTemp
	OperandPointer
)

var operandKindNames = [...]string{
	OperandNil:     "nil",
	OperandInt:     "int",
	OperandFloat:   "float",
	OperandBool:    "bool",
	OperandChar:    "char",
	OperandTemp:    "temp",
	OperandPointer: "pointer",
}

func (k OperandKind) String() string {
	if int(k) < len(operandKindNames) {
		return operandKindNames[k]
	}
	return fmt.Sprintf("OperandKind(%d)", k)
}

// Operand is the value representation of the compiled path: a primitive, a
// temp-variable reference or a pointer.
//
// A pointer holds a data-section offset until relocation, after which it
// holds a live address and Relocated is set.
type Operand struct {
	Kind      OperandKind `cbor:"1,keyasint"`
	Data      uint64      `cbor:"2,keyasint"`
	Relocated bool        `cbor:"3,keyasint,omitempty"`
}

// Constructors

func NilOp() Operand {
	return Operand{Kind: OperandNil}
}

func IntOp(v int64) Operand {
	return Operand{Kind: OperandInt, Data: uint64(v)}
}

func FloatOp(v float64) Operand {
	return Operand{Kind: OperandFloat, Data: math.Float64bits(v)}
}

func BoolOp(v bool) Operand {
	var data uint64
	if v {
		data = 1
	}
	return Operand{Kind: OperandBool, Data: data}
}

func CharOp(r rune) Operand {
	return Operand{Kind: OperandChar, Data: uint64(r)}
}

func TempOp(index int) Operand {
	return Operand{Kind: OperandTemp, Data: uint64(index)}
}

// PointerOp is a section-relative pointer.
func PointerOp(offset uint64) Operand {
	return Operand{Kind: OperandPointer, Data: offset}
}

// AddressOp is a pointer already holding a live address.
func AddressOp(addr uint64) Operand {
	return Operand{Kind: OperandPointer, Data: addr, Relocated: true}
}

// Accessors

func (o Operand) AsInt() int64 {
	return int64(o.Data)
}

func (o Operand) AsFloat() float64 {
	return math.Float64frombits(o.Data)
}

func (o Operand) AsBool() bool {
	return o.Data == 1
}

func (o Operand) AsChar() rune {
	return rune(o.Data)
}

func (o Operand) Temp() int {
	return int(o.Data)
}

func (o Operand) IsTemp() bool {
	return o.Kind == OperandTemp
}

// Truthy: nil and false are falsy.
func (o Operand) Truthy() bool {
	switch o.Kind {
	case OperandNil:
		return false
	case OperandBool:
		return o.AsBool()
	}
	return true
}

// String renders the operand for disassembly.
func (o Operand) String() string {
	switch o.Kind {
	case OperandNil:
		return "nil"
	case OperandInt:
		return strconv.FormatInt(o.AsInt(), 10)
	case OperandFloat:
		return FormatFloat(o.AsFloat())
	case OperandBool:
		return strconv.FormatBool(o.AsBool())
	case OperandChar:
		return strconv.QuoteRune(o.AsChar())
	case OperandTemp:
		return "t" + strconv.Itoa(o.Temp())
	case OperandPointer:
		if o.Relocated {
			return fmt.Sprintf("@%#x", o.Data)
		}
		return fmt.Sprintf("data+%d", o.Data)
	}
	return "?"
}

// FormatFloat always shows a fractional part for integral floats.
func FormatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
