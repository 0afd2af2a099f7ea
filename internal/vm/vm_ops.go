package vm

import (
	"math"

	"github.com/funvibe/kestrel/internal/ir"
)

func (vm *VM) unaryOp(op ir.Opcode, v ir.Operand) (ir.Operand, error) {
	switch op {
	case ir.OP_NEG:
		switch v.Kind {
		case ir.OperandInt:
			return ir.IntOp(-v.AsInt()), nil
		case ir.OperandFloat:
			return ir.FloatOp(-v.AsFloat()), nil
		}
		return ir.Operand{}, vm.runtimeError("operand of - must be a number, got %s", v.Kind)
	case ir.OP_NOT:
		if v.Kind != ir.OperandBool {
			return ir.Operand{}, vm.runtimeError("operand of ! must be bool, got %s", v.Kind)
		}
		return ir.BoolOp(!v.AsBool()), nil
	}
	return ir.Operand{}, vm.runtimeError("unknown unary opcode %s", op)
}

// binaryOp applies the same int/float promotion as the interpreter.
func (vm *VM) binaryOp(ins ir.Instruction, a, b ir.Operand) (ir.Operand, error) {
	op := ins.Op
	switch op {
	case ir.OP_EQ:
		return ir.BoolOp(equal(a, b)), nil
	case ir.OP_NE:
		return ir.BoolOp(!equal(a, b)), nil
	}

	// Pointer arithmetic scales by the element size.
	if a.Kind == ir.OperandPointer && b.Kind == ir.OperandInt && (op == ir.OP_ADD || op == ir.OP_SUB) {
		size := int64(1)
		if ins.Type.Kind == ir.TypePointer && ins.Type.Elem != nil {
			size = int64(ins.Type.Elem.Size())
		}
		delta := b.AsInt() * size
		if op == ir.OP_SUB {
			delta = -delta
		}
		return ir.Operand{Kind: ir.OperandPointer, Data: a.Data + uint64(delta), Relocated: a.Relocated}, nil
	}

	if a.Kind == ir.OperandChar && b.Kind == ir.OperandChar {
		return vm.integerOp(op, int64(a.AsChar()), int64(b.AsChar()))
	}

	if a.Kind == ir.OperandInt && b.Kind == ir.OperandInt {
		return vm.integerOp(op, a.AsInt(), b.AsInt())
	}

	if isNumber(a) && isNumber(b) {
		return vm.floatOp(op, asFloat(a), asFloat(b))
	}
	return ir.Operand{}, vm.runtimeError("operands of %s must be numbers, got %s and %s", op, a.Kind, b.Kind)
}

func (vm *VM) integerOp(op ir.Opcode, a, b int64) (ir.Operand, error) {
	switch op {
	case ir.OP_ADD:
		return ir.IntOp(a + b), nil
	case ir.OP_SUB:
		return ir.IntOp(a - b), nil
	case ir.OP_MUL:
		return ir.IntOp(a * b), nil
	case ir.OP_DIV:
		if b == 0 {
			return ir.Operand{}, vm.runtimeError("division by zero")
		}
		return ir.IntOp(a / b), nil
	case ir.OP_MOD:
		if b == 0 {
			return ir.Operand{}, vm.runtimeError("division by zero")
		}
		return ir.IntOp(a % b), nil
	case ir.OP_BAND:
		return ir.IntOp(a & b), nil
	case ir.OP_BOR:
		return ir.IntOp(a | b), nil
	case ir.OP_BXOR:
		return ir.IntOp(a ^ b), nil
	case ir.OP_LSHIFT, ir.OP_RSHIFT:
		if b < 0 {
			return ir.Operand{}, vm.runtimeError("negative shift count %d", b)
		}
		if op == ir.OP_LSHIFT {
			return ir.IntOp(a << uint64(b)), nil
		}
		return ir.IntOp(a >> uint64(b)), nil
	case ir.OP_LT:
		return ir.BoolOp(a < b), nil
	case ir.OP_LE:
		return ir.BoolOp(a <= b), nil
	case ir.OP_GT:
		return ir.BoolOp(a > b), nil
	case ir.OP_GE:
		return ir.BoolOp(a >= b), nil
	}
	return ir.Operand{}, vm.runtimeError("operator %s not defined for int", op)
}

func (vm *VM) floatOp(op ir.Opcode, a, b float64) (ir.Operand, error) {
	switch op {
	case ir.OP_ADD:
		return ir.FloatOp(a + b), nil
	case ir.OP_SUB:
		return ir.FloatOp(a - b), nil
	case ir.OP_MUL:
		return ir.FloatOp(a * b), nil
	case ir.OP_DIV:
		if b == 0 {
			return ir.Operand{}, vm.runtimeError("division by zero")
		}
		return ir.FloatOp(a / b), nil
	case ir.OP_MOD:
		if b == 0 {
			return ir.Operand{}, vm.runtimeError("division by zero")
		}
		return ir.FloatOp(math.Mod(a, b)), nil
	}
	return vm.comparison(op, a, b)
}

func (vm *VM) comparison(op ir.Opcode, a, b float64) (ir.Operand, error) {
	switch op {
	case ir.OP_LT:
		return ir.BoolOp(a < b), nil
	case ir.OP_LE:
		return ir.BoolOp(a <= b), nil
	case ir.OP_GT:
		return ir.BoolOp(a > b), nil
	case ir.OP_GE:
		return ir.BoolOp(a >= b), nil
	}
	return ir.Operand{}, vm.runtimeError("operator %s not defined for these operands", op)
}

func isNumber(v ir.Operand) bool {
	return v.Kind == ir.OperandInt || v.Kind == ir.OperandFloat
}

func asFloat(v ir.Operand) float64 {
	if v.Kind == ir.OperandInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// equal requires matching kinds, like the interpreter's value equality.
func equal(a, b ir.Operand) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ir.OperandNil:
		return true
	case ir.OperandFloat:
		return a.AsFloat() == b.AsFloat()
	}
	return a.Data == b.Data
}
