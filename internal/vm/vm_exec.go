package vm

import (
	"fmt"

	"github.com/funvibe/kestrel/internal/gc"
	"github.com/funvibe/kestrel/internal/ir"
)

// execute runs instructions until OP_END or an error.
func (vm *VM) execute() error {
	code := vm.prog.Code
	steps := 0
	for {
		if vm.pc < 0 || vm.pc >= len(code) {
			return vm.runtimeError("program counter %d out of range", vm.pc)
		}
		steps++
		if steps%contextCheckInterval == 0 {
			if err := vm.context.Err(); err != nil {
				return vm.runtimeError("%s", err)
			}
		}

		ins := code[vm.pc]
		switch ins.Op {
		case ir.OP_END:
			return nil

		case ir.OP_HALT:
			gc.Fatal("halt at %04d (line %d): %s ended without returning a value", vm.pc, vm.prog.Lines[vm.pc], ins.Name)
			return vm.runtimeError("halted")

		case ir.OP_JUMP:
			vm.pc = int(ins.A.AsInt())
			continue

		case ir.OP_JUMP_UNLESS:
			cond, err := vm.resolve(ins.A)
			if err != nil {
				return err
			}
			if !cond.Truthy() {
				vm.pc = int(ins.B.AsInt())
				continue
			}

		case ir.OP_CALL:
			if err := vm.call(ins); err != nil {
				return err
			}
			continue

		case ir.OP_RETURN:
			if err := vm.ret(ins); err != nil {
				return err
			}
			continue

		default:
			if err := vm.executeOneOp(ins); err != nil {
				return err
			}
		}
		vm.pc++
	}
}

// executeOneOp runs an instruction that does not transfer control.
func (vm *VM) executeOneOp(ins ir.Instruction) error {
	switch ins.Op {
	case ir.OP_MOVE:
		v, err := vm.resolve(ins.A)
		if err != nil {
			return err
		}
		return vm.store(ins.Dest, v)

	case ir.OP_NEG, ir.OP_NOT:
		v, err := vm.resolve(ins.A)
		if err != nil {
			return err
		}
		result, err := vm.unaryOp(ins.Op, v)
		if err != nil {
			return err
		}
		return vm.store(ins.Dest, result)

	case ir.OP_PARAM:
		v, err := vm.resolve(ins.A)
		if err != nil {
			return err
		}
		return vm.push(v)

	case ir.OP_CALL_NATIVE:
		return vm.callNative(ins)

	case ir.OP_GET_GLOBAL:
		slot := ins.A.Temp()
		if slot >= len(vm.globals) {
			return vm.runtimeError("global %s outside the top-level window", ins.Name)
		}
		return vm.store(ins.Dest, vm.globals[slot])

	case ir.OP_SET_GLOBAL:
		slot := ins.A.Temp()
		if slot >= len(vm.globals) {
			return vm.runtimeError("global %s outside the top-level window", ins.Name)
		}
		v, err := vm.resolve(ins.B)
		if err != nil {
			return err
		}
		vm.globals[slot] = v
		return nil

	case ir.OP_PRINT:
		v, err := vm.resolve(ins.A)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(vm.out, vm.format(v))
		return err
	}

	if ins.Op.IsBinary() {
		a, err := vm.resolve(ins.A)
		if err != nil {
			return err
		}
		b, err := vm.resolve(ins.B)
		if err != nil {
			return err
		}
		result, err := vm.binaryOp(ins, a, b)
		if err != nil {
			return err
		}
		return vm.store(ins.Dest, result)
	}
	return vm.runtimeError("unknown opcode %s", ins.Op)
}

// format renders a value the way print shows it. Pointers into the data
// section print the string stored there.
func (vm *VM) format(v ir.Operand) string {
	switch v.Kind {
	case ir.OperandNil:
		return "null"
	case ir.OperandChar:
		return string(v.AsChar())
	case ir.OperandPointer:
		if off, ok := vm.prog.Offset(v); ok {
			if s, ok := ir.String(vm.prog.Data, off); ok {
				return s
			}
		}
		return fmt.Sprintf("@%#x", v.Data)
	}
	return v.String()
}
