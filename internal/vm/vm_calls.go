package vm

import (
	"github.com/funvibe/kestrel/internal/ir"
)

// call pushes a register window for the callee and moves the arguments
// from the value stack into its first registers.
func (vm *VM) call(ins ir.Instruction) error {
	entry := int(ins.A.AsInt())
	fn, ok := vm.entries[entry]
	if !ok {
		return vm.runtimeError("call to %s: %d is not a function entry", ins.Name, entry)
	}
	argc := int(ins.B.AsInt())
	if argc != fn.Params {
		return vm.runtimeError("%s expects %d arguments, got %d", fn.Name, fn.Params, argc)
	}
	if len(vm.frames) >= vm.maxDepth {
		return vm.runtimeError("stack overflow")
	}
	args, err := vm.popArgs(argc)
	if err != nil {
		return err
	}

	window := make([]ir.Operand, vm.windowSize)
	copy(window, args)
	frame := &CallFrame{fn: fn, window: window, returnPC: vm.pc + 1, dest: ins.Dest}
	vm.frames = append(vm.frames, frame)
	vm.frame = frame
	log.Debugf("call %s at %04d, depth %d", fn.Name, entry, len(vm.frames)-1)
	vm.pc = entry
	return nil
}

// ret passes the result through the value stack, drops the callee's window
// and stores the result in the caller's destination register.
func (vm *VM) ret(ins ir.Instruction) error {
	v, err := vm.resolve(ins.A)
	if err != nil {
		return err
	}
	if len(vm.frames) < 2 {
		return vm.runtimeError("return outside of a function")
	}
	if err := vm.push(v); err != nil {
		return err
	}
	done := vm.frame
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.frame = vm.frames[len(vm.frames)-1]
	vm.pc = done.returnPC

	result, err := vm.pop()
	if err != nil {
		return err
	}
	return vm.store(done.dest, result)
}

func (vm *VM) callNative(ins ir.Instruction) error {
	index := int(ins.A.AsInt())
	if index < 0 || index >= len(vm.prog.Externs) {
		return vm.runtimeError("unknown extern %d", index)
	}
	ext := vm.prog.Externs[index]
	args, err := vm.popArgs(int(ins.B.AsInt()))
	if err != nil {
		return err
	}
	if vm.bridge == nil {
		return vm.runtimeError("no foreign-call bridge to call %s", ext.Symbol)
	}
	result, err := vm.bridge.Call(ext.Symbol, args, ext.Return, vm.prog.Base)
	if err != nil {
		return vm.runtimeError("%s: %s", ext.Name, err)
	}
	return vm.store(ins.Dest, result)
}
