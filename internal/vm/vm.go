// Package vm executes linked programs on a register-window machine.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/ir"
	"github.com/funvibe/kestrel/internal/linker"
)

var log = commonlog.GetLogger("kestrel.vm")

// Exit statuses reported in Result.Status.
const (
	StatusOK           = 0
	StatusRuntimeError = 1
)

// contextCheckInterval is how many instructions run between cancellation
// checks.
const contextCheckInterval = 1024

// Bridge performs native calls for OP_CALL_NATIVE. base is the live address
// of the data section, added to pointer arguments that were never
// relocated.
type Bridge interface {
	Call(symbol string, args []ir.Operand, ret ir.Type, base uint64) (ir.Operand, error)
}

// CallFrame is one active call.
type CallFrame struct {
	fn       linker.Function
	window   []ir.Operand // register window, indexed by temp
	returnPC int
	dest     int // caller temp receiving the result
}

// VM is the virtual machine that executes a linked program
type VM struct {
	prog    *linker.Program
	entries map[int]linker.Function

	out     io.Writer
	bridge  Bridge
	context context.Context

	windowSize int
	stackLimit int
	maxDepth   int

	pc      int
	frames  []*CallFrame
	frame   *CallFrame
	globals []ir.Operand // the top-level register window
	stack   []ir.Operand // argument and return values
}

// Option configures a VM.
type Option func(*VM)

func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

func WithBridge(b Bridge) Option {
	return func(vm *VM) { vm.bridge = b }
}

func WithContext(ctx context.Context) Option {
	return func(vm *VM) { vm.context = ctx }
}

// WithWindowSize sets the capacity of every register window.
func WithWindowSize(n int) Option {
	return func(vm *VM) { vm.windowSize = n }
}

// WithStackLimit caps the value stack.
func WithStackLimit(n int) Option {
	return func(vm *VM) { vm.stackLimit = n }
}

// WithCallDepth caps the number of nested calls.
func WithCallDepth(n int) Option {
	return func(vm *VM) { vm.maxDepth = n }
}

// New prepares prog for execution. Every function must fit in one
// register window.
func New(prog *linker.Program, opts ...Option) (*VM, error) {
	vm := &VM{
		prog:       prog,
		entries:    make(map[int]linker.Function, len(prog.Functions)),
		out:        os.Stdout,
		context:    context.Background(),
		windowSize: config.DefaultWindowSize,
		stackLimit: config.DefaultValueStackSize,
		maxDepth:   config.DefaultCallDepth,
	}
	for _, opt := range opts {
		opt(vm)
	}
	if len(prog.Functions) == 0 {
		return nil, fmt.Errorf("program has no top-level function")
	}
	for _, fn := range prog.Functions {
		if fn.Temps > vm.windowSize {
			return nil, fmt.Errorf("function %s needs %d registers, window holds %d", fn.Name, fn.Temps, vm.windowSize)
		}
		if fn.Params > fn.Temps {
			return nil, fmt.Errorf("function %s has %d parameters but %d registers", fn.Name, fn.Params, fn.Temps)
		}
		vm.entries[fn.Entry] = fn
	}
	return vm, nil
}

// Result is the outcome of a run.
type Result struct {
	Status int
	// Registers is a snapshot of the top-level register window.
	Registers []ir.Operand
	// Globals maps every global to its final value.
	Globals map[string]ir.Operand
}

// RuntimeError is a failure while executing an instruction.
type RuntimeError struct {
	PC      int
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Run executes the program from offset 0 until OP_END. A runtime error
// yields StatusRuntimeError together with the error; the snapshot still
// reflects every store made before the failure.
func (vm *VM) Run() (*Result, error) {
	main := vm.prog.Functions[0]
	vm.pc = 0
	vm.stack = vm.stack[:0]
	vm.globals = make([]ir.Operand, vm.windowSize)
	vm.frame = &CallFrame{fn: main, window: vm.globals, dest: ir.NoDest}
	vm.frames = []*CallFrame{vm.frame}

	err := vm.execute()

	result := &Result{
		Status:    StatusOK,
		Registers: append([]ir.Operand(nil), vm.globals[:main.Temps]...),
		Globals:   make(map[string]ir.Operand, len(vm.prog.Globals)),
	}
	for name, slot := range vm.prog.Globals {
		result.Globals[name] = vm.globals[slot]
	}
	if err != nil {
		result.Status = StatusRuntimeError
		return result, err
	}
	return result, nil
}

func (vm *VM) runtimeError(format string, args ...interface{}) error {
	line := 0
	if vm.pc >= 0 && vm.pc < len(vm.prog.Lines) {
		line = vm.prog.Lines[vm.pc]
	}
	return &RuntimeError{PC: vm.pc, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Stack helpers

func (vm *VM) push(v ir.Operand) error {
	if len(vm.stack) >= vm.stackLimit {
		return vm.runtimeError("value stack overflow")
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() (ir.Operand, error) {
	if len(vm.stack) == 0 {
		return ir.Operand{}, vm.runtimeError("value stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

// popArgs removes the top n values, oldest first.
func (vm *VM) popArgs(n int) ([]ir.Operand, error) {
	if n > len(vm.stack) {
		return nil, vm.runtimeError("value stack underflow")
	}
	args := append([]ir.Operand(nil), vm.stack[len(vm.stack)-n:]...)
	vm.stack = vm.stack[:len(vm.stack)-n]
	return args, nil
}

// resolve reads temps from the current window; literals stay as they are.
func (vm *VM) resolve(op ir.Operand) (ir.Operand, error) {
	if !op.IsTemp() {
		return op, nil
	}
	idx := op.Temp()
	if idx >= len(vm.frame.window) {
		return ir.Operand{}, vm.runtimeError("register t%d outside window", idx)
	}
	return vm.frame.window[idx], nil
}

func (vm *VM) store(dest int, v ir.Operand) error {
	if dest == ir.NoDest {
		return nil
	}
	if dest < 0 || dest >= len(vm.frame.window) {
		return vm.runtimeError("register t%d outside window", dest)
	}
	vm.frame.window[dest] = v
	return nil
}
