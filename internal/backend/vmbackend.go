package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/ffi"
	"github.com/funvibe/kestrel/internal/gc"
	"github.com/funvibe/kestrel/internal/ir"
	"github.com/funvibe/kestrel/internal/linker"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/vm"
)

// errReported means the failure was already added to the context as
// diagnostics.
var errReported = errors.New("compilation failed")

// VMBackend executes programs using the register VM
type VMBackend struct {
	Library    string
	WindowSize int
	StackLimit int
	CallDepth  int
	// Trace logs the disassembly before every run.
	Trace bool
	// Context, when set, cancels long-running programs.
	Context context.Context
}

// NewVM creates a VM backend from the vm and ffi sections of cfg.
func NewVM(cfg *config.Config) *VMBackend {
	return &VMBackend{
		Library:    cfg.FFI.Library,
		WindowSize: cfg.VM.WindowSize,
		StackLimit: cfg.VM.ValueStackSize,
		CallDepth:  cfg.VM.CallDepth,
		Trace:      cfg.VM.Trace,
	}
}

func (b *VMBackend) Name() string { return "vm" }

// Run links the program (compiling it first when no earlier stage did)
// and executes it.
func (b *VMBackend) Run(ctx *pipeline.PipelineContext) (interface{}, error) {
	prog, err := b.program(ctx)
	if err != nil {
		return nil, err
	}
	return b.Execute(prog, ctx.Out)
}

func (b *VMBackend) program(ctx *pipeline.PipelineContext) (*linker.Program, error) {
	if prog, ok := ctx.Program.(*linker.Program); ok && prog != nil {
		return prog, nil
	}
	module, ok := ctx.Module.(*ir.Module)
	if !ok || module == nil {
		if ctx.AstRoot == nil {
			return nil, fmt.Errorf("no program to run")
		}
		var errs []*diagnostics.Diagnostic
		module, errs = ir.Generate(ctx.AstRoot.Statements, ctx.Locals)
		if len(errs) > 0 {
			for _, err := range errs {
				ctx.AddError(err)
			}
			return nil, errReported
		}
		ctx.Module = module
	}
	prog, err := linker.Flatten(module)
	if err != nil {
		ctx.AddError(diagnostics.NewAt(diagnostics.PhaseCompiling, 0, diagnostics.NoOffset, "link: %s", err))
		return nil, errReported
	}
	ctx.Program = prog
	return prog, nil
}

// Execute runs a linked program. Programs with extern declarations get a
// foreign-call bridge over the configured library, their data section is
// copied into native memory and the program is relocated against it.
func (b *VMBackend) Execute(prog *linker.Program, out io.Writer) (*vm.Result, error) {
	if b.Trace {
		log.Debugf("%s", linker.Disassemble(prog))
	}
	opts := []vm.Option{vm.WithOutput(out)}
	if b.WindowSize > 0 {
		opts = append(opts, vm.WithWindowSize(b.WindowSize))
	}
	if b.StackLimit > 0 {
		opts = append(opts, vm.WithStackLimit(b.StackLimit))
	}
	if b.CallDepth > 0 {
		opts = append(opts, vm.WithCallDepth(b.CallDepth))
	}
	if b.Context != nil {
		opts = append(opts, vm.WithContext(b.Context))
	}

	if len(prog.Externs) > 0 {
		if prog.Relocated {
			return nil, fmt.Errorf("program %s was relocated by an earlier run", prog.ID)
		}
		library := b.Library
		if library == "" {
			library = config.DefaultLibrary
		}
		bridge, err := ffi.Open(library)
		if err != nil {
			gc.Fatal("%s", err)
			return nil, err
		}
		defer bridge.Close()
		base, err := bridge.Load(prog.Data)
		if err != nil {
			return nil, err
		}
		if base != 0 {
			if err := linker.Relocate(prog, base); err != nil {
				return nil, err
			}
		}
		opts = append(opts, vm.WithBridge(bridge))
	}

	machine, err := vm.New(prog, opts...)
	if err != nil {
		return nil, err
	}
	return machine.Run()
}
