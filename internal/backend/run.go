package backend

import (
	"bytes"
	"io"

	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/ir"
	"github.com/funvibe/kestrel/internal/lexer"
	"github.com/funvibe/kestrel/internal/linker"
	"github.com/funvibe/kestrel/internal/parser"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/resolver"
	"github.com/funvibe/kestrel/internal/vm"
)

// Exit statuses of CompileAndRun.
const (
	StatusOK           = vm.StatusOK
	StatusRuntimeError = vm.StatusRuntimeError
	StatusCompileError = 2
)

// FrontEnd returns the stages shared by both backends: lexing, parsing and
// resolving.
func FrontEnd() []pipeline.Processor {
	return []pipeline.Processor{
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&resolver.ResolverProcessor{},
	}
}

// Pipeline builds the full pipeline for b. The VM backend gets explicit
// compile and link stages so their diagnostics stop the run before
// execution starts.
func Pipeline(b Backend) *pipeline.Pipeline {
	stages := FrontEnd()
	if _, ok := b.(*VMBackend); ok {
		stages = append(stages, &ir.CompilerProcessor{}, &linker.LinkerProcessor{})
	}
	stages = append(stages, NewExecutionProcessor(b))
	return pipeline.New(stages...)
}

// RunTreeWalking interprets source and returns the diagnostics together
// with everything the program printed.
func RunTreeWalking(source string) ([]*diagnostics.Diagnostic, string) {
	var out bytes.Buffer
	ctx := pipeline.NewPipelineContext(source)
	ctx.Out = &out
	ctx = Pipeline(NewTreeWalk(config.Default())).Run(ctx)
	return ctx.Errors, out.String()
}

// CompileAndRun compiles source for the VM, runs it with output going to
// out and returns the exit status with any diagnostics.
func CompileAndRun(source string, out io.Writer) (int, []*diagnostics.Diagnostic) {
	ctx := pipeline.NewPipelineContext(source)
	ctx.Out = out
	ctx = Pipeline(NewVM(config.Default())).Run(ctx)
	return Status(ctx), ctx.Errors
}

// Status maps a finished pipeline to an exit status.
func Status(ctx *pipeline.PipelineContext) int {
	if result, ok := ctx.Result.(*vm.Result); ok && result != nil && result.Status != StatusOK {
		return result.Status
	}
	if !ctx.Failed() {
		return StatusOK
	}
	for _, d := range ctx.Errors {
		if d.Phase == diagnostics.PhaseRunning || d.Phase == diagnostics.PhaseInterpreting {
			return StatusRuntimeError
		}
	}
	return StatusCompileError
}
