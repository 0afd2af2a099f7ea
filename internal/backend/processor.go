package backend

import (
	"errors"

	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/evaluator"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/vm"
)

// ExecutionProcessor implements pipeline.Processor to run a Backend
type ExecutionProcessor struct {
	Backend Backend
}

// NewExecutionProcessor creates a new pipeline step for the given backend
func NewExecutionProcessor(b Backend) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	// If previous steps failed, don't run execution
	if ctx.Failed() || (ctx.AstRoot == nil && ctx.Program == nil) {
		return ctx
	}
	result, err := p.Backend.Run(ctx)
	ctx.Result = result
	if err != nil && !errors.Is(err, errReported) {
		ctx.AddError(toDiagnostic(err))
	}
	return ctx
}

func toDiagnostic(err error) *diagnostics.Diagnostic {
	var diag *diagnostics.Diagnostic
	var treeErr *evaluator.RuntimeError
	var vmErr *vm.RuntimeError
	switch {
	case errors.As(err, &diag):
		return diag
	case errors.As(err, &treeErr):
		return diagnostics.New(diagnostics.PhaseInterpreting, treeErr.Token, "%s", treeErr.Message)
	case errors.As(err, &vmErr):
		return diagnostics.NewAt(diagnostics.PhaseRunning, vmErr.Line, diagnostics.NoOffset, "%s", vmErr.Message)
	}
	return diagnostics.NewAt(diagnostics.PhaseRunning, 0, diagnostics.NoOffset, "%s", err)
}
