package linker

import (
	"github.com/tliron/commonlog"

	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/ir"
	"github.com/funvibe/kestrel/internal/pipeline"
)

var log = commonlog.GetLogger("kestrel.linker")

// LinkerProcessor flattens the compiled module into ctx.Program.
type LinkerProcessor struct{}

func (lp *LinkerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Failed() {
		return ctx
	}
	module, ok := ctx.Module.(*ir.Module)
	if !ok || module == nil {
		return ctx
	}
	prog, err := Flatten(module)
	if err != nil {
		ctx.AddError(diagnostics.NewAt(diagnostics.PhaseCompiling, 0, diagnostics.NoOffset, "link: %s", err))
		return ctx
	}
	ctx.Program = prog
	return ctx
}
