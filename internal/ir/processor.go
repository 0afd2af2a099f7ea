package ir

import (
	"github.com/tliron/commonlog"

	"github.com/funvibe/kestrel/internal/pipeline"
)

var log = commonlog.GetLogger("kestrel.ir")

// CompilerProcessor lowers the resolved program into an IR module.
type CompilerProcessor struct{}

func (cp *CompilerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil || ctx.Failed() {
		return ctx
	}
	module, errs := Generate(ctx.AstRoot.Statements, ctx.Locals)
	for _, err := range errs {
		ctx.AddError(err)
	}
	if module != nil {
		log.Debugf("compiled %d chunks, %d bytes of data, %d externs", len(module.Chunks), len(module.Data), len(module.Externs))
		ctx.Module = module
	}
	return ctx
}
