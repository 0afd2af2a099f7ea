package resolver

import "github.com/funvibe/kestrel/internal/pipeline"

// ResolverProcessor runs the resolver as a pipeline stage. A shared
// Resolver keeps its table across runs (REPL sessions).
type ResolverProcessor struct {
	Resolver *Resolver
}

func (rp *ResolverProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil {
		return ctx
	}
	r := rp.Resolver
	if r == nil {
		r = New()
	}
	locals, errs := r.Resolve(ctx.AstRoot.Statements)
	ctx.Locals = locals
	for _, err := range errs {
		ctx.AddError(err)
	}
	return ctx
}
