package pipeline

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

// Processor is one stage of the pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. A stage runs to completion and reports every
// diagnostic it can; if it reported any, the following stages are skipped.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		before := len(ctx.Errors)
		ctx = processor.Process(ctx)
		if len(ctx.Errors) > before {
			for _, err := range ctx.Errors[before:] {
				if err.File == "" {
					err.File = ctx.FilePath
				}
			}
			break
		}
	}
	return ctx
}
