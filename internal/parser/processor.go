package parser

import (
	"github.com/funvibe/kestrel/internal/pipeline"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	p := New(ctx.TokenStream)
	program := p.ParseProgram()
	program.File = ctx.FilePath
	ctx.AstRoot = program
	for _, err := range p.Errors() {
		ctx.AddError(err)
	}
	return ctx
}
