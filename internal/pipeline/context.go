package pipeline

import (
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/token"
)

// PipelineContext carries the state threaded through the processors.
type PipelineContext struct {
	RunID      string
	SourceCode string
	FilePath   string

	TokenStream []token.Token
	AstRoot     *ast.Program

	// Locals is the resolver's scope-distance table.
	Locals map[ast.Expression]int

	// Module holds the compiler output (*ir.Module) and Program the linked
	// flat program (*linker.Program).
	Module  interface{}
	Program interface{}

	// Result is whatever the execution backend produced.
	Result interface{}

	Out    io.Writer
	Errors []*diagnostics.Diagnostic
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{
		RunID:      uuid.NewString(),
		SourceCode: source,
		Out:        os.Stdout,
	}
}

// AddError records a diagnostic, stamping the file path.
func (ctx *PipelineContext) AddError(d *diagnostics.Diagnostic) {
	if d.File == "" {
		d.File = ctx.FilePath
	}
	ctx.Errors = append(ctx.Errors, d)
}

// Failed reports whether any stage produced diagnostics.
func (ctx *PipelineContext) Failed() bool {
	return len(ctx.Errors) > 0
}
