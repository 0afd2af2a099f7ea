package evaluator

import (
	"github.com/tliron/commonlog"

	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/pipeline"
)

var log = commonlog.GetLogger("kestrel.evaluator")

// InterpreterProcessor runs the program on the tree-walking interpreter.
// With a nil Interpreter a fresh one is created and torn down per run;
// a shared one keeps its globals (REPL sessions).
type InterpreterProcessor struct {
	Interpreter *Interpreter
}

func (ip *InterpreterProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.AstRoot == nil || ctx.Failed() {
		return ctx
	}
	in := ip.Interpreter
	if in == nil {
		in = New(WithOutput(ctx.Out))
		defer in.Shutdown()
	}
	err := in.Interpret(ctx.AstRoot.Statements, ctx.Locals)
	stats := in.Heap().Stats()
	log.Debugf("run %s: %d allocated, %d freed, %d live, %d cycles", ctx.RunID, stats.Allocated, stats.Freed, stats.Live, stats.Cycles)
	if err != nil {
		if rerr, ok := err.(*RuntimeError); ok {
			ctx.AddError(diagnostics.New(diagnostics.PhaseInterpreting, rerr.Token, "%s", rerr.Message))
		} else {
			ctx.AddError(diagnostics.NewAt(diagnostics.PhaseInterpreting, 0, diagnostics.NoOffset, "%s", err))
		}
	}
	ctx.Result = in
	return ctx
}
