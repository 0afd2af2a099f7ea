package backend

import (
	"fmt"

	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/evaluator"
	"github.com/funvibe/kestrel/internal/gc"
	"github.com/funvibe/kestrel/internal/pipeline"
)

// TreeWalkBackend executes programs with the tree-walking interpreter.
type TreeWalkBackend struct {
	// Interpreter, when set, is reused across runs and never shut down here.
	Interpreter *evaluator.Interpreter

	heapLimit int
	trace     bool
}

// NewTreeWalk creates a tree-walk backend honouring the GC settings of cfg.
func NewTreeWalk(cfg *config.Config) *TreeWalkBackend {
	return &TreeWalkBackend{heapLimit: cfg.GC.HeapLimit, trace: cfg.GC.Trace}
}

func (b *TreeWalkBackend) Name() string { return "tree-walk" }

func (b *TreeWalkBackend) Run(ctx *pipeline.PipelineContext) (interface{}, error) {
	if ctx.AstRoot == nil {
		return nil, fmt.Errorf("no program to interpret")
	}
	in := b.Interpreter
	if in == nil {
		heap := gc.NewCollector(gc.WithLimit(b.heapLimit), gc.WithTrace(b.trace))
		in = evaluator.New(evaluator.WithOutput(ctx.Out), evaluator.WithHeap(heap))
		defer in.Shutdown()
	}
	err := in.Interpret(ctx.AstRoot.Statements, ctx.Locals)
	stats := in.Heap().Stats()
	log.Debugf("run %s: %d allocated, %d freed, %d live, %d cycles", ctx.RunID, stats.Allocated, stats.Freed, stats.Live, stats.Cycles)
	return in, err
}
