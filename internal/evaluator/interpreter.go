package evaluator

import (
	"io"
	"os"

	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/gc"
	"github.com/funvibe/kestrel/internal/object"
)

// maxCallDepth bounds recursion so runaway programs fail with a runtime
// error rather than exhausting the host stack.
const maxCallDepth = 10000

// Interpreter executes the syntax tree directly.
type Interpreter struct {
	heap    *gc.Collector
	globals *object.Environment
	env     *object.Environment
	// stack holds every environment suspended by a block or call; all of
	// them are collector roots.
	stack  []*object.Environment
	locals map[ast.Expression]int
	out    io.Writer
	depth  int
}

type Option func(*Interpreter)

func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithHeap uses an existing collector (for limits or tracing).
func WithHeap(h *gc.Collector) Option {
	return func(in *Interpreter) { in.heap = h }
}

func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		out:    os.Stdout,
		locals: make(map[ast.Expression]int),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.heap == nil {
		in.heap = gc.NewCollector()
	}
	in.heap.AddRoots(in.roots)
	in.globals = object.NewEnvironment(in.heap, nil)
	in.env = in.globals
	return in
}

func (in *Interpreter) roots(mark func(gc.Object)) {
	mark(in.globals)
	mark(in.env)
	for _, env := range in.stack {
		mark(env)
	}
}

func (in *Interpreter) Heap() *gc.Collector { return in.heap }

func (in *Interpreter) Globals() *object.Environment { return in.globals }

// Interpret runs stmts at global scope. locals is merged into the distance
// table first. A runtime error stops the run; side effects already made
// are kept.
func (in *Interpreter) Interpret(stmts []ast.Statement, locals map[ast.Expression]int) error {
	for expr, d := range locals {
		in.locals[expr] = d
	}
	defer func() {
		in.env = in.globals
		in.stack = in.stack[:0]
		in.depth = 0
		in.globals.ReleaseTemps()
	}()
	for _, stmt := range stmts {
		sig, err := in.execute(stmt)
		in.globals.ReleaseTemps()
		if err != nil {
			return err
		}
		if sig.kind != signalNormal {
			return newRuntimeError(stmt.GetToken(), "unexpected %s at top level", sig.kind)
		}
	}
	return nil
}

// Lookup reads a global binding.
func (in *Interpreter) Lookup(name string) (*object.Value, bool) {
	return in.globals.Get(name)
}

// Shutdown tears the heap down: roots are dropped and two cycles run.
func (in *Interpreter) Shutdown() {
	in.heap.Shutdown()
}

// keep retains obj in the current scope until the statement completes.
func keep[T gc.Object](in *Interpreter, obj T) T {
	in.env.Retain(obj)
	return obj
}

// executeBlock runs stmts with env as the current scope.
func (in *Interpreter) executeBlock(stmts []ast.Statement, env *object.Environment) (signal, error) {
	in.stack = append(in.stack, in.env)
	in.env = env
	defer in.popEnv()

	for _, stmt := range stmts {
		sig, err := in.execute(stmt)
		env.ReleaseTemps()
		if err != nil || sig.kind != signalNormal {
			return sig, err
		}
	}
	return normal, nil
}

// executeIn runs a single statement with env as the current scope.
func (in *Interpreter) executeIn(stmt ast.Statement, env *object.Environment) (signal, error) {
	in.stack = append(in.stack, in.env)
	in.env = env
	defer in.popEnv()
	return in.execute(stmt)
}

func (in *Interpreter) evaluateIn(expr ast.Expression, env *object.Environment) (*object.Value, error) {
	in.stack = append(in.stack, in.env)
	in.env = env
	defer in.popEnv()
	return in.evaluate(expr)
}

func (in *Interpreter) popEnv() {
	in.env = in.stack[len(in.stack)-1]
	in.stack[len(in.stack)-1] = nil
	in.stack = in.stack[:len(in.stack)-1]
}
