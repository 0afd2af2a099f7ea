// Package kestrel embeds the Kestrel interpreter in Go programs.
package kestrel

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/evaluator"
	"github.com/funvibe/kestrel/internal/gc"
	"github.com/funvibe/kestrel/internal/lexer"
	"github.com/funvibe/kestrel/internal/object"
	"github.com/funvibe/kestrel/internal/parser"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/resolver"
)

// Engine is a persistent interpreter session driven from Go. Globals set by
// the host or defined by scripts survive between Eval calls.
type Engine struct {
	interpreter *evaluator.Interpreter
	resolver    *resolver.Resolver
	marshaller  *Marshaller
	memory      *diagnostics.MemorySink
	sink        diagnostics.Sink
	out         io.Writer
}

type Option func(*settings)

type settings struct {
	out  io.Writer
	cfg  *config.Config
	sink diagnostics.Sink
}

// WithOutput sends print output to w instead of standard output.
func WithOutput(w io.Writer) Option {
	return func(s *settings) { s.out = w }
}

// WithConfig applies the gc section of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithSink also writes the diagnostics of failed runs to sink. Close does
// not close it.
func WithSink(sink diagnostics.Sink) Option {
	return func(s *settings) { s.sink = sink }
}

// New creates a new engine.
func New(opts ...Option) *Engine {
	s := &settings{out: os.Stdout, cfg: config.Default()}
	for _, opt := range opts {
		opt(s)
	}
	heap := gc.NewCollector(gc.WithLimit(s.cfg.GC.HeapLimit), gc.WithTrace(s.cfg.GC.Trace))
	in := evaluator.New(evaluator.WithOutput(s.out), evaluator.WithHeap(heap))
	return &Engine{
		interpreter: in,
		resolver:    resolver.New(),
		marshaller:  NewMarshaller(heap, in.Globals().Retain),
		memory:      &diagnostics.MemorySink{},
		sink:        s.sink,
		out:         s.out,
	}
}

// Set binds a global variable, replacing any existing binding.
func (e *Engine) Set(name string, val interface{}) error {
	defer e.interpreter.Release()
	v, err := e.marshaller.ToValue(val)
	if err != nil {
		return err
	}
	e.interpreter.Globals().Set(name, v)
	return nil
}

// Get retrieves a global variable.
func (e *Engine) Get(name string) (interface{}, error) {
	v, ok := e.interpreter.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("variable '%s' not found", name)
	}
	return e.marshaller.FromValue(v)
}

// Call calls a function or class defined in Kestrel by name.
func (e *Engine) Call(funcName string, args ...interface{}) (interface{}, error) {
	defer e.interpreter.Release()
	fn, ok := e.interpreter.Lookup(funcName)
	if !ok {
		return nil, fmt.Errorf("function '%s' not found", funcName)
	}
	values, err := e.marshalArgs(args)
	if err != nil {
		return nil, err
	}
	result, err := e.interpreter.Call(fn, values...)
	if err != nil {
		return nil, err
	}
	return e.marshaller.FromValue(result)
}

func (e *Engine) marshalArgs(args []interface{}) ([]*object.Value, error) {
	values := make([]*object.Value, len(args))
	for i, a := range args {
		v, err := e.marshaller.ToValue(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

// Eval runs Kestrel source. All diagnostics of a failed run are joined into
// the returned error and kept in Diagnostics.
func (e *Engine) Eval(code string) error {
	ctx := pipeline.NewPipelineContext(code)
	ctx.FilePath = "<eval>"
	ctx.Out = e.out
	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&resolver.ResolverProcessor{Resolver: e.resolver},
		&evaluator.InterpreterProcessor{Interpreter: e.interpreter},
	).Run(ctx)
	if !ctx.Failed() {
		return nil
	}
	errs := make([]error, 0, len(ctx.Errors)+1)
	for _, d := range ctx.Errors {
		errs = append(errs, d)
	}
	if err := e.memory.Write(ctx.RunID, ctx.Errors); err != nil {
		errs = append(errs, fmt.Errorf("record diagnostics: %w", err))
	}
	if e.sink != nil {
		if err := e.sink.Write(ctx.RunID, ctx.Errors); err != nil {
			errs = append(errs, fmt.Errorf("write diagnostics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Diagnostics returns every diagnostic reported by Eval so far.
func (e *Engine) Diagnostics() []*diagnostics.Diagnostic {
	return e.memory.Diagnostics()
}

// Stats reports the collector counters.
func (e *Engine) Stats() gc.Stats {
	return e.interpreter.Heap().Stats()
}

// Close tears the heap down. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.interpreter.Shutdown()
}
