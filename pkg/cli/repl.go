package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/evaluator"
	"github.com/funvibe/kestrel/internal/gc"
	"github.com/funvibe/kestrel/internal/lexer"
	"github.com/funvibe/kestrel/internal/parser"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/resolver"
	"github.com/funvibe/kestrel/internal/token"
)

const (
	promptMain  = "kes> "
	promptCont  = "...> "
	historyFile = ".kestrel_history"
)

// Session is a persistent tree-walking session: globals and resolved
// scopes survive between inputs.
type Session struct {
	resolver    *resolver.Resolver
	interpreter *evaluator.Interpreter
	out         io.Writer
}

func NewSession(cfg *config.Config, out io.Writer) *Session {
	heap := gc.NewCollector(gc.WithLimit(cfg.GC.HeapLimit), gc.WithTrace(cfg.GC.Trace))
	return &Session{
		resolver:    resolver.New(),
		interpreter: evaluator.New(evaluator.WithOutput(out), evaluator.WithHeap(heap)),
		out:         out,
	}
}

// Eval runs one complete input.
func (s *Session) Eval(source string) *pipeline.PipelineContext {
	ctx := pipeline.NewPipelineContext(source)
	ctx.Out = s.out
	return pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&resolver.ResolverProcessor{Resolver: s.resolver},
		&evaluator.InterpreterProcessor{Interpreter: s.interpreter},
	).Run(ctx)
}

func (s *Session) Heap() gc.Stats { return s.interpreter.Heap().Stats() }

func (s *Session) Close() { s.interpreter.Shutdown() }

// incomplete reports whether source still has unclosed brackets and needs
// another line.
func incomplete(source string) bool {
	tokens, _ := lexer.Tokenize(source)
	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case token.LPAREN, token.LBRACE, token.LBRACKET:
			depth++
		case token.RPAREN, token.RBRACE, token.RBRACKET:
			depth--
		}
	}
	return depth > 0
}

func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}

func (c *CLI) cmdRepl(args []string) int {
	var o options
	fs := newFlagSet("repl", c.Stderr, &o, false)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	cfg, sink, err := c.prepare(&o)
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return exitConfig
	}
	defer sink.Close()

	fmt.Fprintf(c.Stdout, "Kestrel %s. Type :quit to exit, :heap for collector statistics.\n", config.Version)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	session := NewSession(cfg, c.Stdout)
	defer session.Close()

	for {
		code, ok := readInput(ln)
		if !ok {
			fmt.Fprintln(c.Stdout)
			return 0
		}
		switch strings.TrimSpace(code) {
		case "":
			continue
		case ":quit":
			return 0
		case ":heap":
			st := session.Heap()
			fmt.Fprintf(c.Stdout, "allocated %d, freed %d, live %d, cycles %d\n", st.Allocated, st.Freed, st.Live, st.Cycles)
			continue
		}
		c.report(sink, session.Eval(code))
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
}
