// Package ir lowers the syntax tree to per-function chunks of three-address
// instructions with statically inferred types.
package ir

import (
	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/token"
)

// signature is the callable view of a function or extern.
type signature struct {
	params []Type
	ret    Type
	extern int // index into Module.Externs, -1 for functions
}

// Compiler builds a Module. One Compiler compiles one program.
type Compiler struct {
	module *Module
	locals map[ast.Expression]int

	// Current chunk and its lexical scopes (name -> temp)
	chunk  *Chunk
	scopes []map[string]int

	// Label ids are chunk-local
	labels int
	// Stack of loop-end labels for break
	loops []int

	signatures map[string]signature
	functions  []*ast.FunctionStatement

	errors []*diagnostics.Diagnostic
}

// NewCompiler creates a compiler. locals is the resolver's scope-distance
// table; references without an entry are globals.
func NewCompiler(locals map[ast.Expression]int) *Compiler {
	if locals == nil {
		locals = make(map[ast.Expression]int)
	}
	return &Compiler{
		module:     NewModule(),
		locals:     locals,
		signatures: make(map[string]signature),
	}
}

// Generate compiles a program into a module.
func Generate(stmts []ast.Statement, locals map[ast.Expression]int) (*Module, []*diagnostics.Diagnostic) {
	return NewCompiler(locals).Compile(stmts)
}

// Compile emits the top-level chunk, then one chunk per function. Every
// statement is compiled even after an error so that all type errors are
// reported in one pass.
func (c *Compiler) Compile(stmts []ast.Statement) (*Module, []*diagnostics.Diagnostic) {
	c.declare(stmts)

	c.enterChunk(c.module.Chunks[0])
	for _, s := range stmts {
		if err := c.compileStatement(s); err != nil {
			c.report(err)
		}
	}
	c.emit(Instruction{Op: OP_END, Dest: NoDest, Line: lastLine(stmts)})

	// Functions are compiled after the top level so that every global is
	// known regardless of declaration order.
	for _, fn := range c.functions {
		c.compileFunction(fn)
	}

	if len(c.errors) > 0 {
		return nil, c.errors
	}
	return c.module, nil
}

// declare registers every top-level function and extern signature so that
// calls may precede declarations.
func (c *Compiler) declare(stmts []ast.Statement) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.FunctionStatement:
			name := s.Name.Lexeme
			if c.isCallable(name) {
				c.errorf(s.Name, "function %s is already declared", name)
				continue
			}
			params, err := c.paramTypes(s.Params)
			if err != nil {
				c.report(err)
				continue
			}
			ret := Nil
			if s.ReturnType != nil {
				if ret, err = c.annotation(s.ReturnType); err != nil {
					c.report(err)
					continue
				}
			}
			chunk := NewChunk(name)
			chunk.Params = params
			chunk.Return = ret
			c.module.Functions[name] = len(c.module.Chunks)
			c.module.Chunks = append(c.module.Chunks, chunk)
			c.signatures[name] = signature{params: params, ret: ret, extern: -1}
			c.functions = append(c.functions, s)

		case *ast.ExternStatement:
			name := s.Name.Lexeme
			if c.isCallable(name) {
				c.errorf(s.Name, "function %s is already declared", name)
				continue
			}
			params, err := c.paramTypes(s.Params)
			if err != nil {
				c.report(err)
				continue
			}
			ret := Nil
			if s.ReturnType != nil {
				if ret, err = c.annotation(s.ReturnType); err != nil {
					c.report(err)
					continue
				}
			}
			c.signatures[name] = signature{params: params, ret: ret, extern: len(c.module.Externs)}
			c.module.Externs = append(c.module.Externs, Extern{
				Symbol: s.Symbol,
				Name:   name,
				Params: params,
				Return: ret,
			})
		}
	}
}

func (c *Compiler) isCallable(name string) bool {
	_, ok := c.signatures[name]
	return ok || name == TopLevel
}

func (c *Compiler) paramTypes(params []*ast.Param) ([]Type, error) {
	types := make([]Type, len(params))
	for i, p := range params {
		if p.Type == nil {
			return nil, c.newError(p.Name, "parameter %s needs a type annotation", p.Name.Lexeme)
		}
		t, err := c.annotation(p.Type)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

func (c *Compiler) annotation(te *ast.TypeExpr) (Type, error) {
	t, err := TypeFromAnnotation(te)
	if err != nil {
		return Nil, c.newError(te.Token, "%s", err)
	}
	return t, nil
}

func (c *Compiler) compileFunction(fn *ast.FunctionStatement) {
	chunk := c.module.Chunks[c.module.Functions[fn.Name.Lexeme]]
	c.enterChunk(chunk)
	c.beginScope()
	for i, p := range fn.Params {
		slot := chunk.NewTemp(chunk.Params[i])
		c.scopes[len(c.scopes)-1][p.Name.Lexeme] = slot
	}
	for _, s := range fn.Body {
		if err := c.compileStatement(s); err != nil {
			c.report(err)
		}
	}
	c.endScope()

	line := fn.Name.Line
	if n := len(chunk.Code); n > 0 {
		line = chunk.Code[n-1].Line
	}
	if chunk.Return.Kind == TypeNil {
		c.emit(Instruction{Op: OP_RETURN, Dest: NoDest, A: NilOp(), Line: line})
	} else {
		// Reaching the end of a function that must return a value.
		c.emit(Instruction{Op: OP_HALT, Dest: NoDest, Name: chunk.Name, Line: line})
	}
}

func (c *Compiler) enterChunk(chunk *Chunk) {
	c.chunk = chunk
	c.scopes = nil
	c.labels = 0
	c.loops = nil
}

func (c *Compiler) isTopLevel() bool {
	return c.chunk == c.module.Chunks[0]
}

// Emission helpers

func (c *Compiler) emit(ins Instruction) int {
	return c.chunk.Emit(ins)
}

func (c *Compiler) newLabel() int {
	c.labels++
	return c.labels
}

func (c *Compiler) placeLabel(label, line int) {
	c.emit(Instruction{Op: OP_LABEL, Dest: NoDest, A: IntOp(int64(label)), Line: line})
}

func (c *Compiler) emitJump(label, line int) {
	c.emit(Instruction{Op: OP_JUMP, Dest: NoDest, A: IntOp(int64(label)), Line: line})
}

func (c *Compiler) emitJumpUnless(cond Operand, label, line int) {
	c.emit(Instruction{Op: OP_JUMP_UNLESS, Dest: NoDest, A: cond, B: IntOp(int64(label)), Line: line})
}

func (c *Compiler) emitMove(dest int, src Operand, t Type, line int) {
	c.emit(Instruction{Op: OP_MOVE, Dest: dest, A: src, Type: t, Line: line})
}

// Errors

func (c *Compiler) newError(tok token.Token, format string, args ...interface{}) *diagnostics.Diagnostic {
	return diagnostics.New(diagnostics.PhaseCompiling, tok, format, args...)
}

func (c *Compiler) errorf(tok token.Token, format string, args ...interface{}) {
	c.errors = append(c.errors, c.newError(tok, format, args...))
}

func (c *Compiler) report(err error) {
	if d, ok := err.(*diagnostics.Diagnostic); ok {
		c.errors = append(c.errors, d)
		return
	}
	c.errors = append(c.errors, diagnostics.NewAt(diagnostics.PhaseCompiling, 0, diagnostics.NoOffset, "%s", err))
}

func lastLine(stmts []ast.Statement) int {
	if len(stmts) == 0 {
		return 0
	}
	return stmts[len(stmts)-1].GetToken().Line
}

func unsupported(tok token.Token, what string) error {
	return diagnostics.New(diagnostics.PhaseCompiling, tok, "%s not supported in compiled code", what)
}
