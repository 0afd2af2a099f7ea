// Package resolver computes, before execution, how many environments each
// variable reference must walk, and checks where break, return, self and
// super may appear.
package resolver

import (
	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/token"
)

type FunctionType int

const (
	FunctionNone FunctionType = iota
	FunctionFunction
	FunctionInitializer
	FunctionMethod
)

type ClassType int

const (
	ClassNone ClassType = iota
	ClassClass
	ClassSubclass
)

type LoopType int

const (
	LoopNone LoopType = iota
	LoopLoop
)

// Resolver is reusable: a REPL feeds it one chunk of statements at a time
// and the distance table accumulates.
type Resolver struct {
	scopes []map[string]bool
	locals map[ast.Expression]int

	currentFunction FunctionType
	currentClass    ClassType
	currentLoop     LoopType

	errors []*diagnostics.Diagnostic
}

func New() *Resolver {
	return &Resolver{locals: make(map[ast.Expression]int)}
}

// Resolve walks stmts once. Diagnostics are collected, not fatal; the
// caller checks them after the pass.
func (r *Resolver) Resolve(stmts []ast.Statement) (map[ast.Expression]int, []*diagnostics.Diagnostic) {
	r.errors = nil
	r.resolveStatements(stmts)
	return r.locals, r.errors
}

// Locals returns the distance table built so far.
func (r *Resolver) Locals() map[ast.Expression]int {
	return r.locals
}

func (r *Resolver) resolveStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		r.resolveStatement(s)
	}
}

func (r *Resolver) resolveStatement(s ast.Statement) {
	if s != nil {
		s.Accept(r)
	}
}

func (r *Resolver) resolveExpression(e ast.Expression) {
	if e != nil {
		e.Accept(r)
	}
}

func (r *Resolver) errorf(tok token.Token, format string, args ...interface{}) {
	r.errors = append(r.errors, diagnostics.New(diagnostics.PhaseResolving, tok, format, args...))
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(map[string]bool))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) declare(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.scopes[len(r.scopes)-1]
	if _, ok := scope[name.Lexeme]; ok {
		r.errorf(name, "'%s' is already declared in this scope", name.Lexeme)
	}
	scope[name.Lexeme] = false
}

func (r *Resolver) define(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name.Lexeme] = true
}

func (r *Resolver) defineName(name string) {
	r.scopes[len(r.scopes)-1][name] = true
}

// resolveLocal records the distance to the innermost scope holding name.
// Names found in no scope are globals and get no entry.
func (r *Resolver) resolveLocal(expr ast.Expression, name string) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name]; ok {
			r.locals[expr] = len(r.scopes) - 1 - i
			return
		}
	}
}

func (r *Resolver) resolveFunction(fn *ast.FunctionStatement, kind FunctionType) {
	enclosingFunction, enclosingLoop := r.currentFunction, r.currentLoop
	r.currentFunction, r.currentLoop = kind, LoopNone
	defer func() { r.currentFunction, r.currentLoop = enclosingFunction, enclosingLoop }()

	r.beginScope()
	for _, p := range fn.Params {
		r.declare(p.Name)
		r.define(p.Name)
	}
	r.resolveStatements(fn.Body)
	r.endScope()
}

// Statements

func (r *Resolver) VisitExpressionStatement(s *ast.ExpressionStatement) {
	r.resolveExpression(s.Expression)
}

func (r *Resolver) VisitPrintStatement(s *ast.PrintStatement) {
	r.resolveExpression(s.Value)
}

func (r *Resolver) VisitVarStatement(s *ast.VarStatement) {
	r.declare(s.Name)
	r.resolveExpression(s.Value)
	r.define(s.Name)
}

func (r *Resolver) VisitBlockStatement(s *ast.BlockStatement) {
	r.beginScope()
	r.resolveStatements(s.Statements)
	r.endScope()
}

func (r *Resolver) VisitIfStatement(s *ast.IfStatement) {
	r.resolveExpression(s.Condition)
	r.resolveStatement(s.Then)
	r.resolveStatement(s.Else)
}

func (r *Resolver) VisitWhileStatement(s *ast.WhileStatement) {
	r.resolveExpression(s.Condition)
	enclosing := r.currentLoop
	r.currentLoop = LoopLoop
	r.resolveStatement(s.Body)
	r.currentLoop = enclosing
}

func (r *Resolver) VisitForEachStatement(s *ast.ForEachStatement) {
	r.resolveExpression(s.Iterable)
	r.beginScope()
	r.declare(s.Name)
	r.define(s.Name)
	enclosing := r.currentLoop
	r.currentLoop = LoopLoop
	r.resolveStatement(s.Body)
	r.currentLoop = enclosing
	r.endScope()
}

func (r *Resolver) VisitFunctionStatement(s *ast.FunctionStatement) {
	r.declare(s.Name)
	r.define(s.Name)
	r.resolveFunction(s, FunctionFunction)
}

func (r *Resolver) VisitClassStatement(s *ast.ClassStatement) {
	enclosingClass := r.currentClass
	r.currentClass = ClassClass
	defer func() { r.currentClass = enclosingClass }()

	r.declare(s.Name)
	r.define(s.Name)

	if s.Superclass != nil {
		if s.Superclass.Name.Lexeme == s.Name.Lexeme {
			r.errorf(s.Superclass.Name, "a class can't inherit from itself")
		}
		r.currentClass = ClassSubclass
		r.resolveExpression(s.Superclass)
		r.beginScope()
		r.defineName(config.SuperName)
	}

	r.beginScope()
	r.defineName(config.SelfName)

	enclosingFunction := r.currentFunction
	r.currentFunction = FunctionMethod
	for _, f := range s.Fields {
		r.resolveExpression(f.Value)
	}
	r.currentFunction = enclosingFunction

	for _, m := range s.Methods {
		kind := FunctionMethod
		if m.Name.Lexeme == config.InitMethodName {
			kind = FunctionInitializer
		}
		r.resolveFunction(m, kind)
	}

	r.endScope()
	if s.Superclass != nil {
		r.endScope()
	}
}

func (r *Resolver) VisitReturnStatement(s *ast.ReturnStatement) {
	if r.currentFunction == FunctionNone {
		r.errorf(s.Token, "can't return from top-level code")
	}
	if s.Value != nil {
		if r.currentFunction == FunctionInitializer {
			r.errorf(s.Token, "can't return a value from an initializer")
		}
		r.resolveExpression(s.Value)
	}
}

func (r *Resolver) VisitBreakStatement(s *ast.BreakStatement) {
	if r.currentLoop == LoopNone {
		r.errorf(s.Token, "can't use 'break' outside of a loop")
	}
}

func (r *Resolver) VisitExternStatement(s *ast.ExternStatement) {
	r.declare(s.Name)
	r.define(s.Name)
}

// Expressions

func (r *Resolver) VisitLiteral(e *ast.Literal) {}

func (r *Resolver) VisitVariable(e *ast.Variable) {
	if len(r.scopes) > 0 {
		if defined, ok := r.scopes[len(r.scopes)-1][e.Name.Lexeme]; ok && !defined {
			r.errorf(e.Name, "can't read local variable '%s' in its own initializer", e.Name.Lexeme)
		}
	}
	r.resolveLocal(e, e.Name.Lexeme)
}

func (r *Resolver) VisitAssign(e *ast.Assign) {
	r.resolveExpression(e.Value)
	r.resolveLocal(e, e.Name.Lexeme)
}

func (r *Resolver) VisitBinary(e *ast.Binary) {
	r.resolveExpression(e.Left)
	r.resolveExpression(e.Right)
}

func (r *Resolver) VisitLogical(e *ast.Logical) {
	r.resolveExpression(e.Left)
	r.resolveExpression(e.Right)
}

func (r *Resolver) VisitUnary(e *ast.Unary) {
	r.resolveExpression(e.Right)
}

func (r *Resolver) VisitCall(e *ast.Call) {
	r.resolveExpression(e.Callee)
	for _, a := range e.Arguments {
		r.resolveExpression(a)
	}
}

func (r *Resolver) VisitGet(e *ast.Get) {
	r.resolveExpression(e.Object)
}

func (r *Resolver) VisitSet(e *ast.Set) {
	r.resolveExpression(e.Value)
	r.resolveExpression(e.Object)
}

func (r *Resolver) VisitSelf(e *ast.Self) {
	if r.currentClass == ClassNone {
		r.errorf(e.Keyword, "can't use 'self' outside of a class")
		return
	}
	r.resolveLocal(e, config.SelfName)
}

func (r *Resolver) VisitSuper(e *ast.Super) {
	switch r.currentClass {
	case ClassNone:
		r.errorf(e.Keyword, "can't use 'super' outside of a class")
		return
	case ClassClass:
		r.errorf(e.Keyword, "can't use 'super' in a class with no superclass")
		return
	}
	r.resolveLocal(e, config.SuperName)
}

func (r *Resolver) VisitList(e *ast.List) {
	for _, el := range e.Elements {
		r.resolveExpression(el)
	}
}

func (r *Resolver) VisitIndexGet(e *ast.IndexGet) {
	r.resolveExpression(e.Object)
	r.resolveExpression(e.Index)
}

func (r *Resolver) VisitIndexSet(e *ast.IndexSet) {
	r.resolveExpression(e.Value)
	r.resolveExpression(e.Object)
	r.resolveExpression(e.Index)
}
