package ir

import (
	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/token"
)

// beginScope starts a new block scope
func (c *Compiler) beginScope() {
	c.scopes = append(c.scopes, make(map[string]int))
}

// endScope drops the innermost scope. Temps are never reused, so nothing
// is emitted.
func (c *Compiler) endScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// declareVariable binds name to a fresh temp in the innermost scope, or
// registers a global when compiling top-level code outside any block.
func (c *Compiler) declareVariable(name token.Token, t Type) (int, error) {
	slot := c.chunk.NewTemp(t)
	if len(c.scopes) == 0 {
		if _, exists := c.module.Globals[name.Lexeme]; exists {
			return 0, c.newError(name, "variable %s is already declared", name.Lexeme)
		}
		if c.isCallable(name.Lexeme) {
			return 0, c.newError(name, "%s is already declared as a function", name.Lexeme)
		}
		c.module.Globals[name.Lexeme] = slot
		return slot, nil
	}
	scope := c.scopes[len(c.scopes)-1]
	if _, exists := scope[name.Lexeme]; exists {
		return 0, c.newError(name, "variable %s is already declared in this scope", name.Lexeme)
	}
	scope[name.Lexeme] = slot
	return slot, nil
}

// variable describes where a name lives.
type variable struct {
	slot   int
	typ    Type
	global bool
}

// resolveVariable finds the storage of a referenced name. The resolver's
// table decides between local and global; a local that is not visible in
// the current chunk belongs to an enclosing function.
func (c *Compiler) resolveVariable(expr ast.Expression, name token.Token) (variable, error) {
	if _, ok := c.locals[expr]; ok {
		for i := len(c.scopes) - 1; i >= 0; i-- {
			if slot, found := c.scopes[i][name.Lexeme]; found {
				return variable{slot: slot, typ: c.chunk.Types[slot]}, nil
			}
		}
		return variable{}, c.newError(name, "cannot capture %s from an enclosing function", name.Lexeme)
	}
	slot, ok := c.module.Globals[name.Lexeme]
	if !ok {
		if _, fn := c.signatures[name.Lexeme]; fn {
			return variable{}, c.newError(name, "function %s can only be called", name.Lexeme)
		}
		return variable{}, c.newError(name, "undefined variable %s", name.Lexeme)
	}
	return variable{slot: slot, typ: c.module.Chunks[0].Types[slot], global: true}, nil
}

// load makes the value of v available as an operand of the current chunk.
func (c *Compiler) load(v variable, name token.Token) Operand {
	if !v.global || c.isTopLevel() {
		return TempOp(v.slot)
	}
	dest := c.chunk.NewTemp(v.typ)
	c.emit(Instruction{Op: OP_GET_GLOBAL, Dest: dest, A: TempOp(v.slot), Type: v.typ, Name: name.Lexeme, Line: name.Line})
	return TempOp(dest)
}

// store writes value into v and returns the operand holding the result.
func (c *Compiler) store(v variable, name token.Token, value Operand) Operand {
	if !v.global || c.isTopLevel() {
		c.emitMove(v.slot, value, v.typ, name.Line)
		return TempOp(v.slot)
	}
	c.emit(Instruction{Op: OP_SET_GLOBAL, Dest: NoDest, A: TempOp(v.slot), B: value, Type: v.typ, Name: name.Lexeme, Line: name.Line})
	return value
}
