package ir

import (
	"github.com/funvibe/kestrel/internal/ast"
)

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		_, _, err := c.compileExpression(s.Expression)
		return err

	case *ast.PrintStatement:
		value, t, err := c.compileExpression(s.Value)
		if err != nil {
			return err
		}
		c.emit(Instruction{Op: OP_PRINT, Dest: NoDest, A: value, Type: t, Line: s.Token.Line})
		return nil

	case *ast.VarStatement:
		return c.compileVar(s)

	case *ast.BlockStatement:
		return c.compileBlock(s.Statements)

	case *ast.IfStatement:
		return c.compileIf(s)

	case *ast.WhileStatement:
		return c.compileWhile(s)

	case *ast.ReturnStatement:
		return c.compileReturn(s)

	case *ast.BreakStatement:
		if len(c.loops) == 0 {
			return c.newError(s.Token, "break outside of a loop")
		}
		c.emitJump(c.loops[len(c.loops)-1], s.Token.Line)
		return nil

	case *ast.FunctionStatement:
		if !c.isTopLevel() || len(c.scopes) > 0 {
			return unsupported(s.Name, "nested functions are")
		}
		// Compiled separately once the top level is done.
		return nil

	case *ast.ExternStatement:
		if !c.isTopLevel() || len(c.scopes) > 0 {
			return c.newError(s.Name, "extern declarations must be at top level")
		}
		return nil

	case *ast.ClassStatement:
		return unsupported(s.Name, "classes are")

	case *ast.ForEachStatement:
		return unsupported(s.Token, "for-in loops are")
	}
	return c.newError(stmt.GetToken(), "unknown statement %T", stmt)
}

// compileBlock compiles statements in a fresh scope, reporting errors per
// statement.
func (c *Compiler) compileBlock(stmts []ast.Statement) error {
	c.beginScope()
	defer c.endScope()
	for _, s := range stmts {
		if err := c.compileStatement(s); err != nil {
			c.report(err)
		}
	}
	return nil
}

func (c *Compiler) compileVar(s *ast.VarStatement) error {
	var declared *Type
	if s.Type != nil {
		t, err := c.annotation(s.Type)
		if err != nil {
			return err
		}
		declared = &t
	}

	var value Operand
	var t Type
	if s.Value != nil {
		var err error
		value, t, err = c.compileExpression(s.Value)
		if err != nil {
			return err
		}
		if t.Kind == TypeNil && declared == nil {
			return c.newError(s.Name, "cannot infer the type of %s from nil", s.Name.Lexeme)
		}
		if declared != nil && !Assignable(*declared, t) {
			return c.newError(s.Name, "cannot initialize %s of type %s with %s", s.Name.Lexeme, *declared, t)
		}
	} else {
		if declared == nil {
			return c.newError(s.Name, "variable %s needs a type or an initializer", s.Name.Lexeme)
		}
		value = zeroValue(*declared)
	}
	if declared != nil {
		t = *declared
	}

	slot, err := c.declareVariable(s.Name, t)
	if err != nil {
		return err
	}
	c.emitMove(slot, value, t, s.Name.Line)
	return nil
}

func zeroValue(t Type) Operand {
	switch t.Kind {
	case TypeInt:
		return IntOp(0)
	case TypeFloat:
		return FloatOp(0)
	case TypeBool:
		return BoolOp(false)
	case TypeChar:
		return CharOp(0)
	}
	return NilOp()
}

func (c *Compiler) condition(e ast.Expression) (Operand, error) {
	cond, t, err := c.compileExpression(e)
	if err != nil {
		return Operand{}, err
	}
	if t.Kind != TypeBool {
		return Operand{}, c.newError(e.GetToken(), "condition must be %s, got %s", Bool, t)
	}
	return cond, nil
}

func (c *Compiler) compileIf(s *ast.IfStatement) error {
	cond, err := c.condition(s.Condition)
	if err != nil {
		return err
	}
	elseLabel := c.newLabel()
	endLabel := c.newLabel()
	c.emitJumpUnless(cond, elseLabel, s.Token.Line)
	if err := c.compileNested(s.Then); err != nil {
		c.report(err)
	}
	c.emitJump(endLabel, s.Token.Line)
	c.placeLabel(elseLabel, s.Token.Line)
	if s.Else != nil {
		if err := c.compileNested(s.Else); err != nil {
			c.report(err)
		}
	}
	c.placeLabel(endLabel, s.Token.Line)
	return nil
}

func (c *Compiler) compileWhile(s *ast.WhileStatement) error {
	startLabel := c.newLabel()
	endLabel := c.newLabel()
	c.placeLabel(startLabel, s.Token.Line)
	cond, err := c.condition(s.Condition)
	if err != nil {
		return err
	}
	c.emitJumpUnless(cond, endLabel, s.Token.Line)

	c.loops = append(c.loops, endLabel)
	if err := c.compileNested(s.Body); err != nil {
		c.report(err)
	}
	c.loops = c.loops[:len(c.loops)-1]

	c.emitJump(startLabel, s.Token.Line)
	c.placeLabel(endLabel, s.Token.Line)
	return nil
}

// compileNested compiles the body of an if or while. A bare declaration
// there gets its own scope so it never becomes a global.
func (c *Compiler) compileNested(s ast.Statement) error {
	if _, ok := s.(*ast.BlockStatement); ok {
		return c.compileStatement(s)
	}
	c.beginScope()
	defer c.endScope()
	return c.compileStatement(s)
}

func (c *Compiler) compileReturn(s *ast.ReturnStatement) error {
	if c.isTopLevel() {
		return c.newError(s.Token, "return outside of a function")
	}
	want := c.chunk.Return
	if s.Value == nil {
		if want.Kind != TypeNil {
			return c.newError(s.Token, "%s must return a value of type %s", c.chunk.Name, want)
		}
		c.emit(Instruction{Op: OP_RETURN, Dest: NoDest, A: NilOp(), Line: s.Token.Line})
		return nil
	}
	value, t, err := c.compileExpression(s.Value)
	if err != nil {
		return err
	}
	if !Assignable(want, t) {
		return c.newError(s.Token, "%s returns %s, got %s", c.chunk.Name, want, t)
	}
	c.emit(Instruction{Op: OP_RETURN, Dest: NoDest, A: value, Type: t, Line: s.Token.Line})
	return nil
}
