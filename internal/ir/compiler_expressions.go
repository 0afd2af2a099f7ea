package ir

import (
	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/token"
)

var binaryOps = map[token.TokenType]Opcode{
	token.PLUS:      OP_ADD,
	token.MINUS:     OP_SUB,
	token.ASTERISK:  OP_MUL,
	token.SLASH:     OP_DIV,
	token.PERCENT:   OP_MOD,
	token.AMPERSAND: OP_BAND,
	token.PIPE:      OP_BOR,
	token.CARET:     OP_BXOR,
	token.LSHIFT:    OP_LSHIFT,
	token.RSHIFT:    OP_RSHIFT,
	token.EQ:        OP_EQ,
	token.NOT_EQ:    OP_NE,
	token.LT:        OP_LT,
	token.LTE:       OP_LE,
	token.GT:        OP_GT,
	token.GTE:       OP_GE,
}

// compoundOps maps compound assignment operators to their arithmetic.
var compoundOps = map[token.TokenType]Opcode{
	token.PLUS_ASSIGN:     OP_ADD,
	token.MINUS_ASSIGN:    OP_SUB,
	token.ASTERISK_ASSIGN: OP_MUL,
	token.SLASH_ASSIGN:    OP_DIV,
	token.PERCENT_ASSIGN:  OP_MOD,
}

// compileExpression emits the code for e and returns the operand holding
// its value together with the value's static type.
func (c *Compiler) compileExpression(expr ast.Expression) (Operand, Type, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return c.compileLiteral(e)

	case *ast.Variable:
		v, err := c.resolveVariable(e, e.Name)
		if err != nil {
			return Operand{}, Nil, err
		}
		return c.load(v, e.Name), v.typ, nil

	case *ast.Assign:
		return c.compileAssign(e)

	case *ast.Binary:
		left, lt, err := c.compileExpression(e.Left)
		if err != nil {
			return Operand{}, Nil, err
		}
		right, rt, err := c.compileExpression(e.Right)
		if err != nil {
			return Operand{}, Nil, err
		}
		op, ok := binaryOps[e.Operator.Type]
		if !ok {
			return Operand{}, Nil, c.newError(e.Operator, "unknown operator %s", e.Operator.Lexeme)
		}
		return c.emitBinary(op, e.Operator, left, lt, right, rt)

	case *ast.Logical:
		return c.compileLogical(e)

	case *ast.Unary:
		operand, t, err := c.compileExpression(e.Right)
		if err != nil {
			return Operand{}, Nil, err
		}
		op := OP_NEG
		if e.Operator.Type == token.BANG {
			op = OP_NOT
		}
		result, ok := UnaryResult(op, t)
		if !ok {
			return Operand{}, Nil, c.newError(e.Operator, "operator %s not defined for %s", e.Operator.Lexeme, t)
		}
		dest := c.chunk.NewTemp(result)
		c.emit(Instruction{Op: op, Dest: dest, A: operand, Type: result, Line: e.Operator.Line})
		return TempOp(dest), result, nil

	case *ast.Call:
		return c.compileCall(e)

	case *ast.Get, *ast.Set:
		return Operand{}, Nil, unsupported(expr.GetToken(), "fields are")
	case *ast.Self, *ast.Super:
		return Operand{}, Nil, unsupported(expr.GetToken(), "classes are")
	case *ast.List, *ast.IndexGet, *ast.IndexSet:
		return Operand{}, Nil, unsupported(expr.GetToken(), "lists are")
	}
	return Operand{}, Nil, c.newError(expr.GetToken(), "unknown expression %T", expr)
}

func (c *Compiler) compileLiteral(e *ast.Literal) (Operand, Type, error) {
	if e.Value != nil {
		return Operand{}, Nil, c.newError(e.Token, "runtime values cannot be compiled")
	}
	switch v := e.Raw.(type) {
	case nil:
		return NilOp(), Nil, nil
	case int64:
		return IntOp(v), Int, nil
	case float64:
		return FloatOp(v), Float, nil
	case bool:
		return BoolOp(v), Bool, nil
	case rune:
		return CharOp(v), Char, nil
	case string:
		return PointerOp(c.module.AddString(v)), PointerTo(Char), nil
	}
	return Operand{}, Nil, c.newError(e.Token, "unsupported literal %v", e.Raw)
}

func (c *Compiler) emitBinary(op Opcode, tok token.Token, left Operand, lt Type, right Operand, rt Type) (Operand, Type, error) {
	result, ok := BinaryResult(op, lt, rt)
	if !ok {
		return Operand{}, Nil, c.newError(tok, "operator %s not defined for %s and %s", tok.Lexeme, lt, rt)
	}
	dest := c.chunk.NewTemp(result)
	c.emit(Instruction{Op: op, Dest: dest, A: left, B: right, Type: result, Line: tok.Line})
	return TempOp(dest), result, nil
}

// compileAssign stores into the existing slot of the variable; the compiled
// path never rebinds a name to new storage.
func (c *Compiler) compileAssign(e *ast.Assign) (Operand, Type, error) {
	v, err := c.resolveVariable(e, e.Name)
	if err != nil {
		return Operand{}, Nil, err
	}
	value, t, err := c.compileExpression(e.Value)
	if err != nil {
		return Operand{}, Nil, err
	}
	if op, ok := compoundOps[e.Operator.Type]; ok {
		current := c.load(v, e.Name)
		if value, t, err = c.emitBinary(op, e.Operator, current, v.typ, value, t); err != nil {
			return Operand{}, Nil, err
		}
	}
	if !Assignable(v.typ, t) {
		return Operand{}, Nil, c.newError(e.Name, "cannot assign %s to %s of type %s", t, e.Name.Lexeme, v.typ)
	}
	return c.store(v, e.Name, value), v.typ, nil
}

// compileLogical lowers and/or to jumps around the right operand.
func (c *Compiler) compileLogical(e *ast.Logical) (Operand, Type, error) {
	left, lt, err := c.compileExpression(e.Left)
	if err != nil {
		return Operand{}, Nil, err
	}
	if lt.Kind != TypeBool {
		return Operand{}, Nil, c.newError(e.Operator, "operator %s not defined for %s", e.Operator.Lexeme, lt)
	}
	line := e.Operator.Line
	dest := c.chunk.NewTemp(Bool)
	c.emitMove(dest, left, Bool, line)

	end := c.newLabel()
	if e.Operator.Type == token.AND {
		c.emitJumpUnless(TempOp(dest), end, line)
	} else {
		rhs := c.newLabel()
		c.emitJumpUnless(TempOp(dest), rhs, line)
		c.emitJump(end, line)
		c.placeLabel(rhs, line)
	}

	right, rt, err := c.compileExpression(e.Right)
	if err != nil {
		return Operand{}, Nil, err
	}
	if rt.Kind != TypeBool {
		return Operand{}, Nil, c.newError(e.Operator, "operator %s not defined for %s", e.Operator.Lexeme, rt)
	}
	c.emitMove(dest, right, Bool, line)
	c.placeLabel(end, line)
	return TempOp(dest), Bool, nil
}

func (c *Compiler) compileCall(e *ast.Call) (Operand, Type, error) {
	callee, ok := e.Callee.(*ast.Variable)
	if !ok {
		return Operand{}, Nil, c.newError(e.Paren, "only named functions can be called in compiled code")
	}
	name := callee.Name.Lexeme
	sig, known := c.signatures[name]
	if _, local := c.locals[callee]; local || !known {
		return Operand{}, Nil, c.newError(callee.Name, "%s is not a function", name)
	}
	if len(e.Arguments) != len(sig.params) {
		return Operand{}, Nil, c.newError(e.Paren, "%s expects %d arguments, got %d", name, len(sig.params), len(e.Arguments))
	}

	// All arguments are evaluated before any is pushed, so nested calls
	// do not interleave with this call's parameters.
	args := make([]Operand, len(e.Arguments))
	for i, arg := range e.Arguments {
		value, t, err := c.compileExpression(arg)
		if err != nil {
			return Operand{}, Nil, err
		}
		if !Assignable(sig.params[i], t) {
			return Operand{}, Nil, c.newError(arg.GetToken(), "argument %d of %s must be %s, got %s", i+1, name, sig.params[i], t)
		}
		args[i] = value
	}
	line := e.Paren.Line
	for _, arg := range args {
		c.emit(Instruction{Op: OP_PARAM, Dest: NoDest, A: arg, Line: line})
	}

	dest := NoDest
	result := NilOp()
	if sig.ret.Kind != TypeNil {
		dest = c.chunk.NewTemp(sig.ret)
		result = TempOp(dest)
	}
	ins := Instruction{Dest: dest, B: IntOp(int64(len(args))), Type: sig.ret, Name: name, Line: line}
	if sig.extern >= 0 {
		ins.Op = OP_CALL_NATIVE
		ins.A = IntOp(int64(sig.extern))
	} else {
		ins.Op = OP_CALL
	}
	c.emit(ins)
	return result, sig.ret, nil
}
