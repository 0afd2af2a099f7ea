package evaluator

import (
	"math"

	"github.com/funvibe/kestrel/internal/object"
	"github.com/funvibe/kestrel/internal/token"
)

var compoundOps = map[token.TokenType]token.TokenType{
	token.PLUS_ASSIGN:     token.PLUS,
	token.MINUS_ASSIGN:    token.MINUS,
	token.ASTERISK_ASSIGN: token.ASTERISK,
	token.SLASH_ASSIGN:    token.SLASH,
	token.PERCENT_ASSIGN:  token.PERCENT,
}

func withType(tok token.Token, t token.TokenType) token.Token {
	tok.Type = t
	return tok
}

func (in *Interpreter) unary(op token.Token, right *object.Value) (*object.Value, error) {
	switch op.Type {
	case token.BANG:
		return keep(in, object.NewBool(in.heap, !right.Truthy())), nil
	case token.MINUS:
		switch right.Kind {
		case object.INTEGER_VALUE:
			return keep(in, object.NewInt(in.heap, -right.Int)), nil
		case object.FLOAT_VALUE:
			return keep(in, object.NewFloat(in.heap, -right.Float)), nil
		}
		return nil, newRuntimeError(op, "operand of '-' must be a number, got %s", right.Kind)
	}
	return nil, newRuntimeError(op, "unknown unary operator '%s'", op.Lexeme)
}

// binary applies a binary operator. Mixed int and float operands promote to
// float; string concatenation is checked before the numeric path.
func (in *Interpreter) binary(op token.Token, l, r *object.Value) (*object.Value, error) {
	switch op.Type {
	case token.EQ:
		return keep(in, object.NewBool(in.heap, l.Equals(r))), nil
	case token.NOT_EQ:
		return keep(in, object.NewBool(in.heap, !l.Equals(r))), nil
	case token.PLUS:
		if l.Kind == object.STRING_VALUE && r.Kind == object.STRING_VALUE {
			return keep(in, object.NewString(in.heap, l.Str+r.Str)), nil
		}
		if !l.IsNumber() || !r.IsNumber() {
			return nil, newRuntimeError(op, "operands of '+' must be two numbers or two strings, got %s and %s", l.Kind, r.Kind)
		}
	case token.AMPERSAND, token.PIPE, token.CARET, token.LSHIFT, token.RSHIFT:
		return in.bitwise(op, l, r)
	}

	if !l.IsNumber() || !r.IsNumber() {
		return nil, newRuntimeError(op, "operands of '%s' must be numbers, got %s and %s", op.Lexeme, l.Kind, r.Kind)
	}
	if l.Kind == object.INTEGER_VALUE && r.Kind == object.INTEGER_VALUE {
		return in.integerOp(op, l.Int, r.Int)
	}
	return in.floatOp(op, l.AsFloat(), r.AsFloat())
}

func (in *Interpreter) integerOp(op token.Token, a, b int64) (*object.Value, error) {
	var n int64
	switch op.Type {
	case token.PLUS:
		n = a + b
	case token.MINUS:
		n = a - b
	case token.ASTERISK:
		n = a * b
	case token.SLASH, token.PERCENT:
		if b == 0 {
			return nil, newRuntimeError(op, "division by zero")
		}
		if op.Type == token.SLASH {
			n = a / b
		} else {
			n = a % b
		}
	default:
		return in.comparison(op, float64(a), float64(b), a, b, true)
	}
	return keep(in, object.NewInt(in.heap, n)), nil
}

func (in *Interpreter) floatOp(op token.Token, a, b float64) (*object.Value, error) {
	var f float64
	switch op.Type {
	case token.PLUS:
		f = a + b
	case token.MINUS:
		f = a - b
	case token.ASTERISK:
		f = a * b
	case token.SLASH, token.PERCENT:
		if b == 0 {
			return nil, newRuntimeError(op, "division by zero")
		}
		if op.Type == token.SLASH {
			f = a / b
		} else {
			f = math.Mod(a, b)
		}
	default:
		return in.comparison(op, a, b, 0, 0, false)
	}
	return keep(in, object.NewFloat(in.heap, f)), nil
}

func (in *Interpreter) comparison(op token.Token, fa, fb float64, ia, ib int64, ints bool) (*object.Value, error) {
	var cmp int
	switch {
	case ints && ia < ib, !ints && fa < fb:
		cmp = -1
	case ints && ia > ib, !ints && fa > fb:
		cmp = 1
	}
	var b bool
	switch op.Type {
	case token.LT:
		b = cmp < 0
	case token.LTE:
		b = cmp <= 0
	case token.GT:
		b = cmp > 0
	case token.GTE:
		b = cmp >= 0
	default:
		return nil, newRuntimeError(op, "unknown operator '%s'", op.Lexeme)
	}
	return keep(in, object.NewBool(in.heap, b)), nil
}

func (in *Interpreter) bitwise(op token.Token, l, r *object.Value) (*object.Value, error) {
	if l.Kind != object.INTEGER_VALUE || r.Kind != object.INTEGER_VALUE {
		return nil, newRuntimeError(op, "operands of '%s' must be integers, got %s and %s", op.Lexeme, l.Kind, r.Kind)
	}
	a, b := l.Int, r.Int
	var n int64
	switch op.Type {
	case token.AMPERSAND:
		n = a & b
	case token.PIPE:
		n = a | b
	case token.CARET:
		n = a ^ b
	case token.LSHIFT, token.RSHIFT:
		if b < 0 {
			return nil, newRuntimeError(op, "negative shift count %d", b)
		}
		if op.Type == token.LSHIFT {
			n = a << uint64(b)
		} else {
			n = a >> uint64(b)
		}
	}
	return keep(in, object.NewInt(in.heap, n)), nil
}
