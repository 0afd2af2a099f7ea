package parser

import (
	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/token"
)

var assignOps = []token.TokenType{
	token.ASSIGN, token.PLUS_ASSIGN, token.MINUS_ASSIGN,
	token.ASTERISK_ASSIGN, token.SLASH_ASSIGN, token.PERCENT_ASSIGN,
}

func (p *Parser) expression() ast.Expression {
	return p.assignment()
}

func (p *Parser) assignment() ast.Expression {
	expr := p.or()
	if !p.match(assignOps...) {
		return expr
	}
	op := p.previous()
	value := p.assignment()
	switch target := expr.(type) {
	case *ast.Variable:
		return &ast.Assign{Name: target.Name, Operator: op, Value: value}
	case *ast.Get:
		return &ast.Set{Object: target.Object, Name: target.Name, Operator: op, Value: value}
	case *ast.IndexGet:
		return &ast.IndexSet{Object: target.Object, Bracket: target.Bracket, Index: target.Index, Operator: op, Value: value}
	}
	p.errorAt(op, "invalid assignment target")
	return expr
}

func (p *Parser) or() ast.Expression {
	expr := p.and()
	for p.match(token.OR) {
		op := p.previous()
		expr = &ast.Logical{Left: expr, Operator: op, Right: p.and()}
	}
	return expr
}

func (p *Parser) and() ast.Expression {
	expr := p.binaryLevel(0)
	for p.match(token.AND) {
		op := p.previous()
		expr = &ast.Logical{Left: expr, Operator: op, Right: p.binaryLevel(0)}
	}
	return expr
}

// binaryLevels lists the left-associative binary operators from loosest to
// tightest binding.
var binaryLevels = [][]token.TokenType{
	{token.PIPE},
	{token.CARET},
	{token.AMPERSAND},
	{token.EQ, token.NOT_EQ},
	{token.LT, token.LTE, token.GT, token.GTE},
	{token.LSHIFT, token.RSHIFT},
	{token.PLUS, token.MINUS},
	{token.ASTERISK, token.SLASH, token.PERCENT},
}

func (p *Parser) binaryLevel(level int) ast.Expression {
	if level == len(binaryLevels) {
		return p.unary()
	}
	expr := p.binaryLevel(level + 1)
	for p.match(binaryLevels[level]...) {
		op := p.previous()
		expr = &ast.Binary{Left: expr, Operator: op, Right: p.binaryLevel(level + 1)}
	}
	return expr
}

func (p *Parser) unary() ast.Expression {
	if p.match(token.BANG, token.MINUS) {
		op := p.previous()
		return &ast.Unary{Operator: op, Right: p.unary()}
	}
	return p.call()
}

func (p *Parser) call() ast.Expression {
	expr := p.primary()
	for {
		switch {
		case p.match(token.LPAREN):
			expr = p.finishCall(expr)
		case p.match(token.DOT):
			name := p.consume(token.IDENT, "expected property name after '.'")
			expr = &ast.Get{Object: expr, Name: name}
		case p.match(token.LBRACKET):
			bracket := p.previous()
			index := p.expression()
			p.consume(token.RBRACKET, "expected ']' after index")
			expr = &ast.IndexGet{Object: expr, Bracket: bracket, Index: index}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expression) ast.Expression {
	var args []ast.Expression
	if !p.check(token.RPAREN) {
		for {
			if len(args) >= maxArgs {
				p.errorAt(p.peek(), "can't have more than %d arguments", maxArgs)
			}
			args = append(args, p.expression())
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	paren := p.consume(token.RPAREN, "expected ')' after arguments")
	return &ast.Call{Callee: callee, Paren: paren, Arguments: args}
}

func (p *Parser) primary() ast.Expression {
	switch {
	case p.match(token.FALSE):
		return &ast.Literal{Token: p.previous(), Raw: false}
	case p.match(token.TRUE):
		return &ast.Literal{Token: p.previous(), Raw: true}
	case p.match(token.NULL):
		return &ast.Literal{Token: p.previous(), Raw: nil}
	case p.match(token.INT, token.FLOAT, token.STRING, token.CHAR):
		tok := p.previous()
		return &ast.Literal{Token: tok, Raw: tok.Literal}
	case p.match(token.SELF):
		return &ast.Self{Keyword: p.previous()}
	case p.match(token.SUPER):
		keyword := p.previous()
		p.consume(token.DOT, "expected '.' after 'super'")
		method := p.consume(token.IDENT, "expected superclass method name")
		return &ast.Super{Keyword: keyword, Method: method}
	case p.match(token.IDENT):
		return &ast.Variable{Name: p.previous()}
	case p.match(token.LPAREN):
		expr := p.expression()
		p.consume(token.RPAREN, "expected ')' after expression")
		return expr
	case p.match(token.LBRACKET):
		list := &ast.List{Bracket: p.previous()}
		if !p.check(token.RBRACKET) {
			for {
				list.Elements = append(list.Elements, p.expression())
				if !p.match(token.COMMA) {
					break
				}
			}
		}
		p.consume(token.RBRACKET, "expected ']' after list elements")
		return list
	}
	p.fail(p.peek(), "expected expression")
	return nil
}
