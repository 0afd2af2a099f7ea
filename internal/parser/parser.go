// Package parser builds the syntax tree from the token stream. Errors are
// recovered at statement boundaries so one pass reports as many as it can.
package parser

import (
	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/token"
)

// maxArgs bounds parameters and call arguments.
const maxArgs = 255

type Parser struct {
	tokens  []token.Token
	current int
	errors  []*diagnostics.Diagnostic
}

// bailout unwinds the parser to the nearest declaration boundary.
type bailout struct{}

func New(tokens []token.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens}
}

func (p *Parser) Errors() []*diagnostics.Diagnostic {
	return p.errors
}

// ParseProgram parses declarations until EOF.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}
	return program
}

func (p *Parser) declaration() (stmt ast.Statement) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()

	switch {
	case p.match(token.CLASS):
		return p.classDeclaration()
	case p.match(token.FUN):
		return p.function(p.previous())
	case p.match(token.VAR):
		return p.varDeclaration()
	case p.match(token.EXTERN):
		return p.externDeclaration()
	}
	return p.statement()
}

func (p *Parser) classDeclaration() ast.Statement {
	stmt := &ast.ClassStatement{Token: p.previous()}
	stmt.Name = p.consume(token.IDENT, "expected class name")
	if p.match(token.LT) {
		stmt.Superclass = &ast.Variable{Name: p.consume(token.IDENT, "expected superclass name")}
	}
	closer := p.openBody("before class body")
	for !p.check(closer) && !p.isAtEnd() {
		if p.match(token.VAR) {
			field := p.varDeclaration().(*ast.VarStatement)
			stmt.Fields = append(stmt.Fields, field)
			continue
		}
		p.match(token.FUN)
		stmt.Methods = append(stmt.Methods, p.function(p.peek()))
	}
	p.consume(closer, "expected '"+string(closer)+"' after class body")
	return stmt
}

func (p *Parser) function(tok token.Token) *ast.FunctionStatement {
	fn := &ast.FunctionStatement{Token: tok}
	fn.Name = p.consume(token.IDENT, "expected function name")
	p.consume(token.LPAREN, "expected '(' after function name")
	fn.Params = p.parameters()
	if p.match(token.COLON) {
		fn.ReturnType = p.typeExpr()
	}
	closer := p.openBody("before function body")
	fn.Body = p.blockBody(closer)
	return fn
}

func (p *Parser) parameters() []*ast.Param {
	var params []*ast.Param
	if !p.check(token.RPAREN) {
		for {
			if len(params) >= maxArgs {
				p.errorAt(p.peek(), "can't have more than %d parameters", maxArgs)
			}
			param := &ast.Param{Name: p.consume(token.IDENT, "expected parameter name")}
			if p.match(token.COLON) {
				param.Type = p.typeExpr()
			}
			params = append(params, param)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expected ')' after parameters")
	return params
}

func (p *Parser) typeExpr() *ast.TypeExpr {
	if p.match(token.LBRACKET) {
		t := &ast.TypeExpr{Token: p.previous()}
		t.Elem = p.typeExpr()
		p.consume(token.RBRACKET, "expected ']' after pointer element type")
		return t
	}
	name := p.consume(token.IDENT, "expected type name")
	return &ast.TypeExpr{Token: name, Name: name.Lexeme}
}

func (p *Parser) varDeclaration() ast.Statement {
	stmt := &ast.VarStatement{Token: p.previous()}
	stmt.Name = p.consume(token.IDENT, "expected variable name")
	if p.match(token.COLON) {
		stmt.Type = p.typeExpr()
	}
	if p.match(token.ASSIGN) {
		stmt.Value = p.expression()
	}
	p.consume(token.SEMICOLON, "expected ';' after variable declaration")
	return stmt
}

func (p *Parser) externDeclaration() ast.Statement {
	stmt := &ast.ExternStatement{Token: p.previous()}
	sym := p.consume(token.STRING, "expected native symbol name string after 'extern'")
	stmt.Symbol, _ = sym.Literal.(string)
	p.consume(token.AS, "expected 'as' after native symbol name")
	stmt.Name = p.consume(token.IDENT, "expected extern function name")
	p.consume(token.LPAREN, "expected '(' after extern name")
	stmt.Params = p.parameters()
	if p.match(token.COLON) {
		stmt.ReturnType = p.typeExpr()
	}
	p.consume(token.SEMICOLON, "expected ';' after extern declaration")
	return stmt
}

func (p *Parser) statement() ast.Statement {
	switch {
	case p.match(token.FOR):
		return p.forStatement()
	case p.match(token.IF):
		return p.ifStatement()
	case p.match(token.PRINT):
		tok := p.previous()
		value := p.expression()
		p.consume(token.SEMICOLON, "expected ';' after value")
		return &ast.PrintStatement{Token: tok, Value: value}
	case p.match(token.RETURN):
		stmt := &ast.ReturnStatement{Token: p.previous()}
		if !p.check(token.SEMICOLON) {
			stmt.Value = p.expression()
		}
		p.consume(token.SEMICOLON, "expected ';' after return value")
		return stmt
	case p.match(token.BREAK):
		stmt := &ast.BreakStatement{Token: p.previous()}
		p.consume(token.SEMICOLON, "expected ';' after 'break'")
		return stmt
	case p.match(token.WHILE):
		tok := p.previous()
		p.consume(token.LPAREN, "expected '(' after 'while'")
		cond := p.expression()
		p.consume(token.RPAREN, "expected ')' after condition")
		return &ast.WhileStatement{Token: tok, Condition: cond, Body: p.statement()}
	case p.match(token.LBRACE):
		tok := p.previous()
		return &ast.BlockStatement{Token: tok, Statements: p.blockBody(token.RBRACE)}
	case p.match(token.LBRACKET):
		tok := p.previous()
		return &ast.BlockStatement{Token: tok, Statements: p.blockBody(token.RBRACKET)}
	}
	tok := p.peek()
	expr := p.expression()
	p.consume(token.SEMICOLON, "expected ';' after expression")
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}

// openBody consumes '{' or '[' and returns the matching closer.
func (p *Parser) openBody(where string) token.TokenType {
	if p.match(token.LBRACE) {
		return token.RBRACE
	}
	if p.match(token.LBRACKET) {
		return token.RBRACKET
	}
	p.fail(p.peek(), "expected '{' or '[' "+where)
	return token.RBRACE
}

func (p *Parser) blockBody(closer token.TokenType) []ast.Statement {
	var stmts []ast.Statement
	for !p.check(closer) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.consume(closer, "expected '"+string(closer)+"' after block")
	return stmts
}

func (p *Parser) ifStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.previous()}
	p.consume(token.LPAREN, "expected '(' after 'if'")
	stmt.Condition = p.expression()
	p.consume(token.RPAREN, "expected ')' after if condition")
	stmt.Then = p.statement()
	if p.match(token.ELSE) {
		stmt.Else = p.statement()
	}
	return stmt
}

// forStatement parses both loop forms. The C-style form is desugared into
// a block holding the initializer and a while loop.
func (p *Parser) forStatement() ast.Statement {
	forTok := p.previous()
	p.consume(token.LPAREN, "expected '(' after 'for'")

	if p.check(token.IDENT) && p.peekNext().Type == token.IN {
		name := p.advance()
		p.advance() // in
		iterable := p.expression()
		p.consume(token.RPAREN, "expected ')' after for-each clause")
		return &ast.ForEachStatement{Token: forTok, Name: name, Iterable: iterable, Body: p.statement()}
	}

	var init ast.Statement
	switch {
	case p.match(token.SEMICOLON):
	case p.match(token.VAR):
		init = p.varDeclaration()
	default:
		tok := p.peek()
		expr := p.expression()
		p.consume(token.SEMICOLON, "expected ';' after loop initializer")
		init = &ast.ExpressionStatement{Token: tok, Expression: expr}
	}

	var cond ast.Expression
	if !p.check(token.SEMICOLON) {
		cond = p.expression()
	}
	p.consume(token.SEMICOLON, "expected ';' after loop condition")

	var incr ast.Expression
	if !p.check(token.RPAREN) {
		incr = p.expression()
	}
	p.consume(token.RPAREN, "expected ')' after for clauses")

	body := p.statement()
	if incr != nil {
		body = &ast.BlockStatement{Token: forTok, Statements: []ast.Statement{
			body,
			&ast.ExpressionStatement{Token: forTok, Expression: incr},
		}}
	}
	if cond == nil {
		cond = &ast.Literal{Token: forTok, Raw: true}
	}
	var loop ast.Statement = &ast.WhileStatement{Token: forTok, Condition: cond, Body: body}
	if init != nil {
		loop = &ast.BlockStatement{Token: forTok, Statements: []ast.Statement{init, loop}}
	}
	return loop
}
