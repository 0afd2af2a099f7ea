package parser

import (
	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/token"
)

func (p *Parser) match(types ...token.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) check(t token.TokenType) bool {
	if p.isAtEnd() {
		return t == token.EOF
	}
	return p.peek().Type == t
}

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == token.EOF
}

func (p *Parser) peek() token.Token {
	return p.tokens[p.current]
}

func (p *Parser) peekNext() token.Token {
	if p.current+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current+1]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.current-1]
}

func (p *Parser) consume(t token.TokenType, message string) token.Token {
	if p.check(t) {
		return p.advance()
	}
	p.fail(p.peek(), message)
	return token.Token{}
}

// errorAt records a diagnostic without unwinding.
func (p *Parser) errorAt(tok token.Token, format string, args ...interface{}) {
	d := diagnostics.New(diagnostics.PhaseParsing, tok, format, args...)
	if tok.Type == token.EOF {
		d.Message += " at end"
	} else {
		d.Message += " at '" + tok.Lexeme + "'"
	}
	p.errors = append(p.errors, d)
}

// fail records a diagnostic and unwinds to the enclosing declaration.
func (p *Parser) fail(tok token.Token, message string) {
	p.errorAt(tok, "%s", message)
	panic(bailout{})
}

// synchronize discards tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Type == token.SEMICOLON {
			return
		}
		switch p.peek().Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN, token.EXTERN:
			return
		}
		p.advance()
	}
}
