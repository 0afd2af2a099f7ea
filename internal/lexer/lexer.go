package lexer

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number

	errors []*diagnostics.Diagnostic
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		return
	}
	l.position = l.readPosition
	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.readPosition += w
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// Errors returns the diagnostics collected so far.
func (l *Lexer) Errors() []*diagnostics.Diagnostic {
	return l.errors
}

func (l *Lexer) errorf(line, offset int, format string, args ...interface{}) {
	l.errors = append(l.errors, diagnostics.NewAt(diagnostics.PhaseLexing, line, offset, format, args...))
}

func (l *Lexer) tok(t token.TokenType, lexeme string, line, offset int) token.Token {
	return token.Token{Type: t, Lexeme: lexeme, Line: line, Offset: offset}
}

// twoChar emits either the single-char token or, if the next char is next,
// the two-char token.
func (l *Lexer) twoChar(next rune, double, single token.TokenType) token.Token {
	line, offset := l.line, l.position
	if l.peekChar() == next {
		first := l.ch
		l.readChar()
		tok := l.tok(double, string(first)+string(l.ch), line, offset)
		l.readChar()
		return tok
	}
	tok := l.tok(single, string(l.ch), line, offset)
	l.readChar()
	return tok
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	line, offset := l.line, l.position
	switch l.ch {
	case 0:
		return l.tok(token.EOF, "", line, offset)
	case '=':
		return l.twoChar('=', token.EQ, token.ASSIGN)
	case '!':
		return l.twoChar('=', token.NOT_EQ, token.BANG)
	case '+':
		return l.twoChar('=', token.PLUS_ASSIGN, token.PLUS)
	case '-':
		return l.twoChar('=', token.MINUS_ASSIGN, token.MINUS)
	case '*':
		return l.twoChar('=', token.ASTERISK_ASSIGN, token.ASTERISK)
	case '/':
		return l.twoChar('=', token.SLASH_ASSIGN, token.SLASH)
	case '%':
		return l.twoChar('=', token.PERCENT_ASSIGN, token.PERCENT)
	case '<':
		if l.peekChar() == '<' {
			return l.twoChar('<', token.LSHIFT, token.LT)
		}
		return l.twoChar('=', token.LTE, token.LT)
	case '>':
		if l.peekChar() == '>' {
			return l.twoChar('>', token.RSHIFT, token.GT)
		}
		return l.twoChar('=', token.GTE, token.GT)
	case '"':
		return l.readString()
	case '\'':
		return l.readCharLiteral()
	}

	if single, ok := singles[l.ch]; ok {
		tok := l.tok(single, string(l.ch), line, offset)
		l.readChar()
		return tok
	}
	if isLetter(l.ch) {
		ident := l.readIdentifier()
		return l.tok(token.LookupIdent(ident), ident, line, offset)
	}
	if isDigit(l.ch) {
		return l.readNumber()
	}

	l.errorf(line, offset, "unexpected character %q", l.ch)
	tok := l.tok(token.ILLEGAL, string(l.ch), line, offset)
	l.readChar()
	return tok
}

var singles = map[rune]token.TokenType{
	',': token.COMMA,
	';': token.SEMICOLON,
	':': token.COLON,
	'.': token.DOT,
	'(': token.LPAREN,
	')': token.RPAREN,
	'{': token.LBRACE,
	'}': token.RBRACE,
	'[': token.LBRACKET,
	']': token.RBRACKET,
	'&': token.AMPERSAND,
	'|': token.PIPE,
	'^': token.CARET,
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() token.Token {
	line, start := l.line, l.position
	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	lexeme := l.input[start:l.position]
	if isFloat {
		f, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			l.errorf(line, start, "malformed float literal %q", lexeme)
		}
		return token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: f, Line: line, Offset: start}
	}
	n, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		l.errorf(line, start, "integer literal %q out of range", lexeme)
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: n, Line: line, Offset: start}
}

func (l *Lexer) readEscape() (rune, bool) {
	// l.ch is the backslash
	l.readChar()
	switch l.ch {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '"', '\'':
		return l.ch, true
	}
	return l.ch, false
}

func (l *Lexer) readString() token.Token {
	line, start := l.line, l.position
	l.readChar() // opening quote
	var out []rune
	for l.ch != '"' {
		if l.ch == 0 {
			l.errorf(line, start, "unterminated string")
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:], Line: line, Offset: start}
		}
		if l.ch == '\\' {
			r, ok := l.readEscape()
			if !ok {
				l.errorf(l.line, l.position, "unknown escape sequence \\%c", r)
			}
			out = append(out, r)
		} else {
			out = append(out, l.ch)
		}
		l.readChar()
	}
	l.readChar() // closing quote
	return token.Token{Type: token.STRING, Lexeme: l.input[start:l.position], Literal: string(out), Line: line, Offset: start}
}

func (l *Lexer) readCharLiteral() token.Token {
	line, start := l.line, l.position
	l.readChar()
	r := l.ch
	if r == '\\' {
		var ok bool
		if r, ok = l.readEscape(); !ok {
			l.errorf(l.line, l.position, "unknown escape sequence \\%c", r)
		}
	}
	l.readChar()
	if l.ch != '\'' {
		l.errorf(line, start, "unterminated character literal")
		return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:l.position], Line: line, Offset: start}
	}
	l.readChar()
	return token.Token{Type: token.CHAR, Lexeme: l.input[start:l.position], Literal: r, Line: line, Offset: start}
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// Tokenize lexes the whole input; the stream always ends with EOF.
func Tokenize(input string) ([]token.Token, []*diagnostics.Diagnostic) {
	l := New(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens, l.Errors()
}

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	tokens, errs := Tokenize(ctx.SourceCode)
	ctx.TokenStream = tokens
	for _, err := range errs {
		ctx.AddError(err)
	}
	return ctx
}
