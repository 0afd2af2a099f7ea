package lexer_test

import (
	"strings"
	"testing"

	"github.com/funvibe/kestrel/internal/lexer"
	"github.com/funvibe/kestrel/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `var x = 5 + 10.5;
// comment
fun add(a: Int, b: [Char]): Int { return a << 2; }
x += 1; x -= 2; x *= 3; x /= 4; x %= 5;
a == b != c <= d >= e >> f & g | h ^ i;
"hi\n" 'c' '\t' extern "puts" as puts(s: [Char]): Int;
self super and or true false null for in break print class`

	tests := []struct {
		expectedType   token.TokenType
		expectedLexeme string
	}{
		{token.VAR, "var"}, {token.IDENT, "x"}, {token.ASSIGN, "="}, {token.INT, "5"},
		{token.PLUS, "+"}, {token.FLOAT, "10.5"}, {token.SEMICOLON, ";"},
		{token.FUN, "fun"}, {token.IDENT, "add"}, {token.LPAREN, "("}, {token.IDENT, "a"},
		{token.COLON, ":"}, {token.IDENT, "Int"}, {token.COMMA, ","}, {token.IDENT, "b"},
		{token.COLON, ":"}, {token.LBRACKET, "["}, {token.IDENT, "Char"}, {token.RBRACKET, "]"},
		{token.RPAREN, ")"}, {token.COLON, ":"}, {token.IDENT, "Int"}, {token.LBRACE, "{"},
		{token.RETURN, "return"}, {token.IDENT, "a"}, {token.LSHIFT, "<<"}, {token.INT, "2"},
		{token.SEMICOLON, ";"}, {token.RBRACE, "}"},
		{token.IDENT, "x"}, {token.PLUS_ASSIGN, "+="}, {token.INT, "1"}, {token.SEMICOLON, ";"},
		{token.IDENT, "x"}, {token.MINUS_ASSIGN, "-="}, {token.INT, "2"}, {token.SEMICOLON, ";"},
		{token.IDENT, "x"}, {token.ASTERISK_ASSIGN, "*="}, {token.INT, "3"}, {token.SEMICOLON, ";"},
		{token.IDENT, "x"}, {token.SLASH_ASSIGN, "/="}, {token.INT, "4"}, {token.SEMICOLON, ";"},
		{token.IDENT, "x"}, {token.PERCENT_ASSIGN, "%="}, {token.INT, "5"}, {token.SEMICOLON, ";"},
		{token.IDENT, "a"}, {token.EQ, "=="}, {token.IDENT, "b"}, {token.NOT_EQ, "!="},
		{token.IDENT, "c"}, {token.LTE, "<="}, {token.IDENT, "d"}, {token.GTE, ">="},
		{token.IDENT, "e"}, {token.RSHIFT, ">>"}, {token.IDENT, "f"}, {token.AMPERSAND, "&"},
		{token.IDENT, "g"}, {token.PIPE, "|"}, {token.IDENT, "h"}, {token.CARET, "^"},
		{token.IDENT, "i"}, {token.SEMICOLON, ";"},
		{token.STRING, `"hi\n"`}, {token.CHAR, "'c'"}, {token.CHAR, `'\t'`},
		{token.EXTERN, "extern"}, {token.STRING, `"puts"`}, {token.AS, "as"}, {token.IDENT, "puts"},
		{token.LPAREN, "("}, {token.IDENT, "s"}, {token.COLON, ":"}, {token.LBRACKET, "["},
		{token.IDENT, "Char"}, {token.RBRACKET, "]"}, {token.RPAREN, ")"}, {token.COLON, ":"},
		{token.IDENT, "Int"}, {token.SEMICOLON, ";"},
		{token.SELF, "self"}, {token.SUPER, "super"}, {token.AND, "and"}, {token.OR, "or"},
		{token.TRUE, "true"}, {token.FALSE, "false"}, {token.NULL, "null"}, {token.FOR, "for"},
		{token.IN, "in"}, {token.BREAK, "break"}, {token.PRINT, "print"}, {token.CLASS, "class"},
		{token.EOF, ""},
	}

	l := lexer.New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)", i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q", i, tt.expectedLexeme, tok.Lexeme)
		}
	}
	if errs := l.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected lexer errors: %v", errs)
	}
}

func TestLiteralPayloads(t *testing.T) {
	tokens, errs := lexer.Tokenize(`42 3.25 "a\tb" '\n'`)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if v, ok := tokens[0].Literal.(int64); !ok || v != 42 {
		t.Errorf("int literal = %#v", tokens[0].Literal)
	}
	if v, ok := tokens[1].Literal.(float64); !ok || v != 3.25 {
		t.Errorf("float literal = %#v", tokens[1].Literal)
	}
	if v, ok := tokens[2].Literal.(string); !ok || v != "a\tb" {
		t.Errorf("string literal = %#v", tokens[2].Literal)
	}
	if v, ok := tokens[3].Literal.(rune); !ok || v != '\n' {
		t.Errorf("char literal = %#v", tokens[3].Literal)
	}
}

func TestLinesAndOffsets(t *testing.T) {
	tokens, _ := lexer.Tokenize("a\n  bc\n\nd")
	want := []struct{ line, offset int }{{1, 0}, {2, 4}, {4, 8}}
	for i, w := range want {
		if tokens[i].Line != w.line || tokens[i].Offset != w.offset {
			t.Errorf("token %d (%q): line %d offset %d, want line %d offset %d",
				i, tokens[i].Lexeme, tokens[i].Line, tokens[i].Offset, w.line, w.offset)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"open`, "unterminated string"},
		{`'ab'`, "unterminated character literal"},
		{"a # b", "unexpected character"},
		{"99999999999999999999", "out of range"},
	}
	for _, tt := range tests {
		_, errs := lexer.Tokenize(tt.input)
		if len(errs) == 0 {
			t.Errorf("%q: expected error containing %q", tt.input, tt.want)
			continue
		}
		if got := errs[0].Message; !strings.Contains(got, tt.want) {
			t.Errorf("%q: error %q does not mention %q", tt.input, got, tt.want)
		}
	}
}
