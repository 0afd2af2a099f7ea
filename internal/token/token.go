package token

import "fmt"

type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT  TokenType = "IDENT"
	INT    TokenType = "INT"
	FLOAT  TokenType = "FLOAT"
	STRING TokenType = "STRING"
	CHAR   TokenType = "CHAR"

	// Operators
	ASSIGN          TokenType = "="
	PLUS            TokenType = "+"
	MINUS           TokenType = "-"
	ASTERISK        TokenType = "*"
	SLASH           TokenType = "/"
	PERCENT         TokenType = "%"
	BANG            TokenType = "!"
	AMPERSAND       TokenType = "&"
	PIPE            TokenType = "|"
	CARET           TokenType = "^"
	LSHIFT          TokenType = "<<"
	RSHIFT          TokenType = ">>"
	LT              TokenType = "<"
	GT              TokenType = ">"
	LTE             TokenType = "<="
	GTE             TokenType = ">="
	EQ              TokenType = "=="
	NOT_EQ          TokenType = "!="
	PLUS_ASSIGN     TokenType = "+="
	MINUS_ASSIGN    TokenType = "-="
	ASTERISK_ASSIGN TokenType = "*="
	SLASH_ASSIGN    TokenType = "/="
	PERCENT_ASSIGN  TokenType = "%="

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	COLON     TokenType = ":"
	DOT       TokenType = "."
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"

	// Keywords
	VAR    TokenType = "VAR"
	FUN    TokenType = "FUN"
	CLASS  TokenType = "CLASS"
	IF     TokenType = "IF"
	ELSE   TokenType = "ELSE"
	WHILE  TokenType = "WHILE"
	FOR    TokenType = "FOR"
	IN     TokenType = "IN"
	RETURN TokenType = "RETURN"
	BREAK  TokenType = "BREAK"
	PRINT  TokenType = "PRINT"
	EXTERN TokenType = "EXTERN"
	AS     TokenType = "AS"
	AND    TokenType = "AND"
	OR     TokenType = "OR"
	TRUE   TokenType = "TRUE"
	FALSE  TokenType = "FALSE"
	NULL   TokenType = "NULL"
	SELF   TokenType = "SELF"
	SUPER  TokenType = "SUPER"
)

var keywords = map[string]TokenType{
	"var":    VAR,
	"fun":    FUN,
	"class":  CLASS,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"for":    FOR,
	"in":     IN,
	"return": RETURN,
	"break":  BREAK,
	"print":  PRINT,
	"extern": EXTERN,
	"as":     AS,
	"and":    AND,
	"or":     OR,
	"true":   TRUE,
	"false":  FALSE,
	"null":   NULL,
	"self":   SELF,
	"super":  SUPER,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token is one lexeme. Literal holds the decoded payload for number, string
// and char tokens (int64, float64, string, rune).
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Offset  int // byte offset of the first character in the source
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q (line %d)", t.Type, t.Lexeme, t.Line)
}
