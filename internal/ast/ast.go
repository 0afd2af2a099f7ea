// Package ast defines the syntax tree shared by the resolver, the
// tree-walking interpreter and the IR compiler.
package ast

import "github.com/funvibe/kestrel/internal/token"

// Node is the base interface for all AST nodes.
type Node interface {
	GetToken() token.Token
	Accept(v Visitor)
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression. Expression nodes are
// compared by identity: the resolver keys its distance table on them.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node produced by the parser.
type Program struct {
	File       string
	Statements []Statement
}

// TypeExpr is a type annotation: a primitive name or a pointer [Elem].
type TypeExpr struct {
	Token token.Token
	Name  string
	Elem  *TypeExpr
}

func (t *TypeExpr) String() string {
	if t == nil {
		return "<none>"
	}
	if t.Elem != nil {
		return "[" + t.Elem.String() + "]"
	}
	return t.Name
}

// Param is one function or extern parameter.
type Param struct {
	Name token.Token
	Type *TypeExpr
}
