package ast

import "github.com/funvibe/kestrel/internal/token"

// Literal is a constant from the source (Raw holds int64, float64, string,
// rune, bool or nil) or a wrapper around an already evaluated runtime value
// (Value non-nil). List elements are stored as wrapper literals.
type Literal struct {
	Token token.Token
	Raw   interface{}
	Value interface{}
}

func (e *Literal) Accept(v Visitor)      { v.VisitLiteral(e) }
func (e *Literal) expressionNode()       {}
func (e *Literal) GetToken() token.Token { return e.Token }

type Variable struct {
	Name token.Token
}

func (e *Variable) Accept(v Visitor)      { v.VisitVariable(e) }
func (e *Variable) expressionNode()       {}
func (e *Variable) GetToken() token.Token { return e.Name }

// Assign stores into a variable. Operator is ASSIGN or a compound operator
// such as PLUS_ASSIGN.
type Assign struct {
	Name     token.Token
	Operator token.Token
	Value    Expression
}

func (e *Assign) Accept(v Visitor)      { v.VisitAssign(e) }
func (e *Assign) expressionNode()       {}
func (e *Assign) GetToken() token.Token { return e.Name }

type Binary struct {
	Left     Expression
	Operator token.Token
	Right    Expression
}

func (e *Binary) Accept(v Visitor)      { v.VisitBinary(e) }
func (e *Binary) expressionNode()       {}
func (e *Binary) GetToken() token.Token { return e.Operator }

// Logical is a short-circuit and/or.
type Logical struct {
	Left     Expression
	Operator token.Token
	Right    Expression
}

func (e *Logical) Accept(v Visitor)      { v.VisitLogical(e) }
func (e *Logical) expressionNode()       {}
func (e *Logical) GetToken() token.Token { return e.Operator }

type Unary struct {
	Operator token.Token
	Right    Expression
}

func (e *Unary) Accept(v Visitor)      { v.VisitUnary(e) }
func (e *Unary) expressionNode()       {}
func (e *Unary) GetToken() token.Token { return e.Operator }

type Call struct {
	Callee    Expression
	Paren     token.Token
	Arguments []Expression
}

func (e *Call) Accept(v Visitor)      { v.VisitCall(e) }
func (e *Call) expressionNode()       {}
func (e *Call) GetToken() token.Token { return e.Paren }

type Get struct {
	Object Expression
	Name   token.Token
}

func (e *Get) Accept(v Visitor)      { v.VisitGet(e) }
func (e *Get) expressionNode()       {}
func (e *Get) GetToken() token.Token { return e.Name }

type Set struct {
	Object   Expression
	Name     token.Token
	Operator token.Token
	Value    Expression
}

func (e *Set) Accept(v Visitor)      { v.VisitSet(e) }
func (e *Set) expressionNode()       {}
func (e *Set) GetToken() token.Token { return e.Name }

type Self struct {
	Keyword token.Token
}

func (e *Self) Accept(v Visitor)      { v.VisitSelf(e) }
func (e *Self) expressionNode()       {}
func (e *Self) GetToken() token.Token { return e.Keyword }

type Super struct {
	Keyword token.Token
	Method  token.Token
}

func (e *Super) Accept(v Visitor)      { v.VisitSuper(e) }
func (e *Super) expressionNode()       {}
func (e *Super) GetToken() token.Token { return e.Keyword }

type List struct {
	Bracket  token.Token
	Elements []Expression
}

func (e *List) Accept(v Visitor)      { v.VisitList(e) }
func (e *List) expressionNode()       {}
func (e *List) GetToken() token.Token { return e.Bracket }

type IndexGet struct {
	Object  Expression
	Bracket token.Token
	Index   Expression
}

func (e *IndexGet) Accept(v Visitor)      { v.VisitIndexGet(e) }
func (e *IndexGet) expressionNode()       {}
func (e *IndexGet) GetToken() token.Token { return e.Bracket }

type IndexSet struct {
	Object   Expression
	Bracket  token.Token
	Index    Expression
	Operator token.Token
	Value    Expression
}

func (e *IndexSet) Accept(v Visitor)      { v.VisitIndexSet(e) }
func (e *IndexSet) expressionNode()       {}
func (e *IndexSet) GetToken() token.Token { return e.Bracket }
