package ast

import "github.com/funvibe/kestrel/internal/token"

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (s *ExpressionStatement) Accept(v Visitor)      { v.VisitExpressionStatement(s) }
func (s *ExpressionStatement) statementNode()        {}
func (s *ExpressionStatement) GetToken() token.Token { return s.Token }

type PrintStatement struct {
	Token token.Token
	Value Expression
}

func (s *PrintStatement) Accept(v Visitor)      { v.VisitPrintStatement(s) }
func (s *PrintStatement) statementNode()        {}
func (s *PrintStatement) GetToken() token.Token { return s.Token }

// VarStatement declares a variable, or a field when it appears in a class body.
type VarStatement struct {
	Token token.Token // the 'var' token
	Name  token.Token
	Type  *TypeExpr // optional
	Value Expression
}

func (s *VarStatement) Accept(v Visitor)      { v.VisitVarStatement(s) }
func (s *VarStatement) statementNode()        {}
func (s *VarStatement) GetToken() token.Token { return s.Token }

type BlockStatement struct {
	Token      token.Token
	Statements []Statement
}

func (s *BlockStatement) Accept(v Visitor)      { v.VisitBlockStatement(s) }
func (s *BlockStatement) statementNode()        {}
func (s *BlockStatement) GetToken() token.Token { return s.Token }

type IfStatement struct {
	Token     token.Token
	Condition Expression
	Then      Statement
	Else      Statement // optional
}

func (s *IfStatement) Accept(v Visitor)      { v.VisitIfStatement(s) }
func (s *IfStatement) statementNode()        {}
func (s *IfStatement) GetToken() token.Token { return s.Token }

type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      Statement
}

func (s *WhileStatement) Accept(v Visitor)      { v.VisitWhileStatement(s) }
func (s *WhileStatement) statementNode()        {}
func (s *WhileStatement) GetToken() token.Token { return s.Token }

// ForEachStatement iterates the elements of a list: for (x in xs) body
type ForEachStatement struct {
	Token    token.Token
	Name     token.Token
	Iterable Expression
	Body     Statement
}

func (s *ForEachStatement) Accept(v Visitor)      { v.VisitForEachStatement(s) }
func (s *ForEachStatement) statementNode()        {}
func (s *ForEachStatement) GetToken() token.Token { return s.Token }

type FunctionStatement struct {
	Token      token.Token
	Name       token.Token
	Params     []*Param
	ReturnType *TypeExpr // optional
	Body       []Statement
}

func (s *FunctionStatement) Accept(v Visitor)      { v.VisitFunctionStatement(s) }
func (s *FunctionStatement) statementNode()        {}
func (s *FunctionStatement) GetToken() token.Token { return s.Token }

type ClassStatement struct {
	Token      token.Token
	Name       token.Token
	Superclass *Variable // optional
	Fields     []*VarStatement
	Methods    []*FunctionStatement
}

func (s *ClassStatement) Accept(v Visitor)      { v.VisitClassStatement(s) }
func (s *ClassStatement) statementNode()        {}
func (s *ClassStatement) GetToken() token.Token { return s.Token }

type ReturnStatement struct {
	Token token.Token
	Value Expression // optional
}

func (s *ReturnStatement) Accept(v Visitor)      { v.VisitReturnStatement(s) }
func (s *ReturnStatement) statementNode()        {}
func (s *ReturnStatement) GetToken() token.Token { return s.Token }

type BreakStatement struct {
	Token token.Token
}

func (s *BreakStatement) Accept(v Visitor)      { v.VisitBreakStatement(s) }
func (s *BreakStatement) statementNode()        {}
func (s *BreakStatement) GetToken() token.Token { return s.Token }

// ExternStatement imports a native symbol: extern "strcmp" as strCmp(a: [char], b: [char]): int;
type ExternStatement struct {
	Token      token.Token
	Symbol     string
	Name       token.Token
	Params     []*Param
	ReturnType *TypeExpr
}

func (s *ExternStatement) Accept(v Visitor)      { v.VisitExternStatement(s) }
func (s *ExternStatement) statementNode()        {}
func (s *ExternStatement) GetToken() token.Token { return s.Token }
