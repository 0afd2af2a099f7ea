// Package prettyprinter renders a syntax tree back to source form. Binary
// expressions are fully parenthesized so the output shows how the parser
// grouped them.
package prettyprinter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/kestrel/internal/ast"
)

type CodePrinter struct {
	buf    bytes.Buffer
	indent int
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{}
}

// Print renders a whole program, one top-level statement per line.
func Print(program *ast.Program) string {
	p := NewCodePrinter()
	for _, stmt := range program.Statements {
		stmt.Accept(p)
		p.buf.WriteByte('\n')
	}
	return p.String()
}

// PrintNode renders a single statement or expression.
func PrintNode(node ast.Node) string {
	p := NewCodePrinter()
	node.Accept(p)
	return p.String()
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) writeIndent() {
	p.write(strings.Repeat("    ", p.indent))
}

func (p *CodePrinter) block(stmts []ast.Statement) {
	p.write("{")
	if len(stmts) == 0 {
		p.write("}")
		return
	}
	p.write("\n")
	p.indent++
	for _, s := range stmts {
		p.writeIndent()
		s.Accept(p)
		p.write("\n")
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *CodePrinter) params(params []*ast.Param) {
	p.write("(")
	for i, param := range params {
		if i > 0 {
			p.write(", ")
		}
		p.write(param.Name.Lexeme)
		if param.Type != nil {
			p.write(": " + param.Type.String())
		}
	}
	p.write(")")
}

func (p *CodePrinter) signature(params []*ast.Param, ret *ast.TypeExpr) {
	p.params(params)
	if ret != nil {
		p.write(": " + ret.String())
	}
}

func (p *CodePrinter) VisitExpressionStatement(s *ast.ExpressionStatement) {
	s.Expression.Accept(p)
	p.write(";")
}

func (p *CodePrinter) VisitPrintStatement(s *ast.PrintStatement) {
	p.write("print ")
	s.Value.Accept(p)
	p.write(";")
}

func (p *CodePrinter) VisitVarStatement(s *ast.VarStatement) {
	p.write("var " + s.Name.Lexeme)
	if s.Type != nil {
		p.write(": " + s.Type.String())
	}
	if s.Value != nil {
		p.write(" = ")
		s.Value.Accept(p)
	}
	p.write(";")
}

func (p *CodePrinter) VisitBlockStatement(s *ast.BlockStatement) {
	p.block(s.Statements)
}

func (p *CodePrinter) VisitIfStatement(s *ast.IfStatement) {
	p.write("if (")
	s.Condition.Accept(p)
	p.write(") ")
	s.Then.Accept(p)
	if s.Else != nil {
		p.write(" else ")
		s.Else.Accept(p)
	}
}

func (p *CodePrinter) VisitWhileStatement(s *ast.WhileStatement) {
	p.write("while (")
	s.Condition.Accept(p)
	p.write(") ")
	s.Body.Accept(p)
}

func (p *CodePrinter) VisitForEachStatement(s *ast.ForEachStatement) {
	p.write("for (" + s.Name.Lexeme + " in ")
	s.Iterable.Accept(p)
	p.write(") ")
	s.Body.Accept(p)
}

func (p *CodePrinter) VisitFunctionStatement(s *ast.FunctionStatement) {
	p.write("fun " + s.Name.Lexeme)
	p.signature(s.Params, s.ReturnType)
	p.write(" ")
	p.block(s.Body)
}

func (p *CodePrinter) VisitClassStatement(s *ast.ClassStatement) {
	p.write("class " + s.Name.Lexeme)
	if s.Superclass != nil {
		p.write(" < " + s.Superclass.Name.Lexeme)
	}
	p.write(" {\n")
	p.indent++
	for _, f := range s.Fields {
		p.writeIndent()
		f.Accept(p)
		p.write("\n")
	}
	for _, m := range s.Methods {
		p.writeIndent()
		p.write(m.Name.Lexeme)
		p.signature(m.Params, m.ReturnType)
		p.write(" ")
		p.block(m.Body)
		p.write("\n")
	}
	p.indent--
	p.writeIndent()
	p.write("}")
}

func (p *CodePrinter) VisitReturnStatement(s *ast.ReturnStatement) {
	p.write("return")
	if s.Value != nil {
		p.write(" ")
		s.Value.Accept(p)
	}
	p.write(";")
}

func (p *CodePrinter) VisitBreakStatement(s *ast.BreakStatement) {
	p.write("break;")
}

func (p *CodePrinter) VisitExternStatement(s *ast.ExternStatement) {
	p.write("extern " + strconv.Quote(s.Symbol) + " as " + s.Name.Lexeme)
	p.signature(s.Params, s.ReturnType)
	p.write(";")
}

func (p *CodePrinter) VisitLiteral(e *ast.Literal) {
	if e.Value != nil {
		p.write(fmt.Sprint(e.Value))
		return
	}
	switch v := e.Raw.(type) {
	case nil:
		p.write("null")
	case bool:
		p.write(strconv.FormatBool(v))
	case int64:
		p.write(strconv.FormatInt(v, 10))
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnI") {
			s += ".0"
		}
		p.write(s)
	case string:
		p.write(strconv.Quote(v))
	case rune:
		p.write(strconv.QuoteRune(v))
	default:
		p.write(fmt.Sprint(v))
	}
}

func (p *CodePrinter) VisitVariable(e *ast.Variable) {
	p.write(e.Name.Lexeme)
}

func (p *CodePrinter) VisitAssign(e *ast.Assign) {
	p.write(e.Name.Lexeme + " " + e.Operator.Lexeme + " ")
	e.Value.Accept(p)
}

func (p *CodePrinter) VisitBinary(e *ast.Binary) {
	p.write("(")
	e.Left.Accept(p)
	p.write(" " + e.Operator.Lexeme + " ")
	e.Right.Accept(p)
	p.write(")")
}

func (p *CodePrinter) VisitLogical(e *ast.Logical) {
	p.write("(")
	e.Left.Accept(p)
	p.write(" " + e.Operator.Lexeme + " ")
	e.Right.Accept(p)
	p.write(")")
}

func (p *CodePrinter) VisitUnary(e *ast.Unary) {
	p.write("(" + e.Operator.Lexeme)
	e.Right.Accept(p)
	p.write(")")
}

func (p *CodePrinter) VisitCall(e *ast.Call) {
	e.Callee.Accept(p)
	p.write("(")
	for i, a := range e.Arguments {
		if i > 0 {
			p.write(", ")
		}
		a.Accept(p)
	}
	p.write(")")
}

func (p *CodePrinter) VisitGet(e *ast.Get) {
	e.Object.Accept(p)
	p.write("." + e.Name.Lexeme)
}

func (p *CodePrinter) VisitSet(e *ast.Set) {
	e.Object.Accept(p)
	p.write("." + e.Name.Lexeme + " " + e.Operator.Lexeme + " ")
	e.Value.Accept(p)
}

func (p *CodePrinter) VisitSelf(e *ast.Self) {
	p.write("self")
}

func (p *CodePrinter) VisitSuper(e *ast.Super) {
	p.write("super." + e.Method.Lexeme)
}

func (p *CodePrinter) VisitList(e *ast.List) {
	p.write("[")
	for i, el := range e.Elements {
		if i > 0 {
			p.write(", ")
		}
		el.Accept(p)
	}
	p.write("]")
}

func (p *CodePrinter) VisitIndexGet(e *ast.IndexGet) {
	e.Object.Accept(p)
	p.write("[")
	e.Index.Accept(p)
	p.write("]")
}

func (p *CodePrinter) VisitIndexSet(e *ast.IndexSet) {
	e.Object.Accept(p)
	p.write("[")
	e.Index.Accept(p)
	p.write("] " + e.Operator.Lexeme + " ")
	e.Value.Accept(p)
}
