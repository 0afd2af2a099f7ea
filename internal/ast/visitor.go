package ast

// Visitor is the dispatch surface every pass over the tree implements.
type Visitor interface {
	VisitExpressionStatement(s *ExpressionStatement)
	VisitPrintStatement(s *PrintStatement)
	VisitVarStatement(s *VarStatement)
	VisitBlockStatement(s *BlockStatement)
	VisitIfStatement(s *IfStatement)
	VisitWhileStatement(s *WhileStatement)
	VisitForEachStatement(s *ForEachStatement)
	VisitFunctionStatement(s *FunctionStatement)
	VisitClassStatement(s *ClassStatement)
	VisitReturnStatement(s *ReturnStatement)
	VisitBreakStatement(s *BreakStatement)
	VisitExternStatement(s *ExternStatement)

	VisitLiteral(e *Literal)
	VisitVariable(e *Variable)
	VisitAssign(e *Assign)
	VisitBinary(e *Binary)
	VisitLogical(e *Logical)
	VisitUnary(e *Unary)
	VisitCall(e *Call)
	VisitGet(e *Get)
	VisitSet(e *Set)
	VisitSelf(e *Self)
	VisitSuper(e *Super)
	VisitList(e *List)
	VisitIndexGet(e *IndexGet)
	VisitIndexSet(e *IndexSet)
}

// Inspect traverses the tree rooted at node in depth-first order, calling fn
// for every node. Children are skipped when fn returns false.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *ExpressionStatement:
		Inspect(n.Expression, fn)
	case *PrintStatement:
		Inspect(n.Value, fn)
	case *VarStatement:
		if n.Value != nil {
			Inspect(n.Value, fn)
		}
	case *BlockStatement:
		inspectStatements(n.Statements, fn)
	case *IfStatement:
		Inspect(n.Condition, fn)
		Inspect(n.Then, fn)
		if n.Else != nil {
			Inspect(n.Else, fn)
		}
	case *WhileStatement:
		Inspect(n.Condition, fn)
		Inspect(n.Body, fn)
	case *ForEachStatement:
		Inspect(n.Iterable, fn)
		Inspect(n.Body, fn)
	case *FunctionStatement:
		inspectStatements(n.Body, fn)
	case *ClassStatement:
		if n.Superclass != nil {
			Inspect(n.Superclass, fn)
		}
		for _, f := range n.Fields {
			Inspect(f, fn)
		}
		for _, m := range n.Methods {
			Inspect(m, fn)
		}
	case *ReturnStatement:
		if n.Value != nil {
			Inspect(n.Value, fn)
		}
	case *Assign:
		Inspect(n.Value, fn)
	case *Binary:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Logical:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *Unary:
		Inspect(n.Right, fn)
	case *Call:
		Inspect(n.Callee, fn)
		for _, a := range n.Arguments {
			Inspect(a, fn)
		}
	case *Get:
		Inspect(n.Object, fn)
	case *Set:
		Inspect(n.Object, fn)
		Inspect(n.Value, fn)
	case *List:
		for _, el := range n.Elements {
			Inspect(el, fn)
		}
	case *IndexGet:
		Inspect(n.Object, fn)
		Inspect(n.Index, fn)
	case *IndexSet:
		Inspect(n.Object, fn)
		Inspect(n.Index, fn)
		Inspect(n.Value, fn)
	}
}

func inspectStatements(stmts []Statement, fn func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, fn)
	}
}
