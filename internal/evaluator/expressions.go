package evaluator

import (
	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/object"
	"github.com/funvibe/kestrel/internal/token"
)

func (in *Interpreter) evaluate(expr ast.Expression) (*object.Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return in.evalLiteral(e), nil

	case *ast.Variable:
		return in.lookupVariable(e.Name, e)

	case *ast.Self:
		return in.lookupVariable(e.Keyword, e)

	case *ast.Assign:
		return in.evalAssign(e)

	case *ast.Logical:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return nil, err
		}
		if e.Operator.Type == token.OR {
			if left.Truthy() {
				return left, nil
			}
		} else if !left.Truthy() {
			return left, nil
		}
		return in.evaluate(e.Right)

	case *ast.Binary:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return nil, err
		}
		// The right operand may rebind whatever held left.
		in.env.Retain(left)
		right, err := in.evaluate(e.Right)
		if err != nil {
			return nil, err
		}
		return in.binary(e.Operator, left, right)

	case *ast.Unary:
		right, err := in.evaluate(e.Right)
		if err != nil {
			return nil, err
		}
		return in.unary(e.Operator, right)

	case *ast.Call:
		return in.evalCall(e)

	case *ast.Get:
		obj, err := in.evaluate(e.Object)
		if err != nil {
			return nil, err
		}
		return in.getProperty(obj, e.Name)

	case *ast.Set:
		return in.evalSet(e)

	case *ast.Super:
		return in.evalSuper(e)

	case *ast.List:
		elements := make([]*ast.Literal, 0, len(e.Elements))
		for _, el := range e.Elements {
			v, err := in.evaluate(el)
			if err != nil {
				return nil, err
			}
			// Later elements may rebind whatever held v.
			in.env.Retain(v)
			elements = append(elements, object.Wrap(v))
		}
		return keep(in, object.NewList(in.heap, elements)), nil

	case *ast.IndexGet:
		list, idx, err := in.evalIndex(e.Object, e.Index, e.Bracket)
		if err != nil {
			return nil, err
		}
		return object.Unwrap(list.List[idx]), nil

	case *ast.IndexSet:
		return in.evalIndexSet(e)
	}
	return nil, newRuntimeError(expr.GetToken(), "unsupported expression %T", expr)
}

// evalLiteral returns a wrapped runtime value as is and allocates a fresh
// value for a source constant.
func (in *Interpreter) evalLiteral(e *ast.Literal) *object.Value {
	if v, ok := e.Value.(*object.Value); ok {
		return v
	}
	var v *object.Value
	switch raw := e.Raw.(type) {
	case int64:
		v = object.NewInt(in.heap, raw)
	case float64:
		v = object.NewFloat(in.heap, raw)
	case bool:
		v = object.NewBool(in.heap, raw)
	case string:
		v = object.NewString(in.heap, raw)
	case rune:
		v = object.NewString(in.heap, string(raw))
	default:
		v = object.NewNull(in.heap)
	}
	return keep(in, v)
}

func (in *Interpreter) lookupVariable(name token.Token, expr ast.Expression) (*object.Value, error) {
	if d, ok := in.locals[expr]; ok {
		if v, ok := in.env.GetAt(d, name.Lexeme); ok {
			return v, nil
		}
	} else if v, ok := in.globals.Get(name.Lexeme); ok {
		return v, nil
	}
	return nil, newRuntimeError(name, "undefined variable '%s'", name.Lexeme)
}

func (in *Interpreter) assignVariable(name token.Token, expr ast.Expression, v *object.Value) error {
	var ok bool
	if d, found := in.locals[expr]; found {
		ok = in.env.AssignAt(d, name.Lexeme, v)
	} else {
		ok = in.globals.Assign(name.Lexeme, v)
	}
	if !ok {
		return newRuntimeError(name, "undefined variable '%s'", name.Lexeme)
	}
	return nil
}

func (in *Interpreter) evalAssign(e *ast.Assign) (*object.Value, error) {
	v, err := in.evaluate(e.Value)
	if err != nil {
		return nil, err
	}
	if op, ok := compoundOps[e.Operator.Type]; ok {
		current, err := in.lookupVariable(e.Name, e)
		if err != nil {
			return nil, err
		}
		if v, err = in.binary(withType(e.Operator, op), current, v); err != nil {
			return nil, err
		}
	}
	if err := in.assignVariable(e.Name, e, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (in *Interpreter) getProperty(obj *object.Value, name token.Token) (*object.Value, error) {
	if obj.Kind != object.INSTANCE_VALUE {
		return nil, newRuntimeError(name, "only instances have properties, got %s", obj.Kind)
	}
	if v, ok := obj.Instance.Fields[name.Lexeme]; ok {
		return v, nil
	}
	if m := obj.Instance.Class.FindMethod(name.Lexeme); m != nil {
		bound := keep(in, m.Bind(in.heap, in.env, obj))
		return keep(in, object.NewCallable(in.heap, bound)), nil
	}
	return nil, newRuntimeError(name, "undefined property '%s'", name.Lexeme)
}

func (in *Interpreter) evalSet(e *ast.Set) (*object.Value, error) {
	obj, err := in.evaluate(e.Object)
	if err != nil {
		return nil, err
	}
	if obj.Kind != object.INSTANCE_VALUE {
		return nil, newRuntimeError(e.Name, "only instances have fields, got %s", obj.Kind)
	}
	in.env.Retain(obj)
	v, err := in.evaluate(e.Value)
	if err != nil {
		return nil, err
	}
	if op, ok := compoundOps[e.Operator.Type]; ok {
		current, ok := obj.Instance.Fields[e.Name.Lexeme]
		if !ok {
			return nil, newRuntimeError(e.Name, "undefined field '%s'", e.Name.Lexeme)
		}
		if v, err = in.binary(withType(e.Operator, op), current, v); err != nil {
			return nil, err
		}
	}
	obj.Instance.Fields[e.Name.Lexeme] = v
	return v, nil
}

// evalSuper finds the superclass at the resolved distance and self one
// scope closer.
func (in *Interpreter) evalSuper(e *ast.Super) (*object.Value, error) {
	d, ok := in.locals[e]
	if !ok {
		return nil, newRuntimeError(e.Keyword, "unresolved 'super'")
	}
	superVal, ok := in.env.GetAt(d, config.SuperName)
	if !ok {
		return nil, newRuntimeError(e.Keyword, "no superclass in scope")
	}
	self, ok := in.env.GetAt(d-1, config.SelfName)
	if !ok {
		return nil, newRuntimeError(e.Keyword, "no receiver in scope")
	}
	super := superVal.Callable.(*object.Class)
	m := super.FindMethod(e.Method.Lexeme)
	if m == nil {
		return nil, newRuntimeError(e.Method, "undefined property '%s'", e.Method.Lexeme)
	}
	bound := keep(in, m.Bind(in.heap, in.env, self))
	return keep(in, object.NewCallable(in.heap, bound)), nil
}

func (in *Interpreter) evalIndex(objExpr, idxExpr ast.Expression, at token.Token) (*object.Value, int, error) {
	list, err := in.evaluate(objExpr)
	if err != nil {
		return nil, 0, err
	}
	if list.Kind != object.LIST_VALUE {
		return nil, 0, newRuntimeError(at, "only lists can be indexed, got %s", list.Kind)
	}
	in.env.Retain(list)
	idx, err := in.evaluate(idxExpr)
	if err != nil {
		return nil, 0, err
	}
	if idx.Kind != object.INTEGER_VALUE {
		return nil, 0, newRuntimeError(at, "list index must be an integer, got %s", idx.Kind)
	}
	if idx.Int < 0 || idx.Int >= int64(len(list.List)) {
		return nil, 0, newRuntimeError(at, "index %d out of range [0, %d)", idx.Int, len(list.List))
	}
	return list, int(idx.Int), nil
}

func (in *Interpreter) evalIndexSet(e *ast.IndexSet) (*object.Value, error) {
	list, idx, err := in.evalIndex(e.Object, e.Index, e.Bracket)
	if err != nil {
		return nil, err
	}
	v, err := in.evaluate(e.Value)
	if err != nil {
		return nil, err
	}
	if op, ok := compoundOps[e.Operator.Type]; ok {
		if v, err = in.binary(withType(e.Operator, op), object.Unwrap(list.List[idx]), v); err != nil {
			return nil, err
		}
	}
	list.List[idx] = object.Wrap(v)
	return v, nil
}
