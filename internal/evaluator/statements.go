package evaluator

import (
	"fmt"

	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/object"
)

func (in *Interpreter) execute(stmt ast.Statement) (signal, error) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		_, err := in.evaluate(s.Expression)
		return normal, err

	case *ast.PrintStatement:
		v, err := in.evaluate(s.Value)
		if err != nil {
			return normal, err
		}
		fmt.Fprintln(in.out, v.String())
		return normal, nil

	case *ast.VarStatement:
		return normal, in.executeVar(s)

	case *ast.BlockStatement:
		return in.executeBlock(s.Statements, object.NewEnvironment(in.heap, in.env))

	case *ast.IfStatement:
		cond, err := in.evaluate(s.Condition)
		if err != nil {
			return normal, err
		}
		if cond.Truthy() {
			return in.execute(s.Then)
		}
		if s.Else != nil {
			return in.execute(s.Else)
		}
		return normal, nil

	case *ast.WhileStatement:
		return in.executeWhile(s)

	case *ast.ForEachStatement:
		return in.executeForEach(s)

	case *ast.FunctionStatement:
		fn := keep(in, object.NewFunction(in.heap, s, in.env, false))
		v := keep(in, object.NewCallable(in.heap, fn))
		return normal, in.define(s.Name.Lexeme, v, s)

	case *ast.ClassStatement:
		return normal, in.executeClass(s)

	case *ast.ReturnStatement:
		if s.Value == nil {
			return signal{kind: signalReturn, value: keep(in, object.NewNull(in.heap))}, nil
		}
		v, err := in.evaluate(s.Value)
		if err != nil {
			return normal, err
		}
		return signal{kind: signalReturn, value: v}, nil

	case *ast.BreakStatement:
		return signal{kind: signalBreak}, nil

	case *ast.ExternStatement:
		return normal, newRuntimeError(s.Name, "extern '%s' is only available in the compiled backend", s.Name.Lexeme)
	}
	return normal, newRuntimeError(stmt.GetToken(), "unsupported statement %T", stmt)
}

// define binds name in the current scope. Globals may be redefined; the
// resolver rejects redeclarations in local scopes.
func (in *Interpreter) define(name string, v *object.Value, at ast.Node) error {
	if in.env == in.globals {
		in.env.Set(name, v)
		return nil
	}
	if err := in.env.Define(name, v); err != nil {
		return newRuntimeError(at.GetToken(), "%s", err)
	}
	return nil
}

func (in *Interpreter) executeVar(s *ast.VarStatement) error {
	var v *object.Value
	if s.Value != nil {
		var err error
		if v, err = in.evaluate(s.Value); err != nil {
			return err
		}
	} else {
		v = keep(in, object.NewNull(in.heap))
	}
	return in.define(s.Name.Lexeme, v, s)
}

func (in *Interpreter) executeWhile(s *ast.WhileStatement) (signal, error) {
	for {
		cond, err := in.evaluate(s.Condition)
		if err != nil {
			return normal, err
		}
		truthy := cond.Truthy()
		// The condition value is dead once tested.
		in.env.ReleaseTemps()
		if !truthy {
			return normal, nil
		}
		sig, err := in.execute(s.Body)
		if err != nil {
			return normal, err
		}
		switch sig.kind {
		case signalBreak:
			return normal, nil
		case signalReturn:
			return sig, nil
		}
	}
}

// executeForEach gives every iteration its own frame holding the element.
func (in *Interpreter) executeForEach(s *ast.ForEachStatement) (signal, error) {
	iterable, err := in.evaluate(s.Iterable)
	if err != nil {
		return normal, err
	}
	if iterable.Kind != object.LIST_VALUE {
		return normal, newRuntimeError(s.Token, "can only iterate over a list, got %s", iterable.Kind)
	}
	in.env.Retain(iterable)
	for i := 0; i < len(iterable.List); i++ {
		frame := object.NewEnvironment(in.heap, in.env)
		frame.Set(s.Name.Lexeme, object.Unwrap(iterable.List[i]))
		sig, err := in.executeIn(s.Body, frame)
		if err != nil {
			return normal, err
		}
		switch sig.kind {
		case signalBreak:
			return normal, nil
		case signalReturn:
			return sig, nil
		}
	}
	return normal, nil
}

func (in *Interpreter) executeClass(s *ast.ClassStatement) error {
	var super *object.Class
	var superVal *object.Value
	if s.Superclass != nil {
		v, err := in.evaluate(s.Superclass)
		if err != nil {
			return err
		}
		if v.Kind == object.CALLABLE_VALUE {
			super, _ = v.Callable.(*object.Class)
		}
		if super == nil {
			return newRuntimeError(s.Superclass.Name, "superclass must be a class")
		}
		superVal = v
	}

	closure := in.env
	if super != nil {
		closure = keep(in, object.NewEnvironment(in.heap, in.env))
		closure.Set(config.SuperName, superVal)
	}

	methods := make(map[string]*object.Function, len(s.Methods))
	for _, m := range s.Methods {
		isInit := m.Name.Lexeme == config.InitMethodName
		methods[m.Name.Lexeme] = keep(in, object.NewFunction(in.heap, m, closure, isInit))
	}

	class := keep(in, object.NewClass(in.heap, s.Name.Lexeme, super, methods, s.Fields, closure))
	v := keep(in, object.NewCallable(in.heap, class))
	return in.define(s.Name.Lexeme, v, s)
}
