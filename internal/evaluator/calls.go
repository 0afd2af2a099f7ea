package evaluator

import (
	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/object"
	"github.com/funvibe/kestrel/internal/token"
)

func (in *Interpreter) evalCall(e *ast.Call) (*object.Value, error) {
	callee, err := in.evaluate(e.Callee)
	if err != nil {
		return nil, err
	}
	in.env.Retain(callee)
	args := make([]*object.Value, 0, len(e.Arguments))
	for _, a := range e.Arguments {
		v, err := in.evaluate(a)
		if err != nil {
			return nil, err
		}
		in.env.Retain(v)
		args = append(args, v)
	}
	return in.apply(callee, args, e.Paren)
}

func (in *Interpreter) apply(callee *object.Value, args []*object.Value, at token.Token) (*object.Value, error) {
	if callee.Kind != object.CALLABLE_VALUE {
		return nil, newRuntimeError(at, "can only call functions and classes, got %s", callee.Kind)
	}
	fn := callee.Callable
	if len(args) != fn.Arity() {
		return nil, newRuntimeError(at, "%s expects %d arguments but got %d", fn.Describe(), fn.Arity(), len(args))
	}

	switch c := fn.(type) {
	case *object.Function:
		return in.callFunction(c, args, at)
	case *object.Class:
		return in.instantiate(c, args, at)
	}
	return nil, newRuntimeError(at, "cannot call %s", fn.Describe())
}

// Call invokes a callable from the host at global scope. The callee, the
// arguments and the result stay rooted in the global scope until Release.
func (in *Interpreter) Call(callee *object.Value, args ...*object.Value) (*object.Value, error) {
	defer func() {
		in.env = in.globals
		in.stack = in.stack[:0]
		in.depth = 0
	}()
	in.globals.Retain(callee)
	for _, a := range args {
		in.globals.Retain(a)
	}
	return in.apply(callee, args, token.Token{})
}

// Release drops the temporaries held by the global scope.
func (in *Interpreter) Release() {
	in.globals.ReleaseTemps()
}

// callFunction runs fn in a fresh frame enclosing its closure. The result is
// retained in the caller's scope.
func (in *Interpreter) callFunction(fn *object.Function, args []*object.Value, at token.Token) (*object.Value, error) {
	if in.depth >= maxCallDepth {
		return nil, newRuntimeError(at, "stack overflow in %s", fn.Describe())
	}
	in.depth++
	defer func() { in.depth-- }()

	frame := object.NewEnvironment(in.heap, fn.Closure)
	for i, p := range fn.Declaration.Params {
		frame.Set(p.Name.Lexeme, args[i])
	}
	sig, err := in.executeBlock(fn.Declaration.Body, frame)
	if err != nil {
		return nil, err
	}
	if fn.IsInitializer {
		self, _ := fn.Closure.GetAt(0, config.SelfName)
		return self, nil
	}
	if sig.kind == signalReturn && sig.value != nil {
		in.env.Retain(sig.value)
		return sig.value, nil
	}
	return keep(in, object.NewNull(in.heap)), nil
}

// instantiate allocates an instance, runs the field initializers from the
// root class down, then the initializer if any.
func (in *Interpreter) instantiate(class *object.Class, args []*object.Value, at token.Token) (*object.Value, error) {
	inst := keep(in, object.NewInstance(in.heap, class))
	self := keep(in, object.NewInstanceValue(in.heap, inst))

	var chain []*object.Class
	for c := class; c != nil; c = c.Superclass {
		chain = append(chain, c)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		if len(c.Fields) == 0 {
			continue
		}
		scope := keep(in, object.NewEnvironment(in.heap, c.Closure))
		scope.Set(config.SelfName, self)
		for _, f := range c.Fields {
			var v *object.Value
			if f.Value != nil {
				var err error
				if v, err = in.evaluateIn(f.Value, scope); err != nil {
					return nil, err
				}
				// The value was retained in scope, which dies with this loop.
				in.env.Retain(v)
			} else {
				v = keep(in, object.NewNull(in.heap))
			}
			inst.Fields[f.Name.Lexeme] = v
		}
	}

	if init := class.FindMethod(config.InitMethodName); init != nil {
		bound := keep(in, init.Bind(in.heap, in.env, self))
		if _, err := in.callFunction(bound, args, at); err != nil {
			return nil, err
		}
	}
	return self, nil
}
