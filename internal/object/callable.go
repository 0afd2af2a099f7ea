package object

import (
	"fmt"

	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/gc"
)

// Callable is closed over *Function and *Class; callers dispatch with a
// type switch.
type Callable interface {
	gc.Object
	Arity() int
	Describe() string
	callable()
}

// Function is a user function or method together with its closure.
type Function struct {
	gc.Header
	Declaration   *ast.FunctionStatement
	Closure       *Environment
	IsInitializer bool
}

func NewFunction(h *gc.Collector, decl *ast.FunctionStatement, closure *Environment, isInit bool) *Function {
	return gc.Allocate(h, &Function{Declaration: decl, Closure: closure, IsInitializer: isInit})
}

func (f *Function) callable() {}

func (f *Function) Arity() int { return len(f.Declaration.Params) }

func (f *Function) Name() string { return f.Declaration.Name.Lexeme }

func (f *Function) Describe() string { return fmt.Sprintf("<fn %s>", f.Name()) }

func (f *Function) Trace(c *gc.Collector) {
	c.Mark(f.Closure)
	if f.Declaration != nil {
		MarkNode(c, f.Declaration)
	}
}

// Bind returns a copy of f whose closure defines self. The binding scope
// is allocated first and retained in scope until the copy owns it.
func (f *Function) Bind(h *gc.Collector, scope *Environment, self *Value) *Function {
	env := NewEnvironment(h, f.Closure)
	env.Set(config.SelfName, self)
	scope.Retain(env)
	return NewFunction(h, f.Declaration, env, f.IsInitializer)
}

// Class is a class value: name, optional superclass and method table.
type Class struct {
	gc.Header
	Name       string
	Superclass *Class
	Methods    map[string]*Function
	// Fields are initialized per instance in a scope binding self.
	Fields  []*ast.VarStatement
	Closure *Environment
}

func NewClass(h *gc.Collector, name string, super *Class, methods map[string]*Function, fields []*ast.VarStatement, closure *Environment) *Class {
	return gc.Allocate(h, &Class{Name: name, Superclass: super, Methods: methods, Fields: fields, Closure: closure})
}

func (c *Class) callable() {}

// FindMethod looks in the class, then up the superclass chain.
func (c *Class) FindMethod(name string) *Function {
	for cls := c; cls != nil; cls = cls.Superclass {
		if m, ok := cls.Methods[name]; ok {
			return m
		}
	}
	return nil
}

// Arity is the initializer's arity, or zero without one.
func (c *Class) Arity() int {
	if init := c.FindMethod(config.InitMethodName); init != nil {
		return init.Arity()
	}
	return 0
}

func (c *Class) Describe() string { return fmt.Sprintf("<class %s>", c.Name) }

func (c *Class) Trace(col *gc.Collector) {
	if c.Superclass != nil {
		col.Mark(c.Superclass)
	}
	for _, m := range c.Methods {
		col.Mark(m)
	}
	col.Mark(c.Closure)
	for _, f := range c.Fields {
		MarkNode(col, f)
	}
}

// Instance is an object created by calling a class.
type Instance struct {
	gc.Header
	Class  *Class
	Fields map[string]*Value
}

func NewInstance(h *gc.Collector, class *Class) *Instance {
	return gc.Allocate(h, &Instance{Class: class, Fields: make(map[string]*Value)})
}

func (in *Instance) Describe() string { return fmt.Sprintf("<%s instance>", in.Class.Name) }

func (in *Instance) Trace(c *gc.Collector) {
	c.Mark(in.Class)
	for _, v := range in.Fields {
		c.Mark(v)
	}
}

// MarkNode marks every runtime value embedded in the syntax tree under node.
func MarkNode(c *gc.Collector, node ast.Node) {
	if node == nil {
		return
	}
	ast.Inspect(node, func(n ast.Node) bool {
		if lit, ok := n.(*ast.Literal); ok {
			if obj, ok := lit.Value.(gc.Object); ok {
				c.Mark(obj)
			}
		}
		return true
	})
}
