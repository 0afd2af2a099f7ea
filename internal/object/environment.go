package object

import (
	"fmt"

	"github.com/funvibe/kestrel/internal/gc"
)

// Environment is one lexical scope. The enclosing link does not own the
// parent; both are tracked by the collector.
type Environment struct {
	gc.Header
	store     map[string]*Value
	enclosing *Environment
	// extras keeps temporaries alive across nested allocations.
	extras []gc.Object
}

func NewEnvironment(h *gc.Collector, enclosing *Environment) *Environment {
	return gc.Allocate(h, &Environment{store: make(map[string]*Value), enclosing: enclosing})
}

func (e *Environment) Trace(c *gc.Collector) {
	for _, v := range e.store {
		c.Mark(v)
	}
	for _, o := range e.extras {
		c.Mark(o)
	}
	if e.enclosing != nil {
		c.Mark(e.enclosing)
	}
}

func (e *Environment) Enclosing() *Environment { return e.enclosing }

// Define binds name in this scope. Redefinition in the same scope fails.
func (e *Environment) Define(name string, val *Value) error {
	if _, ok := e.store[name]; ok {
		return fmt.Errorf("variable '%s' is already defined in this scope", name)
	}
	e.store[name] = val
	return nil
}

// Set binds name in this scope, replacing any existing binding.
func (e *Environment) Set(name string, val *Value) {
	e.store[name] = val
}

func (e *Environment) Get(name string) (*Value, bool) {
	for env := e; env != nil; env = env.enclosing {
		if v, ok := env.store[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign rebinds an existing name in the nearest scope that has it.
func (e *Environment) Assign(name string, val *Value) bool {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.store[name]; ok {
			env.store[name] = val
			return true
		}
	}
	return false
}

// Ancestor walks exactly distance enclosing links.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance && env != nil; i++ {
		env = env.enclosing
	}
	return env
}

func (e *Environment) GetAt(distance int, name string) (*Value, bool) {
	env := e.Ancestor(distance)
	if env == nil {
		return nil, false
	}
	v, ok := env.store[name]
	return v, ok
}

func (e *Environment) AssignAt(distance int, name string, val *Value) bool {
	env := e.Ancestor(distance)
	if env == nil {
		return false
	}
	if _, ok := env.store[name]; !ok {
		return false
	}
	env.store[name] = val
	return true
}

// Retain adds obj to the extra roots of this scope.
func (e *Environment) Retain(obj gc.Object) {
	e.extras = append(e.extras, obj)
}

// ReleaseTemps drops the extra roots.
func (e *Environment) ReleaseTemps() {
	for i := range e.extras {
		e.extras[i] = nil
	}
	e.extras = e.extras[:0]
}

// Names returns the names bound in this scope only.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.store))
	for k := range e.store {
		names = append(names, k)
	}
	return names
}
