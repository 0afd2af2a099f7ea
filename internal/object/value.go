// Package object is the heap model shared by the interpreter and the
// collector: values, environments, callables and instances.
package object

import (
	"math"
	"strconv"
	"strings"

	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/gc"
)

type Kind uint8

const (
	NULL_VALUE Kind = iota
	INTEGER_VALUE
	FLOAT_VALUE
	BOOLEAN_VALUE
	STRING_VALUE
	CALLABLE_VALUE
	INSTANCE_VALUE
	LIST_VALUE
)

var kindNames = [...]string{
	NULL_VALUE:     "null",
	INTEGER_VALUE:  "int",
	FLOAT_VALUE:    "float",
	BOOLEAN_VALUE:  "bool",
	STRING_VALUE:   "string",
	CALLABLE_VALUE: "callable",
	INSTANCE_VALUE: "instance",
	LIST_VALUE:     "list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is the interpreter's tagged union. Only the payload field matching
// Kind is meaningful. The kind never changes after construction.
type Value struct {
	gc.Header
	Kind     Kind
	Int      int64
	Float    float64
	Bool     bool
	Str      string
	Callable Callable
	Instance *Instance
	// List elements are literal wrappers around evaluated values.
	List []*ast.Literal
}

func (v *Value) Trace(c *gc.Collector) {
	switch v.Kind {
	case CALLABLE_VALUE:
		c.Mark(v.Callable)
	case INSTANCE_VALUE:
		c.Mark(v.Instance)
	case LIST_VALUE:
		for _, el := range v.List {
			MarkNode(c, el)
		}
	}
}

// Constructors allocate through the collector.

func NewNull(h *gc.Collector) *Value {
	return gc.Allocate(h, &Value{Kind: NULL_VALUE})
}

func NewInt(h *gc.Collector, n int64) *Value {
	return gc.Allocate(h, &Value{Kind: INTEGER_VALUE, Int: n})
}

func NewFloat(h *gc.Collector, f float64) *Value {
	return gc.Allocate(h, &Value{Kind: FLOAT_VALUE, Float: f})
}

func NewBool(h *gc.Collector, b bool) *Value {
	return gc.Allocate(h, &Value{Kind: BOOLEAN_VALUE, Bool: b})
}

func NewString(h *gc.Collector, s string) *Value {
	return gc.Allocate(h, &Value{Kind: STRING_VALUE, Str: s})
}

func NewCallable(h *gc.Collector, c Callable) *Value {
	return gc.Allocate(h, &Value{Kind: CALLABLE_VALUE, Callable: c})
}

func NewInstanceValue(h *gc.Collector, in *Instance) *Value {
	return gc.Allocate(h, &Value{Kind: INSTANCE_VALUE, Instance: in})
}

// NewList allocates a list backed by a copy of elements, so two lists built
// from the same element vector never alias.
func NewList(h *gc.Collector, elements []*ast.Literal) *Value {
	backing := make([]*ast.Literal, len(elements))
	copy(backing, elements)
	return gc.Allocate(h, &Value{Kind: LIST_VALUE, List: backing})
}

// Wrap turns an evaluated value into a list element.
func Wrap(v *Value) *ast.Literal {
	return &ast.Literal{Value: v}
}

// Unwrap returns the value held by a list element.
func Unwrap(lit *ast.Literal) *Value {
	v, _ := lit.Value.(*Value)
	return v
}

func (v *Value) IsNumber() bool {
	return v.Kind == INTEGER_VALUE || v.Kind == FLOAT_VALUE
}

// AsFloat promotes a numeric value.
func (v *Value) AsFloat() float64 {
	if v.Kind == INTEGER_VALUE {
		return float64(v.Int)
	}
	return v.Float
}

// Truthy: null and false are falsy, everything else is truthy.
func (v *Value) Truthy() bool {
	switch v.Kind {
	case NULL_VALUE:
		return false
	case BOOLEAN_VALUE:
		return v.Bool
	}
	return true
}

// Equals compares tag first, then payload. Mismatched tags are unequal.
func (v *Value) Equals(o *Value) bool {
	if v == o {
		return true
	}
	if v == nil || o == nil || v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case NULL_VALUE:
		return true
	case INTEGER_VALUE:
		return v.Int == o.Int
	case FLOAT_VALUE:
		return v.Float == o.Float
	case BOOLEAN_VALUE:
		return v.Bool == o.Bool
	case STRING_VALUE:
		return v.Str == o.Str
	case CALLABLE_VALUE:
		return v.Callable == o.Callable
	case INSTANCE_VALUE:
		return v.Instance == o.Instance
	case LIST_VALUE:
		return len(v.List) == len(o.List) && (len(v.List) == 0 || &v.List[0] == &o.List[0])
	}
	return false
}

func (v *Value) String() string {
	switch v.Kind {
	case NULL_VALUE:
		return "null"
	case INTEGER_VALUE:
		return strconv.FormatInt(v.Int, 10)
	case FLOAT_VALUE:
		return FormatFloat(v.Float)
	case BOOLEAN_VALUE:
		return strconv.FormatBool(v.Bool)
	case STRING_VALUE:
		return v.Str
	case CALLABLE_VALUE:
		return v.Callable.Describe()
	case INSTANCE_VALUE:
		return v.Instance.Describe()
	case LIST_VALUE:
		parts := make([]string, len(v.List))
		for i, el := range v.List {
			if inner := Unwrap(el); inner != nil {
				parts[i] = inner.String()
			} else {
				parts[i] = "null"
			}
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "?"
}

// FormatFloat always shows a fractional part for integral floats.
func FormatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
