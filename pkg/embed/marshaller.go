package kestrel

import (
	"fmt"
	"reflect"

	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/gc"
	"github.com/funvibe/kestrel/internal/object"
)

// Marshaller handles conversion between Go and Kestrel values.
type Marshaller struct {
	heap *gc.Collector
	// retain roots every value it allocates until the caller releases them.
	retain func(gc.Object)
}

func NewMarshaller(heap *gc.Collector, retain func(gc.Object)) *Marshaller {
	return &Marshaller{heap: heap, retain: retain}
}

func (m *Marshaller) keep(v *object.Value) *object.Value {
	m.retain(v)
	return v
}

// ToValue converts a Go value to a Kestrel value. Integers, floats,
// booleans, strings, nil and slices of those are supported.
func (m *Marshaller) ToValue(val interface{}) (*object.Value, error) {
	if val == nil {
		return m.keep(object.NewNull(m.heap)), nil
	}
	if v, ok := val.(*object.Value); ok {
		return v, nil
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return m.keep(object.NewInt(m.heap, v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return m.keep(object.NewInt(m.heap, int64(v.Uint()))), nil
	case reflect.Float32, reflect.Float64:
		return m.keep(object.NewFloat(m.heap, v.Float())), nil
	case reflect.Bool:
		return m.keep(object.NewBool(m.heap, v.Bool())), nil
	case reflect.String:
		return m.keep(object.NewString(m.heap, v.String())), nil
	case reflect.Slice, reflect.Array:
		return m.sliceToList(v)
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return m.keep(object.NewNull(m.heap)), nil
		}
		return m.ToValue(v.Elem().Interface())
	}
	return nil, fmt.Errorf("cannot convert %T to a kestrel value", val)
}

func (m *Marshaller) sliceToList(v reflect.Value) (*object.Value, error) {
	elements := make([]*object.Value, v.Len())
	for i := range elements {
		el, err := m.ToValue(v.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elements[i] = el
	}
	return m.keep(object.NewList(m.heap, wrapAll(elements))), nil
}

func wrapAll(values []*object.Value) []*ast.Literal {
	out := make([]*ast.Literal, len(values))
	for i, v := range values {
		out[i] = object.Wrap(v)
	}
	return out
}

// FromValue converts a Kestrel value to a Go value. Ints become int64,
// lists []interface{}, callables and instances their description.
func (m *Marshaller) FromValue(v *object.Value) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case object.NULL_VALUE:
		return nil, nil
	case object.INTEGER_VALUE:
		return v.Int, nil
	case object.FLOAT_VALUE:
		return v.Float, nil
	case object.BOOLEAN_VALUE:
		return v.Bool, nil
	case object.STRING_VALUE:
		return v.Str, nil
	case object.LIST_VALUE:
		out := make([]interface{}, len(v.List))
		for i, el := range v.List {
			x, err := m.FromValue(object.Unwrap(el))
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert %s value %s to Go", v.Kind, v)
}
