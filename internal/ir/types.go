package ir

import (
	"fmt"
	"strings"

	"github.com/funvibe/kestrel/internal/ast"
	"github.com/funvibe/kestrel/internal/config"
)

// TypeKind is the static type of a compiled-path value.
type TypeKind uint8

const (
	TypeNil TypeKind = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeChar
	TypePointer
)

// Type is a primitive or a pointer to Elem.
type Type struct {
	Kind TypeKind `cbor:"1,keyasint"`
	Elem *Type    `cbor:"2,keyasint,omitempty"`
}

var (
	Nil   = Type{Kind: TypeNil}
	Int   = Type{Kind: TypeInt}
	Float = Type{Kind: TypeFloat}
	Bool  = Type{Kind: TypeBool}
	Char  = Type{Kind: TypeChar}
)

func PointerTo(elem Type) Type {
	return Type{Kind: TypePointer, Elem: &elem}
}

func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == TypePointer {
		return t.Elem != nil && o.Elem != nil && t.Elem.Equal(*o.Elem)
	}
	return true
}

func (t Type) IsNumeric() bool {
	return t.Kind == TypeInt || t.Kind == TypeFloat
}

func (t Type) String() string {
	switch t.Kind {
	case TypeNil:
		return "nil"
	case TypeInt:
		return config.IntTypeName
	case TypeFloat:
		return config.FloatTypeName
	case TypeBool:
		return config.BoolTypeName
	case TypeChar:
		return config.CharTypeName
	case TypePointer:
		if t.Elem == nil {
			return "[?]"
		}
		return "[" + t.Elem.String() + "]"
	}
	return "?"
}

// Size is the width in bytes of one element of this type in native memory.
// It follows the native call mapping: int is a C int.
func (t Type) Size() int {
	switch t.Kind {
	case TypeChar, TypeBool:
		return 1
	case TypeInt:
		return 4
	case TypeNil:
		return 0
	}
	return 8
}

// TypeFromAnnotation converts a source annotation. Names are matched
// case-insensitively.
func TypeFromAnnotation(te *ast.TypeExpr) (Type, error) {
	if te == nil {
		return Nil, fmt.Errorf("missing type annotation")
	}
	if te.Elem != nil {
		elem, err := TypeFromAnnotation(te.Elem)
		if err != nil {
			return Nil, err
		}
		if elem.Kind == TypePointer || elem.Kind == TypeNil {
			return Nil, fmt.Errorf("unsupported pointer element type %s", elem)
		}
		return PointerTo(elem), nil
	}
	switch strings.ToLower(te.Name) {
	case config.IntTypeName:
		return Int, nil
	case config.FloatTypeName:
		return Float, nil
	case config.BoolTypeName:
		return Bool, nil
	case config.CharTypeName:
		return Char, nil
	}
	return Nil, fmt.Errorf("unknown type %q", te.Name)
}

// Category groups operators that share a typing rule.
type Category int

const (
	CategoryOther Category = iota
	CategoryArithmetic
	CategoryComparison
	CategoryEquality
	CategoryBoolean
	CategoryBitwise
)

func categoryOf(op Opcode) Category {
	switch op {
	case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_NEG:
		return CategoryArithmetic
	case OP_LT, OP_LE, OP_GT, OP_GE:
		return CategoryComparison
	case OP_EQ, OP_NE:
		return CategoryEquality
	case OP_NOT:
		return CategoryBoolean
	case OP_MOD, OP_BAND, OP_BOR, OP_BXOR, OP_LSHIFT, OP_RSHIFT:
		return CategoryBitwise
	}
	return CategoryOther
}

type typePair struct{ l, r TypeKind }

// typeTable maps each category to its admissible operand kinds and the
// resulting type.
var typeTable = map[Category]map[typePair]TypeKind{
	CategoryArithmetic: {
		{TypeInt, TypeInt}:     TypeInt,
		{TypeInt, TypeFloat}:   TypeFloat,
		{TypeFloat, TypeInt}:   TypeFloat,
		{TypeFloat, TypeFloat}: TypeFloat,
	},
	CategoryComparison: {
		{TypeInt, TypeInt}:     TypeBool,
		{TypeInt, TypeFloat}:   TypeBool,
		{TypeFloat, TypeInt}:   TypeBool,
		{TypeFloat, TypeFloat}: TypeBool,
		{TypeChar, TypeChar}:   TypeBool,
	},
	CategoryEquality: {
		{TypeInt, TypeInt}:         TypeBool,
		{TypeInt, TypeFloat}:       TypeBool,
		{TypeFloat, TypeInt}:       TypeBool,
		{TypeFloat, TypeFloat}:     TypeBool,
		{TypeBool, TypeBool}:       TypeBool,
		{TypeChar, TypeChar}:       TypeBool,
		{TypePointer, TypePointer}: TypeBool,
	},
	CategoryBoolean: {
		{TypeBool, TypeBool}: TypeBool,
	},
	CategoryBitwise: {
		{TypeInt, TypeInt}: TypeInt,
	},
}

// BinaryResult infers the result type of a binary instruction. The second
// result is false when the combination is not in the table.
func BinaryResult(op Opcode, l, r Type) (Type, bool) {
	// Pointer arithmetic: ptr +/- int keeps the pointer type.
	if (op == OP_ADD || op == OP_SUB) && l.Kind == TypePointer && r.Kind == TypeInt {
		return l, true
	}
	if l.Kind == TypePointer && r.Kind == TypePointer && categoryOf(op) == CategoryEquality && !l.Equal(r) {
		return Nil, false
	}
	kind, ok := typeTable[categoryOf(op)][typePair{l.Kind, r.Kind}]
	if !ok {
		return Nil, false
	}
	return Type{Kind: kind}, true
}

// UnaryResult infers the result type of a unary instruction.
func UnaryResult(op Opcode, operand Type) (Type, bool) {
	switch op {
	case OP_NEG:
		if operand.IsNumeric() {
			return operand, true
		}
	case OP_NOT:
		if operand.Kind == TypeBool {
			return Bool, true
		}
	}
	return Nil, false
}

// Assignable reports whether a value of type from can be stored in a slot of
// type to.
func Assignable(to, from Type) bool {
	return to.Equal(from)
}
