// Package ffi calls native functions from compiled programs. With cgo on
// Linux it resolves symbols with dlopen/dlsym and calls them through
// libffi; other builds get a bridge that refuses native calls.
package ffi

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/funvibe/kestrel/internal/ir"
)

var log = commonlog.GetLogger("kestrel.ffi")

// checkArgs rejects operands that have no native representation.
func checkArgs(symbol string, args []ir.Operand) error {
	for i, arg := range args {
		switch arg.Kind {
		case ir.OperandInt, ir.OperandFloat, ir.OperandBool, ir.OperandChar, ir.OperandPointer:
		default:
			return fmt.Errorf("%s: argument %d has no native type (%s)", symbol, i+1, arg.Kind)
		}
	}
	return nil
}

// address returns the live address a pointer operand refers to.
func address(op ir.Operand, base uint64) uint64 {
	if op.Relocated {
		return op.Data
	}
	return base + op.Data
}
