package evaluator

import (
	"fmt"

	"github.com/funvibe/kestrel/internal/object"
	"github.com/funvibe/kestrel/internal/token"
)

type signalKind int

const (
	signalNormal signalKind = iota
	signalReturn
	signalBreak
)

func (k signalKind) String() string {
	switch k {
	case signalReturn:
		return "return"
	case signalBreak:
		return "break"
	}
	return "normal"
}

// signal is the outcome of executing a statement: normal completion, a
// return carrying its value, or a break.
type signal struct {
	kind  signalKind
	value *object.Value
}

var normal = signal{kind: signalNormal}

// RuntimeError aborts the current top-level Interpret call.
type RuntimeError struct {
	Token   token.Token
	Message string
}

func (e *RuntimeError) Error() string {
	if e.Token.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Token.Line, e.Message)
	}
	return e.Message
}

func newRuntimeError(tok token.Token, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Token: tok, Message: fmt.Sprintf(format, args...)}
}
