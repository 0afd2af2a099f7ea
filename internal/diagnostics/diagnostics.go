// Package diagnostics holds the phase-tagged error values every stage of the
// pipeline reports, and the sinks they are written to.
package diagnostics

import (
	"fmt"

	"github.com/funvibe/kestrel/internal/token"
)

// Phase names the pipeline stage that produced a diagnostic.
type Phase string

const (
	PhaseLexing       Phase = "lexing"
	PhaseParsing      Phase = "parsing"
	PhaseResolving    Phase = "resolving"
	PhaseInterpreting Phase = "interpreting"
	PhaseCompiling    Phase = "compiling"
	PhaseRunning      Phase = "running"
)

// NoOffset marks a diagnostic without a character position.
const NoOffset = -1

// Diagnostic is one reported problem. It implements error.
type Diagnostic struct {
	File    string
	Phase   Phase
	Line    int
	Offset  int
	Message string
}

func (d *Diagnostic) Error() string {
	file := d.File
	if file == "" {
		file = "<input>"
	}
	switch {
	case d.Offset != NoOffset && d.Line > 0:
		return fmt.Sprintf("%s:%d@%d: [%s] %s", file, d.Line, d.Offset, d.Phase, d.Message)
	case d.Line > 0:
		return fmt.Sprintf("%s:%d: [%s] %s", file, d.Line, d.Phase, d.Message)
	default:
		return fmt.Sprintf("%s: [%s] %s", file, d.Phase, d.Message)
	}
}

// New builds a diagnostic positioned at tok.
func New(phase Phase, tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Phase:   phase,
		Line:    tok.Line,
		Offset:  tok.Offset,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewAt builds a diagnostic at an explicit line; offset may be NoOffset.
func NewAt(phase Phase, line, offset int, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{
		Phase:   phase,
		Line:    line,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	}
}
