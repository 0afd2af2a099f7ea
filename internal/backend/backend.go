// Package backend runs a resolved program on one of the two execution
// engines: the tree-walking interpreter or the register VM.
package backend

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/pipeline"
)

var log = commonlog.GetLogger("kestrel.backend")

// Backend is the interface for execution backends
type Backend interface {
	// Run executes the program held by ctx and returns the backend's result
	// (*evaluator.Interpreter or *vm.Result).
	Run(ctx *pipeline.PipelineContext) (interface{}, error)

	// Name returns the backend name for display
	Name() string
}

// New builds the backend named by cfg.Backend.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendTree, "":
		return NewTreeWalk(cfg), nil
	case config.BackendVM:
		return NewVM(cfg), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
