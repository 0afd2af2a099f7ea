//go:build !(linux && cgo)

package ffi

import (
	"fmt"

	"github.com/funvibe/kestrel/internal/ir"
)

// Bridge without cgo: the library is never opened and every native call
// fails.
type Bridge struct {
	path string
	data []byte
}

func Open(path string) (*Bridge, error) {
	log.Debugf("native calls unavailable, %s not opened", path)
	return &Bridge{path: path}, nil
}

// Load keeps the data section in Go memory. The returned base is zero, so
// relocated pointers equal their section offsets.
func (b *Bridge) Load(data []byte) (uint64, error) {
	b.data = append([]byte(nil), data...)
	return 0, nil
}

func (b *Bridge) Close() error {
	b.data = nil
	return nil
}

func (b *Bridge) Call(symbol string, args []ir.Operand, ret ir.Type, base uint64) (ir.Operand, error) {
	if err := checkArgs(symbol, args); err != nil {
		return ir.Operand{}, err
	}
	return ir.Operand{}, fmt.Errorf("cannot call %s: native calls need a cgo build on linux", symbol)
}
