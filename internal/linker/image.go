package linker

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/ir"
)

// Image format:
// - Magic number (4 bytes): "KSBC"
// - Version (1 byte)
// - CBOR-encoded Program
var imageMagic = [4]byte{'K', 'S', 'B', 'C'}

const imageVersion byte = 0x01

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("linker: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes an unrelocated program into an image.
func Marshal(p *Program) ([]byte, error) {
	if p.Relocated {
		return nil, fmt.Errorf("linker: cannot store a relocated program")
	}
	payload, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("linker: marshal program: %w", err)
	}
	buf := new(bytes.Buffer)
	buf.Write(imageMagic[:])
	buf.WriteByte(imageVersion)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Unmarshal reads an image produced by Marshal.
func Unmarshal(data []byte) (*Program, error) {
	if len(data) < len(imageMagic)+1 {
		return nil, fmt.Errorf("linker: image too short")
	}
	if !bytes.Equal(data[:4], imageMagic[:]) {
		return nil, fmt.Errorf("linker: invalid magic number, expected %s", imageMagic[:])
	}
	if v := data[4]; v != imageVersion {
		return nil, fmt.Errorf("linker: unsupported image version %d (this build reads version %d)", v, imageVersion)
	}
	var p Program
	if err := cbor.Unmarshal(data[5:], &p); err != nil {
		return nil, fmt.Errorf("linker: unmarshal program: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("linker: invalid image: %w", err)
	}
	return &p, nil
}

// Write stores the image of p in w.
func Write(w io.Writer, p *Program) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Read loads an image from r.
func Read(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// ImageName derives the image file name for a source file.
func ImageName(source string) string {
	ext := filepath.Ext(source)
	for _, known := range config.SourceFileExtensions {
		if ext == known {
			return strings.TrimSuffix(source, ext) + config.ImageFileExt
		}
	}
	return source + config.ImageFileExt
}

// Validate checks the structural invariants a loaded program must satisfy
// before it is executed.
func (p *Program) Validate() error {
	if len(p.Functions) == 0 || p.Functions[0].Entry != 0 {
		return fmt.Errorf("missing top-level function")
	}
	if len(p.Lines) != len(p.Code) {
		return fmt.Errorf("line table has %d entries for %d instructions", len(p.Lines), len(p.Code))
	}
	entries := make(map[int]bool, len(p.Functions))
	for _, fn := range p.Functions {
		if fn.Entry < 0 || fn.Entry >= len(p.Code) {
			return fmt.Errorf("function %s enters at %d, outside the program", fn.Name, fn.Entry)
		}
		entries[fn.Entry] = true
	}
	for i, ins := range p.Code {
		switch ins.Op {
		case ir.OP_JUMP:
			if t := ins.A.AsInt(); t < 0 || int(t) >= len(p.Code) {
				return fmt.Errorf("%04d: jump target %d out of range", i, t)
			}
		case ir.OP_JUMP_UNLESS:
			if t := ins.B.AsInt(); t < 0 || int(t) >= len(p.Code) {
				return fmt.Errorf("%04d: jump target %d out of range", i, t)
			}
		case ir.OP_CALL:
			if !entries[int(ins.A.AsInt())] {
				return fmt.Errorf("%04d: call target %d is not a function entry", i, ins.A.AsInt())
			}
		case ir.OP_CALL_NATIVE:
			if e := ins.A.AsInt(); e < 0 || int(e) >= len(p.Externs) {
				return fmt.Errorf("%04d: extern %d out of range", i, e)
			}
		}
	}
	if p.Globals == nil {
		p.Globals = make(map[string]int)
	}
	return nil
}
