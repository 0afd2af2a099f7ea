//go:build linux && cgo

package ffi

/*
#cgo LDFLAGS: -ldl
#cgo pkg-config: libffi
#include <ffi.h>
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

static void* kes_dlopen(const char* path) {
	return dlopen(path, RTLD_LAZY | RTLD_LOCAL);
}

static const char* kes_dlerror(void) {
	return dlerror();
}

// Clear dlerror, call dlsym, and report the error alongside the symbol.
static void* kes_dlsym(void* h, const char* name, const char** err) {
	dlerror();
	void* p = dlsym(h, name);
	const char* e = dlerror();
	*err = e;
	return e ? NULL : p;
}

static int kes_dlclose(void* h) {
	return dlclose(h);
}

static void kes_ffi_call(ffi_cif* cif, void* fn, void* rvalue, void** avalue) {
	ffi_call(cif, (void (*)(void))fn, rvalue, avalue);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/funvibe/kestrel/internal/gc"
	"github.com/funvibe/kestrel/internal/ir"
)

// slotSize is the size of every argument and return buffer; it covers every
// native type and libffi's widened integral returns.
const slotSize = 8

// Bridge is an opened shared library plus the loaded data section.
type Bridge struct {
	path    string
	handle  unsafe.Pointer
	symbols map[string]unsafe.Pointer
	data    unsafe.Pointer
}

// Open loads the shared library at path.
func Open(path string) (*Bridge, error) {
	cs := C.CString(path)
	defer C.free(unsafe.Pointer(cs))
	h := C.kes_dlopen(cs)
	if h == nil {
		return nil, fmt.Errorf("dlopen(%q) failed: %s", path, dlerr())
	}
	log.Debugf("opened %s", path)
	return &Bridge{path: path, handle: h, symbols: make(map[string]unsafe.Pointer)}, nil
}

func dlerr() string {
	if e := C.kes_dlerror(); e != nil {
		return C.GoString(e)
	}
	return "unknown dlerror"
}

// Load copies the data section into native memory and returns its address,
// the base for relocating section-relative pointers.
func (b *Bridge) Load(data []byte) (uint64, error) {
	if b.data != nil {
		return 0, fmt.Errorf("data section already loaded")
	}
	mem := C.malloc(C.size_t(len(data) + 1))
	if mem == nil {
		return 0, fmt.Errorf("ffi: out of memory loading %d bytes", len(data))
	}
	if len(data) > 0 {
		C.memcpy(mem, unsafe.Pointer(&data[0]), C.size_t(len(data)))
	}
	*(*C.char)(unsafe.Add(mem, len(data))) = 0
	b.data = mem
	return uint64(uintptr(mem)), nil
}

// Close frees the data section and closes the library.
func (b *Bridge) Close() error {
	if b.data != nil {
		C.free(b.data)
		b.data = nil
	}
	if b.handle != nil {
		if C.kes_dlclose(b.handle) != 0 {
			return fmt.Errorf("dlclose(%q) failed: %s", b.path, dlerr())
		}
		b.handle = nil
	}
	return nil
}

func (b *Bridge) lookup(symbol string) unsafe.Pointer {
	if fn, ok := b.symbols[symbol]; ok {
		return fn
	}
	cs := C.CString(symbol)
	defer C.free(unsafe.Pointer(cs))
	var cerr *C.char
	fn := C.kes_dlsym(b.handle, cs, &cerr)
	if cerr != nil || fn == nil {
		gc.Fatal("missing native symbol %s in %s", symbol, b.path)
		return nil
	}
	log.Debugf("resolved %s in %s", symbol, b.path)
	b.symbols[symbol] = fn
	return fn
}

// ffiType maps an operand kind to its native type descriptor.
func ffiType(kind ir.OperandKind) *C.ffi_type {
	switch kind {
	case ir.OperandInt:
		return &C.ffi_type_sint32
	case ir.OperandFloat:
		return &C.ffi_type_double
	case ir.OperandBool:
		return &C.ffi_type_uint8
	case ir.OperandChar:
		return &C.ffi_type_sint8
	case ir.OperandPointer:
		return &C.ffi_type_pointer
	}
	return &C.ffi_type_void
}

func returnKind(t ir.Type) ir.OperandKind {
	switch t.Kind {
	case ir.TypeInt:
		return ir.OperandInt
	case ir.TypeFloat:
		return ir.OperandFloat
	case ir.TypeBool:
		return ir.OperandBool
	case ir.TypeChar:
		return ir.OperandChar
	case ir.TypePointer:
		return ir.OperandPointer
	}
	return ir.OperandNil
}

// Call invokes symbol with args and converts the raw result to ret. Every
// native buffer allocated for the call is freed before Call returns.
func (b *Bridge) Call(symbol string, args []ir.Operand, ret ir.Type, base uint64) (ir.Operand, error) {
	if b.handle == nil {
		return ir.Operand{}, fmt.Errorf("library %s is closed", b.path)
	}
	if err := checkArgs(symbol, args); err != nil {
		return ir.Operand{}, err
	}
	fn := b.lookup(symbol)
	if fn == nil {
		return ir.Operand{}, fmt.Errorf("missing native symbol %s", symbol)
	}

	var cleanups []func()
	defer func() {
		for _, f := range cleanups {
			f()
		}
	}()
	alloc := func(n C.size_t) (unsafe.Pointer, error) {
		p := C.malloc(n)
		if p == nil {
			return nil, fmt.Errorf("ffi: out of memory")
		}
		cleanups = append(cleanups, func() { C.free(p) })
		return p, nil
	}

	n := len(args)
	var types **C.ffi_type
	var argv *unsafe.Pointer
	if n > 0 {
		tmem, err := alloc(C.size_t(n) * C.size_t(unsafe.Sizeof(uintptr(0))))
		if err != nil {
			return ir.Operand{}, err
		}
		vmem, err := alloc(C.size_t(n) * C.size_t(unsafe.Sizeof(uintptr(0))))
		if err != nil {
			return ir.Operand{}, err
		}
		typeSlice := unsafe.Slice((**C.ffi_type)(tmem), n)
		argSlice := unsafe.Slice((*unsafe.Pointer)(vmem), n)
		for i, arg := range args {
			buf, err := alloc(slotSize)
			if err != nil {
				return ir.Operand{}, err
			}
			writeArg(buf, arg, base)
			typeSlice[i] = ffiType(arg.Kind)
			argSlice[i] = buf
		}
		types = (**C.ffi_type)(tmem)
		argv = (*unsafe.Pointer)(vmem)
	}

	cifMem, err := alloc(C.size_t(unsafe.Sizeof(C.ffi_cif{})))
	if err != nil {
		return ir.Operand{}, err
	}
	cif := (*C.ffi_cif)(cifMem)
	kind := returnKind(ret)
	if st := C.ffi_prep_cif(cif, C.FFI_DEFAULT_ABI, C.uint(n), ffiType(kind), types); st != C.FFI_OK {
		return ir.Operand{}, fmt.Errorf("ffi_prep_cif(%s) failed: %d", symbol, int(st))
	}

	rvalue, err := alloc(slotSize)
	if err != nil {
		return ir.Operand{}, err
	}
	*(*C.uint64_t)(rvalue) = 0
	C.kes_ffi_call(cif, fn, rvalue, argv)
	return readResult(rvalue, kind), nil
}

func writeArg(buf unsafe.Pointer, arg ir.Operand, base uint64) {
	switch arg.Kind {
	case ir.OperandInt:
		*(*C.int)(buf) = C.int(arg.AsInt())
	case ir.OperandFloat:
		*(*C.double)(buf) = C.double(arg.AsFloat())
	case ir.OperandBool:
		var v C.uint8_t
		if arg.AsBool() {
			v = 1
		}
		*(*C.uint8_t)(buf) = v
	case ir.OperandChar:
		*(*C.schar)(buf) = C.schar(arg.AsChar())
	case ir.OperandPointer:
		*(*C.uintptr_t)(buf) = C.uintptr_t(address(arg, base))
	}
}

// readResult converts the raw return buffer. libffi widens integral
// returns to a full word, so the low bytes hold the value.
func readResult(buf unsafe.Pointer, kind ir.OperandKind) ir.Operand {
	switch kind {
	case ir.OperandInt:
		return ir.IntOp(int64(*(*C.int)(buf)))
	case ir.OperandFloat:
		return ir.FloatOp(float64(*(*C.double)(buf)))
	case ir.OperandBool:
		return ir.BoolOp(*(*C.uint8_t)(buf) != 0)
	case ir.OperandChar:
		return ir.CharOp(rune(*(*C.schar)(buf)))
	case ir.OperandPointer:
		return ir.AddressOp(uint64(*(*C.uintptr_t)(buf)))
	}
	return ir.NilOp()
}
