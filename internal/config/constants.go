package config

const Version = "0.4.0"

const SourceFileExt = ".kes"

// ImageFileExt is the extension of compiled bytecode images.
const ImageFileExt = ".kbc"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".kes", ".kestrel"}

// Reserved names bound by the runtime
const (
	SelfName       = "self"
	SuperName      = "super"
	InitMethodName = "init"
)

// Backend names
const (
	BackendTree = "tree"
	BackendVM   = "vm"
)

// Native type names used in annotations
const (
	IntTypeName   = "int"
	FloatTypeName = "float"
	BoolTypeName  = "bool"
	CharTypeName  = "char"
)

// VM limits
const (
	DefaultWindowSize     = 256
	DefaultValueStackSize = 1024
	DefaultCallDepth      = 1024
)

// DefaultLibrary is opened by the foreign-call bridge when no library is configured.
const DefaultLibrary = "libc.so.6"
