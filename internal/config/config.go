package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ConfigFileNames are searched, in order, when no explicit path is given.
var ConfigFileNames = []string{"kestrel.yaml", "kestrel.yml", "kestrel.toml"}

// Config is the runtime configuration. Zero values mean "use the default".
type Config struct {
	Backend     string            `yaml:"backend" toml:"backend"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" toml:"diagnostics"`
	Log         LogConfig         `yaml:"log" toml:"log"`
	GC          GCConfig          `yaml:"gc" toml:"gc"`
	VM          VMConfig          `yaml:"vm" toml:"vm"`
	FFI         FFIConfig         `yaml:"ffi" toml:"ffi"`
}

type DiagnosticsConfig struct {
	// Sink is one of stdout, stderr, memory, file, sqlite.
	Sink string `yaml:"sink" toml:"sink"`
	Path string `yaml:"path" toml:"path"`
}

type LogConfig struct {
	Verbosity int    `yaml:"verbosity" toml:"verbosity"`
	File      string `yaml:"file" toml:"file"`
}

type GCConfig struct {
	// HeapLimit caps live objects (fixed-arena debug mode). 0 = unlimited.
	HeapLimit int  `yaml:"heap_limit" toml:"heap_limit"`
	Trace     bool `yaml:"trace" toml:"trace"`
}

type VMConfig struct {
	WindowSize     int  `yaml:"window_size" toml:"window_size"`
	ValueStackSize int  `yaml:"value_stack_size" toml:"value_stack_size"`
	CallDepth      int  `yaml:"call_depth" toml:"call_depth"`
	Trace          bool `yaml:"trace" toml:"trace"`
}

type FFIConfig struct {
	Library string `yaml:"library" toml:"library"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend:     BackendTree,
		Diagnostics: DiagnosticsConfig{Sink: "stderr"},
		VM: VMConfig{
			WindowSize:     DefaultWindowSize,
			ValueStackSize: DefaultValueStackSize,
			CallDepth:      DefaultCallDepth,
		},
		FFI: FFIConfig{Library: DefaultLibrary},
	}
}

// Load reads path, choosing the decoder by extension, and fills unset
// fields from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find loads the first config file found in dir, or returns Default.
func Find(dir string) (*Config, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.Diagnostics.Sink == "" {
		c.Diagnostics.Sink = def.Diagnostics.Sink
	}
	if c.VM.WindowSize == 0 {
		c.VM.WindowSize = def.VM.WindowSize
	}
	if c.VM.ValueStackSize == 0 {
		c.VM.ValueStackSize = def.VM.ValueStackSize
	}
	if c.VM.CallDepth == 0 {
		c.VM.CallDepth = def.VM.CallDepth
	}
	if c.FFI.Library == "" {
		c.FFI.Library = def.FFI.Library
	}
}

// Validate rejects values no component can honour.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendTree, BackendVM:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	switch c.Diagnostics.Sink {
	case "stdout", "stderr", "memory":
	case "file", "sqlite":
		if c.Diagnostics.Path == "" {
			return fmt.Errorf("diagnostics sink %q requires a path", c.Diagnostics.Sink)
		}
	default:
		return fmt.Errorf("unknown diagnostics sink %q", c.Diagnostics.Sink)
	}
	if c.GC.HeapLimit < 0 {
		return fmt.Errorf("gc.heap_limit must not be negative")
	}
	if c.VM.WindowSize < 1 || c.VM.ValueStackSize < 1 || c.VM.CallDepth < 1 {
		return fmt.Errorf("vm limits must be positive")
	}
	return nil
}
