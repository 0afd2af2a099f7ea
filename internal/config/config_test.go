package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "kestrel.yaml", `
backend: vm
diagnostics:
  sink: sqlite
  path: diag.db
gc:
  heap_limit: 500
vm:
  window_size: 64
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendVM || cfg.Diagnostics.Sink != "sqlite" || cfg.Diagnostics.Path != "diag.db" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.GC.HeapLimit != 500 || cfg.VM.WindowSize != 64 {
		t.Errorf("unexpected limits %+v %+v", cfg.GC, cfg.VM)
	}
	if cfg.VM.CallDepth != DefaultCallDepth || cfg.FFI.Library != DefaultLibrary {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "kestrel.toml", `
backend = "tree"

[log]
verbosity = 2

[ffi]
library = "libm.so.6"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Verbosity != 2 || cfg.FFI.Library != "libm.so.6" || cfg.Diagnostics.Sink != "stderr" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name, content string
	}{
		{"bad.json", `{}`},
		{"backend.yaml", "backend: jit\n"},
		{"sink.yaml", "diagnostics:\n  sink: file\n"},
		{"heap.toml", "[gc]\nheap_limit = -1\n"},
		{"syntax.toml", "backend = \n"},
	}
	for _, tt := range tests {
		if _, err := Load(writeFile(t, dir, tt.name, tt.content)); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file: expected an error")
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Find(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendTree {
		t.Errorf("empty dir should give defaults, got %+v", cfg)
	}

	writeFile(t, dir, "kestrel.toml", "backend = \"tree\"\n")
	writeFile(t, dir, "kestrel.yaml", "backend: vm\n")
	cfg, err = Find(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendVM {
		t.Errorf("yaml should win over toml, got %q", cfg.Backend)
	}
}
