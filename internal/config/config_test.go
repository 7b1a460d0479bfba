package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Schema.Source != SourceDocument {
		t.Fatalf("expected default source %q, got %q", SourceDocument, cfg.Schema.Source)
	}
	if cfg.Schema.Path != "types.yaml" {
		t.Fatalf("expected default schema path 'types.yaml', got %q", cfg.Schema.Path)
	}
	if cfg.Emit.Output != "dist/guards.js" {
		t.Fatalf("expected default output 'dist/guards.js', got %q", cfg.Emit.Output)
	}
	if cfg.Emit.Module != ModuleESM {
		t.Fatalf("expected default module esm, got %q", cfg.Emit.Module)
	}
	if cfg.Watch.Debounce != 100*time.Millisecond {
		t.Fatalf("expected default debounce 100ms, got %s", cfg.Watch.Debounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "typeguard.yaml", `
schema:
  source: go
  path: .
  patterns: ["./models/..."]
types:
  include: ["*Request", "User"]
  exclude: ["Legacy*"]
  skip_unsupported: true
emit:
  output: out/guards.cjs
  module: CJS
log:
  json: true
  level: debug
watch:
  debounce: 250ms
  exec: node test/guards.test.mjs
`)

	cfg, err := Load(configPath, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Schema.Source != SourceGo {
		t.Fatalf("unexpected source: %q", cfg.Schema.Source)
	}
	if len(cfg.Schema.Patterns) != 1 || cfg.Schema.Patterns[0] != "./models/..." {
		t.Fatalf("unexpected patterns: %v", cfg.Schema.Patterns)
	}
	if len(cfg.Types.Include) != 2 || cfg.Types.Exclude[0] != "Legacy*" {
		t.Fatalf("unexpected type selection: %+v", cfg.Types)
	}
	if !cfg.Types.SkipUnsupported {
		t.Fatal("expected skip_unsupported to be true")
	}
	if cfg.Emit.Module != ModuleCJS {
		t.Fatalf("module should be normalized to lower case, got %q", cfg.Emit.Module)
	}
	if want := filepath.Join(dir, "out/guards.cjs"); cfg.Emit.Output != want {
		t.Fatalf("output should resolve against the config dir: got %q, want %q", cfg.Emit.Output, want)
	}
	if !cfg.Log.JSON || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", cfg.Watch.Debounce)
	}
	if cfg.Watch.Exec != "node test/guards.test.mjs" {
		t.Fatalf("unexpected exec: %q", cfg.Watch.Exec)
	}
	if cfg.Dir() != dir {
		t.Fatalf("Dir() = %q, want %q", cfg.Dir(), dir)
	}
	if cfg.File() != configPath {
		t.Fatalf("File() = %q, want %q", cfg.File(), configPath)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "typeguard.json", `{"emit": {"output": "lib/is.mjs"}}`)

	cfg, err := Load(configPath, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Emit.Output != filepath.Join(dir, "lib/is.mjs") {
		t.Fatalf("unexpected output: %q", cfg.Emit.Output)
	}
	// Unset fields keep their defaults.
	if cfg.Schema.Path != filepath.Join(dir, "types.yaml") {
		t.Fatalf("expected default schema path, got %q", cfg.Schema.Path)
	}
	if cfg.Emit.Module != ModuleESM {
		t.Fatalf("expected default module, got %q", cfg.Emit.Module)
	}
}

func TestLoadDiscoversConfigInDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "typeguard.toml", "[emit]\noutput = \"gen/guards.js\"\n")

	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Emit.Output != filepath.Join(dir, "gen/guards.js") {
		t.Fatalf("unexpected output: %q", cfg.Emit.Output)
	}
}

func TestLoadWithoutConfigUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Schema.Path != filepath.Join(dir, "types.yaml") {
		t.Fatalf("unexpected schema path: %q", cfg.Schema.Path)
	}
	if cfg.File() != "" {
		t.Fatalf("expected no config file, got %q", cfg.File())
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir, "typeguard.yaml", "emit:\n  module: amd\n")

	_, err := Load(configPath, "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "emit.module") {
		t.Fatalf("expected emit.module error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TYPEGUARD_EMIT_OUTPUT", "env/guards.js")
	t.Setenv("TYPEGUARD_LOG_LEVEL", "warn")

	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(cfg.Emit.Output, filepath.Join("env", "guards.js")) {
		t.Fatalf("expected env override for output, got %q", cfg.Emit.Output)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("expected env override for log level, got %q", cfg.Log.Level)
	}
}

func TestLoadWithViper_Defaults(t *testing.T) {
	// Isolated viper instance, no environment or files.
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}
	if len(cfg.Watch.Include) == 0 {
		t.Error("expected default watch include globs")
	}
	if cfg.Emit.Cache == "" {
		t.Error("expected default cache path")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown source", func(c *Config) { c.Schema.Source = "proto" }, "schema.source"},
		{"document without path", func(c *Config) { c.Schema.Path = "" }, "schema.path"},
		{"go without patterns", func(c *Config) { c.Schema.Source, c.Schema.Patterns = SourceGo, nil }, "schema.patterns"},
		{"no output", func(c *Config) { c.Emit.Output = "" }, "emit.output"},
		{"ts output", func(c *Config) { c.Emit.Output = "guards.ts" }, ".js"},
		{"bad module", func(c *Config) { c.Emit.Module = "umd" }, "emit.module"},
		{"js declarations", func(c *Config) { c.Emit.Declarations = "guards.d.js" }, "emit.declarations"},
		{"openapi yaml", func(c *Config) { c.OpenAPI.Output = "openapi.yaml" }, "openapi.output"},
		{"openapi json", func(c *Config) { c.OpenAPI.Output = "dist/openapi.json" }, ""},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
