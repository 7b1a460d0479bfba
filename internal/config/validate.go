package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []Warning
}

// Warning is a config value that is valid but probably not intended.
type Warning struct {
	Message string
	Hint    string // optional suggestion
}

func (w Warning) String() string { return w.Message }

func (r *ValidationResult) warn(message, hint string) {
	r.Warnings = append(r.Warnings, Warning{Message: message, Hint: hint})
}

// ValidateDetailed performs thorough config validation with suggestions.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}
	if err := c.Validate(); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	// Schema
	if c.Schema.Source == SourceDocument {
		switch ext := filepath.Ext(c.Schema.Path); ext {
		case ".yaml", ".yml", ".json":
		default:
			result.warn(fmt.Sprintf("schema.path: extension %q is unusual", ext),
				"schema documents are read as YAML or JSON: use .yaml, .yml or .json")
		}
	}
	for _, pattern := range c.Schema.Patterns {
		if c.Schema.Source == SourceGo && !strings.HasPrefix(pattern, ".") && !strings.Contains(pattern, "/") {
			result.warn(fmt.Sprintf("schema.patterns: %q is not a relative package pattern", pattern),
				fmt.Sprintf("did you mean %q?", "./"+pattern))
		}
	}

	// Types
	for _, pattern := range append(append([]string(nil), c.Types.Include...), c.Types.Exclude...) {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("types: malformed pattern %q", pattern))
		}
	}

	// Emit
	if c.Emit.Module == ModuleESM && filepath.Ext(c.Emit.Output) == ".cjs" {
		result.warn("emit: module is esm but output has a .cjs extension", "set emit.module to cjs or rename the output to .js or .mjs")
	}
	if c.Emit.Module == ModuleCJS && filepath.Ext(c.Emit.Output) == ".mjs" {
		result.warn("emit: module is cjs but output has a .mjs extension", "set emit.module to esm or rename the output to .js or .cjs")
	}
	if c.Emit.Module == ModuleCJS && strings.HasSuffix(c.Emit.Declarations, ".d.mts") {
		result.warn("emit: module is cjs but declarations have a .d.mts extension", "use .d.ts or .d.cts")
	}
	if c.Emit.Manifest != "" && filepath.Ext(c.Emit.Manifest) != ".json" {
		result.warn(fmt.Sprintf("emit.manifest: extension %q is unusual, expected .json", filepath.Ext(c.Emit.Manifest)), "")
	}

	// OpenAPI
	if c.OpenAPI.Output != "" && c.OpenAPI.Version == "" {
		result.Errors = append(result.Errors, "openapi.version: must not be empty when openapi.output is set")
	}

	// Log
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil && c.Log.Level != "" {
		result.Errors = append(result.Errors, fmt.Sprintf("log.level: invalid value %q", c.Log.Level))
	}

	// Watch
	if c.Watch.Debounce > 0 && c.Watch.Debounce < 10*time.Millisecond {
		result.warn(fmt.Sprintf("watch.debounce: %s is very short", c.Watch.Debounce),
			"editors often write a file in several steps; 50ms or more avoids duplicate rebuilds")
	}

	// Diagnostics
	if c.Diagnostics.Strict && c.Diagnostics.Quiet {
		result.warn("diagnostics: strict and quiet are both set", "quiet drops warnings, and strict still fails on skipped types")
	}

	return result
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}
