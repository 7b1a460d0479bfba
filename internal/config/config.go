package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Schema sources.
const (
	SourceDocument = "document"
	SourceGo       = "go"
)

// Module formats of the emitted checker map.
const (
	ModuleESM = "esm"
	ModuleCJS = "cjs"
)

// EnvPrefix prefixes environment overrides, e.g. TYPEGUARD_EMIT_OUTPUT.
const EnvPrefix = "TYPEGUARD"

// Config represents the typeguard configuration.
type Config struct {
	Schema      SchemaConfig      `mapstructure:"schema"`
	Types       TypesConfig       `mapstructure:"types"`
	Emit        EmitConfig        `mapstructure:"emit"`
	OpenAPI     OpenAPIConfig     `mapstructure:"openapi"`
	Log         LogConfig         `mapstructure:"log"`
	Watch       WatchConfig       `mapstructure:"watch"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`

	base string
	file string
}

// SchemaConfig says where type definitions come from.
type SchemaConfig struct {
	Source   string   `mapstructure:"source"`   // "document" (YAML/JSON schema document) or "go" (Go packages)
	Path     string   `mapstructure:"path"`     // schema document path, or the directory packages are loaded from
	Patterns []string `mapstructure:"patterns"` // Go package patterns, e.g. ["./models/..."]
}

// TypesConfig selects which named types become validators.
type TypesConfig struct {
	Include []string `mapstructure:"include"` // type name globs, e.g. ["*Request", "User"]; empty selects all
	Exclude []string `mapstructure:"exclude"` // type name globs to leave out, e.g. ["Legacy*"]
	// SkipUnsupported reports types that cannot be described as warnings and
	// leaves them out instead of failing the run.
	SkipUnsupported bool `mapstructure:"skip_unsupported"`
}

// EmitConfig controls checker map generation.
type EmitConfig struct {
	Output   string `mapstructure:"output"`   // checker map file, e.g. "dist/guards.js"
	Module   string `mapstructure:"module"`   // "esm" or "cjs"
	Manifest string `mapstructure:"manifest"` // manifest path; empty disables it
	Cache    string `mapstructure:"cache"`    // build cache path; empty disables it
	// Declarations is the TypeScript declaration file for the checker map;
	// empty disables it.
	Declarations string `mapstructure:"declarations"`
}

// OpenAPIConfig controls the OpenAPI components document written next to the
// checker map.
type OpenAPIConfig struct {
	Output      string `mapstructure:"output"` // document path; empty disables it
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Version     string `mapstructure:"version"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// WatchConfig controls emit --watch.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Include  []string      `mapstructure:"include"` // file globs that trigger a rebuild
	Exclude  []string      `mapstructure:"exclude"`
	// Exec is a command restarted after every successful emit, split on
	// whitespace. Empty runs nothing.
	Exec string `mapstructure:"exec"`
}

// DiagnosticsConfig controls how diagnostics are reported.
type DiagnosticsConfig struct {
	Strict bool `mapstructure:"strict"` // warnings become errors
	Quiet  bool `mapstructure:"quiet"`  // warnings are suppressed
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("schema.source", SourceDocument)
	v.SetDefault("schema.path", "types.yaml")
	v.SetDefault("schema.patterns", []string{"./..."})

	v.SetDefault("emit.output", "dist/guards.js")
	v.SetDefault("emit.module", ModuleESM)
	v.SetDefault("emit.manifest", "dist/guards.manifest.json")
	v.SetDefault("emit.cache", ".typeguard/cache.json")
	v.SetDefault("emit.declarations", "dist/guards.d.ts")

	v.SetDefault("openapi.title", "typeguard")
	v.SetDefault("openapi.version", "1.0.0")

	v.SetDefault("log.level", "info")

	v.SetDefault("watch.debounce", 100*time.Millisecond)
	v.SetDefault("watch.include", []string{"**/*.yaml", "**/*.yml", "**/*.json", "**/*.go"})
	v.SetDefault("watch.exclude", []string{"dist/**", ".typeguard/**"})
}

// DefaultConfig returns a config with the default values.
func DefaultConfig() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "decoding default config"))
	}
	return *cfg
}

// NewViper returns a viper instance with defaults and TYPEGUARD_ environment
// overrides ("emit.output" is overridden by TYPEGUARD_EMIT_OUTPUT).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the configuration. With an empty path it looks for
// typeguard.{yaml,yml,json,toml} in dir and falls back to the defaults when
// there is none; an explicit path must exist.
func Load(path, dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("typeguard")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrapf(err, "failed to read config file %q", path)
		}
	}

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		cfg.file = used
		cfg.resolve(filepath.Dir(used))
	} else {
		cfg.resolve(dir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config in %q", v.ConfigFileUsed())
	}
	return cfg, nil
}

// LoadWithViper decodes configuration from a prepared viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.Schema.Source = strings.ToLower(cfg.Schema.Source)
	cfg.Emit.Module = strings.ToLower(cfg.Emit.Module)
	return &cfg, nil
}

// resolve makes relative paths relative to base, the directory of the config
// file.
func (c *Config) resolve(base string) {
	if base == "" {
		return
	}
	c.base = base
	for _, p := range []*string{&c.Schema.Path, &c.Emit.Output, &c.Emit.Manifest, &c.Emit.Cache, &c.Emit.Declarations, &c.OpenAPI.Output} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Dir returns the directory relative paths were resolved against.
func (c *Config) Dir() string {
	if c.base == "" {
		return "."
	}
	return c.base
}

// File returns the config file that was read, or "" when only defaults and
// the environment apply.
func (c *Config) File() string { return c.file }

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	switch c.Schema.Source {
	case SourceDocument:
		if c.Schema.Path == "" {
			return errors.New("schema.path must not be empty")
		}
	case SourceGo:
		if len(c.Schema.Patterns) == 0 {
			return errors.New("schema.patterns must have at least one pattern")
		}
	default:
		return errors.WithHintf(errors.Newf("schema.source: invalid value %q", c.Schema.Source),
			"use %q or %q", SourceDocument, SourceGo)
	}

	if c.Emit.Output == "" {
		return errors.New("emit.output must not be empty")
	}
	if ext := filepath.Ext(c.Emit.Output); ext != ".js" && ext != ".mjs" && ext != ".cjs" {
		return errors.Newf("emit.output must have a .js, .mjs or .cjs extension, got %q", ext)
	}
	if c.Emit.Module != ModuleESM && c.Emit.Module != ModuleCJS {
		return errors.Newf("emit.module: invalid value %q, must be esm or cjs", c.Emit.Module)
	}

	if c.Emit.Declarations != "" && !strings.HasSuffix(c.Emit.Declarations, ".ts") {
		return errors.WithHint(errors.Newf("emit.declarations must be a TypeScript file, got %q", c.Emit.Declarations),
			"use a .d.ts, .d.mts or .d.cts path")
	}
	if c.OpenAPI.Output != "" && filepath.Ext(c.OpenAPI.Output) != ".json" {
		return errors.Newf("openapi.output must be a .json file, got %q", c.OpenAPI.Output)
	}

	if c.Watch.Debounce < 0 {
		return errors.Newf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	return nil
}
