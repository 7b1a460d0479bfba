package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsgonest/typeguard/internal/config"
	"github.com/tsgonest/typeguard/internal/diagnostic"
	"github.com/tsgonest/typeguard/internal/logging"
)

const version = "0.1.0-dev"

// app is the state shared by every command, set up before the command runs.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

var (
	configPath string
	workDir    string
	logLevel   string
	logJSON    bool
	strict     bool
	quiet      bool

	current app
)

var rootCmd = &cobra.Command{
	Use:   "typeguard",
	Short: "Compile type definitions into runtime type guards",
	Long: `typeguard compiles type definitions into runtime validators.

Types come from a YAML/JSON schema document or from Go packages. Each selected
type is described, synthesized into a validator and emitted as a JavaScript
checker map with one exported predicate per type.

Available commands:
  describe - Print the type descriptors of the selected types
  check    - Validate JSON or YAML values against a type
  emit     - Write the checker map and its manifest
  version  - Print the version

Examples:
  typeguard describe User
  typeguard check User payload.json
  typeguard emit --watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current.log != nil {
			_ = current.log.Sync()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to typeguard config file (default: typeguard.{yaml,json,toml} in --dir)")
	flags.StringVarP(&workDir, "dir", "C", ".", "Directory to run in")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	flags.BoolVar(&logJSON, "log-json", false, "Log as JSON (overrides log.json)")
	flags.BoolVar(&strict, "strict", false, "Treat warnings, including skipped types, as errors")
	flags.BoolVar(&quiet, "quiet", false, "Suppress warnings")

	rootCmd.AddCommand(describeCmd, checkCmd, emitCmd, versionCmd)
}

func setup(cmd *cobra.Command) error {
	dir, err := filepath.Abs(workDir)
	if err != nil {
		return errors.Wrap(err, "could not resolve working directory")
	}
	path := configPath
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	cfg, err := config.Load(path, dir)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = logJSON
	}
	if flags.Changed("strict") {
		cfg.Diagnostics.Strict = strict
	}
	if flags.Changed("quiet") {
		cfg.Diagnostics.Quiet = quiet
	}

	log, err := logging.New(logging.Options{JSON: cfg.Log.JSON, Level: cfg.Log.Level})
	if err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}

	if err := checkConfig(cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}

	current = app{cfg: cfg, log: log}
	log.Debug("loaded config", zap.String("dir", cfg.Dir()), zap.String("schema", cfg.Schema.Path))
	return nil
}

// checkConfig reports config warnings and errors as diagnostics, so strict
// and quiet apply to them like to any other warning.
func checkConfig(cfg *config.Config, out io.Writer) error {
	result := cfg.ValidateDetailed()
	diags := diagnostic.NewCollector(cfg.Diagnostics.Strict, cfg.Diagnostics.Quiet)
	for _, msg := range result.Errors {
		diags.Error(diagnostic.CategoryConfigInvalid, cfg.File(), 0, msg)
	}
	for _, w := range result.Warnings {
		diags.WarnWithHint(diagnostic.CategoryConfigInvalid, cfg.File(), 0, w.Message, w.Hint)
	}
	fmt.Fprint(out, diags.FormatAll())
	if diags.HasErrors() {
		return errors.Newf("invalid config: %s", diags.Summary())
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			if hint := errors.FlattenHints(err); hint != "" {
				fmt.Fprintf(os.Stderr, "  hint: %s\n", hint)
			}
		}
		os.Exit(1)
	}
}
