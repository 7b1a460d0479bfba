package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsgonest/typeguard/internal/buildcache"
	"github.com/tsgonest/typeguard/internal/codegen"
	"github.com/tsgonest/typeguard/internal/config"
	"github.com/tsgonest/typeguard/internal/diagnostic"
	"github.com/tsgonest/typeguard/internal/guard"
	"github.com/tsgonest/typeguard/internal/openapi"
	"github.com/tsgonest/typeguard/internal/runner"
	"github.com/tsgonest/typeguard/internal/sdkgen"
	"github.com/tsgonest/typeguard/internal/watcher"
)

var (
	emitWatch  bool
	emitForce  bool
	emitOutput string
	emitModule string
	emitExec   string
)

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Write the checker map and its manifest",
	Long: `Compile every selected type in one pass and write the checker map.

The checker map holds one method per unit (__0, __1, ...) and one exported
is<Type> predicate per selected type. A manifest maps each type to its file
and predicate, and a .d.ts file declares each predicate as a type guard.
With openapi.output set, an OpenAPI 3.1 document describing
the same units as schema components is written too. When neither the config, the schema inputs nor the outputs
changed since the last emit, nothing is rewritten.

Examples:
  typeguard emit
  typeguard emit --output dist/guards.cjs --module cjs
  typeguard emit --watch
  typeguard emit --watch --exec "node test/guards.test.mjs"`,
	Args: cobra.NoArgs,
	RunE: runEmit,
}

func init() {
	emitCmd.Flags().BoolVarP(&emitWatch, "watch", "w", false, "Re-emit whenever a watched file changes")
	emitCmd.Flags().BoolVar(&emitForce, "force", false, "Ignore the build cache")
	emitCmd.Flags().StringVarP(&emitOutput, "output", "o", "", "Checker map path (overrides emit.output)")
	emitCmd.Flags().StringVar(&emitModule, "module", "", "Module format: esm or cjs (overrides emit.module)")
	emitCmd.Flags().StringVar(&emitExec, "exec", "", "With --watch, restart this command after every successful emit (overrides watch.exec)")
}

func runEmit(cmd *cobra.Command, args []string) error {
	cfg, log := current.cfg, current.log
	if emitOutput != "" {
		out, err := filepath.Abs(emitOutput)
		if err != nil {
			return errors.Wrap(err, "resolving output path")
		}
		cfg.Emit.Output = out
	}
	if emitModule != "" {
		cfg.Emit.Module = emitModule
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !emitWatch {
		return emit(cmd.Context(), cfg, log, cmd.ErrOrStderr(), emitForce)
	}

	if emitExec != "" {
		cfg.Watch.Exec = emitExec
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := newExecRunner(cfg, log)
	rebuild := func(force bool) {
		if err := emit(ctx, cfg, log, cmd.ErrOrStderr(), force); err != nil {
			log.Error("emit failed", zap.Error(err))
			return
		}
		if proc == nil {
			return
		}
		if err := proc.Restart(); err != nil {
			log.Error("restarting command", zap.String("exec", cfg.Watch.Exec), zap.Error(err))
		}
	}
	if proc != nil {
		defer proc.Stop()
	}

	rebuild(emitForce)

	dir := cfg.Schema.Path
	if cfg.Schema.Source == config.SourceDocument {
		dir = filepath.Dir(dir)
	}
	w := watcher.New([]string{dir}, cfg.Watch.Include, cfg.Watch.Exclude, cfg.Watch.Debounce, func(events []watcher.Event) {
		log.Info("change detected", zap.Int("files", len(events)), zap.String("first", events[0].Path))
		rebuild(false)
	}, log)
	log.Info("watching", zap.String("dir", dir), zap.Strings("include", cfg.Watch.Include))
	return w.Watch(ctx)
}

// newExecRunner returns the runner for watch.exec, or nil when none is set.
func newExecRunner(cfg *config.Config, log *zap.Logger) *runner.Runner {
	fields := strings.Fields(cfg.Watch.Exec)
	if len(fields) == 0 {
		return nil
	}
	r := runner.New(fields[0], fields[1:], cfg.Dir())
	r.DisableStdin = true
	r.Log = log.Named("exec")
	return r
}

// emit compiles the selected types and writes the checker map, manifest and
// cache. Diagnostics go to diagOut.
func emit(ctx context.Context, cfg *config.Config, log *zap.Logger, diagOut io.Writer, force bool) error {
	start := time.Now()
	in, err := loadSchema(ctx, cfg, log)
	if err != nil {
		return err
	}

	// Flags override the file, so the cache keys on the effective config.
	configHash := buildcache.HashValue(cfg)
	inputHash := buildcache.HashFiles(in.inputs)
	if cfg.Emit.Cache != "" {
		switch {
		case force:
			// Dropped up front so a forced emit that fails leaves no cache
			// vouching for the previous outputs.
			buildcache.Delete(cfg.Emit.Cache)
		case buildcache.Load(cfg.Emit.Cache).IsValid(configHash, inputHash):
			log.Info("up to date", zap.String("output", cfg.Emit.Output))
			return nil
		}
	}

	roots, err := selectRoots(in, cfg, nil)
	if err != nil {
		return err
	}

	pass := guard.NewPass(guard.WithLogger(log), guard.WithRealm(in.realm))
	diags := diagnostic.NewCollector(cfg.Diagnostics.Strict, cfg.Diagnostics.Quiet)
	var validators []*guard.Validator
	for _, name := range roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		node, err := in.types.Lookup(name)
		if err != nil {
			return err
		}
		v, err := pass.Compile(node)
		if err != nil {
			diags.Report(err, in.file, cfg.Types.SkipUnsupported)
			continue
		}
		validators = append(validators, v)
	}
	fmt.Fprint(diagOut, diags.FormatAll())
	if diags.HasErrors() {
		return errors.Newf("emit failed: %s", diags.Summary())
	}
	if len(validators) == 0 {
		return errors.New("no type could be compiled")
	}

	cm, err := codegen.EmitCheckerMap(pass, validators, codegen.EmitOptions{Format: codegen.Format(cfg.Emit.Module)})
	if err != nil {
		return err
	}
	if err := writeFile(cfg.Emit.Output, []byte(cm.Source)); err != nil {
		return err
	}
	outputs := []string{cfg.Emit.Output}

	if cfg.Emit.Declarations != "" {
		g := openapi.NewGenerator()
		g.Add(validators...)
		if err := writeFile(cfg.Emit.Declarations, []byte(sdkgen.Declarations(cm.Entries, g))); err != nil {
			return err
		}
		outputs = append(outputs, cfg.Emit.Declarations)
	}

	if cfg.Emit.Manifest != "" {
		m := codegen.GenerateManifest(cm, cfg.Emit.Output, filepath.Dir(cfg.Emit.Manifest))
		data, err := codegen.ManifestJSON(m)
		if err != nil {
			return errors.Wrap(err, "encoding manifest")
		}
		if err := writeFile(cfg.Emit.Manifest, append(data, '\n')); err != nil {
			return err
		}
		outputs = append(outputs, cfg.Emit.Manifest)
	}

	if cfg.OpenAPI.Output != "" {
		if err := writeOpenAPI(cfg, validators); err != nil {
			return err
		}
		outputs = append(outputs, cfg.OpenAPI.Output)
	}

	if cfg.Emit.Cache != "" {
		// A failed save only costs the next emit its shortcut.
		if err := buildcache.Save(cfg.Emit.Cache, buildcache.New(configHash, inputHash, outputs)); err != nil {
			log.Warn("saving build cache", zap.Error(err))
		}
	}

	log.Info("emitted",
		zap.String("output", cfg.Emit.Output),
		zap.Int("validators", len(cm.Entries)),
		zap.Int("units", len(cm.Units)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// writeOpenAPI writes the components document describing validators. The
// encoded bytes are validated, so what is checked is what lands on disk.
func writeOpenAPI(cfg *config.Config, validators []*guard.Validator) error {
	doc := openapi.Generate(validators, openapi.DocumentConfig{
		Title:       cfg.OpenAPI.Title,
		Description: cfg.OpenAPI.Description,
		Version:     cfg.OpenAPI.Version,
	})
	data, err := doc.ToJSON()
	if err != nil {
		return errors.Wrap(err, "encoding OpenAPI document")
	}
	errs, err := openapi.ValidateJSON(data)
	if err != nil {
		return errors.NewAssertionErrorWithWrappedErrf(err, "re-reading generated OpenAPI document")
	}
	if len(errs) > 0 {
		return errors.AssertionFailedf("generated OpenAPI document is invalid: %v", errs[0])
	}
	return writeFile(cfg.OpenAPI.Output, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
