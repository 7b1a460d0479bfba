package main

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/tsgonest/typeguard/internal/analyzer"
	"github.com/tsgonest/typeguard/internal/config"
	"github.com/tsgonest/typeguard/internal/jsvalue"
	"github.com/tsgonest/typeguard/internal/schema"
	"github.com/tsgonest/typeguard/internal/schema/gotypes"
)

// typeSource is a loaded set of named types.
type typeSource interface {
	Names() []string
	Lookup(name string) (*schema.Node, error)
}

// schemaInput is everything loaded from the configured schema source.
type schemaInput struct {
	types typeSource
	realm *jsvalue.Realm
	// file is what diagnostics are reported against.
	file string
	// inputs are the files the types were read from, for the build cache.
	inputs []string
}

func loadSchema(ctx context.Context, cfg *config.Config, log *zap.Logger) (*schemaInput, error) {
	switch cfg.Schema.Source {
	case config.SourceGo:
		graph, err := gotypes.Load(ctx, cfg.Schema.Path, cfg.Schema.Patterns...)
		if err != nil {
			return nil, err
		}
		inputs, err := goSources(cfg.Schema.Path)
		if err != nil {
			return nil, err
		}
		log.Debug("loaded go packages",
			zap.Strings("patterns", cfg.Schema.Patterns),
			zap.Int("types", len(graph.Names())),
			zap.Int("files", len(inputs)))
		return &schemaInput{types: graph, realm: jsvalue.NewRealm(), file: cfg.Schema.Path, inputs: inputs}, nil
	}

	doc, err := schema.LoadDocument(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded schema document", zap.String("file", cfg.Schema.Path), zap.Int("types", len(doc.Names())))
	return &schemaInput{types: doc, realm: doc.Realm(), file: cfg.Schema.Path, inputs: []string{cfg.Schema.Path}}, nil
}

// goSources lists the non-test Go files under dir, skipping testdata, vendor
// and hidden directories the go tool ignores too.
func goSources(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (name == "testdata" || name == "vendor" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing Go sources in %s", dir)
	}
	return files, nil
}

// selectRoots resolves the types to compile: the named types when given,
// otherwise every type the config's include and exclude globs select.
func selectRoots(in *schemaInput, cfg *config.Config, names []string) ([]string, error) {
	if len(names) == 0 {
		names = analyzer.SelectTypes(in.types.Names(), cfg.Types.Include, cfg.Types.Exclude)
		if len(names) == 0 {
			return nil, errors.WithHint(errors.Newf("no types selected from %s", in.file),
				"check types.include and types.exclude")
		}
		return names, nil
	}
	for _, name := range names {
		if _, err := in.types.Lookup(name); err != nil {
			return nil, err
		}
	}
	return names, nil
}
