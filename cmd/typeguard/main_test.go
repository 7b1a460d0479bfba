package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tsgonest/typeguard/internal/codegen"
	"github.com/tsgonest/typeguard/internal/config"
	"github.com/tsgonest/typeguard/internal/openapi"
)

const treeDoc = `
types:
  Tree:
    object:
      value: number
      children: Tree[]
  User:
    object:
      id: string
      role?:
        union: [{literal: admin}, {literal: member}]
  Box:
    param: T
`

// execute runs the CLI in dir with fresh flag values and returns stdout and
// stderr.
func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	current = app{}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--dir", dir, "--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "typeguard "+version+"\n", out)
}

func TestDescribe(t *testing.T) {
	dir := project(t, map[string]string{"types.yaml": treeDoc})

	out, _, err := execute(t, dir, "describe", "Tree", "--units")
	require.NoError(t, err)
	assert.Contains(t, out, "Tree = {value: number; children: @__0[]}  (__0)")
	assert.Contains(t, out, "__1 Tree[] = @__0[]")
}

func TestDescribeJSON(t *testing.T) {
	dir := project(t, map[string]string{"types.yaml": treeDoc})

	out, _, err := execute(t, dir, "describe", "--json", "User")
	require.NoError(t, err)
	var got describeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]string{"User": "__0"}, got.Roots)
	assert.Empty(t, got.Units)
	assert.Empty(t, got.Diagnostics)
}

func TestDescribeJSONDiagnostics(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml":     treeDoc,
		"typeguard.yaml": "types:\n  skip_unsupported: true\n",
	})

	out, _, err := execute(t, dir, "describe", "--json")
	require.NoError(t, err)
	var got describeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got.Roots, "Tree")
	assert.NotContains(t, got.Roots, "Box")
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, "warning", got.Diagnostics[0].Severity)
	assert.Equal(t, "type-skipped", got.Diagnostics[0].Category)
	assert.Contains(t, got.Diagnostics[0].Hint, "generic")
}

func TestConfigWarningsAreDiagnostics(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml":     treeDoc,
		"typeguard.yaml": "emit:\n  output: dist/guards.cjs\n",
	})

	_, stderr, err := execute(t, dir, "describe", "Tree")
	require.NoError(t, err)
	assert.Contains(t, stderr, "typeguard.yaml - warning: [config-invalid] emit: module is esm")
	assert.Contains(t, stderr, "hint: set emit.module to cjs")

	_, stderr, err = execute(t, dir, "--quiet", "describe", "Tree")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "config-invalid")

	_, stderr, err = execute(t, dir, "--strict", "describe", "Tree")
	require.Error(t, err)
	assert.Contains(t, stderr, "error: [config-invalid]")
	assert.Contains(t, err.Error(), "invalid config")
}

func TestDescribeReportsUnsupported(t *testing.T) {
	dir := project(t, map[string]string{"types.yaml": treeDoc})

	_, stderr, err := execute(t, dir, "describe")
	require.Error(t, err)
	assert.Contains(t, stderr, "[type-unsupported]")
	assert.Contains(t, stderr, "generic")

	// Selecting around the generic type succeeds.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "typeguard.yaml"), []byte("types:\n  exclude: [Box]\n"), 0o644))
	_, _, err = execute(t, dir, "describe")
	require.NoError(t, err)
}

func TestCheck(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml": treeDoc,
		"good.json":  `{"value": 1, "children": [{"value": 2, "children": []}]}`,
		"bad.json":   `{"value": 1, "children": [{"value": "2", "children": []}]}`,
		"stream.json": `{"id": "a"}
{"id": "b", "role": "admin"}
{"id": "c", "role": "root"}`,
		"user.yaml": "id: x\nrole: member\n---\nid: 3\n",
	})

	out, _, err := execute(t, dir, "check", "Tree", filepath.Join(dir, "good.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "ok    ")

	out, _, err = execute(t, dir, "check", "Tree", filepath.Join(dir, "good.json"), filepath.Join(dir, "bad.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errCheckFailed))
	assert.Contains(t, out, "FAIL  "+filepath.Join(dir, "bad.json")+": not a Tree")

	out, _, err = execute(t, dir, "check", "User", filepath.Join(dir, "stream.json"))
	require.Error(t, err)
	assert.Contains(t, out, "stream.json#1")
	assert.Contains(t, out, "FAIL  "+filepath.Join(dir, "stream.json")+"#2")

	out, _, err = execute(t, dir, "check", "User", filepath.Join(dir, "user.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "ok    "+filepath.Join(dir, "user.yaml")+"#0")
	assert.Contains(t, out, "FAIL  "+filepath.Join(dir, "user.yaml")+"#1")
}

func TestCheckAll(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml":     treeDoc,
		"typeguard.yaml": "types:\n  exclude: [Box]\n",
		"values.json": `{"value": 1, "children": []}
{"id": "a"}
42`,
	})

	out, _, err := execute(t, dir, "check", "--all", "--jobs", "1", filepath.Join(dir, "values.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errCheckFailed))
	file := filepath.Join(dir, "values.json")
	assert.Contains(t, out, "ok    "+file+"#0: Tree\n")
	assert.Contains(t, out, "ok    "+file+"#1: User\n")
	assert.Contains(t, out, "FAIL  "+file+"#2: matches none of 2 types")

	// An unsupported type among the selected ones fails the run.
	require.NoError(t, os.Remove(filepath.Join(dir, "typeguard.yaml")))
	_, _, err = execute(t, dir, "check", "--all", file)
	require.Error(t, err)
	assert.False(t, errors.Is(err, errCheckFailed))
}

func TestCheckYAMLNumericKeys(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml": "types:\n  Scores:\n    object:\n      \"[key: string]\": number\n",
		"good.yaml":  "1: 10\n2: 20\n",
		"bad.yaml":   "1: ten\n",
	})

	_, _, err := execute(t, dir, "check", "Scores", filepath.Join(dir, "good.yaml"))
	require.NoError(t, err)
	out, _, err := execute(t, dir, "check", "Scores", filepath.Join(dir, "bad.yaml"))
	require.Error(t, err)
	assert.Contains(t, out, "FAIL  "+filepath.Join(dir, "bad.yaml"))
}

func TestCheckUnknownType(t *testing.T) {
	dir := project(t, map[string]string{"types.yaml": treeDoc})

	_, _, err := execute(t, dir, "check", "Nope")
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "Tree")
}

func TestEmit(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml":     treeDoc,
		"typeguard.yaml": "types:\n  skip_unsupported: true\n",
	})

	_, stderr, err := execute(t, dir, "emit")
	require.NoError(t, err)
	assert.Contains(t, stderr, "warning: [type-skipped]")
	assert.Contains(t, stderr, "generic")

	src, err := os.ReadFile(filepath.Join(dir, "dist", "guards.js"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "const __typeCheckerMap__ = {")
	assert.Contains(t, string(src), "export function isTree(value)")
	assert.Contains(t, string(src), "export function isUser(value)")
	assert.NotContains(t, string(src), "isBox")

	dts, err := os.ReadFile(filepath.Join(dir, "dist", "guards.d.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(dts), "export interface Tree {")
	assert.Contains(t, string(dts), "export declare function isUser(value: unknown): value is User;")

	manifest, err := os.ReadFile(filepath.Join(dir, "dist", "guards.manifest.json"))
	require.NoError(t, err)
	var m codegen.Manifest
	require.NoError(t, json.Unmarshal(manifest, &m))
	assert.Equal(t, codegen.ManifestEntry{File: "./guards.js", Fn: "isTree", Unit: "__0"}, m.Validators["Tree"])

	_, err = os.Stat(filepath.Join(dir, ".typeguard", "cache.json"))
	require.NoError(t, err)
}

func TestEmitUsesCache(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml":     treeDoc,
		"typeguard.yaml": "types:\n  include: [Tree]\n",
	})
	output := filepath.Join(dir, "dist", "guards.js")

	_, _, err := execute(t, dir, "emit")
	require.NoError(t, err)

	// An untouched output proves the second emit was skipped.
	require.NoError(t, os.WriteFile(output, []byte("// stale\n"), 0o644))
	_, _, err = execute(t, dir, "emit")
	require.NoError(t, err)
	src, _ := os.ReadFile(output)
	assert.Equal(t, "// stale\n", string(src))

	_, _, err = execute(t, dir, "emit", "--force")
	require.NoError(t, err)
	src, _ = os.ReadFile(output)
	assert.Contains(t, string(src), "isTree")
}

func TestEmitForceDropsCache(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml":     treeDoc,
		"typeguard.yaml": "types:\n  include: [Tree]\n",
	})
	cache := filepath.Join(dir, ".typeguard", "cache.json")

	_, _, err := execute(t, dir, "emit")
	require.NoError(t, err)
	require.FileExists(t, cache)

	// A forced emit that fails leaves no cache behind.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "typeguard.yaml"), []byte("types:\n  include: [Tree, Box]\n"), 0o644))
	_, _, err = execute(t, dir, "emit", "--force")
	require.Error(t, err)
	assert.NoFileExists(t, cache)
}

func TestEmitCJS(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml":     treeDoc,
		"typeguard.yaml": "types:\n  include: [User]\nemit:\n  cache: \"\"\n",
	})

	_, _, err := execute(t, dir, "emit", "--module", "cjs", "--output", filepath.Join(dir, "lib", "guards.cjs"))
	require.NoError(t, err)
	src, err := os.ReadFile(filepath.Join(dir, "lib", "guards.cjs"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "module.exports = { isUser };")
	assert.NotContains(t, string(src), "export function")
}

func TestEmitGoSource(t *testing.T) {
	dir := project(t, map[string]string{
		"go.mod": "module example.com/app\n\ngo 1.22\n",
		"models/models.go": `package models

type Status string

const (
	Active  Status = "active"
	Blocked Status = "blocked"
)

type Account struct {
	ID      string   ` + "`json:\"id\"`" + `
	Status  Status   ` + "`json:\"status\"`" + `
	Parent  *Account ` + "`json:\"parent,omitempty\"`" + `
}
`,
		"typeguard.yaml": "schema:\n  source: go\n  path: .\n  patterns: [./models]\n",
	})

	_, _, err := execute(t, dir, "emit")
	require.NoError(t, err)
	src, err := os.ReadFile(filepath.Join(dir, "dist", "guards.js"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "export function isAccount(value)")
	assert.Contains(t, string(src), `"blocked"`)
}

func TestNewExecRunner(t *testing.T) {
	def := config.DefaultConfig()
	cfg := &def
	assert.Nil(t, newExecRunner(cfg, zap.NewNop()))

	cfg.Watch.Exec = "  true  "
	r := newExecRunner(cfg, zap.NewNop())
	require.NotNil(t, r)
	require.NoError(t, r.Start())
	r.Wait()
	assert.False(t, r.Running())
}

func TestEmitOpenAPI(t *testing.T) {
	dir := project(t, map[string]string{
		"types.yaml":     treeDoc,
		"typeguard.yaml": "types:\n  include: [Tree, User]\nopenapi:\n  output: dist/openapi.json\n  title: Trees\n",
	})

	_, _, err := execute(t, dir, "emit")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "dist", "openapi.json"))
	require.NoError(t, err)
	errs, err := openapi.ValidateJSON(data)
	require.NoError(t, err)
	assert.Empty(t, errs)

	var doc openapi.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Trees", doc.Info.Title)
	assert.Contains(t, doc.Components.Schemas, "Tree")
	assert.Contains(t, doc.Components.Schemas, "User")
	assert.Equal(t, []string{"id"}, doc.Components.Schemas["User"].Required)
}
