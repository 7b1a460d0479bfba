package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tsgonest/typeguard/internal/guard"
	"github.com/tsgonest/typeguard/internal/schema"
)

// errCheckFailed is returned when at least one value does not conform. The
// per-value results are already printed, so main only sets the exit code.
var errCheckFailed = errors.New("check failed")

var (
	checkFormat string
	checkAll    bool
	checkJobs   int
)

var checkCmd = &cobra.Command{
	Use:   "check <type> [file...]",
	Short: "Validate JSON or YAML values against a type",
	Long: `Check values against the validator of a type.

Each file may hold a stream of JSON values or a stream of YAML documents; every
value is checked on its own. Without files, or with "-", values are read from
stdin. The format follows the file extension unless --format is given.

With --all there is no type argument: every type selected by types.include and
types.exclude is compiled, in parallel, and each value is reported with the
types it conforms to. A value conforming to none fails.

Examples:
  typeguard check User user.json
  typeguard check Order orders.jsonl
  cat tree.yaml | typeguard check Tree --format yaml
  typeguard check --all payload.json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if checkAll {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "", "Value format: json or yaml (default: by extension, json for stdin)")
	checkCmd.Flags().BoolVar(&checkAll, "all", false, "Check against every selected type instead of one")
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", 0, "With --all, compile at most this many types at once (default: GOMAXPROCS)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, log := current.cfg, current.log
	in, err := loadSchema(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}

	var names []string
	if checkAll {
		if names, err = selectRoots(in, cfg, nil); err != nil {
			return err
		}
	} else {
		names, args = args[:1], args[1:]
	}
	nodes := make([]schema.Type, len(names))
	for i, name := range names {
		node, err := in.types.Lookup(name)
		if err != nil {
			return err
		}
		nodes[i] = node
	}
	// Each root gets its own pass, so a failing root cannot leave units in
	// another root's table.
	opts := []guard.Option{guard.WithLogger(log), guard.WithRealm(in.realm)}
	if checkJobs > 0 {
		opts = append(opts, guard.WithConcurrency(checkJobs))
	}
	validators, err := guard.CompileAll(cmd.Context(), nodes, opts...)
	if err != nil {
		return err
	}
	for _, v := range validators {
		log.Debug("validator ready", zap.String("type", v.Root), zap.Int("units", len(v.Units)))
	}

	files := args
	if len(files) == 0 {
		files = []string{"-"}
	}

	w := cmd.OutOrStdout()
	failed := 0
	for _, file := range files {
		values, err := readValues(cmd.InOrStdin(), file, checkFormat)
		if err != nil {
			return err
		}
		for i, value := range values {
			label := file
			if len(values) > 1 {
				label = fmt.Sprintf("%s#%d", file, i)
			}
			var matched []string
			for j, v := range validators {
				if v.Check(value) {
					matched = append(matched, names[j])
				}
			}
			switch {
			case len(matched) == 0 && checkAll:
				failed++
				fmt.Fprintf(w, "FAIL  %s: matches none of %d types\n", label, len(names))
			case len(matched) == 0:
				failed++
				fmt.Fprintf(w, "FAIL  %s: not a %s\n", label, names[0])
			case checkAll:
				fmt.Fprintf(w, "ok    %s: %s\n", label, strings.Join(matched, ", "))
			default:
				fmt.Fprintf(w, "ok    %s\n", label)
			}
		}
	}
	if failed > 0 {
		return errCheckFailed
	}
	return nil
}

// readValues decodes every value in file ("-" is stdin).
func readValues(stdin io.Reader, file, format string) ([]any, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}

	if format == "" {
		switch strings.ToLower(filepath.Ext(file)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}

	switch format {
	case "json":
		return decodeJSON(data, file)
	case "yaml":
		return decodeYAML(data, file)
	}
	return nil, errors.Newf("unknown value format %q, must be json or yaml", format)
}

func decodeJSON(data []byte, file string) ([]any, error) {
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	var values []any
	for {
		var v any
		if err := json.UnmarshalDecode(dec, &v); err != nil {
			if errors.Is(err, io.EOF) {
				return values, nil
			}
			return nil, errors.Wrapf(err, "decoding %s", file)
		}
		values = append(values, v)
	}
}

func decodeYAML(data []byte, file string) ([]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var values []any
	for {
		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return values, nil
			}
			return nil, errors.Wrapf(err, "decoding %s", file)
		}
		values = append(values, v)
	}
}
