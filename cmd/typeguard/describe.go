package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/tsgonest/typeguard/internal/descriptor"
	"github.com/tsgonest/typeguard/internal/diagnostic"
	"github.com/tsgonest/typeguard/internal/guard"
)

var (
	describeJSON  bool
	describeUnits bool
)

var describeCmd = &cobra.Command{
	Use:   "describe [type...]",
	Short: "Print the type descriptors of the selected types",
	Long: `Describe the selected types and print their descriptors.

Without arguments, every type selected by types.include and types.exclude is
described. All types share one pass, so a type reached from several roots is
described once and referenced by its unit name (@__N) elsewhere.

Examples:
  typeguard describe                 # every selected type
  typeguard describe User Tree       # specific types
  typeguard describe --units         # also list every unit of the pass
  typeguard describe --json User     # descriptor trees as JSON`,
	RunE: runDescribe,
}

func init() {
	describeCmd.Flags().BoolVar(&describeJSON, "json", false, "Print descriptors as JSON")
	describeCmd.Flags().BoolVar(&describeUnits, "units", false, "Also print every unit registered in the pass")
}

// describeOutput is the JSON form of describe.
type describeOutput struct {
	Roots       map[string]string                 `json:"roots"`
	Units       map[string]*descriptor.Descriptor `json:"units,omitempty"`
	Diagnostics []diagnosticOutput                `json:"diagnostics,omitempty"`
}

type diagnosticOutput struct {
	Severity string `json:"severity"`
	Category string `json:"category"`
	File     string `json:"file,omitempty"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, log := current.cfg, current.log
	in, err := loadSchema(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	roots, err := selectRoots(in, cfg, args)
	if err != nil {
		return err
	}

	pass := guard.NewPass(guard.WithLogger(log), guard.WithRealm(in.realm))
	diags := diagnostic.NewCollector(cfg.Diagnostics.Strict, cfg.Diagnostics.Quiet)
	out := describeOutput{Roots: make(map[string]string)}
	w := cmd.OutOrStdout()

	for _, name := range roots {
		node, err := in.types.Lookup(name)
		if err != nil {
			return err
		}
		d, err := pass.Describe(node)
		if err != nil {
			diags.Report(err, in.file, cfg.Types.SkipUnsupported)
			continue
		}
		out.Roots[name] = d.Unit
		if !describeJSON {
			fmt.Fprintf(w, "%s = %s  (%s)\n", name, d, d.Unit)
		}
	}

	if describeUnits {
		out.Units = make(map[string]*descriptor.Descriptor)
		for _, u := range pass.Units() {
			out.Units[u.Name] = u.Descriptor()
			if !describeJSON {
				fmt.Fprintf(w, "  %s %s = %s\n", u.Name, u.TypeName, u.Descriptor())
			}
		}
	}

	if describeJSON {
		for _, d := range diags.Diagnostics() {
			out.Diagnostics = append(out.Diagnostics, diagnosticOutput{
				Severity: d.Severity.String(),
				Category: string(d.Category),
				File:     d.File,
				Message:  d.Message,
				Hint:     d.Hint,
			})
		}
		data, err := json.Marshal(out, json.Deterministic(true), jsontext.WithIndent("  "))
		if err != nil {
			return errors.Wrap(err, "encoding descriptors")
		}
		fmt.Fprintln(w, string(data))
	}

	fmt.Fprint(cmd.ErrOrStderr(), diags.FormatAll())
	if diags.HasErrors() {
		return errors.Newf("describe failed: %s", diags.Summary())
	}
	return nil
}
