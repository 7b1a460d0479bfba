package codegen

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/tsgonest/typeguard/internal/guard"
	"github.com/tsgonest/typeguard/internal/memo"
)

// Format selects the module system of the generated file.
type Format string

const (
	FormatESM Format = "esm"
	FormatCJS Format = "cjs"
)

// EmitOptions configures EmitCheckerMap.
type EmitOptions struct {
	// Format defaults to FormatESM.
	Format Format
}

// Entry is one exported predicate of a generated checker map.
type Entry struct {
	Type string
	Fn   string
	Unit string
}

// CheckerMap is a generated JavaScript file.
type CheckerMap struct {
	Source  string
	Entries []Entry
	// Units lists the emitted unit names in emission order.
	Units []string
}

// EmitCheckerMap generates a self-contained JavaScript module for validators
// compiled in pass. Every unit the validators reach becomes exactly one
// method of the checker map; units call each other through the map by name,
// which is how recursive types stay finite. Each validator gets an exported
// is<Type> predicate.
func EmitCheckerMap(pass *guard.Pass, validators []*guard.Validator, opts EmitOptions) (*CheckerMap, error) {
	if opts.Format == "" {
		opts.Format = FormatESM
	}
	if opts.Format != FormatESM && opts.Format != FormatCJS {
		return nil, errors.WithHint(errors.Newf("unknown module format %q", opts.Format), `use "esm" or "cjs"`)
	}

	inPass := make(map[*memo.Unit]bool)
	for _, u := range pass.Units() {
		inPass[u] = true
	}
	wanted := make(map[*memo.Unit]bool)
	for _, v := range validators {
		for _, u := range v.Units {
			if !inPass[u] {
				return nil, errors.Newf("unit %s of %s does not belong to this pass", u.Name, v.Root)
			}
			wanted[u] = true
		}
	}

	cm := &CheckerMap{}
	e := NewEmitter()
	e.Line("// Code generated by typeguard. DO NOT EDIT.")
	e.Blank()
	e.Block("const %s =", checkerMapName)
	for _, u := range pass.Units() {
		if !wanted[u] {
			continue
		}
		d := u.Descriptor()
		if d == nil {
			return nil, errors.AssertionFailedf("unit %s (%s) has no descriptor", u.Name, u.TypeName)
		}
		e.Line("// %s", singleLine(u.TypeName))
		e.Block("%s(value)", u.Name)
		e.Line("return %s;", generateIsExpr("value", d, 0, &isCtx{self: u.Name}))
		e.EndBlockSuffix(",")
		cm.Units = append(cm.Units, u.Name)
	}
	e.EndBlockSuffix(";")

	used := make(map[string]bool)
	seen := make(map[*memo.Unit]bool)
	for _, v := range validators {
		if seen[v.Entry] {
			continue
		}
		seen[v.Entry] = true

		fn := predicateName(v.Root)
		if used[fn] {
			fn += v.Entry.Name
		}
		used[fn] = true

		e.Blank()
		export := "export "
		if opts.Format == FormatCJS {
			export = ""
		}
		e.Block("%sfunction %s(value)", export, fn)
		e.Line("return %s;", unitCall(v.Entry.Name, "value"))
		e.EndBlock()
		cm.Entries = append(cm.Entries, Entry{Type: v.Root, Fn: fn, Unit: v.Entry.Name})
	}

	if opts.Format == FormatCJS {
		fns := make([]string, len(cm.Entries))
		for i, entry := range cm.Entries {
			fns[i] = entry.Fn
		}
		e.Blank()
		e.Line("module.exports = { %s };", strings.Join(fns, ", "))
	}

	cm.Source = e.String()
	return cm, nil
}

func singleLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ", "\u2028", " ", "\u2029", " ").Replace(s)
}
