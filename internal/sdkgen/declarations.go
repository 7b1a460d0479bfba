// Package sdkgen generates the TypeScript declarations shipped next to a
// checker map, so typed callers get a type predicate per exported guard.
package sdkgen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tsgonest/typeguard/internal/codegen"
	"github.com/tsgonest/typeguard/internal/openapi"
)

// Declarations renders a .d.ts file for the predicates in entries. g must
// hold the validators the checker map was emitted from. Root types are
// exported; the units they reach are declared module-private.
func Declarations(entries []codegen.Entry, g *openapi.Generator) string {
	schemas := g.Schemas()

	// Component name -> TypeScript name, unique after sanitizing.
	components := make([]string, 0, len(schemas))
	for name := range schemas {
		components = append(components, name)
	}
	slices.Sort(components)
	names := make(map[string]string, len(components))
	used := make(map[string]bool, len(components))
	for _, c := range components {
		ts := tsTypeName(c)
		for i := 2; used[ts]; i++ {
			ts = fmt.Sprintf("%s_%d", tsTypeName(c), i)
		}
		names[c], used[ts] = ts, true
	}

	var roots []string
	exported := make(map[string]bool)
	for _, e := range entries {
		c := g.Component(e.Unit)
		if _, ok := schemas[c]; ok && !exported[c] {
			exported[c] = true
			roots = append(roots, c)
		}
	}

	var sb strings.Builder
	sb.WriteString("// Code generated by typeguard. DO NOT EDIT.\n\n")
	for _, c := range roots {
		sb.WriteString(GenerateInterface(names[c], schemas[c], names, true))
	}
	for _, c := range components {
		if !exported[c] {
			sb.WriteString(GenerateInterface(names[c], schemas[c], names, false))
		}
	}
	if len(entries) > 0 {
		sb.WriteByte('\n')
	}
	for _, e := range entries {
		ts, ok := names[g.Component(e.Unit)]
		if !ok {
			ts = "unknown"
		}
		fmt.Fprintf(&sb, "export declare function %s(value: unknown): value is %s;\n", e.Fn, ts)
	}
	return sb.String()
}
