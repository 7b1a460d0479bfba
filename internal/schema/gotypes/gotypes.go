// Package gotypes builds schema graphs from Go packages, describing the JSON
// shape encoding/json gives each exported type.
package gotypes

import (
	"context"
	"go/constant"
	"go/token"
	"go/types"
	"reflect"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"

	"github.com/tsgonest/typeguard/internal/schema"
)

// special maps well-known named types to the shape they marshal to.
var special = map[string]func() *schema.Node{
	"time.Time":                  schema.String,
	"time.Duration":              schema.Number,
	"encoding/json.RawMessage":   schema.Any,
	"encoding/json.Number":       schema.Number,
	"math/big.Int":               schema.Number,
	"database/sql.NullString":    func() *schema.Node { return schema.Union(schema.String(), schema.Null()) },
	"database/sql.NullInt64":     func() *schema.Node { return schema.Union(schema.Number(), schema.Null()) },
	"database/sql.NullInt32":     func() *schema.Node { return schema.Union(schema.Number(), schema.Null()) },
	"database/sql.NullFloat64":   func() *schema.Node { return schema.Union(schema.Number(), schema.Null()) },
	"database/sql.NullBool":      func() *schema.Node { return schema.Union(schema.Boolean(), schema.Null()) },
	"database/sql.NullTime":      func() *schema.Node { return schema.Union(schema.String(), schema.Null()) },
	"github.com/google/uuid.UUID": schema.String,
}

// Graph is the schema of the exported named types of one or more packages.
type Graph struct {
	named map[string]*schema.Node
	order []string
}

// Names returns the exported type names in package then source-name order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

// Lookup returns the node of an exported type.
func (g *Graph) Lookup(name string) (*schema.Node, error) {
	n, ok := g.named[name]
	if !ok {
		return nil, errors.WithHint(errors.Newf("type %q not found", name),
			"available types: "+strings.Join(g.order, ", "))
	}
	return n, nil
}

// Load type-checks the packages matched by patterns, relative to dir, and
// builds their graph. With more than one package, names are qualified with
// the package name ("models.User").
func Load(ctx context.Context, dir string, patterns ...string) (*Graph, error) {
	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrapf(err, "loading packages %v", patterns)
	}
	if len(pkgs) == 0 {
		return nil, errors.Newf("no packages found for %v", patterns)
	}
	var errs []error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = append(errs, e)
		}
	})
	if len(errs) > 0 {
		return nil, errors.Wrapf(errors.Join(errs...), "type-checking %v", patterns)
	}

	typed := make([]*types.Package, len(pkgs))
	for i, p := range pkgs {
		typed[i] = p.Types
	}
	return FromPackages(typed...), nil
}

// FromPackages builds the graph of already type-checked packages.
func FromPackages(pkgs ...*types.Package) *Graph {
	g := &Graph{named: make(map[string]*schema.Node)}
	c := &converter{
		nodes: make(map[types.Type]*schema.Node),
		enums: make(map[*types.TypeName][]constant.Value),
	}
	qualify := len(pkgs) > 1
	for _, pkg := range pkgs {
		c.collectEnums(pkg)
	}
	for _, pkg := range pkgs {
		c.pkg = pkg
		scope := pkg.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !tn.Exported() {
				continue
			}
			key := name
			if qualify {
				key = pkg.Name() + "." + name
			}
			g.named[key] = c.convert(tn.Type())
			g.order = append(g.order, key)
		}
	}
	return g
}

type converter struct {
	pkg   *types.Package
	nodes map[types.Type]*schema.Node
	enums map[*types.TypeName][]constant.Value
}

// collectEnums gathers the package-level constants of each named basic
// type, in declaration order.
func (c *converter) collectEnums(pkg *types.Package) {
	scope := pkg.Scope()
	consts := make(map[*types.TypeName][]*types.Const)
	for _, name := range scope.Names() {
		k, ok := scope.Lookup(name).(*types.Const)
		if !ok {
			continue
		}
		named, ok := k.Type().(*types.Named)
		if !ok || named.Obj().Pkg() != pkg {
			continue
		}
		consts[named.Obj()] = append(consts[named.Obj()], k)
	}
	for tn, ks := range consts {
		slices.SortFunc(ks, func(a, b *types.Const) int { return int(a.Pos() - b.Pos()) })
		for _, k := range ks {
			c.enums[tn] = append(c.enums[tn], k.Val())
		}
	}
}

func (c *converter) typeName(t types.Type) string {
	return types.TypeString(t, types.RelativeTo(c.pkg))
}

func (c *converter) convert(t types.Type) *schema.Node {
	if n, ok := c.nodes[t]; ok {
		return n
	}
	switch t := t.(type) {
	case *types.Alias:
		return c.convert(types.Unalias(t))

	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() != nil {
			if mk, ok := special[obj.Pkg().Path()+"."+obj.Name()]; ok {
				n := mk().Named(c.typeName(t))
				c.nodes[t] = n
				return n
			}
		}
		if vals := c.enums[obj]; len(vals) >= 2 {
			n := schema.Union().Named(c.typeName(t))
			c.nodes[t] = n
			for _, v := range dedupe(vals) {
				n.AddMember(literal(v))
			}
			return n
		}
		if t.TypeParams().Len() > 0 && t.TypeArgs().Len() == 0 {
			return schema.TypeParameter(c.typeName(t))
		}
		return c.structural(t.Underlying(), t, c.typeName(t))
	}
	return c.structural(t, nil, "")
}

// structural converts an unnamed type. Composite nodes are registered under
// key before their children are converted, so recursive named types close
// into cycles.
func (c *converter) structural(u types.Type, key types.Type, name string) *schema.Node {
	register := func(n *schema.Node) *schema.Node {
		if name != "" {
			n.Named(name)
		}
		if key != nil {
			c.nodes[key] = n
		}
		return n
	}

	switch u := u.(type) {
	case *types.Basic:
		return register(basic(u))

	case *types.Pointer:
		n := register(schema.Union())
		n.AddMember(c.convert(u.Elem()))
		n.AddMember(schema.Null())
		return n

	case *types.Slice:
		if isByte(u.Elem()) {
			return register(schema.String())
		}
		n := register(schema.Array(nil))
		n.SetElement(c.convert(u.Elem()))
		return n

	case *types.Array:
		n := register(schema.Tuple())
		elem := c.convert(u.Elem())
		for range u.Len() {
			n.AddElement(elem)
		}
		return n

	case *types.Map:
		if !mapKeyOK(u.Key()) {
			return register(schema.New(u.String(), 0))
		}
		n := register(schema.Object(""))
		n.SetIndex(c.convert(u.Elem()))
		return n

	case *types.Struct:
		n := register(schema.Object(""))
		c.fields(n, u, key)
		return n

	case *types.Interface:
		return register(schema.Any())

	case *types.Signature:
		return register(schema.Function())

	case *types.TypeParam:
		return register(schema.TypeParameter(u.Obj().Name()))
	}
	// Channels, complex numbers and unsafe pointers have no JSON shape.
	if name == "" {
		name = u.String()
	}
	return register(schema.New(name, 0))
}

type field struct {
	name     string
	node     *schema.Node
	optional bool
	depth    int
	tagged   bool
}

// fields adds the JSON-visible fields of st to n. Fields of embedded structs
// without a JSON name are promoted as encoding/json does: the shallowest
// field of a name wins, and an untagged tie hides the name entirely.
func (c *converter) fields(n *schema.Node, st *types.Struct, self types.Type) {
	embedding := map[types.Type]bool{}
	if self != nil {
		embedding[self] = true
	}
	var all []field
	c.collect(st, 0, embedding, &all)

	byName := make(map[string][]field)
	var order []string
	for _, f := range all {
		if _, seen := byName[f.name]; !seen {
			order = append(order, f.name)
		}
		byName[f.name] = append(byName[f.name], f)
	}
	for _, name := range order {
		if f, ok := dominant(byName[name]); ok {
			n.AddProperty(f.name, f.node, f.optional)
		}
	}
}

// quotedKind reports whether the ",string" option applies to a field of type
// t, the way encoding/json decides it: only booleans, numbers and strings,
// optionally behind one unnamed pointer. ptr reports that pointer.
func quotedKind(t types.Type) (ptr, ok bool) {
	if p, isPtr := t.(*types.Pointer); isPtr {
		t, ptr = p.Elem(), true
	}
	b, isBasic := t.Underlying().(*types.Basic)
	if !isBasic {
		return false, false
	}
	return ptr, b.Info()&(types.IsBoolean|types.IsInteger|types.IsFloat|types.IsString) != 0
}

func (c *converter) collect(st *types.Struct, depth int, embedding map[types.Type]bool, out *[]field) {
	for i := range st.NumFields() {
		f := st.Field(i)
		tag := parseJSONTag(reflect.StructTag(st.Tag(i)).Get("json"))
		if tag.skip {
			continue
		}
		if f.Embedded() && tag.name == "" {
			ft := f.Type()
			if p, ok := ft.(*types.Pointer); ok {
				ft = p.Elem()
			}
			if inner, ok := ft.Underlying().(*types.Struct); ok {
				if !embedding[ft] {
					embedding[ft] = true
					c.collect(inner, depth+1, embedding, out)
					delete(embedding, ft)
				}
				continue
			}
		}
		if !f.Exported() {
			continue
		}
		name := tag.name
		if name == "" {
			name = f.Name()
		}
		var node *schema.Node
		if ptr, ok := quotedKind(f.Type()); tag.asString && ok {
			node = schema.String()
			if ptr {
				node = schema.Union(node, schema.Null())
			}
		} else {
			node = c.convert(f.Type())
		}
		_, isPtr := f.Type().(*types.Pointer)
		*out = append(*out, field{
			name:     name,
			node:     node,
			optional: tag.omit || isPtr,
			depth:    depth,
			tagged:   tag.name != "",
		})
	}
}

func dominant(fs []field) (field, bool) {
	minDepth := fs[0].depth
	for _, f := range fs[1:] {
		minDepth = min(minDepth, f.depth)
	}
	var top, tagged []field
	for _, f := range fs {
		if f.depth != minDepth {
			continue
		}
		top = append(top, f)
		if f.tagged {
			tagged = append(tagged, f)
		}
	}
	switch {
	case len(top) == 1:
		return top[0], true
	case len(tagged) == 1:
		return tagged[0], true
	}
	return field{}, false
}

type jsonTag struct {
	name     string
	skip     bool
	omit     bool
	asString bool
}

func parseJSONTag(tag string) jsonTag {
	if tag == "-" {
		return jsonTag{skip: true}
	}
	name, opts, _ := strings.Cut(tag, ",")
	t := jsonTag{name: name}
	for opt := range strings.SplitSeq(opts, ",") {
		switch opt {
		case "omitempty", "omitzero":
			t.omit = true
		case "string":
			t.asString = true
		}
	}
	return t
}

func basic(b *types.Basic) *schema.Node {
	info := b.Info()
	switch {
	case info&types.IsString != 0:
		return schema.String()
	case info&types.IsBoolean != 0:
		return schema.Boolean()
	case info&(types.IsInteger|types.IsFloat) != 0:
		return schema.Number()
	case b.Kind() == types.UntypedNil:
		return schema.Null()
	}
	return schema.New(b.Name(), 0)
}

func isByte(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Kind() == types.Byte
}

// mapKeyOK reports whether encoding/json can encode keys of type k as
// object keys.
func mapKeyOK(k types.Type) bool {
	b, ok := k.Underlying().(*types.Basic)
	if ok && b.Info()&(types.IsString|types.IsInteger) != 0 {
		return true
	}
	if named, ok := k.(*types.Named); ok {
		for i := range named.NumMethods() {
			if named.Method(i).Name() == "MarshalText" {
				return true
			}
		}
	}
	return false
}

func literal(v constant.Value) *schema.Node {
	switch v.Kind() {
	case constant.String:
		return schema.Literal(constant.StringVal(v))
	case constant.Bool:
		return schema.Literal(constant.BoolVal(v))
	case constant.Int, constant.Float:
		f, _ := constant.Float64Val(v)
		return schema.Literal(f)
	}
	return schema.New(v.String(), 0)
}

// dedupe drops repeated values, keeping the first occurrence. iota blocks
// with aliases ("Default = Medium") declare the same value twice.
func dedupe(vals []constant.Value) []constant.Value {
	var out []constant.Value
	for _, v := range vals {
		if !slices.ContainsFunc(out, func(o constant.Value) bool {
			return constant.Compare(v, token.EQL, o)
		}) {
			out = append(out, v)
		}
	}
	return out
}
