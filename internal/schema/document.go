package schema

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/tsgonest/typeguard/internal/jsvalue"
)

// Document is a schema declared in YAML (or JSON, which is valid YAML):
//
//	types:
//	  User:
//	    object:
//	      name: string
//	      age: number
//	      hobbies?: string[]
//	      "[key: string]": any
//	  Tree:
//	    object:
//	      children: Tree[]
//	classes:
//	  Admin: User      # class Admin extends User
//	keys:
//	  Symbol.tag: tag  # computed key [Symbol.tag] reads property "tag"
//
// A type expression is either a scalar (a builtin, a declared name, or
// either suffixed with "[]") or a single-key mapping: array, tuple, union,
// intersection, object, literal, class or param. Every declaration is one
// node, so references to it share identity and cycles are closed by
// reference.
type Document struct {
	types   map[string]*Node
	order   []string
	classes [][2]string
	keys    [][2]string
}

// LoadDocument reads and parses a schema document from path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading schema %q", path)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing schema %q", path)
	}
	return doc, nil
}

type documentFile struct {
	Types   yaml.Node `yaml:"types"`
	Classes yaml.Node `yaml:"classes"`
	Keys    yaml.Node `yaml:"keys"`
}

// ParseDocument parses a schema document.
func ParseDocument(data []byte) (*Document, error) {
	var file documentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "invalid YAML")
	}
	if file.Types.Kind != yaml.MappingNode {
		return nil, errors.WithHint(errors.New("schema has no types mapping"),
			"declare types under a top-level `types:` key")
	}

	l := &loader{
		decls:     make(map[string]*yaml.Node),
		nodes:     make(map[string]*Node),
		resolving: make(map[string]bool),
	}
	doc := &Document{types: l.nodes}
	for i := 0; i+1 < len(file.Types.Content); i += 2 {
		name := file.Types.Content[i].Value
		if _, dup := l.decls[name]; dup {
			return nil, errors.Newf("line %d: type %q declared twice", file.Types.Content[i].Line, name)
		}
		if isBuiltin(name) {
			return nil, errors.Newf("line %d: type name %q shadows a builtin", file.Types.Content[i].Line, name)
		}
		l.decls[name] = file.Types.Content[i+1]
		doc.order = append(doc.order, name)
	}
	for _, name := range doc.order {
		if _, err := l.declared(name); err != nil {
			return nil, err
		}
	}

	var err error
	if doc.classes, err = pairs(&file.Classes, "classes"); err != nil {
		return nil, err
	}
	if doc.keys, err = pairs(&file.Keys, "keys"); err != nil {
		return nil, err
	}
	return doc, nil
}

func pairs(n *yaml.Node, section string) ([][2]string, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errors.Newf("line %d: %s must be a mapping", n.Line, section)
	}
	var out [][2]string
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, errors.Newf("line %d: %s.%s must be a scalar", v.Line, section, k.Value)
		}
		out = append(out, [2]string{k.Value, v.Value})
	}
	return out, nil
}

// Names returns the declared type names in document order.
func (d *Document) Names() []string {
	return append([]string(nil), d.order...)
}

// Lookup returns the node declared under name.
func (d *Document) Lookup(name string) (*Node, error) {
	n, ok := d.types[name]
	if !ok {
		return nil, errors.WithHint(errors.Newf("type %q is not declared", name),
			"available types: "+strings.Join(d.order, ", "))
	}
	return n, nil
}

// Realm builds a runtime realm holding the document's classes and computed
// key bindings. Class parents must be declared before their children.
func (d *Document) Realm() *jsvalue.Realm {
	realm := jsvalue.NewRealm()
	for _, c := range d.classes {
		var parent *jsvalue.Class
		if c[1] != "" && c[1] != "~" {
			parent = realm.Class(c[1])
		}
		realm.Define(c[0], parent)
	}
	for _, k := range d.keys {
		realm.Bind(k[0], k[1])
	}
	return realm
}

type loader struct {
	decls     map[string]*yaml.Node
	nodes     map[string]*Node
	resolving map[string]bool
}

func (l *loader) declared(name string) (*Node, error) {
	if n, ok := l.nodes[name]; ok {
		return n, nil
	}
	expr, ok := l.decls[name]
	if !ok {
		return nil, errors.Newf("type %q is not declared", name)
	}
	if l.resolving[name] {
		// Only a chain made entirely of bare aliases is circular; anything
		// else registered its node before descending.
		if n, ok := l.aliased(name); ok {
			return n, nil
		}
		return nil, errors.Newf("line %d: type %q is a circular alias", expr.Line, name)
	}
	l.resolving[name] = true
	defer delete(l.resolving, name)

	n, err := l.build(expr, name)
	if err != nil {
		return nil, err
	}
	l.nodes[name] = n
	return n, nil
}

// aliased follows the bare aliases starting at name and returns the node of
// the first declaration along them that is already registered.
func (l *loader) aliased(name string) (*Node, bool) {
	seen := map[string]bool{}
	for !seen[name] {
		seen[name] = true
		if n, ok := l.nodes[name]; ok {
			return n, true
		}
		expr := l.decls[name]
		if expr == nil || expr.Kind != yaml.ScalarNode {
			return nil, false
		}
		next := strings.TrimSpace(expr.Value)
		if _, ok := l.decls[next]; !ok || builtin(next) != nil {
			return nil, false
		}
		name = next
	}
	return nil, false
}

// register names a freshly allocated declaration node and publishes it before
// its children are built, so self references resolve to it.
func (l *loader) register(n *Node, decl string) *Node {
	if decl != "" {
		n.Named(decl)
		l.nodes[decl] = n
	}
	return n
}

func (l *loader) build(expr *yaml.Node, decl string) (*Node, error) {
	switch expr.Kind {
	case yaml.ScalarNode:
		return l.scalar(expr, decl)
	case yaml.MappingNode:
		if len(expr.Content) != 2 {
			return nil, errors.Newf("line %d: a type expression mapping must have exactly one key", expr.Line)
		}
		return l.composite(expr.Content[0].Value, expr.Content[1], decl)
	}
	return nil, errors.Newf("line %d: unexpected type expression", expr.Line)
}

func (l *loader) scalar(expr *yaml.Node, decl string) (*Node, error) {
	text := strings.TrimSpace(expr.Value)
	if strings.HasSuffix(text, "[]") {
		n := l.register(Array(nil), decl)
		elem, err := l.scalar(&yaml.Node{Kind: yaml.ScalarNode, Value: strings.TrimSuffix(text, "[]"), Line: expr.Line}, "")
		if err != nil {
			return nil, err
		}
		n.SetElement(elem)
		return n, nil
	}
	if b := builtin(text); b != nil {
		return l.register(b, decl), nil
	}
	if _, ok := l.decls[text]; !ok {
		return nil, errors.Newf("line %d: unknown type %q", expr.Line, text)
	}
	return l.declared(text)
}

func (l *loader) composite(key string, val *yaml.Node, decl string) (*Node, error) {
	switch key {
	case "array":
		n := l.register(Array(nil), decl)
		elem, err := l.build(val, "")
		if err != nil {
			return nil, err
		}
		n.SetElement(elem)
		return n, nil

	case "tuple", "union", "intersection":
		var n *Node
		switch key {
		case "tuple":
			n = Tuple()
		case "union":
			n = Union()
		default:
			n = Intersection()
		}
		l.register(n, decl)
		if val.Kind != yaml.SequenceNode {
			return nil, errors.Newf("line %d: %s expects a sequence", val.Line, key)
		}
		for _, item := range val.Content {
			child, err := l.build(item, "")
			if err != nil {
				return nil, err
			}
			if key == "tuple" {
				n.AddElement(child)
			} else {
				n.AddMember(child)
			}
		}
		return n, nil

	case "object":
		n := l.register(Object(""), decl)
		if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
			return n, nil
		}
		if val.Kind != yaml.MappingNode {
			return nil, errors.Newf("line %d: object expects a mapping of properties", val.Line)
		}
		for i := 0; i+1 < len(val.Content); i += 2 {
			if err := l.property(n, val.Content[i], val.Content[i+1]); err != nil {
				return nil, err
			}
		}
		return n, nil

	case "literal":
		if val.Kind != yaml.ScalarNode {
			return nil, errors.Newf("line %d: literal expects a scalar", val.Line)
		}
		var v any
		if err := val.Decode(&v); err != nil {
			return nil, errors.Wrapf(err, "line %d: decoding literal", val.Line)
		}
		return l.register(Literal(v), decl), nil

	case "class":
		return l.register(Class(val.Value), decl), nil

	case "param":
		return l.register(TypeParameter(val.Value), decl), nil
	}
	return nil, errors.Newf("line %d: unknown type constructor %q", val.Line, key)
}

func (l *loader) property(obj *Node, keyNode, typeNode *yaml.Node) error {
	key := keyNode.Value
	t, err := l.build(typeNode, "")
	if err != nil {
		return err
	}
	if key == "[key: string]" {
		obj.SetIndex(t)
		return nil
	}
	optional := strings.HasSuffix(key, "?")
	key = strings.TrimSuffix(key, "?")
	if strings.HasPrefix(key, "[") && strings.HasSuffix(key, "]") {
		expr := strings.TrimSpace(key[1 : len(key)-1])
		if expr == "" {
			return errors.Newf("line %d: empty computed property key", keyNode.Line)
		}
		obj.AddComputedProperty(expr, t, optional)
		return nil
	}
	obj.AddProperty(key, t, optional)
	return nil
}

func isBuiltin(name string) bool {
	return builtin(name) != nil
}

func builtin(name string) *Node {
	switch name {
	case "string":
		return String()
	case "number":
		return Number()
	case "boolean":
		return Boolean()
	case "function", "Function":
		return Function()
	case "any", "unknown":
		return Any()
	case "null":
		return Null()
	case "undefined":
		return Undefined()
	case "true":
		return Literal(true)
	case "false":
		return Literal(false)
	}
	return nil
}
