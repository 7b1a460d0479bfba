package schema

import (
	"fmt"
	"strings"

	"github.com/tsgonest/typeguard/internal/jsvalue"
)

// Node is the in-memory Type implementation. Nodes are built with the
// constructors below and then mutated only to close cycles (AddProperty,
// SetElement) while a graph is being assembled.
type Node struct {
	name     string
	flags    Flags
	literal  any
	class    string
	element  *Node
	elements []*Node
	members  []*Node
	props    []Property
	index    *Node
}

var _ Type = (*Node)(nil)

// New returns a bare node with the given flags. Use it for shapes the
// constructors do not cover.
func New(name string, flags Flags) *Node {
	return &Node{name: name, flags: flags}
}

func String() *Node   { return New("string", FlagString) }
func Number() *Node   { return New("number", FlagNumber) }
func Boolean() *Node  { return New("boolean", FlagBoolean) }
func Any() *Node      { return New("any", FlagAny) }
func Null() *Node     { return &Node{name: "null", flags: FlagNull, literal: nil} }
func Function() *Node { return New("Function", FlagCallable|FlagObject) }

// Undefined returns the undefined type.
func Undefined() *Node {
	return &Node{name: "undefined", flags: FlagUndefined, literal: jsvalue.Undefined}
}

// Literal returns a literal type for a string, number or bool value.
func Literal(v any) *Node {
	switch val := v.(type) {
	case bool:
		return &Node{name: fmt.Sprint(val), flags: FlagBooleanLiteral, literal: val}
	case string:
		return &Node{name: fmt.Sprintf("%q", val), flags: FlagLiteral, literal: val}
	case nil:
		return Null()
	case jsvalue.UndefinedType:
		return Undefined()
	}
	if n, ok := jsvalue.Number(v); ok {
		return &Node{name: fmt.Sprint(n), flags: FlagLiteral, literal: n}
	}
	return &Node{name: fmt.Sprint(v), flags: FlagLiteral, literal: v}
}

// Array returns an array type. elem may be nil and set later with SetElement.
func Array(elem *Node) *Node {
	return &Node{flags: FlagArray | FlagObject, element: elem}
}

// Tuple returns a fixed-length tuple type.
func Tuple(elems ...*Node) *Node {
	return &Node{flags: FlagTuple | FlagObject, elements: elems}
}

// Union returns a union type.
func Union(members ...*Node) *Node {
	return &Node{flags: FlagUnion, members: members}
}

// Intersection returns an intersection type.
func Intersection(members ...*Node) *Node {
	return &Node{flags: FlagIntersection, members: members}
}

// Object returns a structural object type. An empty name makes it anonymous.
func Object(name string) *Node {
	return &Node{name: name, flags: FlagObject}
}

// Class returns an instance type of the named class.
func Class(name string) *Node {
	return &Node{name: name, flags: FlagClass | FlagObject, class: name}
}

// TypeParameter returns an unresolved generic type parameter.
func TypeParameter(name string) *Node {
	return New(name, FlagTypeParameter)
}

// Named gives n a diagnostic name and returns it.
func (n *Node) Named(name string) *Node {
	n.name = name
	return n
}

// AddProperty appends a plain-named property and returns n.
func (n *Node) AddProperty(name string, t *Node, optional bool) *Node {
	n.props = append(n.props, Property{Name: name, Type: asType(t), Optional: optional})
	return n
}

// AddComputedProperty appends a property whose key is the expression expr.
func (n *Node) AddComputedProperty(expr string, t *Node, optional bool) *Node {
	n.props = append(n.props, Property{Computed: expr, Type: asType(t), Optional: optional})
	return n
}

// SetIndex sets the string index value type and returns n.
func (n *Node) SetIndex(t *Node) *Node {
	n.index = t
	return n
}

// SetElement sets the array element type and returns n.
func (n *Node) SetElement(t *Node) *Node {
	n.element = t
	return n
}

// AddMember appends a union or intersection member and returns n.
func (n *Node) AddMember(t *Node) *Node {
	n.members = append(n.members, t)
	return n
}

// AddElement appends a tuple element and returns n.
func (n *Node) AddElement(t *Node) *Node {
	n.elements = append(n.elements, t)
	return n
}

// AddFlags sets extra shape facts and returns n.
func (n *Node) AddFlags(f Flags) *Node {
	n.flags |= f
	return n
}

func (n *Node) Flags() Flags      { return n.flags }
func (n *Node) Literal() any      { return n.literal }
func (n *Node) ClassName() string { return n.class }

func (n *Node) Element() Type {
	if n.element == nil {
		return nil
	}
	return n.element
}

func (n *Node) StringIndex() Type {
	if n.index == nil {
		return nil
	}
	return n.index
}

func (n *Node) Elements() []Type { return toTypes(n.elements) }
func (n *Node) Members() []Type  { return toTypes(n.members) }

func (n *Node) Properties() []Property {
	return n.props
}

// asType keeps a nil *Node from becoming a non-nil Type.
func asType(n *Node) Type {
	if n == nil {
		return nil
	}
	return n
}

func toTypes(nodes []*Node) []Type {
	if len(nodes) == 0 {
		return nil
	}
	types := make([]Type, len(nodes))
	for i, node := range nodes {
		types[i] = node
	}
	return types
}

// String returns the node's name, or a structural rendering for anonymous
// nodes. Named nodes stop the rendering, so cyclic graphs render finitely.
func (n *Node) String() string {
	return n.render(0)
}

const maxRenderDepth = 4

func (n *Node) render(depth int) string {
	if n == nil {
		return "<nil>"
	}
	if n.name != "" {
		return n.name
	}
	if depth >= maxRenderDepth {
		return "..."
	}
	switch {
	case n.flags.Any(FlagArray):
		if n.element == nil {
			return "Array"
		}
		return n.element.render(depth+1) + "[]"
	case n.flags.Any(FlagTuple):
		return "[" + joinRendered(n.elements, ", ", depth) + "]"
	case n.flags.Any(FlagUnion):
		return joinRendered(n.members, " | ", depth)
	case n.flags.Any(FlagIntersection):
		return joinRendered(n.members, " & ", depth)
	case n.flags.Any(FlagObject):
		parts := make([]string, 0, len(n.props)+1)
		for _, p := range n.props {
			key := p.Name
			if p.Computed != "" {
				key = "[" + p.Computed + "]"
			}
			if p.Optional {
				key += "?"
			}
			pt := "<nil>"
			if node, ok := p.Type.(*Node); ok {
				pt = node.render(depth + 1)
			} else if p.Type != nil {
				pt = p.Type.String()
			}
			parts = append(parts, key+": "+pt)
		}
		if n.index != nil {
			parts = append(parts, "[key: string]: "+n.index.render(depth+1))
		}
		return "{ " + strings.Join(parts, "; ") + " }"
	}
	return n.flags.String()
}

func joinRendered(nodes []*Node, sep string, depth int) string {
	parts := make([]string, len(nodes))
	for i, node := range nodes {
		parts[i] = node.render(depth + 1)
	}
	return strings.Join(parts, sep)
}
