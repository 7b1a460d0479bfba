// Package descriptor defines the Type Descriptor: the canonical, kind-tagged
// tree a resolved type is described as before any check is synthesized from
// it. A descriptor says what shape a type has; it never says how to check it.
package descriptor

// Descriptor describes one type. Kind selects which payload fields are
// meaningful; the others stay zero. Descriptors are immutable once built and
// may be shared between trees.
type Descriptor struct {
	// Kind identifies the shape of the type.
	Kind Kind `json:"kind"`

	// Name is the type's diagnostic name (e.g. "User", "string[]").
	Name string `json:"name,omitempty"`

	// Unit names the check unit this descriptor defines. Set on descriptors
	// registered in a pass's memo table.
	Unit string `json:"unit,omitempty"`

	// Ref names the check unit this descriptor stands in for.
	// Only set when Kind == KindRef.
	Ref string `json:"ref,omitempty"`

	// Primitive is the typeof class to match.
	// Only set when Kind == KindPrimitive.
	Primitive Primitive `json:"primitive,omitempty"`

	// Literal holds the exact value to match.
	// Only set when Kind == KindLiteral.
	Literal *Literal `json:"literal,omitempty"`

	// Element is the element type of an array.
	// Only set when Kind == KindArray.
	Element *Descriptor `json:"element,omitempty"`

	// Elements are the element types of a tuple, in order. An empty tuple
	// has no elements.
	// Only set when Kind == KindTuple.
	Elements []*Descriptor `json:"elements,omitempty"`

	// Class is the nominal class tag of an object. When set, the object is
	// checked by class identity and Properties is empty.
	Class string `json:"class,omitempty"`

	// Properties are the declared properties of a structural object, in
	// schema order.
	Properties []Property `json:"properties,omitempty"`

	// Index is the value type of a string index signature.
	Index *Descriptor `json:"index,omitempty"`

	// Members are the union or intersection members, in schema order.
	Members []*Descriptor `json:"members,omitempty"`
}

// Kind is the shape classification of a descriptor.
type Kind string

const (
	KindPrimitive    Kind = "primitive"
	KindLiteral      Kind = "literal"
	KindArray        Kind = "array"
	KindTuple        Kind = "tuple"
	KindObject       Kind = "object"
	KindUnion        Kind = "union"
	KindIntersection Kind = "intersection"
	KindUnspecified  Kind = "unspecified"
	KindRef          Kind = "ref" // reference to a named check unit
)

// IsComposite reports whether descriptors of kind k have child descriptors.
func (k Kind) IsComposite() bool {
	switch k {
	case KindArray, KindTuple, KindObject, KindUnion, KindIntersection:
		return true
	}
	return false
}

// Primitive is a typeof class a primitive descriptor matches.
type Primitive string

const (
	PrimitiveString   Primitive = "string"
	PrimitiveNumber   Primitive = "number"
	PrimitiveBoolean  Primitive = "boolean"
	PrimitiveFunction Primitive = "function"
)

// Property is one declared property of a structural object.
type Property struct {
	Accessor Accessor    `json:"accessor"`
	Type     *Descriptor `json:"type"`
	// Optional properties accept a missing (undefined) value as well as a
	// value matching Type.
	Optional bool `json:"optional,omitzero"`
}

// Accessor identifies how a property is read. Computed keys carry the key
// expression verbatim; it is evaluated when a value is checked, never while
// describing.
type Accessor struct {
	Name string `json:"name,omitempty"`
	Expr string `json:"expr,omitempty"`
}

// Computed reports whether the accessor is a computed key expression.
func (a Accessor) Computed() bool { return a.Expr != "" }

func (a Accessor) String() string {
	if a.Computed() {
		return "[" + a.Expr + "]"
	}
	return a.Name
}

// PrimitiveOf returns a primitive descriptor.
func PrimitiveOf(p Primitive) *Descriptor {
	return &Descriptor{Kind: KindPrimitive, Name: string(p), Primitive: p}
}

// LiteralOf returns a literal descriptor for v.
func LiteralOf(v any) *Descriptor {
	lit := NewLiteral(v)
	return &Descriptor{Kind: KindLiteral, Name: lit.String(), Literal: lit}
}

// ArrayOf returns an array descriptor.
func ArrayOf(elem *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindArray, Element: elem}
}

// TupleOf returns a tuple descriptor. A call without elements describes the
// empty tuple.
func TupleOf(elems ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindTuple, Elements: elems}
}

// ObjectOf returns a structural object descriptor.
func ObjectOf(props ...Property) *Descriptor {
	return &Descriptor{Kind: KindObject, Properties: props}
}

// ClassOf returns a nominal object descriptor checked by class identity.
func ClassOf(class string) *Descriptor {
	return &Descriptor{Kind: KindObject, Name: class, Class: class}
}

// UnionOf returns a union descriptor.
func UnionOf(members ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindUnion, Members: members}
}

// IntersectionOf returns an intersection descriptor.
func IntersectionOf(members ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindIntersection, Members: members}
}

// Unspecified returns the descriptor of a type-erased slot.
func Unspecified() *Descriptor {
	return &Descriptor{Kind: KindUnspecified}
}

// RefTo returns a reference to the named check unit.
func RefTo(unit, name string) *Descriptor {
	return &Descriptor{Kind: KindRef, Ref: unit, Name: name}
}

// Prop returns a required property read by plain name.
func Prop(name string, t *Descriptor) Property {
	return Property{Accessor: Accessor{Name: name}, Type: t}
}

// OptionalProp returns an optional property read by plain name.
func OptionalProp(name string, t *Descriptor) Property {
	return Property{Accessor: Accessor{Name: name}, Type: t, Optional: true}
}
