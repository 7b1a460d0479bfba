// Package schema is the resolved type graph the describer consumes. A graph
// node exposes shape facts as Flags, its structural children and a
// diagnostic name; deciding what the facts add up to is the classifier's job.
//
// Node identity matters: the memo table keys on the Type values themselves,
// so two occurrences of the same declaration must be the same node.
package schema

import "strings"

// Flags are the shape facts a node carries. Several may be set at once; the
// classifier resolves overlaps by a fixed precedence.
type Flags uint32

const (
	FlagArray          Flags = 1 << iota // homogeneous array-like with an element type
	FlagClass                            // instance of a nominal class
	FlagLiteral                          // string or number literal
	FlagBooleanLiteral                   // true or false
	FlagNull
	FlagUndefined
	FlagBoolean
	FlagNumber
	FlagString
	FlagUnion
	FlagIntersection
	FlagCallable // has call signatures
	FlagTuple    // fixed-length heterogeneous array
	FlagObject   // structural object: properties and/or a string index
	FlagAny      // type-erased
	FlagTypeParameter
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagArray, "Array"},
	{FlagClass, "Class"},
	{FlagLiteral, "Literal"},
	{FlagBooleanLiteral, "BooleanLiteral"},
	{FlagNull, "Null"},
	{FlagUndefined, "Undefined"},
	{FlagBoolean, "Boolean"},
	{FlagNumber, "Number"},
	{FlagString, "String"},
	{FlagUnion, "Union"},
	{FlagIntersection, "Intersection"},
	{FlagCallable, "Callable"},
	{FlagTuple, "Tuple"},
	{FlagObject, "Object"},
	{FlagAny, "Any"},
	{FlagTypeParameter, "TypeParameter"},
}

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Any reports whether any bit of f2 is set.
func (f Flags) Any(f2 Flags) bool { return f&f2 != 0 }

// Names lists the set flags by name, in declaration order.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f Flags) String() string {
	if f == 0 {
		return "None"
	}
	return strings.Join(f.Names(), "|")
}

// Type is one node of a resolved type graph.
type Type interface {
	// String renders a human-readable name for diagnostics.
	String() string
	// Flags returns the node's shape facts.
	Flags() Flags
	// Element returns the element type of an array-like node, or nil.
	Element() Type
	// Elements returns the element types of a tuple, in order.
	Elements() []Type
	// Members returns union or intersection members, in order.
	Members() []Type
	// Properties returns the declared properties, in schema order.
	Properties() []Property
	// StringIndex returns the value type of a string index signature, or nil.
	StringIndex() Type
	// Literal returns the value of a literal node.
	Literal() any
	// ClassName returns the nominal class name of a class instance node.
	ClassName() string
}

// Property is a declared property of an object-like node.
type Property struct {
	// Name is the plain property name.
	Name string
	// Computed is the key expression of a computed property name, carried
	// verbatim. Empty for plain names.
	Computed string
	Type     Type
	Optional bool
}
