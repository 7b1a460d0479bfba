// Package openapi describes compiled validators as OpenAPI 3.1 schema
// components, one component per check unit.
package openapi

import (
	"math"
	"regexp"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/tsgonest/typeguard/internal/descriptor"
	"github.com/tsgonest/typeguard/internal/guard"
	"github.com/tsgonest/typeguard/internal/memo"
)

// SchemaOrBool represents a value that can be either a Schema object or a boolean.
// In OpenAPI 3.1, additionalProperties can be either a schema or false.
type SchemaOrBool struct {
	Schema *Schema
	Bool   *bool
}

// MarshalJSONTo implements json.MarshalerTo.
func (s SchemaOrBool) MarshalJSONTo(enc *jsontext.Encoder) error {
	if s.Bool != nil {
		return enc.WriteToken(jsontext.Bool(*s.Bool))
	}
	if s.Schema != nil {
		return json.MarshalEncode(enc, s.Schema)
	}
	return enc.WriteValue(jsontext.Value("{}"))
}

// UnmarshalJSONFrom implements json.UnmarshalerFrom.
func (s *SchemaOrBool) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	if k := dec.PeekKind(); k == 't' || k == 'f' {
		tok, err := dec.ReadToken()
		if err != nil {
			return err
		}
		b := tok.Bool()
		s.Bool, s.Schema = &b, nil
		return nil
	}
	s.Bool, s.Schema = nil, new(Schema)
	return json.UnmarshalDecode(dec, s.Schema)
}

// Schema represents a JSON Schema (OpenAPI 3.1 compatible).
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	PrefixItems []*Schema          `json:"prefixItems,omitempty"`
	MinItems    *int               `json:"minItems,omitempty"`
	MaxItems    *int               `json:"maxItems,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Const       any                `json:"const,omitzero"`
	AnyOf       []*Schema          `json:"anyOf,omitempty"`
	AllOf       []*Schema          `json:"allOf,omitempty"`
	Not         *Schema            `json:"not,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	Description string             `json:"description,omitempty"`

	AdditionalProperties *SchemaOrBool `json:"additionalProperties,omitempty"`

	// Class is the nominal class an object must be an instance of. JSON
	// Schema cannot express it, so it rides along as an extension.
	Class string `json:"x-typeguard-class,omitempty"`
	// Computed lists computed property keys, which are resolved at check time
	// and have no JSON Schema counterpart.
	Computed []string `json:"x-typeguard-computed,omitempty"`
}

// never matches any JSON value. Functions and undefined have no JSON form.
func never(description string) *Schema {
	return &Schema{Not: &Schema{}, Description: description}
}

const refPrefix = "#/components/schemas/"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// Generator converts the units of compiled validators into schema
// components. Every unit becomes one component and children that define or
// reference a unit become $refs, so recursive types stay finite. All
// validators added to one Generator must come from the same pass.
type Generator struct {
	names   map[string]string // unit name -> component name
	taken   map[string]bool
	units   []*memo.Unit
	schemas map[string]*Schema
}

// NewGenerator creates a new schema generator.
func NewGenerator() *Generator {
	return &Generator{
		names:   make(map[string]string),
		taken:   make(map[string]bool),
		schemas: make(map[string]*Schema),
	}
}

// Add registers the units of validators. Roots are named after their type;
// other units keep their type name when it is a usable, unclaimed component
// name and fall back to the unit name otherwise.
func (g *Generator) Add(validators ...*guard.Validator) {
	for _, v := range validators {
		g.name(v.Entry)
	}
	for _, v := range validators {
		for _, u := range v.Units {
			g.name(u)
		}
	}
}

func (g *Generator) name(u *memo.Unit) {
	if _, ok := g.names[u.Name]; ok {
		return
	}
	name := u.Name
	if identifier.MatchString(u.TypeName) && !g.taken[u.TypeName] {
		name = u.TypeName
	}
	g.names[u.Name] = name
	g.taken[name] = true
	g.units = append(g.units, u)
}

// Component returns the component name of the unit named unit.
func (g *Generator) Component(unit string) string {
	if name, ok := g.names[unit]; ok {
		return name
	}
	return unit
}

// Schemas converts every registered unit and returns the components, keyed
// by component name.
func (g *Generator) Schemas() map[string]*Schema {
	for _, u := range g.units {
		name := g.names[u.Name]
		if _, done := g.schemas[name]; done || !u.Defined() {
			continue
		}
		g.schemas[name] = g.convertType(u.Descriptor())
	}
	return g.schemas
}

// DescriptorToSchema converts a child descriptor. Descriptors bound to a
// unit become a $ref to the unit's component.
func (g *Generator) DescriptorToSchema(d *descriptor.Descriptor) *Schema {
	switch {
	case d == nil:
		return &Schema{}
	case d.Kind == descriptor.KindRef:
		return &Schema{Ref: refPrefix + g.Component(d.Ref)}
	case d.Unit != "":
		return &Schema{Ref: refPrefix + g.Component(d.Unit)}
	}
	return g.convertType(d)
}

// convertType handles the core type conversion.
func (g *Generator) convertType(d *descriptor.Descriptor) *Schema {
	switch d.Kind {
	case descriptor.KindPrimitive:
		return convertPrimitive(d.Primitive)
	case descriptor.KindLiteral:
		return convertLiteral(d.Literal)
	case descriptor.KindArray:
		return &Schema{Type: "array", Items: g.DescriptorToSchema(d.Element)}
	case descriptor.KindTuple:
		return g.convertTuple(d)
	case descriptor.KindObject:
		return g.convertObject(d)
	case descriptor.KindUnion:
		return g.convertUnion(d)
	case descriptor.KindIntersection:
		schema := &Schema{}
		for _, m := range d.Members {
			schema.AllOf = append(schema.AllOf, g.DescriptorToSchema(m))
		}
		return schema
	case descriptor.KindRef:
		return &Schema{Ref: refPrefix + g.Component(d.Ref)}
	}
	// unspecified accepts anything
	return &Schema{}
}

func convertPrimitive(p descriptor.Primitive) *Schema {
	switch p {
	case descriptor.PrimitiveString:
		return &Schema{Type: "string"}
	case descriptor.PrimitiveNumber:
		return &Schema{Type: "number"}
	case descriptor.PrimitiveBoolean:
		return &Schema{Type: "boolean"}
	}
	return never("function")
}

func convertLiteral(l *descriptor.Literal) *Schema {
	switch {
	case l == nil, l.IsUndefined():
		return never("undefined")
	case l.IsNull():
		return &Schema{Type: "null"}
	}
	if f, ok := l.Value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return never(l.String())
	}
	return &Schema{Const: l.Value}
}

// convertTuple converts a tuple type to JSON Schema using prefixItems.
func (g *Generator) convertTuple(d *descriptor.Descriptor) *Schema {
	n := len(d.Elements)
	schema := &Schema{Type: "array", MinItems: &n, MaxItems: &n}
	for _, elem := range d.Elements {
		schema.PrefixItems = append(schema.PrefixItems, g.DescriptorToSchema(elem))
	}
	return schema
}

// convertObject converts an object type to a JSON Schema with properties.
func (g *Generator) convertObject(d *descriptor.Descriptor) *Schema {
	schema := &Schema{Type: "object"}
	if d.Class != "" {
		schema.Class = d.Class
		return schema
	}

	for _, p := range d.Properties {
		if p.Accessor.Computed() {
			schema.Computed = append(schema.Computed, p.Accessor.Expr)
			continue
		}
		if schema.Properties == nil {
			schema.Properties = make(map[string]*Schema, len(d.Properties))
		}
		schema.Properties[p.Accessor.Name] = g.DescriptorToSchema(p.Type)
		if !p.Optional {
			schema.Required = append(schema.Required, p.Accessor.Name)
		}
	}

	// Index signatures
	if d.Index != nil {
		schema.AdditionalProperties = &SchemaOrBool{Schema: g.DescriptorToSchema(d.Index)}
	}
	return schema
}

// convertUnion converts a union type. Literal-only unions become an enum;
// undefined members are dropped since JSON has no undefined.
func (g *Generator) convertUnion(d *descriptor.Descriptor) *Schema {
	var members []*descriptor.Descriptor
	for _, m := range d.Members {
		if m.Kind == descriptor.KindLiteral && m.Literal != nil && m.Literal.IsUndefined() {
			continue
		}
		members = append(members, m)
	}

	var enum []any
	for _, m := range members {
		if m.Kind != descriptor.KindLiteral || m.Literal == nil || m.Unit != "" {
			enum = nil
			break
		}
		if f, ok := m.Literal.Value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			enum = nil
			break
		}
		enum = append(enum, m.Literal.Value)
	}

	switch {
	case len(members) == 0:
		return never("undefined")
	case len(enum) > 0:
		return &Schema{Enum: enum}
	case len(members) == 1:
		return g.DescriptorToSchema(members[0])
	}
	schema := &Schema{}
	for _, m := range members {
		schema.AnyOf = append(schema.AnyOf, g.DescriptorToSchema(m))
	}
	return schema
}
