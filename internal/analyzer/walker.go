// Package analyzer classifies resolved type nodes and describes them as Type
// Descriptor trees.
package analyzer

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/tsgonest/typeguard/internal/descriptor"
	"github.com/tsgonest/typeguard/internal/jsvalue"
	"github.com/tsgonest/typeguard/internal/memo"
	"github.com/tsgonest/typeguard/internal/schema"
)

// Walker builds Type Descriptors from a resolved type graph. Composite nodes
// and every requested root are registered in the memo table on first entry;
// entering a registered node again yields a reference to its unit, which is
// what makes self-referential types terminate.
type Walker struct {
	table *memo.Table
	log   *zap.Logger
	// root is the diagnostic name of the root being described.
	root string
}

// NewWalker creates a Walker that registers units in table. A nil logger
// disables logging.
func NewWalker(table *memo.Table, log *zap.Logger) *Walker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Walker{table: table, log: log}
}

// Table returns the memo table the walker registers units in.
func (w *Walker) Table() *memo.Table {
	return w.table
}

// Describe returns the descriptor of root. Describing the same root again
// returns the descriptor built the first time.
func (w *Walker) Describe(root schema.Type) (*descriptor.Descriptor, error) {
	u, err := w.DescribeUnit(root)
	if err != nil {
		return nil, err
	}
	return u.Descriptor(), nil
}

// DescribeUnit describes root and returns the unit it is registered under.
// On failure, every unit registered while describing root is dropped.
func (w *Walker) DescribeUnit(root schema.Type) (*memo.Unit, error) {
	if root == nil {
		return nil, unsupported(nil, "")
	}
	if u, ok := w.table.Lookup(root); ok {
		if !u.Defined() {
			return nil, errors.AssertionFailedf("root %s requested while it is being described", root)
		}
		return u, nil
	}

	w.root = root.String()
	defer func() { w.root = "" }()

	kind, err := classify(root, w.root)
	if err != nil {
		return nil, err
	}
	return w.table.GetOrCreate(root, root.String(), func(u *memo.Unit) (*descriptor.Descriptor, error) {
		return w.define(u, root, kind)
	})
}

func (w *Walker) walk(t schema.Type) (*descriptor.Descriptor, error) {
	if t == nil {
		return nil, unsupported(nil, w.root)
	}
	if u, ok := w.table.Lookup(t); ok {
		return descriptor.RefTo(u.Name, u.TypeName), nil
	}

	kind, err := classify(t, w.root)
	if err != nil {
		return nil, err
	}
	if !kind.IsComposite() {
		return w.build(t, kind)
	}

	u, err := w.table.GetOrCreate(t, t.String(), func(u *memo.Unit) (*descriptor.Descriptor, error) {
		return w.define(u, t, kind)
	})
	if err != nil {
		return nil, err
	}
	return u.Descriptor(), nil
}

func (w *Walker) define(u *memo.Unit, t schema.Type, kind descriptor.Kind) (*descriptor.Descriptor, error) {
	w.log.Debug("describe",
		zap.String("type", t.String()),
		zap.Stringer("flags", t.Flags()),
		zap.String("kind", string(kind)),
		zap.String("unit", u.Name),
		zap.String("root", w.root),
	)
	d, err := w.build(t, kind)
	if err != nil {
		return nil, err
	}
	d.Unit = u.Name
	return d, nil
}

func (w *Walker) build(t schema.Type, kind descriptor.Kind) (*descriptor.Descriptor, error) {
	switch kind {
	case descriptor.KindPrimitive:
		return descriptor.PrimitiveOf(primitiveTag(t.Flags())), nil

	case descriptor.KindLiteral:
		return w.literal(t), nil

	case descriptor.KindUnspecified:
		return descriptor.Unspecified(), nil

	case descriptor.KindArray:
		elem := t.Element()
		if elem == nil {
			return nil, missingElement(t, w.root)
		}
		ed, err := w.walk(elem)
		if err != nil {
			return nil, err
		}
		d := descriptor.ArrayOf(ed)
		d.Name = t.String()
		return d, nil

	case descriptor.KindTuple:
		elems := t.Elements()
		d := descriptor.TupleOf()
		d.Name = t.String()
		for _, e := range elems {
			ed, err := w.walk(e)
			if err != nil {
				return nil, err
			}
			d.Elements = append(d.Elements, ed)
		}
		return d, nil

	case descriptor.KindObject:
		return w.object(t)

	case descriptor.KindUnion, descriptor.KindIntersection:
		d := &descriptor.Descriptor{Kind: kind, Name: t.String()}
		for _, m := range t.Members() {
			md, err := w.walk(m)
			if err != nil {
				return nil, err
			}
			d.Members = append(d.Members, md)
		}
		return d, nil
	}
	return nil, errors.AssertionFailedf("unhandled kind %q for %s", kind, t)
}

func (w *Walker) literal(t schema.Type) *descriptor.Descriptor {
	f := t.Flags()
	switch {
	case f.Any(schema.FlagNull):
		return descriptor.LiteralOf(nil)
	case f.Any(schema.FlagUndefined):
		return descriptor.LiteralOf(jsvalue.Undefined)
	}
	return descriptor.LiteralOf(t.Literal())
}

func (w *Walker) object(t schema.Type) (*descriptor.Descriptor, error) {
	if t.Flags().Any(schema.FlagClass) {
		class := t.ClassName()
		if class == "" {
			class = t.String()
		}
		return descriptor.ClassOf(class), nil
	}

	d := descriptor.ObjectOf()
	d.Name = t.String()
	for _, p := range t.Properties() {
		acc := descriptor.Accessor{Name: p.Name, Expr: p.Computed}
		if p.Type == nil {
			return nil, unsupported(propertyType{owner: t, accessor: acc}, w.root)
		}
		pd, err := w.walk(p.Type)
		if err != nil {
			return nil, err
		}
		d.Properties = append(d.Properties, descriptor.Property{Accessor: acc, Type: pd, Optional: p.Optional})
	}
	if idx := t.StringIndex(); idx != nil {
		id, err := w.walk(idx)
		if err != nil {
			return nil, err
		}
		d.Index = id
	}
	return d, nil
}

// propertyType names a property whose type is missing, for diagnostics.
type propertyType struct {
	schema.Type
	owner    schema.Type
	accessor descriptor.Accessor
}

func (p propertyType) String() string {
	return fmt.Sprintf("%s.%s", p.owner, p.accessor)
}

func (p propertyType) Flags() schema.Flags { return 0 }
