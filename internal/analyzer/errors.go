package analyzer

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/tsgonest/typeguard/internal/schema"
)

// Error kinds raised while describing a type. Match them with errors.Is.
var (
	ErrUnsupportedSchemaShape = errors.New("unsupported schema shape")
	ErrMissingElementType     = errors.New("missing element type")
)

// SchemaError attributes a describe failure to the offending type and the
// root type that was being described when it was reached.
type SchemaError struct {
	Kind  error
	Type  string
	Root  string
	Flags schema.Flags
}

func (e *SchemaError) Error() string {
	if e.Root == "" || e.Root == e.Type {
		return fmt.Sprintf("%v: %s", e.Kind, e.Type)
	}
	return fmt.Sprintf("%v: %s (describing %s)", e.Kind, e.Type, e.Root)
}

func (e *SchemaError) Unwrap() error { return e.Kind }

func unsupported(t schema.Type, root string) error {
	name, flags := "<nil>", schema.Flags(0)
	if t != nil {
		name, flags = t.String(), t.Flags()
	}
	err := error(&SchemaError{Kind: ErrUnsupportedSchemaShape, Type: name, Root: root, Flags: flags})
	switch {
	case flags.Any(schema.FlagTypeParameter):
		return errors.WithHint(err, "unresolved generic parameters cannot be checked at runtime; instantiate the generic type first")
	case flags.Any(schema.FlagUnion | schema.FlagIntersection):
		return errors.WithHint(err, "unions and intersections need at least two members")
	}
	return errors.WithHintf(err, "no shape matches flags %s", flags)
}

func missingElement(t schema.Type, root string) error {
	err := &SchemaError{Kind: ErrMissingElementType, Type: t.String(), Root: root, Flags: t.Flags()}
	return errors.WithHint(err, "declare the element type of the array")
}
