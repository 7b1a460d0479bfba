package analyzer

import (
	"github.com/tsgonest/typeguard/internal/descriptor"
	"github.com/tsgonest/typeguard/internal/schema"
)

const wideFlags = schema.FlagBoolean | schema.FlagNumber | schema.FlagString

// Classify decides the shape kind of one type node. The checks run in a
// fixed order because the flag categories overlap; the first match wins and
// the erased top type is tried last. A node nothing matches is an
// ErrUnsupportedSchemaShape error, never a silent unspecified.
func Classify(t schema.Type) (descriptor.Kind, error) {
	return classify(t, "")
}

func classify(t schema.Type, root string) (descriptor.Kind, error) {
	if t == nil {
		return "", unsupported(nil, root)
	}
	f := t.Flags()
	switch {
	case f.Any(schema.FlagArray):
		return descriptor.KindArray, nil
	case f.Any(schema.FlagClass):
		return descriptor.KindObject, nil
	case f.Any(schema.FlagLiteral | schema.FlagBooleanLiteral | schema.FlagNull | schema.FlagUndefined):
		return descriptor.KindLiteral, nil
	case exactlyOne(f & wideFlags):
		return descriptor.KindPrimitive, nil
	case f.Any(schema.FlagUnion) && len(t.Members()) >= 2:
		return descriptor.KindUnion, nil
	case f.Any(schema.FlagIntersection) && len(t.Members()) >= 2:
		return descriptor.KindIntersection, nil
	case f.Any(schema.FlagCallable):
		return descriptor.KindPrimitive, nil
	case f.Any(schema.FlagTuple):
		return descriptor.KindTuple, nil
	case f.Any(schema.FlagObject):
		return descriptor.KindObject, nil
	case f.Any(schema.FlagAny):
		return descriptor.KindUnspecified, nil
	}
	return "", unsupported(t, root)
}

func exactlyOne(f schema.Flags) bool {
	return f != 0 && f&(f-1) == 0
}

// primitiveTag returns the typeof class of a node classified as primitive.
func primitiveTag(f schema.Flags) descriptor.Primitive {
	switch f & wideFlags {
	case schema.FlagString:
		return descriptor.PrimitiveString
	case schema.FlagNumber:
		return descriptor.PrimitiveNumber
	case schema.FlagBoolean:
		return descriptor.PrimitiveBoolean
	}
	return descriptor.PrimitiveFunction
}
