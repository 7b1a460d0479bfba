package codegen

import (
	"fmt"
	"strings"

	"github.com/tsgonest/typeguard/internal/descriptor"
)

// checkerMapName is the object the generated unit methods live on.
const checkerMapName = "__typeCheckerMap__"

// isCtx carries the state of one unit body being generated.
type isCtx struct {
	// self is the unit whose body is being generated. Its descriptor is
	// expanded inline; every other unit is called by name.
	self string
}

// unitCall returns the call through the checker map for a named unit.
func unitCall(unit, accessor string) string {
	return fmt.Sprintf("%s.%s(%s)", checkerMapName, unit, accessor)
}

// generateIsExpr returns a JS boolean expression that checks if the value at
// `accessor` matches d. Composes with && for objects, || for unions.
func generateIsExpr(accessor string, d *descriptor.Descriptor, depth int, ctx *isCtx) string {
	if d.Kind == descriptor.KindRef {
		return unitCall(d.Ref, accessor)
	}
	if d.Unit != "" && d.Unit != ctx.self {
		return unitCall(d.Unit, accessor)
	}
	return generateIsExprInner(accessor, d, depth, ctx)
}

func generateIsExprInner(accessor string, d *descriptor.Descriptor, depth int, ctx *isCtx) string {
	switch d.Kind {
	case descriptor.KindPrimitive:
		return fmt.Sprintf("typeof %s === %q", accessor, string(d.Primitive))

	case descriptor.KindLiteral:
		return fmt.Sprintf("%s === %s", accessor, jsLiteral(d.Literal))

	case descriptor.KindUnspecified:
		return "true"

	case descriptor.KindArray:
		elemVar := fmt.Sprintf("_v%d", depth)
		elemExpr := generateIsExpr(elemVar, d.Element, depth+1, ctx)
		return fmt.Sprintf("(Array.isArray(%s) && %s.every(%s => %s))", accessor, accessor, elemVar, elemExpr)

	case descriptor.KindTuple:
		parts := []string{
			fmt.Sprintf("Array.isArray(%s)", accessor),
			fmt.Sprintf("%s.length === %d", accessor, len(d.Elements)),
		}
		for i, elem := range d.Elements {
			parts = append(parts, generateIsExpr(fmt.Sprintf("%s[%d]", accessor, i), elem, depth+1, ctx))
		}
		return "(" + strings.Join(parts, " && ") + ")"

	case descriptor.KindObject:
		return generateIsObjectExpr(accessor, d, depth, ctx)

	case descriptor.KindUnion:
		return joinMembers(accessor, d.Members, " || ", "false", depth, ctx)

	case descriptor.KindIntersection:
		return joinMembers(accessor, d.Members, " && ", "true", depth, ctx)
	}
	return "false"
}

func joinMembers(accessor string, members []*descriptor.Descriptor, sep, empty string, depth int, ctx *isCtx) string {
	if len(members) == 0 {
		return empty
	}
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = generateIsExpr(accessor, m, depth+1, ctx)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func generateIsObjectExpr(accessor string, d *descriptor.Descriptor, depth int, ctx *isCtx) string {
	parts := []string{fmt.Sprintf("typeof %s === \"object\" && %s !== null", accessor, accessor)}
	if d.Class != "" {
		parts = append(parts, fmt.Sprintf("%s instanceof %s", accessor, jsClassRef(d.Class)))
		return "(" + strings.Join(parts, " && ") + ")"
	}
	for _, prop := range d.Properties {
		propAccessor := jsAccessor(accessor, prop.Accessor)
		check := generateIsExpr(propAccessor, prop.Type, depth+1, ctx)
		if prop.Optional {
			check = fmt.Sprintf("(%s === undefined || %s)", propAccessor, check)
		}
		parts = append(parts, check)
	}
	if d.Index != nil {
		keyVar := fmt.Sprintf("_k%d", depth)
		valueExpr := generateIsExpr(fmt.Sprintf("%s[%s]", accessor, keyVar), d.Index, depth+1, ctx)
		parts = append(parts, fmt.Sprintf("Object.keys(%s).every(%s => %s)", accessor, keyVar, valueExpr))
	}
	return "(" + strings.Join(parts, " && ") + ")"
}
