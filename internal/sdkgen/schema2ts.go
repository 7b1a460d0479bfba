package sdkgen

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/tsgonest/typeguard/internal/openapi"
)

// SchemaToTS converts a schema to a TypeScript type string. names maps
// component names to declared TypeScript names.
func SchemaToTS(node *openapi.Schema, names map[string]string) string {
	if node == nil {
		return "unknown"
	}

	// Handle $ref
	if node.Ref != "" {
		component := strings.TrimPrefix(node.Ref, "#/components/schemas/")
		if name, ok := names[component]; ok {
			return name
		}
		return "unknown"
	}

	// not: {} matches nothing
	if node.Not != nil {
		return "never"
	}

	// Handle enum
	if len(node.Enum) > 0 {
		parts := make([]string, len(node.Enum))
		for i, v := range node.Enum {
			parts[i] = constToTS(v)
		}
		return strings.Join(parts, " | ")
	}

	// Handle const
	if node.Const != nil {
		return constToTS(node.Const)
	}

	// Handle composition
	if len(node.AnyOf) > 0 {
		return compositionToTS(node.AnyOf, " | ", names)
	}
	if len(node.AllOf) > 0 {
		return compositionToTS(node.AllOf, " & ", names)
	}

	switch node.Type {
	case "string":
		return "string"
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "null":
		return "null"
	case "array":
		if node.PrefixItems != nil || node.MaxItems != nil && *node.MaxItems == 0 {
			parts := make([]string, len(node.PrefixItems))
			for i, item := range node.PrefixItems {
				parts[i] = SchemaToTS(item, names)
			}
			return "[" + strings.Join(parts, ", ") + "]"
		}
		itemType := SchemaToTS(node.Items, names)
		// Composite item types need wrapping
		if strings.Contains(itemType, " | ") || strings.Contains(itemType, " & ") {
			return "(" + itemType + ")[]"
		}
		return itemType + "[]"
	case "object":
		if node.Class != "" {
			return "object"
		}
		var parts []string
		if len(node.Properties) > 0 {
			parts = append(parts, objectToInlineTS(node, names))
		}
		if ap := node.AdditionalProperties; ap != nil && ap.Schema != nil {
			parts = append(parts, "Record<string, "+SchemaToTS(ap.Schema, names)+">")
		}
		switch len(parts) {
		case 0:
			return "object"
		case 1:
			return parts[0]
		}
		return strings.Join(parts, " & ")
	default:
		return "unknown"
	}
}

func constToTS(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "unknown"
	}
	return string(data)
}

func compositionToTS(nodes []*openapi.Schema, sep string, names map[string]string) string {
	var parts []string
	hasNull := false
	for _, n := range nodes {
		ts := SchemaToTS(n, names)
		if ts == "null" && sep == " | " {
			hasNull = true
			continue
		}
		if strings.Contains(ts, " | ") || strings.Contains(ts, " & ") {
			ts = "(" + ts + ")"
		}
		parts = append(parts, ts)
	}
	result := strings.Join(parts, sep)
	if hasNull {
		if result == "" {
			return "null"
		}
		result += " | null"
	}
	return result
}

func sortedProperties(node *openapi.Schema) (names []string, required map[string]bool) {
	required = make(map[string]bool, len(node.Required))
	for _, r := range node.Required {
		required[r] = true
	}
	for name := range node.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, required
}

func objectToInlineTS(node *openapi.Schema, names map[string]string) string {
	props, required := sortedProperties(node)
	fields := make([]string, len(props))
	for i, name := range props {
		opt := "?"
		if required[name] {
			opt = ""
		}
		fields[i] = fmt.Sprintf("%s%s: %s", tsPropertyKey(name), opt, SchemaToTS(node.Properties[name], names))
	}
	return "{ " + strings.Join(fields, "; ") + " }"
}

// GenerateInterface emits a TypeScript declaration for a named schema:
// an interface for plain objects, a type alias otherwise.
func GenerateInterface(name string, node *openapi.Schema, names map[string]string, export bool) string {
	prefix := ""
	if export {
		prefix = "export "
	}
	if node == nil {
		return fmt.Sprintf("%stype %s = unknown;\n", prefix, name)
	}

	var sb strings.Builder
	if node.Description != "" {
		sb.WriteString(buildSchemaJSDoc(node.Description))
	}

	// Non-object schemas: emit as type alias
	if node.Type != "object" || len(node.Properties) == 0 || node.AdditionalProperties != nil || node.Class != "" {
		fmt.Fprintf(&sb, "%stype %s = %s;\n", prefix, name, SchemaToTS(node, names))
		return sb.String()
	}

	props, required := sortedProperties(node)
	fmt.Fprintf(&sb, "%sinterface %s {\n", prefix, name)
	for _, propName := range props {
		prop := node.Properties[propName]
		opt := "?"
		if required[propName] {
			opt = ""
		}
		if prop.Description != "" {
			sb.WriteString(buildPropertyJSDoc(prop.Description))
		}
		fmt.Fprintf(&sb, "  %s%s: %s;\n", tsPropertyKey(propName), opt, SchemaToTS(prop, names))
	}
	sb.WriteString("}\n")
	return sb.String()
}

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

// tsPropertyKey returns a properly quoted TypeScript property key.
// Valid identifiers are returned as-is, everything else is quoted.
func tsPropertyKey(name string) string {
	if len(name) == 0 {
		return `""`
	}
	for i, r := range name {
		if (i == 0 && !isIdentStart(r)) || !isIdentPart(r) {
			return constToTS(name)
		}
	}
	return name
}

// tsTypeName turns a component name into a TypeScript identifier, e.g.
// "models.User" becomes "models_User".
func tsTypeName(component string) string {
	var sb strings.Builder
	for i, r := range component {
		switch {
		case i == 0 && !isIdentStart(r):
			sb.WriteByte('_')
			if isIdentPart(r) {
				sb.WriteRune(r)
			}
		case isIdentPart(r):
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}

// buildSchemaJSDoc generates a JSDoc comment for a schema type or interface.
func buildSchemaJSDoc(description string) string {
	lines := strings.Split(strings.TrimSpace(description), "\n")
	if len(lines) == 1 {
		return fmt.Sprintf("/** %s */\n", lines[0])
	}
	var sb strings.Builder
	sb.WriteString("/**\n")
	for _, line := range lines {
		if line == "" {
			sb.WriteString(" *\n")
		} else {
			fmt.Fprintf(&sb, " * %s\n", line)
		}
	}
	sb.WriteString(" */\n")
	return sb.String()
}

// buildPropertyJSDoc generates a JSDoc comment for a property within an interface.
func buildPropertyJSDoc(description string) string {
	lines := strings.Split(strings.TrimSpace(description), "\n")
	if len(lines) == 1 {
		return fmt.Sprintf("  /** %s */\n", lines[0])
	}
	var sb strings.Builder
	sb.WriteString("  /**\n")
	for _, line := range lines {
		if line == "" {
			sb.WriteString("   *\n")
		} else {
			fmt.Fprintf(&sb, "   * %s\n", line)
		}
	}
	sb.WriteString("   */\n")
	return sb.String()
}
