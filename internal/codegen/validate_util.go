package codegen

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tsgonest/typeguard/internal/descriptor"
)

// jsLiteral renders a literal value as a JavaScript expression.
func jsLiteral(lit *descriptor.Literal) string {
	switch v := lit.Value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		switch {
		case math.IsNaN(v):
			return "NaN"
		case math.IsInf(v, 1):
			return "Infinity"
		case math.IsInf(v, -1):
			return "-Infinity"
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return jsString(v)
	}
	return "undefined"
}

// jsString returns s as a double-quoted JavaScript string literal. JSON
// strings are JavaScript strings once U+2028 and U+2029 are escaped.
func jsString(s string) string {
	b, err := json.Marshal(s, jsontext.EscapeForJS(true), jsontext.AllowInvalidUTF8(true))
	if err != nil {
		return strconv.Quote(s)
	}
	return string(b)
}

// isJSIdentifier reports whether s is a valid ASCII JavaScript identifier.
func isJSIdentifier(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$') {
				return false
			}
		} else {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '$') {
				return false
			}
		}
	}
	return true
}

// jsPropAccess returns a JavaScript property access expression. It uses dot
// notation for valid identifiers (`obj.foo`) and bracket notation for names
// that are not valid identifiers (`obj["antall ansatte"]`).
// The special name `__proto__` always uses bracket notation.
func jsPropAccess(accessor, propName string) string {
	if propName == "__proto__" {
		return accessor + `["__proto__"]`
	}
	if isJSIdentifier(propName) {
		return accessor + "." + propName
	}
	return accessor + "[" + jsString(propName) + "]"
}

// jsAccessor reads a descriptor property. Computed keys are emitted verbatim
// inside brackets and evaluated by the runtime.
func jsAccessor(accessor string, acc descriptor.Accessor) string {
	if acc.Computed() {
		return accessor + "[" + acc.Expr + "]"
	}
	return jsPropAccess(accessor, acc.Name)
}

// jsClassRef returns an expression for a global class constructor.
func jsClassRef(name string) string {
	if isJSIdentifier(name) || isDottedPath(name) {
		return name
	}
	return "globalThis[" + jsString(name) + "]"
}

func isDottedPath(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if !isJSIdentifier(p) {
			return false
		}
	}
	return true
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// predicateName derives the exported predicate name for a root type, e.g.
// "User" -> "isUser", "api.user_v2" -> "isApiUser_v2".
func predicateName(typeName string) string {
	var sb strings.Builder
	sb.WriteString("is")
	for _, word := range strings.FieldsFunc(typeName, func(r rune) bool {
		return !(r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	}) {
		sb.WriteString(titleCaser.String(word))
	}
	if sb.Len() == 2 {
		sb.WriteString("Type")
	}
	return sb.String()
}
