package descriptor

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Marshal encodes a descriptor tree as JSON. References stay references; the
// units they name are encoded separately by whoever owns the pass.
func Marshal(d *Descriptor, indent bool) ([]byte, error) {
	var opts []json.Options
	if indent {
		opts = append(opts, jsontext.WithIndent("  "))
	}
	data, err := json.Marshal(d, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "encoding descriptor")
	}
	return data, nil
}

// Unmarshal decodes a descriptor tree encoded by Marshal.
func Unmarshal(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, "decoding descriptor")
	}
	return &d, nil
}

// String renders the descriptor in a compact type-expression notation, e.g.
// `{name: string; tags?: string[]}`. References render as `@<unit>`.
func (d *Descriptor) String() string {
	var sb strings.Builder
	d.write(&sb)
	return sb.String()
}

func (d *Descriptor) write(sb *strings.Builder) {
	if d == nil {
		sb.WriteString("<nil>")
		return
	}
	switch d.Kind {
	case KindPrimitive:
		sb.WriteString(string(d.Primitive))
	case KindLiteral:
		sb.WriteString(d.Literal.String())
	case KindUnspecified:
		sb.WriteString("any")
	case KindRef:
		sb.WriteString("@")
		sb.WriteString(d.Ref)
	case KindArray:
		// Unions and intersections already render parenthesized.
		d.Element.write(sb)
		sb.WriteString("[]")
	case KindTuple:
		sb.WriteString("[")
		for i, e := range d.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.write(sb)
		}
		sb.WriteString("]")
	case KindObject:
		if d.Class != "" {
			sb.WriteString("class ")
			sb.WriteString(d.Class)
			return
		}
		sb.WriteString("{")
		for i, p := range d.Properties {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(p.Accessor.String())
			if p.Optional {
				sb.WriteString("?")
			}
			sb.WriteString(": ")
			p.Type.write(sb)
		}
		if d.Index != nil {
			if len(d.Properties) > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString("[key: string]: ")
			d.Index.write(sb)
		}
		sb.WriteString("}")
	case KindUnion, KindIntersection:
		sep := " | "
		if d.Kind == KindIntersection {
			sep = " & "
		}
		sb.WriteString("(")
		for i, m := range d.Members {
			if i > 0 {
				sb.WriteString(sep)
			}
			m.write(sb)
		}
		sb.WriteString(")")
	default:
		sb.WriteString("<")
		sb.WriteString(string(d.Kind))
		sb.WriteString(">")
	}
}
