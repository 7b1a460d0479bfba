package descriptor

import (
	"math"
	"reflect"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"

	"github.com/tsgonest/typeguard/internal/jsvalue"
)

// Literal is the exact value a literal descriptor matches: null (nil),
// jsvalue.Undefined, a bool, a float64 or a string.
type Literal struct {
	Value any
}

// NewLiteral normalizes v into a literal value. Every Go numeric kind becomes
// a float64 and named string or bool types lose their names.
func NewLiteral(v any) *Literal {
	switch {
	case jsvalue.IsUndefined(v):
		return &Literal{Value: jsvalue.Undefined}
	case jsvalue.IsNull(v):
		return &Literal{Value: nil}
	}
	if n, ok := jsvalue.Number(v); ok {
		return &Literal{Value: n}
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.String:
		return &Literal{Value: rv.String()}
	case reflect.Bool:
		return &Literal{Value: rv.Bool()}
	}
	return &Literal{Value: v}
}

// IsUndefined reports whether the literal is undefined.
func (l *Literal) IsUndefined() bool { return jsvalue.IsUndefined(l.Value) }

// IsNull reports whether the literal is null.
func (l *Literal) IsNull() bool { return l.Value == nil }

// String renders the literal the way it would be written in source.
func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case jsvalue.UndefinedType:
		return "undefined"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return formatNumber(v)
	case string:
		return strconv.Quote(v)
	}
	return "unknown"
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

type literalJSON struct {
	Value     any  `json:"value"`
	Undefined bool `json:"undefined,omitzero"`
}

// MarshalJSON encodes the literal as {"value": v}, or {"undefined": true}
// since JSON has no undefined.
func (l Literal) MarshalJSON() ([]byte, error) {
	if l.IsUndefined() {
		return []byte(`{"undefined":true}`), nil
	}
	if f, ok := l.Value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil, errors.Newf("literal %s has no JSON representation", formatNumber(f))
	}
	return json.Marshal(literalJSON{Value: l.Value})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (l *Literal) UnmarshalJSON(data []byte) error {
	var raw literalJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decoding literal")
	}
	if raw.Undefined {
		l.Value = jsvalue.Undefined
		return nil
	}
	*l = *NewLiteral(raw.Value)
	return nil
}
