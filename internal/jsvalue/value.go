// Package jsvalue models the dynamic values that synthesized checks run against.
//
// Values follow the shape produced by decoding JSON into `any` (nil, bool,
// float64, string, []any, map[string]any), extended with the pieces a
// JavaScript runtime has and JSON lacks: Undefined, class instances and
// functions. Any Go numeric kind counts as a number, any slice or array as an
// array, and any map as a plain object. Map keys that are not strings are
// converted the way JavaScript converts property keys, so the map[any]any
// yaml.v3 decodes a mapping with numeric keys into exposes "1", "2.5" and so
// on.
package jsvalue

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
)

// UndefinedType is the type of Undefined.
type UndefinedType struct{}

func (UndefinedType) String() string { return "undefined" }

// Undefined is the JavaScript undefined value. Reading a missing property or
// an out-of-range index yields Undefined.
var Undefined = UndefinedType{}

// IsUndefined reports whether v is Undefined.
func IsUndefined(v any) bool {
	_, ok := v.(UndefinedType)
	return ok
}

// IsNull reports whether v is null: an untyped nil or a nil pointer, map,
// slice, channel or func.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// TypeOf returns the result of the JavaScript typeof operator for v.
func TypeOf(v any) string {
	switch v.(type) {
	case UndefinedType:
		return "undefined"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "number"
	case *Class:
		if IsNull(v) {
			return "object"
		}
		return "function"
	}
	if IsNull(v) {
		return "object"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Func:
		return "function"
	}
	return "object"
}

// IsObject reports whether v is a non-null object (typeof "object" and not
// null). Arrays are objects.
func IsObject(v any) bool {
	return TypeOf(v) == "object" && !IsNull(v)
}

// Number converts any Go numeric value to float64.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// StrictEqual implements the JavaScript === operator for the primitive values
// a literal can hold. NaN is never equal to anything; +0 and -0 are equal.
// Objects compare by identity.
func StrictEqual(a, b any) bool {
	switch {
	case IsUndefined(a) || IsUndefined(b):
		return IsUndefined(a) && IsUndefined(b)
	case IsNull(a) || IsNull(b):
		return IsNull(a) && IsNull(b)
	}

	ta, tb := TypeOf(a), TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta {
	case "number":
		x, _ := Number(a)
		y, _ := Number(b)
		if math.IsNaN(x) || math.IsNaN(y) {
			return false
		}
		return x == y
	case "string":
		return reflect.ValueOf(a).String() == reflect.ValueOf(b).String()
	case "boolean":
		return reflect.ValueOf(a).Bool() == reflect.ValueOf(b).Bool()
	}
	return sameReference(a, b)
}

func sameReference(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	if ra.Type().Comparable() {
		return a == b
	}
	return false
}

// IsArray implements Array.isArray. A nil slice is null, not an array.
func IsArray(v any) bool {
	if _, ok := v.([]any); ok {
		return !IsNull(v)
	}
	if v == nil {
		return false
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Slice:
		return !rv.IsNil()
	case reflect.Array:
		return true
	}
	return false
}

// Len returns the length of an array value, or 0 for anything else.
func Len(v any) int {
	if arr, ok := v.([]any); ok {
		return len(arr)
	}
	if !IsArray(v) {
		return 0
	}
	return reflect.ValueOf(v).Len()
}

// Index returns element i of an array value, or Undefined when v is not an
// array or i is out of range.
func Index(v any, i int) any {
	if arr, ok := v.([]any); ok {
		if i < 0 || i >= len(arr) {
			return Undefined
		}
		return arr[i]
	}
	if !IsArray(v) {
		return Undefined
	}
	rv := reflect.ValueOf(v)
	if i < 0 || i >= rv.Len() {
		return Undefined
	}
	return rv.Index(i).Interface()
}

// Get reads property key of v the way value[key] would. Missing properties,
// and properties of non-objects, read as Undefined. Arrays expose their
// numeric indices and "length".
func Get(v any, key string) any {
	switch obj := v.(type) {
	case map[string]any:
		if val, ok := obj[key]; ok {
			return val
		}
		return Undefined
	case *Instance:
		if obj == nil {
			return Undefined
		}
		return obj.Get(key)
	}
	if IsArray(v) {
		if key == "length" {
			return float64(Len(v))
		}
		if i, err := strconv.Atoi(key); err == nil {
			return Index(v, i)
		}
		return Undefined
	}
	if IsNull(v) {
		return Undefined
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return Undefined
	}
	if rv.Type().Key().Kind() == reflect.String {
		val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return Undefined
		}
		return val.Interface()
	}
	// Keys that convert to the same string collide; the smallest wins so the
	// result does not depend on map iteration order.
	var (
		found reflect.Value
		from  string
	)
	iter := rv.MapRange()
	for iter.Next() {
		if propertyKey(iter.Key()) != key {
			continue
		}
		if id := fmt.Sprintf("%#v", iter.Key().Interface()); !found.IsValid() || id < from {
			found, from = iter.Value(), id
		}
	}
	if !found.IsValid() {
		return Undefined
	}
	return found.Interface()
}

// propertyKey converts a map key to a property name: strings stay as they
// are, null and undefined become "null" and "undefined", and numbers and
// booleans print in their shortest form.
func propertyKey(k reflect.Value) string {
	for k.Kind() == reflect.Interface {
		if k.IsNil() {
			return "null"
		}
		k = k.Elem()
	}
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Bool:
		return strconv.FormatBool(k.Bool())
	case reflect.Float32, reflect.Float64:
		f := k.Float()
		switch {
		case math.IsNaN(f):
			return "NaN"
		case math.IsInf(f, 1):
			return "Infinity"
		case math.IsInf(f, -1):
			return "-Infinity"
		case f == 0:
			return "0"
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	if IsUndefined(k.Interface()) {
		return "undefined"
	}
	return fmt.Sprint(k.Interface())
}

// Keys returns the own enumerable keys of v, sorted so that evaluation order
// is reproducible. Arrays yield their indices; non-objects yield nothing.
func Keys(v any) []string {
	var keys []string
	switch obj := v.(type) {
	case map[string]any:
		keys = make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
	case *Instance:
		if obj == nil {
			return nil
		}
		return obj.Keys()
	default:
		if IsArray(v) {
			n := Len(v)
			keys = make([]string, n)
			for i := range n {
				keys[i] = strconv.Itoa(i)
			}
			return keys
		}
		if IsNull(v) {
			return nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map {
			return nil
		}
		keys = make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, propertyKey(iter.Key()))
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// Ref identifies a reference value: a non-nil map, slice or pointer. Two
// slices sharing a backing array but differing in length are different
// references.
type Ref struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

// Reference returns the identity of v when v is a reference value, the only
// kind of value a cyclic structure can lead back to.
func Reference(v any) (Ref, bool) {
	if v == nil {
		return Ref{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		if rv.IsNil() {
			return Ref{}, false
		}
		return Ref{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.IsNil() {
			return Ref{}, false
		}
		return Ref{typ: rv.Type(), ptr: rv.Pointer(), n: rv.Len()}, true
	}
	return Ref{}, false
}
