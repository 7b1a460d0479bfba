package jsvalue

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf(t *testing.T) {
	type named string
	var nilMap map[string]any
	tests := []struct {
		v    any
		want string
	}{
		{Undefined, "undefined"},
		{nil, "object"},
		{nilMap, "object"},
		{true, "boolean"},
		{"s", "string"},
		{named("s"), "string"},
		{1.5, "number"},
		{uint8(1), "number"},
		{math.NaN(), "number"},
		{[]any{}, "object"},
		{map[string]any{}, "object"},
		{func() {}, "function"},
		{&Class{Name: "C"}, "function"},
		{NewInstance(&Class{Name: "C"}, nil), "object"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeOf(tt.v), "%#v", tt.v)
	}
}

func TestIsObject(t *testing.T) {
	assert.True(t, IsObject(map[string]any{}))
	assert.True(t, IsObject([]any{1}))
	assert.False(t, IsObject(nil))
	assert.False(t, IsObject([]any(nil)))
	assert.False(t, IsObject("x"))
	assert.False(t, IsObject(func() {}))
}

func TestStrictEqual(t *testing.T) {
	m := map[string]any{}
	tests := []struct {
		a, b any
		want bool
	}{
		{1, 1.0, true},
		{0.0, math.Copysign(0, -1), true},
		{math.NaN(), math.NaN(), false},
		{"a", "a", true},
		{"1", 1, false},
		{true, true, true},
		{nil, nil, true},
		{nil, Undefined, false},
		{Undefined, Undefined, true},
		{m, m, true},
		{map[string]any{}, map[string]any{}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StrictEqual(tt.a, tt.b), "%#v === %#v", tt.a, tt.b)
	}
}

func TestArrays(t *testing.T) {
	arr := []any{"a", 2.0}
	assert.True(t, IsArray(arr))
	assert.True(t, IsArray([2]int{}))
	assert.True(t, IsArray([]string{}))
	assert.False(t, IsArray([]any(nil)))
	assert.False(t, IsArray(map[string]any{}))

	assert.Equal(t, 2, Len(arr))
	assert.Equal(t, 0, Len("ab"))
	assert.Equal(t, "a", Index(arr, 0))
	assert.Equal(t, Undefined, Index(arr, 2))
	assert.Equal(t, Undefined, Index(arr, -1))
	assert.Equal(t, 2, Index([]int{1, 2}, 1))

	assert.Equal(t, 2.0, Get(arr, "length"))
	assert.Equal(t, 2.0, Get(arr, "1"))
	assert.Equal(t, Undefined, Get(arr, "x"))
	assert.Equal(t, []string{"0", "1"}, Keys(arr))
}

func TestGetAndKeys(t *testing.T) {
	type key string
	obj := map[string]any{"b": 1, "a": nil}
	assert.Nil(t, Get(obj, "a"))
	assert.Equal(t, Undefined, Get(obj, "c"))
	assert.Equal(t, []string{"a", "b"}, Keys(obj))

	typed := map[key]int{"z": 1}
	assert.Equal(t, 1, Get(typed, "z"))
	assert.Equal(t, []string{"z"}, Keys(typed))

	assert.Equal(t, Undefined, Get(nil, "a"))
	assert.Equal(t, Undefined, Get("str", "length"))
	assert.Nil(t, Keys(42))

	inst := NewInstance(&Class{Name: "C"}, map[string]any{"y": 1, "x": 2})
	assert.Equal(t, 2, Get(inst, "x"))
	assert.Equal(t, []string{"x", "y"}, Keys(inst))
	assert.Equal(t, Undefined, Get((*Instance)(nil), "x"))
}

func TestNonStringKeys(t *testing.T) {
	// yaml.v3 decodes a mapping with a non-string key to map[any]any.
	m := map[any]any{1: "a", 2.5: "b", true: "c", nil: "d", "x": "e"}
	assert.Equal(t, []string{"1", "2.5", "null", "true", "x"}, Keys(m))
	assert.Equal(t, "a", Get(m, "1"))
	assert.Equal(t, "b", Get(m, "2.5"))
	assert.Equal(t, "c", Get(m, "true"))
	assert.Equal(t, "d", Get(m, "null"))
	assert.Equal(t, Undefined, Get(m, "2"))

	assert.Equal(t, []string{"1"}, Keys(map[int]int{1: 1}))
	assert.Equal(t, 1, Get(map[int]int{1: 1}, "1"))

	// 1 and "1" name the same property.
	dup := map[any]any{1: "int", "1": "str"}
	assert.Equal(t, []string{"1"}, Keys(dup))
	assert.Equal(t, Get(dup, "1"), Get(dup, "1"))
}

func TestReference(t *testing.T) {
	m := map[string]any{}
	r1, ok := Reference(m)
	assert.True(t, ok)
	r2, _ := Reference(m)
	assert.Equal(t, r1, r2)

	s := []any{1, 2, 3}
	whole, _ := Reference(s)
	head, _ := Reference(s[:1])
	assert.NotEqual(t, whole, head)

	for _, v := range []any{nil, 1, "x", Undefined, []any(nil), map[string]any(nil), (*Instance)(nil), [1]int{}} {
		_, ok := Reference(v)
		assert.False(t, ok, "%#v", v)
	}
	_, ok = Reference(NewInstance(nil, nil))
	assert.True(t, ok)
}

func TestInstanceOf(t *testing.T) {
	realm := NewRealm()
	base := realm.Define("Base", nil)
	derived := realm.Define("Derived", base)
	other := &Class{Name: "Base"}

	inst := NewInstance(derived, nil)
	assert.True(t, InstanceOf(inst, derived))
	assert.True(t, InstanceOf(inst, base))
	assert.False(t, InstanceOf(inst, other), "classes compare by identity")
	assert.False(t, InstanceOf(NewInstance(base, nil), derived))
	assert.False(t, InstanceOf(map[string]any{}, base))
	assert.False(t, InstanceOf(inst, nil))
}

func TestRealm(t *testing.T) {
	realm := NewRealm()
	c := realm.Class("Date")
	assert.Same(t, c, realm.Class("Date"))

	redefined := realm.Define("Date", nil)
	assert.NotSame(t, c, redefined)
	assert.Same(t, redefined, realm.Class("Date"))

	_, ok := realm.Resolve("Symbol.iterator")
	assert.False(t, ok)
	realm.Bind("Symbol.iterator", "@@iterator")
	key, ok := realm.Resolve("Symbol.iterator")
	assert.True(t, ok)
	assert.Equal(t, "@@iterator", key)
}

func TestRealmConcurrentClass(t *testing.T) {
	realm := NewRealm()
	classes := make([]*Class, 16)
	var wg sync.WaitGroup
	for i := range classes {
		wg.Go(func() { classes[i] = realm.Class("Shared") })
	}
	wg.Wait()
	for _, c := range classes {
		assert.Same(t, classes[0], c)
	}
}
