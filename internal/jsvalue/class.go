package jsvalue

import (
	"sort"
	"sync"
)

// Class is a constructor. Instances are linked to it by identity, and a class
// may extend a parent class.
type Class struct {
	Name   string
	Parent *Class
}

// Instance is an object created by a Class.
type Instance struct {
	Class *Class
	Props map[string]any
}

// NewInstance creates an instance of c carrying the given own properties.
func NewInstance(c *Class, props map[string]any) *Instance {
	if props == nil {
		props = map[string]any{}
	}
	return &Instance{Class: c, Props: props}
}

// Get returns the own property key, or Undefined.
func (i *Instance) Get(key string) any {
	if v, ok := i.Props[key]; ok {
		return v
	}
	return Undefined
}

// Keys returns the sorted own property names.
func (i *Instance) Keys() []string {
	keys := make([]string, 0, len(i.Props))
	for k := range i.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InstanceOf implements `v instanceof c`: it walks the class chain of v
// comparing classes by identity, never by name or shape.
func InstanceOf(v any, c *Class) bool {
	inst, ok := v.(*Instance)
	if !ok || inst == nil || c == nil {
		return false
	}
	for cls := inst.Class; cls != nil; cls = cls.Parent {
		if cls == c {
			return true
		}
	}
	return false
}

// Realm is the global scope checks resolve names in: class constructors for
// nominal checks and bindings for computed property keys. A Realm is safe for
// concurrent use, so validators built against it may run on many goroutines.
type Realm struct {
	mu       sync.RWMutex
	classes  map[string]*Class
	bindings map[string]string
}

// NewRealm returns an empty realm.
func NewRealm() *Realm {
	return &Realm{
		classes:  make(map[string]*Class),
		bindings: make(map[string]string),
	}
}

// Define declares a class named name extending parent (which may be nil),
// replacing any previous declaration under that name.
func (r *Realm) Define(name string, parent *Class) *Class {
	c := &Class{Name: name, Parent: parent}
	r.mu.Lock()
	r.classes[name] = c
	r.mu.Unlock()
	return c
}

// Class returns the class declared under name, declaring it on first use.
func (r *Realm) Class(name string) *Class {
	r.mu.RLock()
	c, ok := r.classes[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.classes[name]; ok {
		return c
	}
	c = &Class{Name: name}
	r.classes[name] = c
	return c
}

// Bind makes the computed key expression expr evaluate to key.
func (r *Realm) Bind(expr, key string) {
	r.mu.Lock()
	r.bindings[expr] = key
	r.mu.Unlock()
}

// Resolve evaluates a computed key expression.
func (r *Realm) Resolve(expr string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.bindings[expr]
	return key, ok
}
