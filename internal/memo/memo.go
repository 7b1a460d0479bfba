// Package memo implements the recursion memo table of one compilation pass.
//
// A unit is registered as a placeholder before its descriptor is built, so a
// re-entrant request for the same type node finds it and emits a reference
// instead of recursing. The unit is back-filled with its descriptor (Define)
// and later with its compiled check (Bind). References hold the *Unit, so
// they observe both back-fills.
package memo

import (
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/tsgonest/typeguard/internal/descriptor"
	"github.com/tsgonest/typeguard/internal/jsvalue"
	"github.com/tsgonest/typeguard/internal/schema"
)

// Check is a compiled predicate over one value.
type Check func(v any) bool

// TrailCheck is a compiled predicate that calls other units through t.
type TrailCheck func(v any, t *Trail) bool

// Trail holds the (unit, reference) pairs a check is currently inside of. A
// cyclic value that re-enters a unit on a reference already being checked by
// that unit is accepted there; the outer call decides.
type Trail struct {
	visits []visit
}

type visit struct {
	unit *Unit
	ref  jsvalue.Ref
}

// Unit is a named check unit.
type Unit struct {
	// Name is the pass-unique unit name, e.g. "__0".
	Name string
	// TypeName is the diagnostic name of the originating type.
	TypeName string
	// Node is the originating type node.
	Node schema.Type

	desc  *descriptor.Descriptor
	check TrailCheck
	deps  []*Unit
}

// Descriptor returns the unit's descriptor, or nil while it is still being
// built.
func (u *Unit) Descriptor() *descriptor.Descriptor { return u.desc }

// Defined reports whether the descriptor has been back-filled.
func (u *Unit) Defined() bool { return u.desc != nil }

// Bound reports whether the compiled check has been back-filled.
func (u *Unit) Bound() bool { return u.check != nil }

// Define back-fills the unit's descriptor.
func (u *Unit) Define(d *descriptor.Descriptor) { u.desc = d }

// Bind back-fills the unit's compiled check.
func (u *Unit) Bind(c TrailCheck) { u.check = c }

// Check runs the unit's compiled check. An unbound unit matches nothing.
func (u *Unit) Check(v any) bool {
	return u.CheckIn(v, nil)
}

// CheckIn runs the unit's compiled check as part of an enclosing check that
// has already entered the units on t. A nil t starts a new trail.
func (u *Unit) CheckIn(v any, t *Trail) bool {
	if u.check == nil {
		return false
	}
	ref, ok := jsvalue.Reference(v)
	if !ok {
		return u.check(v, t)
	}
	if t == nil {
		t = &Trail{}
	}
	key := visit{unit: u, ref: ref}
	if slices.Contains(t.visits, key) {
		return true
	}
	t.visits = append(t.visits, key)
	ok = u.check(v, t)
	t.visits = t.visits[:len(t.visits)-1]
	return ok
}

// DependOn records that u's check calls through dep.
func (u *Unit) DependOn(dep *Unit) {
	for _, d := range u.deps {
		if d == dep {
			return
		}
	}
	u.deps = append(u.deps, dep)
}

// Deps returns the units u calls through directly.
func (u *Unit) Deps() []*Unit { return u.deps }

// Closure returns u followed by every unit it transitively depends on, in
// discovery order.
func (u *Unit) Closure() []*Unit {
	seen := map[*Unit]bool{u: true}
	out := []*Unit{u}
	for i := 0; i < len(out); i++ {
		for _, d := range out[i].deps {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}

// Sequence generates pass-unique unit names: __0, __1, ...
type Sequence struct {
	next int
}

// Next returns the next name.
func (s *Sequence) Next() string {
	name := "__" + strconv.Itoa(s.next)
	s.next++
	return name
}

// Table maps type-node identity to check units. Keys are the schema.Type
// values themselves, so node implementations must be comparable (pointers).
// A Table belongs to one pass and is not safe for concurrent use.
type Table struct {
	seq    Sequence
	byNode map[schema.Type]*Unit
	byName map[string]*Unit
	units  []*Unit
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		byNode: make(map[schema.Type]*Unit),
		byName: make(map[string]*Unit),
	}
}

// Lookup returns the unit registered for node.
func (t *Table) Lookup(node schema.Type) (*Unit, bool) {
	u, ok := t.byNode[node]
	return u, ok
}

// Unit returns the unit registered under name.
func (t *Table) Unit(name string) (*Unit, bool) {
	u, ok := t.byName[name]
	return u, ok
}

// Units returns every registered unit in creation order.
func (t *Table) Units() []*Unit {
	return append([]*Unit(nil), t.units...)
}

// Len returns the number of registered units.
func (t *Table) Len() int { return len(t.units) }

// GetOrCreate returns the unit registered for node. When there is none, it
// registers a placeholder, runs build with it and back-fills the descriptor
// build returns. Calls for node made while build runs get the placeholder.
//
// If build fails, the placeholder and every unit registered after it are
// dropped, so nothing from the failed attempt can be reused.
func (t *Table) GetOrCreate(node schema.Type, typeName string, build func(*Unit) (*descriptor.Descriptor, error)) (*Unit, error) {
	if u, ok := t.byNode[node]; ok {
		return u, nil
	}
	cp := t.Checkpoint()
	u := &Unit{Name: t.seq.Next(), TypeName: typeName, Node: node}
	t.byNode[node] = u
	t.byName[u.Name] = u
	t.units = append(t.units, u)

	d, err := build(u)
	if err != nil {
		t.Rollback(cp)
		return nil, err
	}
	if d == nil {
		t.Rollback(cp)
		return nil, errors.AssertionFailedf("unit %s (%s) built a nil descriptor", u.Name, typeName)
	}
	u.Define(d)
	return u, nil
}

// Checkpoint marks the current table state.
type Checkpoint int

// Checkpoint returns a mark Rollback can return to.
func (t *Table) Checkpoint() Checkpoint { return Checkpoint(len(t.units)) }

// Rollback drops every unit registered after cp. Dropped names are not
// handed out again.
func (t *Table) Rollback(cp Checkpoint) {
	if int(cp) >= len(t.units) {
		return
	}
	for _, u := range t.units[cp:] {
		delete(t.byNode, u.Node)
		delete(t.byName, u.Name)
	}
	clear(t.units[cp:])
	t.units = t.units[:cp]
}
