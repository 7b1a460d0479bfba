package guard

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/tsgonest/typeguard/internal/analyzer"
	"github.com/tsgonest/typeguard/internal/descriptor"
	"github.com/tsgonest/typeguard/internal/jsvalue"
	"github.com/tsgonest/typeguard/internal/memo"
)

// ErrUnresolvedAccessor is raised when a computed property key expression has
// no binding in the realm at synthesis time.
var ErrUnresolvedAccessor = errors.New("unresolved computed accessor")

// Synthesizer turns descriptors into checks. Children that define or
// reference a unit are called through the unit rather than inlined, so a
// cycle compiles to a finite graph of units calling each other by name.
type Synthesizer struct {
	table *memo.Table
	realm *jsvalue.Realm
	log   *zap.Logger

	root   string
	active map[*memo.Unit]bool
	bound  []*memo.Unit
}

// NewSynthesizer returns a Synthesizer resolving unit names in table and
// classes and computed keys in realm.
func NewSynthesizer(table *memo.Table, realm *jsvalue.Realm, log *zap.Logger) *Synthesizer {
	if realm == nil {
		realm = jsvalue.NewRealm()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{
		table:  table,
		realm:  realm,
		log:    log,
		active: make(map[*memo.Unit]bool),
	}
}

// Ensure binds u, and every unit it reaches, to a compiled check. Units that
// are already bound are left alone. If synthesis fails, every unit bound by
// this call is unbound again.
func (s *Synthesizer) Ensure(u *memo.Unit) error {
	s.root, s.bound = u.TypeName, s.bound[:0]
	defer func() { s.root = "" }()

	if err := s.ensure(u); err != nil {
		for _, b := range s.bound {
			b.Bind(nil)
		}
		s.bound = s.bound[:0]
		return err
	}
	return nil
}

// Synthesize compiles a descriptor that is not itself a unit. References in
// it must name units of the synthesizer's table.
func (s *Synthesizer) Synthesize(d *descriptor.Descriptor) (memo.Check, error) {
	if d == nil {
		return nil, errors.New("nil descriptor")
	}
	s.root, s.bound = d.Name, s.bound[:0]
	defer func() { s.root = "" }()

	check, err := s.compile(d, nil)
	if err != nil {
		for _, b := range s.bound {
			b.Bind(nil)
		}
		return nil, err
	}
	return func(v any) bool { return check(v, nil) }, nil
}

func (s *Synthesizer) ensure(u *memo.Unit) error {
	if u.Bound() || s.active[u] {
		return nil
	}
	if !u.Defined() {
		return errors.AssertionFailedf("unit %s (%s) has no descriptor", u.Name, u.TypeName)
	}
	s.active[u] = true
	defer delete(s.active, u)

	check, err := s.inline(u.Descriptor(), u)
	if err != nil {
		return err
	}
	u.Bind(check)
	s.bound = append(s.bound, u)
	s.log.Debug("synthesize", zap.String("unit", u.Name), zap.String("type", u.TypeName), zap.String("root", s.root))
	return nil
}

// compile returns the check for a child descriptor of owner.
func (s *Synthesizer) compile(d *descriptor.Descriptor, owner *memo.Unit) (memo.TrailCheck, error) {
	if d == nil {
		return nil, errors.AssertionFailedf("nil child descriptor under %s", s.root)
	}
	name := d.Unit
	if d.Kind == descriptor.KindRef {
		name = d.Ref
	}
	if name != "" {
		u, ok := s.table.Unit(name)
		switch {
		case ok:
			if owner != nil {
				owner.DependOn(u)
			}
			if err := s.ensure(u); err != nil {
				return nil, err
			}
			return u.CheckIn, nil
		case d.Kind == descriptor.KindRef:
			return nil, errors.AssertionFailedf("reference to unknown unit %s (%s)", d.Ref, d.Name)
		}
	}
	return s.inline(d, owner)
}

// inline compiles d's own kind; children go through compile.
func (s *Synthesizer) inline(d *descriptor.Descriptor, owner *memo.Unit) (memo.TrailCheck, error) {
	switch d.Kind {
	case descriptor.KindPrimitive:
		tag := string(d.Primitive)
		return func(v any, _ *memo.Trail) bool { return jsvalue.TypeOf(v) == tag }, nil

	case descriptor.KindLiteral:
		if d.Literal == nil {
			return nil, errors.AssertionFailedf("literal descriptor %s has no value", d.Name)
		}
		lit := d.Literal.Value
		return func(v any, _ *memo.Trail) bool { return jsvalue.StrictEqual(v, lit) }, nil

	case descriptor.KindUnspecified:
		return func(any, *memo.Trail) bool { return true }, nil

	case descriptor.KindArray:
		elem, err := s.compile(d.Element, owner)
		if err != nil {
			return nil, err
		}
		return func(v any, t *memo.Trail) bool {
			if !jsvalue.IsArray(v) {
				return false
			}
			for i := range jsvalue.Len(v) {
				if !elem(jsvalue.Index(v, i), t) {
					return false
				}
			}
			return true
		}, nil

	case descriptor.KindTuple:
		elems, err := s.compileAll(d.Elements, owner)
		if err != nil {
			return nil, err
		}
		n := len(elems)
		return func(v any, t *memo.Trail) bool {
			if !jsvalue.IsArray(v) || jsvalue.Len(v) != n {
				return false
			}
			for i, check := range elems {
				if !check(jsvalue.Index(v, i), t) {
					return false
				}
			}
			return true
		}, nil

	case descriptor.KindObject:
		return s.object(d, owner)

	case descriptor.KindUnion:
		members, err := s.compileAll(d.Members, owner)
		if err != nil {
			return nil, err
		}
		return func(v any, t *memo.Trail) bool {
			for _, check := range members {
				if check(v, t) {
					return true
				}
			}
			return false
		}, nil

	case descriptor.KindIntersection:
		members, err := s.compileAll(d.Members, owner)
		if err != nil {
			return nil, err
		}
		return func(v any, t *memo.Trail) bool {
			for _, check := range members {
				if !check(v, t) {
					return false
				}
			}
			return true
		}, nil
	}
	return nil, errors.AssertionFailedf("cannot synthesize descriptor kind %q (%s)", d.Kind, d.Name)
}

func (s *Synthesizer) compileAll(ds []*descriptor.Descriptor, owner *memo.Unit) ([]memo.TrailCheck, error) {
	checks := make([]memo.TrailCheck, len(ds))
	for i, d := range ds {
		check, err := s.compile(d, owner)
		if err != nil {
			return nil, err
		}
		checks[i] = check
	}
	return checks, nil
}

type propertyCheck struct {
	get      func(v any) any
	check    memo.TrailCheck
	optional bool
}

func (s *Synthesizer) object(d *descriptor.Descriptor, owner *memo.Unit) (memo.TrailCheck, error) {
	if d.Class != "" {
		class := s.realm.Class(d.Class)
		return func(v any, _ *memo.Trail) bool {
			return jsvalue.IsObject(v) && jsvalue.InstanceOf(v, class)
		}, nil
	}

	props := make([]propertyCheck, len(d.Properties))
	for i, p := range d.Properties {
		get, err := s.accessor(d, p.Accessor)
		if err != nil {
			return nil, err
		}
		check, err := s.compile(p.Type, owner)
		if err != nil {
			return nil, err
		}
		props[i] = propertyCheck{get: get, check: check, optional: p.Optional}
	}

	var index memo.TrailCheck
	if d.Index != nil {
		var err error
		if index, err = s.compile(d.Index, owner); err != nil {
			return nil, err
		}
	}

	return func(v any, t *memo.Trail) bool {
		if !jsvalue.IsObject(v) {
			return false
		}
		for _, p := range props {
			val := p.get(v)
			if p.optional && jsvalue.IsUndefined(val) {
				continue
			}
			if !p.check(val, t) {
				return false
			}
		}
		if index != nil {
			for _, key := range jsvalue.Keys(v) {
				if !index(jsvalue.Get(v, key), t) {
					return false
				}
			}
		}
		return true
	}, nil
}

// accessor returns the property read for acc. Computed keys are resolved in
// the realm on every read, so rebinding a key takes effect for checks that
// are already built.
func (s *Synthesizer) accessor(d *descriptor.Descriptor, acc descriptor.Accessor) (func(any) any, error) {
	if !acc.Computed() {
		name := acc.Name
		return func(v any) any { return jsvalue.Get(v, name) }, nil
	}
	if _, ok := s.realm.Resolve(acc.Expr); !ok {
		owner := d.Name
		if owner == "" {
			owner = "object"
		}
		err := &analyzer.SchemaError{Kind: ErrUnresolvedAccessor, Type: owner + acc.String(), Root: s.root}
		return nil, errors.WithHintf(err, "bind %q to a property key in the realm", acc.Expr)
	}
	expr, realm := acc.Expr, s.realm
	return func(v any) any {
		key, ok := realm.Resolve(expr)
		if !ok {
			return jsvalue.Undefined
		}
		return jsvalue.Get(v, key)
	}, nil
}
