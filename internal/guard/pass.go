// Package guard compiles resolved types into runtime validators. A Pass owns
// one memo table: it describes roots, synthesizes their checks and collects
// the named units they depend on into a checker map.
package guard

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tsgonest/typeguard/internal/analyzer"
	"github.com/tsgonest/typeguard/internal/descriptor"
	"github.com/tsgonest/typeguard/internal/jsvalue"
	"github.com/tsgonest/typeguard/internal/memo"
	"github.com/tsgonest/typeguard/internal/schema"
)

// Option configures a Pass.
type Option func(*options)

type options struct {
	log         *zap.Logger
	realm       *jsvalue.Realm
	concurrency int
}

// WithLogger sets the logger passes report progress to.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithRealm sets the realm classes and computed keys are resolved in. Passes
// may share a realm.
func WithRealm(realm *jsvalue.Realm) Option {
	return func(o *options) { o.realm = realm }
}

// WithConcurrency bounds how many roots CompileAll compiles at once.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

func buildOptions(opts []Option) options {
	o := options{concurrency: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.realm == nil {
		o.realm = jsvalue.NewRealm()
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// Validator is a compiled root: its entry unit plus every unit the entry
// transitively calls through.
type Validator struct {
	// Root is the diagnostic name of the root type.
	Root string
	// Entry is the unit checking the root type.
	Entry *memo.Unit
	// Units is Entry followed by its transitive dependencies.
	Units []*memo.Unit
}

// Check reports whether v conforms to the root type. It never panics and
// terminates on cyclic values.
func (v *Validator) Check(value any) bool {
	return v.Entry.Check(value)
}

// Pass is one compilation pass. It is not safe for concurrent use; run
// independent passes in parallel instead (see CompileAll).
type Pass struct {
	table      *memo.Table
	walker     *analyzer.Walker
	synth      *Synthesizer
	log        *zap.Logger
	realm      *jsvalue.Realm
	validators map[*memo.Unit]*Validator
}

// NewPass starts a compilation pass with an empty memo table.
func NewPass(opts ...Option) *Pass {
	o := buildOptions(opts)
	table := memo.NewTable()
	return &Pass{
		table:      table,
		walker:     analyzer.NewWalker(table, o.log),
		synth:      NewSynthesizer(table, o.realm, o.log),
		log:        o.log,
		realm:      o.realm,
		validators: make(map[*memo.Unit]*Validator),
	}
}

// Realm returns the realm the pass resolves classes and computed keys in.
func (p *Pass) Realm() *jsvalue.Realm { return p.realm }

// Describe returns the descriptor of root. The same root described twice in
// one pass yields the same descriptor.
func (p *Pass) Describe(root schema.Type) (*descriptor.Descriptor, error) {
	return p.walker.Describe(root)
}

// Synthesize compiles a standalone descriptor. References in d must name
// units of this pass.
func (p *Pass) Synthesize(d *descriptor.Descriptor) (memo.Check, error) {
	return p.synth.Synthesize(d)
}

// Compile describes root and synthesizes its validator. The same root
// compiled twice in one pass returns the same Validator. On failure, the
// units registered for root are dropped from the table.
func (p *Pass) Compile(root schema.Type) (*Validator, error) {
	cp := p.table.Checkpoint()
	u, err := p.walker.DescribeUnit(root)
	if err != nil {
		p.log.Debug("describe failed", zap.String("root", rootName(root)), zap.Error(err))
		return nil, err
	}
	if v, ok := p.validators[u]; ok {
		return v, nil
	}
	if err := p.synth.Ensure(u); err != nil {
		p.table.Rollback(cp)
		p.log.Debug("synthesize failed", zap.String("root", rootName(root)), zap.Error(err))
		return nil, err
	}

	v := &Validator{Root: u.TypeName, Entry: u, Units: u.Closure()}
	p.validators[u] = v
	p.log.Debug("compiled", zap.String("root", v.Root), zap.String("entry", u.Name), zap.Int("units", len(v.Units)))
	return v, nil
}

func rootName(root schema.Type) string {
	if root == nil {
		return "<nil>"
	}
	return root.String()
}

// Units returns every unit registered in the pass, in creation order. Units
// of roots that were only described carry a descriptor but no check.
func (p *Pass) Units() []*memo.Unit {
	return p.table.Units()
}

// CompileAll compiles independent roots in parallel, each in its own Pass,
// and returns their validators in root order. The first failure cancels
// roots that have not started; a pass already running finishes.
func CompileAll(ctx context.Context, roots []schema.Type, opts ...Option) ([]*Validator, error) {
	o := buildOptions(opts)
	out := make([]*Validator, len(roots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, root := range roots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := NewPass(opts...).Compile(root)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
