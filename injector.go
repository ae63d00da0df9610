package di

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junioryono/di/internal/graph"
	"github.com/junioryono/di/policy"
)

// ErrNilInjector is returned by the generic helpers when given a nil injector.
var ErrNilInjector = errors.New("injector cannot be nil")

// Injector resolves object graphs from an immutable binding table.
// It is safe for concurrent use; Singleton instances are created at most once.
//
// Example:
//
//	c := di.NewCollection()
//	di.Bind[Logger](c, di.Factory(NewLogger), di.InScope(di.Singleton))
//	di.Bind[*Server](c, di.Factory(NewServer))
//
//	inj, err := c.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inj.Close()
//
//	server, err := di.Build[*Server](inj)
type Injector struct {
	id string

	table      *bindingTable
	singletons *singletonCache
	plans      sync.Map // map[planKey]*planNode

	policy  *policy.Predicate
	config  Config
	logger  *zap.Logger
	metrics *metrics

	closed atomic.Bool
}

func newInjector(bindings []*Binding, registry *constructorRegistry, opts *options) (*Injector, error) {
	introspector := opts.introspector
	if introspector == nil {
		introspector = registry
	}

	m, err := newMetrics(opts.registerer)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	inj := &Injector{
		id:         id,
		table:      newBindingTable(bindings, introspector, opts.config.Strict),
		singletons: newSingletonCache(),
		policy:     opts.policy,
		config:     opts.config,
		logger:     opts.logger.With(zap.String("injector_id", id)),
		metrics:    m,
	}

	if inj.config.Strict {
		if err := inj.table.checkDuplicates(); err != nil {
			return nil, err
		}
	}

	return inj, nil
}

// ID returns the unique identifier of the injector.
func (inj *Injector) ID() string {
	return inj.id
}

// Build resolves key in the given access form. All checks that do not need a
// provider to run (missing bindings, ambiguity, cycles, access forms and
// policies) are performed before anything is constructed.
//
// A FormShared instance holds a reference; release it with Instance.Release.
func (inj *Injector) Build(key Key, form AccessForm) (*Instance, error) {
	if inj.closed.Load() {
		return nil, ErrInjectorClosed
	}
	if key.Type == nil {
		return nil, ErrInvalidKey
	}
	if !form.IsValid() {
		return nil, fmt.Errorf("%w: access form %s", ErrIncompatibleAccessForm, form)
	}

	start := time.Now()

	node, err := inj.planFor(key, form)
	if err != nil {
		inj.metrics.buildFinished(false, time.Since(start))
		inj.logger.Debug("build rejected", zap.Stringer("key", key), zap.Error(err))
		return nil, err
	}

	r := newRequest(inj)
	inst, err := r.resolve(node)
	if cleanupErr := r.finish(err != nil); cleanupErr != nil {
		if err != nil {
			err = errors.Join(err, cleanupErr)
		} else {
			r.logger.Error("request cleanup failed", zap.Error(cleanupErr))
		}
	}

	inj.metrics.buildFinished(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// planFor returns the cached plan for a top-level request.
func (inj *Injector) planFor(key Key, form AccessForm) (*planNode, error) {
	pk := planKey{key: key, form: form, root: true}
	if cached, ok := inj.plans.Load(pk); ok {
		return cached.(*planNode), nil
	}

	node, err := newPlanner(inj).plan(key, form)
	if err != nil {
		return nil, err
	}

	actual, _ := inj.plans.LoadOrStore(pk, node)
	return actual.(*planNode), nil
}

// Validate plans every binding a root lookup can select, without
// constructing anything, and returns all problems found. Shadowed bindings
// and bindings whose guard rejects a root resolution are not planned.
func (inj *Injector) Validate() error {
	bindings, err := inj.table.selected()

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}

	p := newPlanner(inj)
	g := graph.NewDependencyGraph[*Binding]()
	seen := make(map[*planNode]bool)
	for _, b := range bindings {
		n, err := p.planRoot(b, FormValue)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b, err))
			continue
		}
		addEdges(g, n, seen)
	}

	if err := g.DetectCycles(); err != nil {
		errs = append(errs, bindingCycle(err))
	}

	inj.logger.Debug("validated bindings",
		zap.Int("bindings", len(bindings)),
		zap.Int("graph_nodes", g.Size()),
		zap.Int("errors", len(errs)))

	return errors.Join(errs...)
}

// IsBound reports whether key has an eligible explicit binding at the root.
func (inj *Injector) IsBound(key Key) bool {
	ctx := &guardContext{table: inj.table, state: &guardState{root: true}, arg: key}
	return ctx.Bound(key.Type, key.Tag)
}

// Bindings returns a copy of the registered bindings in registration order.
func (inj *Injector) Bindings() []Binding {
	out := make([]Binding, len(inj.table.all))
	for i, b := range inj.table.all {
		out[i] = *b
	}
	return out
}

// createAllSingletons builds every selected Singleton binding, dependencies
// first.
func (inj *Injector) createAllSingletons() error {
	bindings, err := inj.table.selected()
	if err != nil {
		return err
	}

	p := newPlanner(inj)
	g := graph.NewDependencyGraph[*Binding]()
	seen := make(map[*planNode]bool)
	roots := make(map[*Binding]*planNode)
	for _, b := range bindings {
		if b.Scope != Singleton || b.provider.kind == providerValue {
			continue
		}
		n, err := p.planRoot(b, FormValue)
		if err != nil {
			return RegistrationError{Key: b.Key, Operation: "plan singleton", Cause: err}
		}
		roots[b] = n
		addEdges(g, n, seen)
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		return bindingCycle(err)
	}

	r := newRequest(inj)
	for _, gn := range sorted {
		n, ok := roots[gn.Key]
		if !ok {
			continue
		}
		if _, err := r.produce(n); err != nil {
			if cleanupErr := r.finish(true); cleanupErr != nil {
				err = errors.Join(err, cleanupErr)
			}
			return err
		}
	}

	return r.finish(false)
}

// bindingCycle converts a cycle between bindings into a CyclicDependencyError.
func bindingCycle(err error) error {
	var circular *graph.CircularDependencyError[*Binding]
	if !errors.As(err, &circular) {
		return err
	}
	path := make([]Key, len(circular.Path))
	for i, b := range circular.Path {
		path[i] = b.Key
	}
	return CyclicDependencyError{Path: path}
}

// Close disposes every Singleton instance in reverse creation order.
// Instances still held through Shared handles are closed when released.
func (inj *Injector) Close() error {
	if !inj.closed.CompareAndSwap(false, true) {
		return nil
	}

	errs := inj.singletons.dispose()
	inj.logger.Info("injector closed", zap.Int("errors", len(errs)))

	if len(errs) > 0 {
		return DisposalError{Context: "injector", Errors: errs}
	}
	return nil
}

// Build resolves T. T is decoded the same way as constructor parameters:
// Named selects the tag and Ref, ConstRef or Shared select the access form.
//
// Example:
//
//	server, err := di.Build[*Server](inj)
//	port, err := di.Build[di.Named[int, HTTPPort]](inj)
//	cfg, err := di.Build[di.ConstRef[Config]](inj)
func Build[T any](inj *Injector) (T, error) {
	var zero T

	if inj == nil {
		return zero, ErrNilInjector
	}

	t := typeOf[T]()
	dep, err := decodeParam(t)
	if err != nil {
		return zero, err
	}

	inst, err := inj.Build(dep.Key, dep.Form)
	if err != nil {
		return zero, err
	}

	v := inst.wrap(t)
	result, ok := v.Interface().(T)
	if !ok && v.Kind() != reflect.Interface {
		return zero, TypeMismatchError{Expected: t, Actual: v.Type(), Context: "type assertion"}
	}
	return result, nil
}

// BuildTagged resolves T under the tag Tag.
func BuildTagged[T, Tag any](inj *Injector) (T, error) {
	named, err := Build[Named[T, Tag]](inj)
	if err != nil {
		var zero T
		return zero, err
	}
	return named.Get(), nil
}

// MustBuild resolves T and panics on failure. This is useful for application
// initialization where missing dependencies are fatal.
func MustBuild[T any](inj *Injector) T {
	v, err := Build[T](inj)
	if err != nil {
		panic(fmt.Sprintf("failed to build %s: %v", formatType(typeOf[T]()), err))
	}
	return v
}
