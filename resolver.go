package di

import (
	"errors"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/junioryono/di/internal/reflection"
)

// request executes plans for one top-level Build call. It owns the
// SharedPerRequest cache and the cleanup stack for partially built graphs.
// A request is confined to the calling goroutine.
type request struct {
	id     string
	inj    *Injector
	logger *zap.Logger

	shared      map[*Binding]*handle
	sharedOrder []*handle

	lifecycle lifecycleManager

	// stack is the chain of keys being constructed, outermost first.
	stack []Key
}

func newRequest(inj *Injector) *request {
	id := uuid.NewString()
	return &request{
		id:     id,
		inj:    inj,
		logger: inj.logger.With(zap.String("request_id", id)),
		shared: make(map[*Binding]*handle),
	}
}

// resolve produces the instance for n and adapts it to the planned form.
func (r *request) resolve(n *planNode) (*Instance, error) {
	st, err := r.produce(n)
	if err != nil {
		return nil, err
	}

	inst, err := adapt(n.key, st, n.form)
	if err != nil {
		return nil, err
	}

	if inst.form == FormShared {
		r.lifecycle.track(inst.Release)
	}
	return inst, nil
}

// produce returns the stored instance for n according to its binding's scope.
func (r *request) produce(n *planNode) (storage, error) {
	b := n.binding

	switch {
	case b.provider.kind == providerValue:
		return storage{kind: storageSnapshot, value: b.snapshot}, nil

	case b.Scope == Singleton:
		h, created, err := r.inj.singletons.get(b, func() (reflect.Value, error) {
			return r.construct(n)
		})
		if err != nil {
			return storage{}, err
		}
		if created {
			r.logger.Debug("singleton created", zap.Stringer("key", b.Key))
		}
		return sharedStorage(h), nil

	case b.Scope == SharedPerRequest:
		if h, ok := r.shared[b]; ok {
			return sharedStorage(h), nil
		}
		v, err := r.construct(n)
		if err != nil {
			return storage{}, err
		}
		h := newHandle(v, b.Key.Type)
		h.borrowed = !b.ownsInstances()
		r.shared[b] = h
		r.sharedOrder = append(r.sharedOrder, h)
		return sharedStorage(h), nil

	default:
		v, err := r.construct(n)
		if err != nil {
			return storage{}, err
		}
		st := ownedStorage(v, b.Key.Type)
		if b.ownsInstances() {
			r.lifecycle.trackInstance(st)
		}
		return st, nil
	}
}

// construct resolves the dependencies of n in declared order and invokes its
// provider. Dependencies are committed to the new instance once it exists.
func (r *request) construct(n *planNode) (reflect.Value, error) {
	b := n.binding

	r.stack = append(r.stack, n.key)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	mark := r.lifecycle.mark()

	if b.provider.kind == providerAlias {
		inst, err := r.resolve(n.target)
		if err != nil {
			return reflect.Value{}, err
		}
		r.lifecycle.commit(mark)
		return inst.value, nil
	}

	args := make([]reflect.Value, len(n.deps))
	for i, dep := range n.deps {
		inst, err := r.resolve(dep)
		if err != nil {
			return reflect.Value{}, err
		}
		args[i] = inst.wrap(n.ctor.Deps[i].Param)
	}

	r.inj.metrics.providerInvoked(b.Scope)
	r.logger.Debug("invoking provider",
		zap.Stringer("key", n.key),
		zap.Stringer("scope", b.Scope),
		zap.Stringer("constructor", n.ctor))

	v, err := n.ctor.invoke(args)
	if err != nil {
		failure := ProviderFailureError{
			Key:   n.key,
			Path:  append([]Key(nil), r.stack...),
			Cause: err,
		}
		var panicErr *reflection.PanicError
		if errors.As(err, &panicErr) {
			failure.Panic = panicErr.Value
			failure.Stack = panicErr.Stack
		}
		r.logger.Error("provider failed",
			zap.Stringer("key", n.key),
			zap.String("path", formatPath(failure.Path)),
			zap.Error(err))
		return reflect.Value{}, failure
	}

	r.lifecycle.commit(mark)
	return v, nil
}

// finish ends the request. On failure every instance not yet owned by a
// constructed consumer is disposed, newest first. The SharedPerRequest cache
// then drops its references.
func (r *request) finish(failed bool) error {
	var errs []error

	if failed {
		errs = append(errs, r.lifecycle.dispose()...)
	} else {
		r.lifecycle.clear()
	}

	for i := len(r.sharedOrder) - 1; i >= 0; i-- {
		if err := r.sharedOrder[i].release(); err != nil {
			errs = append(errs, err)
		}
	}
	r.shared = nil
	r.sharedOrder = nil

	if len(errs) > 0 {
		return DisposalError{Context: "request", Errors: errs}
	}
	return nil
}
