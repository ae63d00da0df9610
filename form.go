package di

import (
	"fmt"
	"reflect"
	"sync"
)

// AccessForm is the ownership shape in which a consumer receives a dependency.
type AccessForm int

const (
	// FormValue hands the consumer its own copy of the instance.
	FormValue AccessForm = iota

	// FormRef hands out a mutable borrow of the stored instance (Ref[T]).
	FormRef

	// FormConstRef hands out a read-only borrow of the stored instance (ConstRef[T]).
	FormConstRef

	// FormShared hands out a reference-counted handle (Shared[T]).
	FormShared
)

// String returns the string representation of the AccessForm.
func (f AccessForm) String() string {
	switch f {
	case FormValue:
		return "Value"
	case FormRef:
		return "Ref"
	case FormConstRef:
		return "ConstRef"
	case FormShared:
		return "Shared"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// IsValid checks if the access form is valid.
func (f AccessForm) IsValid() bool {
	return f >= FormValue && f <= FormShared
}

// formWrapper is implemented by Ref, ConstRef and Shared. The methods are
// called on the zero value to decode a parameter type and to build an argument.
type formWrapper interface {
	accessForm() AccessForm
	elemType() reflect.Type
	fromInstance(inst *Instance) reflect.Value
}

// tagWrapper is implemented by Named.
type tagWrapper interface {
	tagType() reflect.Type
	innerType() reflect.Type
	fromInner(v reflect.Value) reflect.Value
}

// Ref is a mutable borrow of an instance held by the injector or created for
// the consumer. Declaring a constructor parameter as Ref[T] requests FormRef.
// Literal Value bindings cannot be borrowed mutably.
type Ref[T any] struct {
	ptr *T
}

// Get returns a pointer to the borrowed instance.
func (r Ref[T]) Get() *T {
	return r.ptr
}

func (Ref[T]) accessForm() AccessForm { return FormRef }
func (Ref[T]) elemType() reflect.Type { return typeOf[T]() }

func (Ref[T]) fromInstance(inst *Instance) reflect.Value {
	p, _ := inst.ptr.Interface().(*T)
	return reflect.ValueOf(Ref[T]{ptr: p})
}

// ConstRef is a read-only borrow of an instance. It never copies the
// instance; Get returns the current value of the borrowed storage.
type ConstRef[T any] struct {
	ptr *T
}

// Get returns the borrowed value.
func (r ConstRef[T]) Get() T {
	if r.ptr == nil {
		var zero T
		return zero
	}
	return *r.ptr
}

// Is reports whether the borrow refers to the storage at p.
func (r ConstRef[T]) Is(p *T) bool {
	return r.ptr != nil && r.ptr == p
}

func (ConstRef[T]) accessForm() AccessForm { return FormConstRef }
func (ConstRef[T]) elemType() reflect.Type { return typeOf[T]() }

func (ConstRef[T]) fromInstance(inst *Instance) reflect.Value {
	p, _ := inst.ptr.Interface().(*T)
	return reflect.ValueOf(ConstRef[T]{ptr: p})
}

// Shared is a reference-counted handle to an instance of a Singleton or
// SharedPerRequest binding. Every Shared handed out by the injector holds one
// reference; call Release when done. When the last reference is released the
// instance is closed if it implements Disposable.
type Shared[T any] struct {
	h *handle
}

// Get returns a pointer to the shared instance, or nil for a zero handle.
func (s Shared[T]) Get() *T {
	if s.h == nil {
		return nil
	}
	p, _ := s.h.value.Addr().Interface().(*T)
	return p
}

// Retain adds a reference and returns the handle.
func (s Shared[T]) Retain() Shared[T] {
	if s.h != nil {
		s.h.retain()
	}
	return s
}

// Release drops one reference.
func (s Shared[T]) Release() error {
	if s.h == nil {
		return nil
	}
	return s.h.release()
}

// Refs returns the current reference count.
func (s Shared[T]) Refs() int {
	if s.h == nil {
		return 0
	}
	return s.h.count()
}

func (Shared[T]) accessForm() AccessForm { return FormShared }
func (Shared[T]) elemType() reflect.Type { return typeOf[T]() }

func (Shared[T]) fromInstance(inst *Instance) reflect.Value {
	return reflect.ValueOf(Shared[T]{h: inst.handle})
}

// Named requests X under the tag Tag. X may be a plain type or one of Ref,
// ConstRef or Shared:
//
//	func NewServer(port di.Named[int, HTTPPort], db di.Named[di.Shared[DB], Primary]) *Server
type Named[X, Tag any] struct {
	v X
}

// Get returns the wrapped dependency.
func (n Named[X, Tag]) Get() X {
	return n.v
}

func (Named[X, Tag]) tagType() reflect.Type   { return typeOf[Tag]() }
func (Named[X, Tag]) innerType() reflect.Type { return typeOf[X]() }

func (Named[X, Tag]) fromInner(v reflect.Value) reflect.Value {
	x, _ := v.Interface().(X)
	return reflect.ValueOf(Named[X, Tag]{v: x})
}

// markerOf reports whether the zero value of t implements the marker interface M.
func markerOf[M any](t reflect.Type) (M, bool) {
	var zero M
	if t == nil || t.Kind() != reflect.Struct {
		return zero, false
	}
	m, ok := reflect.Zero(t).Interface().(M)
	return m, ok
}

// handle is the shared-ownership cell behind Shared. The value is addressable
// so that borrows point at the cell itself.
type handle struct {
	mu       sync.Mutex
	value    reflect.Value
	refs     int
	disposed bool

	// borrowed handles hold an instance owned by another binding (aliases)
	// and never close it.
	borrowed bool
}

func newHandle(v reflect.Value, t reflect.Type) *handle {
	cell := reflect.New(t).Elem()
	cell.Set(v)
	return &handle{value: cell, refs: 1}
}

func (h *handle) retain() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

func (h *handle) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}

// release drops one reference and disposes the value when none remain.
func (h *handle) release() error {
	h.mu.Lock()
	if h.refs == 0 {
		h.mu.Unlock()
		return nil
	}
	h.refs--
	if h.refs > 0 || h.disposed {
		h.mu.Unlock()
		return nil
	}
	h.disposed = true
	h.mu.Unlock()

	if h.borrowed {
		return nil
	}
	if d, ok := asDisposable(h.value); ok {
		return d.Close()
	}
	return nil
}
