package di

import (
	"fmt"
	"reflect"
	"sync"
)

// storageKind is the representation a binding stores its instances in.
type storageKind int

const (
	// storageSnapshot is a literal value captured at bind time; read-only.
	storageSnapshot storageKind = iota

	// storageOwned is a fresh Unique instance owned by its consumer.
	storageOwned

	// storageShared is a cached instance held behind a reference-counted handle.
	storageShared
)

func (s storageKind) String() string {
	switch s {
	case storageSnapshot:
		return "snapshot"
	case storageOwned:
		return "owned"
	case storageShared:
		return "shared"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// allows reports whether instances stored as s can be handed out in form f.
func (s storageKind) allows(f AccessForm) bool {
	switch s {
	case storageSnapshot:
		return f == FormValue || f == FormConstRef
	case storageOwned:
		return f == FormValue || f == FormRef || f == FormConstRef
	case storageShared:
		return f.IsValid()
	default:
		return false
	}
}

// storage is a realized instance before it is adapted to an access form.
// value is always addressable.
type storage struct {
	kind   storageKind
	value  reflect.Value
	handle *handle
}

func ownedStorage(v reflect.Value, t reflect.Type) storage {
	cell := reflect.New(t).Elem()
	cell.Set(v)
	return storage{kind: storageOwned, value: cell}
}

func sharedStorage(h *handle) storage {
	return storage{kind: storageShared, value: h.value, handle: h}
}

// adapt exposes st in exactly the requested form. Borrows point at the
// stored cell; only FormValue copies.
func adapt(key Key, st storage, form AccessForm) (*Instance, error) {
	if !st.kind.allows(form) {
		return nil, IncompatibleAccessFormError{Key: key, Form: form, Storage: st.kind.String()}
	}

	inst := &Instance{key: key, form: form}
	switch form {
	case FormValue:
		cp := reflect.New(st.value.Type()).Elem()
		cp.Set(st.value)
		inst.value = cp
	case FormRef, FormConstRef:
		inst.ptr = st.value.Addr()
	case FormShared:
		st.handle.retain()
		inst.handle = st.handle
	}

	return inst, nil
}

// Instance is a resolved dependency in one access form. Exactly one of its
// variants is populated, selected by Form.
type Instance struct {
	key  Key
	form AccessForm

	value  reflect.Value // FormValue
	ptr    reflect.Value // FormRef, FormConstRef
	handle *handle       // FormShared

	releaseOnce sync.Once
}

// Form returns the access form of the instance.
func (i *Instance) Form() AccessForm {
	return i.form
}

// Key returns the key the instance was resolved for.
func (i *Instance) Key() Key {
	return i.key
}

// Type returns the bound type of the instance.
func (i *Instance) Type() reflect.Type {
	return i.key.Type
}

// Interface returns the instance as a Go value: the copy for FormValue and a
// pointer to the stored instance for the other forms.
func (i *Instance) Interface() any {
	switch i.form {
	case FormValue:
		return i.value.Interface()
	case FormRef, FormConstRef:
		return i.ptr.Interface()
	case FormShared:
		return i.handle.value.Addr().Interface()
	}
	return nil
}

// Addr returns the address of the stored instance, or 0 for FormValue.
func (i *Instance) Addr() uintptr {
	switch i.form {
	case FormRef, FormConstRef:
		return i.ptr.Pointer()
	case FormShared:
		return i.handle.value.Addr().Pointer()
	}
	return 0
}

// Release drops the reference held by a FormShared instance. It is a no-op
// for other forms and after the first call.
func (i *Instance) Release() error {
	if i.form != FormShared {
		return nil
	}
	var err error
	i.releaseOnce.Do(func() {
		err = i.handle.release()
	})
	return err
}

// wrap converts the instance to a value of the raw parameter type t, which
// may be a plain type, a form wrapper, or Named around either.
func (i *Instance) wrap(t reflect.Type) reflect.Value {
	if tw, ok := markerOf[tagWrapper](t); ok {
		return tw.fromInner(i.wrap(tw.innerType()))
	}
	if fw, ok := markerOf[formWrapper](t); ok {
		return fw.fromInstance(i)
	}
	if i.value.Type() == t {
		return i.value
	}
	out := reflect.New(t).Elem()
	out.Set(i.value)
	return out
}

func checkInstance(inst *Instance, form AccessForm, want reflect.Type) error {
	if inst == nil {
		return fmt.Errorf("instance cannot be nil")
	}
	if inst.form != form {
		return IncompatibleAccessFormError{Key: inst.key, Form: form, Storage: "a " + inst.form.String() + " instance"}
	}
	if form == FormValue {
		if !inst.value.Type().AssignableTo(want) {
			return TypeMismatchError{Expected: want, Actual: inst.value.Type(), Context: "instance value"}
		}
		return nil
	}
	if inst.key.Type != want {
		return TypeMismatchError{Expected: want, Actual: inst.key.Type, Context: "instance " + form.String()}
	}
	return nil
}

// ValueOf returns the value of a FormValue instance.
func ValueOf[T any](inst *Instance) (T, error) {
	var zero T
	if err := checkInstance(inst, FormValue, typeOf[T]()); err != nil {
		return zero, err
	}
	v, _ := inst.value.Interface().(T)
	return v, nil
}

// RefOf returns the borrow held by a FormRef instance.
func RefOf[T any](inst *Instance) (Ref[T], error) {
	if err := checkInstance(inst, FormRef, typeOf[T]()); err != nil {
		return Ref[T]{}, err
	}
	return Ref[T]{}.fromInstance(inst).Interface().(Ref[T]), nil
}

// ConstRefOf returns the borrow held by a FormConstRef instance.
func ConstRefOf[T any](inst *Instance) (ConstRef[T], error) {
	if err := checkInstance(inst, FormConstRef, typeOf[T]()); err != nil {
		return ConstRef[T]{}, err
	}
	return ConstRef[T]{}.fromInstance(inst).Interface().(ConstRef[T]), nil
}

// SharedOf returns the handle held by a FormShared instance. The returned
// handle owns the instance's reference.
func SharedOf[T any](inst *Instance) (Shared[T], error) {
	if err := checkInstance(inst, FormShared, typeOf[T]()); err != nil {
		return Shared[T]{}, err
	}
	return Shared[T]{h: inst.handle}, nil
}
