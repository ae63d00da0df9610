package di

import (
	"fmt"
	"reflect"

	"github.com/junioryono/di/policy"
)

type providerKind int

const (
	providerValue providerKind = iota
	providerFactory
	providerAlias
)

func (k providerKind) String() string {
	switch k {
	case providerValue:
		return "value"
	case providerFactory:
		return "factory"
	case providerAlias:
		return "alias"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ProviderSpec describes how a binding produces its instances.
// Use Value, Factory, Alias or AliasTagged to create one.
type ProviderSpec struct {
	kind   providerKind
	value  reflect.Value
	fns    []any
	target Key
}

// Value binds a literal. The literal is captured as a read-only snapshot and
// can be requested by value or as ConstRef, never as Ref or Shared.
func Value(v any) ProviderSpec {
	return ProviderSpec{kind: providerValue, value: reflect.ValueOf(v)}
}

// Factory binds one or more constructor functions producing the bound type.
// Each must return T or (T, error). When several are given, the injector
// prefers the one with the most parameters it can satisfy.
func Factory(fns ...any) ProviderSpec {
	return ProviderSpec{kind: providerFactory, fns: fns}
}

// Alias binds to the instance produced for the untagged key of U.
// U must be assignable to the bound type.
func Alias[U any]() ProviderSpec {
	return AliasKey(KeyOf[U]())
}

// AliasTagged binds to the instance produced for U tagged with Tag.
func AliasTagged[U, Tag any]() ProviderSpec {
	return AliasKey(TaggedKeyOf[U, Tag]())
}

// AliasKey binds to the instance produced for target.
func AliasKey(target Key) ProviderSpec {
	return ProviderSpec{kind: providerAlias, target: target}
}

// Binding maps a key to a provider and a scope.
type Binding struct {
	Key   Key
	Scope ScopeKind

	// Guard, when set, must evaluate true for the binding to be eligible.
	Guard *policy.Predicate

	provider ProviderSpec
	ctors    []Constructor // providerFactory
	snapshot reflect.Value // providerValue, addressable

	seq      int
	scopeSet bool
	implicit bool
}

// String returns a description of the binding.
func (b *Binding) String() string {
	s := fmt.Sprintf("%s -> %s (%s)", b.Key, b.provider.kind, b.Scope)
	if b.provider.kind == providerAlias {
		s = fmt.Sprintf("%s -> %s (%s)", b.Key, b.provider.target, b.Scope)
	}
	if b.Guard != nil {
		s += " when " + b.Guard.String()
	}
	return s
}

// Constructors returns the constructor candidates of a factory binding.
func (b *Binding) Constructors() []Constructor {
	out := make([]Constructor, len(b.ctors))
	copy(out, b.ctors)
	return out
}

// storage returns the representation instances of this binding are held in.
func (b *Binding) storage() storageKind {
	switch {
	case b.provider.kind == providerValue:
		return storageSnapshot
	case b.Scope.cached():
		return storageShared
	default:
		return storageOwned
	}
}

// ownsInstances reports whether the binding is responsible for disposing
// what it produces. Aliases hand out instances owned by their target.
func (b *Binding) ownsInstances() bool {
	return b.provider.kind != providerAlias
}

// prepare validates the provider against the key and analyzes constructors.
func (b *Binding) prepare() error {
	if b.Key.Type == nil {
		return ErrInvalidKey
	}
	if !b.Scope.IsValid() {
		return ScopeError{Value: int(b.Scope)}
	}

	switch b.provider.kind {
	case providerValue:
		v := b.provider.value
		if !v.IsValid() {
			return ErrNilProvider
		}
		if !v.Type().AssignableTo(b.Key.Type) {
			return TypeMismatchError{Expected: b.Key.Type, Actual: v.Type(), Context: "value binding"}
		}
		if b.scopeSet && b.Scope != Singleton {
			return fmt.Errorf("%w: value bindings live as long as the injector, got %s", ErrInvalidScope, b.Scope)
		}
		b.Scope = Singleton
		b.scopeSet = true
		b.snapshot = reflect.New(b.Key.Type).Elem()
		b.snapshot.Set(v)

	case providerFactory:
		if len(b.provider.fns) == 0 {
			return ErrNilProvider
		}
		b.ctors = make([]Constructor, 0, len(b.provider.fns))
		for _, fn := range b.provider.fns {
			if fn == nil {
				return ErrNilProvider
			}
			ctor, err := DescribeFunc(fn)
			if err != nil {
				return err
			}
			if !ctor.Out.AssignableTo(b.Key.Type) {
				return TypeMismatchError{Expected: b.Key.Type, Actual: ctor.Out, Context: "constructor result"}
			}
			b.ctors = append(b.ctors, ctor)
		}

	case providerAlias:
		target := b.provider.target
		if target.Type == nil {
			return ErrInvalidKey
		}
		if target == b.Key {
			return fmt.Errorf("%w: %s aliases itself", ErrInvalidKey, b.Key)
		}
		if !target.Type.AssignableTo(b.Key.Type) {
			return TypeMismatchError{Expected: b.Key.Type, Actual: target.Type, Context: "alias target"}
		}

	default:
		return ErrNilProvider
	}

	if b.Guard != nil {
		if err := b.Guard.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// A BindOption modifies the default behavior of Bind and Collection.Add.
type BindOption interface {
	applyBindOption(*bindOptions)
}

type bindOptions struct {
	tag      reflect.Type
	scope    ScopeKind
	scopeSet bool
	guard    *policy.Predicate
}

type bindOptionFunc func(*bindOptions)

func (f bindOptionFunc) applyBindOption(o *bindOptions) {
	f(o)
}

// Tagged binds under the marker type Tag.
//
//	type Primary struct{}
//
//	di.Bind[*sql.DB](c, di.Factory(OpenPrimary), di.Tagged[Primary]())
func Tagged[Tag any]() BindOption {
	return bindOptionFunc(func(o *bindOptions) {
		o.tag = typeOf[Tag]()
	})
}

// InScope sets the scope of the binding. Without it the binding uses the
// injector's default scope (Unique unless configured otherwise).
func InScope(kind ScopeKind) BindOption {
	return bindOptionFunc(func(o *bindOptions) {
		o.scope = kind
		o.scopeSet = true
	})
}

// When guards the binding: it is only eligible while pred holds.
func When(pred policy.Predicate) BindOption {
	return bindOptionFunc(func(o *bindOptions) {
		p := pred
		o.guard = &p
	})
}
