package di

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/di/internal/reflection"
)

// analyzer caches signature analysis for every constructor seen by the package.
var analyzer = reflection.New()

// Dependency is one declared parameter of a constructor.
type Dependency struct {
	Key  Key
	Form AccessForm

	// Param is the declared Go type of the parameter, e.g. di.Named[di.Ref[Config], Primary].
	Param reflect.Type
}

// Constructor is a candidate way of producing a type: an analyzed function
// and its ordered dependencies.
type Constructor struct {
	Deps []Dependency
	Out  reflect.Type

	fn *reflection.FuncInfo
}

// Arity returns the number of dependencies.
func (c Constructor) Arity() int {
	return len(c.Deps)
}

// String returns the constructor signature.
func (c Constructor) String() string {
	if c.fn == nil {
		return "<nil>"
	}
	return c.fn.Type.String()
}

// Introspector describes the constructors available for a type. The injector
// consults it for types that have no binding of their own.
type Introspector interface {
	DescribeConstructors(t reflect.Type) ([]Constructor, error)
}

// DescribeFunc analyzes a constructor function. fn must return T or (T, error);
// each parameter is decoded into a dependency key and access form.
func DescribeFunc(fn any) (Constructor, error) {
	info, err := analyzer.Analyze(fn)
	if err != nil {
		return Constructor{}, err
	}

	ctor := Constructor{
		Deps: make([]Dependency, len(info.Params)),
		Out:  info.Out,
		fn:   info,
	}

	for i, p := range info.Params {
		dep, err := decodeParam(p)
		if err != nil {
			return Constructor{}, fmt.Errorf("parameter %d of %v: %w", i, info.Type, err)
		}
		ctor.Deps[i] = dep
	}

	return ctor, nil
}

// decodeParam splits a parameter type into key and form:
// [Named[...]] around [Ref|ConstRef|Shared] around the requested type.
func decodeParam(t reflect.Type) (Dependency, error) {
	dep := Dependency{Param: t, Form: FormValue}

	inner := t
	if tw, ok := markerOf[tagWrapper](t); ok {
		dep.Key.Tag = tw.tagType()
		inner = tw.innerType()
		if _, nested := markerOf[tagWrapper](inner); nested {
			return Dependency{}, fmt.Errorf("%v: Named cannot be nested", t)
		}
	}

	if fw, ok := markerOf[formWrapper](inner); ok {
		dep.Form = fw.accessForm()
		inner = fw.elemType()
		if _, nested := markerOf[formWrapper](inner); nested {
			return Dependency{}, fmt.Errorf("%v: access forms cannot be nested", t)
		}
		if _, nested := markerOf[tagWrapper](inner); nested {
			return Dependency{}, fmt.Errorf("%v: Named must wrap the access form, not the reverse", t)
		}
	}

	dep.Key.Type = inner
	return dep, nil
}

// invoke calls the constructor with the wrapped arguments.
func (c Constructor) invoke(args []reflect.Value) (reflect.Value, error) {
	return reflection.Invoke(c.fn, args)
}

// constructorRegistry is the default Introspector: constructors registered
// through Collection.AddConstructors, keyed by produced type.
type constructorRegistry struct {
	byType map[reflect.Type][]Constructor
}

func newConstructorRegistry() *constructorRegistry {
	return &constructorRegistry{byType: make(map[reflect.Type][]Constructor)}
}

func (r *constructorRegistry) add(ctor Constructor) {
	r.byType[ctor.Out] = append(r.byType[ctor.Out], ctor)
}

func (r *constructorRegistry) clone() *constructorRegistry {
	c := newConstructorRegistry()
	for t, ctors := range r.byType {
		c.byType[t] = append([]Constructor(nil), ctors...)
	}
	return c
}

// DescribeConstructors implements Introspector.
func (r *constructorRegistry) DescribeConstructors(t reflect.Type) ([]Constructor, error) {
	ctors := r.byType[t]
	if len(ctors) == 0 {
		return nil, nil
	}
	out := make([]Constructor, len(ctors))
	copy(out, ctors)
	return out, nil
}

func describeDeps(deps []Dependency) string {
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = d.Key.String()
		if d.Form != FormValue {
			parts[i] = d.Form.String() + "[" + parts[i] + "]"
		}
	}
	return strings.Join(parts, ", ")
}
