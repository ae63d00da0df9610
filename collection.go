package di

import (
	"reflect"

	"go.uber.org/zap"
)

// Collection holds the bindings and constructors an Injector is built from.
//
// Collection follows a builder pattern: bindings are registered with their
// scopes and providers, then built into an Injector. Build freezes the
// collection.
//
// Collection is NOT thread-safe. It should be configured in a single
// goroutine before building the Injector.
//
// Example:
//
//	c := di.NewCollection()
//	di.Bind[Logger](c, di.Factory(NewConsoleLogger), di.InScope(di.Singleton))
//	di.Bind[int](c, di.Value(8080), di.Tagged[HTTPPort]())
//	c.AddConstructors(NewServer)
//
//	inj, err := c.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inj.Close()
type Collection struct {
	bindings     []*Binding
	constructors *constructorRegistry
	seq          int
	built        bool
}

// NewCollection creates a new empty Collection.
func NewCollection() *Collection {
	return &Collection{
		constructors: newConstructorRegistry(),
	}
}

// Bind registers a binding for T. Without InScope the binding uses the
// injector's default scope.
//
// Example:
//
//	di.Bind[Logger](c, di.Alias[*ConsoleLogger]())
//	di.Bind[*sql.DB](c, di.Factory(OpenReplica), di.Tagged[Replica](), di.InScope(di.Singleton))
func Bind[T any](c *Collection, provider ProviderSpec, opts ...BindOption) error {
	return c.add(KeyOf[T](), Unique, false, provider, opts)
}

// Add registers a binding for key with an explicit scope.
func (c *Collection) Add(key Key, scope ScopeKind, provider ProviderSpec, opts ...BindOption) error {
	return c.add(key, scope, true, provider, opts)
}

func (c *Collection) add(key Key, scope ScopeKind, scopeSet bool, provider ProviderSpec, opts []BindOption) error {
	if c.built {
		return RegistrationError{Key: key, Operation: "bind", Cause: ErrCollectionBuilt}
	}

	o := bindOptions{scope: scope, scopeSet: scopeSet}
	for _, opt := range opts {
		if opt != nil {
			opt.applyBindOption(&o)
		}
	}
	if o.tag != nil {
		key.Tag = o.tag
	}

	b := &Binding{
		Key:      key,
		Scope:    o.scope,
		Guard:    o.guard,
		provider: provider,
		seq:      c.seq,
		scopeSet: o.scopeSet,
	}

	if err := b.prepare(); err != nil {
		return RegistrationError{Key: key, Operation: "bind", Cause: err}
	}

	c.seq++
	c.bindings = append(c.bindings, b)
	return nil
}

// AddConstructors registers constructors for types that have no binding of
// their own. When such a type is requested, the injector builds it as a
// Unique instance with the constructor whose parameters it can best satisfy.
func (c *Collection) AddConstructors(fns ...any) error {
	if c.built {
		return RegistrationError{Operation: "add constructor", Cause: ErrCollectionBuilt}
	}

	for _, fn := range fns {
		if fn == nil {
			return RegistrationError{Operation: "add constructor", Cause: ErrNilProvider}
		}
		ctor, err := DescribeFunc(fn)
		if err != nil {
			return RegistrationError{Operation: "add constructor", Cause: err}
		}
		c.constructors.add(ctor)
	}
	return nil
}

// AddModules applies one or more modules to the collection.
func (c *Collection) AddModules(modules ...ModuleOption) error {
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := m(c); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether an untagged binding exists for t.
func (c *Collection) Contains(t reflect.Type) bool {
	return c.ContainsTagged(t, nil)
}

// ContainsTagged reports whether a binding exists for t under tag.
func (c *Collection) ContainsTagged(t, tag reflect.Type) bool {
	key := Key{Type: t, Tag: tag}
	for _, b := range c.bindings {
		if b.Key == key {
			return true
		}
	}
	return false
}

// Remove removes all bindings for key.
func (c *Collection) Remove(key Key) {
	if c.built {
		return
	}
	kept := c.bindings[:0]
	for _, b := range c.bindings {
		if b.Key != key {
			kept = append(kept, b)
		}
	}
	for i := len(kept); i < len(c.bindings); i++ {
		c.bindings[i] = nil
	}
	c.bindings = kept
}

// Count returns the number of registered bindings.
func (c *Collection) Count() int {
	return len(c.bindings)
}

// Build creates an Injector from the registered bindings. The collection
// cannot be modified or built again afterwards.
func (c *Collection) Build(opts ...Option) (*Injector, error) {
	if c.built {
		return nil, ErrCollectionBuilt
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}
	if err := o.resolve(); err != nil {
		return nil, RegistrationError{Operation: "build", Cause: err}
	}

	bindings := make([]*Binding, len(c.bindings))
	for i, b := range c.bindings {
		cp := *b
		if !cp.scopeSet {
			cp.Scope = o.config.DefaultScope
		}
		bindings[i] = &cp
	}

	inj, err := newInjector(bindings, c.constructors.clone(), o)
	if err != nil {
		return nil, err
	}

	if o.config.EagerValidation {
		if err := inj.Validate(); err != nil {
			return nil, err
		}
	}

	if o.config.EagerSingletons {
		if err := inj.createAllSingletons(); err != nil {
			_ = inj.Close()
			return nil, err
		}
	}

	c.built = true
	inj.logger.Info("injector built",
		zap.Int("bindings", len(bindings)),
		zap.Int("singletons", inj.singletons.size()))

	return inj, nil
}
