package di

// ModuleOption represents a registration action within a module.
type ModuleOption func(*Collection) error

// NewModule creates a new module with the given name and registrations.
// Modules are a way to group related bindings together. Errors are wrapped
// in ModuleError with the module name.
//
// Example:
//
//	var StorageModule = di.NewModule("storage",
//	    di.Provide[*sql.DB](di.Factory(OpenPrimary), di.Tagged[Primary](), di.InScope(di.Singleton)),
//	    di.Provide[*sql.DB](di.Factory(OpenReplica), di.Tagged[Replica](), di.InScope(di.Singleton)),
//	    di.Provide[UserStore](di.Alias[*SQLUserStore]()),
//	    di.Constructors(NewSQLUserStore),
//	)
//
//	var AppModule = di.NewModule("app",
//	    StorageModule,
//	    di.Provide[*Server](di.Factory(NewServer)),
//	)
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(c *Collection) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(c); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// Provide creates a ModuleOption that binds T.
func Provide[T any](provider ProviderSpec, opts ...BindOption) ModuleOption {
	return func(c *Collection) error {
		return Bind[T](c, provider, opts...)
	}
}

// ProvideKey creates a ModuleOption that binds key with an explicit scope.
func ProvideKey(key Key, scope ScopeKind, provider ProviderSpec, opts ...BindOption) ModuleOption {
	return func(c *Collection) error {
		return c.Add(key, scope, provider, opts...)
	}
}

// Constructors creates a ModuleOption that registers constructors for
// types without a binding.
func Constructors(fns ...any) ModuleOption {
	return func(c *Collection) error {
		return c.AddConstructors(fns...)
	}
}
