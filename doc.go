// Package di resolves object graphs from an immutable table of bindings.
//
// # Overview
//
// A Collection maps keys to providers. Building it yields an Injector that
// selects bindings, plans a resolution, constructs every dependency in
// declared order and hands the result out in the requested access form:
//   - Keys are a type plus an optional marker-type tag
//   - Three scopes: Unique, SharedPerRequest and Singleton
//   - Four access forms: by value, Ref, ConstRef and Shared
//   - Binding guards and an injector-wide policy built from the policy package
//   - Constructor fallback: the constructor with the most satisfiable parameters wins
//   - Resolution errors are reported before any provider runs
//   - Thread-safe resolution with compute-once Singletons
//
// # Basic Usage
//
//	c := di.NewCollection()
//	di.Bind[Logger](c, di.Factory(NewLogger), di.InScope(di.Singleton))
//	di.Bind[*sql.DB](c, di.Factory(OpenDB), di.InScope(di.Singleton))
//	c.AddConstructors(NewUserService)
//
//	inj, err := c.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inj.Close()
//
//	svc, err := di.Build[*UserService](inj)
//
// # Tags
//
// Tags are empty struct types. A binding registered under a tag is chosen
// over an untagged binding of the same type; an untagged binding serves
// requests for any tag that has no binding of its own:
//
//	type Primary struct{}
//	type Replica struct{}
//
//	di.Bind[*sql.DB](c, di.Factory(OpenPrimary), di.Tagged[Primary]())
//	di.Bind[*sql.DB](c, di.Factory(OpenReplica), di.Tagged[Replica]())
//
//	func NewUserStore(db di.Named[*sql.DB, Primary]) *UserStore
//
// # Scopes
//
//   - Unique: every resolution invokes the provider; the consumer owns the instance
//   - SharedPerRequest: one instance per top-level Build call
//   - Singleton: one instance for the lifetime of the Injector
//
// Value bindings are read-only snapshots that live as long as the Injector.
// A Singleton cannot depend on a SharedPerRequest binding, directly or through
// Unique bindings.
//
// # Access Forms
//
// A constructor parameter's type selects how the dependency is handed over:
//
//	func NewHandler(
//	    cfg di.ConstRef[Config],  // read-only borrow, no copy
//	    cache di.Ref[Cache],      // mutable borrow
//	    pool di.Shared[Pool],     // reference-counted handle
//	    logger Logger,            // by value
//	) *Handler
//
// Borrows of a cached instance share its address. A Shared handle holds a
// reference; when the last reference is released a Disposable instance is
// closed. Not every binding can serve every form: value bindings cannot be
// borrowed mutably, and Unique instances cannot be shared.
//
// # Guards and Policies
//
// Guards make a binding conditional:
//
//	di.Bind[Mailer](c, di.Factory(NewLogMailer), di.When(policy.Not(policy.Bound[Mailer]())))
//
// An injector-wide policy is checked for every key resolved:
//
//	inj, err := c.Build(di.WithPolicy(policy.Or(policy.IsRoot(), policy.IsArgBound())))
//
// # Configuration
//
// Config can be loaded from YAML and DI_* environment variables with
// LoadConfig. Logging uses zap and metrics use Prometheus; see WithLogger and
// WithRegisterer.
//
// # Error Handling
//
// Every failure is a typed error matching one of the package's sentinels
// through errors.Is:
//   - UnresolvedDependencyError: no eligible binding for a key
//   - AmbiguousBindingError: bindings or constructors tie
//   - IncompatibleAccessFormError: the binding cannot provide the requested form
//   - CyclicDependencyError: the graph contains a cycle
//   - ProviderFailureError: a constructor returned an error or panicked
//   - PolicyViolationError: the injector-wide policy rejected a key
//   - LifetimeConflictError: a Singleton would hold a SharedPerRequest instance
package di
