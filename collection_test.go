package di_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/di"
	"github.com/junioryono/di/internal/testutil"
	"github.com/junioryono/di/policy"
)

func TestCollection_Bind(t *testing.T) {
	t.Parallel()

	t.Run("creates empty collection", func(t *testing.T) {
		t.Parallel()

		c := di.NewCollection()
		assert.Equal(t, 0, c.Count())
	})

	t.Run("tracks registered keys", func(t *testing.T) {
		t.Parallel()

		c := di.NewCollection()
		require.NoError(t, di.Bind[Config](c, di.Value(Config{})))
		require.NoError(t, di.Bind[int](c, di.Value(1), di.Tagged[primary]()))

		assert.Equal(t, 2, c.Count())
		assert.True(t, c.Contains(reflect.TypeOf(Config{})))
		assert.False(t, c.Contains(reflect.TypeOf(0)))
		assert.True(t, c.ContainsTagged(reflect.TypeOf(0), reflect.TypeOf(primary{})))
	})

	t.Run("Add with explicit scope", func(t *testing.T) {
		t.Parallel()

		c := di.NewCollection()
		require.NoError(t, c.Add(di.KeyOf[*testutil.TestService](), di.Singleton, di.Factory(testutil.NewTestService)))
		inj := buildInjector(t, c)

		bindings := inj.Bindings()
		require.Len(t, bindings, 1)
		assert.Equal(t, di.Singleton, bindings[0].Scope)
		assert.Len(t, bindings[0].Constructors(), 1)
	})

	t.Run("Remove", func(t *testing.T) {
		t.Parallel()

		c := di.NewCollection()
		require.NoError(t, di.Bind[string](c, di.Value("a")))
		require.NoError(t, di.Bind[string](c, di.Value("b")))
		require.NoError(t, di.Bind[int](c, di.Value(1)))

		c.Remove(di.KeyOf[string]())
		assert.Equal(t, 1, c.Count())
		assert.False(t, c.Contains(reflect.TypeOf("")))
	})
}

func TestCollection_BindErrors(t *testing.T) {
	t.Parallel()

	testutil.RunErrorTestCases(t, []testutil.ErrorTestCase{
		{
			Name: "nil value",
			Action: func(t *testing.T) error {
				return di.Bind[testutil.TestLogger](di.NewCollection(), di.Value(nil))
			},
			WantError: di.ErrNilProvider,
		},
		{
			Name: "empty factory",
			Action: func(t *testing.T) error {
				return di.Bind[Config](di.NewCollection(), di.Factory())
			},
			WantError: di.ErrNilProvider,
		},
		{
			Name: "value scoped below singleton",
			Action: func(t *testing.T) error {
				return di.Bind[Config](di.NewCollection(), di.Value(Config{}), di.InScope(di.Unique))
			},
			WantError: di.ErrInvalidScope,
		},
		{
			Name: "invalid scope",
			Action: func(t *testing.T) error {
				return di.Bind[Config](di.NewCollection(), di.Factory(func() Config { return Config{} }), di.InScope(di.ScopeKind(9)))
			},
			WantError: di.ErrInvalidScope,
		},
		{
			Name: "self alias",
			Action: func(t *testing.T) error {
				return di.Bind[Config](di.NewCollection(), di.Alias[Config]())
			},
			WantError: di.ErrInvalidKey,
		},
		{
			Name: "value of the wrong type",
			Action: func(t *testing.T) error {
				return di.Bind[Config](di.NewCollection(), di.Value("config"))
			},
			CheckErr: func(t *testing.T, err error) {
				testutil.AssertErrorType[di.TypeMismatchError](t, err)
			},
		},
		{
			Name: "constructor of the wrong type",
			Action: func(t *testing.T) error {
				return di.Bind[Config](di.NewCollection(), di.Factory(func() int { return 0 }))
			},
			CheckErr: func(t *testing.T, err error) {
				testutil.AssertErrorType[di.TypeMismatchError](t, err)
			},
		},
		{
			Name: "variadic constructor",
			Action: func(t *testing.T) error {
				return di.Bind[Config](di.NewCollection(), di.Factory(func(names ...string) Config { return Config{} }))
			},
			CheckErr: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "variadic")
			},
		},
		{
			Name: "nested access forms",
			Action: func(t *testing.T) error {
				return di.Bind[Config](di.NewCollection(), di.Factory(func(r di.Ref[di.Shared[int]]) Config { return Config{} }))
			},
			CheckErr: func(t *testing.T, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "cannot be nested")
			},
		},
		{
			Name: "nil constructor",
			Action: func(t *testing.T) error {
				return di.NewCollection().AddConstructors(nil)
			},
			WantError: di.ErrNilProvider,
		},
		{
			Name: "guard is validated",
			Action: func(t *testing.T) error {
				return di.Bind[Config](di.NewCollection(), di.Value(Config{}), di.When(policy.Predicate{Kind: policy.KindAnd}))
			},
			WantError: policy.ErrMalformed,
			CheckErr: func(t *testing.T, err error) {
				testutil.AssertErrorType[di.RegistrationError](t, err)
			},
		},
	})
}

func TestCollection_BuildFreezes(t *testing.T) {
	t.Parallel()

	c := di.NewCollection()
	require.NoError(t, di.Bind[Config](c, di.Value(Config{})))
	buildInjector(t, c)

	_, err := c.Build()
	assert.ErrorIs(t, err, di.ErrCollectionBuilt)

	err = di.Bind[int](c, di.Value(1))
	assert.ErrorIs(t, err, di.ErrCollectionBuilt)

	assert.ErrorIs(t, c.AddConstructors(NewRepository), di.ErrCollectionBuilt)

	c.Remove(di.KeyOf[Config]())
	assert.Equal(t, 1, c.Count())
}

func TestCollection_DefaultScope(t *testing.T) {
	t.Parallel()

	var counter testutil.Counter
	c := di.NewCollection()
	require.NoError(t, di.Bind[*testutil.TestService](c, di.Factory(func() *testutil.TestService {
		counter.Inc()
		return testutil.NewTestService()
	})))
	require.NoError(t, di.Bind[*testutil.TestService](c, di.Factory(testutil.NewTestService), di.Tagged[primary](), di.InScope(di.Unique)))

	cfg := di.DefaultConfig()
	cfg.DefaultScope = di.Singleton
	inj := buildInjector(t, c, di.WithConfig(cfg))

	first, err := di.Build[*testutil.TestService](inj)
	require.NoError(t, err)
	second, err := di.Build[*testutil.TestService](inj)
	require.NoError(t, err)
	testutil.AssertSameInstance(t, first, second)
	assert.Equal(t, 1, counter.Value())

	a, err := di.BuildTagged[*testutil.TestService, primary](inj)
	require.NoError(t, err)
	b, err := di.BuildTagged[*testutil.TestService, primary](inj)
	require.NoError(t, err)
	testutil.AssertDifferentInstances(t, a, b, "explicit scope overrides the default")
}

func TestCollection_EagerValidation(t *testing.T) {
	t.Parallel()

	c := di.NewCollection()
	require.NoError(t, di.Bind[*Repository](c, di.Factory(NewRepository)))
	require.NoError(t, di.Bind[Config](c, di.Value(Config{})))

	cfg := di.DefaultConfig()
	cfg.EagerValidation = true
	_, err := c.Build(di.WithConfig(cfg))
	require.Error(t, err)
	assert.True(t, di.IsUnresolved(err))
}

func TestInjector_ValidateSkipsUnselectedBindings(t *testing.T) {
	t.Parallel()

	c := di.NewCollection()
	// both need an unbound Config but can never be selected
	require.NoError(t, di.Bind[*Service](c, di.Factory(func(Config) *Service { return &Service{} })))
	require.NoError(t, di.Bind[*Service](c, di.Factory(func() *Service { return &Service{} })))
	require.NoError(t, di.Bind[*Service](c, di.Factory(func(Config) *Service { return &Service{} }), di.When(policy.Always(false))))

	inj := buildInjector(t, c)
	assert.NoError(t, inj.Validate())

	cfg := di.DefaultConfig()
	cfg.EagerValidation = true
	other := di.NewCollection()
	require.NoError(t, di.Bind[*Service](other, di.Factory(func() *Service { return &Service{} })))
	require.NoError(t, di.Bind[*Service](other, di.Factory(func(Config) *Service { return &Service{} })))
	_, err := other.Build(di.WithConfig(cfg))
	assert.True(t, di.IsUnresolved(err), "the selected binding is still validated")
}

func TestInjector_Metadata(t *testing.T) {
	t.Parallel()

	c := di.NewCollection()
	require.NoError(t, di.Bind[Config](c, di.Value(Config{}), di.When(policy.Always(true))))
	inj := buildInjector(t, c)

	assert.NotEmpty(t, inj.ID())

	bindings := inj.Bindings()
	require.Len(t, bindings, 1)
	assert.Equal(t, di.KeyOf[Config](), bindings[0].Key)
	assert.Contains(t, bindings[0].String(), "when always(true)")
	assert.NoError(t, inj.Validate())
}

func TestMustBuild(t *testing.T) {
	t.Parallel()

	c := di.NewCollection()
	require.NoError(t, di.Bind[Config](c, di.Value(Config{Name: "must"})))
	inj := buildInjector(t, c)

	assert.Equal(t, "must", di.MustBuild[Config](inj).Name)
	assert.Panics(t, func() { di.MustBuild[*Repository](inj) })

	_, err := di.Build[Config](nil)
	assert.ErrorIs(t, err, di.ErrNilInjector)
}
