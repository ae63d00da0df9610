package di_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/di"
	"github.com/junioryono/di/internal/testutil"
)

// Marker tags.
type (
	primary struct{}
	replica struct{}
	tagA    struct{}
	tagB    struct{}
)

type Config struct {
	Name string
	Port int
}

type Repository struct {
	DB *testutil.TestDisposable
}

type Service struct {
	Repo   *Repository
	Logger testutil.TestLogger
}

func NewRepository(db *testutil.TestDisposable) *Repository {
	return &Repository{DB: db}
}

func NewService(repo *Repository, logger testutil.TestLogger) *Service {
	return &Service{Repo: repo, Logger: logger}
}

// pooledConn is closed through its pointer receiver.
type pooledConn struct {
	name     string
	recorder *testutil.DisposalRecorder
}

func (c *pooledConn) Close() error {
	c.recorder.Record(c.name)
	return nil
}

// Cyclic types.
type (
	cycA struct{ b *cycB }
	cycB struct{ a *cycA }
)

func newCollection(t *testing.T, binds ...func(c *di.Collection) error) *di.Collection {
	t.Helper()

	c := di.NewCollection()
	for _, bind := range binds {
		require.NoError(t, bind(c))
	}
	return c
}

func buildInjector(t *testing.T, c *di.Collection, opts ...di.Option) *di.Injector {
	t.Helper()

	inj, err := c.Build(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inj.Close() })
	return inj
}

// disposableFactory returns a constructor that creates named disposables in
// sequence and counts its invocations.
func disposableFactory(name string, recorder *testutil.DisposalRecorder, counter *testutil.Counter) func() *testutil.TestDisposable {
	return func() *testutil.TestDisposable {
		n := counter.Inc()
		return testutil.NewTestDisposable(fmt.Sprintf("%s-%d", name, n), recorder)
	}
}
