package reflection_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/junioryono/di/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Database struct {
	DSN string
}

type Logger interface {
	Log(msg string)
}

type UserService struct {
	DB     *Database
	Logger Logger
}

func NewDatabase(dsn string) *Database {
	return &Database{DSN: dsn}
}

func NewUserService(db *Database, logger Logger) *UserService {
	return &UserService{DB: db, Logger: logger}
}

func NewUserServiceWithError(db *Database) (*UserService, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	return &UserService{DB: db}, nil
}

func TestAnalyzer_Analyze(t *testing.T) {
	t.Parallel()

	t.Run("simple constructor", func(t *testing.T) {
		t.Parallel()

		info, err := reflection.New().Analyze(NewDatabase)
		require.NoError(t, err)

		assert.Equal(t, []reflect.Type{reflect.TypeOf("")}, info.Params)
		assert.Equal(t, reflect.TypeOf(&Database{}), info.Out)
		assert.False(t, info.HasErrorReturn)
	})

	t.Run("multiple params keep declared order", func(t *testing.T) {
		t.Parallel()

		info, err := reflection.New().Analyze(NewUserService)
		require.NoError(t, err)

		require.Len(t, info.Params, 2)
		assert.Equal(t, reflect.TypeOf(&Database{}), info.Params[0])
		assert.Equal(t, reflect.TypeOf((*Logger)(nil)).Elem(), info.Params[1])
	})

	t.Run("error return", func(t *testing.T) {
		t.Parallel()

		info, err := reflection.New().Analyze(NewUserServiceWithError)
		require.NoError(t, err)

		assert.True(t, info.HasErrorReturn)
		assert.Equal(t, reflect.TypeOf(&UserService{}), info.Out)
	})

	t.Run("zero params", func(t *testing.T) {
		t.Parallel()

		info, err := reflection.New().Analyze(func() int { return 1 })
		require.NoError(t, err)
		assert.Empty(t, info.Params)
	})
}

func TestAnalyzer_AnalyzeInvalid(t *testing.T) {
	t.Parallel()

	var nilFn func() int

	tests := []struct {
		name string
		fn   any
		msg  string
	}{
		{"nil", nil, "cannot be nil"},
		{"nil func", nilFn, "cannot be nil"},
		{"not a function", 42, "must be a function"},
		{"variadic", func(xs ...int) int { return len(xs) }, "variadic"},
		{"no return", func() {}, "must return"},
		{"three returns", func() (int, int, error) { return 0, 0, nil }, "must return"},
		{"second not error", func() (int, int) { return 0, 0 }, "must be error"},
		{"only error", func() error { return nil }, "only returns error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := reflection.New().Analyze(tt.fn)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestAnalyzer_Cache(t *testing.T) {
	t.Parallel()

	a := reflection.New()

	first, err := a.Analyze(NewDatabase)
	require.NoError(t, err)
	second, err := a.Analyze(NewDatabase)
	require.NoError(t, err)

	assert.Equal(t, first.Params, second.Params)
	assert.Same(t, &first.Params[0], &second.Params[0], "signature is analyzed once per type")

	other, err := a.Analyze(NewUserService)
	require.NoError(t, err)
	assert.Len(t, other.Params, 2)
}

func TestAnalyzer_ClosuresKeepTheirOwnValue(t *testing.T) {
	t.Parallel()

	a := reflection.New()
	named := func(dsn string) func() *Database {
		return func() *Database { return &Database{DSN: dsn} }
	}

	primary, err := a.Analyze(named("primary"))
	require.NoError(t, err)
	replica, err := a.Analyze(named("replica"))
	require.NoError(t, err)

	p, err := reflection.Invoke(primary, nil)
	require.NoError(t, err)
	r, err := reflection.Invoke(replica, nil)
	require.NoError(t, err)

	assert.Equal(t, "primary", p.Interface().(*Database).DSN)
	assert.Equal(t, "replica", r.Interface().(*Database).DSN)
}

func TestAnalyzer_Concurrent(t *testing.T) {
	t.Parallel()

	a := reflection.New()

	results := make([]*reflection.FuncInfo, 50)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := a.Analyze(NewUserService)
			assert.NoError(t, err)
			results[i] = info
		}(i)
	}
	wg.Wait()

	cached, err := a.Analyze(NewUserService)
	require.NoError(t, err)
	for _, info := range results {
		assert.Equal(t, cached.Params, info.Params)
	}
}

func TestInvoke(t *testing.T) {
	t.Parallel()

	a := reflection.New()

	t.Run("returns value", func(t *testing.T) {
		t.Parallel()

		info, err := a.Analyze(NewDatabase)
		require.NoError(t, err)

		out, err := reflection.Invoke(info, []reflect.Value{reflect.ValueOf("postgres://")})
		require.NoError(t, err)
		assert.Equal(t, "postgres://", out.Interface().(*Database).DSN)
	})

	t.Run("returns constructor error", func(t *testing.T) {
		t.Parallel()

		info, err := a.Analyze(NewUserServiceWithError)
		require.NoError(t, err)

		_, err = reflection.Invoke(info, []reflect.Value{reflect.Zero(reflect.TypeOf(&Database{}))})
		require.Error(t, err)
		assert.Equal(t, "database is required", err.Error())
	})

	t.Run("recovers panic", func(t *testing.T) {
		t.Parallel()

		info, err := a.Analyze(func() int { panic("boom") })
		require.NoError(t, err)

		_, err = reflection.Invoke(info, nil)
		var panicErr *reflection.PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "boom", panicErr.Value)
		assert.NotEmpty(t, panicErr.Stack)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("argument count mismatch", func(t *testing.T) {
		t.Parallel()

		info, err := a.Analyze(NewUserService)
		require.NoError(t, err)

		_, err = reflection.Invoke(info, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expects 2 arguments")
	})
}
