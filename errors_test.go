package di_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/junioryono/di"
	"github.com/junioryono/di/internal/testutil"
)

func TestTypedErrors_MatchSentinels(t *testing.T) {
	t.Parallel()

	key := di.KeyOf[Config]()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"unresolved", di.UnresolvedDependencyError{Key: key}, di.ErrUnresolvedDependency},
		{"ambiguous", di.AmbiguousBindingError{Key: key, Candidates: 2, Reason: "bindings"}, di.ErrAmbiguousBinding},
		{"access form", di.IncompatibleAccessFormError{Key: key, Form: di.FormRef, Storage: "snapshot"}, di.ErrIncompatibleAccessForm},
		{"cyclic", di.CyclicDependencyError{Path: []di.Key{key}}, di.ErrCyclicDependency},
		{"provider", di.ProviderFailureError{Key: key, Cause: testutil.ErrTest}, di.ErrProviderFailure},
		{"policy", di.PolicyViolationError{Key: key, Policy: "is_root"}, di.ErrPolicyViolation},
		{"scope", di.ScopeError{Value: 9}, di.ErrInvalidScope},
		{"lifetime", di.LifetimeConflictError{Key: key, Scope: di.Singleton, Dependency: di.KeyOf[*Repository](), DependencyScope: di.SharedPerRequest}, di.ErrLifetimeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.ErrorIs(t, fmt.Errorf("wrapped: %w", tt.err), tt.sentinel)
			assert.NotEmpty(t, tt.err.Error())

			for _, other := range tests {
				if other.sentinel != tt.sentinel {
					assert.NotErrorIs(t, tt.err, other.sentinel)
				}
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	cfg := di.KeyOf[Config]()
	repo := di.KeyOf[*Repository]()

	t.Run("unresolved with path", func(t *testing.T) {
		t.Parallel()

		err := di.UnresolvedDependencyError{Key: cfg, Path: []di.Key{repo}}
		assert.Contains(t, err.Error(), "unresolved dependency: di_test.Config")
		assert.Contains(t, err.Error(), "required by *di_test.Repository")
	})

	t.Run("tagged key", func(t *testing.T) {
		t.Parallel()

		key := di.TaggedKeyOf[int, primary]()
		assert.True(t, key.IsTagged())
		assert.Equal(t, di.KeyOf[int](), key.Untagged())
		assert.NotEqual(t, di.KeyOf[int]().String(), key.String())
		assert.Contains(t, key.String(), "di_test.primary")
	})

	t.Run("provider failure path", func(t *testing.T) {
		t.Parallel()

		err := di.ProviderFailureError{Key: cfg, Path: []di.Key{repo, cfg}, Cause: testutil.ErrTest}
		assert.Contains(t, err.Error(), "provider for di_test.Config failed: test error")
		assert.Contains(t, err.Error(), "*di_test.Repository -> di_test.Config")
		assert.Equal(t, testutil.ErrTest, errors.Unwrap(err))
	})

	t.Run("provider panic", func(t *testing.T) {
		t.Parallel()

		err := di.ProviderFailureError{Key: cfg, Panic: "boom"}
		assert.Contains(t, err.Error(), "panicked: boom")
	})

	t.Run("lifetime", func(t *testing.T) {
		t.Parallel()

		err := di.LifetimeConflictError{
			Key:             di.KeyOf[*Service](),
			Scope:           di.Singleton,
			Dependency:      di.KeyOf[*Repository](),
			DependencyScope: di.SharedPerRequest,
		}
		assert.Contains(t, err.Error(), "lifetime conflict: *di_test.Service (Singleton) cannot depend on *di_test.Repository (SharedPerRequest)")
	})

	t.Run("cycle", func(t *testing.T) {
		t.Parallel()

		err := di.CyclicDependencyError{Path: []di.Key{di.KeyOf[*cycA](), di.KeyOf[*cycB]()}}
		assert.Contains(t, err.Error(), "dependency cycle: *di_test.cycA -> *di_test.cycB -> *di_test.cycA")
	})

	t.Run("disposal", func(t *testing.T) {
		t.Parallel()

		single := di.DisposalError{Context: "request", Errors: []error{testutil.ErrDisposal}}
		assert.Equal(t, "request disposal failed: disposal error", single.Error())

		multi := di.DisposalError{Context: "injector", Errors: []error{testutil.ErrDisposal, testutil.ErrTest}}
		assert.Contains(t, multi.Error(), "2 errors")
		assert.ErrorIs(t, multi, testutil.ErrTest)
	})

	t.Run("registration and module", func(t *testing.T) {
		t.Parallel()

		reg := di.RegistrationError{Key: cfg, Operation: "bind", Cause: di.ErrNilProvider}
		mod := di.ModuleError{Module: "storage", Cause: reg}

		assert.ErrorIs(t, mod, di.ErrNilProvider)
		assert.Equal(t, `module "storage": failed to bind di_test.Config: provider cannot be nil`, mod.Error())
	})
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, di.IsUnresolved(di.UnresolvedDependencyError{}))
	assert.True(t, di.IsCyclic(di.CyclicDependencyError{}))
	assert.True(t, di.IsAmbiguous(di.AmbiguousBindingError{}))
	assert.False(t, di.IsUnresolved(testutil.ErrTest))
	assert.False(t, di.IsCyclic(nil))
}
