package di

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/di/internal/graph"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that typed errors match through errors.Is.
// Never return these directly to users - always wrap them with context.

var (
	// Resolution errors.
	ErrUnresolvedDependency   = errors.New("unresolved dependency")
	ErrAmbiguousBinding       = errors.New("ambiguous binding")
	ErrIncompatibleAccessForm = errors.New("incompatible access form")
	ErrCyclicDependency       = errors.New("cyclic dependency")
	ErrProviderFailure        = errors.New("provider failed")
	ErrPolicyViolation        = errors.New("policy violation")
	ErrMaxDepthExceeded       = errors.New("maximum resolution depth exceeded")
	ErrLifetimeConflict       = errors.New("lifetime conflict")

	// Lifecycle errors.
	ErrInjectorClosed  = errors.New("injector has been closed")
	ErrCollectionBuilt = errors.New("collection has already been built")

	// Registration errors.
	ErrNilProvider  = errors.New("provider cannot be nil")
	ErrInvalidScope = errors.New("invalid scope")
	ErrInvalidKey   = errors.New("invalid key")
)

var (
	_ error = UnresolvedDependencyError{}
	_ error = AmbiguousBindingError{}
	_ error = IncompatibleAccessFormError{}
	_ error = CyclicDependencyError{}
	_ error = ProviderFailureError{}
	_ error = PolicyViolationError{}
	_ error = LifetimeConflictError{}
	_ error = RegistrationError{}
	_ error = ModuleError{}
	_ error = TypeMismatchError{}
	_ error = ScopeError{}
	_ error = DisposalError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// UnresolvedDependencyError indicates that no eligible binding exists for a key.
type UnresolvedDependencyError struct {
	Key Key

	// Path is the chain of keys that led to the request, outermost first.
	Path []Key
}

func (e UnresolvedDependencyError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("unresolved dependency: %s", e.Key))
	if len(e.Path) > 0 {
		b.WriteString(fmt.Sprintf(" (required by %s)", formatPath(e.Path)))
	}
	b.WriteString("\n\nMake sure a binding exists for the type, or that its guard allows this resolution.")
	return b.String()
}

func (e UnresolvedDependencyError) Is(target error) bool {
	return target == ErrUnresolvedDependency
}

// AmbiguousBindingError indicates that more than one candidate matched with equal
// specificity and no tie-break applies.
type AmbiguousBindingError struct {
	Key Key

	// Candidates is the number of tied bindings or constructors.
	Candidates int

	// Reason is "bindings" or "constructors".
	Reason string
}

func (e AmbiguousBindingError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("ambiguous %s for %s: %d candidates tie\n\n", e.Reason, e.Key, e.Candidates))
	b.WriteString("To resolve this:\n")
	b.WriteString("  • Tag the bindings with distinct marker types\n")
	b.WriteString("  • Guard the bindings with mutually exclusive policies\n")
	b.WriteString("  • Remove the duplicate registration\n")
	return b.String()
}

func (e AmbiguousBindingError) Is(target error) bool {
	return target == ErrAmbiguousBinding
}

// IncompatibleAccessFormError indicates the stored representation of a binding
// cannot provide the requested access form.
type IncompatibleAccessFormError struct {
	Key     Key
	Form    AccessForm
	Storage string
}

func (e IncompatibleAccessFormError) Error() string {
	return fmt.Sprintf("%s cannot be provided as %s: binding is stored as %s", e.Key, e.Form, e.Storage)
}

func (e IncompatibleAccessFormError) Is(target error) bool {
	return target == ErrIncompatibleAccessForm
}

// CyclicDependencyError indicates the dependency graph contains a cycle.
type CyclicDependencyError struct {
	// Path lists the keys of the cycle, starting at the repeated key.
	Path []Key
}

func (e CyclicDependencyError) Error() string {
	var b strings.Builder
	b.WriteString((&graph.CircularDependencyError[Key]{Path: e.Path}).Error())
	b.WriteString("\n\nNo constructor on the cycle can run first. Give one of the types a")
	b.WriteString("\nconstructor that does not take the next one, or take the dependency")
	b.WriteString("\nthrough a key bound to a value.")
	return b.String()
}

func (e CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// ProviderFailureError wraps an error returned (or a panic raised) by a
// user-supplied constructor, together with the dependency path that led to it.
type ProviderFailureError struct {
	Key   Key
	Path  []Key
	Cause error

	// Panic is the recovered value when the constructor panicked.
	Panic any
	Stack []byte
}

func (e ProviderFailureError) Error() string {
	var b strings.Builder
	if e.Panic != nil {
		b.WriteString(fmt.Sprintf("provider for %s panicked: %v", e.Key, e.Panic))
	} else {
		b.WriteString(fmt.Sprintf("provider for %s failed: %v", e.Key, e.Cause))
	}
	if len(e.Path) > 1 {
		b.WriteString(fmt.Sprintf("\n  resolution path: %s", formatPath(e.Path)))
	}
	return b.String()
}

func (e ProviderFailureError) Is(target error) bool {
	return target == ErrProviderFailure
}

func (e ProviderFailureError) Unwrap() error {
	return e.Cause
}

// PolicyViolationError indicates the injector-wide policy rejected a dependency.
type PolicyViolationError struct {
	Key    Key
	Policy string
	Path   []Key
}

func (e PolicyViolationError) Error() string {
	msg := fmt.Sprintf("policy %s rejected %s", e.Policy, e.Key)
	if len(e.Path) > 0 {
		msg += fmt.Sprintf(" (required by %s)", formatPath(e.Path))
	}
	return msg
}

func (e PolicyViolationError) Is(target error) bool {
	return target == ErrPolicyViolation
}

// LifetimeConflictError indicates a Singleton whose construction would capture
// a SharedPerRequest instance. The request instance is released when the
// first Build call ends while the Singleton keeps it for the injector's
// lifetime.
type LifetimeConflictError struct {
	Key   Key
	Scope ScopeKind

	// Dependency is the SharedPerRequest key reached from Key, either directly
	// or through Unique and alias bindings.
	Dependency      Key
	DependencyScope ScopeKind
}

func (e LifetimeConflictError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("lifetime conflict: %s (%s) cannot depend on %s (%s)\n\n",
		e.Key, e.Scope, e.Dependency, e.DependencyScope))
	b.WriteString("A Singleton outlives the request that created its dependency.\n")
	b.WriteString("Bind the dependency as Singleton, or the consumer as SharedPerRequest or Unique.\n")
	return b.String()
}

func (e LifetimeConflictError) Is(target error) bool {
	return target == ErrLifetimeConflict
}

// RegistrationError wraps errors during binding registration.
type RegistrationError struct {
	Key       Key
	Operation string // "bind", "alias", "constructor", "build"
	Cause     error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Key, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a type assertion or conversion failed.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "type assertion", "binding", etc.
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// ScopeError indicates an invalid scope kind value.
type ScopeError struct {
	Value any
}

func (e ScopeError) Error() string {
	return fmt.Sprintf("invalid scope: %v", e.Value)
}

func (e ScopeError) Is(target error) bool {
	return target == ErrInvalidScope
}

// DisposalError aggregates disposal errors
type DisposalError struct {
	Context string // "injector", "request", "shared"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// IsUnresolved reports whether err is caused by a missing binding.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolvedDependency)
}

// IsCyclic reports whether err is caused by a dependency cycle.
func IsCyclic(err error) bool {
	return errors.Is(err, ErrCyclicDependency)
}

// IsAmbiguous reports whether err is caused by tied bindings or constructors.
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguousBinding)
}

// isFatalPlanError reports errors that stop constructor fallback instead of
// degrading to the next candidate.
func isFatalPlanError(err error) bool {
	return errors.Is(err, ErrCyclicDependency) ||
		errors.Is(err, ErrAmbiguousBinding) ||
		errors.Is(err, ErrPolicyViolation) ||
		errors.Is(err, ErrLifetimeConflict) ||
		errors.Is(err, ErrMaxDepthExceeded)
}

func formatPath(path []Key) string {
	parts := make([]string, len(path))
	for i, k := range path {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
