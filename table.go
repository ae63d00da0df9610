package di

import (
	"errors"
	"reflect"
	"sort"
	"sync"

	"github.com/junioryono/di/policy"
)

// bindingTable is the immutable set of bindings owned by an injector.
// Lookups are pure; the only mutable state is the memo of implicit bindings.
type bindingTable struct {
	byKey        map[Key][]*Binding // registration order
	all          []*Binding
	introspector Introspector
	strict       bool

	implicitMu sync.Mutex
	implicit   map[reflect.Type]*Binding
}

func newBindingTable(bindings []*Binding, introspector Introspector, strict bool) *bindingTable {
	t := &bindingTable{
		byKey:        make(map[Key][]*Binding),
		all:          bindings,
		introspector: introspector,
		strict:       strict,
		implicit:     make(map[reflect.Type]*Binding),
	}
	for _, b := range bindings {
		t.byKey[b.Key] = append(t.byKey[b.Key], b)
	}
	return t
}

// checkDuplicates rejects keys with more than one unguarded binding.
func (t *bindingTable) checkDuplicates() error {
	keys := make([]Key, 0, len(t.byKey))
	for k := range t.byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return t.byKey[keys[i]][0].seq < t.byKey[keys[j]][0].seq })

	for _, k := range keys {
		unguarded := 0
		for _, b := range t.byKey[k] {
			if b.Guard == nil {
				unguarded++
			}
		}
		if unguarded > 1 {
			return AmbiguousBindingError{Key: k, Candidates: unguarded, Reason: "bindings"}
		}
	}
	return nil
}

// selected returns, in registration order, the bindings a root lookup of their
// own key would pick. Shadowed bindings and bindings whose guard rejects a
// root resolution are left out. Keys whose lookup fails are reported together
// while the remaining keys are still returned.
func (t *bindingTable) selected() ([]*Binding, error) {
	var (
		out  []*Binding
		errs []error
		seen = make(map[Key]bool)
	)

	for _, b := range t.all {
		if seen[b.Key] {
			continue
		}
		seen[b.Key] = true

		chosen, err := t.explicit(b.Key, &guardState{root: true})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if chosen != nil && chosen.Key == b.Key {
			out = append(out, chosen)
		}
	}

	return out, errors.Join(errs...)
}

// guardState tracks the guards under evaluation during one lookup.
type guardState struct {
	root       bool
	evaluating map[*Binding]bool
}

// lookup selects the binding for key: an exact (type, tag) binding, then an
// untagged binding of the type, then an implicit binding from the
// introspector. Within a level the most recently registered eligible binding
// wins; in strict mode a tie is an AmbiguousBindingError.
func (t *bindingTable) lookup(key Key, root bool) (*Binding, error) {
	b, err := t.explicit(key, &guardState{root: root})
	if err != nil || b != nil {
		return b, err
	}

	b, err = t.implicitBinding(key.Type)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, UnresolvedDependencyError{Key: key}
	}
	return b, nil
}

// explicit searches registered bindings only. It returns nil, nil when no
// binding is eligible.
func (t *bindingTable) explicit(key Key, st *guardState) (*Binding, error) {
	levels := []Key{key}
	if key.IsTagged() {
		levels = append(levels, key.Untagged())
	}

	for _, level := range levels {
		b, err := t.eligible(level, key, st)
		if err != nil || b != nil {
			return b, err
		}
	}
	return nil, nil
}

// eligible picks among the bindings registered under level. arg is the
// originally requested key, exposed to guards as the placeholder argument.
func (t *bindingTable) eligible(level, arg Key, st *guardState) (*Binding, error) {
	candidates := t.byKey[level]

	var chosen *Binding
	count := 0
	for i := len(candidates) - 1; i >= 0; i-- {
		b := candidates[i]
		if !t.guardHolds(b, arg, st) {
			continue
		}
		count++
		if chosen == nil {
			chosen = b
		}
		if !t.strict {
			break
		}
	}

	if count > 1 {
		return nil, AmbiguousBindingError{Key: level, Candidates: count, Reason: "bindings"}
	}
	return chosen, nil
}

// guardHolds evaluates the guard of b. A binding whose guard is already under
// evaluation is treated as absent.
func (t *bindingTable) guardHolds(b *Binding, arg Key, st *guardState) bool {
	if st.evaluating[b] {
		return false
	}
	if b.Guard == nil {
		return true
	}

	if st.evaluating == nil {
		st.evaluating = make(map[*Binding]bool)
	}
	st.evaluating[b] = true
	defer delete(st.evaluating, b)

	return policy.Evaluate(*b.Guard, &guardContext{table: t, state: st, arg: arg})
}

// implicitBinding returns a Unique binding built from the introspector's
// constructors for typ, or nil if it has none.
func (t *bindingTable) implicitBinding(typ reflect.Type) (*Binding, error) {
	if t.introspector == nil || typ == nil {
		return nil, nil
	}

	t.implicitMu.Lock()
	defer t.implicitMu.Unlock()

	if b, ok := t.implicit[typ]; ok {
		return b, nil
	}

	ctors, err := t.introspector.DescribeConstructors(typ)
	if err != nil {
		return nil, RegistrationError{Key: Key{Type: typ}, Operation: "introspect", Cause: err}
	}

	var b *Binding
	if len(ctors) > 0 {
		for _, c := range ctors {
			if c.fn == nil || !c.Out.AssignableTo(typ) {
				return nil, TypeMismatchError{Expected: typ, Actual: c.Out, Context: "introspected constructor"}
			}
		}
		b = &Binding{
			Key:      Key{Type: typ},
			Scope:    Unique,
			provider: ProviderSpec{kind: providerFactory},
			ctors:    ctors,
			seq:      -1,
			implicit: true,
		}
	}

	// Absence is memoized too; the introspector is not consulted twice.
	t.implicit[typ] = b
	return b, nil
}

// guardContext exposes the binding table to policy predicates.
type guardContext struct {
	table *bindingTable
	state *guardState
	arg   Key
}

var _ policy.Context = (*guardContext)(nil)

// Bound reports whether an explicit binding for (t, tag) is eligible.
// Implicit bindings from the introspector do not count.
func (c *guardContext) Bound(t, tag reflect.Type) bool {
	b, err := c.table.explicit(Key{Type: t, Tag: tag}, c.state)
	return err == nil && b != nil
}

func (c *guardContext) IsRoot() bool {
	return c.state.root
}

func (c *guardContext) Arg() (reflect.Type, reflect.Type) {
	return c.arg.Type, c.arg.Tag
}
