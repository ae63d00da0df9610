package di

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/junioryono/di/internal/graph"
	"github.com/junioryono/di/policy"
)

// planNode is one validated step of a resolution. Plans are built before any
// provider runs and are immutable afterwards. A node may be shared by several
// consumers within a plan.
type planNode struct {
	key     Key // requested key
	form    AccessForm
	binding *Binding

	ctor   *Constructor // factory bindings
	deps   []*planNode  // factory bindings, declared order
	target *planNode    // alias bindings

	// height is the number of levels from this node to its deepest leaf.
	height int

	// captures is a SharedPerRequest node whose instance ends up held by
	// this node's instance, if any.
	captures *planNode
}

type planKey struct {
	key  Key
	form AccessForm
	root bool
}

// planner validates resolutions depth first. A planner is confined to one
// goroutine; nodes it has planned are reused for repeated keys.
type planner struct {
	inj  *Injector
	path graph.Path[Key]
	memo map[planKey]*planNode
}

func newPlanner(inj *Injector) *planner {
	return &planner{inj: inj, memo: make(map[planKey]*planNode)}
}

// plan resolves key through the binding table and plans the selected binding.
func (p *planner) plan(key Key, form AccessForm) (*planNode, error) {
	root := p.path.Len() == 0
	pk := planKey{key: key, form: form, root: root}

	if n, ok := p.memo[pk]; ok {
		if err := p.checkDepth(key, n.height); err != nil {
			return nil, err
		}
		return n, nil
	}

	if err := p.push(key); err != nil {
		return nil, err
	}
	defer p.path.Pop()

	if err := p.checkPolicy(key, root); err != nil {
		return nil, err
	}

	b, err := p.inj.table.lookup(key, root)
	if err != nil {
		var unresolved UnresolvedDependencyError
		if errors.As(err, &unresolved) {
			unresolved.Path = p.requesters()
			return nil, unresolved
		}
		return nil, err
	}

	n, err := p.planBinding(key, b, form)
	if err != nil {
		return nil, err
	}
	p.memo[pk] = n
	return n, nil
}

// planRoot plans b itself as the outermost resolution, bypassing lookup.
func (p *planner) planRoot(b *Binding, form AccessForm) (*planNode, error) {
	if err := p.push(b.Key); err != nil {
		return nil, err
	}
	defer p.path.Pop()

	return p.planBinding(b.Key, b, form)
}

func (p *planner) planBinding(key Key, b *Binding, form AccessForm) (*planNode, error) {
	if st := b.storage(); !st.allows(form) {
		return nil, IncompatibleAccessFormError{Key: key, Form: form, Storage: st.String()}
	}

	node := &planNode{key: key, form: form, binding: b, height: 1}

	var children []*planNode
	switch b.provider.kind {
	case providerValue:

	case providerAlias:
		target, err := p.plan(b.provider.target, FormValue)
		if err != nil {
			return nil, err
		}
		node.target = target
		children = []*planNode{target}

	case providerFactory:
		ctor, deps, err := p.chooseConstructor(b)
		if err != nil {
			return nil, err
		}
		node.ctor = ctor
		node.deps = deps
		children = deps

	default:
		return nil, fmt.Errorf("binding %s has no provider", b)
	}

	for _, c := range children {
		node.height = max(node.height, c.height+1)
		if node.captures == nil {
			node.captures = c.captures
		}
	}

	switch {
	case b.Scope == Singleton && node.captures != nil:
		dep := node.captures.binding
		return nil, LifetimeConflictError{
			Key:             key,
			Scope:           b.Scope,
			Dependency:      dep.Key,
			DependencyScope: dep.Scope,
		}
	case b.Scope == SharedPerRequest && b.ownsInstances():
		node.captures = node
	}

	return node, nil
}

// addEdges records the binding-level edges of the plan rooted at n. Edges are
// keyed by binding, so one key served by different bindings at different
// depths does not look like a cycle.
func addEdges(g *graph.DependencyGraph[*Binding], n *planNode, seen map[*planNode]bool) {
	if seen[n] {
		return
	}
	seen[n] = true

	g.AddNode(n.binding)
	children := n.deps
	if n.target != nil {
		children = []*planNode{n.target}
	}
	for _, c := range children {
		g.AddEdge(n.binding, c.binding)
		addEdges(g, c, seen)
	}
}

// chooseConstructor prefers the constructor with the most parameters that can
// be satisfied, degrading to fewer. Two satisfiable constructors of the same
// arity are ambiguous. Cycles, ambiguity and policy violations stop the
// search; other failures move on to the next candidate.
func (p *planner) chooseConstructor(b *Binding) (*Constructor, []*planNode, error) {
	order := make([]int, len(b.ctors))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return b.ctors[order[i]].Arity() > b.ctors[order[j]].Arity()
	})

	type candidate struct {
		ctor *Constructor
		deps []*planNode
	}

	var (
		satisfied []candidate
		firstErr  error
	)

	for _, idx := range order {
		ctor := &b.ctors[idx]
		if len(satisfied) > 0 && ctor.Arity() < satisfied[0].ctor.Arity() {
			break
		}

		deps, err := p.planDeps(ctor)
		if err != nil {
			if isFatalPlanError(err) {
				return nil, nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			p.inj.logger.Debug("constructor not satisfiable",
				zap.Stringer("key", b.Key),
				zap.Stringer("constructor", ctor),
				zap.String("dependencies", describeDeps(ctor.Deps)),
				zap.Error(err))
			continue
		}

		satisfied = append(satisfied, candidate{ctor: ctor, deps: deps})
	}

	if len(satisfied) == 0 {
		return nil, nil, firstErr
	}
	if len(satisfied) > 1 {
		return nil, nil, AmbiguousBindingError{Key: b.Key, Candidates: len(satisfied), Reason: "constructors"}
	}

	chosen := satisfied[0]
	if chosen.ctor != &b.ctors[order[0]] {
		p.inj.logger.Warn("falling back to a constructor with fewer parameters",
			zap.Stringer("key", b.Key),
			zap.Stringer("constructor", chosen.ctor),
			zap.NamedError("reason", firstErr))
	}
	return chosen.ctor, chosen.deps, nil
}

func (p *planner) planDeps(ctor *Constructor) ([]*planNode, error) {
	deps := make([]*planNode, len(ctor.Deps))
	for i, d := range ctor.Deps {
		n, err := p.plan(d.Key, d.Form)
		if err != nil {
			return nil, err
		}
		deps[i] = n
	}
	return deps, nil
}

func (p *planner) push(key Key) error {
	if err := p.checkDepth(key, 1); err != nil {
		return err
	}

	if err := p.path.Push(key); err != nil {
		var circular *graph.CircularDependencyError[Key]
		if errors.As(err, &circular) {
			return CyclicDependencyError{Path: circular.Path}
		}
		return err
	}
	return nil
}

// checkDepth rejects entering key when its subtree of the given height would
// end below the configured maximum depth.
func (p *planner) checkDepth(key Key, height int) error {
	limit := p.inj.config.MaxDepth
	if depth := p.path.Len() + height; limit > 0 && depth > limit {
		return fmt.Errorf("%w: %s at depth %d", ErrMaxDepthExceeded, key, depth)
	}
	return nil
}

// requesters returns the keys on the path above the current one.
func (p *planner) requesters() []Key {
	nodes := p.path.Keys()
	if len(nodes) <= 1 {
		return nil
	}
	keys := make([]Key, len(nodes)-1)
	for i := range keys {
		keys[i] = Key(nodes[i])
	}
	return keys
}

// checkPolicy evaluates the injector-wide policy with key as the argument.
func (p *planner) checkPolicy(key Key, root bool) error {
	pred := p.inj.policy
	if pred == nil {
		return nil
	}

	ctx := &guardContext{table: p.inj.table, state: &guardState{root: root}, arg: key}
	if policy.Evaluate(*pred, ctx) {
		return nil
	}
	return PolicyViolationError{Key: key, Policy: pred.String(), Path: p.requesters()}
}
