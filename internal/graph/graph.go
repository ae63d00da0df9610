package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Key is the identity of a graph node.
type Key interface {
	comparable
	fmt.Stringer
}

// Node is a vertex of the dependency graph.
type Node[K Key] struct {
	Key K

	// Dependencies are the nodes this node needs, in the order they were added.
	Dependencies []K

	// Dependents are the nodes that need this node.
	Dependents []K
}

// DependencyGraph records dependency edges between nodes and orders them.
type DependencyGraph[K Key] struct {
	mu    sync.RWMutex
	nodes map[K]*Node[K]
	order []K // insertion order, keeps sorting deterministic
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph[K Key]() *DependencyGraph[K] {
	return &DependencyGraph[K]{
		nodes: make(map[K]*Node[K]),
	}
}

// AddNode adds a node without edges. Adding an existing node is a no-op.
func (g *DependencyGraph[K]) AddNode(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensure(key)
}

// AddEdge records that from depends on to. Duplicate edges are ignored.
func (g *DependencyGraph[K]) AddEdge(from, to K) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fromNode := g.ensure(from)
	toNode := g.ensure(to)

	for _, dep := range fromNode.Dependencies {
		if dep == to {
			return
		}
	}

	fromNode.Dependencies = append(fromNode.Dependencies, to)
	toNode.Dependents = append(toNode.Dependents, from)
}

func (g *DependencyGraph[K]) ensure(key K) *Node[K] {
	node, ok := g.nodes[key]
	if !ok {
		node = &Node[K]{Key: key}
		g.nodes[key] = node
		g.order = append(g.order, key)
	}
	return node
}

// Size returns the number of nodes.
func (g *DependencyGraph[K]) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// DetectCycles returns a *CircularDependencyError naming the first cycle
// found, or nil if the graph is acyclic.
func (g *DependencyGraph[K]) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.detectCycles()
}

func (g *DependencyGraph[K]) detectCycles() error {
	const (
		unvisited = iota
		active
		done
	)

	state := make(map[K]int, len(g.nodes))
	var stack []K

	var visit func(key K) error
	visit = func(key K) error {
		state[key] = active
		stack = append(stack, key)

		for _, dep := range g.nodes[key].Dependencies {
			switch state[dep] {
			case active:
				return &CircularDependencyError[K]{Path: cyclePath(stack, dep)}
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[key] = done
		return nil
	}

	for _, key := range g.order {
		if state[key] == unvisited {
			if err := visit(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalSort returns nodes dependencies first. Nodes with no ordering
// constraint between them keep insertion order. A cyclic graph yields the
// *CircularDependencyError of DetectCycles.
func (g *DependencyGraph[K]) TopologicalSort() ([]*Node[K], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := make(map[K]int, len(g.nodes))
	position := make(map[K]int, len(g.order))
	for i, key := range g.order {
		remaining[key] = len(g.nodes[key].Dependencies)
		position[key] = i
	}

	var queue []K
	for _, key := range g.order {
		if remaining[key] == 0 {
			queue = append(queue, key)
		}
	}

	result := make([]*Node[K], 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := g.nodes[current]
		result = append(result, node)

		var ready []K
		for _, dependent := range node.Dependents {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Slice(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
		queue = append(queue, ready...)
	}

	if len(result) != len(g.nodes) {
		if err := g.detectCycles(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("graph: sorted %d of %d nodes", len(result), len(g.nodes))
	}
	return result, nil
}

// cyclePath returns the portion of stack starting at the repeated key.
func cyclePath[K Key](stack []K, repeated K) []K {
	for i, key := range stack {
		if key == repeated {
			path := make([]K, len(stack)-i)
			copy(path, stack[i:])
			return path
		}
	}
	return []K{repeated}
}

// Path is the chain of keys currently being resolved, outermost first.
// A Path is confined to a single resolution and is not safe for concurrent use.
type Path[K Key] struct {
	keys []K
}

// Push appends key. If key is already on the path the push fails with a
// *CircularDependencyError and the path is left unchanged.
func (p *Path[K]) Push(key K) error {
	for _, existing := range p.keys {
		if existing == key {
			return &CircularDependencyError[K]{Path: cyclePath(p.keys, key)}
		}
	}
	p.keys = append(p.keys, key)
	return nil
}

// Pop removes the innermost key.
func (p *Path[K]) Pop() {
	if len(p.keys) > 0 {
		p.keys = p.keys[:len(p.keys)-1]
	}
}

// Len returns the current depth.
func (p *Path[K]) Len() int {
	return len(p.keys)
}

// Keys returns a copy of the path, outermost first.
func (p *Path[K]) Keys() []K {
	keys := make([]K, len(p.keys))
	copy(keys, p.keys)
	return keys
}
