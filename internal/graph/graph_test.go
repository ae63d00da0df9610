package graph_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/junioryono/di/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node string

func (n node) String() string { return string(n) }

func TestDependencyGraph_DetectCycles(t *testing.T) {
	tests := []struct {
		name      string
		edges     [][2]node
		wantCycle []node
	}{
		{
			name:      "self-cycle",
			edges:     [][2]node{{"a", "a"}},
			wantCycle: []node{"a"},
		},
		{
			name:  "diamond-no-cycle",
			edges: [][2]node{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
		},
		{
			name:      "three-node-cycle",
			edges:     [][2]node{{"a", "b"}, {"b", "c"}, {"c", "a"}},
			wantCycle: []node{"a", "b", "c"},
		},
		{
			name:      "cycle-behind-acyclic-prefix",
			edges:     [][2]node{{"root", "a"}, {"a", "b"}, {"b", "a"}},
			wantCycle: []node{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.NewDependencyGraph[node]()
			for _, e := range tt.edges {
				g.AddEdge(e[0], e[1])
			}

			err := g.DetectCycles()
			if tt.wantCycle == nil {
				assert.NoError(t, err)
				return
			}

			var cErr *graph.CircularDependencyError[node]
			require.True(t, errors.As(err, &cErr), "expected CircularDependencyError, got %T", err)
			assert.Equal(t, tt.wantCycle, cErr.Path)
		})
	}
}

func TestCircularDependencyError_Error(t *testing.T) {
	err := &graph.CircularDependencyError[node]{Path: []node{"a", "b"}}
	assert.Equal(t, "dependency cycle: a -> b -> a", err.Error())

	assert.Equal(t, "dependency cycle", (&graph.CircularDependencyError[node]{}).Error())
}

func TestDependencyGraph_TopologicalSort(t *testing.T) {
	g := graph.NewDependencyGraph[node]()
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "d")
	g.AddEdge("c", "d")
	g.AddEdge("a", "b")

	assert.Equal(t, 4, g.Size())

	sorted, err := g.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, sorted, 4)

	position := make(map[node]int)
	for i, n := range sorted {
		position[n.Key] = i
	}

	assert.Less(t, position["d"], position["b"])
	assert.Less(t, position["d"], position["c"])
	assert.Less(t, position["b"], position["a"])
	assert.Less(t, position["c"], position["a"])

	// insertion order breaks ties
	assert.Less(t, position["b"], position["c"])

	assert.Equal(t, []node{"b", "c"}, sorted[3].Dependencies, "duplicate edges are ignored")
}

func TestDependencyGraph_TopologicalSortCycle(t *testing.T) {
	g := graph.NewDependencyGraph[node]()
	g.AddNode("root")
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	_, err := g.TopologicalSort()

	var cErr *graph.CircularDependencyError[node]
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, []node{"a", "b"}, cErr.Path)
}

func TestDependencyGraph_ConcurrentOperations(t *testing.T) {
	g := graph.NewDependencyGraph[node]()
	keys := []node{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for i := 1; i < len(keys); i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			g.AddEdge(keys[idx-1], keys[idx])
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Size()
			_ = g.DetectCycles()
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, g.Size())
	assert.NoError(t, g.DetectCycles())
}

func TestPath(t *testing.T) {
	var p graph.Path[node]

	require.NoError(t, p.Push("a"))
	require.NoError(t, p.Push("b"))
	assert.Equal(t, 2, p.Len())

	err := p.Push("a")
	var cErr *graph.CircularDependencyError[node]
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, []node{"a", "b"}, cErr.Path)
	assert.Equal(t, 2, p.Len(), "failed push leaves path unchanged")

	p.Pop()
	assert.Equal(t, []node{"a"}, p.Keys())

	p.Pop()
	p.Pop()
	assert.Zero(t, p.Len())
}
