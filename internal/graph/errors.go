package graph

import "strings"

// CircularDependencyError reports a cycle. Path starts at the repeated key;
// its last element depends on Path[0].
type CircularDependencyError[K Key] struct {
	Path []K
}

func (e *CircularDependencyError[K]) Error() string {
	if len(e.Path) == 0 {
		return "dependency cycle"
	}

	parts := make([]string, 0, len(e.Path)+1)
	for _, k := range e.Path {
		parts = append(parts, k.String())
	}
	parts = append(parts, e.Path[0].String())
	return "dependency cycle: " + strings.Join(parts, " -> ")
}
