package graph

import (
	"fmt"
	"slices"
	"strings"
)

// Cycle is a closed loop of connections. Path starts and ends on the same
// node: a self-loop is [a, a], a two-node loop is [a, b, a].
//
// Cycles are warnings, not errors: flow propagation truncates at them.
type Cycle struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Cycles finds every connection loop. Because each node has at most one
// successor, every strongly connected component with more than one node
// (or a self-loop) is a simple cycle, found here in linear time by
// colouring nodes during successor walks.
func (g *Graph) Cycles() []Cycle {
	const (
		white = iota
		grey
		black
	)
	colour := make(map[string]int, len(g.nodes))
	var cycles []Cycle

	for _, start := range g.nodes {
		if colour[start] != white {
			continue
		}
		var walk []string
		cur, ok := start, true
		for ok && colour[cur] == white {
			colour[cur] = grey
			walk = append(walk, cur)
			cur, ok = g.next[cur]
		}
		if ok && colour[cur] == grey {
			// cur was reached twice in this walk: the tail from cur is a loop.
			i := slices.Index(walk, cur)
			path := append(append([]string(nil), walk[i:]...), cur)
			cycles = append(cycles, Cycle{
				Path:    path,
				Message: fmt.Sprintf("connection loop detected: %s", strings.Join(path, " → ")),
			})
		}
		for _, n := range walk {
			colour[n] = black
		}
	}
	return cycles
}
