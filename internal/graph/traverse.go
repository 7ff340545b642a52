package graph

import "slices"

// Downstream returns every node reachable from id by following edges
// forward, in walk order. id itself is excluded unless it sits on a cycle.
func (g *Graph) Downstream(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	for cur, ok := g.next[id]; ok; cur, ok = g.next[cur] {
		if seen[cur] {
			if cur == id && !slices.Contains(out, id) {
				out = append(out, id)
			}
			break
		}
		seen[cur] = true
		out = append(out, cur)
	}
	return out
}

// Upstream returns every node from which id is reachable, breadth first.
// id itself is excluded unless it sits on a cycle.
func (g *Graph) Upstream(id string) []string {
	var out []string
	seen := map[string]bool{}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range g.prev[cur] {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
			queue = append(queue, p)
		}
	}
	return out
}

// Neighborhood returns nodes within hops edges of id, ignoring direction,
// in breadth-first order. id is excluded. A non-positive hops yields nil.
func (g *Graph) Neighborhood(id string, hops int) []string {
	if hops <= 0 || !g.Has(id) {
		return nil
	}
	var out []string
	seen := map[string]bool{id: true}
	frontier := []string{id}
	for depth := 0; depth < hops && len(frontier) > 0; depth++ {
		var nextFrontier []string
		for _, cur := range frontier {
			adj := g.prev[cur]
			if to, ok := g.next[cur]; ok {
				adj = append([]string{to}, adj...)
			}
			for _, n := range adj {
				if seen[n] {
					continue
				}
				seen[n] = true
				out = append(out, n)
				nextFrontier = append(nextFrontier, n)
			}
		}
		frontier = nextFrontier
	}
	return out
}

// Path returns the forward walk from one node to another, both ends
// included. The second result is false when to is not downstream of from.
func (g *Graph) Path(from, to string) ([]string, bool) {
	if !g.Has(from) || !g.Has(to) {
		return nil, false
	}
	path := []string{from}
	if from == to {
		return path, true
	}
	for _, n := range g.Downstream(from) {
		if n == from {
			break
		}
		path = append(path, n)
		if n == to {
			return path, true
		}
	}
	return nil, false
}

// Affected returns id together with everything upstream and downstream of
// it, in node order. These are the nodes whose derived state may change
// when id changes.
func (g *Graph) Affected(id string) []string {
	if !g.Has(id) {
		return nil
	}
	set := map[string]bool{id: true}
	for _, n := range g.Downstream(id) {
		set[n] = true
	}
	for _, n := range g.Upstream(id) {
		set[n] = true
	}
	out := make([]string, 0, len(set))
	for _, n := range g.nodes {
		if set[n] {
			out = append(out, n)
		}
	}
	return out
}
