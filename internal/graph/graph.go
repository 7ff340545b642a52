// Package graph derives the directed connection graph of the canvas from
// each entity's single ConnectedTo reference.
//
// A Graph is immutable once built and is always rebuilt from the current
// entity snapshot rather than patched, so it cannot drift from the store.
// Every node has at most one successor; nodes may have many predecessors.
package graph

import "github.com/engryamato/hvaccore/internal/entity"

// Edge is a directed "feeds into" connection.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the adjacency derived from a set of entities.
type Graph struct {
	nodes []string
	index map[string]int
	next  map[string]string
	prev  map[string][]string
	kinds map[string]entity.Kind
}

// Build derives the graph for entities. It is a pure function: nodes keep
// input order and only edges whose target is present are kept. Dangling
// references are treated as dead ends. If an id appears twice the first
// occurrence wins.
func Build(entities []entity.Entity) *Graph {
	g := &Graph{
		nodes: make([]string, 0, len(entities)),
		index: make(map[string]int, len(entities)),
		next:  make(map[string]string),
		prev:  make(map[string][]string),
		kinds: make(map[string]entity.Kind, len(entities)),
	}
	targets := make([]string, 0, len(entities))
	for _, e := range entities {
		if _, dup := g.index[e.ID]; dup {
			continue
		}
		g.index[e.ID] = len(g.nodes)
		g.nodes = append(g.nodes, e.ID)
		g.kinds[e.ID] = e.Kind
		targets = append(targets, e.ConnectedTo)
	}
	for i, id := range g.nodes {
		to := targets[i]
		if to == "" {
			continue
		}
		if _, ok := g.index[to]; !ok {
			continue
		}
		g.next[id] = to
	}
	// Predecessors in node order, so traversal output is deterministic.
	for _, id := range g.nodes {
		if to, ok := g.next[id]; ok {
			g.prev[to] = append(g.prev[to], id)
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns node ids in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Has reports whether id is a node.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Kind returns the entity kind of a node.
func (g *Graph) Kind(id string) (entity.Kind, bool) {
	k, ok := g.kinds[id]
	return k, ok
}

// Successor returns the node id feeds into, if any.
func (g *Graph) Successor(id string) (string, bool) {
	to, ok := g.next[id]
	return to, ok
}

// Predecessors returns the nodes feeding into id, in node order.
func (g *Graph) Predecessors(id string) []string {
	return append([]string(nil), g.prev[id]...)
}

// EdgeCount returns the number of kept edges.
func (g *Graph) EdgeCount() int {
	return len(g.next)
}

// Edges returns every edge ordered by source node.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.next))
	for _, id := range g.nodes {
		if to, ok := g.next[id]; ok {
			edges = append(edges, Edge{From: id, To: to})
		}
	}
	return edges
}
