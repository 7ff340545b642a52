// Package flow computes derived airflow for every flow-carrying entity by
// propagating source capacities forward along the connection graph.
package flow

import (
	"log/slog"
	"math"
	"slices"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/graph"
)

// DefaultSourceTypes are the equipment types that contribute intrinsic
// capacity: terminal devices whose CFM rating defines the demand carried by
// the ducts they connect to.
var DefaultSourceTypes = []entity.EquipmentType{
	entity.EquipmentDiffuser,
	entity.EquipmentHood,
	entity.EquipmentDamper,
}

// Skip records a node whose contribution was ignored because of bad data.
// Skips are not failures: the rest of the graph is still computed.
type Skip struct {
	NodeID string `json:"node_id"`
	Reason string `json:"reason"`
}

// Result is the output of a successful computation.
type Result struct {
	// Flows holds a value for every flow-carrying entity in the graph.
	// Nodes with no path from any source are present with value 0.
	Flows map[string]float64

	// Skipped lists nodes whose data could not be used.
	Skipped []Skip
}

// Engine computes flows. It holds configuration only and is safe to reuse
// across computations.
type Engine struct {
	sources map[entity.EquipmentType]bool
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSourceTypes replaces the set of equipment types treated as sources.
func WithSourceTypes(types ...entity.EquipmentType) Option {
	return func(e *Engine) {
		e.sources = make(map[entity.EquipmentType]bool, len(types))
		for _, t := range types {
			e.sources[t] = true
		}
	}
}

// WithLogger sets the logger used for skipped-node diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine. Without options, DefaultSourceTypes are used.
func New(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	WithSourceTypes(DefaultSourceTypes...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SourceTypes returns the configured source types in a stable order.
func (e *Engine) SourceTypes() []entity.EquipmentType {
	out := make([]entity.EquipmentType, 0, len(e.sources))
	for t := range e.sources {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// IsSource reports whether ent contributes intrinsic capacity.
func (e *Engine) IsSource(ent entity.Entity) bool {
	p, ok := ent.Props.(entity.EquipmentProps)
	return ok && ent.Kind == entity.KindEquipment && e.sources[p.EquipmentType]
}

// Compute derives the flow of every flow-carrying node.
//
// Each source walks forward from itself along connections, adding its
// capacity to every flow-carrying node it reaches, itself included. A walk
// stops at a node with no successor or at a node already visited on the
// same walk, so loops truncate instead of spinning. Because every node has
// at most one successor, a source's walk is a single path and the visited
// set is per path: two sources converging on one duct both count.
//
// Contributions to a node are summed in ascending order so the result does
// not depend on node order.
func (e *Engine) Compute(g *graph.Graph, byID map[string]entity.Entity) (Result, error) {
	if g == nil {
		return Result{}, &ComputeError{Code: ErrCodeNilGraph, Message: "graph is nil"}
	}

	var skipped []Skip
	skip := func(id, reason string) {
		skipped = append(skipped, Skip{NodeID: id, Reason: reason})
		e.logger.Warn("flow: skipping node", "id", id, "reason", reason)
	}

	contributions := make(map[string][]float64)
	carriers := make([]string, 0, g.Len())
	for _, id := range g.Nodes() {
		ent, ok := byID[id]
		if !ok {
			skip(id, "node missing from entity table")
			continue
		}
		if ent.Props == nil || ent.Props.Kind() != ent.Kind {
			skip(id, "props do not match kind")
			continue
		}
		if ent.Kind.FlowCarrying() {
			carriers = append(carriers, id)
		}
	}

	for _, id := range g.Nodes() {
		ent, ok := byID[id]
		if !ok || !e.IsSource(ent) {
			continue
		}
		capacity := ent.Props.(entity.EquipmentProps).Capacity
		if math.IsNaN(capacity) || math.IsInf(capacity, 0) || capacity < 0 {
			skip(id, "invalid source capacity")
			continue
		}
		if capacity == 0 {
			continue
		}
		if err := e.walk(g, byID, id, capacity, contributions); err != nil {
			return Result{}, err
		}
	}

	flows := make(map[string]float64, len(carriers))
	for _, id := range carriers {
		vals := contributions[id]
		slices.Sort(vals)
		var sum float64
		for _, v := range vals {
			sum += v
		}
		if math.IsInf(sum, 0) || math.IsNaN(sum) {
			return Result{}, &ComputeError{
				Code:    ErrCodeNonFinite,
				Message: "accumulated flow is not finite",
				NodeID:  id,
			}
		}
		flows[id] = sum
	}

	return Result{Flows: flows, Skipped: skipped}, nil
}

// walk follows the single forward path from a source.
func (e *Engine) walk(
	g *graph.Graph,
	byID map[string]entity.Entity,
	source string,
	capacity float64,
	contributions map[string][]float64,
) error {
	onPath := make(map[string]bool)
	cur := source
	for !onPath[cur] {
		onPath[cur] = true
		if ent, ok := byID[cur]; ok && ent.Kind.FlowCarrying() && ent.Props != nil && ent.Props.Kind() == ent.Kind {
			contributions[cur] = append(contributions[cur], capacity)
		}
		next, ok := g.Successor(cur)
		if !ok {
			return nil
		}
		if !g.Has(next) {
			return &ComputeError{
				Code:    ErrCodeDanglingEdge,
				Message: "edge target is not a graph node",
				NodeID:  cur,
			}
		}
		cur = next
	}
	return nil
}
