package flow

import (
	"fmt"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/graph"
)

// Overload reports non-source equipment carrying more flow than it is
// rated for, such as a fan fed by more diffuser demand than its capacity.
type Overload struct {
	ID       string  `json:"id"`
	Capacity float64 `json:"capacity"`
	Load     float64 `json:"load"`
	Message  string  `json:"message"`
}

// Percent returns how far over capacity the equipment is.
func (o Overload) Percent() float64 {
	if o.Capacity == 0 {
		return 0
	}
	return (o.Load/o.Capacity - 1) * 100
}

// CapacityReport checks every non-source equipment node against the flow
// it receives. Nodes are reported in graph order.
func (e *Engine) CapacityReport(g *graph.Graph, byID map[string]entity.Entity, flows map[string]float64) []Overload {
	if g == nil {
		return nil
	}
	var out []Overload
	for _, id := range g.Nodes() {
		ent, ok := byID[id]
		if !ok || e.IsSource(ent) {
			continue
		}
		p, ok := ent.Props.(entity.EquipmentProps)
		if !ok || p.Capacity <= 0 {
			continue
		}
		load := flows[id]
		if load <= p.Capacity {
			continue
		}
		o := Overload{ID: id, Capacity: p.Capacity, Load: load}
		o.Message = fmt.Sprintf("system load (%g CFM) exceeds %s capacity (%g CFM) by %.1f%%",
			load, p.EquipmentType, p.Capacity, o.Percent())
		out = append(out, o)
	}
	return out
}
