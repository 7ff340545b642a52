package entity

import (
	"maps"
	"time"
)

// Kind discriminates the entity variants.
type Kind string

const (
	KindRoom      Kind = "room"
	KindDuct      Kind = "duct"
	KindEquipment Kind = "equipment"
	KindFitting   Kind = "fitting"
)

// Kinds lists every known kind in a stable order.
var Kinds = []Kind{KindRoom, KindDuct, KindEquipment, KindFitting}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRoom, KindDuct, KindEquipment, KindFitting:
		return true
	}
	return false
}

// FlowCarrying reports whether entities of this kind hold a derived airflow.
// Rooms are pass-through: a walk may continue through them but they never
// accumulate flow.
func (k Kind) FlowCarrying() bool {
	switch k {
	case KindDuct, KindEquipment, KindFitting:
		return true
	}
	return false
}

// Transform is the canvas placement of an entity. The core passes it through
// untouched except for move operations.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
}

// IdentityTransform returns a transform at the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{ScaleX: 1, ScaleY: 1}
}

// At returns a copy of t translated to (x, y).
func (t Transform) At(x, y float64) Transform {
	t.X, t.Y = x, y
	return t
}

// Derived holds system-owned values. Only flow recomputation writes them.
type Derived struct {
	Airflow float64 `json:"airflow"`
}

// Entity is a typed, identified design element on the canvas.
type Entity struct {
	ID          string
	Kind        Kind
	Transform   Transform
	ZIndex      int
	ConnectedTo string // empty means terminal or unconnected
	Props       Props
	Derived     Derived
	Calculated  map[string]float64
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// Clone returns a deep copy of e. Props are value types and are shared.
func (e Entity) Clone() Entity {
	c := e
	if e.Calculated != nil {
		c.Calculated = maps.Clone(e.Calculated)
	}
	return c
}

// Connected reports whether e has an outgoing connection.
func (e Entity) Connected() bool {
	return e.ConnectedTo != ""
}

// Equal reports whether two entities hold identical state.
func (e Entity) Equal(o Entity) bool {
	return e.ID == o.ID &&
		e.Kind == o.Kind &&
		e.Transform == o.Transform &&
		e.ZIndex == o.ZIndex &&
		e.ConnectedTo == o.ConnectedTo &&
		e.Props == o.Props &&
		e.Derived == o.Derived &&
		maps.Equal(e.Calculated, o.Calculated) &&
		e.CreatedAt.Equal(o.CreatedAt) &&
		e.ModifiedAt.Equal(o.ModifiedAt)
}

// CloneAll deep-copies a slice of entities.
func CloneAll(es []Entity) []Entity {
	if es == nil {
		return nil
	}
	out := make([]Entity, len(es))
	for i, e := range es {
		out[i] = e.Clone()
	}
	return out
}

// IDs returns the ids of es in order.
func IDs(es []Entity) []string {
	ids := make([]string, len(es))
	for i, e := range es {
		ids[i] = e.ID
	}
	return ids
}
