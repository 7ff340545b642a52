package entity

import (
	"maps"
	"time"
)

// Patch is a partial update of user-owned fields. Nil fields are left
// unchanged. Derived cannot be set through a Patch.
type Patch struct {
	Transform   *Transform
	ZIndex      *int
	ConnectedTo *string // pointer to "" disconnects
	Props       Props   // replaces Props wholesale; must match the entity kind
	Calculated  map[string]float64
	ModifiedAt  *time.Time
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Transform == nil &&
		p.ZIndex == nil &&
		p.ConnectedTo == nil &&
		p.Props == nil &&
		p.Calculated == nil &&
		p.ModifiedAt == nil
}

// PropsMatch reports whether the patch props (if any) fit kind k.
func (p Patch) PropsMatch(k Kind) bool {
	return p.Props == nil || p.Props.Kind() == k
}

// Apply returns a copy of e with p merged in. Props of a different kind are
// ignored; callers that care should check PropsMatch first.
func (e Entity) Apply(p Patch) Entity {
	out := e.Clone()
	if p.Transform != nil {
		out.Transform = *p.Transform
	}
	if p.ZIndex != nil {
		out.ZIndex = *p.ZIndex
	}
	if p.ConnectedTo != nil {
		out.ConnectedTo = *p.ConnectedTo
	}
	if p.Props != nil && p.Props.Kind() == e.Kind {
		out.Props = p.Props
	}
	if p.Calculated != nil {
		out.Calculated = maps.Clone(p.Calculated)
	}
	if p.ModifiedAt != nil {
		out.ModifiedAt = *p.ModifiedAt
	}
	return out
}

// Clone deep-copies the patch.
func (p Patch) Clone() Patch {
	c := p
	if p.Transform != nil {
		t := *p.Transform
		c.Transform = &t
	}
	if p.ZIndex != nil {
		z := *p.ZIndex
		c.ZIndex = &z
	}
	if p.ConnectedTo != nil {
		s := *p.ConnectedTo
		c.ConnectedTo = &s
	}
	if p.Calculated != nil {
		c.Calculated = maps.Clone(p.Calculated)
	}
	if p.ModifiedAt != nil {
		m := *p.ModifiedAt
		c.ModifiedAt = &m
	}
	return c
}

// Diff computes the patches that turn prev into next and back again.
// Only user-owned fields are compared; Derived differences are ignored
// because recomputation owns them.
func Diff(prev, next Entity) (forward, inverse Patch) {
	if prev.Transform != next.Transform {
		forward.Transform = ptr(next.Transform)
		inverse.Transform = ptr(prev.Transform)
	}
	if prev.ZIndex != next.ZIndex {
		forward.ZIndex = ptr(next.ZIndex)
		inverse.ZIndex = ptr(prev.ZIndex)
	}
	if prev.ConnectedTo != next.ConnectedTo {
		forward.ConnectedTo = ptr(next.ConnectedTo)
		inverse.ConnectedTo = ptr(prev.ConnectedTo)
	}
	if prev.Props != next.Props {
		forward.Props = next.Props
		inverse.Props = prev.Props
	}
	if !maps.Equal(prev.Calculated, next.Calculated) {
		forward.Calculated = calcOrEmpty(next.Calculated)
		inverse.Calculated = calcOrEmpty(prev.Calculated)
	}
	if !prev.ModifiedAt.Equal(next.ModifiedAt) {
		forward.ModifiedAt = ptr(next.ModifiedAt)
		inverse.ModifiedAt = ptr(prev.ModifiedAt)
	}
	return forward, inverse
}

// Invert builds the patch that undoes p when applied to prev.
func Invert(prev Entity, p Patch) Patch {
	_, inv := Diff(prev, prev.Apply(p))
	return inv
}

// calcOrEmpty keeps a nil map distinguishable from "unchanged" in a Patch.
func calcOrEmpty(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return maps.Clone(m)
}

func ptr[T any](v T) *T {
	return &v
}
