package command

import (
	"maps"
	"slices"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/entitystore"
	"github.com/engryamato/hvaccore/internal/graph"
)

// ============================================================================
// Create
// ============================================================================

// CreateEntity adds e as a single undoable step and selects it.
// Returns false, recording nothing, when e is malformed or its id exists.
func (l *Layer) CreateEntity(e entity.Entity, opts ...CallOption) bool {
	return l.create(TypeCreateEntity, []entity.Entity{e}, opts)
}

// CreateEntities adds es as one undoable step and selects the new ids.
// Malformed entries and ids already present (in the store or earlier in
// es) are skipped. Returns false when nothing remains.
func (l *Layer) CreateEntities(es []entity.Entity, opts ...CallOption) bool {
	return l.create(TypeCreateEntities, es, opts)
}

func (l *Layer) create(t Type, es []entity.Entity, opts []CallOption) bool {
	now := l.now()
	base := l.store.Count()
	seen := make(map[string]bool, len(es))
	var (
		placements []entitystore.Placement
		ids        []string
	)
	for _, e := range es {
		if reason := malformed(e); reason != "" {
			l.logger.Warn("command: create skipped", "id", e.ID, "reason", reason)
			continue
		}
		if seen[e.ID] || l.store.Has(e.ID) {
			l.logger.Warn("command: create skipped", "id", e.ID, "reason", "duplicate id")
			continue
		}
		seen[e.ID] = true

		e = e.Clone()
		if e.Calculated == nil {
			e.Calculated = entity.Calculate(e)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.ModifiedAt.IsZero() {
			e.ModifiedAt = e.CreatedAt
		}
		// Derived values are owned by recomputation.
		e.Derived = entity.Derived{}

		placements = append(placements, entitystore.Placement{Index: base + len(placements), Entity: e})
		ids = append(ids, e.ID)
	}
	if len(placements) == 0 {
		return false
	}

	rc := Reversible{
		Command:         l.newCommand(t, CreatePayload{Placements: placements}, now),
		SelectionBefore: l.selectionBefore(opts),
		SelectionAfter:  slices.Clone(ids),
	}
	rc.Inverse = l.inverseOf(rc.Command, DeletePayload{IDs: slices.Clone(ids)})
	l.execute(rc)
	l.restoreSelection(rc.SelectionAfter)
	return true
}

// malformed returns why e cannot be stored, or "" when it can.
func malformed(e entity.Entity) string {
	switch {
	case e.ID == "":
		return "empty id"
	case !e.Kind.Valid():
		return "unknown kind"
	case e.Props == nil:
		return "missing props"
	case e.Props.Kind() != e.Kind:
		return "props do not match kind"
	}
	return ""
}

// ============================================================================
// Update
// ============================================================================

// UpdateEntity replaces the stored entity with updated's user-owned fields.
// The pre-image is the stored entity. Timestamps, calculated metrics and
// derived fields on updated are ignored: the layer stamps the modification
// time and recalculates metrics when props change. Returns false when the
// id is unknown, the kinds differ, or nothing would change.
func (l *Layer) UpdateEntity(updated entity.Entity, opts ...CallOption) bool {
	prev, ok := l.store.Get(updated.ID)
	if !ok {
		return false
	}
	if updated.Kind != prev.Kind {
		l.logger.Warn("command: update skipped", "id", updated.ID, "reason", "kind change")
		return false
	}
	updated.CreatedAt = prev.CreatedAt
	updated.ModifiedAt = prev.ModifiedAt
	updated.Calculated = prev.Calculated
	p, _ := entity.Diff(prev, updated)
	return l.update(TypeUpdateEntity, []entitystore.Update{{ID: updated.ID, Patch: p}},
		map[string]entity.Entity{prev.ID: prev}, opts)
}

// UpdateEntityWith applies patch to id, using previous as the pre-image
// the inverse restores. A previous whose id differs from id is ignored and
// the stored entity is used instead.
func (l *Layer) UpdateEntityWith(id string, patch entity.Patch, previous entity.Entity, opts ...CallOption) bool {
	cur, ok := l.store.Get(id)
	if !ok {
		return false
	}
	prev := cur
	if previous.ID == id && previous.Kind == cur.Kind {
		prev = previous.Clone()
	}
	return l.update(TypeUpdateEntity, []entitystore.Update{{ID: id, Patch: patch}},
		map[string]entity.Entity{id: prev}, opts)
}

// UpdateEntities applies several patches as one undoable step. Repeated
// ids are merged in order. Unknown ids are skipped.
func (l *Layer) UpdateEntities(us []entitystore.Update, opts ...CallOption) bool {
	return l.update(TypeUpdateEntities, us, nil, opts)
}

// update builds one reversible update from us. prevs overrides the stored
// pre-image per id.
func (l *Layer) update(t Type, us []entitystore.Update, prevs map[string]entity.Entity, opts []CallOption) bool {
	now := l.now()
	var order []string
	work := make(map[string]entity.Entity, len(us))
	touched := make(map[string]entity.Patch, len(us))
	for _, u := range us {
		cur, ok := work[u.ID]
		if !ok {
			stored, exists := l.store.Get(u.ID)
			if !exists {
				continue
			}
			cur = stored
			if p, ok := prevs[u.ID]; ok {
				cur = p
			}
			order = append(order, u.ID)
			work[u.ID] = cur
		}
		if !u.Patch.PropsMatch(cur.Kind) {
			l.logger.Warn("command: update props ignored", "id", u.ID,
				"kind", cur.Kind, "props_kind", u.Patch.Props.Kind())
			u.Patch.Props = nil
		}
		work[u.ID] = cur.Apply(u.Patch)
		touched[u.ID] = mergePatch(touched[u.ID], u.Patch)
	}

	var fwd, inv []entitystore.Update
	for _, id := range order {
		prev := l.preImage(id, prevs)
		next := work[id]
		p := touched[id]
		if p.Props != nil && p.Calculated == nil {
			next.Calculated = entity.Calculate(next)
		}
		f, _ := entity.Diff(prev, next)
		if f.IsEmpty() {
			continue
		}
		if p.ModifiedAt == nil {
			next.ModifiedAt = now
		}
		f, b := entity.Diff(prev, next)
		fwd = append(fwd, entitystore.Update{ID: id, Patch: f})
		inv = append(inv, entitystore.Update{ID: id, Patch: b})
	}
	if len(fwd) == 0 {
		return false
	}

	rc := Reversible{
		Command:         l.newCommand(t, UpdatePayload{Updates: fwd}, now),
		SelectionBefore: l.selectionBefore(opts),
	}
	rc.Inverse = l.inverseOf(rc.Command, UpdatePayload{Updates: inv})
	l.execute(rc)
	return true
}

func (l *Layer) preImage(id string, prevs map[string]entity.Entity) entity.Entity {
	if p, ok := prevs[id]; ok {
		return p
	}
	e, _ := l.store.Get(id)
	return e
}

// mergePatch layers b over a. Only presence matters to callers.
func mergePatch(a, b entity.Patch) entity.Patch {
	out := a.Clone()
	b = b.Clone()
	if b.Transform != nil {
		out.Transform = b.Transform
	}
	if b.ZIndex != nil {
		out.ZIndex = b.ZIndex
	}
	if b.ConnectedTo != nil {
		out.ConnectedTo = b.ConnectedTo
	}
	if b.Props != nil {
		out.Props = b.Props
	}
	if b.Calculated != nil {
		out.Calculated = maps.Clone(b.Calculated)
	}
	if b.ModifiedAt != nil {
		out.ModifiedAt = b.ModifiedAt
	}
	return out
}

// ============================================================================
// Delete
// ============================================================================

// DeleteEntity removes id as a single undoable step. Unknown ids are a
// no-op that records nothing.
func (l *Layer) DeleteEntity(id string, opts ...CallOption) bool {
	return l.delete(TypeDeleteEntity, []string{id}, opts)
}

// DeleteEntities removes every present id as one undoable step. The
// inverse re-inserts the exact pre-images at their original positions.
func (l *Layer) DeleteEntities(ids []string, opts ...CallOption) bool {
	return l.delete(TypeDeleteEntities, ids, opts)
}

func (l *Layer) delete(t Type, ids []string, opts []CallOption) bool {
	seen := make(map[string]bool, len(ids))
	var (
		gone       []string
		placements []entitystore.Placement
	)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		e, ok := l.store.Get(id)
		if !ok {
			continue
		}
		seen[id] = true
		gone = append(gone, id)
		placements = append(placements, entitystore.Placement{Index: l.store.IndexOf(id), Entity: e})
	}
	if len(gone) == 0 {
		return false
	}

	before := l.selectionBefore(opts)
	after := make([]string, 0, len(before))
	for _, id := range before {
		if !seen[id] {
			after = append(after, id)
		}
	}

	rc := Reversible{
		Command:         l.newCommand(t, DeletePayload{IDs: gone}, l.now()),
		SelectionBefore: before,
		SelectionAfter:  after,
	}
	rc.Inverse = l.inverseOf(rc.Command, CreatePayload{Placements: placements})
	l.execute(rc)
	l.restoreSelection(after)
	return true
}

// ============================================================================
// Move
// ============================================================================

// MoveEntities repositions entities as one undoable step. A zero From is
// read from the store, so callers that already moved the entity live can
// pass the drag origin instead. Repeated ids keep the first From and the
// last To. Moves that change nothing are dropped.
func (l *Layer) MoveEntities(moves []Move, opts ...CallOption) bool {
	var order []string
	merged := make(map[string]Move, len(moves))
	for _, m := range moves {
		cur, ok := l.store.Get(m.ID)
		if !ok {
			continue
		}
		if prev, seen := merged[m.ID]; seen {
			prev.To = m.To
			merged[m.ID] = prev
			continue
		}
		if m.From == (entity.Transform{}) {
			m.From = cur.Transform
		}
		merged[m.ID] = m
		order = append(order, m.ID)
	}

	var fwd, inv []Move
	for _, id := range order {
		m := merged[id]
		cur, _ := l.store.Get(id)
		if m.From == m.To && cur.Transform == m.To {
			continue
		}
		fwd = append(fwd, m)
		inv = append(inv, Move{ID: id, From: m.To, To: m.From})
	}
	if len(fwd) == 0 {
		return false
	}

	rc := Reversible{
		Command:         l.newCommand(TypeMoveEntities, MovePayload{Moves: fwd}, l.now()),
		SelectionBefore: l.selectionBefore(opts),
	}
	rc.Inverse = l.inverseOf(rc.Command, MovePayload{Moves: inv})
	l.execute(rc)
	return true
}

// ============================================================================
// Helpers
// ============================================================================

// inverseOf builds the inverse command of fwd. It shares the id and
// sequence of fwd so journal entries for both directions correlate.
func (l *Layer) inverseOf(fwd Command, p Payload) Command {
	return Command{
		ID:        fwd.ID,
		Type:      inverseType(fwd.Type),
		Payload:   p,
		Timestamp: fwd.Timestamp,
		Seq:       fwd.Seq,
	}
}

func inverseType(t Type) Type {
	switch t {
	case TypeCreateEntity:
		return TypeDeleteEntity
	case TypeCreateEntities:
		return TypeDeleteEntities
	case TypeDeleteEntity:
		return TypeCreateEntity
	case TypeDeleteEntities:
		return TypeCreateEntities
	}
	return t
}

// revalidate refreshes validation for the touched ids and everything
// downstream of them on either side of the mutation.
func (l *Layer) revalidate(before *graph.Graph, ids []string) {
	if l.validator == nil {
		return
	}
	defer l.recoverValidator()

	after := l.store.Graph()
	seen := make(map[string]bool)
	var targets []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			targets = append(targets, id)
		}
	}
	for _, id := range ids {
		add(id)
		for _, n := range before.Downstream(id) {
			add(n)
		}
		for _, n := range after.Downstream(id) {
			add(n)
		}
	}
	for _, id := range targets {
		if e, ok := l.store.Get(id); ok {
			l.validator.Validate(e)
		} else {
			l.validator.Clear(id)
		}
	}
}

func (l *Layer) revalidateAll() {
	if l.validator == nil {
		return
	}
	defer l.recoverValidator()
	for _, id := range l.store.Graph().Nodes() {
		if e, ok := l.store.Get(id); ok {
			l.validator.Validate(e)
		}
	}
}

func (l *Layer) recoverValidator() {
	if r := recover(); r != nil {
		l.logger.Error("command: validator panicked", "panic", r)
	}
}
