package entitystore

import (
	"slices"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/graph"
)

// Get returns a snapshot of the entity with the given id.
func (s *Store) Get(id string) (entity.Entity, bool) {
	e, ok := s.byID[id]
	if !ok {
		return entity.Entity{}, false
	}
	return e.Clone(), true
}

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// IndexOf returns the position of id in the ordered listing, or -1.
func (s *Store) IndexOf(id string) int {
	return slices.Index(s.allIDs, id)
}

// IDs returns the ordered id index.
func (s *Store) IDs() []string {
	return append([]string(nil), s.allIDs...)
}

// All returns snapshots of every entity in insertion order.
func (s *Store) All() []entity.Entity {
	out := make([]entity.Entity, 0, len(s.allIDs))
	for _, id := range s.allIDs {
		out = append(out, s.byID[id].Clone())
	}
	return out
}

// ByKind returns snapshots of every entity of kind k in insertion order.
func (s *Store) ByKind(k entity.Kind) []entity.Entity {
	var out []entity.Entity
	for _, id := range s.allIDs {
		if e := s.byID[id]; e.Kind == k {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Count returns the number of entities.
func (s *Store) Count() int {
	return len(s.allIDs)
}

// CountByKind returns entity counts per kind.
func (s *Store) CountByKind() map[entity.Kind]int {
	out := make(map[entity.Kind]int)
	for _, e := range s.byID {
		out[e.Kind]++
	}
	return out
}

// Snapshot exports the whole store as a State.
func (s *Store) Snapshot() State {
	st := State{
		ByID:   make(map[string]entity.Entity, len(s.byID)),
		AllIDs: s.IDs(),
	}
	for id, e := range s.byID {
		st.ByID[id] = e.Clone()
	}
	return st
}

// Graph builds the connection graph of the current contents.
func (s *Store) Graph() *graph.Graph {
	return graph.Build(s.list())
}

// Fingerprint hashes the ordered contents, derived values included.
func (s *Store) Fingerprint() (string, error) {
	return entity.Fingerprint(s.list())
}

// list returns the ordered entities without cloning. Internal use only.
func (s *Store) list() []entity.Entity {
	out := make([]entity.Entity, len(s.allIDs))
	for i, id := range s.allIDs {
		out[i] = s.byID[id]
	}
	return out
}
