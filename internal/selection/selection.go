// Package selection holds the set of currently selected entity ids.
//
// The set is ordered (selection order is preserved for multi-select
// operations) and free of duplicates. It implements command.Selection.
package selection

import "slices"

// Set is an ordered set of selected ids. The zero value is empty and ready
// to use. Not safe for concurrent use.
type Set struct {
	ids []string
}

// New creates a selection holding ids.
func New(ids ...string) *Set {
	s := &Set{}
	s.SetSelection(ids)
	return s
}

// Selection returns the selected ids in order. Never nil.
func (s *Set) Selection() []string {
	return append([]string{}, s.ids...)
}

// SetSelection replaces the selection. Duplicates are dropped, first
// occurrence wins.
func (s *Set) SetSelection(ids []string) {
	s.ids = dedupe(ids)
}

// Select replaces the selection with a single id.
func (s *Set) Select(id string) {
	s.ids = []string{id}
}

// SelectMultiple replaces the selection with ids.
func (s *Set) SelectMultiple(ids []string) {
	s.SetSelection(ids)
}

// Add appends id if it is not already selected.
func (s *Set) Add(id string) {
	if !s.IsSelected(id) {
		s.ids = append(s.ids, id)
	}
}

// Remove deselects id.
func (s *Set) Remove(id string) {
	s.ids = slices.DeleteFunc(s.ids, func(x string) bool { return x == id })
}

// RemoveMany deselects every id in ids. Used when entities are deleted.
func (s *Set) RemoveMany(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	s.ids = slices.DeleteFunc(s.ids, func(x string) bool { return drop[x] })
}

// Toggle selects id if unselected and deselects it otherwise.
func (s *Set) Toggle(id string) {
	if s.IsSelected(id) {
		s.Remove(id)
		return
	}
	s.ids = append(s.ids, id)
}

// Clear deselects everything.
func (s *Set) Clear() {
	s.ids = nil
}

// IsSelected reports whether id is selected.
func (s *Set) IsSelected(id string) bool {
	return slices.Contains(s.ids, id)
}

// Count returns the number of selected ids.
func (s *Set) Count() int {
	return len(s.ids)
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
