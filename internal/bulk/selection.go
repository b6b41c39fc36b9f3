// Package bulk applies one action across a user's selection of ledger
// entries, branching on whether the selected entries belong to a series.
package bulk

import "slices"

// Selection is the set of entry ids one session has marked. It keeps the
// order in which ids were added and is passed explicitly to the Coordinator.
type Selection struct {
	index map[int64]bool
	ids   []int64
}

// NewSelection returns a selection holding ids, duplicates dropped.
func NewSelection(ids ...int64) *Selection {
	s := &Selection{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add marks id. It reports whether id was newly added.
func (s *Selection) Add(id int64) bool {
	if s.index == nil {
		s.index = make(map[int64]bool)
	}
	if s.index[id] {
		return false
	}
	s.index[id] = true
	s.ids = append(s.ids, id)
	return true
}

// Remove unmarks id. It reports whether id was selected.
func (s *Selection) Remove(id int64) bool {
	if !s.index[id] {
		return false
	}
	delete(s.index, id)
	s.ids = slices.DeleteFunc(s.ids, func(v int64) bool { return v == id })
	return true
}

// Toggle flips id and returns whether it is now selected.
func (s *Selection) Toggle(id int64) bool {
	if s.Remove(id) {
		return false
	}
	return s.Add(id)
}

// Has reports whether id is selected.
func (s *Selection) Has(id int64) bool {
	return s.index[id]
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.index = nil
	s.ids = nil
}

// IDs returns a copy of the selected ids in insertion order.
func (s *Selection) IDs() []int64 {
	return slices.Clone(s.ids)
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}
