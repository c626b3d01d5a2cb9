package table

import "slices"

// Selection is the set of selected record ids. It is independent of the
// page on display, so ids selected on page 1 survive a move to page 2.
type Selection struct {
	ids map[RowID]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[RowID]struct{})}
}

// Toggle flips membership of id.
func (s *Selection) Toggle(id RowID) {
	if id == "" {
		return
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// Has reports whether id is selected.
func (s *Selection) Has(id RowID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int { return len(s.ids) }

// Add selects every id given.
func (s *Selection) Add(ids ...RowID) {
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
}

// Remove deselects every id given.
func (s *Selection) Remove(ids ...RowID) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	clear(s.ids)
}

// ToggleAll clears a non-empty selection. An empty selection becomes exactly
// the visible ids, which keeps select-all scoped to the current page.
func (s *Selection) ToggleAll(visible []RowID) {
	if len(s.ids) > 0 {
		s.Clear()
		return
	}
	s.Add(visible...)
}

// IDs returns a sorted snapshot of the selection.
func (s *Selection) IDs() []RowID {
	out := make([]RowID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
