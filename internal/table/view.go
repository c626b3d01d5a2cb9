package table

import "fmt"

// ViewModel is a render-ready snapshot of the controller.
type ViewModel struct {
	Rows          []Row
	Columns       []Column // visible, in declaration order
	Page          int
	PageSize      int
	Total         int
	TotalPages    int
	SortKey       string
	SortDirection Direction
	Search        string // committed
	SearchInput   string // as typed
	Filter        string
	SelectedIDs   []RowID
	Loading       bool
	Busy          bool
	Error         string
	Notice        string
	Detail        Detail

	selected map[RowID]struct{}
}

// View projects the current state.
func (c *Controller) View() ViewModel {
	ids := c.selection.IDs()
	sel := make(map[RowID]struct{}, len(ids))
	for _, id := range ids {
		sel[id] = struct{}{}
	}
	return ViewModel{
		Rows:          c.result.Rows,
		Columns:       c.columns.Visible(),
		Page:          c.query.Page,
		PageSize:      c.query.PageSize,
		Total:         c.result.Total,
		TotalPages:    TotalPages(c.result.Total, c.query.PageSize),
		SortKey:       c.query.SortKey,
		SortDirection: c.query.SortDirection,
		Search:        c.query.Search,
		SearchInput:   c.search.Raw(),
		Filter:        c.query.Filter,
		SelectedIDs:   ids,
		Loading:       c.Loading(),
		Busy:          c.Busy(),
		Error:         c.Err(),
		Notice:        c.notice,
		Detail:        c.detail,
		selected:      sel,
	}
}

// IsSelected reports whether id was selected when the view was taken.
func (v ViewModel) IsSelected(id RowID) bool {
	_, ok := v.selected[id]
	return ok
}

// Headers returns the visible column labels.
func (v ViewModel) Headers() []string {
	out := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		out[i] = c.Label
	}
	return out
}

// Cells renders r across the visible columns.
func (v ViewModel) Cells(r Row) []string {
	out := make([]string, len(v.Columns))
	for i, c := range v.Columns {
		out[i] = c.Cell(r)
	}
	return out
}

// Summary describes the rows on display, e.g. "11-20 of 57".
func (v ViewModel) Summary() string {
	if v.Total == 0 || len(v.Rows) == 0 {
		return fmt.Sprintf("0 of %d", v.Total)
	}
	first := (v.Page-1)*v.PageSize + 1
	last := first + len(v.Rows) - 1
	return fmt.Sprintf("%d-%d of %d", first, last, v.Total)
}
