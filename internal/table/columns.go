package table

// Align is the horizontal alignment of a column's cells.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column describes one table column. Only visibility changes after construction.
type Column struct {
	ID       string
	Label    string
	Sortable bool
	Align    Align
	Hidden   bool // initial visibility
	Render   func(Row) string
}

// Cell renders the column's value for r.
func (c Column) Cell(r Row) string {
	if c.Render != nil {
		return c.Render(r)
	}
	return r.Text(c.ID)
}

// ColumnRegistry holds the ordered column catalog and its visibility flags.
// The first declared column is primary and can never be hidden.
type ColumnRegistry struct {
	cols   []Column
	hidden map[string]bool
}

// NewColumnRegistry builds a registry in declaration order.
func NewColumnRegistry(cols []Column) *ColumnRegistry {
	r := &ColumnRegistry{
		cols:   append([]Column(nil), cols...),
		hidden: make(map[string]bool, len(cols)),
	}
	for i, c := range r.cols {
		if c.Hidden && i > 0 {
			r.hidden[c.ID] = true
		}
	}
	return r
}

// Toggle flips visibility of id and reports whether anything changed.
// Unknown ids and the primary column are ignored.
func (r *ColumnRegistry) Toggle(id string) bool {
	idx := r.index(id)
	if idx <= 0 {
		return false
	}
	r.hidden[id] = !r.hidden[id]
	return true
}

// IsVisible reports whether id is shown.
func (r *ColumnRegistry) IsVisible(id string) bool {
	return r.index(id) >= 0 && !r.hidden[id]
}

// IsPrimary reports whether id is the first declared column.
func (r *ColumnRegistry) IsPrimary(id string) bool {
	return len(r.cols) > 0 && r.cols[0].ID == id
}

// Lookup returns the column with id.
func (r *ColumnRegistry) Lookup(id string) (Column, bool) {
	if idx := r.index(id); idx >= 0 {
		return r.cols[idx], true
	}
	return Column{}, false
}

// All returns every column in declaration order with Hidden reflecting the current state.
func (r *ColumnRegistry) All() []Column {
	out := make([]Column, len(r.cols))
	for i, c := range r.cols {
		c.Hidden = r.hidden[c.ID]
		out[i] = c
	}
	return out
}

// Visible returns the shown columns in declaration order.
func (r *ColumnRegistry) Visible() []Column {
	out := make([]Column, 0, len(r.cols))
	for _, c := range r.cols {
		if !r.hidden[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func (r *ColumnRegistry) index(id string) int {
	for i, c := range r.cols {
		if c.ID == id {
			return i
		}
	}
	return -1
}
