package table

import (
	"net/url"
	"slices"
	"strconv"
)

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// PageSizes lists the page sizes a query may use.
var PageSizes = []int{2, 5, 10, 25, 50, 100}

// DefaultPageSize is the page size of a fresh controller.
const DefaultPageSize = 10

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	return slices.Contains(PageSizes, n)
}

// Query describes one remote fetch. Two queries that compare equal produce
// the same request, which is what suppresses duplicate fetches.
type Query struct {
	Page          int // 1-indexed
	PageSize      int
	SortKey       string // empty means server default order
	SortDirection Direction
	Search        string // committed search text
	Filter        string // opaque filter token, empty when unset
}

// DefaultQuery returns page 1, DefaultPageSize rows, no sort, no search, no filter.
func DefaultQuery() Query {
	return Query{Page: 1, PageSize: DefaultPageSize, SortDirection: Asc}
}

// Equal reports whether q and o would issue the same request.
func (q Query) Equal(o Query) bool {
	return q == o
}

// Params returns the request parameters for q: page and per_page always,
// sort and order_by only with a sort key, search only when non-empty and
// filter only when present.
func (q Query) Params() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PageSize))
	if q.SortKey != "" {
		v.Set("sort", q.SortKey)
		dir := q.SortDirection
		if dir != Desc {
			dir = Asc
		}
		v.Set("order_by", string(dir))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Filter != "" {
		v.Set("filter", q.Filter)
	}
	return v
}

// TotalPages returns the number of pages needed for total rows.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}
