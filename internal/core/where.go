package core

import (
	"fmt"
	"strings"
)

// WhereBuilder assembles a parameterized WHERE clause. Column names are
// trusted SQL expressions chosen by this package, never request input.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n". Empty values are skipped.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", column, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddSearch matches query case-insensitively against any of columns. One
// placeholder is shared by all columns.
func (wb *WhereBuilder) AddSearch(query string, columns ...string) {
	query = strings.TrimSpace(query)
	if query == "" || len(columns) == 0 {
		return
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, wb.argIndex)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+escapeLike(query)+"%")
	wb.argIndex++
}

// AddIn appends "column = ANY($n)" with values bound as one array argument.
// An empty set is skipped.
func AddIn[T any](wb *WhereBuilder, column string, values []T) {
	if len(values) == 0 {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = ANY($%d)", column, wb.argIndex))
	wb.args = append(wb.args, values)
	wb.argIndex++
}

// Build returns the clause with a leading " WHERE " and its arguments, or
// "" and nil when nothing was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex is the number of the next unused placeholder.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
