package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RowID identifies a record. Numeric ids are kept in their decimal form.
type RowID string

// Row is one record as decoded from the API.
type Row map[string]any

// Page is one page of a server-held collection.
type Page struct {
	Rows  []Row
	Total int
}

// ID returns the record's "id" field as a RowID.
func (r Row) ID() RowID {
	return RowID(formatValue(r["id"]))
}

// Lookup resolves a dotted path such as "role.name" through nested objects.
func (r Row) Lookup(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			if rm, isRow := cur.(Row); isRow {
				m = rm
			} else {
				return nil, false
			}
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Text returns the value at path formatted for display, or "" when absent.
func (r Row) Text(path string) string {
	v, ok := r.Lookup(path)
	if !ok {
		return ""
	}
	return formatValue(v)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func rowIDs(rows []Row) []RowID {
	ids := make([]RowID, 0, len(rows))
	for _, r := range rows {
		if id := r.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
