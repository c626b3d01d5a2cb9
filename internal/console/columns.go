package console

import (
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/registry/internal/table"
)

// UserColumns is the column catalog of the users table. Sortable column ids
// double as the server's sort keys.
func UserColumns() []table.Column {
	return []table.Column{
		{ID: "name", Label: "Name", Sortable: true},
		{ID: "email", Label: "Email", Sortable: true},
		{ID: "role", Label: "Role", Sortable: true, Render: func(r table.Row) string { return r.Text("role.name") }},
		{ID: "dob", Label: "Born", Sortable: true},
		{ID: "gender_text", Label: "Gender", Sortable: true},
		{ID: "status_text", Label: "Status", Sortable: true},
		{ID: "files", Label: "Files", Align: table.AlignRight, Render: fileCount},
		{ID: "created_at", Label: "Created", Sortable: true, Hidden: true, Render: dateOnly("created_at")},
	}
}

// fileCount totals the profile picture, gallery and picture uploads.
func fileCount(r table.Row) string {
	n := 0
	if v, ok := r.Lookup("profile"); ok && v != nil {
		n++
	}
	for _, key := range []string{"user_galleries", "user_pictures"} {
		if v, ok := r.Lookup(key); ok {
			if list, isList := v.([]any); isList {
				n += len(list)
			}
		}
	}
	return strconv.Itoa(n)
}

func dateOnly(path string) func(table.Row) string {
	return func(r table.Row) string {
		raw := r.Text(path)
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return raw
		}
		return t.Local().Format(time.DateOnly)
	}
}

// Field is one labelled line of the user detail view.
type Field struct {
	Label string
	Path  string
}

// DetailFields lists the scalar fields shown for a single user.
var DetailFields = []Field{
	{"Name", "name"},
	{"Email", "email"},
	{"Role", "role.name"},
	{"Born", "dob"},
	{"Gender", "gender_text"},
	{"Status", "status_text"},
	{"Profile", "profile.name"},
	{"Created", "created_at"},
	{"Updated", "updated_at"},
}

// FileNames joins the names of the uploads listed under path.
func FileNames(r table.Row, path string) string {
	v, ok := r.Lookup(path)
	if !ok {
		return ""
	}
	list, ok := v.([]any)
	if !ok {
		return ""
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		if obj, isObj := item.(map[string]any); isObj {
			names = append(names, table.Row(obj).Text("name"))
		}
	}
	return strings.Join(names, ", ")
}
