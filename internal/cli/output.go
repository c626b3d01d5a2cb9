package cli

import (
	"encoding/json"
	"fmt"
	"io"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JonMunkholm/registry/internal/console"
	"github.com/JonMunkholm/registry/internal/table"
)

// renderPage prints a settled page in one of the list formats.
func renderPage(w io.Writer, v table.ViewModel, format string) error {
	if format == "json" {
		return renderJSON(w, pageJSON{
			Data:       rowsOrEmpty(v.Rows),
			Total:      v.Total,
			Page:       v.Page,
			PerPage:    v.PageSize,
			TotalPages: v.TotalPages,
		})
	}

	t := prettytable.NewWriter()
	t.SetOutputMirror(w)

	header := prettytable.Row{"ID"}
	var configs []prettytable.ColumnConfig
	for i, c := range v.Columns {
		header = append(header, c.Label)
		if c.Align == table.AlignRight {
			configs = append(configs, prettytable.ColumnConfig{Number: i + 2, Align: text.AlignRight})
		}
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for _, r := range v.Rows {
		row := prettytable.Row{string(r.ID())}
		for _, cell := range v.Cells(r) {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}

	switch format {
	case "csv":
		t.RenderCSV()
	case "md", "markdown":
		t.RenderMarkdown()
	case "", "table":
		if len(v.Rows) == 0 {
			_, _ = fmt.Fprintln(w, "No users found.")
			return nil
		}
		t.SetStyle(prettytable.StyleLight)
		t.Render()
		_, _ = fmt.Fprintf(w, "%s · page %d/%d\n", v.Summary(), v.Page, max(v.TotalPages, 1))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

type pageJSON struct {
	Data       []table.Row `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalPages int         `json:"total_pages"`
}

func rowsOrEmpty(rows []table.Row) []table.Row {
	if rows == nil {
		return []table.Row{}
	}
	return rows
}

// renderDetail prints one user as label/value pairs.
func renderDetail(w io.Writer, r table.Row, format string) error {
	switch format {
	case "json":
		return renderJSON(w, r)
	case "", "table":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false

	t.AppendRow(prettytable.Row{"ID", string(r.ID())})
	for _, f := range console.DetailFields {
		t.AppendRow(prettytable.Row{f.Label, r.Text(f.Path)})
	}
	t.AppendRow(prettytable.Row{"Galleries", console.FileNames(r, "user_galleries")})
	t.AppendRow(prettytable.Row{"Pictures", console.FileNames(r, "user_pictures")})
	t.SetColumnConfigs([]prettytable.ColumnConfig{{Number: 1, Colors: text.Colors{text.Bold}}})
	t.Render()
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
