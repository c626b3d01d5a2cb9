package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/registry/internal/filter"
	"github.com/JonMunkholm/registry/internal/table"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	v := m.ctrl.View()

	sections := []string{m.renderTitle()}
	if line := m.renderQueryLine(v); line != "" {
		sections = append(sections, line)
	}
	if m.modal != modalNone {
		sections = append(sections, m.renderModal(v))
	} else {
		sections = append(sections, m.renderTable(v))
	}
	sections = append(sections, m.renderFooter(v))
	if status := m.renderStatus(v); status != "" {
		sections = append(sections, status)
	}
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitle() string {
	title := m.styles.title.Render(m.title)
	if m.user == "" {
		return title
	}
	return title + "  " + m.styles.user.Render("signed in as "+m.user)
}

// renderQueryLine shows the search box or the active search and filter.
func (m Model) renderQueryLine(v table.ViewModel) string {
	var parts []string
	switch {
	case m.searching:
		parts = append(parts, m.search.View())
	case v.SearchInput != "" && v.SearchInput != v.Search:
		parts = append(parts, m.styles.faint.Render(fmt.Sprintf("search: %q (pending)", v.SearchInput)))
	case v.Search != "":
		parts = append(parts, m.styles.faint.Render(fmt.Sprintf("search: %q", v.Search)))
	}
	if v.Filter != "" {
		parts = append(parts, m.styles.faint.Render("roles: "+m.filterLabel(v.Filter)))
	}
	return strings.Join(parts, "   ")
}

func (m Model) filterLabel(token string) string {
	f, err := filter.Decode(token)
	if err != nil {
		return "?"
	}
	ids := f.Values(filter.Role)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id
		for _, r := range m.roleList {
			if r.ID == id {
				names[i] = r.Name
				break
			}
		}
	}
	return strings.Join(names, ", ")
}

func (m Model) renderTable(v table.ViewModel) string {
	if len(v.Rows) == 0 {
		if v.Loading {
			return m.spinner.View() + " Loading users…"
		}
		return m.styles.faint.Render("No users found.")
	}

	headers := v.Headers()
	for i, c := range v.Columns {
		if c.ID == v.SortKey && v.SortKey != "" {
			headers[i] += " " + arrow(v.SortDirection)
		}
	}
	cells := make([][]string, len(v.Rows))
	for i, r := range v.Rows {
		cells[i] = v.Cells(r)
	}
	widths := columnWidths(headers, cells)

	lines := make([]string, 0, len(cells)+1)
	lines = append(lines, "    "+renderRow(headers, widths, v.Columns, m.styles.header))
	for i, r := range v.Rows {
		mark := "[ ]"
		if v.IsSelected(r.ID()) {
			mark = m.styles.mark.Render("[x]")
		}
		base := m.styles.cell
		if i == m.cursor {
			base = m.styles.cursor
		}
		lines = append(lines, mark+" "+renderRow(cells[i], widths, v.Columns, base))
	}
	return strings.Join(lines, "\n")
}

func renderRow(values []string, widths []int, cols []table.Column, base lipgloss.Style) string {
	parts := make([]string, len(values))
	for i, val := range values {
		st := base.Width(widths[i]).Inline(true)
		if i < len(cols) && cols[i].Align == table.AlignRight {
			st = st.Align(lipgloss.Right)
		}
		parts[i] = st.Render(truncate(val, widths[i]))
	}
	return strings.Join(parts, "  ")
}

// columnWidths sizes each column to its widest cell, capped at maxCellWidth.
func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	for i := range widths {
		widths[i] = min(max(widths[i], 1), maxCellWidth)
	}
	return widths
}

func truncate(s string, w int) string {
	if lipgloss.Width(s) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > w {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

func arrow(d table.Direction) string {
	if d == table.Desc {
		return "↓"
	}
	return "↑"
}

func (m Model) renderFooter(v table.ViewModel) string {
	parts := []string{
		v.Summary(),
		fmt.Sprintf("page %d/%d", v.Page, max(v.TotalPages, 1)),
		fmt.Sprintf("%d per page", v.PageSize),
	}
	if v.SortKey != "" {
		parts = append(parts, "sort "+v.SortKey+" "+arrow(v.SortDirection))
	}
	if n := len(v.SelectedIDs); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	footer := m.styles.faint.Render(strings.Join(parts, " · "))
	switch {
	case v.Loading && len(v.Rows) > 0:
		footer = m.spinner.View() + " " + footer
	case v.Busy:
		footer = m.spinner.View() + " working… " + footer
	}
	return footer
}

func (m Model) renderStatus(v table.ViewModel) string {
	switch {
	case v.Error != "":
		return m.styles.err.Render("Error: " + v.Error)
	case v.Notice != "":
		return m.styles.notice.Render(v.Notice)
	}
	return ""
}

func (m Model) renderModal(v table.ViewModel) string {
	var body string
	switch m.modal {
	case modalConfirmDelete:
		body = fmt.Sprintf("Delete %s?\n\n%s", m.rowName(v, m.pending), m.styles.faint.Render("y confirm · n cancel"))
	case modalConfirmBulk:
		body = fmt.Sprintf("Delete %d selected users?\n\n%s", len(v.SelectedIDs), m.styles.faint.Render("y confirm · n cancel"))
	case modalColumns:
		body = m.renderColumns()
	case modalFilter:
		body = m.renderFilter()
	case modalDetail:
		body = m.renderDetail(v.Detail)
	case modalMenu:
		body = m.renderMenu()
	}
	return m.styles.modal.Render(body)
}

func (m Model) rowName(v table.ViewModel, id table.RowID) string {
	for _, r := range v.Rows {
		if r.ID() == id {
			if name := r.Text("name"); name != "" {
				return name
			}
		}
	}
	return "this user"
}

func (m Model) pointer(i int) string {
	if i == m.modalCursor {
		return m.styles.selected.Render("> ")
	}
	return "  "
}

func (m Model) renderColumns() string {
	lines := []string{m.styles.title.Render("Columns"), ""}
	cols := m.ctrl.Columns()
	for i, c := range cols.All() {
		box := "[x]"
		if c.Hidden {
			box = "[ ]"
		}
		label := c.Label
		if cols.IsPrimary(c.ID) {
			label += m.styles.faint.Render(" (always shown)")
		}
		lines = append(lines, m.pointer(i)+box+" "+label)
	}
	lines = append(lines, "", m.styles.faint.Render("space toggle · esc close"))
	return strings.Join(lines, "\n")
}

func (m Model) renderFilter() string {
	lines := []string{m.styles.title.Render("Filter by role"), ""}
	switch {
	case m.rolesLoading:
		lines = append(lines, m.spinner.View()+" Loading roles…")
	case m.rolesErr != "":
		lines = append(lines, m.styles.err.Render(m.rolesErr))
	case len(m.roleList) == 0:
		lines = append(lines, m.styles.faint.Render("No roles available."))
	}
	if !m.rolesLoading {
		for i, r := range m.roleList {
			box := "[ ]"
			if m.roleChoice[r.ID] {
				box = "[x]"
			}
			lines = append(lines, m.pointer(i)+box+" "+r.Name)
		}
	}
	lines = append(lines, "", m.styles.faint.Render("space toggle · enter apply · esc cancel"))
	return strings.Join(lines, "\n")
}

func (m Model) renderDetail(d table.Detail) string {
	lines := []string{m.styles.title.Render("User"), ""}
	switch {
	case d.Loading:
		lines = append(lines, m.spinner.View()+" Loading…")
	case d.Err != "":
		lines = append(lines, m.styles.err.Render(d.Err))
	case d.Row != nil:
		for _, f := range DetailFields {
			lines = append(lines, m.styles.label.Render(f.Label)+d.Row.Text(f.Path))
		}
		lines = append(lines,
			m.styles.label.Render("Galleries")+FileNames(d.Row, "user_galleries"),
			m.styles.label.Render("Pictures")+FileNames(d.Row, "user_pictures"),
		)
	}
	lines = append(lines, "", m.styles.faint.Render("esc close"))
	return strings.Join(lines, "\n")
}

func (m Model) renderMenu() string {
	lines := []string{m.styles.title.Render(m.menu.Title), ""}
	for i, item := range m.menu.Items {
		lines = append(lines, m.pointer(i)+item.Label)
	}
	lines = append(lines, "", m.styles.faint.Render("enter choose · esc back"))
	return strings.Join(lines, "\n")
}
