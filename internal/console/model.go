// Package console is the interactive terminal front end of the registry. It
// renders a table.Controller and turns key presses into controller actions.
package console

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/registry/internal/apperr"
	"github.com/JonMunkholm/registry/internal/client"
	"github.com/JonMunkholm/registry/internal/filter"
	"github.com/JonMunkholm/registry/internal/table"
)

const defaultRoleTimeout = 30 * time.Second

// RoleSource lists the roles offered by the filter modal.
type RoleSource interface {
	Roles(ctx context.Context) ([]client.Role, error)
}

// Options configures the Model.
type Options struct {
	Title   string
	User    string // shown in the title bar
	Roles   RoleSource
	Timeout time.Duration // for role lookups
}

// modalType is the dialog currently covering the table.
type modalType int

const (
	modalNone modalType = iota
	modalConfirmDelete
	modalConfirmBulk
	modalColumns
	modalFilter
	modalDetail
	modalMenu
)

type rolesLoadedMsg struct {
	roles []client.Role
	err   error
}

// Model is the users screen following the Elm architecture.
type Model struct {
	ctrl    *table.Controller
	roles   RoleSource
	timeout time.Duration
	title   string
	user    string

	keys    keyMap
	help    help.Model
	search  textinput.Model
	spinner spinner.Model
	styles  styles

	cursor    int
	searching bool
	spinning  bool

	// Modal state
	modal       modalType
	modalCursor int
	pending     table.RowID // row awaiting delete confirmation
	menu        *Menu
	rootMenu    *Menu

	// Role filter state
	roleList     []client.Role
	rolesLoading bool
	rolesErr     string
	roleChoice   map[string]bool

	width    int
	height   int
	quitting bool
}

// New creates the screen around ctrl. The Model takes ownership of ctrl and
// closes it on quit.
func New(ctrl *table.Controller, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search name or email"
	ti.CharLimit = 100
	ti.Width = 40
	ti.Cursor.SetMode(cursor.CursorStatic)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	title := opts.Title
	if title == "" {
		title = "Users"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRoleTimeout
	}

	root := buildMenuTree(ctrl)
	return Model{
		ctrl:       ctrl,
		roles:      opts.Roles,
		timeout:    timeout,
		title:      title,
		user:       opts.User,
		keys:       defaultKeys(),
		help:       help.New(),
		search:     ti,
		spinner:    sp,
		styles:     defaultStyles(),
		rootMenu:   root,
		menu:       root,
		roleChoice: map[string]bool{},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ctrl.Init(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	m.clampCursor()
	if m.active() && !m.spinning && !m.quitting {
		m.spinning = true
		return m, tea.Batch(cmd, m.spinner.Tick)
	}
	return m, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		m.help.Width = m.width
		m.search.Width = max(m.width-12, 10)
		return m, nil
	case spinner.TickMsg:
		if !m.active() {
			m.spinning = false
			return m, nil
		}
		m.spinning = true
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case rolesLoadedMsg:
		m.rolesLoading = false
		if msg.err != nil {
			m.rolesErr = apperr.Message(msg.err)
			return m, nil
		}
		m.rolesErr = ""
		m.roleList = msg.roles
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, m.ctrl.Update(msg)
}

// active reports whether anything is in flight.
func (m Model) active() bool {
	return m.ctrl.Loading() || m.ctrl.Busy() || m.ctrl.Detail().Loading || m.rolesLoading
}

func (m *Model) clampCursor() {
	n := len(m.ctrl.Result().Rows)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// current returns the id of the row under the cursor.
func (m Model) current() (table.RowID, bool) {
	rows := m.ctrl.Result().Rows
	if m.cursor < 0 || m.cursor >= len(rows) {
		return "", false
	}
	id := rows[m.cursor].ID()
	return id, id != ""
}

func (m Model) quit() (Model, tea.Cmd) {
	m.quitting = true
	m.ctrl.Close()
	return m, tea.Quit
}

// handleKeyPress processes keyboard input. Search input and modals take
// priority over the table.
func (m Model) handleKeyPress(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}
	if m.searching {
		return m.handleSearchKeys(msg)
	}
	if m.modal != modalNone {
		return m.handleModalKeys(msg)
	}
	return m.handleTableKeys(msg)
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, m.ctrl.CommitSearch(m.search.Value())
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != before {
		return m, tea.Batch(cmd, m.ctrl.SetSearchText(v))
	}
	return m, cmd
}

func (m Model) handleTableKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m.quit()
	case key.Matches(msg, k.Up):
		m.cursor--
	case key.Matches(msg, k.Down):
		m.cursor++
	case key.Matches(msg, k.PrevPage):
		m.cursor = 0
		return m, m.ctrl.PrevPage()
	case key.Matches(msg, k.NextPage):
		m.cursor = 0
		return m, m.ctrl.NextPage()
	case key.Matches(msg, k.Bigger):
		return m, m.ctrl.SetPageSize(stepPageSize(m.ctrl.Query().PageSize, 1))
	case key.Matches(msg, k.Smaller):
		return m, m.ctrl.SetPageSize(stepPageSize(m.ctrl.Query().PageSize, -1))
	case key.Matches(msg, k.Sort):
		return m, m.cycleSort()
	case key.Matches(msg, k.SortDir):
		if sk := m.ctrl.Query().SortKey; sk != "" {
			return m, m.ctrl.SetSort(sk)
		}
	case key.Matches(msg, k.Search):
		m.searching = true
		m.search.SetValue(m.ctrl.SearchInput())
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, k.Toggle):
		if id, ok := m.current(); ok {
			m.ctrl.ToggleSelect(id)
		}
	case key.Matches(msg, k.SelectAll):
		m.ctrl.SelectAllVisible()
	case key.Matches(msg, k.Delete):
		if id, ok := m.current(); ok {
			m.pending = id
			m.modal = modalConfirmDelete
		}
	case key.Matches(msg, k.BulkDelete):
		if len(m.ctrl.SelectedIDs()) > 0 {
			m.modal = modalConfirmBulk
		}
	case key.Matches(msg, k.Export):
		return m, m.ctrl.Export()
	case key.Matches(msg, k.Columns):
		m.modal = modalColumns
		m.modalCursor = 0
	case key.Matches(msg, k.Filter):
		return m.openFilter()
	case key.Matches(msg, k.ClearFilter):
		return m, m.ctrl.ClearFilter()
	case key.Matches(msg, k.Detail):
		if id, ok := m.current(); ok {
			m.modal = modalDetail
			return m, m.ctrl.FetchDetail(id)
		}
	case key.Matches(msg, k.Refresh):
		return m, m.ctrl.Refresh()
	case key.Matches(msg, k.Menu):
		m.modal = modalMenu
		m.menu = m.rootMenu
		m.modalCursor = 0
	case key.Matches(msg, k.Dismiss):
		m.ctrl.DismissError()
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// stepPageSize moves one step through table.PageSizes, stopping at either end.
func stepPageSize(current, step int) int {
	i := slices.Index(table.PageSizes, current)
	if i < 0 {
		return table.DefaultPageSize
	}
	i = min(max(i+step, 0), len(table.PageSizes)-1)
	return table.PageSizes[i]
}

// cycleSort advances to the next visible sortable column, returning to
// server order after the last one.
func (m Model) cycleSort() tea.Cmd {
	var keys []string
	for _, c := range m.ctrl.Columns().Visible() {
		if c.Sortable {
			keys = append(keys, c.ID)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	i := slices.Index(keys, m.ctrl.Query().SortKey)
	if i == len(keys)-1 {
		return m.ctrl.SortBy("", table.Asc)
	}
	return m.ctrl.SortBy(keys[i+1], table.Asc)
}

func (m Model) openFilter() (Model, tea.Cmd) {
	m.modal = modalFilter
	m.modalCursor = 0
	m.roleChoice = map[string]bool{}
	if f, err := filter.Decode(m.ctrl.Query().Filter); err == nil {
		for _, id := range f.Values(filter.Role) {
			m.roleChoice[id] = true
		}
	}
	if m.roleList != nil || m.rolesLoading || m.roles == nil {
		return m, nil
	}
	m.rolesLoading = true
	m.rolesErr = ""
	return m, m.loadRoles()
}

func (m Model) loadRoles() tea.Cmd {
	src, timeout := m.roles, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		roles, err := src.Roles(ctx)
		return rolesLoadedMsg{roles: roles, err: err}
	}
}

func (m Model) handleModalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.modal {
	case modalConfirmDelete:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.modal = modalNone
			id := m.pending
			m.pending = ""
			return m, m.ctrl.DeleteRow(id)
		case key.Matches(msg, m.keys.Cancel):
			m.modal = modalNone
			m.pending = ""
		}
	case modalConfirmBulk:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.modal = modalNone
			return m, m.ctrl.BulkDelete()
		case key.Matches(msg, m.keys.Cancel):
			m.modal = modalNone
		}
	case modalColumns:
		cols := m.ctrl.Columns().All()
		switch {
		case key.Matches(msg, m.keys.Up):
			m.modalCursor = max(m.modalCursor-1, 0)
		case key.Matches(msg, m.keys.Down):
			m.modalCursor = min(m.modalCursor+1, len(cols)-1)
		case key.Matches(msg, m.keys.Toggle), msg.Type == tea.KeyEnter:
			if m.modalCursor < len(cols) {
				m.ctrl.ToggleColumn(cols[m.modalCursor].ID)
			}
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Columns):
			m.modal = modalNone
		}
	case modalFilter:
		return m.handleFilterKeys(msg)
	case modalDetail:
		if key.Matches(msg, m.keys.Cancel) || msg.Type == tea.KeyEnter {
			m.ctrl.CloseDetail()
			m.modal = modalNone
		}
	case modalMenu:
		return m.handleMenuKeys(msg)
	}
	return m, nil
}

func (m Model) handleFilterKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.modal = modalNone
	case key.Matches(msg, m.keys.Up):
		m.modalCursor = max(m.modalCursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.modalCursor = min(m.modalCursor+1, max(len(m.roleList)-1, 0))
	case key.Matches(msg, m.keys.Toggle):
		if m.modalCursor < len(m.roleList) {
			id := m.roleList[m.modalCursor].ID
			m.roleChoice[id] = !m.roleChoice[id]
		}
	case msg.Type == tea.KeyEnter:
		if m.rolesLoading {
			return m, nil
		}
		m.modal = modalNone
		var ids []string
		for id, on := range m.roleChoice {
			if on {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return m, m.ctrl.ClearFilter()
		}
		slices.Sort(ids)
		m.cursor = 0
		return m, m.ctrl.SetFilter(filter.Filter{}.With(filter.Role, ids...))
	}
	return m, nil
}

func (m Model) handleMenuKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	items := m.menu.Items
	switch {
	case key.Matches(msg, m.keys.Up):
		m.modalCursor = max(m.modalCursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.modalCursor = min(m.modalCursor+1, len(items)-1)
	case msg.Type == tea.KeyEnter:
		if m.modalCursor >= len(items) {
			return m, nil
		}
		item := items[m.modalCursor]
		switch {
		case item.Submenu != nil:
			m.menu = item.Submenu
			m.modalCursor = 0
		case item.Action != nil:
			m.modal = modalNone
			m.menu = m.rootMenu
			return m, item.Action()
		}
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Menu):
		if m.menu.Parent != nil && !key.Matches(msg, m.keys.Menu) {
			m.menu = m.menu.Parent
			m.modalCursor = 0
			return m, nil
		}
		m.modal = modalNone
		m.menu = m.rootMenu
	}
	return m, nil
}
