package console

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	PrevPage    key.Binding
	NextPage    key.Binding
	Bigger      key.Binding
	Smaller     key.Binding
	Sort        key.Binding
	SortDir     key.Binding
	Search      key.Binding
	Toggle      key.Binding
	SelectAll   key.Binding
	Delete      key.Binding
	BulkDelete  key.Binding
	Export      key.Binding
	Columns     key.Binding
	Filter      key.Binding
	ClearFilter key.Binding
	Detail      key.Binding
	Refresh     key.Binding
	Menu        key.Binding
	Dismiss     key.Binding
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding

	// modal keys
	Confirm key.Binding
	Cancel  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PrevPage:    key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←/h", "prev page")),
		NextPage:    key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("→/l", "next page")),
		Bigger:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more rows")),
		Smaller:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer rows")),
		Sort:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort column")),
		SortDir:     key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sort direction")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		SelectAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select page")),
		Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		BulkDelete:  key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete selected")),
		Export:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
		Columns:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "columns")),
		Filter:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter roles")),
		ClearFilter: key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "clear filter")),
		Detail:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Refresh:     key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		Menu:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "menu")),
		Dismiss:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:   key.NewBinding(key.WithKeys("ctrl+c")),

		Confirm: key.NewBinding(key.WithKeys("y", "Y", "enter"), key.WithHelp("y/enter", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("n", "N", "esc", "q"), key.WithHelp("n/esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.PrevPage, k.NextPage, k.Search, k.Toggle, k.Delete, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage, k.Bigger, k.Smaller},
		{k.Sort, k.SortDir, k.Search, k.Filter, k.ClearFilter, k.Columns},
		{k.Toggle, k.SelectAll, k.Delete, k.BulkDelete, k.Export},
		{k.Detail, k.Refresh, k.Menu, k.Dismiss, k.Help, k.Quit},
	}
}
