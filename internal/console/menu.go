package console

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/registry/internal/table"
)

/* ----------------------------------------
	MENU TREE
---------------------------------------- */

// MenuItem is one entry. Items with a Submenu descend; items with an Action
// close the menu and run it.
type MenuItem struct {
	Label   string
	Submenu *Menu
	Action  func() tea.Cmd
}

type Menu struct {
	Title  string
	Items  []MenuItem
	Parent *Menu
}

// linkParents wires Parent pointers and points every "Back" item at its parent.
func linkParents(menu *Menu, parent *Menu) {
	menu.Parent = parent

	for i := range menu.Items {
		item := &menu.Items[i]

		if item.Label == "Back" {
			item.Submenu = parent
			continue
		}

		if item.Submenu != nil {
			linkParents(item.Submenu, menu)
		}
	}
}

/* ----------------------------------------
	MENU TREE DEFINITION
---------------------------------------- */

func buildMenuTree(ctrl *table.Controller) *Menu {
	root := &Menu{
		Title: "Actions",
		Items: []MenuItem{
			{Label: "Refresh", Action: ctrl.Refresh},
			{Label: "Export CSV", Action: ctrl.Export},
			{Label: "Page size ->", Submenu: loadPageSizes(ctrl)},
			{Label: "Sort by ->", Submenu: loadSortMenu(ctrl)},
			{Label: "Clear filter", Action: ctrl.ClearFilter},
		},
	}

	linkParents(root, nil)

	return root
}

/* ----------------------------------------
	LOAD MENUS
---------------------------------------- */

func loadPageSizes(ctrl *table.Controller) *Menu {
	items := make([]MenuItem, 0, len(table.PageSizes)+1)
	for _, n := range table.PageSizes {
		items = append(items, MenuItem{
			Label:  fmt.Sprintf("%d rows", n),
			Action: func() tea.Cmd { return ctrl.SetPageSize(n) },
		})
	}
	items = append(items, MenuItem{Label: "Back"})
	return &Menu{Title: "Page size", Items: items}
}

func loadSortMenu(ctrl *table.Controller) *Menu {
	items := []MenuItem{
		{Label: "Server order", Action: func() tea.Cmd { return ctrl.SortBy("", table.Asc) }},
	}
	for _, col := range ctrl.Columns().All() {
		if !col.Sortable {
			continue
		}
		items = append(items,
			MenuItem{Label: col.Label + " ↑", Action: func() tea.Cmd { return ctrl.SortBy(col.ID, table.Asc) }},
			MenuItem{Label: col.Label + " ↓", Action: func() tea.Cmd { return ctrl.SortBy(col.ID, table.Desc) }},
		)
	}
	items = append(items, MenuItem{Label: "Back"})
	return &Menu{Title: "Sort by", Items: items}
}
