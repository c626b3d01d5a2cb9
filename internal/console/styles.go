package console

import "github.com/charmbracelet/lipgloss"

const maxCellWidth = 32

type styles struct {
	title    lipgloss.Style
	user     lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	cursor   lipgloss.Style
	mark     lipgloss.Style
	faint    lipgloss.Style
	err      lipgloss.Style
	notice   lipgloss.Style
	modal    lipgloss.Style
	label    lipgloss.Style
	selected lipgloss.Style
}

func defaultStyles() styles {
	accent := lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		user:     lipgloss.NewStyle().Faint(true),
		header:   lipgloss.NewStyle().Bold(true).Underline(true),
		cell:     lipgloss.NewStyle(),
		cursor:   lipgloss.NewStyle().Reverse(true).Bold(true),
		mark:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		faint:    lipgloss.NewStyle().Faint(true),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		notice:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		modal:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
		label:    lipgloss.NewStyle().Bold(true).Width(12),
		selected: lipgloss.NewStyle().Foreground(accent).Bold(true),
	}
}
