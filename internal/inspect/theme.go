package inspect

import "github.com/charmbracelet/lipgloss"

// Theme centralizes the listing's styling.
type Theme struct {
	Registered lipgloss.Style
	Missing    lipgloss.Style

	Border lipgloss.Style
	Title  lipgloss.Style
	Header lipgloss.Style
	Dim    lipgloss.Style
	Cell   lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		Registered: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Missing:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),

		Border: lipgloss.NewStyle().Foreground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")).
			Padding(0, 1),
		Dim:  lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Padding(0, 1),
		Cell: lipgloss.NewStyle().Padding(0, 1),
	}
}
