package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles shared by the outline and the mapper.
type Styles struct {
	Title    lipgloss.Style
	Heading  lipgloss.Style
	Count    lipgloss.Style
	Category lipgloss.Style
	Code     lipgloss.Style
	Cursor   lipgloss.Style
	Selected lipgloss.Style
	Dim      lipgloss.Style
	Error    lipgloss.Style
	Border   lipgloss.Style
}

// DefaultStyles returns the palette used by the CLI.
func DefaultStyles() *Styles {
	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Heading:  lipgloss.NewStyle().Bold(true),
		Count:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Category: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Code:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Cursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		Selected: lipgloss.NewStyle().Background(lipgloss.Color("236")),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Border:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
	}
}
