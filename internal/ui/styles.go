package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the TUI.
type Styles struct {
	Header    lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	ToolLine  lipgloss.Style
	ErrorLine lipgloss.Style
	StatusBar lipgloss.Style
	Sidebar   lipgloss.Style
	SideTitle lipgloss.Style
	SideDir   lipgloss.Style
	SideFile  lipgloss.Style
	Input     lipgloss.Style
}

// DefaultStyles returns the style set for the given theme.
func DefaultStyles(theme string) Styles {
	accent := lipgloss.Color("205")
	muted := lipgloss.Color("241")
	if theme == "light" {
		accent = lipgloss.Color("162")
		muted = lipgloss.Color("245")
	}

	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Padding(0, 1),
		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		BotLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		ToolLine: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),
		ErrorLine: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		StatusBar: lipgloss.NewStyle().
			Foreground(muted),
		Sidebar: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		SideTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		SideDir: lipgloss.NewStyle().
			Bold(true),
		SideFile: lipgloss.NewStyle().
			Foreground(muted),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted),
	}
}
