package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorDanger  = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorSuccess = lipgloss.Color("#10B981")
	colorMuted   = lipgloss.Color("#6B7280")
	colorAccent  = lipgloss.Color("#F5C2E7")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			Background(lipgloss.Color("#313244")).
			Padding(0, 2).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	detailBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2).
			MarginTop(1)

	dangerStyle  = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
)
