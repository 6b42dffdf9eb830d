package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#8BC34A")
	colorMuted  = lipgloss.Color("#6b7280")
	colorBorder = lipgloss.Color("#2a3850")
	colorWarn   = lipgloss.Color("#FFC107")
	colorUser   = lipgloss.Color("#2196F3")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	sidebarItemStyle     = lipgloss.NewStyle()
	sidebarActiveStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	sidebarSelectedStyle = lipgloss.NewStyle().Reverse(true)

	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(colorUser)
	aiLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	editingStyle   = lipgloss.NewStyle().Italic(true).Foreground(colorWarn)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	helpStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	statusStyle = lipgloss.NewStyle().Foreground(colorWarn)
)
