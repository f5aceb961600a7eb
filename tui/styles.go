package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dhamidi/sclview/highlight"
)

var (
	colorPrimary = lipgloss.Color("#569CD6")
	colorError   = lipgloss.Color("#E57373")
	colorMuted   = lipgloss.Color("8")
)

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted)

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("17")).
				Foreground(lipgloss.Color("15"))

	errorRowStyle = lipgloss.NewStyle().Foreground(colorError)

	gutterStyle = lipgloss.NewStyle().Foreground(colorMuted)

	markedGutterStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)

	statusStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

// lipglossStyle turns a theme style into a terminal style.
func lipglossStyle(s highlight.Style) lipgloss.Style {
	st := lipgloss.NewStyle()
	if s.Foreground != "" {
		st = st.Foreground(lipgloss.Color(s.Foreground))
	}
	if s.Background != "" {
		st = st.Background(lipgloss.Color(s.Background))
	}
	return st.Bold(s.Bold).Italic(s.Italic).Underline(s.Underline)
}
