package components

import (
	"strings"

	"github.com/aifinance/finctl/internal/cli"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar with left and right parts.
func RenderStatusBar(width int, left, right string) string {
	style := lipgloss.NewStyle().
		Foreground(cli.Active().Muted).
		Width(width)

	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	return style.Render(left + strings.Repeat(" ", padding) + right)
}
