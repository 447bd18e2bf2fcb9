package components

import (
	"fmt"

	"github.com/aifinance/finctl/internal/cli"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ColorForPct returns green/orange/red based on budget usage in percent.
func ColorForPct(pct float64) lipgloss.Color {
	p := cli.Active()
	switch {
	case pct >= 100:
		return p.Red
	case pct >= 80:
		return p.Orange
	default:
		return p.Green
	}
}

// BudgetBar renders usage in percent as a bar followed by the percentage.
// Usage over 100% renders a full bar.
func BudgetBar(pct float64, width int) string {
	color := ColorForPct(pct)
	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	frac := pct / 100
	if frac > 1 {
		frac = 1
	}
	if frac < 0 {
		frac = 0
	}
	label := lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf(" %5.1f%%", pct))
	return bar.ViewAs(frac) + label
}
