package components

import (
	"strings"

	"github.com/aifinance/finctl/internal/cli"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name string
	Key  rune
}

// Tabs defines all available tabs. Each key is the tab's first letter.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o'},
	{Name: "Transactions", Key: 't'},
	{Name: "Budgets", Key: 'b'},
	{Name: "Market", Key: 'm'},
}

const tabPadding = 1

func renderTab(tab Tab, active bool) string {
	p := cli.Active()
	if active {
		return lipgloss.NewStyle().
			Foreground(p.Accent).
			Bold(true).
			Padding(0, tabPadding).
			Render(tab.Name)
	}
	key := lipgloss.NewStyle().Foreground(p.Accent).Bold(true)
	rest := lipgloss.NewStyle().Foreground(p.Muted)
	return lipgloss.NewStyle().Padding(0, tabPadding).Render(
		key.Render(tab.Name[:1]) + rest.Render(tab.Name[1:]),
	)
}

// RenderTabBar renders the tab bar with the given active index.
func RenderTabBar(activeIdx int) string {
	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		parts[i] = renderTab(tab, i == activeIdx)
	}
	return strings.Join(parts, "│")
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}

// TabAtX maps a column in the rendered tab bar to a tab index, or -1.
func TabAtX(activeIdx, x int) int {
	pos := 0
	for i, tab := range Tabs {
		w := lipgloss.Width(renderTab(tab, i == activeIdx))
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + 1 // separator
	}
	return -1
}
