package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/aifinance/finctl/internal/apierr"

	"github.com/charmbracelet/lipgloss"
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

// Separator is a row value that renders as a horizontal rule.
var Separator = []string{"---"}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(active.Border).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table. The first column is left-aligned,
// the rest right-aligned.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}
	widths := columnWidths(t, numCols)

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	b.WriteString(rule(widths, "╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i := range numCols {
			h := ""
			if i < len(t.Headers) {
				h = t.Headers[i]
			}
			b.WriteString(headerStyle.Render(fmt.Sprintf(" %-*s ", widths[i], h)))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == Separator[0] {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}
		b.WriteString(dimStyle.Render("│"))
		for i := range numCols {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			format := " %*s "
			if i == 0 {
				format = " %-*s "
			}
			b.WriteString(valueStyle.Render(fmt.Sprintf(format, widths[i], cell)))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
	}
	b.WriteString(rule(widths, "╰", "┴", "╯"))
	return b.String()
}

func columnWidths(t Table, numCols int) []int {
	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
		return widths
	}
	grow := func(cells []string) {
		for i, c := range cells {
			if i < numCols && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}
	grow(t.Headers)
	for _, row := range t.Rows {
		grow(row)
	}
	return widths
}

func rule(widths []int, left, mid, right string) string {
	var b strings.Builder
	b.WriteString(left)
	for i, w := range widths {
		b.WriteString(strings.Repeat("─", w+2))
		if i < len(widths)-1 {
			b.WriteString(mid)
		}
	}
	b.WriteString(right)
	return dimStyle.Render(b.String()) + "\n"
}

// RenderKV renders aligned label/value pairs.
func RenderKV(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%-*s", width, p[0])))
		b.WriteString("  ")
		b.WriteString(valueStyle.Render(p[1]))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderUsageBar renders budget usage as a bar, colored by how close the
// spend is to the limit. pct is in percent and may exceed 100.
func RenderUsageBar(pct float64, width int) string {
	frac := pct / 100
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	style := goodStyle
	switch {
	case pct >= 100:
		style = badStyle
	case pct >= 80:
		style = warnStyle
	}
	return style.Render(bar)
}

// Good, Warn, Bad and Muted color a value for status columns.
func Good(s string) string  { return goodStyle.Render(s) }
func Warn(s string) string  { return warnStyle.Render(s) }
func Bad(s string) string   { return badStyle.Render(s) }
func Muted(s string) string { return mutedStyle.Render(s) }

// Notifier prints transient API messages as warning lines on w.
func Notifier(w io.Writer) apierr.Notifier {
	return apierr.WriterNotifier{
		W:      w,
		Format: func(msg string) string { return warnStyle.Render("! " + msg) },
	}
}
