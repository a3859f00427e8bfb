package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorRed    = lipgloss.Color("#D14D41")
	colorMuted  = lipgloss.Color("#6F6E69")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	borderStyle = lipgloss.NewStyle().Foreground(colorBorder)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	goodStyle   = lipgloss.NewStyle().Foreground(colorGreen)
	badStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// Table is a bordered text table. Columns listed in RightAlign are padded
// on the left, which suits amounts.
type Table struct {
	Title      string
	Headers    []string
	Rows       [][]string
	RightAlign []int
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Width(48).
		Align(lipgloss.Center).
		Padding(0, 1)
	return box.Render(titleStyle.Render(title))
}

// RenderTable renders t with box-drawing borders.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	right := make(map[int]bool, len(t.RightAlign))
	for _, i := range t.RightAlign {
		right[i] = true
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule := func(left, mid, end string) {
		b.WriteString(borderStyle.Render(left))
		for i, w := range widths {
			b.WriteString(borderStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(borderStyle.Render(mid))
			}
		}
		b.WriteString(borderStyle.Render(end))
		b.WriteString("\n")
	}
	line := func(cells []string, style *lipgloss.Style) {
		b.WriteString(borderStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			var padded string
			if right[i] {
				padded = " " + pad + cell + " "
			} else {
				padded = " " + cell + pad + " "
			}
			if style != nil {
				padded = style.Render(padded)
			}
			b.WriteString(padded)
			b.WriteString(borderStyle.Render("│"))
		}
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, &headerStyle)
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		line(row, nil)
	}
	rule("╰", "┴", "╯")
	return b.String()
}

// Muted renders s in the dim text color.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// Remaining colors a remaining-budget amount: green when funds are left,
// red when the category is over budget.
func Remaining(formatted string, over bool) string {
	if over {
		return badStyle.Render(formatted)
	}
	return goodStyle.Render(formatted)
}

// Percent formats a rate in [0,1] as "12.34%".
func Percent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}
