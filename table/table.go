// Package table renders task rows as right-aligned text columns.
package table

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Padding is added to the widest cell of each column.
const Padding = 3

var headerStyle = lipgloss.NewStyle().Bold(true)

// Widths returns the column widths for rows: the widest cell plus Padding.
// Ragged rows are allowed; missing cells count as empty.
func Widths(rows [][]string) []int {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			w := lipgloss.Width(cell) + Padding
			if i >= len(widths) {
				widths = append(widths, w)
				continue
			}
			if w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// Format right-aligns every cell to its column width and returns one line
// per row. An empty grid yields no lines.
func Format(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	widths := Widths(rows)
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)))
			b.WriteString(cell)
		}
		lines = append(lines, b.String())
	}
	return lines
}

// Render formats header plus rows. With color enabled the header line is
// styled bold.
func Render(header []string, rows [][]string, color bool) string {
	grid := make([][]string, 0, len(rows)+1)
	grid = append(grid, header)
	grid = append(grid, rows...)

	lines := Format(grid)
	if color && len(lines) > 0 {
		lines[0] = headerStyle.Render(lines[0])
	}
	return strings.Join(lines, "\n") + "\n"
}
