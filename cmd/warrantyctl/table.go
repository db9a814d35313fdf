package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// table renders static rows with lipgloss. Colors and bold collapse to plain
// text when out is not a terminal.
type table struct {
	headers []string
	align   []lipgloss.Position
	rows    [][]string

	header lipgloss.Style
	cell   lipgloss.Style
	muted  lipgloss.Style
}

func newTable(out io.Writer, headers ...string) *table {
	r := lipgloss.NewRenderer(out)
	align := make([]lipgloss.Position, len(headers))
	for i := range align {
		align[i] = lipgloss.Left
	}
	return &table{
		headers: headers,
		align:   align,
		header:  r.NewStyle().Bold(true).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// alignRight right-aligns the given columns, used for amounts.
func (t *table) alignRight(cols ...int) *table {
	for _, c := range cols {
		if c < len(t.align) {
			t.align[c] = lipgloss.Right
		}
	}
	return t
}

func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer) error {
	_, err := io.WriteString(w, t.view())
	return err
}

func (t *table) view() string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(widths) && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}
	total := len(widths) - 1
	for i := range widths {
		widths[i] += 2 // padding
		total += widths[i]
	}

	var sb strings.Builder
	t.writeLine(&sb, t.headers, widths, t.header)
	sb.WriteString(t.muted.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")
	for _, row := range t.rows {
		t.writeLine(&sb, row, widths, t.cell)
	}
	return sb.String()
}

func (t *table) writeLine(sb *strings.Builder, cells []string, widths []int, style lipgloss.Style) {
	for i := range widths {
		var c string
		if i < len(cells) {
			c = cells[i]
		}
		sb.WriteString(style.Width(widths[i]).Align(t.align[i]).Render(c))
		if i < len(widths)-1 {
			sb.WriteString(t.muted.Render("|"))
		}
	}
	sb.WriteString("\n")
}
