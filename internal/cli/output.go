package cli

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func renderTable(w io.Writer, ascii bool, headers []string, rows [][]string) {
	border := lipgloss.RoundedBorder()
	if ascii {
		border = lipgloss.ASCIIBorder()
	}
	t := table.New().
		Border(border).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.String())
}

func heading(w io.Writer, text string) {
	fmt.Fprintln(w, headingStyle.Render(text))
}
