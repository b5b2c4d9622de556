package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

type overlaySpec struct {
	title     string
	lines     []string
	actions   []string
	actionRow int
	width     int
	height    int
	startRow  int
	startCol  int
}

func (r *Root) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h, v := "─", "│"
	tl, tr, bl, br := "┌", "┐", "└", "┘"
	if r.ascii {
		h, v = "-", "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := tl + strings.Repeat(h, innerW) + tr
	if title != "" && innerW > 2 {
		t := trimForWidth(" "+title+" ", innerW-1)
		top = tl + h + t + strings.Repeat(h, max(0, innerW-1-ansi.StringWidth(t))) + tr
	}

	out := make([]string, 0, height)
	out = append(out, r.theme.PanelBorder.Render(top))
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		out = append(out, r.theme.PanelBorder.Render(v)+r.theme.PanelBody.Render(padCells(line, innerW))+r.theme.PanelBorder.Render(v))
	}
	out = append(out, r.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

// padCells cuts or pads s to exactly width terminal cells. Styling inside s
// survives.
func padCells(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = ansi.Truncate(strings.ReplaceAll(s, "\t", "    "), width, "")
	if w := ansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(ansi.Strip(s), "\n", " ")
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}

// composeOverlay centres overlay on base.
func composeOverlay(base, overlay string, cols, rows int) string {
	lines := strings.Split(strings.TrimRight(overlay, "\n"), "\n")
	ow := 1
	for _, line := range lines {
		ow = max(ow, ansi.StringWidth(line))
	}
	oh := min(len(lines), rows)
	return composeOverlayAt(base, overlay, cols, rows, (rows-oh)/2, max(0, (cols-min(ow, cols))/2))
}

// composeOverlayAt splices overlay into base with its top-left corner at
// (startRow, startCol). Base cells left and right of the overlay keep their
// styling.
func composeOverlayAt(base, overlay string, cols, rows, startRow, startCol int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	baseLines := strings.Split(base, "\n")
	for len(baseLines) < rows {
		baseLines = append(baseLines, "")
	}
	baseLines = baseLines[:rows]
	for i := range baseLines {
		baseLines[i] = padCells(baseLines[i], cols)
	}

	overlayLines := strings.Split(strings.TrimRight(overlay, "\n"), "\n")
	ow := 1
	for _, line := range overlayLines {
		ow = max(ow, ansi.StringWidth(line))
	}
	startRow = max(0, startRow)
	startCol = max(0, startCol)
	ow = min(ow, cols-startCol)
	if ow <= 0 {
		return strings.Join(baseLines, "\n")
	}

	for i, line := range overlayLines {
		row := startRow + i
		if row >= rows {
			break
		}
		left := ansi.Truncate(baseLines[row], startCol, "")
		right := ansi.TruncateLeft(baseLines[row], startCol+ow, "")
		baseLines[row] = left + "\x1b[m" + padCells(line, ow) + "\x1b[m" + right
	}
	return strings.Join(baseLines, "\n")
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		i = n - 1
	}
	if i >= n {
		i = 0
	}
	return i
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
