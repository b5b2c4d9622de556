package ui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
)

const sidePanelWidth = 38

var defaultTips = []string{
	"Type help to list every command.",
	"challenge n shows the full task.",
	"hint n costs nothing but pride.",
	"Flags are matched without regard to case.",
}

func (r *Root) glyph(fancy, plain string) string {
	if r.ascii {
		return plain
	}
	return fancy
}

func (r *Root) renderBriefing() string {
	w, h := r.cols, r.rows
	title := "CTF Dojo"
	if r.briefing.Title != "" {
		title += " | " + r.briefing.Title
	}
	header := r.theme.Header.Width(max(1, w)).Render(trimForWidth(title, max(1, w-2)))

	bodyH := max(3, h-2)
	innerW := max(1, w-2)
	r.ensureBriefing(innerW, max(1, bodyH-2))
	lines := strings.Split(r.briefingView.View(), "\n")
	body := r.drawPanel("Briefing", lines, w, bodyH)

	footer := "Enter: Start  Up/Down/PgUp/PgDn: Scroll  q: Quit"
	if r.briefing.Best != "" {
		footer = r.briefing.Best + " | " + footer
	}
	status := r.theme.Status.Width(max(1, w)).Render(trimForWidth(footer, max(1, w-2)))
	return header + "\n" + body + "\n" + status
}

// ensureBriefing re-renders the markdown only when it or the width changed.
func (r *Root) ensureBriefing(width, height int) {
	r.briefingView.SetWidth(width)
	r.briefingView.SetHeight(height)
	if !r.briefingDirty && r.briefingWidth == width {
		return
	}
	r.briefingView.SetContent(r.renderMarkdown(r.briefing.Markdown, width))
	r.briefingWidth = width
	r.briefingDirty = false
}

func (r *Root) renderMarkdown(md string, width int) string {
	if r.markdown == nil || r.briefingWidth != width {
		style := "dark"
		if r.ascii {
			style = "ascii"
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(max(20, width-4)),
		)
		if err != nil {
			r.logger.Warn("ui.markdown_renderer_failed", "err", err)
			renderer = nil
		}
		r.markdown = renderer
	}
	if r.markdown != nil {
		if out, err := r.markdown.Render(md); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return ansi.Wordwrap(md, width, "")
}

func (r *Root) renderPlaying() string {
	w, h := r.cols, r.rows
	mode := DetermineLayoutMode(w, h)
	r.layout = mode

	if mode == LayoutTooSmall {
		msg := []string{
			"Terminal too small",
			fmt.Sprintf("Current: %dx%d", w, h),
			fmt.Sprintf("Minimum: %dx%d", minCols, minRows),
			"Resize the terminal to continue.",
		}
		panel := r.drawPanel("Resize Required", msg, min(60, w), min(8, h))
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
	}

	header := r.headerText()
	status := r.statusText()
	bodyH := max(3, h-2)
	bodyY := 1

	var body string
	if mode == LayoutWide {
		sideW := min(sidePanelWidth, max(30, w/3))
		termW := max(20, w-sideW)
		termPanel := r.renderTerminalPanel(termW, bodyH, 0, bodyY)
		side := r.drawPanel("Mission", r.sideLines(sideW-2), sideW, bodyH)
		body = lipgloss.JoinHorizontal(lipgloss.Top, termPanel, side)
	} else {
		body = r.renderTerminalPanel(w, bodyH, 0, bodyY)
	}

	base := header + "\n" + body + "\n" + status
	if mode == LayoutCompact {
		if drawer := r.renderDrawer(bodyH); drawer != "" {
			base = composeOverlayAt(base, drawer, w, h, bodyY, 0)
		}
	}
	return base
}

func (r *Root) renderTerminalPanel(width, height, originX, originY int) string {
	innerW := max(1, width-2)
	innerH := max(1, height-2)
	lines := make([]string, innerH)
	if r.pane == nil {
		lines[0] = "No console attached"
		return r.drawPanel("Terminal", lines, width, height)
	}

	snap := r.pane.Snapshot(innerW, innerH)
	copy(lines, snap.Lines)
	if snap.Scrollback && len(lines) > 0 {
		indicator := "[SCROLLBACK] "
		lines[0] = indicator + ansi.TruncateLeft(padCells(lines[0], innerW), ansi.StringWidth(indicator), "")
	}
	if snap.CursorShow && snap.CursorY >= 0 && snap.CursorY < len(lines) && snap.CursorX >= 0 && snap.CursorX < innerW {
		row := padCells(lines[snap.CursorY], innerW)
		cursor := r.glyph("▌", "|")
		lines[snap.CursorY] = ansi.Truncate(row, snap.CursorX, "") + cursor + ansi.TruncateLeft(row, snap.CursorX+1, "")
		x := originX + 1 + snap.CursorX
		y := originY + 1 + snap.CursorY
		if x < r.cols && y < r.rows {
			r.cursorX = x
			r.cursorY = y
			r.cursorShow = true
		}
	}
	return r.drawPanel("Terminal", lines, width, height)
}

// renderDrawer slides the mission panel in from the left in compact layout.
func (r *Root) renderDrawer(bodyHeight int) string {
	pos := r.drawerPos
	if r.drawerOpen && pos < 0.2 {
		pos = 0.2
	}
	if !r.drawerOpen && pos < 0.05 {
		return ""
	}
	fullW := min(sidePanelWidth, max(24, r.cols-18))
	drawW := int(float64(fullW) * pos)
	if drawW < 18 {
		return ""
	}
	lines := append(r.sideLines(drawW-2), "", "F2/Esc closes")
	return r.drawPanel("Mission", lines, drawW, bodyHeight)
}

func (r *Root) sideLines(width int) []string {
	s := r.state
	var lines []string

	title := r.glyph("📊 Progress", "Progress")
	if s.Total > 0 && s.Completed == s.Total {
		title += r.glyph(" ✅", " (done)")
	} else if s.Running {
		title += r.glyph(" ⏳", "")
	}
	lines = append(lines, r.theme.PanelTitle.Render(title))
	for _, ch := range s.Challenges {
		mark := r.glyph("⏳", "[ ]")
		style := r.theme.Pending
		if ch.Solved {
			mark = r.glyph("✅", "[x]")
			style = r.theme.Pass
		}
		lines = append(lines, style.Render(trimForWidth(fmt.Sprintf("%s %d. %s", mark, ch.ID, ch.Title), width)))
	}
	lines = append(lines, trimForWidth(fmt.Sprintf("%d of %d %s found", s.Completed, s.Total, r.nounPlural()), width))

	lines = append(lines, "", r.theme.PanelTitle.Render(r.glyph("💡 Quick Tips", "Quick Tips")))
	tips := s.Tips
	if len(tips) == 0 {
		tips = defaultTips
	}
	bullet := r.glyph("• ", "- ")
	for _, tip := range tips {
		wrapped := strings.Split(ansi.Wordwrap(tip, max(8, width-2), ""), "\n")
		for i, part := range wrapped {
			if i == 0 {
				lines = append(lines, bullet+part)
			} else {
				lines = append(lines, "  "+part)
			}
		}
	}

	lines = append(lines, "", r.theme.PanelTitle.Render(r.glyph("🏆 Score", "Score")))
	lines = append(lines, r.theme.Accent.Render(fmt.Sprintf("%d points", s.Score)))
	lines = append(lines, r.theme.Muted.Render(fmt.Sprintf("Hints used: %d", s.HintsUsed)))
	return lines
}

func (r *Root) headerText() string {
	s := r.state
	width := max(1, r.cols-2)

	clock := r.glyph("⏱ ", "Time ") + firstNonEmptyStr(s.Clock, "0:00")
	if s.Running && s.Remaining <= 60 {
		clock = r.theme.Fail.Render(clock)
	}
	found := fmt.Sprintf("%s %d/%d", r.glyph("🚩", "Found"), s.Completed, s.Total)
	parts := []string{"CTF Dojo"}
	if s.CatalogName != "" {
		parts = append(parts, s.CatalogName)
	}
	parts = append(parts, clock, found)
	if r.debug {
		parts = append(parts, fmt.Sprintf("%dx%d %v", r.cols, r.rows, r.layout))
	}
	txt := strings.Join(parts, " | ")
	if s.Running {
		txt = strings.TrimSpace(r.clockSpin.View()) + " " + txt
	}
	if ansi.StringWidth(txt) > width {
		return r.theme.Header.Width(max(1, r.cols)).Render(ansi.Truncate(txt, width, "…"))
	}

	room := width - ansi.StringWidth(txt) - 3
	if room >= 12 {
		txt += "   " + r.progressView(min(30, room))
	}
	return r.theme.Header.Width(max(1, r.cols)).Render(txt)
}

func (r *Root) progressView(width int) string {
	bar := r.progressBar
	bar.SetWidth(max(8, width))
	return bar.ViewAs(r.progressPercent())
}

func (r *Root) progressPercent() float64 {
	if r.state.Total == 0 {
		return 0
	}
	return float64(r.state.Completed) / float64(r.state.Total)
}

func (r *Root) statusText() string {
	keys := r.help.View(r.keymap)
	if keys == "" {
		keys = "F2 Progress  F6 Restart  F9 Scrollback  Ctrl+Q Quit"
	}
	if r.statusFlash != "" {
		keys += " | " + r.statusFlash
	}
	keys = trimForWidth(keys, max(1, r.cols-2))
	return r.theme.Status.Width(max(1, r.cols)).Render(keys)
}

func (r *Root) nounPlural() string {
	if r.result.NounPlural != "" {
		return r.result.NounPlural
	}
	return firstNonEmptyStr(r.state.NounPlural, "flags")
}

func (r *Root) resultText() string {
	res := r.result
	if !res.Visible {
		return ""
	}
	noun := r.nounPlural()
	var b strings.Builder
	if res.Won {
		b.WriteString(r.glyph("🎉 Congratulations!", "*** Congratulations! ***"))
	} else {
		b.WriteString(r.glyph("⏰ Time's Up!", "*** Time's Up! ***"))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "You collected %d out of %d %s!\n", res.Completed, res.Total, noun)
	if res.Won {
		fmt.Fprintf(&b, "%sPerfect! You found all %s with %s remaining!\n", r.glyph("🏆 ", ""), noun, res.Clock)
	}
	b.WriteString("\n")
	b.WriteString(r.collectedRow(res.Completed, res.Total))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Score: %d points   Hints used: %d\n", res.Score, res.HintsUsed)
	return b.String()
}

func (r *Root) collectedRow(completed, total int) string {
	got := r.glyph("🚩", "*")
	if r.state.CatalogID == "eggs" {
		got = r.glyph("🥚", "*")
	}
	missing := r.glyph("⭕", "o")
	sep := " "
	if r.ascii {
		sep = ""
	}
	icons := make([]string, 0, total)
	for i := 0; i < total; i++ {
		if i < completed {
			icons = append(icons, got)
		} else {
			icons = append(icons, missing)
		}
	}
	return strings.Join(icons, sep)
}

func (r *Root) resultButtons() []string {
	if !r.result.Visible {
		return nil
	}
	return []string{r.glyph("🔄 Play Again", "Play Again"), "Quit"}
}

func (r *Root) topOverlay() string {
	switch {
	case r.confirmOpen:
		return "confirm"
	case r.result.Visible:
		return "result"
	}
	return ""
}

func (r *Root) overlayActive() bool {
	return r.topOverlay() != ""
}

func (r *Root) renderOverlay() string {
	spec, ok := r.overlaySpec(r.topOverlay())
	if !ok {
		return ""
	}
	return r.drawPanel(spec.title, spec.lines, spec.width, spec.height)
}

func (r *Root) overlaySpec(top string) (overlaySpec, bool) {
	var spec overlaySpec
	var selected int
	switch top {
	case "confirm":
		spec.title = "Restart Round"
		spec.lines = []string{"Restart the round? The clock and every solved challenge reset.", ""}
		spec.actions = []string{"Cancel", "Restart"}
		selected = r.confirmIndex
	case "result":
		spec.title = "Game Over"
		spec.lines = strings.Split(strings.TrimSuffix(r.resultText(), "\n"), "\n")
		spec.lines = append(spec.lines, "")
		spec.actions = r.resultButtons()
		selected = r.resultIndex
	default:
		return overlaySpec{}, false
	}

	spec.actionRow = len(spec.lines)
	for i, label := range spec.actions {
		prefix := "  "
		if i == selected {
			prefix = "> "
		}
		spec.lines = append(spec.lines, prefix+label)
	}

	need := 0
	for _, line := range spec.lines {
		need = max(need, ansi.StringWidth(line))
	}
	spec.width = min(max(48, need+4), max(4, r.cols-2))
	spec.height = min(len(spec.lines)+2, max(3, r.rows-2))
	spec.startRow = max(0, (r.rows-spec.height)/2)
	spec.startCol = max(0, (r.cols-spec.width)/2)
	return spec, true
}

func firstNonEmptyStr(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
