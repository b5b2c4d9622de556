package ui

const (
	minCols  = 80
	minRows  = 24
	wideCols = 120
	wideRows = 30
)

func DetermineLayoutMode(cols, rows int) LayoutMode {
	if cols < minCols || rows < minRows {
		return LayoutTooSmall
	}
	if cols >= wideCols && rows >= wideRows {
		return LayoutWide
	}
	return LayoutCompact
}
