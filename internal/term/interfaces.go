package term

type Pane interface {
	SendInput(data []byte) error
	Paste(content string)
	SetOutput(lines []string)
	SetActive(active bool)
	Active() bool
	ToggleScrollback()
	Scroll(delta int)
	InScrollback() bool
	Snapshot(width, height int) Snapshot
}

// Snapshot is a renderer-agnostic view of the console: plain lines plus
// cursor metadata for the prompt row.
type Snapshot struct {
	Lines      []string
	CursorX    int
	CursorY    int
	CursorShow bool
	Scrollback bool
}
