package term

// History is the console's own record of submitted lines. Index -1 means the
// player is editing a fresh line rather than browsing.
type History struct {
	entries []string
	index   int
}

func NewHistory() *History { return &History{index: -1} }

func (h *History) Push(line string) {
	h.entries = append(h.entries, line)
	h.index = -1
}

// Prev moves towards older entries and returns the line to show.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.index == -1 {
		h.index = len(h.entries) - 1
	} else if h.index > 0 {
		h.index--
	}
	return h.entries[h.index], true
}

// Next moves towards newer entries. Walking past the newest returns to an
// empty line.
func (h *History) Next() (string, bool) {
	if h.index == -1 {
		return "", false
	}
	if h.index < len(h.entries)-1 {
		h.index++
		return h.entries[h.index], true
	}
	h.index = -1
	return "", true
}

func (h *History) Index() int { return h.index }
func (h *History) Len() int   { return len(h.entries) }

func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}
