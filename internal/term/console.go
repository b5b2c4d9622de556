package term

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

var ErrClosed = errors.New("console closed")

// Console is the in-game terminal: an append-only output log rendered above
// a single editable prompt line. Submitted lines are handed to the submit
// callback outside the console lock, so the callback may call back into the
// console.
type Console struct {
	mu sync.Mutex

	prompt  string
	output  []string
	input   []rune
	cursor  int
	active  bool
	closed  bool
	history *History

	scrollback   bool
	scrollOffset int
	pageSize     int

	// pending holds an escape sequence split across SendInput calls.
	pending []byte

	onSubmit func(string)
	onDirty  func()
}

func NewConsole(prompt string, onSubmit func(line string)) *Console {
	return &Console{
		prompt:   prompt,
		history:  NewHistory(),
		pageSize: 10,
		onSubmit: onSubmit,
	}
}

// SetOnDirty registers a callback fired after any visible change.
func (c *Console) SetOnDirty(fn func()) {
	c.mu.Lock()
	c.onDirty = fn
	c.mu.Unlock()
}

func (c *Console) SetOnSubmit(fn func(line string)) {
	c.mu.Lock()
	c.onSubmit = fn
	c.mu.Unlock()
}

func (c *Console) SetPrompt(prompt string) {
	c.mu.Lock()
	c.prompt = prompt
	c.mu.Unlock()
	c.markDirty()
}

func (c *Console) Prompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompt
}

// SetOutput replaces the visible log. Scrollback position is kept so a
// player reading history is not yanked to the bottom by a clock tick.
func (c *Console) SetOutput(lines []string) {
	c.mu.Lock()
	c.output = append(c.output[:0:0], lines...)
	c.mu.Unlock()
	c.markDirty()
}

func (c *Console) Output() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.output...)
}

// SetActive enables or disables the prompt. Deactivating drops any half
// typed line.
func (c *Console) SetActive(active bool) {
	c.mu.Lock()
	c.active = active
	if !active {
		c.input = nil
		c.cursor = 0
	}
	c.mu.Unlock()
	c.markDirty()
}

func (c *Console) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Console) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.input)
}

func (c *Console) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *Console) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Entries()
}

// Reset returns the console to a blank state for a new round.
func (c *Console) Reset() {
	c.mu.Lock()
	c.output = nil
	c.input = nil
	c.cursor = 0
	c.history = NewHistory()
	c.scrollback = false
	c.scrollOffset = 0
	c.pending = nil
	c.mu.Unlock()
	c.markDirty()
}

func (c *Console) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Paste inserts text at the cursor. Every newline in the paste submits the
// line built so far.
func (c *Console) Paste(content string) {
	lines, tail := SplitPaste(content)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	var submitted []string
	for _, line := range lines {
		c.insertLocked([]rune(line))
		if s, ok := c.submitLocked(); ok {
			submitted = append(submitted, s)
		}
	}
	c.insertLocked([]rune(tail))
	c.mu.Unlock()
	c.deliver(submitted)
}

// SendInput feeds raw terminal bytes through the line editor.
func (c *Console) SendInput(data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if len(c.pending) > 0 {
		data = append(c.pending, data...)
		c.pending = nil
	}
	submitted := c.feedLocked(data)
	c.mu.Unlock()
	c.deliver(submitted)
	return nil
}

func (c *Console) deliver(submitted []string) {
	c.mu.Lock()
	fn := c.onSubmit
	c.mu.Unlock()
	if fn != nil {
		for _, line := range submitted {
			fn(line)
		}
	}
	c.markDirty()
}

func (c *Console) markDirty() {
	c.mu.Lock()
	fn := c.onDirty
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Console) feedLocked(data []byte) []string {
	var submitted []string
	for i := 0; i < len(data); {
		b := data[i]
		switch {
		case b == 0x1b:
			n, complete := c.escapeLocked(data[i:])
			if !complete {
				c.pending = append([]byte(nil), data[i:]...)
				return submitted
			}
			i += n
			continue
		case b == '\r' || b == '\n':
			if b == '\r' && i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			if s, ok := c.submitLocked(); ok {
				submitted = append(submitted, s)
			}
		case b == 0x7f || b == 0x08:
			c.backspaceLocked()
		case b == 0x01:
			c.cursor = 0
		case b == 0x05:
			c.cursor = len(c.input)
		case b == 0x04:
			c.deleteLocked()
		case b == 0x0b:
			c.input = c.input[:c.cursor]
		case b == 0x15:
			c.input = append([]rune(nil), c.input[c.cursor:]...)
			c.cursor = 0
		case b == 0x17:
			c.deleteWordLocked()
		case b == '\t':
			c.insertLocked([]rune{' '})
		case b < 0x20:
		default:
			r, size := utf8.DecodeRune(data[i:])
			if r == utf8.RuneError && size <= 1 {
				if !utf8.FullRune(data[i:]) {
					c.pending = append([]byte(nil), data[i:]...)
					return submitted
				}
				i++
				continue
			}
			c.insertLocked([]rune{r})
			i += size
			continue
		}
		i++
	}
	return submitted
}

// escapeLocked consumes one escape sequence and reports how many bytes it
// used. complete is false when the sequence is cut off at the end of data.
func (c *Console) escapeLocked(data []byte) (n int, complete bool) {
	if len(data) < 2 {
		// A lone ESC is the escape key itself.
		return 1, true
	}
	switch data[1] {
	case '[':
		j := 2
		for j < len(data) && data[j] >= 0x30 && data[j] <= 0x3f {
			j++
		}
		if j >= len(data) {
			return 0, false
		}
		c.csiLocked(string(data[2:j]), data[j])
		return j + 1, true
	case 'O':
		if len(data) < 3 {
			return 0, false
		}
		c.csiLocked("", data[2])
		return 3, true
	}
	// Alt+key: drop the prefix and let the key through.
	return 1, true
}

func (c *Console) csiLocked(params string, final byte) {
	first := params
	if idx := strings.IndexByte(params, ';'); idx >= 0 {
		first = params[:idx]
	}
	n, _ := strconv.Atoi(first)
	switch final {
	case 'A':
		if c.scrollback {
			c.scrollLocked(1)
			return
		}
		if line, ok := c.history.Prev(); ok {
			c.setInputLocked(line)
		}
	case 'B':
		if c.scrollback {
			c.scrollLocked(-1)
			return
		}
		if line, ok := c.history.Next(); ok {
			c.setInputLocked(line)
		}
	case 'C':
		if c.cursor < len(c.input) {
			c.cursor++
		}
	case 'D':
		if c.cursor > 0 {
			c.cursor--
		}
	case 'H':
		c.cursor = 0
	case 'F':
		c.cursor = len(c.input)
	case '~':
		switch n {
		case 1, 7:
			c.cursor = 0
		case 4, 8:
			c.cursor = len(c.input)
		case 3:
			c.deleteLocked()
		case 5:
			c.scrollback = true
			c.scrollLocked(c.pageSize)
		case 6:
			if c.scrollback {
				c.scrollLocked(-c.pageSize)
			}
		}
	}
}

func (c *Console) submitLocked() (string, bool) {
	line := strings.TrimSpace(string(c.input))
	c.input = nil
	c.cursor = 0
	if !c.active || line == "" {
		return "", false
	}
	c.history.Push(line)
	c.scrollback = false
	c.scrollOffset = 0
	return line, true
}

func (c *Console) insertLocked(rs []rune) {
	if len(rs) == 0 {
		return
	}
	if c.scrollback {
		c.scrollback = false
		c.scrollOffset = 0
	}
	clean := rs[:0:0]
	for _, r := range rs {
		if unicode.IsPrint(r) || r == ' ' {
			clean = append(clean, r)
		}
	}
	next := make([]rune, 0, len(c.input)+len(clean))
	next = append(next, c.input[:c.cursor]...)
	next = append(next, clean...)
	next = append(next, c.input[c.cursor:]...)
	c.input = next
	c.cursor += len(clean)
}

func (c *Console) backspaceLocked() {
	if c.cursor == 0 {
		return
	}
	c.input = append(c.input[:c.cursor-1], c.input[c.cursor:]...)
	c.cursor--
}

func (c *Console) deleteLocked() {
	if c.cursor >= len(c.input) {
		return
	}
	c.input = append(c.input[:c.cursor], c.input[c.cursor+1:]...)
}

func (c *Console) deleteWordLocked() {
	start := c.cursor
	for start > 0 && c.input[start-1] == ' ' {
		start--
	}
	for start > 0 && c.input[start-1] != ' ' {
		start--
	}
	c.input = append(c.input[:start], c.input[c.cursor:]...)
	c.cursor = start
}

func (c *Console) setInputLocked(line string) {
	c.input = []rune(line)
	c.cursor = len(c.input)
}

// ToggleScrollback freezes the view for reading older output.
func (c *Console) ToggleScrollback() {
	c.mu.Lock()
	c.scrollback = !c.scrollback
	if !c.scrollback {
		c.scrollOffset = 0
	}
	c.mu.Unlock()
	c.markDirty()
}

// Scroll moves the scrollback window; positive deltas go towards older
// output. Scrolling back to the bottom leaves scrollback mode.
func (c *Console) Scroll(delta int) {
	c.mu.Lock()
	c.scrollback = true
	c.scrollLocked(delta)
	c.mu.Unlock()
	c.markDirty()
}

func (c *Console) scrollLocked(delta int) {
	c.scrollOffset += delta
	if c.scrollOffset <= 0 {
		c.scrollOffset = 0
		c.scrollback = false
	}
}

func (c *Console) InScrollback() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrollback
}

// Snapshot lays out the console for a width x height cell area. The last
// row is the prompt when the console is active.
func (c *Console) Snapshot(width, height int) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if width < 1 {
		width = 1
	}
	if height < 1 {
		return Snapshot{Scrollback: c.scrollback}
	}

	body := height
	if c.active {
		body--
	}
	c.pageSize = max(1, body-1)

	wrapped := WrapLines(c.output, width)
	offset := 0
	if c.scrollback {
		maxOffset := max(0, len(wrapped)-body)
		if c.scrollOffset > maxOffset {
			c.scrollOffset = maxOffset
		}
		offset = c.scrollOffset
	}
	end := len(wrapped) - offset
	start := max(0, end-body)

	snap := Snapshot{Scrollback: c.scrollback}
	snap.Lines = append(snap.Lines, wrapped[start:end]...)
	if c.active {
		line, x := c.promptLineLocked(width)
		snap.CursorY = len(snap.Lines)
		snap.CursorX = x
		snap.CursorShow = !c.scrollback
		snap.Lines = append(snap.Lines, line)
	}
	return snap
}

// promptLineLocked renders "prompt input" and scrolls it horizontally so the
// cursor stays visible.
func (c *Console) promptLineLocked(width int) (string, int) {
	head := c.prompt + " " + string(c.input[:c.cursor])
	line := c.prompt + " " + string(c.input)
	x := ansi.StringWidth(head)
	if x < width {
		return ansi.Truncate(line, width, ""), x
	}
	cut := x - width + 1
	return ansi.Truncate(ansi.TruncateLeft(line, cut, ""), width, ""), width - 1
}

// WrapLines soft-wraps each line at width, keeping blank lines.
func WrapLines(lines []string, width int) []string {
	if width < 1 {
		width = 1
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			out = append(out, "")
			continue
		}
		out = append(out, strings.Split(ansi.Wrap(line, width, ""), "\n")...)
	}
	return out
}
