package term

import (
	"strings"
	"sync"
	"testing"
)

type submitRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *submitRecorder) submit(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

func (r *submitRecorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func newActiveConsole(t *testing.T) (*Console, *submitRecorder) {
	t.Helper()
	rec := &submitRecorder{}
	c := NewConsole("reika@ctf:~$", rec.submit)
	c.SetActive(true)
	return c, rec
}

func send(t *testing.T, c *Console, s string) {
	t.Helper()
	if err := c.SendInput([]byte(s)); err != nil {
		t.Fatalf("SendInput(%q): %v", s, err)
	}
}

func TestConsoleSubmitsTrimmedLines(t *testing.T) {
	c, rec := newActiveConsole(t)
	send(t, c, "  help  \r")
	send(t, c, "   \r")
	send(t, c, "\r")
	got := rec.got()
	if len(got) != 1 || got[0] != "help" {
		t.Fatalf("unexpected submissions: %q", got)
	}
	if c.Input() != "" {
		t.Fatalf("input should be cleared, got %q", c.Input())
	}
}

func TestConsoleInactiveDropsSubmit(t *testing.T) {
	rec := &submitRecorder{}
	c := NewConsole("$", rec.submit)
	send(t, c, "help\r")
	if len(rec.got()) != 0 {
		t.Fatalf("inactive console should not submit")
	}
	if len(c.History()) != 0 {
		t.Fatalf("inactive submit should not be recorded")
	}
}

func TestConsoleLineEditing(t *testing.T) {
	c, rec := newActiveConsole(t)
	send(t, c, "sbmit")
	send(t, c, "\x1b[D\x1b[D\x1b[D\x1b[D")
	send(t, c, "u")
	if c.Input() != "submit" || c.Cursor() != 2 {
		t.Fatalf("insert mid-line: %q cursor=%d", c.Input(), c.Cursor())
	}
	send(t, c, "\x05 ctf{x}\x7f")
	if c.Input() != "submit ctf{x" {
		t.Fatalf("end + backspace: %q", c.Input())
	}
	send(t, c, "\x17")
	if c.Input() != "submit " {
		t.Fatalf("ctrl-w: %q", c.Input())
	}
	send(t, c, "\x01\x1b[3~")
	if c.Input() != "ubmit " {
		t.Fatalf("home + delete: %q", c.Input())
	}
	send(t, c, "\x15")
	if c.Input() != "ubmit " || c.Cursor() != 0 {
		t.Fatalf("ctrl-u at line start keeps the line: %q cursor=%d", c.Input(), c.Cursor())
	}
	send(t, c, "\x05\x15")
	if c.Input() != "" || c.Cursor() != 0 {
		t.Fatalf("ctrl-u from end: %q cursor=%d", c.Input(), c.Cursor())
	}
	send(t, c, "héllo\r")
	if got := rec.got(); len(got) != 1 || got[0] != "héllo" {
		t.Fatalf("utf-8 submit: %q", got)
	}
}

func TestConsoleHistoryKeys(t *testing.T) {
	c, _ := newActiveConsole(t)
	send(t, c, "help\rchallenges\r")
	send(t, c, "\x1b[A")
	if c.Input() != "challenges" {
		t.Fatalf("up once: %q", c.Input())
	}
	send(t, c, "\x1b[A\x1b[A")
	if c.Input() != "help" {
		t.Fatalf("up clamps at oldest: %q", c.Input())
	}
	send(t, c, "\x1b[B\x1b[B")
	if c.Input() != "" {
		t.Fatalf("down past newest clears: %q", c.Input())
	}
}

func TestConsoleSplitEscapeSequence(t *testing.T) {
	c, _ := newActiveConsole(t)
	send(t, c, "ab")
	send(t, c, "\x1b[")
	send(t, c, "D")
	send(t, c, "X")
	if c.Input() != "aXb" {
		t.Fatalf("split CSI not reassembled: %q", c.Input())
	}
}

func TestConsolePasteSubmitsPerLine(t *testing.T) {
	c, rec := newActiveConsole(t)
	c.Paste("help\r\nchallenges\nhint ")
	got := rec.got()
	if len(got) != 2 || got[0] != "help" || got[1] != "challenges" {
		t.Fatalf("paste submissions: %q", got)
	}
	if c.Input() != "hint " {
		t.Fatalf("paste tail: %q", c.Input())
	}
}

func TestConsoleSubmitCallbackMayReenter(t *testing.T) {
	var c *Console
	c = NewConsole("$", func(line string) {
		c.SetOutput([]string{"$ " + line, "ok"})
	})
	c.SetActive(true)
	send(t, c, "whoami\r")
	if out := c.Output(); len(out) != 2 || out[1] != "ok" {
		t.Fatalf("reentrant output: %q", out)
	}
}

func TestConsoleSnapshotLayout(t *testing.T) {
	c, _ := newActiveConsole(t)
	c.SetPrompt("$")
	c.SetOutput([]string{"one", "two", "three", "four"})
	send(t, c, "ls")

	snap := c.Snapshot(20, 3)
	want := []string{"three", "four", "$ ls"}
	if strings.Join(snap.Lines, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %q, want %q", snap.Lines, want)
	}
	if !snap.CursorShow || snap.CursorY != 2 || snap.CursorX != 4 {
		t.Fatalf("cursor = (%d,%d,%v)", snap.CursorX, snap.CursorY, snap.CursorShow)
	}

	c.SetActive(false)
	snap = c.Snapshot(20, 3)
	if len(snap.Lines) != 3 || snap.Lines[2] != "four" || snap.CursorShow {
		t.Fatalf("inactive snapshot = %+v", snap)
	}
}

func TestConsoleSnapshotWrapsLongLines(t *testing.T) {
	c := NewConsole("$", nil)
	c.SetOutput([]string{"Description: find the hidden record"})
	snap := c.Snapshot(12, 10)
	if len(snap.Lines) < 3 {
		t.Fatalf("expected wrapping, got %q", snap.Lines)
	}
	for _, line := range snap.Lines {
		if len([]rune(line)) > 12 {
			t.Fatalf("line exceeds width: %q", line)
		}
	}
}

func TestConsolePromptScrollsHorizontally(t *testing.T) {
	c, _ := newActiveConsole(t)
	c.SetPrompt("$")
	send(t, c, strings.Repeat("x", 30))
	snap := c.Snapshot(10, 2)
	last := snap.Lines[len(snap.Lines)-1]
	if len([]rune(last)) > 10 || snap.CursorX != 9 {
		t.Fatalf("prompt line %q cursor=%d", last, snap.CursorX)
	}
}

func TestConsoleScrollback(t *testing.T) {
	c, _ := newActiveConsole(t)
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, "L"+string(rune('a'+i%26)))
	}
	c.SetOutput(lines)
	c.Snapshot(20, 6)

	send(t, c, "\x1b[5~")
	if !c.InScrollback() {
		t.Fatalf("pgup should enter scrollback")
	}
	snap := c.Snapshot(20, 6)
	if !snap.Scrollback || snap.CursorShow {
		t.Fatalf("scrollback snapshot flags wrong: %+v", snap)
	}
	if snap.Lines[len(snap.Lines)-2] == lines[len(lines)-1] {
		t.Fatalf("view did not move back")
	}

	c.Scroll(1000)
	snap = c.Snapshot(20, 6)
	if snap.Lines[0] != lines[0] {
		t.Fatalf("scroll should clamp at oldest line, got %q", snap.Lines[0])
	}

	send(t, c, "x")
	if c.InScrollback() {
		t.Fatalf("typing should return to the live view")
	}

	c.ToggleScrollback()
	c.Scroll(-5)
	if c.InScrollback() {
		t.Fatalf("scrolling to bottom should leave scrollback")
	}
}

func TestConsoleResetAndClose(t *testing.T) {
	c, _ := newActiveConsole(t)
	send(t, c, "help\rhalf")
	c.SetOutput([]string{"x"})
	c.Reset()
	if c.Input() != "" || len(c.Output()) != 0 || len(c.History()) != 0 {
		t.Fatalf("reset left state behind")
	}
	c.Close()
	if err := c.SendInput([]byte("a")); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestConsoleDirtyCallback(t *testing.T) {
	c, _ := newActiveConsole(t)
	n := 0
	c.SetOnDirty(func() { n++ })
	send(t, c, "a")
	c.SetOutput(nil)
	if n < 2 {
		t.Fatalf("expected dirty notifications, got %d", n)
	}
}
