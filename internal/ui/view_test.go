package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"ctfdojo/internal/term"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
)

type mockController struct {
	mu       sync.Mutex
	starts   int
	restarts int
	quits    int
	inputs   [][]byte
	pastes   []string
}

func (m *mockController) OnStart()   { m.mu.Lock(); m.starts++; m.mu.Unlock() }
func (m *mockController) OnRestart() { m.mu.Lock(); m.restarts++; m.mu.Unlock() }
func (m *mockController) OnQuit()    { m.mu.Lock(); m.quits++; m.mu.Unlock() }

func (m *mockController) OnTerminalInput(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, append([]byte(nil), data...))
}

func (m *mockController) OnPaste(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pastes = append(m.pastes, content)
}

func (m *mockController) count(fn func() int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn()
}

// eventually polls because the view calls the controller on a goroutine.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func press(v *Root, code rune, mod tea.KeyMod, text string) {
	_, _ = v.Update(tea.KeyPressMsg{Code: code, Mod: mod, Text: text})
}

func newPlayingView(t *testing.T, opts Options) (*Root, *mockController, *term.Console) {
	t.Helper()
	console := term.NewConsole("player@ctf:~$", nil)
	console.SetActive(true)
	opts.Console = console
	v := New(opts)
	ctrl := &mockController{}
	v.SetController(ctrl)
	v.SetScreen(ScreenPlaying)
	v.SetPlayingState(PlayingState{
		CatalogID:   "dns",
		CatalogName: "Domain Detective",
		Clock:       "9:58",
		Duration:    600,
		Remaining:   598,
		Running:     true,
		Completed:   1,
		Total:       3,
		Score:       100,
		NounPlural:  "flags",
		Challenges: []ChallengeRow{
			{ID: 1, Title: "Zone Walk", Solved: true},
			{ID: 2, Title: "TXT Secrets"},
			{ID: 3, Title: "Mail Routes"},
		},
		Tips: []string{"Dig deeper."},
	})
	return v, ctrl, console
}

func TestBriefingEnterStartsRound(t *testing.T) {
	v := New(Options{})
	ctrl := &mockController{}
	v.SetController(ctrl)
	v.SetBriefing(BriefingState{Title: "Domain Detective", Markdown: "# Mission\n\nFind the flags."})

	press(v, tea.KeyEnter, 0, "")
	eventually(t, "OnStart", func() bool { return ctrl.count(func() int { return ctrl.starts }) == 1 })

	out := ansi.Strip(v.renderBriefing())
	if !strings.Contains(out, "Domain Detective") || !strings.Contains(out, "Mission") {
		t.Fatalf("briefing should render title and markdown:\n%s", out)
	}
}

func TestF6OpensRestartConfirmWithoutImmediateRestart(t *testing.T) {
	v, ctrl, _ := newPlayingView(t, Options{})

	press(v, tea.KeyF6, 0, "")
	if !v.confirmOpen {
		t.Fatalf("expected restart confirm to open")
	}
	press(v, tea.KeyEnter, 0, "")
	if v.confirmOpen {
		t.Fatalf("Enter on Cancel should close the confirm")
	}
	time.Sleep(20 * time.Millisecond)
	if got := ctrl.count(func() int { return ctrl.restarts }); got != 0 {
		t.Fatalf("cancel must not restart, got %d", got)
	}

	press(v, tea.KeyF6, 0, "")
	press(v, tea.KeyRight, 0, "")
	press(v, tea.KeyEnter, 0, "")
	eventually(t, "OnRestart", func() bool { return ctrl.count(func() int { return ctrl.restarts }) == 1 })
}

func TestResultModalButtons(t *testing.T) {
	v, ctrl, _ := newPlayingView(t, Options{})
	v.SetResult(ResultState{Visible: true, Won: true, Completed: 3, Total: 3, Clock: "4:12", Score: 300, NounPlural: "flags"})

	text := v.resultText()
	for _, want := range []string{"Congratulations!", "You collected 3 out of 3 flags!", "Perfect! You found all flags with 4:12 remaining!", "Score: 300 points"} {
		if !strings.Contains(text, want) {
			t.Fatalf("result text missing %q:\n%s", want, text)
		}
	}

	press(v, tea.KeyEnter, 0, "")
	eventually(t, "play again", func() bool { return ctrl.count(func() int { return ctrl.restarts }) == 1 })

	press(v, tea.KeyDown, 0, "")
	press(v, tea.KeyEnter, 0, "")
	eventually(t, "quit", func() bool { return ctrl.count(func() int { return ctrl.quits }) == 1 })
}

func TestLostResultShowsCollectedRow(t *testing.T) {
	v, _, _ := newPlayingView(t, Options{ASCIIOnly: true})
	v.SetResult(ResultState{Visible: true, Completed: 2, Total: 5, Clock: "0:00", NounPlural: "eggs"})

	text := v.resultText()
	if !strings.Contains(text, "Time's Up!") || strings.Contains(text, "Perfect") {
		t.Fatalf("unexpected lost text:\n%s", text)
	}
	if !strings.Contains(text, "You collected 2 out of 5 eggs!") || !strings.Contains(text, "**ooo") {
		t.Fatalf("expected collected row:\n%s", text)
	}
}

func TestEscPassesThroughToConsole(t *testing.T) {
	v, ctrl, _ := newPlayingView(t, Options{})

	press(v, tea.KeyEsc, 0, "")
	eventually(t, "escape forwarded", func() bool {
		return ctrl.count(func() int { return len(ctrl.inputs) }) == 1
	})
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if string(ctrl.inputs[0]) != "\x1b" {
		t.Fatalf("expected escape byte, got %q", ctrl.inputs[0])
	}
}

func TestTypingForwardsText(t *testing.T) {
	v, ctrl, _ := newPlayingView(t, Options{})

	press(v, 'h', 0, "h")
	press(v, tea.KeyEnter, 0, "")
	eventually(t, "two inputs", func() bool {
		return ctrl.count(func() int { return len(ctrl.inputs) }) == 2
	})
}

func TestPasteGoesToController(t *testing.T) {
	v, ctrl, _ := newPlayingView(t, Options{})

	_, _ = v.Update(tea.PasteMsg{Content: "submit FLAG{X}\n"})
	eventually(t, "paste", func() bool { return ctrl.count(func() int { return len(ctrl.pastes) }) == 1 })

	v.SetRestartConfirmOpen(true)
	_, _ = v.Update(tea.PasteMsg{Content: "ignored"})
	time.Sleep(20 * time.Millisecond)
	if got := ctrl.count(func() int { return len(ctrl.pastes) }); got != 1 {
		t.Fatalf("paste under an overlay must be dropped, got %d", got)
	}
}

func TestCtrlQQuitsFromAnyScreen(t *testing.T) {
	v, ctrl, _ := newPlayingView(t, Options{})
	v.SetResult(ResultState{Visible: true, Total: 3})

	press(v, 'q', tea.ModCtrl, "")
	eventually(t, "quit", func() bool { return ctrl.count(func() int { return ctrl.quits }) == 1 })
}

func TestF9TogglesScrollback(t *testing.T) {
	v, _, console := newPlayingView(t, Options{})
	lines := make([]string, 80)
	for i := range lines {
		lines[i] = "line"
	}
	console.SetOutput(lines)

	press(v, tea.KeyF9, 0, "")
	if !console.InScrollback() {
		t.Fatalf("F9 should enter scrollback")
	}
	press(v, tea.KeyUp, 0, "")
	v.cols, v.rows = 120, 30
	if out := ansi.Strip(v.renderPlaying()); !strings.Contains(out, "[SCROLLBACK]") {
		t.Fatalf("expected scrollback indicator:\n%s", out)
	}
	press(v, tea.KeyEsc, 0, "")
	if console.InScrollback() {
		t.Fatalf("Esc should leave scrollback")
	}
}

func TestWideLayoutShowsMissionPanel(t *testing.T) {
	v, _, _ := newPlayingView(t, Options{})
	v.cols, v.rows = 140, 40

	out := ansi.Strip(v.renderPlaying())
	for _, want := range []string{"Progress", "Zone Walk", "Quick Tips", "Dig deeper.", "Score", "100 points", "9:58", "1/3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("wide layout missing %q:\n%s", want, out)
		}
	}
	if !v.cursorShow {
		t.Fatalf("expected the prompt cursor to be shown")
	}
}

func TestCompactLayoutUsesDrawer(t *testing.T) {
	v, _, _ := newPlayingView(t, Options{MotionLevel: "off"})
	v.cols, v.rows = 100, 26

	if out := ansi.Strip(v.renderPlaying()); strings.Contains(out, "Quick Tips") {
		t.Fatalf("compact layout should hide the mission panel:\n%s", out)
	}
	press(v, tea.KeyF2, 0, "")
	if out := ansi.Strip(v.renderPlaying()); !strings.Contains(out, "Quick Tips") {
		t.Fatalf("F2 should open the mission drawer:\n%s", out)
	}
}

func TestTooSmallLayout(t *testing.T) {
	v, _, _ := newPlayingView(t, Options{})
	v.cols, v.rows = 60, 20
	out := ansi.Strip(v.renderPlaying())
	if !strings.Contains(out, "Terminal too small") || !strings.Contains(out, "Minimum: 80x24") {
		t.Fatalf("unexpected too-small render:\n%s", out)
	}
}

func TestComposeOverlayCentres(t *testing.T) {
	base := strings.Repeat("..........\n", 5)
	out := composeOverlay(base, "XX\nXX", 10, 5)
	lines := strings.Split(ansi.Strip(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(lines))
	}
	if lines[1] != "....XX...." || lines[2] != "....XX...." || lines[0] != ".........." {
		t.Fatalf("unexpected composition:\n%s", strings.Join(lines, "\n"))
	}
}

func TestPadCellsHandlesWideRunes(t *testing.T) {
	if got := padCells("🥚a", 4); ansi.StringWidth(got) != 4 {
		t.Fatalf("padCells width = %d", ansi.StringWidth(got))
	}
	if got := padCells("abcdef", 3); got != "abc" {
		t.Fatalf("padCells truncation = %q", got)
	}
}

func TestViewImplementsInterface(t *testing.T) {
	var _ View = New(Options{})
}
