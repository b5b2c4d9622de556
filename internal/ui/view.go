package ui

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"ctfdojo/internal/term"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
)

type applyMsg struct {
	fn func(*Root)
}

type drawMsg struct{}
type clockMsg time.Time
type animateMsg time.Time

type gameKeyMap struct {
	Help       key.Binding
	Drawer     key.Binding
	Restart    key.Binding
	Scrollback key.Binding
	Quit       key.Binding
}

func (k gameKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Drawer, k.Restart, k.Scrollback, k.Quit}
}

func (k gameKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Help, k.Drawer}, {k.Restart, k.Scrollback, k.Quit}}
}

// Root is the Bubble Tea model for the whole game window. Setters may be
// called from any goroutine; once the program runs they are funnelled
// through Update as applyMsg.
type Root struct {
	theme        Theme
	ascii        bool
	debug        bool
	pane         term.Pane
	ctrl         Controller
	styleVariant string
	motionLevel  string
	mouseScope   string

	mu      sync.Mutex
	program *tea.Program
	running bool

	screen Screen
	layout LayoutMode
	cols   int
	rows   int

	briefing      BriefingState
	briefingView  viewport.Model
	briefingWidth int
	briefingDirty bool
	markdown      *glamour.TermRenderer

	state        PlayingState
	result       ResultState
	statusFlash  string
	confirmOpen  bool
	confirmIndex int
	resultIndex  int
	drawerOpen   bool

	help        help.Model
	keymap      gameKeyMap
	progressBar progress.Model
	clockSpin   spinner.Model
	logger      *clog.Logger
	drawerPos   float64
	drawerVel   float64
	spring      harmonica.Spring

	drawPending atomic.Bool

	cursorX    int
	cursorY    int
	cursorShow bool

	lastInputEvent string
}

type Options struct {
	ASCIIOnly    bool
	Debug        bool
	Console      term.Pane
	StyleVariant string
	MotionLevel  string
	MouseScope   string
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "ctfdojo-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	motionLevel := normalizeMotionLevel(opts.MotionLevel)
	mouseScope := normalizeMouseScope(opts.MouseScope)
	styleVariant := normalizeStyleVariant(opts.StyleVariant)
	theme := ThemeForVariant(styleVariant)

	spring := harmonica.NewSpring(harmonica.FPS(60), 10.0, 0.8)
	switch motionLevel {
	case "reduced":
		spring = harmonica.NewSpring(harmonica.FPS(30), 9.0, 0.92)
	case "off":
		spring = harmonica.NewSpring(harmonica.FPS(60), 1000.0, 1.0)
	}
	bar := progress.New(
		progress.WithWidth(20),
		progress.WithColors(lipgloss.Color("#5EC2FF"), lipgloss.Color("#79E6A6"), lipgloss.Color("#F2D16B")),
		progress.WithScaled(true),
	)
	if motionLevel == "off" {
		bar.SetSpringOptions(1000.0, 1.0)
	}
	spin := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Accent),
	)

	r := &Root{
		theme:         theme,
		ascii:         opts.ASCIIOnly,
		debug:         opts.Debug,
		pane:          opts.Console,
		styleVariant:  styleVariant,
		motionLevel:   motionLevel,
		mouseScope:    mouseScope,
		screen:        ScreenBriefing,
		layout:        LayoutWide,
		cols:          120,
		rows:          30,
		briefingView:  viewport.New(viewport.WithWidth(80), viewport.WithHeight(20)),
		briefingDirty: true,
		help:          h,
		progressBar:   bar,
		clockSpin:     spin,
		logger:        logger,
		spring:        spring,
	}
	r.keymap = gameKeyMap{
		Help:       key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "Keys")),
		Drawer:     key.NewBinding(key.WithKeys("f2"), key.WithHelp("F2", "Progress")),
		Restart:    key.NewBinding(key.WithKeys("f6"), key.WithHelp("F6", "Restart")),
		Scrollback: key.NewBinding(key.WithKeys("f9"), key.WithHelp("F9", "Scrollback")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("Ctrl+Q", "Quit")),
	}
	return r
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(clockTickCmd(), animateTickCmd(), spinnerTickCmd(r.clockSpin))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.animateIfNeeded()
	case drawMsg:
		r.drawPending.Store(false)
		return r, nil
	case clockMsg:
		return r, clockTickCmd()
	case animateMsg:
		target := r.drawerTarget()
		r.drawerPos, r.drawerVel = r.spring.Update(r.drawerPos, r.drawerVel, target)
		if r.shouldAnimate(target) {
			return r, animateTickCmd()
		}
		r.drawerPos = target
		r.drawerVel = 0
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.clockSpin, cmd = r.clockSpin.Update(msg)
		return r, cmd
	case tea.PasteMsg:
		return r.handlePaste(msg)
	case tea.ClipboardMsg:
		return r.handlePaste(tea.PasteMsg{Content: msg.Content})
	case tea.MouseClickMsg:
		return r.handleMouseClick(msg)
	case tea.MouseWheelMsg:
		return r.handleMouseWheel(msg)
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			if r.statusFlash == "" {
				r.statusFlash = "Recovered UI panic"
			}
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth("UI recovered from a rendering panic. Check logs.", max(1, width-1))))
		}
	}()

	if r.cols < 1 {
		r.cols = 120
	}
	if r.rows < 1 {
		r.rows = 30
	}
	r.cursorShow = false

	var base string
	if r.screen == ScreenBriefing {
		base = r.renderBriefing()
	} else {
		base = r.renderPlaying()
	}
	if overlay := r.renderOverlay(); overlay != "" {
		base = composeOverlay(base, overlay, r.cols, r.rows)
	}

	v := tea.NewView(base)
	v.AltScreen = true
	v.MouseMode = r.currentMouseMode()
	if r.cursorShow && !r.overlayActive() && r.screen == ScreenPlaying {
		v.Cursor = tea.NewCursor(r.cursorX, r.cursorY)
	}
	return v
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetScreen(screen Screen) {
	r.apply(func(m *Root) {
		m.screen = screen
		if screen == ScreenBriefing {
			m.confirmOpen = false
			m.drawerOpen = false
			m.briefingView.GotoTop()
		}
	})
}

func (r *Root) SetBriefing(state BriefingState) {
	r.apply(func(m *Root) {
		m.briefing = state
		m.briefingDirty = true
	})
}

func (r *Root) SetPlayingState(s PlayingState) {
	r.apply(func(m *Root) {
		m.state = s
	})
}

func (r *Root) SetResult(state ResultState) {
	r.apply(func(m *Root) {
		if state.Visible && !m.result.Visible {
			m.resultIndex = 0
			m.confirmOpen = false
		}
		m.result = state
	})
}

func (r *Root) SetRestartConfirmOpen(open bool) {
	r.apply(func(m *Root) {
		m.confirmOpen = open
		m.confirmIndex = 0
	})
}

func (r *Root) SetDrawerOpen(open bool) {
	r.apply(func(m *Root) {
		m.drawerOpen = open
		if m.motionLevel == "off" {
			m.drawerPos = m.drawerTarget()
			m.drawerVel = 0
		}
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
	})
}

// RequestDraw coalesces redraw requests into at most one per frame.
func (r *Root) RequestDraw() {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return
	}
	if !r.drawPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(16*time.Millisecond, func() {
		r.mu.Lock()
		p := r.program
		running := r.running
		r.mu.Unlock()
		if !running || p == nil {
			r.drawPending.Store(false)
			return
		}
		p.Send(drawMsg{})
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

// dispatchController calls out on a fresh goroutine so the controller can
// call setters without deadlocking the update loop.
func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

func (r *Root) drawerTarget() float64 {
	if r.drawerOpen {
		return 1
	}
	return 0
}

func (r *Root) animateIfNeeded() tea.Cmd {
	if r.shouldAnimate(r.drawerTarget()) {
		return animateTickCmd()
	}
	return nil
}

func (r *Root) shouldAnimate(target float64) bool {
	if r.motionLevel == "off" {
		return false
	}
	if target > 0 {
		return r.drawerPos < 0.999 || abs(r.drawerVel) > 0.001
	}
	return r.drawerPos > 0.001 || abs(r.drawerVel) > 0.001
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func (r *Root) currentMouseMode() tea.MouseMode {
	switch r.mouseScope {
	case "off":
		return tea.MouseModeNone
	case "full":
		return tea.MouseModeCellMotion
	default:
		// Scoped mode leaves the terminal's own selection alone while typing.
		if r.screen == ScreenPlaying && !r.overlayActive() && !r.drawerOpen {
			return tea.MouseModeNone
		}
		return tea.MouseModeCellMotion
	}
}

func normalizeStyleVariant(v string) string {
	switch v {
	case "cozy_clean", "retro_terminal", "modern_arcade":
		return v
	default:
		return "modern_arcade"
	}
}

func normalizeMotionLevel(v string) string {
	switch v {
	case "off", "reduced", "full":
		return v
	default:
		return "full"
	}
}

func normalizeMouseScope(v string) string {
	switch v {
	case "off", "scoped", "full":
		return v
	default:
		return "scoped"
	}
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(event, 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered",
		"where", where,
		"panic", fmt.Sprintf("%v", recovered),
		"message_type", msgType,
		"screen", r.screen,
		"layout", r.layout,
		"cols", r.cols,
		"rows", r.rows,
		"overlay", r.topOverlay(),
		"last_input", r.lastInputEvent,
		"stack", string(debug.Stack()),
	)
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
