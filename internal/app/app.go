package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"ctfdojo/internal/catalog"
	"ctfdojo/internal/devtools"
	"ctfdojo/internal/game"
	"ctfdojo/internal/state"
	"ctfdojo/internal/telemetry"
	"ctfdojo/internal/term"
	"ctfdojo/internal/ui"

	"github.com/google/uuid"
)

// Deps lets tests and the server swap the pieces New would build.
type Deps struct {
	View    ui.View
	Console *term.Console
	Store   Store
	Logger  telemetry.Sink
	Rand    game.Rand
	Catalog catalog.Catalog
	// Tick is the countdown interval. Zero means one second.
	Tick time.Duration
}

// App owns one session and drives it from keyboard commands and the
// countdown. All session changes go through dispatch.
type App struct {
	cfg     Config
	cat     catalog.Catalog
	engine  *game.Engine
	view    ui.View
	console *term.Console
	store   Store
	logger  telemetry.Sink
	rounds  *RoundRecorder
	demo    *devtools.Manager
	closers []io.Closer

	sessionID string
	tick      time.Duration

	mu        sync.Mutex
	baseCtx   context.Context
	session   game.Session
	countdown *game.Countdown
	gen       uint64
	frozen    bool
	closed    bool
}

func New(cfg Config) (*App, error) {
	ctx := context.Background()

	logger, err := telemetry.NewJSONLogger(cfg.LogPath)
	if err != nil {
		return nil, fmt.Errorf("open telemetry log: %w", err)
	}
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	cats, err := LoadCatalogs(ctx, cfg.CatalogDir)
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}
	cat, err := catalog.Find(cats, cfg.Catalog)
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	style := cfg.UI.StyleVariant
	if style == "" {
		style = cat.StyleVariant
	}
	console := term.NewConsole(game.DefaultPrompt, nil)
	view := ui.New(ui.Options{
		ASCIIOnly:    cfg.ASCIIOnly,
		Debug:        cfg.Debug,
		Console:      console,
		StyleVariant: style,
		MotionLevel:  cfg.UI.MotionLevel,
		MouseScope:   cfg.UI.MouseScope,
	})
	console.SetOnDirty(view.RequestDraw)

	a := NewWithDeps(cfg, Deps{
		View:    view,
		Console: console,
		Store:   store,
		Logger:  logger,
		Catalog: cat,
	})
	a.closers = append(a.closers, logger)
	return a, nil
}

// NewWithDeps wires an App around already-built parts. The store, if any,
// is closed by Close.
func NewWithDeps(cfg Config, deps Deps) *App {
	rnd := deps.Rand
	if rnd == nil {
		rnd = game.NewRand(cfg.Seed)
	}
	logger := deps.Logger
	if logger == nil {
		logger = telemetry.Nop{}
	}
	console := deps.Console
	if console == nil {
		console = term.NewConsole(game.DefaultPrompt, nil)
	}
	tick := deps.Tick
	if tick <= 0 {
		tick = time.Second
	}
	sessionID := uuid.NewString()

	a := &App{
		cfg:       cfg,
		cat:       deps.Catalog,
		engine:    game.NewEngine(game.WithRand(rnd), game.WithPrompt(console.Prompt())),
		view:      deps.View,
		console:   console,
		store:     deps.Store,
		logger:    logger,
		rounds:    NewRoundRecorder(deps.Store, logger, sessionID),
		demo:      devtools.NewManager(),
		sessionID: sessionID,
		tick:      tick,
		baseCtx:   context.Background(),
		session:   game.NewSession(deps.Catalog, cfg.DurationSeconds),
	}
	if deps.Store != nil {
		a.closers = append(a.closers, deps.Store)
	}
	console.SetOnSubmit(a.onCommand)
	if a.view != nil {
		a.view.SetController(a)
	}
	return a
}

func (a *App) SessionID() string { return a.sessionID }

// Run shows the briefing and blocks until the view exits.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	a.baseCtx = ctx
	a.mu.Unlock()

	a.logger.Info(telemetry.EventAppStart, map[string]any{
		"session":  a.sessionID,
		"catalog":  a.cat.CatalogID,
		"duration": a.session.Duration,
		"demo":     a.cfg.DemoScenario,
	})
	if a.store != nil {
		err := a.store.SaveSettings(ctx, map[string]string{
			state.SettingLastCatalog: a.cat.CatalogID,
			state.SettingStyle:       a.cfg.UI.StyleVariant,
		})
		if err != nil {
			a.logger.Error("state.save_settings_failed", map[string]any{"error": err.Error()})
		}
	}

	a.view.SetBriefing(a.briefing(ctx))
	a.mu.Lock()
	a.publishLocked(game.PhaseNotStarted, true)
	a.mu.Unlock()

	if a.cfg.DemoScenario != "" {
		if err := a.applyDemo(a.cfg.DemoScenario); err != nil {
			a.logger.Error("demo.apply_failed", map[string]any{"demo": a.cfg.DemoScenario, "error": err.Error()})
			return err
		}
	}

	err := a.view.Run()
	a.Close()
	return err
}

// Close stops the countdown, settles any round in progress and releases
// the store and log. It is safe to call more than once.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	cd := a.stopCountdownLocked()
	s := a.session
	ctx := a.baseCtx
	a.mu.Unlock()

	cd.Wait()
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	a.rounds.Abandon(ctx, s)
	a.console.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// Snapshot returns the current session projection.
func (a *App) Snapshot() game.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Snapshot()
}

func (a *App) Session() game.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) OnStart()   { a.dispatch(game.Start{}) }
func (a *App) OnRestart() { a.dispatch(game.Restart{}) }

func (a *App) OnQuit() {
	if a.view != nil {
		a.view.Stop()
	}
}

func (a *App) OnTerminalInput(data []byte) {
	if err := a.console.SendInput(data); err != nil && !errors.Is(err, term.ErrClosed) {
		a.logger.Error("console.input_failed", map[string]any{"error": err.Error()})
	}
}

func (a *App) OnPaste(content string) {
	a.console.Paste(content)
}

func (a *App) onCommand(line string) {
	a.dispatch(game.Command{Line: line})
}

func (a *App) dispatch(ev game.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.dispatchLocked(ev)
}

func (a *App) dispatchLocked(ev game.Event) {
	prev := a.session
	next := a.engine.Reduce(prev, ev)
	a.session = next
	tr := a.rounds.Observe(a.baseCtx, ev, prev, next)

	switch {
	case tr.Started:
		if !a.frozen {
			a.startCountdownLocked()
		}
	case tr.Ended:
		a.stopCountdownLocked()
	case tr.Restarted:
		a.stopCountdownLocked()
		a.console.Reset()
	}
	a.publishLocked(prev.Phase, false)
}

// onPulse is the countdown callback. Pulses from a countdown that has since
// been replaced or stopped are dropped.
func (a *App) onPulse(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || gen != a.gen || a.countdown == nil {
		return
	}
	a.dispatchLocked(game.Tick{})
}

func (a *App) startCountdownLocked() {
	a.stopCountdownLocked()
	a.gen++
	gen := a.gen
	a.countdown = game.StartCountdown(a.baseCtx, a.tick, func() { a.onPulse(gen) })
}

// stopCountdownLocked returns the stopped countdown so callers outside the
// lock can Wait on it.
func (a *App) stopCountdownLocked() *game.Countdown {
	cd := a.countdown
	if cd == nil {
		return nil
	}
	cd.Stop()
	a.countdown = nil
	a.gen++
	return cd
}

// publishLocked pushes the session to the console and the view. The view
// only queues state here and never calls back synchronously.
func (a *App) publishLocked(prevPhase game.Phase, force bool) {
	s := a.session
	a.console.SetOutput(s.Output)
	a.console.SetActive(s.Phase == game.PhaseRunning)
	if a.view == nil {
		return
	}
	a.view.SetPlayingState(a.playingState(s))
	a.view.SetResult(a.resultState(s))
	if force || prevPhase != s.Phase {
		if s.Phase == game.PhaseNotStarted {
			a.view.SetScreen(ui.ScreenBriefing)
		} else {
			a.view.SetScreen(ui.ScreenPlaying)
		}
	}
}

func (a *App) briefing(ctx context.Context) ui.BriefingState {
	bs := ui.BriefingState{
		Title:    a.cat.Name,
		Markdown: game.IntroText(a.cat.BriefingMD, a.session.Duration, a.session.Total()),
	}
	if a.store == nil {
		return bs
	}
	best, err := a.store.GetBestRound(ctx, a.cat.CatalogID)
	switch {
	case errors.Is(err, state.ErrNoRounds):
	case err != nil:
		a.logger.Error("state.best_round_failed", map[string]any{"error": err.Error()})
	case best != nil:
		bs.Best = fmt.Sprintf("Best: %d/%d with %s left", best.Completed, best.Total, game.FormatClock(best.TimeRemaining))
	}
	return bs
}

func (a *App) playingState(s game.Session) ui.PlayingState {
	rows := make([]ui.ChallengeRow, 0, len(s.Challenges))
	for _, ch := range s.Challenges {
		rows = append(rows, ui.ChallengeRow{ID: ch.ID, Title: ch.Title, Solved: ch.Completed})
	}
	return ui.PlayingState{
		CatalogID:   s.CatalogID,
		CatalogName: a.cat.Name,
		Clock:       game.FormatClock(s.TimeRemaining),
		Duration:    s.Duration,
		Remaining:   s.TimeRemaining,
		Running:     s.Phase == game.PhaseRunning,
		Completed:   s.CompletedCount(),
		Total:       s.Total(),
		Score:       s.Score(),
		HintsUsed:   s.HintsUsed,
		NounPlural:  s.Wording.NounPlural,
		Challenges:  rows,
		Tips:        s.Wording.Tips,
	}
}

func (a *App) resultState(s game.Session) ui.ResultState {
	res, ok := s.Result()
	if !ok {
		return ui.ResultState{}
	}
	return ui.ResultState{
		Visible:    true,
		Won:        res.Won,
		Completed:  res.Completed,
		Total:      res.Total,
		Clock:      res.Clock,
		Score:      s.Score(),
		HintsUsed:  s.HintsUsed,
		NounPlural: s.Wording.NounPlural,
	}
}

// applyDemo stages a scenario with the countdown frozen so captures are
// deterministic.
func (a *App) applyDemo(name string) error {
	sc, err := a.demo.Resolve(name)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.frozen = true
	for _, ev := range a.demo.Events(a.cat, sc, a.session.Duration) {
		a.dispatchLocked(ev)
	}
	a.mu.Unlock()

	if a.view != nil {
		a.view.SetRestartConfirmOpen(sc.RestartConfirm)
		a.view.SetDrawerOpen(sc.DrawerOpen)
	}
	return nil
}
