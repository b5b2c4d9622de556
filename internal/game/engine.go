package game

import (
	"strconv"
	"strings"
)

type Event interface {
	EventName() string
}

type Start struct{}
type Tick struct{}
type Restart struct{}
type Command struct {
	Line string
}

func (Start) EventName() string   { return "start" }
func (Tick) EventName() string    { return "tick" }
func (Restart) EventName() string { return "restart" }
func (Command) EventName() string { return "command" }

// Engine reduces events into sessions. It holds no session state; the only
// thing it carries between calls is the random source used for hints.
type Engine struct {
	rnd    Rand
	prompt string
}

type Option func(*Engine)

func WithRand(r Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rnd = r
		}
	}
}

func WithPrompt(prompt string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(prompt) != "" {
			e.prompt = prompt
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{prompt: DefaultPrompt}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = NewRand(0)
	}
	return e
}

func (e *Engine) Prompt() string { return e.prompt }

// Reduce returns the session that results from applying ev to s. Events that
// make no sense in the current phase return s unchanged.
func (e *Engine) Reduce(s Session, ev Event) Session {
	switch ev := ev.(type) {
	case Start:
		return start(s)
	case Tick:
		return tick(s)
	case Command:
		return e.interpret(s, ev.Line)
	case Restart:
		return restart(s)
	}
	return s
}

func start(s Session) Session {
	if s.Phase != PhaseNotStarted {
		return s
	}
	next := s.clone()
	next.Phase = PhaseRunning
	next.Outcome = OutcomeNone
	next.TimeRemaining = next.Duration
	if len(next.Output) == 0 {
		next.emit(banner(next)...)
	}
	return next
}

func tick(s Session) Session {
	if s.Phase != PhaseRunning {
		return s
	}
	next := s
	if next.TimeRemaining <= 1 {
		next.TimeRemaining = 0
		enterOver(&next)
		return next
	}
	next.TimeRemaining--
	return next
}

func restart(s Session) Session {
	next := s.clone()
	for i := range next.Challenges {
		next.Challenges[i].Completed = false
	}
	next.Output = nil
	next.Selected = 0
	next.TimeRemaining = next.Duration
	next.Phase = PhaseNotStarted
	next.Outcome = OutcomeNone
	next.HintsUsed = 0
	next.Submissions = 0
	next.WrongSubmissions = 0
	return next
}

// enterOver freezes the outcome at the moment the round ends.
func enterOver(s *Session) {
	if s.Phase == PhaseOver {
		return
	}
	s.Phase = PhaseOver
	if s.CompletedCount() == s.Total() {
		s.Outcome = OutcomeWon
	} else {
		s.Outcome = OutcomeLost
	}
}

func checkWin(s *Session) {
	if s.Phase == PhaseRunning && s.CompletedCount() == s.Total() {
		enterOver(s)
	}
}

func banner(s Session) []string {
	w := s.Wording
	lines := []string{
		w.Welcome,
		"",
		IntroText(w.Intro, s.Duration, s.Total()),
		"",
		"Available commands:",
		"  help          - Show this help message",
		"  challenges    - List all challenges",
		"  challenge <n> - View challenge details",
		"  " + w.BannerSubmitUsage,
		"  hint <n>      - Get a hint for challenge n",
		"  clear         - Clear terminal",
		"",
		w.SignOff,
		"",
	}
	return lines
}

// IntroText expands the {minutes} and {total} placeholders used by catalog
// wording and briefings.
func IntroText(tmpl string, duration, total int) string {
	minutes := FormatClock(duration)
	if duration%60 == 0 {
		minutes = strconv.Itoa(duration / 60)
	}
	return strings.NewReplacer("{minutes}", minutes, "{total}", strconv.Itoa(total)).Replace(tmpl)
}
