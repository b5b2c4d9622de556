package game

import (
	"fmt"

	"ctfdojo/internal/catalog"
)

const (
	DefaultDuration = 600
	DefaultPrompt   = "reika@ctf:~$"
	PointsPerSolve  = 100
)

type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseRunning
	PhaseOver
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseOver:
		return "over"
	default:
		return "not_started"
	}
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeWon
	OutcomeLost
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	default:
		return "none"
	}
}

type Challenge struct {
	ID          int
	Title       string
	Description string
	Flag        string
	Hints       []string
	Completed   bool
}

// Session is a value. Reducers never write through its slices; they copy
// before appending or flipping a challenge.
type Session struct {
	CatalogID     string
	Wording       catalog.Wording
	Duration      int
	TimeRemaining int
	Phase         Phase
	Outcome       Outcome
	Challenges    []Challenge
	Output        []string
	Selected      int

	HintsUsed        int
	Submissions      int
	WrongSubmissions int
}

func NewSession(cat catalog.Catalog, duration int) Session {
	if duration <= 0 {
		duration = DefaultDuration
	}
	challenges := make([]Challenge, 0, len(cat.Challenges))
	for _, ch := range cat.Challenges {
		challenges = append(challenges, Challenge{
			ID:          ch.ID,
			Title:       ch.Title,
			Description: ch.Description,
			Flag:        ch.Flag,
			Hints:       append([]string(nil), ch.Hints...),
		})
	}
	return Session{
		CatalogID:     cat.CatalogID,
		Wording:       cat.Wording,
		Duration:      duration,
		TimeRemaining: duration,
		Phase:         PhaseNotStarted,
		Challenges:    challenges,
	}
}

func (s Session) Active() bool { return s.Phase == PhaseRunning }
func (s Session) Over() bool   { return s.Phase == PhaseOver }
func (s Session) Total() int   { return len(s.Challenges) }

func (s Session) CompletedCount() int {
	n := 0
	for _, ch := range s.Challenges {
		if ch.Completed {
			n++
		}
	}
	return n
}

func (s Session) Score() int { return s.CompletedCount() * PointsPerSolve }

func (s Session) clone() Session {
	next := s
	next.Challenges = make([]Challenge, len(s.Challenges))
	copy(next.Challenges, s.Challenges)
	next.Output = make([]string, len(s.Output), len(s.Output)+16)
	copy(next.Output, s.Output)
	return next
}

func (s *Session) emit(lines ...string) {
	s.Output = append(s.Output, lines...)
}

// FormatClock renders seconds as M:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
