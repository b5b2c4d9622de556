package game

// Snapshot is the read-only projection of a session handed to displays:
// the TUI header, the websocket client and the round recorder.
type Snapshot struct {
	CatalogID     string            `json:"catalog_id"`
	Phase         string            `json:"phase"`
	Outcome       string            `json:"outcome"`
	Duration      int               `json:"duration"`
	TimeRemaining int               `json:"time_remaining"`
	Clock         string            `json:"clock"`
	Completed     int               `json:"completed"`
	Total         int               `json:"total"`
	Score         int               `json:"score"`
	Selected      int               `json:"selected,omitempty"`
	HintsUsed     int               `json:"hints_used"`
	Challenges    []ChallengeStatus `json:"challenges"`
	Output        []string          `json:"output"`
	Result        *Result           `json:"result,omitempty"`
}

type ChallengeStatus struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Solved bool   `json:"solved"`
}

// Result is what the game-over modal shows.
type Result struct {
	Won           bool   `json:"won"`
	Completed     int    `json:"completed"`
	Total         int    `json:"total"`
	TimeRemaining int    `json:"time_remaining"`
	Clock         string `json:"clock"`
}

func (s Session) Result() (Result, bool) {
	if s.Phase != PhaseOver {
		return Result{}, false
	}
	return Result{
		Won:           s.Outcome == OutcomeWon,
		Completed:     s.CompletedCount(),
		Total:         s.Total(),
		TimeRemaining: s.TimeRemaining,
		Clock:         FormatClock(s.TimeRemaining),
	}, true
}

func (s Session) Snapshot() Snapshot {
	challenges := make([]ChallengeStatus, 0, len(s.Challenges))
	for _, ch := range s.Challenges {
		challenges = append(challenges, ChallengeStatus{ID: ch.ID, Title: ch.Title, Solved: ch.Completed})
	}
	out := make([]string, len(s.Output))
	copy(out, s.Output)
	snap := Snapshot{
		CatalogID:     s.CatalogID,
		Phase:         s.Phase.String(),
		Outcome:       s.Outcome.String(),
		Duration:      s.Duration,
		TimeRemaining: s.TimeRemaining,
		Clock:         FormatClock(s.TimeRemaining),
		Completed:     s.CompletedCount(),
		Total:         s.Total(),
		Score:         s.Score(),
		Selected:      s.Selected,
		HintsUsed:     s.HintsUsed,
		Challenges:    challenges,
		Output:        out,
	}
	if res, ok := s.Result(); ok {
		snap.Result = &res
	}
	return snap
}
