package devtools

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ctfdojo/internal/catalog"
	"ctfdojo/internal/game"
)

var ErrUnknownScenario = errors.New("unknown demo scenario")

// Scenario is a named, reproducible game state used for screenshots and
// transcripts.
type Scenario struct {
	Name           string
	Started        bool
	Solve          int
	ExpireClock    bool
	RestartConfirm bool
	DrawerOpen     bool
}

type Manager struct{}

func NewManager() *Manager { return &Manager{} }

// Names lists the scenarios Resolve accepts, in display order.
func (m *Manager) Names() []string {
	return []string{"briefing", "playing", "partial", "won", "lost", "restart_confirm"}
}

func (m *Manager) Resolve(name string) (Scenario, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "briefing", "start":
		return Scenario{Name: "briefing"}, nil
	case "playing", "playable", "":
		return Scenario{Name: "playing", Started: true}, nil
	case "partial":
		return Scenario{Name: "partial", Started: true, Solve: 2, DrawerOpen: true}, nil
	case "won", "results_pass":
		return Scenario{Name: "won", Started: true, Solve: -1}, nil
	case "lost", "results_fail":
		return Scenario{Name: "lost", Started: true, Solve: 1, ExpireClock: true}, nil
	case "restart_confirm", "reset":
		return Scenario{Name: "restart_confirm", Started: true, Solve: 1, RestartConfirm: true}, nil
	}
	return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}

// Script returns the command lines a player would type to reach the
// scenario, using the catalog's real flags. Solve -1 means every challenge.
func (m *Manager) Script(cat catalog.Catalog, sc Scenario) []string {
	if !sc.Started {
		return nil
	}
	lines := []string{"help", "challenges"}
	solve := sc.Solve
	if solve < 0 || solve > len(cat.Challenges) {
		solve = len(cat.Challenges)
	}
	if solve == 0 {
		return lines
	}
	lines = append(lines, "challenge 1", "hint 1")
	if sc.ExpireClock {
		lines = append(lines, "submit WRONG{GUESS}")
	}
	for _, ch := range cat.Challenges[:solve] {
		lines = append(lines, "submit "+strings.ToLower(ch.Flag))
	}
	return lines
}

// Events turns a scenario into the reducer events that produce it.
func (m *Manager) Events(cat catalog.Catalog, sc Scenario, duration int) []game.Event {
	if !sc.Started {
		return nil
	}
	if duration <= 0 {
		duration = game.DefaultDuration
	}
	events := []game.Event{game.Start{}}
	for _, line := range m.Script(cat, sc) {
		events = append(events, game.Command{Line: line})
	}
	if sc.ExpireClock {
		for i := 0; i < duration; i++ {
			events = append(events, game.Tick{})
		}
	}
	return events
}

func (m *Manager) Apply(engine *game.Engine, s game.Session, events []game.Event) game.Session {
	for _, ev := range events {
		s = engine.Reduce(s, ev)
	}
	return s
}

// Transcript plays a scenario on a fresh session and returns the final
// state.
func (m *Manager) Transcript(engine *game.Engine, cat catalog.Catalog, sc Scenario, duration int) game.Session {
	return m.Apply(engine, game.NewSession(cat, duration), m.Events(cat, sc, duration))
}

// SaveSnapshot writes a scenario's snapshot as JSON for external tooling.
func (m *Manager) SaveSnapshot(path string, sc Scenario, snap game.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	payload := map[string]any{
		"scenario": sc.Name,
		"state":    snap,
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
