package state

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps round history for the life of the process only. It backs
// --no-stats runs so the controller code path is identical either way.
type MemoryStore struct {
	mu          sync.RWMutex
	nextID      int64
	rounds      map[int64]*RoundRecord
	submissions map[int64][]Submission
	settings    map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rounds:      map[int64]*RoundRecord{},
		submissions: map[int64][]Submission{},
		settings:    map[string]string{},
	}
}

func (m *MemoryStore) EnsureSchema(context.Context) error { return nil }

func (m *MemoryStore) StartRound(_ context.Context, round Round) (int64, error) {
	catalogID := strings.TrimSpace(round.CatalogID)
	if catalogID == "" {
		return 0, fmt.Errorf("start round: empty catalog id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	start := round.StartTS
	if start.IsZero() {
		start = time.Now().UTC()
	}
	m.rounds[m.nextID] = &RoundRecord{
		ID:        m.nextID,
		SessionID: round.SessionID,
		CatalogID: catalogID,
		Total:     max(0, round.Total),
		StartTS:   start,
	}
	return m.nextID, nil
}

func (m *MemoryStore) RecordSubmission(_ context.Context, roundID int64, sub Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rounds[roundID]; !ok {
		return fmt.Errorf("record submission %d: %w", roundID, ErrNoRounds)
	}
	m.submissions[roundID] = append(m.submissions[roundID], sub)
	return nil
}

func (m *MemoryStore) FinishRound(_ context.Context, roundID int64, fin RoundFinish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rounds[roundID]
	if !ok {
		return fmt.Errorf("finish round %d: %w", roundID, ErrNoRounds)
	}
	if rec.Finished() {
		return nil
	}
	end := fin.EndTS
	if end.IsZero() {
		end = time.Now().UTC()
	}
	rec.EndTS = end
	rec.Outcome = strings.TrimSpace(fin.Outcome)
	rec.Completed = max(0, fin.Completed)
	rec.TimeRemaining = max(0, fin.TimeRemaining)
	rec.HintsUsed = max(0, fin.HintsUsed)
	rec.Submissions = max(0, fin.Submissions)
	rec.WrongSubmissions = max(0, fin.WrongSubmissions)
	return nil
}

func (m *MemoryStore) GetSummary(_ context.Context, catalogID string) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out Summary
	for _, rec := range m.rounds {
		if catalogID != "" && rec.CatalogID != catalogID {
			continue
		}
		out.Rounds++
		if rec.Finished() {
			out.Finished++
		}
		switch rec.Outcome {
		case "won":
			out.Wins++
		case "lost":
			out.Losses++
		}
		out.FlagsFound += rec.Completed
		out.HintsUsed += rec.HintsUsed
		out.WrongGuesses += rec.WrongSubmissions
	}
	return out, nil
}

func (m *MemoryStore) GetBestRound(_ context.Context, catalogID string) (*RoundRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *RoundRecord
	for _, rec := range m.sortedLocked(false) {
		if !rec.Finished() || (catalogID != "" && rec.CatalogID != catalogID) {
			continue
		}
		if best == nil || betterRound(rec, best) {
			best = rec
		}
	}
	if best == nil {
		return nil, ErrNoRounds
	}
	out := *best
	return &out, nil
}

func (m *MemoryStore) RecentRounds(_ context.Context, limit int) ([]RoundRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []RoundRecord
	for _, rec := range m.sortedLocked(true) {
		if len(out) == limit {
			break
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		if k = strings.TrimSpace(k); k != "" {
			m.settings[k] = v
		}
	}
	return nil
}

func (m *MemoryStore) LoadSettings(context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

// Submissions returns what was recorded for a round.
func (m *MemoryStore) Submissions(roundID int64) []Submission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Submission(nil), m.submissions[roundID]...)
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) sortedLocked(newestFirst bool) []*RoundRecord {
	out := make([]*RoundRecord, 0, len(m.rounds))
	for _, rec := range m.rounds {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// betterRound uses the same ordering as the sqlite best-round query.
func betterRound(a, b *RoundRecord) bool {
	if a.Completed != b.Completed {
		return a.Completed > b.Completed
	}
	if a.TimeRemaining != b.TimeRemaining {
		return a.TimeRemaining > b.TimeRemaining
	}
	return a.HintsUsed < b.HintsUsed
}
