package state

import (
	"context"
	"errors"
	"time"
)

var ErrNoRounds = errors.New("no rounds recorded")

type Store interface {
	EnsureSchema(ctx context.Context) error
	StartRound(ctx context.Context, round Round) (int64, error)
	RecordSubmission(ctx context.Context, roundID int64, sub Submission) error
	FinishRound(ctx context.Context, roundID int64, fin RoundFinish) error
	GetSummary(ctx context.Context, catalogID string) (Summary, error)
	GetBestRound(ctx context.Context, catalogID string) (*RoundRecord, error)
	RecentRounds(ctx context.Context, limit int) ([]RoundRecord, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	Close() error
}

type Round struct {
	SessionID string
	CatalogID string
	Total     int
	StartTS   time.Time
}

type Submission struct {
	// ChallengeID is 0 when the submission matched nothing.
	ChallengeID int
	Correct     bool
	TS          time.Time
}

type RoundFinish struct {
	Outcome          string
	Completed        int
	TimeRemaining    int
	HintsUsed        int
	Submissions      int
	WrongSubmissions int
	EndTS            time.Time
}

type RoundRecord struct {
	ID               int64
	SessionID        string
	CatalogID        string
	StartTS          time.Time
	EndTS            time.Time
	Outcome          string
	Completed        int
	Total            int
	TimeRemaining    int
	HintsUsed        int
	Submissions      int
	WrongSubmissions int
}

// Finished reports whether FinishRound ran for this record.
func (r RoundRecord) Finished() bool { return !r.EndTS.IsZero() }

type Summary struct {
	Rounds       int
	Finished     int
	Wins         int
	Losses       int
	FlagsFound   int
	HintsUsed    int
	WrongGuesses int
}

// Setting keys persisted between launches.
const (
	SettingLastCatalog = "last_catalog"
	SettingStyle       = "style_variant"
)
