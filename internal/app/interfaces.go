package app

import (
	"context"

	"ctfdojo/internal/state"
)

// Store is the slice of the round ledger the game controller writes to.
type Store interface {
	StartRound(ctx context.Context, round state.Round) (int64, error)
	RecordSubmission(ctx context.Context, roundID int64, sub state.Submission) error
	FinishRound(ctx context.Context, roundID int64, fin state.RoundFinish) error
	GetBestRound(ctx context.Context, catalogID string) (*state.RoundRecord, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	Close() error
}
