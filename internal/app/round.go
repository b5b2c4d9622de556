package app

import (
	"context"
	"sync"
	"time"

	"ctfdojo/internal/game"
	"ctfdojo/internal/state"
	"ctfdojo/internal/telemetry"
)

// RoundRecorder turns session transitions into ledger writes and telemetry
// events. The TUI controller and every websocket connection own one.
type RoundRecorder struct {
	store     Store
	logger    telemetry.Sink
	sessionID string
	now       func() time.Time

	mu      sync.Mutex
	roundID int64
}

func NewRoundRecorder(store Store, logger telemetry.Sink, sessionID string) *RoundRecorder {
	if logger == nil {
		logger = telemetry.Nop{}
	}
	return &RoundRecorder{store: store, logger: logger, sessionID: sessionID, now: time.Now}
}

// RoundID is the ledger row of the round in progress, or 0.
func (r *RoundRecorder) RoundID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roundID
}

// Observe records what happened between prev and next. Ledger failures are
// logged and never surface to the player.
func (r *RoundRecorder) Observe(ctx context.Context, ev game.Event, prev, next game.Session) game.Transition {
	tr := game.Diff(prev, next)
	r.mu.Lock()
	defer r.mu.Unlock()

	if cmd, ok := ev.(game.Command); ok && prev.Phase == game.PhaseRunning {
		r.logger.Info(telemetry.EventRoundCommand, map[string]any{
			"session": r.sessionID,
			"catalog": prev.CatalogID,
			"verb":    game.ParseCommand(cmd.Line).Verb,
		})
	}

	switch {
	case tr.Started:
		r.startLocked(ctx, next)
	case tr.Restarted:
		if tr.Abandoned {
			r.finishLocked(ctx, prev, "abandoned")
		}
		r.roundID = 0
		r.logger.Info(telemetry.EventRoundRestart, map[string]any{
			"session":   r.sessionID,
			"catalog":   prev.CatalogID,
			"abandoned": tr.Abandoned,
		})
	}

	if tr.Submitted && r.roundID != 0 && r.store != nil {
		err := r.store.RecordSubmission(ctx, r.roundID, state.Submission{
			ChallengeID: tr.Solved,
			Correct:     tr.Correct,
			TS:          r.now().UTC(),
		})
		if err != nil {
			r.logger.Error("state.record_submission_failed", map[string]any{"round": r.roundID, "error": err.Error()})
		}
	}

	if tr.Ended {
		r.finishLocked(ctx, next, next.Outcome.String())
		r.roundID = 0
	}
	return tr
}

// Abandon closes out a round still in progress at shutdown.
func (r *RoundRecorder) Abandon(ctx context.Context, s game.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Phase != game.PhaseRunning {
		return
	}
	r.finishLocked(ctx, s, "abandoned")
	r.roundID = 0
}

func (r *RoundRecorder) startLocked(ctx context.Context, s game.Session) {
	r.logger.Info(telemetry.EventRoundStart, map[string]any{
		"session":  r.sessionID,
		"catalog":  s.CatalogID,
		"duration": s.Duration,
		"total":    s.Total(),
	})
	if r.store == nil {
		return
	}
	id, err := r.store.StartRound(ctx, state.Round{
		SessionID: r.sessionID,
		CatalogID: s.CatalogID,
		Total:     s.Total(),
		StartTS:   r.now().UTC(),
	})
	if err != nil {
		r.logger.Error("state.start_round_failed", map[string]any{"catalog": s.CatalogID, "error": err.Error()})
		return
	}
	r.roundID = id
}

func (r *RoundRecorder) finishLocked(ctx context.Context, s game.Session, outcome string) {
	r.logger.Info(telemetry.EventRoundOver, map[string]any{
		"session":        r.sessionID,
		"catalog":        s.CatalogID,
		"outcome":        outcome,
		"completed":      s.CompletedCount(),
		"total":          s.Total(),
		"time_remaining": s.TimeRemaining,
	})
	if r.roundID == 0 || r.store == nil {
		return
	}
	err := r.store.FinishRound(ctx, r.roundID, state.RoundFinish{
		Outcome:          outcome,
		Completed:        s.CompletedCount(),
		TimeRemaining:    s.TimeRemaining,
		HintsUsed:        s.HintsUsed,
		Submissions:      s.Submissions,
		WrongSubmissions: s.WrongSubmissions,
		EndTS:            r.now().UTC(),
	})
	if err != nil {
		r.logger.Error("state.finish_round_failed", map[string]any{"round": r.roundID, "error": err.Error()})
	}
}
