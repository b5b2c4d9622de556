package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Rounds finish from countdown goroutines; a single connection keeps
	// sqlite writers from tripping over each other.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			catalog_id TEXT NOT NULL,
			start_ts TEXT NOT NULL,
			end_ts TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0,
			time_remaining INTEGER NOT NULL DEFAULT 0,
			hints_used INTEGER NOT NULL DEFAULT 0,
			submissions INTEGER NOT NULL DEFAULT 0,
			wrong_submissions INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS rounds_catalog ON rounds(catalog_id);`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			round_id INTEGER NOT NULL,
			challenge_id INTEGER NOT NULL DEFAULT 0,
			correct INTEGER NOT NULL,
			ts TEXT NOT NULL,
			FOREIGN KEY(round_id) REFERENCES rounds(id)
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) StartRound(ctx context.Context, round Round) (int64, error) {
	catalogID := strings.TrimSpace(round.CatalogID)
	if catalogID == "" {
		return 0, fmt.Errorf("start round: empty catalog id")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds(session_id, catalog_id, total, start_ts) VALUES(?,?,?,?)`,
		round.SessionID,
		catalogID,
		max(0, round.Total),
		stamp(round.StartTS),
	)
	if err != nil {
		return 0, fmt.Errorf("start round: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) RecordSubmission(ctx context.Context, roundID int64, sub Submission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions(round_id, challenge_id, correct, ts) VALUES(?,?,?,?)`,
		roundID, max(0, sub.ChallengeID), ifThen(sub.Correct, 1, 0), stamp(sub.TS),
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// FinishRound closes a round. A round already finished keeps its first
// result, mirroring the engine's recorded-once outcome.
func (s *SQLiteStore) FinishRound(ctx context.Context, roundID int64, fin RoundFinish) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rounds SET
			end_ts = ?,
			outcome = ?,
			completed = ?,
			time_remaining = ?,
			hints_used = ?,
			submissions = ?,
			wrong_submissions = ?
		WHERE id = ? AND end_ts = ''
	`,
		stamp(fin.EndTS),
		strings.TrimSpace(fin.Outcome),
		max(0, fin.Completed),
		max(0, fin.TimeRemaining),
		max(0, fin.HintsUsed),
		max(0, fin.Submissions),
		max(0, fin.WrongSubmissions),
		roundID,
	)
	if err != nil {
		return fmt.Errorf("finish round: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds WHERE id = ?`, roundID).Scan(&exists); err != nil {
			return fmt.Errorf("finish round: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("finish round %d: %w", roundID, ErrNoRounds)
		}
	}
	return nil
}

// GetSummary aggregates rounds for one catalog, or all of them when
// catalogID is empty.
func (s *SQLiteStore) GetSummary(ctx context.Context, catalogID string) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN end_ts <> '' THEN 1 ELSE 0 END),0),
			COALESCE(SUM(CASE WHEN outcome = 'won' THEN 1 ELSE 0 END),0),
			COALESCE(SUM(CASE WHEN outcome = 'lost' THEN 1 ELSE 0 END),0),
			COALESCE(SUM(completed),0),
			COALESCE(SUM(hints_used),0),
			COALESCE(SUM(wrong_submissions),0)
		FROM rounds
		WHERE ? = '' OR catalog_id = ?
	`, catalogID, catalogID)
	if err := row.Scan(&out.Rounds, &out.Finished, &out.Wins, &out.Losses, &out.FlagsFound, &out.HintsUsed, &out.WrongGuesses); err != nil {
		return Summary{}, err
	}
	return out, nil
}

// GetBestRound ranks finished rounds by flags found, then by time left.
func (s *SQLiteStore) GetBestRound(ctx context.Context, catalogID string) (*RoundRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+roundColumns+`
		FROM rounds
		WHERE end_ts <> '' AND (? = '' OR catalog_id = ?)
		ORDER BY completed DESC, time_remaining DESC, hints_used ASC, id ASC
		LIMIT 1
	`, catalogID, catalogID)
	rec, err := scanRound(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRounds
		}
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) RecentRounds(ctx context.Context, limit int) ([]RoundRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roundColumns+`
		FROM rounds
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoundRecord
	for rows.Next() {
		rec, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for key, value := range values {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const roundColumns = `id, session_id, catalog_id, start_ts, end_ts, outcome, completed, total,
	time_remaining, hints_used, submissions, wrong_submissions`

type scanner interface {
	Scan(dest ...any) error
}

func scanRound(row scanner) (RoundRecord, error) {
	var (
		rec      RoundRecord
		startRaw string
		endRaw   string
	)
	if err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.CatalogID, &startRaw, &endRaw, &rec.Outcome,
		&rec.Completed, &rec.Total, &rec.TimeRemaining, &rec.HintsUsed,
		&rec.Submissions, &rec.WrongSubmissions,
	); err != nil {
		return RoundRecord{}, err
	}
	if t, err := time.Parse(timeLayout, startRaw); err == nil {
		rec.StartTS = t
	}
	if t, err := time.Parse(timeLayout, endRaw); err == nil {
		rec.EndTS = t
	}
	return rec, nil
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func ifThen(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}
