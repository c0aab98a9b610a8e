// Package history persists optimization runs, their candidate instructions
// and every scored trial in a SQLite database so runs can be compared later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run describes one optimization run.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    *time.Time
	StudentModel  string
	ProposerModel string
	JudgeModel    string
	NumCandidates int
	NumTrials     int
	MinibatchSize int
	Seed          int64
	BaselineScore *float64
	BestCandidate *int
	BestScore     *float64
}

// Candidate is one instruction considered by a run.
type Candidate struct {
	Index       int
	Instruction string
	Tip         string
}

// Trial is one scored evaluation.
type Trial struct {
	Trial     int
	Candidate int
	Kind      string
	Examples  []int
	Score     float64
	BestScore float64
	Duration  time.Duration
	CreatedAt time.Time
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at dsn. ":memory:" gives a
// throwaway store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// A single connection serialises writes and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run ID is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, student_model, proposer_model, judge_model,
			num_candidates, num_trials, minibatch_size, seed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.StudentModel, run.ProposerModel, run.JudgeModel,
		run.NumCandidates, run.NumTrials, run.MinibatchSize, run.Seed)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, baseline float64, bestCandidate int, bestScore float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, baseline_score = ?, best_candidate = ?, best_score = ?
		WHERE id = ?`,
		time.Now().UTC(), baseline, bestCandidate, bestScore, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// RecordCandidate stores a candidate instruction.
func (s *Store) RecordCandidate(ctx context.Context, runID string, c Candidate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates (run_id, idx, instruction, tip) VALUES (?, ?, ?, ?)`,
		runID, c.Index, c.Instruction, c.Tip)
	if err != nil {
		return fmt.Errorf("failed to record candidate %d: %w", c.Index, err)
	}
	return nil
}

// RecordTrial appends a trial to a run.
func (s *Store) RecordTrial(ctx context.Context, runID string, t Trial) error {
	examples, err := json.Marshal(t.Examples)
	if err != nil {
		return fmt.Errorf("failed to encode trial examples: %w", err)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trials (run_id, seq, trial, candidate, kind, examples, score, best_score, duration_ms, created_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM trials WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, runID, t.Trial, t.Candidate, t.Kind, string(examples), t.Score, t.BestScore,
		t.Duration.Milliseconds(), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record trial %d: %w", t.Trial, err)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		run        Run
		finishedAt sql.NullTime
		baseline   sql.NullFloat64
		bestCand   sql.NullInt64
		bestScore  sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, student_model, proposer_model, judge_model,
			num_candidates, num_trials, minibatch_size, seed, baseline_score, best_candidate, best_score
		FROM runs WHERE id = ?`, runID).Scan(
		&run.ID, &run.StartedAt, &finishedAt, &run.StudentModel, &run.ProposerModel, &run.JudgeModel,
		&run.NumCandidates, &run.NumTrials, &run.MinibatchSize, &run.Seed, &baseline, &bestCand, &bestScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	if baseline.Valid {
		run.BaselineScore = &baseline.Float64
	}
	if bestCand.Valid {
		idx := int(bestCand.Int64)
		run.BestCandidate = &idx
	}
	if bestScore.Valid {
		run.BestScore = &bestScore.Float64
	}
	return &run, nil
}

// ListCandidates returns the candidates of a run by index.
func (s *Store) ListCandidates(ctx context.Context, runID string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, instruction, tip FROM candidates WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Index, &c.Instruction, &c.Tip); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListTrials returns the trials of a run in the order they were recorded.
func (s *Store) ListTrials(ctx context.Context, runID string) ([]Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trial, candidate, kind, examples, score, best_score, duration_ms, created_at
		FROM trials WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}
	defer rows.Close()

	var out []Trial
	for rows.Next() {
		var (
			t          Trial
			examples   string
			durationMS int64
		)
		if err := rows.Scan(&t.Trial, &t.Candidate, &t.Kind, &examples, &t.Score, &t.BestScore, &durationMS, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		if err := json.Unmarshal([]byte(examples), &t.Examples); err != nil {
			return nil, fmt.Errorf("failed to decode trial examples: %w", err)
		}
		t.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, t)
	}
	return out, rows.Err()
}
