package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/nysig/internal/model"
)

// ErrRunNotFound is returned by ReadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded evaluation.
type Run struct {
	ID            string
	EvaluatedAt   time.Time
	RuleSetHash   string
	RuleCount     int
	Snapshot      *model.Snapshot
	ResultsPath   string
	EngineVersion string
	Signals       []model.Signal
}

// RunSummary is a run without its snapshot and signals, for listings.
type RunSummary struct {
	ID          string    `json:"id"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	RuleSetHash string    `json:"rule_set_hash"`
	RuleCount   int       `json:"rule_count"`
	SignalCount int       `json:"signal_count"`
	ResultsPath string    `json:"results_path,omitempty"`
}

// ReadRun returns a run with its signals in emitted order.
// Returns ErrRunNotFound (wrapped) if no run has the id.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	var (
		run          Run
		evaluatedAt  string
		snapshotJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, evaluated_at, rule_set_hash, rule_count, snapshot, results_path, engine_version
		FROM runs
		WHERE id = ?
	`, id).Scan(
		&run.ID,
		&evaluatedAt,
		&run.RuleSetHash,
		&run.RuleCount,
		&snapshotJSON,
		&run.ResultsPath,
		&run.EngineVersion,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}

	if run.EvaluatedAt, err = parseTime(evaluatedAt); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Snapshot, err = unmarshalSnapshot(snapshotJSON); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if run.Signals, err = s.readSignals(ctx, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// readSignals returns the signals of a run ORDER BY position ASC.
// Returns an empty slice (not nil) if the run emitted nothing.
func (s *Store) readSignals(ctx context.Context, runID string) ([]model.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record
		FROM signals
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	signals := []model.Signal{}
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig, err := unmarshalSignal(record)
		if err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return signals, nil
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, evaluated_at, rule_set_hash, rule_count, signal_count, results_path
		FROM runs
		ORDER BY evaluated_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			r           RunSummary
			evaluatedAt string
		)
		if err := rows.Scan(&r.ID, &evaluatedAt, &r.RuleSetHash, &r.RuleCount, &r.SignalCount, &r.ResultsPath); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.EvaluatedAt, err = parseTime(evaluatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunsWithSignal returns the ids of runs that emitted a signal with the
// given fingerprint, newest first.
func (s *Store) RunsWithSignal(ctx context.Context, fingerprint string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT r.id, r.evaluated_at
		FROM signals s
		JOIN runs r ON r.id = s.run_id
		WHERE s.fingerprint = ?
		ORDER BY r.evaluated_at DESC, r.id DESC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query runs with signal: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id, evaluatedAt string
		if err := rows.Scan(&id, &evaluatedAt); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run ids: %w", err)
	}
	return ids, nil
}
