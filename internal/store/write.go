package store

import (
	"context"
	"fmt"

	"github.com/roach88/nysig/internal/model"
)

// WriteRun inserts a run and its signals in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: if a run with the same id
// exists, nothing is written and nil is returned.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: empty run id")
	}

	snapshotJSON, err := marshalSnapshot(run.Snapshot)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	engineVersion := run.EngineVersion
	if engineVersion == "" {
		engineVersion = model.EngineVersion
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, evaluated_at, rule_set_hash, rule_count, signal_count, snapshot, results_path, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		formatTime(run.EvaluatedAt),
		run.RuleSetHash,
		run.RuleCount,
		len(run.Signals),
		snapshotJSON,
		run.ResultsPath,
		engineVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for i, sig := range run.Signals {
		record, err := marshalSignal(sig)
		if err != nil {
			return fmt.Errorf("write run: signal %d: %w", i, err)
		}
		fingerprint, err := model.Fingerprint(sig)
		if err != nil {
			return fmt.Errorf("write run: signal %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO signals (run_id, position, rule_id, kind, fingerprint, record)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			i,
			sig.RuleID,
			string(sig.Kind()),
			fingerprint,
			record,
		)
		if err != nil {
			return fmt.Errorf("write run: signal %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}
