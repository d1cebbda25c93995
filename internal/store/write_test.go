package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nysig/internal/model"
)

func TestWriteRun_ReadRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, testRun("run-1", testTime)))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.ID)
	assert.True(t, testTime.Equal(got.EvaluatedAt), "evaluated_at %v != %v", got.EvaluatedAt, testTime)
	assert.Equal(t, "abc123", got.RuleSetHash)
	assert.Equal(t, 5, got.RuleCount)
	assert.Equal(t, "results/trading_signals_20240315_093000.json", got.ResultsPath)
	assert.Equal(t, model.EngineVersion, got.EngineVersion)
	assert.Equal(t, testSnapshot(), got.Snapshot)
	assert.Equal(t, testSignals(), got.Signals)
}

func TestWriteRun_PreservesSignalOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := testRun("run-1", testTime)
	base := run.Signals[1]
	run.Signals = nil
	for _, id := range []int{5, 1, 3, 1} {
		sig := base
		sig.RuleID = id
		run.Signals = append(run.Signals, sig)
	}
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)

	ids := make([]int, 0, len(got.Signals))
	for _, sig := range got.Signals {
		ids = append(ids, sig.RuleID)
	}
	assert.Equal(t, []int{5, 1, 3, 1}, ids)
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, testRun("run-1", testTime)))

	second := testRun("run-1", testTime)
	second.RuleSetHash = "different"
	second.Signals = second.Signals[:1]
	require.NoError(t, s.WriteRun(ctx, second))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.RuleSetHash)
	assert.Len(t, got.Signals, 2)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM signals").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestWriteRun_NoSignals(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := testRun("run-empty", testTime)
	run.Signals = nil
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-empty")
	require.NoError(t, err)
	assert.NotNil(t, got.Signals)
	assert.Empty(t, got.Signals)
}

func TestWriteRun_EmptyID(t *testing.T) {
	s := setupTestStore(t)
	err := s.WriteRun(context.Background(), testRun("", testTime))
	require.Error(t, err)
}

func TestWriteRun_CancelledContext(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WriteRun(ctx, testRun("run-1", testTime))
	require.Error(t, err)

	_, err = s.ReadRun(context.Background(), "run-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
