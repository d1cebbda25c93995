package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/nysig/internal/model"
)

var testTime = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.Local)

// setupTestStore opens a fresh database under t.TempDir.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// pragma reads the current value of a connection pragma.
func pragma(s *Store, name string) (string, error) {
	var value string
	err := s.db.QueryRow("PRAGMA " + name).Scan(&value)
	return value, err
}

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		CombinedSignals: &model.CombinedSignals{
			OverallSentiment: "bullish",
			Confidence:       0.7,
			SignalStrength:   65,
			Factors:          []string{"Asia up 1.2%"},
		},
		Correlations:    &model.Correlations{Strength: "strong"},
		Recommendations: []string{"Consider long positions"},
	}
}

func testSignals() []model.Signal {
	return []model.Signal{
		{
			Timestamp:      model.NewTimestamp(testTime),
			RuleID:         999,
			RuleName:       "NQ Stats Pattern Signal",
			Description:    "High-confidence signal based on 10-year NQ statistical patterns",
			ActionType:     "LONG",
			PositionSize:   "moderate",
			StopLossPct:    2,
			TakeProfitPct:  6,
			Confidence:     0.7,
			SignalStrength: 70,
			Factors:        []string{"Gap <50% filled"},
			Payload: model.StatisticalOverride{
				EntryStrategy:  "Fade the gap",
				RiskManagement: model.RiskManagement{{Label: "stop_loss", Description: "Above high"}},
				Source:         model.ProvenanceNQStats,
			},
		},
		{
			Timestamp:      model.NewTimestamp(testTime),
			RuleID:         1,
			RuleName:       "Bullish Consensus Rule",
			Description:    "Enter LONG when both markets are bullish",
			ActionType:     "LONG",
			PositionSize:   "moderate",
			StopLossPct:    2,
			TakeProfitPct:  5,
			Confidence:     0.7,
			SignalStrength: 65,
			Factors:        []string{"Asia up 1.2%"},
			Payload:        model.RuleDerived{Recommendations: []string{"Consider long positions"}},
		},
	}
}

func testRun(id string, at time.Time) Run {
	return Run{
		ID:          id,
		EvaluatedAt: at,
		RuleSetHash: "abc123",
		RuleCount:   5,
		Snapshot:    testSnapshot(),
		ResultsPath: "results/trading_signals_20240315_093000.json",
		Signals:     testSignals(),
	}
}
