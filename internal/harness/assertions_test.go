package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nysig/internal/model"
)

func testSignals() []model.Signal {
	return []model.Signal{
		{
			RuleID:       999,
			RuleName:     "NQ Stats Pattern Signal",
			ActionType:   "SHORT",
			PositionSize: "aggressive",
			StopLossPct:  2.0,
			Confidence:   0.8,
			Factors:      []string{"gap fill"},
			Payload: model.StatisticalOverride{
				EntryStrategy: "fade",
				RiskManagement: model.RiskManagement{
					{Label: "stop_loss", Description: "above high"},
				},
				Source: model.ProvenanceNQStats,
			},
		},
		{
			RuleID:       2,
			RuleName:     "Bearish Consensus Rule",
			ActionType:   "SHORT",
			PositionSize: "moderate",
			Confidence:   0.65,
			Payload:      model.RuleDerived{Recommendations: []string{}},
		},
	}
}

func TestAssertSignalCount(t *testing.T) {
	signals := testSignals()
	assert.NoError(t, assertSignalCount(signals, Assertion{Count: 2}))

	err := assertSignalCount(signals, Assertion{Count: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 3 signals")
	assert.Contains(t, err.Error(), "Actual: 2 signals")
}

func TestAssertSignalOrder(t *testing.T) {
	signals := testSignals()
	assert.NoError(t, assertSignalOrder(signals, Assertion{RuleIDs: []int{999, 2}}))

	err := assertSignalOrder(signals, Assertion{RuleIDs: []int{2, 999}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule ids [2 999]")
	assert.Contains(t, err.Error(), "rule ids [999 2]")

	// Exact sequence, not a subsequence.
	assert.Error(t, assertSignalOrder(signals, Assertion{RuleIDs: []int{999}}))
}

func TestAssertSignalContains(t *testing.T) {
	signals := testSignals()

	tests := []struct {
		name   string
		signal map[string]any
		ok     bool
	}{
		{name: "int field", signal: map[string]any{"rule_id": 2}, ok: true},
		{name: "float field as int", signal: map[string]any{"rule_id": 999, "stop_loss_pct": 2}, ok: true},
		{name: "override fields", signal: map[string]any{"source": "nqstats.com patterns", "entry_strategy": "fade"}, ok: true},
		{name: "nested risk management", signal: map[string]any{"risk_management": map[string]any{"stop_loss": "above high"}}, ok: true},
		{name: "list field", signal: map[string]any{"factors": []any{"gap fill"}}, ok: true},
		{name: "fields split across signals", signal: map[string]any{"rule_id": 2, "position_size": "aggressive"}, ok: false},
		{name: "absent key", signal: map[string]any{"recommendations": []any{}, "rule_id": 999}, ok: false},
		{name: "value mismatch", signal: map[string]any{"action_type": "LONG"}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertSignalContains(signals, Assertion{Signal: tt.signal})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAssertNoSignals(t *testing.T) {
	assert.NoError(t, assertNoSignals(nil))

	err := assertNoSignals(testSignals())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 signals")
}

func TestAssertError(t *testing.T) {
	missing := NewResult()
	missing.Err = model.NewMissingFieldError("correlations")

	assert.NoError(t, assertError(missing, Assertion{Code: "MISSING_FIELD"}))

	err := assertError(missing, Assertion{Code: "IO"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error with code IO")

	err = assertError(NewResult(), Assertion{Code: "MISSING_FIELD"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no error")
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	result := NewResult()
	result.Signals = testSignals()

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertSignalCount, Count: 2},
		{Type: AssertSignalOrder, RuleIDs: []int{999, 2}},
		{Type: AssertSignalContains, Signal: map[string]any{"rule_id": 999}},
	})
	assert.Empty(t, failures)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	result := NewResult()
	result.Signals = testSignals()

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertSignalCount, Count: 2},
		{Type: AssertNoSignals},
		{Type: AssertSignalOrder, RuleIDs: []int{1}},
	})
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "assertion 1:")
	assert.Contains(t, failures[1], "assertion 2:")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	failures := EvaluateAssertions(NewResult(), []Assertion{{Type: "trace_count"}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], `unknown assertion type "trace_count"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertSignalCount,
		Expected: "1 signals",
		Actual:   "2 signals",
		Signals:  testSignals(),
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: signal_count")
	assert.Contains(t, msg, "[1] #999 NQ Stats Pattern Signal -> SHORT (aggressive) [override]")
	assert.Contains(t, msg, "[2] #2 Bearish Consensus Rule -> SHORT (moderate)")

	empty := (&AssertionError{Type: AssertNoSignals}).Error()
	assert.Contains(t, empty, "(none)")
}

func TestFormatFields_Sorted(t *testing.T) {
	assert.Equal(t, "{a=1, b=x}", formatFields(map[string]any{"b": "x", "a": 1}))
}
