package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullSnapshot = `{
	"combined_signals": {
		"overall_sentiment": "bullish",
		"confidence": 0.7,
		"signal_strength": 65,
		"factors": ["f1"]
	},
	"correlations": {"strength": "strong", "coefficient": 0.82},
	"recommendations": ["r1"],
	"nq_stats": {
		"trading_decision": {
			"confidence": 0.8,
			"primary_signal": "LONG",
			"entry_strategy": "buy the open",
			"risk_management": {"stop_placement": "below low"},
			"supporting_factors": ["gap up"]
		}
	}
}`

func TestParseSnapshot_Full(t *testing.T) {
	snap, err := ParseSnapshot(strings.NewReader(fullSnapshot))
	require.NoError(t, err)

	assert.Equal(t, "bullish", snap.CombinedSignals.OverallSentiment)
	assert.Equal(t, 0.7, snap.CombinedSignals.Confidence)
	assert.Equal(t, 65.0, snap.CombinedSignals.SignalStrength)
	assert.Equal(t, "strong", snap.Correlations.Strength)
	assert.Contains(t, snap.Correlations.Extra, "coefficient")
	require.NotNil(t, snap.Decision())
	assert.Equal(t, "LONG", snap.Decision().PrimarySignal)
}

func TestParseSnapshot_MissingFields(t *testing.T) {
	testCases := []struct {
		name  string
		doc   string
		field string
	}{
		{"no combined_signals", `{"correlations": {"strength": "weak"}}`, "combined_signals"},
		{"null combined_signals", `{"combined_signals": null, "correlations": {"strength": "weak"}}`, "combined_signals"},
		{"no confidence", `{"combined_signals": {"overall_sentiment": "bullish", "signal_strength": 1}, "correlations": {"strength": "weak"}}`, "combined_signals.confidence"},
		{"no correlations", `{"combined_signals": {"overall_sentiment": "bullish", "confidence": 0.5, "signal_strength": 1}}`, "correlations"},
		{"no strength", `{"combined_signals": {"overall_sentiment": "bullish", "confidence": 0.5, "signal_strength": 1}, "correlations": {}}`, "correlations.strength"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSnapshot(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.True(t, IsMissingFieldError(err), "expected missing field error, got %v", err)

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tc.field, e.Field)
		})
	}
}

func TestParseSnapshot_EmptyLabels(t *testing.T) {
	testCases := []struct {
		name  string
		doc   string
		field string
	}{
		{"empty sentiment", `{"combined_signals": {"overall_sentiment": "", "confidence": 0.5, "signal_strength": 1}, "correlations": {"strength": "weak"}}`, "combined_signals.overall_sentiment"},
		{"empty strength", `{"combined_signals": {"overall_sentiment": "bullish", "confidence": 0.5, "signal_strength": 1}, "correlations": {"strength": ""}}`, "correlations.strength"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSnapshot(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.True(t, IsMissingFieldError(err))
			assert.Contains(t, err.Error(), "is empty")

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tc.field, e.Field)
		})
	}
}

func TestParseSnapshot_OptionalDecisionKeys(t *testing.T) {
	doc := `{
		"combined_signals": {"overall_sentiment": "bullish", "confidence": 0.5, "signal_strength": 1},
		"correlations": {"strength": "weak"},
		"nq_stats": {"trading_decision": {"confidence": 0.9, "primary_signal": "SHORT"}}
	}`
	snap, err := ParseSnapshot(strings.NewReader(doc))
	require.NoError(t, err)

	d := snap.Decision()
	require.NotNil(t, d)
	assert.Empty(t, d.EntryStrategy)
	assert.Empty(t, d.RiskManagement)
	assert.Empty(t, d.SupportingFactors)
}

func TestParseSnapshot_Malformed(t *testing.T) {
	_, err := ParseSnapshot(strings.NewReader(`{"combined_signals": `))
	require.Error(t, err)
	assert.False(t, IsMissingFieldError(err))
}

func TestSnapshot_ValidateInMemory(t *testing.T) {
	var nilSnap *Snapshot
	assert.True(t, IsMissingFieldError(nilSnap.Validate()))

	snap := &Snapshot{CombinedSignals: &CombinedSignals{OverallSentiment: "mixed"}}
	err := snap.Validate()
	assert.True(t, IsMissingFieldError(err))
	assert.Contains(t, err.Error(), "correlations")

	snap.Correlations = &Correlations{Strength: "weak"}
	assert.NoError(t, snap.Validate())
	assert.Nil(t, snap.Decision())
}

func TestErrorHelpers(t *testing.T) {
	err := NewConfigParseError("rules.json", 4, "invalid rule set", nil)
	assert.True(t, IsConfigParseError(err))
	assert.False(t, IsIOError(err))
	assert.Equal(t, ErrCodeConfigParse, CodeOf(err))
	assert.Contains(t, err.Error(), "rules.json:4")

	ioErr := NewIOError("out/signals.json", "write signals", assert.AnError)
	assert.True(t, IsIOError(ioErr))
	assert.ErrorIs(t, ioErr, assert.AnError)
	assert.Equal(t, ErrorCode(""), CodeOf(assert.AnError))
}
