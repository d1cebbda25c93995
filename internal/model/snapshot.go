package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Snapshot is the analysis result consumed by the engine. It is produced by
// the market analyzer and treated as read-only.
type Snapshot struct {
	CombinedSignals *CombinedSignals `json:"combined_signals"`
	Correlations    *Correlations    `json:"correlations"`
	Recommendations []string         `json:"recommendations"`
	NQStats         *NQStats         `json:"nq_stats,omitempty"`
}

// CombinedSignals is the cross-market consensus computed by the analyzer.
type CombinedSignals struct {
	OverallSentiment string   `json:"overall_sentiment"`
	Confidence       float64  `json:"confidence"`
	SignalStrength   float64  `json:"signal_strength"`
	Factors          []string `json:"factors"`
}

// Correlations describes how the upstream markets moved together. Only
// Strength is read by the engine; other keys are carried in Extra.
type Correlations struct {
	Strength string
	Extra    map[string]json.RawMessage
}

// NQStats holds the statistical model output.
type NQStats struct {
	TradingDecision *TradingDecision `json:"trading_decision,omitempty"`
}

// TradingDecision is the statistical model's recommendation.
type TradingDecision struct {
	Confidence        float64        `json:"confidence"`
	PrimarySignal     string         `json:"primary_signal"`
	EntryStrategy     string         `json:"entry_strategy"`
	RiskManagement    RiskManagement `json:"risk_management"`
	SupportingFactors []string       `json:"supporting_factors"`
}

// MarshalJSON writes strength followed by the extra keys.
func (c Correlations) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(c.Extra)+1)
	for k, v := range c.Extra {
		obj[k] = v
	}
	strength, err := json.Marshal(c.Strength)
	if err != nil {
		return nil, err
	}
	obj["strength"] = strength
	return json.Marshal(obj)
}

// UnmarshalJSON reads strength and keeps every other key in Extra.
func (c *Correlations) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("correlations: %w", err)
	}
	out := Correlations{}
	if s, ok := raw["strength"]; ok {
		if err := json.Unmarshal(s, &out.Strength); err != nil {
			return fmt.Errorf("correlations.strength: %w", err)
		}
		delete(raw, "strength")
	}
	if len(raw) > 0 {
		out.Extra = raw
	}
	*c = out
	return nil
}

// Decision returns the trading decision, or nil if the snapshot has none.
func (s *Snapshot) Decision() *TradingDecision {
	if s.NQStats == nil {
		return nil
	}
	return s.NQStats.TradingDecision
}

// Validate checks that every key the engine reads unconditionally is
// present and, for labels, non-empty. It returns a MissingFieldError naming
// the first absent or empty key.
func (s *Snapshot) Validate() error {
	if s == nil {
		return NewMissingFieldError("combined_signals")
	}
	if s.CombinedSignals == nil {
		return NewMissingFieldError("combined_signals")
	}
	if s.CombinedSignals.OverallSentiment == "" {
		return NewEmptyFieldError("combined_signals.overall_sentiment")
	}
	if s.Correlations == nil {
		return NewMissingFieldError("correlations")
	}
	if s.Correlations.Strength == "" {
		return NewEmptyFieldError("correlations.strength")
	}
	return nil
}

// requiredKeys lists keys that must be present in a snapshot document,
// including numeric keys whose zero value is indistinguishable from absence
// once decoded.
var requiredKeys = map[string][]string{
	"combined_signals": {"overall_sentiment", "confidence", "signal_strength"},
	"correlations":     {"strength"},
}

// ParseSnapshot decodes a JSON analysis document and validates it.
// Malformed JSON is returned as a plain error; absent keys as a
// MissingFieldError.
func ParseSnapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return DecodeSnapshot(data)
}

// DecodeSnapshot is ParseSnapshot over an in-memory document.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	sections := make([]string, 0, len(requiredKeys))
	for section := range requiredKeys {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	for _, section := range sections {
		raw, ok := top[section]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, NewMissingFieldError(section)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", section, err)
		}
		for _, key := range requiredKeys[section] {
			if _, ok := fields[key]; !ok {
				return nil, NewMissingFieldError(section + "." + key)
			}
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}
