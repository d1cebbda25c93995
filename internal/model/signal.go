package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the wire format of signal timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// ProvenanceNQStats is the source tag carried by statistical override signals.
const ProvenanceNQStats = "nqstats.com patterns"

// SignalKind discriminates the payload of a Signal.
type SignalKind string

const (
	KindRuleDerived         SignalKind = "rule"
	KindStatisticalOverride SignalKind = "statistical_override"
)

// Timestamp is a local wall-clock time with second precision.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to whole seconds.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Second)}
}

// String formats the timestamp with TimestampLayout.
func (t Timestamp) String() string {
	return t.Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(TimestampLayout))
}

// UnmarshalJSON parses TimestampLayout in the local time zone.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = parsed
	return nil
}

// Signal is one emitted trading signal: a common core plus exactly one
// payload variant.
type Signal struct {
	Timestamp      Timestamp
	RuleID         int
	RuleName       string
	Description    string
	ActionType     string
	PositionSize   string
	StopLossPct    float64
	TakeProfitPct  float64
	Confidence     float64
	SignalStrength float64
	Factors        []string

	Payload Payload
}

// Payload is the variant-specific part of a Signal.
type Payload interface {
	Kind() SignalKind

	payloadMarker()
}

// RuleDerived is the payload of a signal produced by a matching rule.
type RuleDerived struct {
	Recommendations []string
}

// StatisticalOverride is the payload of a signal produced by the NQ-stats
// trading decision.
type StatisticalOverride struct {
	EntryStrategy  string
	RiskManagement RiskManagement
	Source         string
}

func (RuleDerived) Kind() SignalKind         { return KindRuleDerived }
func (StatisticalOverride) Kind() SignalKind { return KindStatisticalOverride }

func (RuleDerived) payloadMarker()         {}
func (StatisticalOverride) payloadMarker() {}

// Kind returns the payload kind. A signal without a payload is treated as
// rule-derived.
func (s Signal) Kind() SignalKind {
	if s.Payload == nil {
		return KindRuleDerived
	}
	return s.Payload.Kind()
}

// Override returns the statistical override payload, if any.
func (s Signal) Override() (StatisticalOverride, bool) {
	o, ok := s.Payload.(StatisticalOverride)
	return o, ok
}

// signalRecord is the flat persisted form of a Signal.
type signalRecord struct {
	Timestamp       Timestamp       `json:"timestamp"`
	RuleID          int             `json:"rule_id"`
	RuleName        string          `json:"rule_name"`
	Description     string          `json:"description"`
	ActionType      string          `json:"action_type"`
	PositionSize    string          `json:"position_size"`
	StopLossPct     float64         `json:"stop_loss_pct"`
	TakeProfitPct   float64         `json:"take_profit_pct"`
	Confidence      float64         `json:"confidence"`
	SignalStrength  float64         `json:"signal_strength"`
	EntryStrategy   *string         `json:"entry_strategy,omitempty"`
	RiskManagement  *RiskManagement `json:"risk_management,omitempty"`
	Factors         []string        `json:"factors"`
	Recommendations *[]string       `json:"recommendations,omitempty"`
	Source          string          `json:"source,omitempty"`
}

// MarshalJSON writes the flat record: rule-derived signals carry
// recommendations, overrides carry entry_strategy, risk_management and source.
func (s Signal) MarshalJSON() ([]byte, error) {
	rec := signalRecord{
		Timestamp:      s.Timestamp,
		RuleID:         s.RuleID,
		RuleName:       s.RuleName,
		Description:    s.Description,
		ActionType:     s.ActionType,
		PositionSize:   s.PositionSize,
		StopLossPct:    s.StopLossPct,
		TakeProfitPct:  s.TakeProfitPct,
		Confidence:     s.Confidence,
		SignalStrength: s.SignalStrength,
		Factors:        nonNil(s.Factors),
	}

	switch p := s.Payload.(type) {
	case StatisticalOverride:
		entry := p.EntryStrategy
		risk := p.RiskManagement
		if risk == nil {
			risk = RiskManagement{}
		}
		rec.EntryStrategy = &entry
		rec.RiskManagement = &risk
		rec.Source = p.Source
	case RuleDerived:
		recs := nonNil(p.Recommendations)
		rec.Recommendations = &recs
	case nil:
		recs := []string{}
		rec.Recommendations = &recs
	default:
		return nil, fmt.Errorf("unsupported signal payload %T", s.Payload)
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reads the flat record and discriminates on source.
func (s *Signal) UnmarshalJSON(data []byte) error {
	var rec signalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	out := Signal{
		Timestamp:      rec.Timestamp,
		RuleID:         rec.RuleID,
		RuleName:       rec.RuleName,
		Description:    rec.Description,
		ActionType:     rec.ActionType,
		PositionSize:   rec.PositionSize,
		StopLossPct:    rec.StopLossPct,
		TakeProfitPct:  rec.TakeProfitPct,
		Confidence:     rec.Confidence,
		SignalStrength: rec.SignalStrength,
		Factors:        nonNil(rec.Factors),
	}
	if rec.Source == ProvenanceNQStats {
		o := StatisticalOverride{Source: rec.Source, RiskManagement: RiskManagement{}}
		if rec.EntryStrategy != nil {
			o.EntryStrategy = *rec.EntryStrategy
		}
		if rec.RiskManagement != nil {
			o.RiskManagement = *rec.RiskManagement
		}
		out.Payload = o
	} else {
		p := RuleDerived{Recommendations: []string{}}
		if rec.Recommendations != nil {
			p.Recommendations = nonNil(*rec.Recommendations)
		}
		out.Payload = p
	}
	*s = out
	return nil
}

// Summary returns a one-line description used in logs and history listings.
func (s Signal) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s -> %s (%s)", s.RuleID, s.RuleName, s.ActionType, s.PositionSize)
	if s.Kind() == KindStatisticalOverride {
		b.WriteString(" [override]")
	}
	return b.String()
}

// EncodeSignals writes signals as an indented JSON array.
func EncodeSignals(signals []Signal) ([]byte, error) {
	if signals == nil {
		signals = []Signal{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(signals); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
