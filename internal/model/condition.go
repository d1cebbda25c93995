package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Condition keys as they appear in rule documents.
const (
	KeyOverallSentiment    = "overall_sentiment"
	KeyConfidenceMin       = "confidence_min"
	KeySignalStrengthMin   = "signal_strength_min"
	KeyCorrelationStrength = "correlation_strength"
)

// Condition is one constraint of a rule. The set of implementations is
// closed; evaluators switch over the concrete types.
type Condition interface {
	// Key returns the document key the condition was decoded from.
	Key() string

	conditionMarker()
}

// SentimentEquals matches when the overall sentiment equals Label.
type SentimentEquals struct {
	Label string
}

// SentimentIn matches when the overall sentiment is one of Labels.
type SentimentIn struct {
	Labels []string
}

// ConfidenceAtLeast matches when combined confidence >= Min.
type ConfidenceAtLeast struct {
	Min float64
}

// StrengthAtLeast matches when combined signal strength >= Min.
type StrengthAtLeast struct {
	Min float64
}

// CorrelationEquals matches when the correlation strength label equals Label.
type CorrelationEquals struct {
	Label string
}

// Unknown carries a condition key this version does not understand.
// It never affects evaluation and is written back unchanged on persist.
type Unknown struct {
	Name string
	Raw  json.RawMessage
}

func (SentimentEquals) Key() string   { return KeyOverallSentiment }
func (SentimentIn) Key() string       { return KeyOverallSentiment }
func (ConfidenceAtLeast) Key() string { return KeyConfidenceMin }
func (StrengthAtLeast) Key() string   { return KeySignalStrengthMin }
func (CorrelationEquals) Key() string { return KeyCorrelationStrength }
func (u Unknown) Key() string         { return u.Name }

func (SentimentEquals) conditionMarker()   {}
func (SentimentIn) conditionMarker()       {}
func (ConfidenceAtLeast) conditionMarker() {}
func (StrengthAtLeast) conditionMarker()   {}
func (CorrelationEquals) conditionMarker() {}
func (Unknown) conditionMarker()           {}

// Conditions is the conjunctive constraint list of a rule.
//
// A nil Conditions means the rule document had no conditions at all; a
// non-nil empty Conditions matches every snapshot. Order is the document
// order and survives encode and decode. Each key may appear once.
type Conditions []Condition

// CheckKeys returns an error naming the first key used by more than one
// condition.
func (c Conditions) CheckKeys() error {
	seen := make(map[string]bool, len(c))
	for _, cond := range c {
		if seen[cond.Key()] {
			return fmt.Errorf("duplicate condition key %q", cond.Key())
		}
		seen[cond.Key()] = true
	}
	return nil
}

// conditionValue returns the document value of one condition.
func conditionValue(cond Condition) (any, error) {
	switch v := cond.(type) {
	case SentimentEquals:
		return v.Label, nil
	case SentimentIn:
		if v.Labels == nil {
			return []string{}, nil
		}
		return v.Labels, nil
	case ConfidenceAtLeast:
		return v.Min, nil
	case StrengthAtLeast:
		return v.Min, nil
	case CorrelationEquals:
		return v.Label, nil
	case Unknown:
		if len(v.Raw) == 0 {
			return json.RawMessage("null"), nil
		}
		return v.Raw, nil
	default:
		return nil, fmt.Errorf("unsupported condition type %T", cond)
	}
}

// MarshalJSON writes the conditions as a key -> value object in list order.
func (c Conditions) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	if err := c.CheckKeys(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cond := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cond.Key())
		if err != nil {
			return nil, err
		}
		v, err := conditionValue(cond)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", cond.Key(), err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a key -> value object into condition variants,
// keeping document order. A repeated key is an error.
func (c *Conditions) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("conditions: %w", err)
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("conditions must be an object")
	}

	out := Conditions{}
	seen := map[string]bool{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("conditions: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("conditions: expected a string key")
		}
		if seen[key] {
			return fmt.Errorf("duplicate condition key %q", key)
		}
		seen[key] = true

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("condition %q: %w", key, err)
		}
		cond, err := decodeCondition(key, raw)
		if err != nil {
			return err
		}
		out = append(out, cond)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("conditions: %w", err)
	}
	*c = out
	return nil
}

func decodeCondition(key string, raw json.RawMessage) (Condition, error) {
	switch key {
	case KeyOverallSentiment:
		var label string
		if err := json.Unmarshal(raw, &label); err == nil {
			return SentimentEquals{Label: label}, nil
		}
		var labels []string
		if err := json.Unmarshal(raw, &labels); err != nil {
			return nil, fmt.Errorf("condition %q: expected a label or a list of labels", key)
		}
		if labels == nil {
			labels = []string{}
		}
		return SentimentIn{Labels: labels}, nil

	case KeyConfidenceMin:
		var min float64
		if err := json.Unmarshal(raw, &min); err != nil {
			return nil, fmt.Errorf("condition %q: expected a number", key)
		}
		return ConfidenceAtLeast{Min: min}, nil

	case KeySignalStrengthMin:
		var min float64
		if err := json.Unmarshal(raw, &min); err != nil {
			return nil, fmt.Errorf("condition %q: expected a number", key)
		}
		return StrengthAtLeast{Min: min}, nil

	case KeyCorrelationStrength:
		var label string
		if err := json.Unmarshal(raw, &label); err != nil {
			return nil, fmt.Errorf("condition %q: expected a label", key)
		}
		return CorrelationEquals{Label: label}, nil

	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("condition %q: %w", key, err)
		}
		return Unknown{Name: key, Raw: json.RawMessage(buf.Bytes())}, nil
	}
}
