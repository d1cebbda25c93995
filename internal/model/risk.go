package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RiskItem is one label -> description entry of a risk-management plan.
type RiskItem struct {
	Label       string
	Description string
}

// RiskManagement is an ordered label -> description mapping. Its JSON form is
// an object whose key order is preserved in both directions.
type RiskManagement []RiskItem

// Get returns the description for label.
func (r RiskManagement) Get(label string) (string, bool) {
	for _, item := range r {
		if item.Label == label {
			return item.Description, true
		}
	}
	return "", false
}

// MarshalJSON writes the entries as an object in their stored order.
func (r RiskManagement) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(item.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(item.Description)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping key order. Non-string values are
// kept as their compact JSON text.
func (r *RiskManagement) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("risk_management: %w", err)
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("risk_management: expected an object")
	}

	out := RiskManagement{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("risk_management: %w", err)
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("risk_management: expected a string key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("risk_management[%q]: %w", label, err)
		}
		out = append(out, RiskItem{Label: label, Description: rawText(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("risk_management: %w", err)
	}
	*r = out
	return nil
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}
