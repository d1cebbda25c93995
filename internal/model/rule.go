package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Rule is a named, declarative matcher over an analysis snapshot.
type Rule struct {
	ID          int        `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Conditions  Conditions `json:"conditions" yaml:"conditions"`
	Action      *Action    `json:"action" yaml:"action"`
}

// Action is the effect synthesized when a rule matches.
// StopLoss and TakeProfit are percentage magnitudes; zero means absent.
type Action struct {
	Type         string  `json:"type" yaml:"type"`
	PositionSize string  `json:"position_size" yaml:"position_size"`
	StopLoss     float64 `json:"stop_loss,omitempty" yaml:"stop_loss,omitempty"`
	TakeProfit   float64 `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`
}

// MarshalYAML writes the conditions as a key -> value mapping in list
// order, the same shape as the JSON form.
func (c Conditions) MarshalYAML() (interface{}, error) {
	if c == nil {
		return nil, nil
	}
	if err := c.CheckKeys(); err != nil {
		return nil, err
	}

	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, cond := range c {
		v, err := conditionValue(cond)
		if err != nil {
			return nil, err
		}

		var val yaml.Node
		if raw, ok := v.(json.RawMessage); ok {
			// JSON is valid YAML; decoding it as a node keeps nested key order.
			var doc yaml.Node
			if err := yaml.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("condition %q: %w", cond.Key(), err)
			}
			val = *doc.Content[0]
		} else if err := val.Encode(v); err != nil {
			return nil, fmt.Errorf("condition %q: %w", cond.Key(), err)
		}

		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: cond.Key()}
		node.Content = append(node.Content, key, &val)
	}
	return node, nil
}

// CloneRules returns a copy of rules that shares no mutable state with the
// input slice.
func CloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = r.Clone()
	}
	return out
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	out := r
	if r.Conditions != nil {
		out.Conditions = make(Conditions, len(r.Conditions))
		for i, c := range r.Conditions {
			if in, ok := c.(SentimentIn); ok && in.Labels != nil {
				in.Labels = append([]string{}, in.Labels...)
				c = in
			}
			out.Conditions[i] = c
		}
	}
	if r.Action != nil {
		a := *r.Action
		out.Action = &a
	}
	return out
}
