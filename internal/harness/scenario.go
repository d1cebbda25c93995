package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nysig/internal/model"
)

// Scenario defines a signal scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is an optional rule file. Relative paths are resolved against
	// the scenario file's directory by LoadScenario.
	Rules string `yaml:"rules,omitempty"`

	// Now fixes the clock, in model.TimestampLayout. Defaults to
	// testutil.ReferenceTime.
	Now string `yaml:"now,omitempty"`

	// Snapshot is the analysis document, kept as a node so that mapping
	// order survives conversion to JSON.
	Snapshot yaml.Node `yaml:"snapshot"`

	// Assertions validate the emitted signals.
	// Supported types: signal_count, signal_order, signal_contains,
	// no_signals, error
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type.
	Type string `yaml:"type"`

	// Count is the expected number of signals (signal_count).
	Count int `yaml:"count,omitempty"`

	// RuleIDs is the exact expected rule id sequence (signal_order).
	RuleIDs []int `yaml:"rule_ids,omitempty"`

	// Signal holds expected fields of some emitted signal, using the keys of
	// the saved signal record (signal_contains). Subset match.
	Signal map[string]any `yaml:"signal,omitempty"`

	// Code is the expected error code (error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertSignalCount    = "signal_count"
	AssertSignalOrder    = "signal_order"
	AssertSignalContains = "signal_contains"
	AssertNoSignals      = "no_signals"
	AssertError          = "error"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative rules path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Rules != "" && !filepath.IsAbs(scenario.Rules) {
		scenario.Rules = filepath.Join(filepath.Dir(path), scenario.Rules)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name. If filter is non-empty, only scenarios whose name matches the glob
// pattern are returned.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if filter != "" {
			ok, err := filepath.Match(filter, s.Name)
			if err != nil {
				return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !ok {
				continue
			}
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Snapshot.Kind != yaml.MappingNode {
		return fmt.Errorf("snapshot is required and must be a mapping")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Rules != "" {
		if _, err := os.Stat(s.Rules); os.IsNotExist(err) {
			return fmt.Errorf("rules file not found: %s", s.Rules)
		}
	}

	if s.Now != "" {
		if _, err := time.ParseInLocation(model.TimestampLayout, s.Now, time.Local); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSignalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for signal_count", index)
		}
	case AssertSignalOrder:
		if len(a.RuleIDs) == 0 {
			return fmt.Errorf("assertions[%d]: rule_ids list is required for signal_order", index)
		}
	case AssertSignalContains:
		if len(a.Signal) == 0 {
			return fmt.Errorf("assertions[%d]: signal is required for signal_contains", index)
		}
	case AssertNoSignals:
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
