// Package rules holds the ordered rule set the engine evaluates.
//
// A Store is bound to one source path. Opening a path that does not exist
// yields the built-in defaults; opening a malformed source is an error and
// never falls back to defaults. Store order is evaluation order.
//
// A Store is not safe for concurrent mutation. Callers serialize Append,
// Persist and Load.
package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/nysig/internal/atomicio"
	"github.com/roach88/nysig/internal/compiler"
	"github.com/roach88/nysig/internal/model"
)

// Store is a persisted, ordered rule set.
type Store struct {
	path          string
	format        compiler.Format
	rules         []model.Rule
	usingDefaults bool
}

// Open binds a Store to path and loads it.
//
// Returns a ConfigParseError if the source exists but is malformed, and an
// IOError if it exists but cannot be read.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		format: compiler.FormatFromPath(path),
	}
	if _, err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewInMemory returns a Store holding rules with no source path.
// Load returns the current set unchanged and Persist fails.
func NewInMemory(rules []model.Rule) *Store {
	return &Store{
		format: compiler.FormatJSON,
		rules:  model.CloneRules(rules),
	}
}

// Load re-reads the source and replaces the in-memory set.
// On failure the in-memory set is unchanged.
func (s *Store) Load() ([]model.Rule, error) {
	if s.path == "" {
		return s.Rules(), nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.rules = Defaults()
		s.usingDefaults = true
		return s.Rules(), nil
	}
	if err != nil {
		return nil, model.NewIOError(s.path, "read rules", err)
	}

	loaded, err := compiler.Compile(data, s.format, s.path)
	if err != nil {
		return nil, err
	}

	s.rules = loaded
	s.usingDefaults = false
	return s.Rules(), nil
}

// Rules returns a copy of the current rule set in evaluation order.
func (s *Store) Rules() []model.Rule {
	out := model.CloneRules(s.rules)
	if out == nil {
		out = []model.Rule{}
	}
	return out
}

// Len returns the number of rules.
func (s *Store) Len() int {
	return len(s.rules)
}

// Path returns the source path, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// UsingDefaults reports whether the current set came from the built-in
// defaults because the source did not exist.
func (s *Store) UsingDefaults() bool {
	return s.usingDefaults
}

// Append adds rule at the end of the set. It does not persist.
//
// Only rules that can be written and read back are accepted: a rule that
// the rule schema rejects (a threshold out of range, an empty label, a
// negative stop) or that repeats a condition key returns a
// ConfigParseError and leaves the set unchanged. Rule content is not
// otherwise judged.
func (s *Store) Append(rule model.Rule) error {
	if rule.Conditions == nil {
		return model.NewMissingFieldError("conditions")
	}
	if rule.Action == nil {
		return model.NewMissingFieldError("action")
	}
	if rule.ID == compiler.ReservedRuleID {
		return &model.Error{
			Code:    model.ErrCodeReservedID,
			Message: fmt.Sprintf("rule id %d is reserved for statistical override signals", compiler.ReservedRuleID),
			Field:   "id",
		}
	}
	if err := rule.Conditions.CheckKeys(); err != nil {
		return model.NewConfigParseError(s.path, 0, fmt.Sprintf("rule %d: %v", rule.ID, err), nil)
	}
	if err := compiler.CheckRule(rule); err != nil {
		return err
	}
	s.rules = append(s.rules, rule.Clone())
	return nil
}

// Add appends rule and persists the set immediately.
// If persisting fails the rule stays in memory and the error is returned.
func (s *Store) Add(rule model.Rule) error {
	if err := s.Append(rule); err != nil {
		return err
	}
	return s.Persist()
}

// Persist writes the full set to the source path, replacing its contents
// atomically. Parent directories are created as needed.
func (s *Store) Persist() error {
	if s.path == "" {
		return model.NewIOError("", "persist rules", errors.New("store has no source path"))
	}

	data, err := compiler.Encode(s.rules, s.format)
	if err != nil {
		return model.NewIOError(s.path, "encode rules", err)
	}
	if err := atomicio.WriteFile(s.path, data, 0o644); err != nil {
		return model.NewIOError(s.path, "write rules", err)
	}
	s.usingDefaults = false
	return nil
}
