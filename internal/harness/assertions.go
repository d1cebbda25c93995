package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/nysig/internal/model"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Signals  []model.Signal // Emitted signals for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nEmitted signals:\n")
	if len(e.Signals) == 0 {
		fmt.Fprintf(&buf, "  (none)\n")
	}
	for i, s := range e.Signals {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, s.Summary())
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	// Only the error assertion may observe a failed evaluation.
	if a.Type != AssertError && result.Err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: "successful evaluation",
			Actual:   result.Err.Error(),
		}
	}

	switch a.Type {
	case AssertSignalCount:
		return assertSignalCount(result.Signals, a)
	case AssertSignalOrder:
		return assertSignalOrder(result.Signals, a)
	case AssertSignalContains:
		return assertSignalContains(result.Signals, a)
	case AssertNoSignals:
		return assertNoSignals(result.Signals)
	case AssertError:
		return assertError(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertSignalCount(signals []model.Signal, a Assertion) error {
	if len(signals) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertSignalCount,
		Expected: fmt.Sprintf("%d signals", a.Count),
		Actual:   fmt.Sprintf("%d signals", len(signals)),
		Signals:  signals,
	}
}

// assertSignalOrder requires the emitted rule ids to equal RuleIDs exactly.
func assertSignalOrder(signals []model.Signal, a Assertion) error {
	actual := make([]int, len(signals))
	for i, s := range signals {
		actual[i] = s.RuleID
	}
	if reflect.DeepEqual(actual, a.RuleIDs) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSignalOrder,
		Expected: fmt.Sprintf("rule ids %v", a.RuleIDs),
		Actual:   fmt.Sprintf("rule ids %v", actual),
		Signals:  signals,
	}
}

// assertSignalContains passes if some signal's saved record has every key
// in a.Signal with an equal value.
func assertSignalContains(signals []model.Signal, a Assertion) error {
	expected, err := normalize(a.Signal)
	if err != nil {
		return fmt.Errorf("normalize expected signal: %w", err)
	}
	want, ok := expected.(map[string]any)
	if !ok {
		return fmt.Errorf("expected signal must be a mapping")
	}

	for _, s := range signals {
		got, err := normalize(s)
		if err != nil {
			return fmt.Errorf("normalize signal %d: %w", s.RuleID, err)
		}
		if matchSubset(want, got.(map[string]any)) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertSignalContains,
		Expected: fmt.Sprintf("a signal with %s", formatFields(want)),
		Actual:   "no matching signal",
		Signals:  signals,
	}
}

func assertNoSignals(signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoSignals,
		Expected: "no signals",
		Actual:   fmt.Sprintf("%d signals", len(signals)),
		Signals:  signals,
	}
}

func assertError(result *Result, a Assertion) error {
	if result.Err == nil {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("error with code %s", a.Code),
			Actual:   "no error",
			Signals:  result.Signals,
		}
	}
	if code := model.CodeOf(result.Err); string(code) != a.Code {
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("error with code %s", a.Code),
			Actual:   result.Err.Error(),
		}
	}
	return nil
}

// normalize round-trips v through JSON so YAML-decoded expectations and
// marshalled signals compare with the same types.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// matchSubset checks that every key in want is in got with an equal value.
func matchSubset(want, got map[string]any) bool {
	for k, v := range want {
		actual, ok := got[k]
		if !ok || !reflect.DeepEqual(v, actual) {
			return false
		}
	}
	return true
}

// formatFields renders a map with sorted keys for stable messages.
func formatFields(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
