package harness

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/nysig/internal/compiler"
	"github.com/roach88/nysig/internal/engine"
	"github.com/roach88/nysig/internal/model"
	"github.com/roach88/nysig/internal/report"
	"github.com/roach88/nysig/internal/rules"
	"github.com/roach88/nysig/internal/testutil"
)

// RunID is the run id every scenario evaluation receives.
const RunID = "scenario-run"

// Harness runs scenarios with a deterministic clock and run ids.
type Harness struct {
	clock  *testutil.DeterministicClock
	runIDs *testutil.FixedRunIDGenerator
	logger zerolog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes engine logs to l. Scenarios are silent by default.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run executes a scenario and evaluates its assertions.
//
// Each scenario loads its own rule store, so scenarios never share state.
// An evaluation error, such as a snapshot missing a required key, is
// recorded in the result for the error assertion. Errors returned from Run
// itself mean the scenario could not be set up.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	src, err := h.ruleSource(scenario)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	now := testutil.ReferenceTime
	if scenario.Now != "" {
		now, err = time.ParseInLocation(model.TimestampLayout, scenario.Now, time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse now: %w", err)
		}
	}
	h.clock = testutil.NewDeterministicClock(now)
	h.runIDs = testutil.NewFixedRunIDGenerator(RunID)

	doc, err := compiler.NodeToJSON(&scenario.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("convert snapshot: %w", err)
	}

	result := NewResult()
	eval, err := h.evaluate(src, doc)
	switch {
	case err != nil && model.CodeOf(err) == "":
		return nil, fmt.Errorf("evaluate: %w", err)
	case err != nil:
		result.Err = err
		result.Output = "evaluation error: " + err.Error() + "\n"
	default:
		result.RunID = eval.RunID
		result.Signals = eval.Signals
		var buf bytes.Buffer
		if err := report.Display(&buf, eval.Signals); err != nil {
			return nil, fmt.Errorf("render report: %w", err)
		}
		result.Output = buf.String()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug().
		Str("scenario", scenario.Name).
		Int("signals", len(result.Signals)).
		Bool("pass", result.Pass).
		Msg("scenario complete")

	return result, nil
}

func (h *Harness) ruleSource(scenario *Scenario) (*rules.Store, error) {
	if scenario.Rules == "" {
		return rules.NewInMemory(rules.Defaults()), nil
	}
	return rules.Open(scenario.Rules)
}

func (h *Harness) evaluate(src engine.RuleSource, doc []byte) (*engine.Evaluation, error) {
	snapshot, err := model.DecodeSnapshot(doc)
	if err != nil {
		return nil, err
	}
	eng := engine.New(src,
		engine.WithClock(h.clock),
		engine.WithRunIDGenerator(h.runIDs),
		engine.WithLogger(h.logger),
	)
	return eng.Evaluate(snapshot)
}
