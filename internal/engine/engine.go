package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/nysig/internal/model"
)

// Statistical override parameters.
const (
	// OverrideThreshold is the minimum trading-decision confidence that
	// produces an override signal (inclusive).
	OverrideThreshold = 0.65

	// AggressiveThreshold is the confidence at which the override sizes
	// aggressively instead of moderately (inclusive).
	AggressiveThreshold = 0.75

	OverrideRuleID      = 999
	OverrideRuleName    = "NQ Stats Pattern Signal"
	OverrideDescription = "High-confidence signal based on 10-year NQ statistical patterns"
	OverrideStopLoss    = 2.0
	OverrideTakeProfit  = 6.0
)

// RuleSource supplies the ordered rule set. Implemented by *rules.Store.
//
// Rules is called once per Execute and must return a copy: the engine
// iterates the returned slice without holding any lock, so a store that is
// appended to between evaluations is picked up by the next one and never
// observed half-written.
type RuleSource interface {
	Rules() []model.Rule
}

// Observer is notified as an evaluation progresses.
// Implemented by metrics.Recorder.
type Observer interface {
	RuleMatched(rule model.Rule)
	OverrideEmitted(signal model.Signal)
	EvaluationFinished(signals []model.Signal, elapsed time.Duration, err error)
}

// Engine evaluates snapshots against a rule source.
//
// An Engine owns no rule state. Rules are read from the RuleSource on every
// call, timestamps from the Clock, and run ids from the RunIDGenerator, so
// tests can make every emitted byte deterministic by injecting fixed
// implementations through the Option functions.
//
// Thread-safety: Execute holds no mutable state of its own. It is safe for
// concurrent use if the RuleSource, Clock and Observer are.
type Engine struct {
	rules    RuleSource
	clock    Clock
	runIDs   RunIDGenerator
	logger   zerolog.Logger
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for signal timestamps.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunIDGenerator sets the generator used by Evaluate.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver registers an evaluation observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// New creates an Engine reading rules from src.
func New(src RuleSource, opts ...Option) *Engine {
	e := &Engine{
		rules:  src,
		clock:  SystemClock{},
		runIDs: UUIDv7Generator{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute evaluates snapshot and returns the emitted signals.
//
// Emission order:
//
//  1. The statistical override, when nq_stats.trading_decision.confidence is
//     at least OverrideThreshold. It never suppresses rule evaluation.
//  2. One rule-derived signal per matching rule, in the order RuleSource
//     returns the rules. Duplicate rules produce duplicate signals.
//
// The result is never nil on success; a snapshot that matches nothing
// yields an empty slice.
//
// Error cases:
//   - A snapshot missing (or holding an empty) required key returns a
//     MissingFieldError and no signals.
//   - A qualifying trading decision without primary_signal returns a
//     MissingFieldError and no signals. Its other keys are optional.
//
// The Observer, if any, is told about every call, failed or not, together
// with the wall-clock time the evaluation took.
func (e *Engine) Execute(snapshot *model.Snapshot) ([]model.Signal, error) {
	start := time.Now()
	signals, err := e.execute(snapshot)
	if e.observer != nil {
		e.observer.EvaluationFinished(signals, time.Since(start), err)
	}
	return signals, err
}

// execute runs one evaluation pass. Validation happens before anything is
// emitted so an invalid snapshot never produces a partial result.
func (e *Engine) execute(snapshot *model.Snapshot) ([]model.Signal, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	rules := e.rules.Rules()
	signals := make([]model.Signal, 0, len(rules)+1)

	if d := snapshot.Decision(); d != nil && d.Confidence >= OverrideThreshold {
		if d.PrimarySignal == "" {
			return nil, model.NewMissingFieldError("nq_stats.trading_decision.primary_signal")
		}
		sig := e.overrideSignal(*d)
		signals = append(signals, sig)
		e.logger.Info().
			Str("primary_signal", d.PrimarySignal).
			Float64("confidence", d.Confidence).
			Msg("High-confidence NQ Stats signal")
		if e.observer != nil {
			e.observer.OverrideEmitted(sig)
		}
	}

	combined := *snapshot.CombinedSignals
	corr := *snapshot.Correlations
	for _, r := range rules {
		if !Matches(r, combined, corr) {
			e.logger.Debug().Int("rule_id", r.ID).Str("rule", r.Name).Msg("Rule not matched")
			continue
		}
		signals = append(signals, e.ruleSignal(r, snapshot))
		e.logger.Info().Int("rule_id", r.ID).Str("rule", r.Name).Msg("Rule triggered")
		if e.observer != nil {
			e.observer.RuleMatched(r)
		}
	}

	if len(signals) == 0 {
		e.logger.Info().Msg("No rules triggered")
	}
	return signals, nil
}

// overrideSignal builds the statistical override from a qualifying
// decision.
//
// Sizing:
//   - confidence >= AggressiveThreshold: "aggressive"
//   - OverrideThreshold <= confidence < AggressiveThreshold: "moderate"
//
// Stop loss and take profit are fixed at OverrideStopLoss and
// OverrideTakeProfit. Strength is the confidence scaled to 0-100. The
// decision's supporting factors, entry strategy and risk management are
// copied so the signal shares no memory with the snapshot.
func (e *Engine) overrideSignal(d model.TradingDecision) model.Signal {
	size := "moderate"
	if d.Confidence >= AggressiveThreshold {
		size = "aggressive"
	}
	return model.Signal{
		Timestamp:      model.NewTimestamp(e.clock.Now()),
		RuleID:         OverrideRuleID,
		RuleName:       OverrideRuleName,
		Description:    OverrideDescription,
		ActionType:     d.PrimarySignal,
		PositionSize:   size,
		StopLossPct:    OverrideStopLoss,
		TakeProfitPct:  OverrideTakeProfit,
		Confidence:     d.Confidence,
		SignalStrength: d.Confidence * 100,
		Factors:        cloneStrings(d.SupportingFactors),
		Payload: model.StatisticalOverride{
			EntryStrategy:  d.EntryStrategy,
			RiskManagement: append(model.RiskManagement{}, d.RiskManagement...),
			Source:         model.ProvenanceNQStats,
		},
	}
}

// ruleSignal builds the signal for a matching rule. Action fields are taken
// verbatim from the rule (an absent stop loss or take profit stays 0);
// confidence, strength and factors come from the combined signals, and the
// snapshot's recommendations ride along in the payload.
func (e *Engine) ruleSignal(r model.Rule, snapshot *model.Snapshot) model.Signal {
	var action model.Action
	if r.Action != nil {
		action = *r.Action
	}
	combined := snapshot.CombinedSignals
	return model.Signal{
		Timestamp:      model.NewTimestamp(e.clock.Now()),
		RuleID:         r.ID,
		RuleName:       r.Name,
		Description:    r.Description,
		ActionType:     action.Type,
		PositionSize:   action.PositionSize,
		StopLossPct:    action.StopLoss,
		TakeProfitPct:  action.TakeProfit,
		Confidence:     combined.Confidence,
		SignalStrength: combined.SignalStrength,
		Factors:        cloneStrings(combined.Factors),
		Payload: model.RuleDerived{
			Recommendations: cloneStrings(snapshot.Recommendations),
		},
	}
}

// Evaluation is one Execute call together with its run metadata.
//
// RuleSetHash and RuleCount describe the rule set that was read at the
// start of the evaluation, which is what the history store records next to
// the signals.
type Evaluation struct {
	RunID       string
	EvaluatedAt time.Time
	RuleSetHash string
	RuleCount   int
	Signals     []model.Signal
}

// Evaluate runs Execute and records run metadata for the history store.
//
// EvaluatedAt is read from the Clock before evaluation and truncated to the
// second. A run id is drawn only when evaluation succeeds, so a rejected
// snapshot does not consume one.
func (e *Engine) Evaluate(snapshot *model.Snapshot) (*Evaluation, error) {
	rules := e.rules.Rules()
	hash, err := model.RuleSetHash(rules)
	if err != nil {
		return nil, err
	}

	at := e.clock.Now().Truncate(time.Second)
	signals, err := e.Execute(snapshot)
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{
		RunID:       e.runIDs.Generate(),
		EvaluatedAt: at,
		RuleSetHash: hash,
		RuleCount:   len(rules),
		Signals:     signals,
	}
	e.logger.Debug().
		Str("run_id", ev.RunID).
		Int("signals", len(signals)).
		Str("rule_set_hash", hash).
		Msg("evaluation complete")
	return ev, nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
