// Package engine turns an analysis snapshot into trading signals.
//
// Evaluation is a pure, synchronous transform:
//
//  1. The snapshot is validated. A missing required key aborts with a
//     MissingFieldError and no signals.
//  2. If the NQ-stats trading decision is confident enough, a statistical
//     override signal is emitted first.
//  3. Every rule is matched against the combined signals and correlations in
//     stored order. Each match emits one rule-derived signal.
//
// Output order is therefore override first, then rule-derived signals in
// rule order. There is no deduplication: duplicate rules produce duplicate
// signals.
//
// Conditions within a rule are conjunctive. Numeric thresholds are
// inclusive. Unknown condition keys are ignored.
package engine
