// Package harness runs signal scenarios as executable contract tests.
//
// A scenario names a rule set, an analysis snapshot and the signals the
// engine must emit for it. Each scenario runs against a fresh rule store
// with a fixed clock, so its rendered report is byte-stable and can be
// compared against a golden file.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules: rules/custom.yaml     # optional, relative to the scenario file
//	now: "2024-03-15 09:30:00"   # optional fixed clock
//	snapshot:
//	  combined_signals:
//	    overall_sentiment: bullish
//	    confidence: 0.7
//	    signal_strength: 65
//	    factors: []
//	  correlations:
//	    strength: strong
//	assertions:
//	  - type: signal_count
//	    count: 3
//	  - type: signal_order
//	    rule_ids: [1, 3, 5]
//	  - type: signal_contains
//	    signal: { rule_id: 3, position_size: aggressive }
//	  - type: no_signals
//	  - type: error
//	    code: MISSING_FIELD
//
// Without a rules entry the built-in default rules are used. Mapping order in
// the snapshot is preserved, so risk-management entries render in the order
// they are written.
package harness
