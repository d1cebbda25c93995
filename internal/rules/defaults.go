package rules

import "github.com/roach88/nysig/internal/model"

// Defaults returns the built-in rule set used when no rules source exists.
// Each call returns a fresh copy.
func Defaults() []model.Rule {
	return model.CloneRules(defaultRules)
}

var defaultRules = []model.Rule{
	{
		ID:          1,
		Name:        "Bullish Consensus Rule",
		Description: "Enter LONG when both markets are bullish",
		Conditions: model.Conditions{
			model.SentimentEquals{Label: "bullish"},
			model.ConfidenceAtLeast{Min: 0.6},
		},
		Action: &model.Action{Type: "LONG", PositionSize: "moderate", StopLoss: 2.0, TakeProfit: 5.0},
	},
	{
		ID:          2,
		Name:        "Bearish Consensus Rule",
		Description: "Enter SHORT when both markets are bearish",
		Conditions: model.Conditions{
			model.SentimentEquals{Label: "bearish"},
			model.ConfidenceAtLeast{Min: 0.6},
		},
		Action: &model.Action{Type: "SHORT", PositionSize: "moderate", StopLoss: 2.0, TakeProfit: 5.0},
	},
	{
		ID:          3,
		Name:        "High Momentum Long",
		Description: "Strong upward momentum detected",
		Conditions: model.Conditions{
			model.SentimentEquals{Label: "bullish"},
			model.StrengthAtLeast{Min: 60},
		},
		Action: &model.Action{Type: "LONG", PositionSize: "aggressive", StopLoss: 1.5, TakeProfit: 7.0},
	},
	{
		ID:          4,
		Name:        "Defensive Position",
		Description: "Mixed signals - reduce exposure",
		Conditions: model.Conditions{
			model.SentimentEquals{Label: "mixed"},
		},
		Action: &model.Action{Type: "HOLD", PositionSize: "conservative", StopLoss: 3.0, TakeProfit: 3.0},
	},
	{
		ID:          5,
		Name:        "Strong Correlation Play",
		Description: "High correlation between markets",
		Conditions: model.Conditions{
			model.CorrelationEquals{Label: "strong"},
			model.SentimentIn{Labels: []string{"bullish", "bearish"}},
		},
		Action: &model.Action{Type: "FOLLOW_TREND", PositionSize: "moderate", StopLoss: 2.5, TakeProfit: 6.0},
	},
}
