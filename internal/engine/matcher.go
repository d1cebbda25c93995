package engine

import "github.com/roach88/nysig/internal/model"

// Matches reports whether rule fires for the given combined signals and
// correlations.
//
// Every recognized condition must hold. Thresholds compare with >=. Unknown
// condition keys never affect the result. A rule with no conditions matches
// unconditionally. Matches is pure: it reads its inputs and nothing else.
func Matches(rule model.Rule, combined model.CombinedSignals, corr model.Correlations) bool {
	for _, cond := range rule.Conditions {
		if !conditionHolds(cond, combined, corr) {
			return false
		}
	}
	return true
}

func conditionHolds(cond model.Condition, combined model.CombinedSignals, corr model.Correlations) bool {
	switch c := cond.(type) {
	case model.SentimentEquals:
		return combined.OverallSentiment == c.Label
	case model.SentimentIn:
		for _, label := range c.Labels {
			if combined.OverallSentiment == label {
				return true
			}
		}
		return false
	case model.ConfidenceAtLeast:
		return combined.Confidence >= c.Min
	case model.StrengthAtLeast:
		return combined.SignalStrength >= c.Min
	case model.CorrelationEquals:
		return corr.Strength == c.Label
	case model.Unknown:
		return true
	}
	return true
}
