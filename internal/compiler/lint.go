package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/nysig/internal/model"
)

// Lint finding codes (E100-E199)
const (
	ErrRuleNameEmpty     = "E101" // rule has no name
	ErrActionTypeEmpty   = "E102" // action has no type
	ErrPositionSizeEmpty = "E103" // action has no position size
	ErrUnconditional     = "E104" // empty conditions match every snapshot
	ErrDuplicateID       = "E105" // rule id used more than once
	ErrUnknownCondition  = "E106" // condition key ignored by the evaluator
	ErrReservedID        = "E110" // rule uses the override id
	ErrEmptySentimentSet = "E111" // sentiment list can never match
	ErrMissingConditions = "E112" // conditions absent
	ErrMissingAction     = "E113" // action absent
)

// ValidationError is one lint finding for a rule set.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate lints a compiled rule set.
// Returns all findings (does not fail-fast). Findings are advisory: a rule
// set with findings still loads and evaluates.
func Validate(rules []model.Rule) []ValidationError {
	var errs []ValidationError
	seen := make(map[int]int)

	for i, r := range rules {
		prefix := fmt.Sprintf("rules[%d]", i)

		if first, dup := seen[r.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   prefix + ".id",
				Message: fmt.Sprintf("duplicate rule id %d (first used by rules[%d])", r.ID, first),
				Code:    ErrDuplicateID,
			})
		} else {
			seen[r.ID] = i
		}

		if r.ID == ReservedRuleID {
			errs = append(errs, ValidationError{
				Field:   prefix + ".id",
				Message: fmt.Sprintf("rule id %d is reserved for statistical override signals", ReservedRuleID),
				Code:    ErrReservedID,
			})
		}

		if strings.TrimSpace(r.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".name",
				Message: "name is required and must be non-empty",
				Code:    ErrRuleNameEmpty,
			})
		}

		errs = append(errs, lintConditions(prefix, r.Conditions)...)
		errs = append(errs, lintAction(prefix, r.Action)...)
	}

	return errs
}

func lintConditions(prefix string, conds model.Conditions) []ValidationError {
	if conds == nil {
		return []ValidationError{{
			Field:   prefix + ".conditions",
			Message: "conditions are required",
			Code:    ErrMissingConditions,
		}}
	}

	var errs []ValidationError
	known := 0
	for _, c := range conds {
		switch v := c.(type) {
		case model.SentimentIn:
			known++
			if len(v.Labels) == 0 {
				errs = append(errs, ValidationError{
					Field:   prefix + ".conditions." + v.Key(),
					Message: "empty sentiment list never matches",
					Code:    ErrEmptySentimentSet,
				})
			}
		case model.Unknown:
			errs = append(errs, ValidationError{
				Field:   prefix + ".conditions." + v.Name,
				Message: "unknown condition key is ignored during evaluation",
				Code:    ErrUnknownCondition,
			})
		default:
			known++
		}
	}

	if known == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".conditions",
			Message: "rule has no effective conditions and matches every snapshot",
			Code:    ErrUnconditional,
		})
	}
	return errs
}

func lintAction(prefix string, action *model.Action) []ValidationError {
	if action == nil {
		return []ValidationError{{
			Field:   prefix + ".action",
			Message: "action is required",
			Code:    ErrMissingAction,
		}}
	}

	var errs []ValidationError
	if strings.TrimSpace(action.Type) == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".action.type",
			Message: "action type is required",
			Code:    ErrActionTypeEmpty,
		})
	}
	if strings.TrimSpace(action.PositionSize) == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".action.position_size",
			Message: "position size is required",
			Code:    ErrPositionSizeEmpty,
		})
	}
	return errs
}
