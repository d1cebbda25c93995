package harness

import "github.com/roach88/nysig/internal/model"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// RunID is the evaluation's run id. Empty if evaluation failed.
	RunID string `json:"run_id,omitempty"`

	// Signals are the emitted signals in emission order.
	Signals []model.Signal `json:"signals"`

	// Err is the evaluation error, if any. A scenario may expect one.
	Err error `json:"-"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Output is the rendered report, or the evaluation error line. Used for
	// golden comparison.
	Output string `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Signals: []model.Signal{},
		Errors:  []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
