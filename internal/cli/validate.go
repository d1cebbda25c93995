package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nysig/internal/compiler"
	"github.com/roach88/nysig/internal/model"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Rules  int                        `json:"rules"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules-file>",
		Short: "Validate a rules file without evaluating it",
		Long: `Validate a JSON or YAML rules file.

Checks the document against the rule schema, then lints the compiled rules
for mistakes the engine would silently accept: unknown condition keys,
rules with no conditions, duplicate or reserved ids, empty sentiment sets.

Exit codes:
  0 - Rules file is valid
  1 - Schema errors or lint findings
  2 - Command error (file not found or unreadable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		if isNotFound(err) {
			return outputValidateError(formatter, string(model.ErrCodeIO), fmt.Sprintf("rules file not found: %s", path))
		}
		return outputValidateError(formatter, string(model.ErrCodeIO), err.Error())
	}

	format := compiler.FormatFromPath(path)
	formatter.VerboseLog("Validating %s as %s", path, format)

	compiled, err := compiler.Compile(data, format, path)
	if err != nil {
		return outputValidationErrors(formatter, []compiler.ValidationError{parseFinding(err)})
	}

	findings := compiler.Validate(compiled)
	if len(findings) > 0 {
		return outputValidationErrors(formatter, findings)
	}

	return outputValidateSuccess(formatter, len(compiled))
}

// parseFinding converts a compile error into a finding carrying its line.
func parseFinding(err error) compiler.ValidationError {
	finding := compiler.ValidationError{
		Field:   "document",
		Message: err.Error(),
		Code:    errorCode(err),
	}
	var e *model.Error
	if errors.As(err, &e) {
		finding.Line = e.Line
		finding.Message = e.Message
		if e.Err != nil {
			finding.Message = fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
	}
	return finding
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, count int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Rules: count})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d rule(s) valid\n", count)
	return nil
}

// outputValidateError outputs a single command error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
