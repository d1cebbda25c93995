package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nysig/internal/atomicio"
	"github.com/roach88/nysig/internal/compiler"
	"github.com/roach88/nysig/internal/model"
	"github.com/roach88/nysig/internal/rules"
)

// RulesOptions holds flags shared by the rules subcommands.
type RulesOptions struct {
	*RootOptions
	RulesFile string // overrides config rules_file
	Force     bool   // init: overwrite an existing file
}

// RulesAddResult is the JSON payload of rules add.
type RulesAddResult struct {
	Added    []int                      `json:"added"`
	Total    int                        `json:"total"`
	Path     string                     `json:"path"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewRulesCommand creates the rules command group.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RulesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and edit the rule store",
		Long: `Inspect and edit the rule store.

The rule store is a JSON (or .yaml/.yml) file holding an ordered list of
rules. When the file does not exist the built-in default rules are used.`,
	}
	cmd.PersistentFlags().StringVar(&opts.RulesFile, "rules", "", "rules file (JSON or YAML)")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List rules in evaluation order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesList(opts, cmd)
		},
	}

	add := &cobra.Command{
		Use:   "add <rule-file>",
		Short: "Append rules and persist the store",
		Long: `Append every rule in <rule-file> (a JSON or YAML rule list) to the end of
the rule store and write the store back to disk.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesAdd(opts, args[0], cmd)
		},
	}

	initCmd := &cobra.Command{
		Use:           "init",
		Short:         "Write the default rules to the rules file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesInit(opts, cmd)
		},
	}
	initCmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing rules file")

	cmd.AddCommand(list, add, initCmd)
	return cmd
}

func (o *RulesOptions) rulesFile() string {
	return firstNonEmpty(o.RulesFile, o.config().RulesFile)
}

func runRulesList(opts *RulesOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := rules.Open(opts.rulesFile())
	if err != nil {
		return fail(formatter, ExitCommandError, "load rules", err)
	}
	if st.UsingDefaults() {
		formatter.VerboseLog("%s not found, showing default rules", st.Path())
	}

	if opts.Format == "json" {
		return formatter.Success(st.Rules())
	}

	w := cmd.OutOrStdout()
	for _, r := range st.Rules() {
		fmt.Fprintf(w, "#%d %s\n", r.ID, r.Name)
		if r.Description != "" {
			fmt.Fprintf(w, "  %s\n", r.Description)
		}
		fmt.Fprintf(w, "  when:   %s\n", describeConditions(r.Conditions))
		fmt.Fprintf(w, "  action: %s\n", describeAction(r.Action))
	}
	fmt.Fprintf(w, "\n%d rule(s)\n", st.Len())
	return nil
}

func runRulesAdd(opts *RulesOptions, rulePath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()

	data, err := os.ReadFile(rulePath)
	if err != nil {
		return fail(formatter, ExitCommandError, "read rule file", model.NewIOError(rulePath, "read rule file", err))
	}
	incoming, err := compiler.Compile(data, compiler.FormatFromPath(rulePath), rulePath)
	if err != nil {
		return fail(formatter, ExitCommandError, "parse rule file", err)
	}
	if len(incoming) == 0 {
		return fail(formatter, ExitCommandError, "parse rule file", fmt.Errorf("%s contains no rules", rulePath))
	}

	st, err := rules.Open(opts.rulesFile())
	if err != nil {
		return fail(formatter, ExitCommandError, "load rules", err)
	}

	added := make([]int, 0, len(incoming))
	for _, r := range incoming {
		if err := st.Add(r); err != nil {
			return fail(formatter, ExitCommandError, fmt.Sprintf("add rule %d", r.ID), err)
		}
		added = append(added, r.ID)
		log.Info().Int("rule_id", r.ID).Str("rule", r.Name).Msg("Rule added")
	}

	warnings := compiler.Validate(st.Rules())

	if opts.Format == "json" {
		return formatter.Success(RulesAddResult{
			Added:    added,
			Total:    st.Len(),
			Path:     st.Path(),
			Warnings: warnings,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Added %d rule(s) to %s (%d total)\n", len(added), st.Path(), st.Len())
	for _, warn := range warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn.Error())
	}
	return nil
}

func runRulesInit(opts *RulesOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	path := opts.rulesFile()

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return fail(formatter, ExitCommandError, "init rules",
			fmt.Errorf("%s already exists (use --force to overwrite)", path))
	} else if err != nil && !isNotFound(err) {
		return fail(formatter, ExitCommandError, "init rules", model.NewIOError(path, "stat rules file", err))
	}

	defaults := rules.Defaults()
	data, err := compiler.Encode(defaults, compiler.FormatFromPath(path))
	if err != nil {
		return fail(formatter, ExitCommandError, "encode rules", err)
	}
	if err := atomicio.WriteFile(path, data, 0o644); err != nil {
		return fail(formatter, ExitCommandError, "write rules", model.NewIOError(path, "write rules", err))
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]any{"path": path, "rules": len(defaults)})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d default rule(s) to %s\n", len(defaults), path)
	return nil
}

// describeConditions renders conditions as "key=value" pairs in stored order.
func describeConditions(conds model.Conditions) string {
	if len(conds) == 0 {
		return "(always)"
	}
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		switch c := c.(type) {
		case model.SentimentEquals:
			parts = append(parts, fmt.Sprintf("%s=%s", c.Key(), c.Label))
		case model.SentimentIn:
			parts = append(parts, fmt.Sprintf("%s in [%s]", c.Key(), strings.Join(c.Labels, ", ")))
		case model.ConfidenceAtLeast:
			parts = append(parts, fmt.Sprintf("%s>=%g", c.Key(), c.Min))
		case model.StrengthAtLeast:
			parts = append(parts, fmt.Sprintf("%s>=%g", c.Key(), c.Min))
		case model.CorrelationEquals:
			parts = append(parts, fmt.Sprintf("%s=%s", c.Key(), c.Label))
		case model.Unknown:
			parts = append(parts, fmt.Sprintf("%s (ignored)", c.Key()))
		}
	}
	return strings.Join(parts, ", ")
}

func describeAction(a *model.Action) string {
	if a == nil {
		return "(none)"
	}
	return fmt.Sprintf("%s %s, stop %g%%, target %g%%", a.Type, a.PositionSize, a.StopLoss, a.TakeProfit)
}
