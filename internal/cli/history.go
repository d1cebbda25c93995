package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/nysig/internal/model"
	"github.com/roach88/nysig/internal/report"
	"github.com/roach88/nysig/internal/store"
)

// HistoryOptions holds flags for the history commands.
type HistoryOptions struct {
	*RootOptions
	DBPath string // overrides config history_db
	Limit  int    // list: maximum runs shown
}

// RunDetail is the JSON payload of history show.
type RunDetail struct {
	ID            string            `json:"id"`
	EvaluatedAt   string            `json:"evaluated_at"`
	RuleSetHash   string            `json:"rule_set_hash"`
	RuleCount     int               `json:"rule_count"`
	ResultsPath   string            `json:"results_path,omitempty"`
	EngineVersion string            `json:"engine_version"`
	Signals       []SignalWithPrint `json:"signals"`
}

// SignalWithPrint pairs a recorded signal with its fingerprint.
type SignalWithPrint struct {
	Fingerprint string       `json:"fingerprint"`
	Signal      model.Signal `json:"signal"`
}

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded evaluation runs",
		Long: `Inspect evaluation runs recorded with evaluate --db.

Each run stores the snapshot, the rule set hash and the emitted signals in
order. Signals are content-addressed, so the same signal can be traced
across runs with history find.`,
	}
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite history database")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List recorded runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(opts, cmd)
		},
	}
	list.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to show (0 for all)")

	show := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show a recorded run and its signals",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(opts, args[0], cmd)
		},
	}

	find := &cobra.Command{
		Use:           "find <fingerprint>",
		Short:         "List runs that emitted a signal",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryFind(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(list, show, find)
	return cmd
}

// open opens the history database named by flag or config.
func (o *HistoryOptions) open() (*store.Store, error) {
	path := firstNonEmpty(o.DBPath, o.config().HistoryDB)
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no history database: set --db or history_db")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open history database", err)
	}
	return st, nil
}

func runHistoryList(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return fail(formatter, ExitCommandError, "list runs", err)
	}

	if opts.Format == "json" {
		return formatter.Success(runs)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tEVALUATED AT\tRULES\tSIGNALS\tRESULTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.ID, evaluatedAt(r.EvaluatedAt), r.RuleCount, r.SignalCount, r.ResultsPath)
	}
	return tw.Flush()
}

func runHistoryShow(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(cmd.Context(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error("E_RUN_NOT_FOUND", fmt.Sprintf("run not found: %s", runID), nil)
		return WrapExitError(ExitCommandError, "show run", err)
	}
	if err != nil {
		return fail(formatter, ExitCommandError, "show run", err)
	}

	signals := make([]SignalWithPrint, len(run.Signals))
	for i, sig := range run.Signals {
		fp, err := model.Fingerprint(sig)
		if err != nil {
			return fail(formatter, ExitCommandError, "fingerprint signal", err)
		}
		signals[i] = SignalWithPrint{Fingerprint: fp, Signal: sig}
	}

	if opts.Format == "json" {
		return formatter.SuccessRun(run.ID, RunDetail{
			ID:            run.ID,
			EvaluatedAt:   evaluatedAt(run.EvaluatedAt),
			RuleSetHash:   run.RuleSetHash,
			RuleCount:     run.RuleCount,
			ResultsPath:   run.ResultsPath,
			EngineVersion: run.EngineVersion,
			Signals:       signals,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  Evaluated At: %s\n", evaluatedAt(run.EvaluatedAt))
	fmt.Fprintf(w, "  Rules: %d (%s)\n", run.RuleCount, run.RuleSetHash)
	fmt.Fprintf(w, "  Engine: %s\n", run.EngineVersion)
	if run.ResultsPath != "" {
		fmt.Fprintf(w, "  Results: %s\n", run.ResultsPath)
	}
	if err := report.Display(w, run.Signals); err != nil {
		return err
	}
	if len(signals) > 0 {
		fmt.Fprintln(w, "\nFingerprints:")
		for i, s := range signals {
			fmt.Fprintf(w, "  #%d %s\n", i+1, s.Fingerprint)
		}
	}
	return nil
}

func runHistoryFind(opts *HistoryOptions, fingerprint string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.open()
	if err != nil {
		return err
	}
	defer st.Close()

	ids, err := st.RunsWithSignal(cmd.Context(), fingerprint)
	if err != nil {
		return fail(formatter, ExitCommandError, "find runs", err)
	}

	if opts.Format == "json" {
		return formatter.Success(ids)
	}

	w := cmd.OutOrStdout()
	if len(ids) == 0 {
		fmt.Fprintln(w, "No runs emitted this signal.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}
