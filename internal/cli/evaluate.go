package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/nysig/internal/engine"
	"github.com/roach88/nysig/internal/metrics"
	"github.com/roach88/nysig/internal/model"
	"github.com/roach88/nysig/internal/report"
	"github.com/roach88/nysig/internal/rules"
	"github.com/roach88/nysig/internal/store"
)

// bannerWidth matches the section rules printed around report output.
const bannerWidth = 60

// EvaluateOptions holds flags for the evaluate command.
type EvaluateOptions struct {
	*RootOptions
	RulesFile   string // overrides config rules_file
	OutPath     string // explicit results file
	ResultsDir  string // overrides config results_dir
	NoSave      bool   // skip writing the results file
	HistoryDB   string // overrides config history_db
	MetricsFile string // overrides config metrics_file

	// clock is fixed in tests; nil means the system clock.
	clock engine.Clock
}

// EvaluateResult is the JSON payload of the evaluate command.
type EvaluateResult struct {
	RunID       string         `json:"run_id"`
	EvaluatedAt string         `json:"evaluated_at"`
	RuleSetHash string         `json:"rule_set_hash"`
	RuleCount   int            `json:"rule_count"`
	Signals     []model.Signal `json:"signals"`
	ResultsPath string         `json:"results_path,omitempty"`
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvaluateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "evaluate <snapshot.json>",
		Short: "Evaluate an analysis snapshot against the rule set",
		Long: `Evaluate a market analysis snapshot against the rule store and emit
trading signals.

A qualifying NQ Stats trading decision is emitted first, followed by one
signal per matching rule in rule order. Signals are printed, saved to
<results-dir>/trading_signals_<timestamp>.json, and optionally recorded in
the run history database.

Exit codes:
  0 - Evaluation succeeded (with or without signals)
  1 - Snapshot rejected (missing required field)
  2 - Command error (unreadable snapshot, malformed rules, write failure)

Examples:
  nysig evaluate analysis.json
  nysig evaluate analysis.json --rules rules.yaml --no-save
  nysig evaluate analysis.json --db history.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RulesFile, "rules", "", "rules file (JSON or YAML)")
	cmd.Flags().StringVarP(&opts.OutPath, "out", "o", "", "results file (default <results-dir>/trading_signals_<timestamp>.json)")
	cmd.Flags().StringVar(&opts.ResultsDir, "results-dir", "", "directory for results files")
	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "do not write a results file")
	cmd.Flags().StringVar(&opts.HistoryDB, "db", "", "record the run in this SQLite history database")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	return cmd
}

func runEvaluate(opts *EvaluateOptions, snapshotPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()
	cfg := opts.config()

	rulesFile := firstNonEmpty(opts.RulesFile, cfg.RulesFile)
	resultsDir := firstNonEmpty(opts.ResultsDir, cfg.ResultsDir)
	historyDB := firstNonEmpty(opts.HistoryDB, cfg.HistoryDB)
	metricsFile := firstNonEmpty(opts.MetricsFile, cfg.MetricsFile)

	snapshot, err := readSnapshot(snapshotPath)
	if err != nil {
		if model.IsMissingFieldError(err) {
			return fail(formatter, ExitFailure, "snapshot rejected", err)
		}
		return fail(formatter, ExitCommandError, "read snapshot", err)
	}

	ruleStore, err := rules.Open(rulesFile)
	if err != nil {
		return fail(formatter, ExitCommandError, "load rules", err)
	}
	if ruleStore.UsingDefaults() {
		log.Info().Str("path", rulesFile).Msg("Rules file not found, using default rules")
	} else {
		log.Debug().Str("path", rulesFile).Int("rules", ruleStore.Len()).Msg("Rules loaded")
	}

	recorder := metrics.New()
	engineOpts := []engine.Option{
		engine.WithLogger(log),
		engine.WithObserver(recorder),
	}
	if opts.clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(opts.clock))
	}
	eng := engine.New(ruleStore, engineOpts...)

	ev, err := eng.Evaluate(snapshot)
	if err != nil {
		_ = writeMetrics(recorder, metricsFile)
		if model.IsMissingFieldError(err) {
			return fail(formatter, ExitFailure, "snapshot rejected", err)
		}
		return fail(formatter, ExitCommandError, "evaluate", err)
	}

	resultsPath := ""
	if !opts.NoSave {
		resultsPath = opts.OutPath
		if resultsPath == "" {
			resultsPath = report.DefaultResultsPath(resultsDir, ev.EvaluatedAt)
		}
		if err := report.Save(ev.Signals, resultsPath); err != nil {
			return fail(formatter, ExitCommandError, "save results", err)
		}
		log.Debug().Str("path", resultsPath).Msg("Results saved")
	}

	if historyDB != "" {
		if err := recordRun(cmd, historyDB, ev, snapshot, resultsPath); err != nil {
			return fail(formatter, ExitCommandError, "record history", err)
		}
		log.Debug().Str("db", historyDB).Str("run_id", ev.RunID).Msg("Run recorded")
	}

	if err := writeMetrics(recorder, metricsFile); err != nil {
		return fail(formatter, ExitCommandError, "write metrics", err)
	}

	if opts.Format == "json" {
		return formatter.SuccessRun(ev.RunID, EvaluateResult{
			RunID:       ev.RunID,
			EvaluatedAt: ev.EvaluatedAt.Format(model.TimestampLayout),
			RuleSetHash: ev.RuleSetHash,
			RuleCount:   ev.RuleCount,
			Signals:     ev.Signals,
			ResultsPath: resultsPath,
		})
	}

	w := cmd.OutOrStdout()
	printBanner(w, "Trading Signals for NYSE")
	if err := report.Display(w, ev.Signals); err != nil {
		return err
	}
	if resultsPath != "" {
		fmt.Fprintf(w, "\nResults saved to: %s\n", resultsPath)
	}
	formatter.VerboseLog("Run %s: %d signal(s) from %d rule(s)", ev.RunID, len(ev.Signals), ev.RuleCount)
	return nil
}

// readSnapshot parses the analysis document at path.
func readSnapshot(path string) (*model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewIOError(path, "open snapshot", err)
	}
	defer f.Close()
	return model.ParseSnapshot(f)
}

// recordRun writes the evaluation to the history database.
func recordRun(cmd *cobra.Command, dbPath string, ev *engine.Evaluation, snapshot *model.Snapshot, resultsPath string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.WriteRun(cmd.Context(), store.Run{
		ID:          ev.RunID,
		EvaluatedAt: ev.EvaluatedAt,
		RuleSetHash: ev.RuleSetHash,
		RuleCount:   ev.RuleCount,
		Snapshot:    snapshot,
		ResultsPath: resultsPath,
		Signals:     ev.Signals,
	})
}

// writeMetrics writes the metrics textfile if one is configured.
func writeMetrics(recorder *metrics.Recorder, path string) error {
	if path == "" {
		return nil
	}
	if err := recorder.WriteTextfile(path); err != nil {
		return model.NewIOError(path, "write metrics", err)
	}
	return nil
}

func printBanner(w io.Writer, title string) {
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, title, rule)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// isNotFound reports whether err means a missing file.
func isNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// evaluatedAt formats a run time for text output.
func evaluatedAt(t time.Time) string {
	return t.Local().Format(model.TimestampLayout)
}
