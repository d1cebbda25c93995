package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/nysig/internal/model"
)

// NoSignalsNotice is printed instead of an empty report.
const NoSignalsNotice = "No trading signals generated."

// Display writes a human-readable report of signals to w.
//
// Each signal is a numbered block of core fields. Statistical override
// signals also show the entry strategy and the risk-management entries with
// their labels de-slugged and title-cased.
func Display(w io.Writer, signals []model.Signal) error {
	ew := &errWriter{w: w}

	if len(signals) == 0 {
		ew.printf("\n%s\n", NoSignalsNotice)
		return ew.err
	}

	for i, s := range signals {
		ew.printf("\nSignal #%d: %s\n", i+1, s.RuleName)
		ew.printf("  Action: %s\n", s.ActionType)
		ew.printf("  Position Size: %s\n", s.PositionSize)
		ew.printf("  Stop Loss: %s%%\n", formatNumber(s.StopLossPct))
		ew.printf("  Take Profit: %s%%\n", formatNumber(s.TakeProfitPct))
		ew.printf("  Confidence: %.1f%%\n", s.Confidence*100)
		ew.printf("  Signal Strength: %.1f/100\n", s.SignalStrength)
		ew.printf("  Description: %s\n", s.Description)

		if o, ok := s.Override(); ok && o.Source == model.ProvenanceNQStats {
			ew.printf("  Entry Strategy: %s\n", o.EntryStrategy)
			ew.printf("  Risk Management:\n")
			for _, item := range o.RiskManagement {
				ew.printf("    - %s: %s\n", HumanizeLabel(item.Label), item.Description)
			}
		}
	}
	return ew.err
}

// HumanizeLabel turns a slug such as "stop_loss" into "Stop Loss".
func HumanizeLabel(label string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(label, "_", " "))
}

// formatNumber prints the shortest representation of v, always with a
// fractional part ("2.0", "1.5").
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// errWriter remembers the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
