package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/nysig/internal/atomicio"
	"github.com/roach88/nysig/internal/model"
)

// ResultsFilePrefix and ResultsTimeLayout name files written by the evaluate
// pipeline: trading_signals_20240315_093000.json.
const (
	ResultsFilePrefix = "trading_signals_"
	ResultsTimeLayout = "20060102_150405"
)

// Save writes signals to path as an indented JSON array.
//
// Missing parent directories are created. The write is atomic: either the
// complete document replaces path or path is left as it was. Failures are
// returned as an IOError.
func Save(signals []model.Signal, path string) error {
	data, err := model.EncodeSignals(signals)
	if err != nil {
		return model.NewIOError(path, "encode signals", err)
	}
	if err := atomicio.WriteFile(path, data, 0o644); err != nil {
		return model.NewIOError(path, "save signals", err)
	}
	return nil
}

// LoadSignals reads a file written by Save.
func LoadSignals(path string) ([]model.Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewIOError(path, "read signals", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var signals []model.Signal
	if err := dec.Decode(&signals); err != nil {
		return nil, fmt.Errorf("decode signals %s: %w", path, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode signals %s: %w", path, errors.New("trailing data after signal list"))
	}
	if signals == nil {
		signals = []model.Signal{}
	}
	return signals, nil
}

// DefaultResultsPath returns dir/trading_signals_<YYYYMMDD_HHMMSS>.json for t.
func DefaultResultsPath(dir string, t time.Time) string {
	return filepath.Join(dir, ResultsFilePrefix+t.Format(ResultsTimeLayout)+".json")
}
