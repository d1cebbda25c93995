package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nysig/internal/model"
)

// recordEvaluation evaluates the bullish snapshot into db and returns the
// JSON response.
func recordEvaluation(t *testing.T, dir, db string) evaluateResponse {
	t.Helper()
	snap := writeFile(t, dir, "analysis.json", bullishSnapshot)

	stdout, _, err := execRoot(t, "--format", "json", "evaluate", snap,
		"--rules", filepath.Join(dir, "missing.json"),
		"--results-dir", filepath.Join(dir, "results"),
		"--db", db,
	)
	require.NoError(t, err)

	var resp evaluateResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotEmpty(t, resp.RunID)
	return resp
}

func TestHistory_ListShowFind(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")
	resp := recordEvaluation(t, dir, db)

	stdout, _, err := execRoot(t, "history", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "RUN ID")
	assert.Contains(t, stdout, resp.RunID)
	assert.Contains(t, stdout, resp.Data.ResultsPath)

	stdout, _, err = execRoot(t, "history", "show", resp.RunID, "--db", db)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "Run "+resp.RunID+"\n"), stdout)
	assert.Contains(t, stdout, "  Rules: 5 ("+resp.Data.RuleSetHash+")")
	assert.Contains(t, stdout, "  Engine: "+model.EngineVersion)
	assert.Contains(t, stdout, "Signal #1: Bullish Consensus Rule")
	assert.Contains(t, stdout, "Signal #3: Strong Correlation Play")
	assert.Contains(t, stdout, "\nFingerprints:\n")

	fp, err := model.Fingerprint(resp.Data.Signals[1])
	require.NoError(t, err)
	assert.Contains(t, stdout, "  #2 "+fp)

	stdout, _, err = execRoot(t, "history", "find", fp, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, resp.RunID+"\n", stdout)
}

func TestHistory_ShowJSON(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")
	resp := recordEvaluation(t, dir, db)

	stdout, _, err := execRoot(t, "--format", "json", "history", "show", resp.RunID, "--db", db)
	require.NoError(t, err)

	var out struct {
		Status string    `json:"status"`
		RunID  string    `json:"run_id"`
		Data   RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, resp.RunID, out.RunID)
	assert.Equal(t, resp.Data.EvaluatedAt, out.Data.EvaluatedAt)
	require.Len(t, out.Data.Signals, 3)
	for i, s := range out.Data.Signals {
		assert.Equal(t, resp.Data.Signals[i].RuleID, s.Signal.RuleID)
		assert.Len(t, s.Fingerprint, 64)
	}
}

func TestHistory_ListEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")

	stdout, _, err := execRoot(t, "history", "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", stdout)

	stdout, _, err = execRoot(t, "--format", "json", "history", "list", "--db", db)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[]}`, stdout)
}

func TestHistory_ShowUnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")

	stdout, _, err := execRoot(t, "history", "show", "no-such-run", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E_RUN_NOT_FOUND]")
}

func TestHistory_FindNothing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")

	stdout, _, err := execRoot(t, "history", "find", "0000", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs emitted this signal.\n", stdout)
}

func TestHistory_NoDatabaseConfigured(t *testing.T) {
	_, _, err := execRoot(t, "history", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no history database")
}
