package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nysig/internal/config"
)

const bullishSnapshot = `{
  "combined_signals": {
    "overall_sentiment": "bullish",
    "confidence": 0.7,
    "signal_strength": 65,
    "factors": ["ES up 1.2%"]
  },
  "correlations": {"strength": "strong"},
  "recommendations": ["Consider long exposure"]
}`

const noCorrelationsSnapshot = `{
  "combined_signals": {
    "overall_sentiment": "bullish",
    "confidence": 0.7,
    "signal_strength": 65,
    "factors": []
  },
  "recommendations": []
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execRoot runs the full command tree with args and returns stdout and
// stderr. Environment overrides are cleared so the host cannot leak in.
func execRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, env := range []string{config.EnvRulesFile, config.EnvResultsDir, config.EnvHistoryDB, config.EnvLogLevel} {
		t.Setenv(env, "")
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
