package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "nysig", cmd.Use)
	assert.Contains(t, cmd.Long, "trading rules")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"evaluate"},
		{"rules", "list"},
		{"rules", "add"},
		{"rules", "init"},
		{"validate"},
		{"test"},
		{"history", "list"},
		{"history", "show"},
		{"history", "find"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestEvaluateCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	evalCmd, _, err := cmd.Find([]string{"evaluate"})
	require.NoError(t, err)

	for _, name := range []string{"rules", "out", "results-dir", "no-save", "db", "metrics-file"} {
		assert.NotNil(t, evalCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "o", evalCmd.Flags().Lookup("out").Shorthand)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	listCmd, _, err := cmd.Find([]string{"history", "list"})
	require.NoError(t, err)

	limitFlag := listCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "20", limitFlag.DefValue)

	dbFlag := listCmd.InheritedFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := execRoot(t, "--format", "invalid", "validate", "rules.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestConfigErrorIsCommandError(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "nysig.yaml", "log:\n  level: loud\n")

	_, _, err := execRoot(t, "--config", cfg, "rules", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "log.level")
}

func TestConfigSuppliesRulesFile(t *testing.T) {
	dir := t.TempDir()
	rulesPath := writeFile(t, dir, "custom.yaml", `
- id: 42
  name: Configured Rule
  conditions:
    overall_sentiment: mixed
  action:
    type: HOLD
    position_size: small
`)
	cfg := writeFile(t, dir, "nysig.yaml", "rules_file: "+rulesPath+"\n")

	stdout, _, err := execRoot(t, "--config", cfg, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "#42 Configured Rule")
	assert.Contains(t, stdout, "1 rule(s)")
}
