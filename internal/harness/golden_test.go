package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// its report against testdata/golden.
func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result := RunWithGolden(t, s)
			require.NotNil(t, result)
			if result.Err == nil {
				assert.Equal(t, RunID, result.RunID)
			}
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	result, err := Run(load(t, "no_match"))
	require.NoError(t, err)
	assert.True(t, result.Pass)
	AssertGolden(t, "no_match", result)
}
