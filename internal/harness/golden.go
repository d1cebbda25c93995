package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenDir holds the expected report of each scenario, one
// <name>.golden file per scenario, relative to the test's package.
const GoldenDir = "testdata/golden"

// RunWithGolden runs a scenario, reports every failed assertion on t and
// compares the rendered report against GoldenDir/<name>.golden.
//
// Regenerate the golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	AssertGolden(t, scenario.Name, result)
	return result
}

// AssertGolden compares a result's report against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(result.Output))
}
