package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/osiris/internal/testutil"
)

func TestLoadScenariosDirectory(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir)
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"counter_deaths", "echo_event", "type_mismatch"}, names)
}

func TestLoadScenariosSingleFile(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join(scenarioDir, "echo_event.yaml"))
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "echo_event", scenarios[0].Name)
}

func TestLoadScenariosStopsAtInvalidFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"a.yaml":     "name: a\n",
		"notes.txt":  "ignored",
		"sub/b.yaml": "ignored: true\n",
	})

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.yaml")
}

func TestLoadScenariosMissingPath(t *testing.T) {
	_, err := LoadScenarios(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestRunSuite(t *testing.T) {
	scenarios, err := LoadScenarios(scenarioDir)
	require.NoError(t, err)

	suite, err := RunSuite(context.Background(), scenarios)
	require.NoError(t, err)

	assert.Equal(t, 3, suite.Total)
	assert.Equal(t, 3, suite.Passed)
	assert.Equal(t, 0, suite.Failed)
	assert.Empty(t, suite.Failures)
	assert.Len(t, suite.Results, 3)
}

func TestRunSuiteCountsFailures(t *testing.T) {
	failing := inlineScenario("Broken", testutil.BrokenGoalYAML, Expectation{})
	broken := inlineScenario("Bad", "kb: [", Expectation{})
	passing := inlineScenario("Counter", testutil.CounterGoalYAML, Expectation{})

	suite, err := RunSuite(context.Background(), []*Scenario{failing, broken, passing})
	require.NoError(t, err)

	assert.Equal(t, 3, suite.Total)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 2, suite.Failed)
	require.Len(t, suite.Failures, 2)
	assert.Equal(t, "Broken", suite.Failures[0].Scenario)
	assert.Equal(t, "Bad", suite.Failures[1].Scenario)
	assert.Contains(t, suite.Failures[1].Errors[0], "scenario Bad")
}

func TestRunSuiteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunSuite(ctx, []*Scenario{inlineScenario("Counter", testutil.CounterGoalYAML, Expectation{})})
	require.ErrorIs(t, err, context.Canceled)
}
