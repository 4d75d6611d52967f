package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/osiris/internal/compiler"
	"github.com/roach88/osiris/internal/testutil"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join(scenarioDir, name+".yaml"))
	require.NoError(t, err)
	return s
}

// inlineScenario builds a scenario around one inline goal compiled
// against testutil.HeaderYAML.
func inlineScenario(name, goal string, expect Expectation) *Scenario {
	return &Scenario{
		Name:        name,
		Description: name,
		Header:      testutil.HeaderYAML,
		Goals:       []GoalSource{{Name: name, Source: goal}},
		Expect:      expect,
	}
}

func intPtr(n int) *int { return &n }

// =============================================================================
// Scenario Runs
// =============================================================================

func TestRunRepositoryScenarios(t *testing.T) {
	for _, name := range []string{"counter_deaths", "echo_event", "type_mismatch"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(context.Background(), loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
			assert.Equal(t, name, result.Scenario)
		})
	}
}

func TestRunCarriesCompileOutput(t *testing.T) {
	result, err := Run(context.Background(), loadScenario(t, "counter_deaths"))
	require.NoError(t, err)

	require.NotNil(t, result.Story)
	assert.NotEmpty(t, result.Fingerprint)
	assert.Empty(t, result.Diagnostics)
}

func TestRunFailedCompileHasNoStory(t *testing.T) {
	result, err := Run(context.Background(), loadScenario(t, "type_mismatch"))
	require.NoError(t, err)

	assert.Nil(t, result.Story)
	assert.Empty(t, result.Fingerprint)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, compiler.ErrLocalTypeMismatch, result.Diagnostics[0].Code)
}

func TestRunReportsUnexpectedErrors(t *testing.T) {
	s := inlineScenario("Broken", testutil.BrokenGoalYAML, Expectation{})

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expectation failed: errors")
	assert.Contains(t, result.Errors[0], "Actual: [E11]")
}

func TestRunReportsStoryMismatches(t *testing.T) {
	s := inlineScenario("Counter", testutil.CounterGoalYAML, Expectation{
		Nodes:     intPtr(5),
		Databases: intPtr(2),
		Goals:     []string{"Other"},
		Functions: []string{"DB_Counter/3"},
	})

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "nodes")
	assert.Contains(t, result.Errors[1], "databases")
	assert.Contains(t, result.Errors[2], "goals")
	assert.Contains(t, result.Errors[3], "DB_Counter/3")
}

func TestRunStoryExpectationWithoutStory(t *testing.T) {
	s := inlineScenario("Broken", testutil.BrokenGoalYAML, Expectation{
		Errors: []string{"E11"},
		Nodes:  intPtr(1),
	})

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no story")
}

func TestRunUndecodableGoal(t *testing.T) {
	s := inlineScenario("Bad", "kb: [", Expectation{})

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario Bad")
}

func TestRunInvalidConfig(t *testing.T) {
	s := inlineScenario("Counter", testutil.CounterGoalYAML, Expectation{})
	s.Target = "ps5"

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, loadScenario(t, "counter_deaths"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunHonoursWarningSwitches(t *testing.T) {
	const scoreGoal = `
init:
  - database: Score
    elements: [{string: "a"}, {int: 1}]
kb:
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _E}]
      - func: Score
        params: [{var: _E}, {var: _N}]
    actions:
      - func: DebugBreak
        params: [{var: _E}]
`
	s := inlineScenario("Score", scoreGoal, Expectation{})

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, codesOf(result.Diagnostics), compiler.WarnDbNamingStyle)

	s.Warnings = map[string]bool{"db-naming": false}
	result, err = Run(context.Background(), s)
	require.NoError(t, err)
	assert.NotContains(t, codesOf(result.Diagnostics), compiler.WarnDbNamingStyle)
}

func codesOf(diags []compiler.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}
