package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/roach88/osiris/internal/testutil"
)

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// counterProject writes a project whose single goal compiles cleanly.
func counterProject(t *testing.T) string {
	t.Helper()
	return testutil.NewProject(t, map[string]string{
		"goals/Counter.yaml": testutil.CounterGoalYAML,
	})
}

// brokenProject writes a project whose goal fails with E11.
func brokenProject(t *testing.T) string {
	t.Helper()
	return testutil.NewProject(t, map[string]string{
		"goals/Broken.yaml": testutil.BrokenGoalYAML,
	})
}
