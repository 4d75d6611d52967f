package harness

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/osiris/internal/story"
)

// Snapshot renders a result for golden comparison: the story dump, if a
// story was emitted, followed by a diagnostics section when there are
// diagnostics.
func Snapshot(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	if result.Story != nil {
		if err := story.Dump(&buf, result.Story); err != nil {
			return nil, err
		}
	}
	if len(result.Diagnostics) > 0 {
		buf.WriteString("diagnostics\n")
		for _, d := range result.Diagnostics {
			fmt.Fprintf(&buf, "  %s %s\n", d.Level, d.Error())
		}
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), s)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, s.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
