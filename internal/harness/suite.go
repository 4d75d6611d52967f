package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SuiteResult summarizes a run of several scenarios.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Results  []*Result         `json:"results"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure is a scenario that failed or could not run.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path,omitempty"`
	Errors   []string `json:"errors"`
}

// LoadScenarios loads a scenario file, or every .yaml and .yml file
// directly inside a directory, sorted by file name. Subdirectories are not
// searched so they can hold shared headers and goal files.
func LoadScenarios(path string) ([]*Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path: %w", err)
	}
	if !info.IsDir() {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		return []*Scenario{s}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)

	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// RunSuite runs scenarios in order. A scenario that cannot run counts as
// failed; only cancellation stops the suite.
func RunSuite(ctx context.Context, scenarios []*Scenario) (*SuiteResult, error) {
	suite := &SuiteResult{
		Results:  []*Result{},
		Failures: []ScenarioFailure{},
	}

	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		suite.Total++

		result, err := Run(ctx, s)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result = NewResult(s.Name)
			result.AddError(err.Error())
		}
		suite.Results = append(suite.Results, result)

		if result.Pass {
			suite.Passed++
			continue
		}
		suite.Failed++
		suite.Failures = append(suite.Failures, ScenarioFailure{
			Scenario: s.Name,
			Path:     s.Path,
			Errors:   result.Errors,
		})
	}

	return suite, nil
}
