package harness

import (
	"github.com/roach88/osiris/internal/compiler"
	"github.com/roach88/osiris/internal/story"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass is true if every expectation matched.
	Pass bool `json:"pass"`

	// Errors holds the failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Diagnostics are the compiler findings in report order.
	Diagnostics []compiler.Diagnostic `json:"diagnostics"`

	// Story is nil when the compile reported errors.
	Story       *story.Story `json:"-"`
	Fingerprint string       `json:"fingerprint,omitempty"`
}

// NewResult creates a passing result for the named scenario.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario:    scenario,
		Pass:        true,
		Errors:      []string{},
		Diagnostics: []compiler.Diagnostic{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
