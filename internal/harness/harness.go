package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/osiris/internal/build"
)

// Run compiles a scenario in memory and checks its expectations.
//
// The error is reserved for scenarios that cannot be compiled at all:
// undecodable documents, an invalid configuration or cancellation.
// Compiler diagnostics are data, matched against the expectation.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: config: %w", s.Name, err)
	}

	p, err := s.Project()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	res, err := build.Compile(ctx, p, build.Options{Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := NewResult(s.Name)
	result.Diagnostics = res.Diagnostics
	result.Story = res.Story
	result.Fingerprint = res.Fingerprint

	for _, err := range CheckExpectation(res, s.Expect) {
		result.AddError(err.Error())
	}

	slog.Debug("scenario completed",
		"scenario", s.Name,
		"pass", result.Pass,
		"diagnostics", len(result.Diagnostics),
		"fingerprint", result.Fingerprint,
	)
	return result, nil
}
