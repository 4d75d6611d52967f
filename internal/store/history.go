package store

import (
	"context"
	"fmt"
	"slices"
)

// BuildDiff compares two builds of a project.
type BuildDiff struct {
	From, To Build

	// StoryChanged is true when the fingerprints differ. Builds that
	// emitted no story never compare equal.
	StoryChanged bool

	// NewCodes and FixedCodes list diagnostic codes present only in To or
	// only in From, sorted.
	NewCodes   []string
	FixedCodes []string

	AddedGoals   []string
	RemovedGoals []string
}

// CompareBuilds reports what changed between two recorded builds.
func (s *Store) CompareBuilds(ctx context.Context, fromID, toID string) (BuildDiff, error) {
	var diff BuildDiff
	var err error
	if diff.From, err = s.ReadBuild(ctx, fromID); err != nil {
		return BuildDiff{}, fmt.Errorf("compare builds: %w", err)
	}
	if diff.To, err = s.ReadBuild(ctx, toID); err != nil {
		return BuildDiff{}, fmt.Errorf("compare builds: %w", err)
	}

	diff.StoryChanged = diff.From.Fingerprint == "" ||
		diff.From.Fingerprint != diff.To.Fingerprint

	fromCodes, err := s.diagnosticCodes(ctx, fromID)
	if err != nil {
		return BuildDiff{}, err
	}
	toCodes, err := s.diagnosticCodes(ctx, toID)
	if err != nil {
		return BuildDiff{}, err
	}
	diff.NewCodes = difference(toCodes, fromCodes)
	diff.FixedCodes = difference(fromCodes, toCodes)

	fromGoals, err := s.goalNames(ctx, fromID)
	if err != nil {
		return BuildDiff{}, err
	}
	toGoals, err := s.goalNames(ctx, toID)
	if err != nil {
		return BuildDiff{}, err
	}
	diff.AddedGoals = difference(toGoals, fromGoals)
	diff.RemovedGoals = difference(fromGoals, toGoals)

	return diff, nil
}

func (s *Store) diagnosticCodes(ctx context.Context, buildID string) ([]string, error) {
	diags, err := s.ReadDiagnostics(ctx, buildID)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(diags))
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	return codes, nil
}

func (s *Store) goalNames(ctx context.Context, buildID string) ([]string, error) {
	goals, err := s.ReadGoals(ctx, buildID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(goals))
	for _, g := range goals {
		names = append(names, g.Name)
	}
	return names, nil
}

// difference returns the distinct values of a missing from b, sorted.
func difference(a, b []string) []string {
	seen := make(map[string]bool, len(b))
	for _, v := range b {
		seen[v] = true
	}
	out := []string{}
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
