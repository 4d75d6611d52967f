package store

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"

	"github.com/roach88/osiris/internal/testutil"
)

func TestCompareBuilds_FixedAndAddedGoals(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	brokenDir, broken := compileProject(t, map[string]string{"goals/Broken.yaml": testutil.BrokenGoalYAML})
	from, err := s.RecordBuild(ctx, createTestBuild(brokenDir, broken), broken.Diagnostics, broken.Story)
	if err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}

	fixedDir, fixed := compileProject(t, map[string]string{"goals/Counter.yaml": testutil.CounterGoalYAML})
	to, err := s.RecordBuild(ctx, createTestBuild(fixedDir, fixed), fixed.Diagnostics, fixed.Story)
	if err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}

	diff, err := s.CompareBuilds(ctx, from.ID, to.ID)
	if err != nil {
		t.Fatalf("CompareBuilds() failed: %v", err)
	}
	if !diff.StoryChanged {
		t.Error("StoryChanged = false, want true")
	}
	if !slices.Contains(diff.FixedCodes, "E11") {
		t.Errorf("FixedCodes = %v, want E11", diff.FixedCodes)
	}
	if len(diff.NewCodes) != 0 {
		t.Errorf("NewCodes = %v, want none", diff.NewCodes)
	}
	if !slices.Equal(diff.AddedGoals, []string{"Counter"}) {
		t.Errorf("AddedGoals = %v, want [Counter]", diff.AddedGoals)
	}
	if len(diff.RemovedGoals) != 0 {
		t.Errorf("RemovedGoals = %v, want none", diff.RemovedGoals)
	}
}

func TestCompareBuilds_SameStory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	dir, res := compileProject(t, map[string]string{"goals/Counter.yaml": testutil.CounterGoalYAML})

	a, err := s.RecordBuild(ctx, createTestBuild(dir, res), res.Diagnostics, res.Story)
	if err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}
	b, err := s.RecordBuild(ctx, createTestBuild(dir, res), res.Diagnostics, res.Story)
	if err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}

	diff, err := s.CompareBuilds(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("CompareBuilds() failed: %v", err)
	}
	if diff.StoryChanged {
		t.Error("StoryChanged = true for identical builds")
	}
	if len(diff.AddedGoals)+len(diff.RemovedGoals)+len(diff.NewCodes)+len(diff.FixedCodes) != 0 {
		t.Errorf("diff = %+v, want no changes", diff)
	}
}

func TestCompareBuilds_UnknownBuild(t *testing.T) {
	s := createTestStore(t)
	b := writeBuilds(t, s, "p")[0]

	_, err := s.CompareBuilds(context.Background(), b.ID, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("CompareBuilds() error = %v, want sql.ErrNoRows", err)
	}
}

func TestDifference(t *testing.T) {
	got := difference([]string{"W25", "E11", "E11", "W26"}, []string{"W26"})
	if !slices.Equal(got, []string{"E11", "W25"}) {
		t.Errorf("difference() = %v, want [E11 W25]", got)
	}
	if got := difference(nil, []string{"x"}); got == nil || len(got) != 0 {
		t.Errorf("difference(nil) = %#v, want empty slice", got)
	}
}
