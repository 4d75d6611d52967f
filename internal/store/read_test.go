package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func writeBuilds(t *testing.T, s *Store, dirs ...string) []Build {
	t.Helper()
	builds := make([]Build, len(dirs))
	for i, dir := range dirs {
		b, err := s.WriteBuild(context.Background(), Build{ProjectDir: dir, Target: "dos2de"})
		if err != nil {
			t.Fatalf("WriteBuild() failed: %v", err)
		}
		builds[i] = b
	}
	return builds
}

func TestReadBuild_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadBuild(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadBuild() error = %v, want sql.ErrNoRows", err)
	}
}

func TestReadBuild_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want, err := s.WriteBuild(ctx, Build{
		ProjectDir:  "/work/story",
		Target:      "bg3",
		Fingerprint: "abc123",
		Goals:       3,
		Errors:      0,
		Warnings:    2,
		Passes:      4,
		Succeeded:   true,
	})
	if err != nil {
		t.Fatalf("WriteBuild() failed: %v", err)
	}

	got, err := s.ReadBuild(ctx, want.ID)
	if err != nil {
		t.Fatalf("ReadBuild() failed: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if got != want {
		t.Errorf("ReadBuild() = %+v, want %+v", got, want)
	}
}

func TestListBuilds_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	written := writeBuilds(t, s, "a", "b", "a")

	builds, err := s.ListBuilds(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListBuilds() failed: %v", err)
	}
	if len(builds) != 3 {
		t.Fatalf("got %d builds, want 3", len(builds))
	}
	for i, b := range builds {
		if want := written[len(written)-1-i]; b.ID != want.ID {
			t.Errorf("builds[%d] = %s (seq %d), want %s", i, b.ID, b.Seq, want.ID)
		}
	}
}

func TestListBuilds_FilterAndLimit(t *testing.T) {
	s := createTestStore(t)
	written := writeBuilds(t, s, "a", "b", "a", "a")
	ctx := context.Background()

	builds, err := s.ListBuilds(ctx, "a", 0)
	if err != nil {
		t.Fatalf("ListBuilds() failed: %v", err)
	}
	if len(builds) != 3 {
		t.Errorf("got %d builds for project a, want 3", len(builds))
	}

	builds, err = s.ListBuilds(ctx, "a", 2)
	if err != nil {
		t.Fatalf("ListBuilds() failed: %v", err)
	}
	if len(builds) != 2 || builds[0].ID != written[3].ID || builds[1].ID != written[2].ID {
		t.Errorf("limited builds = %+v, want the two newest of project a", builds)
	}
}

func TestListBuilds_Empty(t *testing.T) {
	s := createTestStore(t)

	builds, err := s.ListBuilds(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("ListBuilds() failed: %v", err)
	}
	if builds == nil || len(builds) != 0 {
		t.Errorf("ListBuilds() = %#v, want empty slice", builds)
	}
}

func TestLatestBuild(t *testing.T) {
	s := createTestStore(t)
	written := writeBuilds(t, s, "a", "b", "a", "b")
	ctx := context.Background()

	b, err := s.LatestBuild(ctx, "a")
	if err != nil {
		t.Fatalf("LatestBuild() failed: %v", err)
	}
	if b.ID != written[2].ID {
		t.Errorf("LatestBuild(a) = %s, want %s", b.ID, written[2].ID)
	}

	if _, err := s.LatestBuild(ctx, "c"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("LatestBuild(c) error = %v, want sql.ErrNoRows", err)
	}
}

func TestReadSummaries_EmptyForUnknownBuild(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	diags, err := s.ReadDiagnostics(ctx, "missing")
	if err != nil || diags == nil || len(diags) != 0 {
		t.Errorf("ReadDiagnostics() = %#v, %v, want empty slice", diags, err)
	}
	goals, err := s.ReadGoals(ctx, "missing")
	if err != nil || goals == nil || len(goals) != 0 {
		t.Errorf("ReadGoals() = %#v, %v, want empty slice", goals, err)
	}
	funcs, err := s.ReadFunctions(ctx, "missing")
	if err != nil || funcs == nil || len(funcs) != 0 {
		t.Errorf("ReadFunctions() = %#v, %v, want empty slice", funcs, err)
	}
	nodes, err := s.ReadNodes(ctx, "missing")
	if err != nil || nodes == nil || len(nodes) != 0 {
		t.Errorf("ReadNodes() = %#v, %v, want empty slice", nodes, err)
	}
}

func TestReadFunctions_SortedByNameAndArity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	b := writeBuilds(t, s, "p")[0]
	for _, f := range []struct {
		name  string
		arity int
	}{{"b", 1}, {"B", 2}, {"a", 2}, {"a", 1}} {
		_, err := s.db.Exec(`
			INSERT INTO functions (build_id, name, arity, type) VALUES (?, ?, ?, 'Event')
		`, b.ID, f.name, f.arity)
		if err != nil {
			t.Fatalf("insert function failed: %v", err)
		}
	}

	funcs, err := s.ReadFunctions(ctx, b.ID)
	if err != nil {
		t.Fatalf("ReadFunctions() failed: %v", err)
	}
	var got []string
	for _, f := range funcs {
		got = append(got, f.Name+string(rune('0'+f.Arity)))
	}
	want := []string{"B2", "a1", "a2", "b1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order = %v, want %v", got, want)
			break
		}
	}
}
