package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/osiris/internal/build"
	"github.com/roach88/osiris/internal/testutil"
)

// createTestStore creates a store in a temporary directory with a
// deterministic clock and ID generator.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithClock(testutil.NewDeterministicClock().Now),
		WithIDGenerator(testutil.NewSequenceIDGenerator("store-test").Generate),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// compileProject compiles a project holding the given goal files.
func compileProject(t *testing.T, goals map[string]string) (string, *build.Result) {
	t.Helper()
	dir := testutil.NewProject(t, goals)
	res, err := build.Run(context.Background(), dir, build.Options{})
	if err != nil {
		t.Fatalf("build.Run() failed: %v", err)
	}
	return dir, res
}

// createTestBuild returns a build record summarizing res.
func createTestBuild(dir string, res *build.Result) Build {
	return Build{
		ProjectDir:  dir,
		Target:      "dos2de",
		Fingerprint: res.Fingerprint,
		Goals:       len(res.Goals),
		Errors:      len(res.Errors()),
		Warnings:    len(res.Warnings()),
		Passes:      res.Passes,
		Succeeded:   !res.HasErrors,
		Duration:    res.Duration,
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
