package cli

import (
	"context"
	"fmt"

	"github.com/roach88/osiris/internal/build"
	"github.com/roach88/osiris/internal/store"
)

// recordBuild stores a build result in the SQLite store at path. The
// project directory is recorded as given so later queries can match it.
func recordBuild(ctx context.Context, path, projectDir, target string, res *build.Result) (store.Build, error) {
	st, err := store.Open(path)
	if err != nil {
		return store.Build{}, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	b := store.Build{
		ProjectDir:  projectDir,
		Target:      target,
		Fingerprint: res.Fingerprint,
		Goals:       len(res.Goals),
		Errors:      len(res.Errors()),
		Warnings:    len(res.Warnings()),
		Passes:      res.Passes,
		Succeeded:   !res.HasErrors,
		Duration:    res.Duration,
	}
	return st.RecordBuild(ctx, b, res.Diagnostics, res.Story)
}
