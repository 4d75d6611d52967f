package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/osiris/internal/compiler"
	"github.com/roach88/osiris/internal/story"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WriteBuild inserts a build record and returns it with ID, Seq and
// CreatedAt filled in. An ID or CreatedAt already set is kept.
func (s *Store) WriteBuild(ctx context.Context, b Build) (Build, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Build{}, fmt.Errorf("write build: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	b, err = s.insertBuild(ctx, tx, b)
	if err != nil {
		return Build{}, err
	}

	if err := tx.Commit(); err != nil {
		return Build{}, fmt.Errorf("write build: commit: %w", err)
	}
	return b, nil
}

// WriteDiagnostics stores the diagnostics of a build in report order.
//
// Note: The build must exist (foreign key constraint).
func (s *Store) WriteDiagnostics(ctx context.Context, buildID string, diags []compiler.Diagnostic) error {
	return s.inTx(ctx, "write diagnostics", func(tx *sql.Tx) error {
		return insertDiagnostics(ctx, tx, buildID, diags)
	})
}

// WriteStorySummary stores the goals, functions and nodes of an emitted
// story.
//
// Note: The build must exist (foreign key constraint).
func (s *Store) WriteStorySummary(ctx context.Context, buildID string, st *story.Story) error {
	return s.inTx(ctx, "write story summary", func(tx *sql.Tx) error {
		return insertStorySummary(ctx, tx, buildID, st)
	})
}

// RecordBuild atomically writes a build with its diagnostics and, when st
// is non-nil, its story summary.
func (s *Store) RecordBuild(ctx context.Context, b Build, diags []compiler.Diagnostic, st *story.Story) (Build, error) {
	err := s.inTx(ctx, "record build", func(tx *sql.Tx) error {
		var err error
		if b, err = s.insertBuild(ctx, tx, b); err != nil {
			return err
		}
		if err := insertDiagnostics(ctx, tx, b.ID, diags); err != nil {
			return err
		}
		if st != nil {
			return insertStorySummary(ctx, tx, b.ID, st)
		}
		return nil
	})
	if err != nil {
		return Build{}, err
	}
	return b, nil
}

// DeleteBuild removes a build and its child rows. Deleting a missing
// build is not an error.
func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete build: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func (s *Store) insertBuild(ctx context.Context, ex execer, b Build) (Build, error) {
	if b.ID == "" {
		b.ID = s.newID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}

	if err := ex.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM builds`).Scan(&b.Seq); err != nil {
		return Build{}, fmt.Errorf("write build: next seq: %w", err)
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO builds
		(id, seq, project_dir, target, created_at, fingerprint,
		 goal_count, error_count, warning_count, passes, succeeded, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.Seq,
		b.ProjectDir,
		b.Target,
		formatTime(b.CreatedAt),
		b.Fingerprint,
		b.Goals,
		b.Errors,
		b.Warnings,
		b.Passes,
		b.Succeeded,
		b.Duration.Milliseconds(),
	)
	if err != nil {
		return Build{}, fmt.Errorf("write build: %w", err)
	}
	return b, nil
}

func insertDiagnostics(ctx context.Context, ex execer, buildID string, diags []compiler.Diagnostic) error {
	for i, d := range diags {
		var file string
		var line, col int
		if d.Location != nil {
			file, line, col = d.Location.File, d.Location.StartLine, d.Location.StartColumn
		}

		_, err := ex.ExecContext(ctx, `
			INSERT INTO diagnostics
			(build_id, idx, level, code, message, file, line, col)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, buildID, i, d.Level.String(), d.Code, d.Message, file, line, col)
		if err != nil {
			return fmt.Errorf("write diagnostic %d: %w", i, err)
		}
	}
	return nil
}

func insertStorySummary(ctx context.Context, ex execer, buildID string, st *story.Story) error {
	for _, g := range st.Goals {
		parents, err := marshalGoalRefs(g.ParentGoals)
		if err != nil {
			return err
		}
		_, err = ex.ExecContext(ctx, `
			INSERT INTO goals
			(build_id, goal_index, name, parents, init_calls, exit_calls)
			VALUES (?, ?, ?, ?, ?, ?)
		`, buildID, uint32(g.Index), g.Name, parents, len(g.InitCalls), len(g.ExitCalls))
		if err != nil {
			return fmt.Errorf("write goal %s: %w", g.Name, err)
		}
	}

	for _, f := range st.Functions {
		_, err := ex.ExecContext(ctx, `
			INSERT INTO functions
			(build_id, name, arity, type, node_index, condition_refs, action_refs)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, buildID, f.Signature.Name, len(f.Signature.ParamTypes), f.Type.String(),
			uint32(f.Node), f.ConditionReferences, f.ActionReferences)
		if err != nil {
			return fmt.Errorf("write function %s: %w", f.Key(), err)
		}
	}

	for _, n := range st.Nodes {
		b := n.Base()
		_, err := ex.ExecContext(ctx, `
			INSERT INTO story_nodes
			(build_id, node_index, type, name, arity, database_index)
			VALUES (?, ?, ?, ?, ?, ?)
		`, buildID, uint32(b.Index), n.Type().String(), b.Name, b.NumParams, uint32(b.Database))
		if err != nil {
			return fmt.Errorf("write node %d: %w", b.Index, err)
		}
	}
	return nil
}
