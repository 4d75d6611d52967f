package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const buildColumns = `id, seq, project_dir, target, created_at, fingerprint,
	goal_count, error_count, warning_count, passes, succeeded, duration_ms`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadBuild returns the build with the given ID.
// Returns sql.ErrNoRows if no build exists.
func (s *Store) ReadBuild(ctx context.Context, id string) (Build, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Build{}, err
		}
		return Build{}, fmt.Errorf("read build %s: %w", id, err)
	}
	return b, nil
}

// LatestBuild returns the most recent build of a project directory.
// Returns sql.ErrNoRows if the project has no builds.
func (s *Store) LatestBuild(ctx context.Context, projectDir string) (Build, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+buildColumns+` FROM builds
		WHERE project_dir = ?
		ORDER BY seq DESC
		LIMIT 1
	`, projectDir)
	b, err := scanBuild(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Build{}, err
		}
		return Build{}, fmt.Errorf("latest build: %w", err)
	}
	return b, nil
}

// ListBuilds returns builds newest first. An empty projectDir lists every
// project. A limit of zero or less returns all builds.
//
// Returns an empty slice (not nil) if no builds exist.
func (s *Store) ListBuilds(ctx context.Context, projectDir string, limit int) ([]Build, error) {
	query := `SELECT ` + buildColumns + ` FROM builds`
	var args []any
	if projectDir != "" {
		query += ` WHERE project_dir = ?`
		args = append(args, projectDir)
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// ReadDiagnostics returns the diagnostics of a build in report order.
func (s *Store) ReadDiagnostics(ctx context.Context, buildID string) ([]DiagnosticRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, level, code, message, file, line, col
		FROM diagnostics
		WHERE build_id = ?
		ORDER BY idx ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []DiagnosticRecord{}
	for rows.Next() {
		var d DiagnosticRecord
		if err := rows.Scan(&d.Index, &d.Level, &d.Code, &d.Message, &d.File, &d.Line, &d.Column); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, nil
}

// ReadGoals returns the goals of a build ordered by goal index.
func (s *Store) ReadGoals(ctx context.Context, buildID string) ([]GoalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT goal_index, name, parents, init_calls, exit_calls
		FROM goals
		WHERE build_id = ?
		ORDER BY goal_index ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	goals := []GoalRecord{}
	for rows.Next() {
		var g GoalRecord
		var parents string
		if err := rows.Scan(&g.Index, &g.Name, &parents, &g.InitCalls, &g.ExitCalls); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.Parents, err = unmarshalGoalRefs(parents); err != nil {
			return nil, fmt.Errorf("goal %s: %w", g.Name, err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

// ReadFunctions returns the function table of a build ordered by name and
// arity. COLLATE BINARY keeps the order byte-wise.
func (s *Store) ReadFunctions(ctx context.Context, buildID string) ([]FunctionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, arity, type, node_index, condition_refs, action_refs
		FROM functions
		WHERE build_id = ?
		ORDER BY name COLLATE BINARY ASC, arity ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	funcs := []FunctionRecord{}
	for rows.Next() {
		var f FunctionRecord
		if err := rows.Scan(&f.Name, &f.Arity, &f.Type, &f.Node, &f.ConditionRefs, &f.ActionRefs); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		funcs = append(funcs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate functions: %w", err)
	}
	return funcs, nil
}

// ReadNodes returns the nodes of a build ordered by node index.
func (s *Store) ReadNodes(ctx context.Context, buildID string) ([]NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_index, type, name, arity, database_index
		FROM story_nodes
		WHERE build_id = ?
		ORDER BY node_index ASC
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []NodeRecord{}
	for rows.Next() {
		var n NodeRecord
		if err := rows.Scan(&n.Index, &n.Type, &n.Name, &n.Arity, &n.Database); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func scanBuild(row rowScanner) (Build, error) {
	var b Build
	var createdAt string
	var durationMS int64
	err := row.Scan(
		&b.ID,
		&b.Seq,
		&b.ProjectDir,
		&b.Target,
		&createdAt,
		&b.Fingerprint,
		&b.Goals,
		&b.Errors,
		&b.Warnings,
		&b.Passes,
		&b.Succeeded,
		&durationMS,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Build{}, err
		}
		return Build{}, fmt.Errorf("scan build: %w", err)
	}

	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return Build{}, err
	}
	b.Duration = time.Duration(durationMS) * time.Millisecond
	return b, nil
}
