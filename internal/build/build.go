// Package build drives a full compilation: it loads a story project, runs
// the compiler phases in order and emits the story graph.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/osiris/internal/ast"
	"github.com/roach88/osiris/internal/compiler"
	"github.com/roach88/osiris/internal/config"
	"github.com/roach88/osiris/internal/emitter"
	"github.com/roach88/osiris/internal/story"
)

// Options configures a build.
type Options struct {
	// Config is the compiler configuration. Nil means config.Default().
	Config *config.Config
	// CheckOnly stops after verification.
	CheckOnly bool
}

// Result is the outcome of a build. Story is nil when compilation failed or
// CheckOnly was set.
type Result struct {
	Story       *story.Story
	DebugInfo   *story.DebugInfo
	Fingerprint string
	Diagnostics []compiler.Diagnostic
	Goals       []string
	Passes      int
	HasErrors   bool
	Duration    time.Duration
}

// Errors returns the error-level diagnostics.
func (r *Result) Errors() []compiler.Diagnostic {
	return filterLevel(r.Diagnostics, compiler.LevelError)
}

// Warnings returns the warning-level diagnostics.
func (r *Result) Warnings() []compiler.Diagnostic {
	return filterLevel(r.Diagnostics, compiler.LevelWarning)
}

func filterLevel(diags []compiler.Diagnostic, level compiler.Level) []compiler.Diagnostic {
	out := []compiler.Diagnostic{}
	for _, d := range diags {
		if d.Level == level {
			out = append(out, d)
		}
	}
	return out
}

// Run loads the project in dir and compiles it.
func Run(ctx context.Context, dir string, opts Options) (*Result, error) {
	p, err := LoadProject(dir)
	if err != nil {
		return nil, err
	}
	return Compile(ctx, p, opts)
}

// Compile compiles a loaded project. Compiler findings are returned in the
// result; the error is reserved for invalid input, cancellation and
// emitter failures.
func Compile(ctx context.Context, p *Project, opts Options) (*Result, error) {
	start := time.Now()

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	compilerOpts, err := cfg.CompilerOptions()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log := compiler.NewCompilationLog()
	if err := cfg.ApplyWarnings(log); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cctx := compiler.NewCompilationContext(log)

	compiler.NewHeaderLoader(cctx).LoadHeader(p.Header)
	if err := loadObjects(cctx, p.Objects); err != nil {
		return nil, err
	}
	slog.Debug("header loaded",
		"types", len(cctx.Types()),
		"functions", len(cctx.Signatures()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := compiler.New(cctx, compilerOpts...)
	gen := compiler.NewIRGenerator(cctx)
	for _, g := range p.Goals {
		c.AddGoal(gen.GenerateGoalIR(g))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Goals: make([]string, 0, len(p.Goals))}
	for _, g := range cctx.Goals() {
		res.Goals = append(res.Goals, g.Name)
	}

	res.Passes = c.PropagateTypes()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.VerifyIR()

	res.Diagnostics = log.Diagnostics
	res.HasErrors = log.HasErrors

	if !res.HasErrors && !opts.CheckOnly {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := emitter.New(cctx, emitter.WithDebugInfo(cfg.DebugInfo))
		s, err := e.EmitStory()
		if err != nil {
			return nil, fmt.Errorf("emit story: %w", err)
		}
		res.Story = s
		res.DebugInfo = e.DebugInfo()
		if res.Fingerprint, err = story.Fingerprint(s); err != nil {
			return nil, fmt.Errorf("fingerprint story: %w", err)
		}
	}

	res.Duration = time.Since(start)
	slog.Debug("build finished",
		"goals", len(res.Goals),
		"passes", res.Passes,
		"diagnostics", len(res.Diagnostics),
		"errors", res.HasErrors,
		"duration", res.Duration)
	return res, nil
}

// loadObjects registers the game-object table. Object types must name a
// header type.
func loadObjects(cctx *compiler.CompilationContext, table *ast.ObjectTable) error {
	if table == nil {
		return nil
	}
	for _, obj := range table.Objects {
		typ := cctx.LookupType(obj.Type)
		if typ == nil {
			return fmt.Errorf("game object %s: unknown type %q", obj.Name, obj.Type)
		}
		if err := cctx.RegisterGameObject(obj.GUID, obj.Name, typ); err != nil {
			return err
		}
	}
	return nil
}

// WriteStory writes the story of res as JSON to path, creating parent
// directories. Debug info is included when the build collected it.
func WriteStory(path string, res *Result) error {
	if res.Story == nil {
		return fmt.Errorf("no story to write")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := story.ExportJSON(f, res.Story, res.DebugInfo); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
