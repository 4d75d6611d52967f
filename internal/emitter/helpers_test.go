package emitter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/osiris/internal/ast"
	"github.com/roach88/osiris/internal/compiler"
	"github.com/roach88/osiris/internal/story"
	"github.com/roach88/osiris/internal/testutil"
)

// goalDoc is a named YAML goal document.
type goalDoc struct {
	name string
	doc  string
}

// compileGoals compiles docs in order against testutil.HeaderYAML and
// requires a clean compile.
func compileGoals(t *testing.T, docs ...goalDoc) *compiler.CompilationContext {
	t.Helper()

	ctx := compileGoalsWith(t, nil, docs...)
	require.False(t, ctx.Log.HasErrors, "compile errors: %v", ctx.Log.Codes())
	return ctx
}

// compileGoalsWith compiles docs with the given compiler options and leaves
// any diagnostics in the log.
func compileGoalsWith(t *testing.T, opts []compiler.CompilerOption, docs ...goalDoc) *compiler.CompilationContext {
	t.Helper()

	h, err := ast.DecodeHeader("story_header.yaml", []byte(testutil.HeaderYAML))
	require.NoError(t, err)

	ctx := compiler.NewCompilationContext(compiler.NewCompilationLog())
	compiler.NewHeaderLoader(ctx).LoadHeader(h)

	c := compiler.New(ctx, opts...)
	gen := compiler.NewIRGenerator(ctx)
	for _, d := range docs {
		g, err := ast.DecodeGoal("goals/"+d.name+".yaml", []byte(d.doc))
		require.NoError(t, err)
		c.AddGoal(gen.GenerateGoalIR(g))
	}

	c.Compile()
	return ctx
}

// emitGoals compiles docs and emits the story.
func emitGoals(t *testing.T, opts []Option, docs ...goalDoc) (*Emitter, *story.Story) {
	t.Helper()

	e := New(compileGoals(t, docs...), opts...)
	s, err := e.EmitStory()
	require.NoError(t, err)
	return e, s
}

func dump(t *testing.T, s *story.Story) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, story.Dump(&buf, s))
	return buf.Bytes()
}

// =============================================================================
// Goal Fixtures
// =============================================================================

const counterGoal = testutil.CounterGoalYAML

const mainGoal = `
init:
  - database: DB_Score
    elements: [{string: "alice"}, {int: 5}]
kb:
  - type: if
    conditions:
      - func: DB_Score
        params: [{var: _Player}, {var: _Points}]
      - lvalue: {var: _Points}
        op: ">"
        rvalue: {int: 3}
    actions:
      - func: PROC_Reward
        params: [{var: _Player}]
  - type: proc
    conditions:
      - func: PROC_Reward
        params: [{var: _Who, type: STRING}]
    actions:
      - func: DebugBreak
        params: [{var: _Who}]
      - goal_completed: true
exit:
  - database: DB_Score
    not: true
    elements: [{string: "alice"}, {int: 5}]
`

const subGoal = `
init:
  - goal_completed: true
parents:
  - goal: Main
`

const queryGoal = `
init:
  - database: DB_Owner
    elements: [{string: "sword"}, {string: "alice"}]
  - database: DB_Banned
    elements: [{string: "bob"}]
kb:
  - type: query
    conditions:
      - func: QRY_CanUse
        params: [{var: _Player, type: STRING}]
      - func: DB_Banned
        not: true
        params: [{var: _Player}]
  - type: if
    conditions:
      - func: DB_Owner
        params: [{var: _Item}, {var: _Player}]
      - func: DB_Banned
        params: [{var: _Player}]
    actions:
      - func: DB_Owner
        not: true
        params: [{var: _Item}, {var: _Player}]
  - type: if
    conditions:
      - func: TextEvent
        params: [{var: _Evt}]
      - func: DB_Owner
        params: [{var: _Item}, {var: _}]
      - func: QRY_CanUse
        params: [{string: "alice"}]
    actions:
      - func: DebugBreak
        params: [{var: _Item}]
`
