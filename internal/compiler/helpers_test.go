package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/osiris/internal/ast"
	"github.com/roach88/osiris/internal/ir"
	"github.com/roach88/osiris/internal/testutil"
)

// newTestCompiler returns a compiler whose context holds testutil.HeaderYAML.
func newTestCompiler(t *testing.T, opts ...CompilerOption) *Compiler {
	t.Helper()

	h, err := ast.DecodeHeader("story_header.yaml", []byte(testutil.HeaderYAML))
	require.NoError(t, err)

	ctx := NewCompilationContext(NewCompilationLog())
	NewHeaderLoader(ctx).LoadHeader(h)
	require.Empty(t, ctx.Log.Diagnostics, "test header should load cleanly")

	return New(ctx, opts...)
}

// addGoal decodes a YAML goal document, generates its IR and adds it.
func addGoal(t *testing.T, c *Compiler, name, doc string) *ir.Goal {
	t.Helper()

	g, err := ast.DecodeGoal("goals/"+name+".yaml", []byte(doc))
	require.NoError(t, err)

	goal := NewIRGenerator(c.Context).GenerateGoalIR(g)
	c.AddGoal(goal)
	return goal
}

// addUncheckedGoal decodes a goal without structural validation, so IR
// shapes the decoder rejects can still reach the verifier.
func addUncheckedGoal(t *testing.T, c *Compiler, name, doc string) *ir.Goal {
	t.Helper()

	g := &ast.Goal{Name: name, File: "goals/" + name + ".yaml"}
	require.NoError(t, ast.Decode(g.File, []byte(doc), g))

	goal := NewIRGenerator(c.Context).GenerateGoalIR(g)
	c.AddGoal(goal)
	return goal
}

// compileGoal compiles a single goal named Test and returns the compiler.
func compileGoal(t *testing.T, doc string, opts ...CompilerOption) *Compiler {
	t.Helper()

	c := newTestCompiler(t, opts...)
	addGoal(t, c, "Test", doc)
	c.Compile()
	return c
}

func signature(t *testing.T, c *Compiler, name string) *ir.FunctionSignature {
	t.Helper()

	sig := c.Context.LookupSignature(mustName(t, name))
	require.NotNil(t, sig, "signature %s should be registered", name)
	return sig
}

func mustName(t *testing.T, s string) ir.FunctionNameAndArity {
	t.Helper()

	n, err := ir.ParseFunctionNameAndArity(s)
	require.NoError(t, err)
	return n
}

func messages(c *Compiler) []string {
	out := make([]string, len(c.Context.Log.Diagnostics))
	for i, d := range c.Context.Log.Diagnostics {
		out[i] = d.Message
	}
	return out
}
