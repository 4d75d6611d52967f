package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/osiris/internal/build"
	"github.com/roach88/osiris/internal/compiler"
	"github.com/roach88/osiris/internal/ir"
	"github.com/roach88/osiris/internal/story"
)

func diag(level compiler.Level, code string) compiler.Diagnostic {
	return compiler.Diagnostic{Level: level, Code: code, Message: code + " message"}
}

func TestExpectationErrorFormat(t *testing.T) {
	err := &ExpectationError{
		Field:    "errors",
		Expected: "[]",
		Actual:   "[E11]",
		Diagnostics: []compiler.Diagnostic{{
			Location: &ir.CodeLocation{File: "goals/A.yaml", StartLine: 3, StartColumn: 7},
			Level:    compiler.LevelError,
			Code:     "E11",
			Message:  "mismatch",
		}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Expectation failed: errors\n")
	assert.Contains(t, msg, "  Expected: []\n")
	assert.Contains(t, msg, "  Actual: [E11]\n")
	assert.Contains(t, msg, "Diagnostics:\n  [1] [E11]")
	assert.Contains(t, msg, "mismatch")
}

func TestExpectationErrorWithoutDiagnostics(t *testing.T) {
	err := &ExpectationError{Field: "nodes", Expected: "1 nodes", Actual: "2 nodes"}
	assert.NotContains(t, err.Error(), "Diagnostics")
}

func TestCheckExpectationCodesIgnoreOrder(t *testing.T) {
	res := &build.Result{Diagnostics: []compiler.Diagnostic{
		diag(compiler.LevelWarning, "W26"),
		diag(compiler.LevelError, "E11"),
		diag(compiler.LevelWarning, "W20"),
		diag(compiler.LevelError, "E11"),
	}}

	errs := CheckExpectation(res, Expectation{
		Errors:   []string{"E11", "E11"},
		Warnings: []string{"W20", "W26"},
	})
	assert.Empty(t, errs)
}

func TestCheckExpectationCountsDuplicates(t *testing.T) {
	res := &build.Result{Diagnostics: []compiler.Diagnostic{
		diag(compiler.LevelError, "E11"),
		diag(compiler.LevelError, "E11"),
	}}

	errs := CheckExpectation(res, Expectation{Errors: []string{"E11"}})
	require.Len(t, errs, 1)

	var expErr *ExpectationError
	require.ErrorAs(t, errs[0], &expErr)
	assert.Equal(t, "errors", expErr.Field)
	assert.Equal(t, "[E11]", expErr.Expected)
	assert.Equal(t, "[E11 E11]", expErr.Actual)
}

func TestCheckExpectationOmittedCodesExpectNone(t *testing.T) {
	res := &build.Result{Diagnostics: []compiler.Diagnostic{diag(compiler.LevelWarning, "W25")}}

	errs := CheckExpectation(res, Expectation{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "warnings")
}

func TestCheckExpectationStoryShape(t *testing.T) {
	s := story.New()
	s.Goals = []*story.Goal{{Index: 1, Name: "A"}, {Index: 2, Name: "B"}}
	s.FunctionSignatureMap["DB_X/1"] = &story.Function{}
	res := &build.Result{Story: s, Diagnostics: []compiler.Diagnostic{}}

	assert.Empty(t, CheckExpectation(res, Expectation{
		Nodes:     intPtr(0),
		Databases: intPtr(0),
		Goals:     []string{"A", "B"},
		Functions: []string{"DB_X/1"},
	}))

	errs := CheckExpectation(res, Expectation{Goals: []string{"B", "A"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "Expected: [B A]")
}
