package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/osiris/internal/build"
	"github.com/roach88/osiris/internal/compiler"
)

// ExpectationError is a failed expectation. It carries the diagnostics of
// the run to help debug the failure.
type ExpectationError struct {
	Field       string
	Expected    string
	Actual      string
	Diagnostics []compiler.Diagnostic
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Diagnostics) > 0 {
		fmt.Fprintf(&buf, "\nDiagnostics:\n")
		for i, d := range e.Diagnostics {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, d.Error())
		}
	}

	return buf.String()
}

// CheckExpectation compares a compile result against an expectation and
// returns one error per mismatch.
func CheckExpectation(res *build.Result, want Expectation) []error {
	var errs []error
	fail := func(field, expected, actual string) {
		errs = append(errs, &ExpectationError{
			Field:       field,
			Expected:    expected,
			Actual:      actual,
			Diagnostics: res.Diagnostics,
		})
	}

	if got, want := sortedCodes(res.Errors()), sorted(want.Errors); !slices.Equal(got, want) {
		fail("errors", formatList(want), formatList(got))
	}
	if got, want := sortedCodes(res.Warnings()), sorted(want.Warnings); !slices.Equal(got, want) {
		fail("warnings", formatList(want), formatList(got))
	}

	needsStory := want.Nodes != nil || want.Databases != nil || len(want.Goals) > 0 || len(want.Functions) > 0
	if !needsStory {
		return errs
	}
	if res.Story == nil {
		fail("story", "an emitted story", "no story (compile reported errors or was check-only)")
		return errs
	}

	if want.Nodes != nil && len(res.Story.Nodes) != *want.Nodes {
		fail("nodes", fmt.Sprintf("%d nodes", *want.Nodes), fmt.Sprintf("%d nodes", len(res.Story.Nodes)))
	}
	if want.Databases != nil && len(res.Story.Databases) != *want.Databases {
		fail("databases", fmt.Sprintf("%d databases", *want.Databases), fmt.Sprintf("%d databases", len(res.Story.Databases)))
	}
	if len(want.Goals) > 0 {
		got := make([]string, len(res.Story.Goals))
		for i, g := range res.Story.Goals {
			got[i] = g.Name
		}
		if !slices.Equal(got, want.Goals) {
			fail("goals", formatList(want.Goals), formatList(got))
		}
	}
	for _, key := range want.Functions {
		if _, ok := res.Story.FunctionSignatureMap[key]; !ok {
			fail("functions", fmt.Sprintf("function %s in the function table", key), "not found")
		}
	}

	return errs
}

func sortedCodes(diags []compiler.Diagnostic) []string {
	codes := make([]string, len(diags))
	for i, d := range diags {
		codes[i] = d.Code
	}
	slices.Sort(codes)
	return codes
}

func sorted(values []string) []string {
	out := append([]string{}, values...)
	slices.Sort(out)
	return out
}

func formatList(values []string) string {
	return "[" + strings.Join(values, " ") + "]"
}
