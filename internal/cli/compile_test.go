package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/osiris/internal/testutil"
)

// =============================================================================
// compile
// =============================================================================

func TestCompile_WritesStory(t *testing.T) {
	dir := counterProject(t)

	out, err := executeCommand(t, "compile", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 1 goal: 6 nodes")
	assert.Contains(t, out, "1 database")

	storyPath := filepath.Join(dir, "story.json")
	assert.Contains(t, out, "Wrote story to "+storyPath)

	data, err := os.ReadFile(storyPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data), "story file must be JSON")
}

func TestCompile_OutputFlag(t *testing.T) {
	dir := counterProject(t)
	output := filepath.Join(t.TempDir(), "nested", "out.json")

	_, err := executeCommand(t, "compile", dir, "-o", output, "--debug-info")
	require.NoError(t, err)

	assert.FileExists(t, output)
	assert.NoFileExists(t, filepath.Join(dir, "story.json"))
}

func TestCompile_OutputFromConfig(t *testing.T) {
	dir := counterProject(t)
	testutil.WriteFiles(t, dir, map[string]string{
		"osiris.yaml": "output: build/story.json\n",
	})

	_, err := executeCommand(t, "compile", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "build", "story.json"))
}

func TestCompile_JSON(t *testing.T) {
	dir := counterProject(t)

	out, err := executeCommand(t, "compile", dir, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   CompileSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"Counter"}, resp.Data.Goals)
	assert.Equal(t, 6, resp.Data.Nodes)
	assert.Equal(t, 1, resp.Data.Databases)
	assert.Equal(t, "dos2de", resp.Data.Target)
	assert.NotEmpty(t, resp.Data.Fingerprint)
	assert.Empty(t, resp.Data.Diagnostics)
}

func TestCompile_CompileErrors(t *testing.T) {
	dir := brokenProject(t)

	out, err := executeCommand(t, "compile", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "error E11:")
	assert.NoFileExists(t, filepath.Join(dir, "story.json"))
}

func TestCompile_CompileErrorsJSON(t *testing.T) {
	dir := brokenProject(t)

	out, err := executeCommand(t, "compile", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCompile, resp.Error.Code)
	assert.Equal(t, "compilation failed with 1 error", resp.Error.Message)

	details, ok := resp.Error.Details.([]interface{})
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "E11", details[0].(map[string]interface{})["code"])
}

func TestCompile_CommandErrors(t *testing.T) {
	malformed := testutil.NewProject(t, map[string]string{
		"goals/Bad.yaml": "not_a_field: 1\n",
	})

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing project", []string{filepath.Join(t.TempDir(), "missing")}, ErrCodeNotFound},
		{"malformed goal", []string{malformed}, ErrCodeDecodeFailed},
		{"bad target", []string{counterProject(t), "--target", "skyrim"}, ErrCodeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, append([]string{"compile"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestCompile_RecordsBuild(t *testing.T) {
	dir := counterProject(t)
	storePath := filepath.Join(t.TempDir(), "osiris.db")

	out, err := executeCommand(t, "compile", dir, "--store", storePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded build ")

	out, err = executeCommand(t, "builds", "--store", storePath)
	require.NoError(t, err)
	assert.Contains(t, out, "#1 ✓")
}

func TestCompile_RecordsFailedBuild(t *testing.T) {
	dir := brokenProject(t)
	storePath := filepath.Join(t.TempDir(), "osiris.db")

	out, err := executeCommand(t, "compile", dir, "--store", storePath, "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.NotEmpty(t, resp.BuildID)

	out, err = executeCommand(t, "builds", "--store", storePath, resp.BuildID)
	require.NoError(t, err)
	assert.Contains(t, out, "#1 ✗")
	assert.Contains(t, out, "error E11:")
}

// =============================================================================
// check
// =============================================================================

func TestCheck_DoesNotWriteStory(t *testing.T) {
	dir := counterProject(t)

	out, err := executeCommand(t, "check", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Checked 1 goal, 0 warnings")
	assert.NoFileExists(t, filepath.Join(dir, "story.json"))
}

func TestCheck_ReportsErrors(t *testing.T) {
	dir := brokenProject(t)

	out, err := executeCommand(t, "check", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E11")
}

func TestCheck_HasNoOutputFlag(t *testing.T) {
	cmd := NewCheckCommand(&RootOptions{Format: "text"})
	assert.Nil(t, cmd.Flags().Lookup("output"))
	assert.NotNil(t, cmd.Flags().Lookup("warning"))
}
