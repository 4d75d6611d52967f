package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/osiris/internal/build"
	"github.com/roach88/osiris/internal/compiler"
)

// CompileOptions holds flags for the compile and check commands.
type CompileOptions struct {
	*RootOptions
	ConfigFlags
	Output    string // output file path
	StorePath string // build store, empty to skip recording
	checkOnly bool
}

// CompileSummary is the JSON payload of a compile or check run.
type CompileSummary struct {
	Project     string                `json:"project"`
	Target      string                `json:"target"`
	Goals       []string              `json:"goals"`
	Nodes       int                   `json:"nodes"`
	Functions   int                   `json:"functions"`
	Databases   int                   `json:"databases"`
	Passes      int                   `json:"passes"`
	Fingerprint string                `json:"fingerprint,omitempty"`
	Output      string                `json:"output,omitempty"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <project-dir>",
		Short: "Compile a story project to a story file",
		Long: `Compile the goals of a story project against its header.

Diagnostics are printed with their source positions. When compilation
succeeds the story graph is written as JSON to the configured output
path, story.json in the project directory by default.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	addCompileFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "story output path (default from config)")
	cmd.Flags().BoolVar(&opts.DebugInfo, "debug-info", false, "include debug info in the story file")

	return cmd
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts, checkOnly: true}

	cmd := &cobra.Command{
		Use:   "check <project-dir>",
		Short: "Type-check a story project without emitting",
		Long: `Run type propagation and verification over a story project and
report diagnostics. No story file is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	addCompileFlags(cmd, opts)
	return cmd
}

func addCompileFlags(cmd *cobra.Command, opts *CompileOptions) {
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (default <project-dir>/osiris.yaml)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "target game (dos2|dos2de|bg3)")
	cmd.Flags().StringArrayVarP(&opts.Warnings, "warning", "W", nil, "enable or disable a warning (name=on|off)")
	cmd.Flags().StringVar(&opts.StorePath, "store", "", "record the build in this SQLite store")
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	cfg, err := LoadConfig(dir, opts.ConfigFlags)
	if err != nil {
		return outputCommandError(formatter, classifyError(err))
	}
	formatter.VerboseLog("Target %s, %d warning override(s)", cfg.Target, len(cfg.Warnings))

	res, err := build.Run(ctx, dir, build.Options{Config: cfg, CheckOnly: opts.checkOnly})
	if err != nil {
		return outputCommandError(formatter, classifyError(err))
	}
	formatter.VerboseLog("Compiled %s in %s (%d propagation pass(es))",
		plural(len(res.Goals), "goal"), res.Duration, res.Passes)

	summary := newCompileSummary(dir, cfg.Target, res)

	if res.Story != nil {
		summary.Output = opts.Output
		if summary.Output == "" {
			summary.Output = cfg.Output
			if !filepath.IsAbs(summary.Output) {
				summary.Output = filepath.Join(dir, summary.Output)
			}
		}
		if err := build.WriteStory(summary.Output, res); err != nil {
			return outputCommandError(formatter, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error(), Err: err})
		}
		formatter.VerboseLog("Wrote story to %s", summary.Output)
	}

	var buildID string
	if opts.StorePath != "" {
		b, err := recordBuild(ctx, opts.StorePath, dir, cfg.Target, res)
		if err != nil {
			return outputCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
		}
		buildID = b.ID
		formatter.VerboseLog("Recorded build %s (#%d)", b.ID, b.Seq)
	}

	if res.HasErrors {
		return outputCompileFailure(formatter, summary, buildID)
	}
	return outputCompileSuccess(formatter, summary, buildID, opts.checkOnly)
}

func newCompileSummary(dir, target string, res *build.Result) CompileSummary {
	summary := CompileSummary{
		Project:     dir,
		Target:      target,
		Goals:       res.Goals,
		Passes:      res.Passes,
		Fingerprint: res.Fingerprint,
		Diagnostics: res.Diagnostics,
	}
	if summary.Diagnostics == nil {
		summary.Diagnostics = []compiler.Diagnostic{}
	}
	if res.Story != nil {
		summary.Nodes = len(res.Story.Nodes)
		summary.Functions = len(res.Story.Functions)
		summary.Databases = len(res.Story.Databases)
	}
	return summary
}

// outputCompileSuccess outputs a successful compile or check.
func outputCompileSuccess(formatter *OutputFormatter, summary CompileSummary, buildID string, checkOnly bool) error {
	if formatter.Format == "json" {
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status:  "ok",
			Data:    summary,
			BuildID: buildID,
		})
	}

	// Human-readable text output
	formatter.WriteDiagnostics(summary.Diagnostics)
	if checkOnly {
		fmt.Fprintf(formatter.Writer, "✓ Checked %s, %s\n",
			plural(len(summary.Goals), "goal"), plural(len(summary.Diagnostics), "warning"))
	} else {
		fmt.Fprintf(formatter.Writer, "✓ Compiled %s: %s, %s, %s\n",
			plural(len(summary.Goals), "goal"),
			plural(summary.Nodes, "node"),
			plural(summary.Functions, "function"),
			plural(summary.Databases, "database"))
	}
	if summary.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote story to %s\n", summary.Output)
	}
	if buildID != "" {
		fmt.Fprintf(formatter.Writer, "Recorded build %s\n", buildID)
	}
	return nil
}

// outputCompileFailure reports a compile with error diagnostics.
func outputCompileFailure(formatter *OutputFormatter, summary CompileSummary, buildID string) error {
	errorCount := 0
	for _, d := range summary.Diagnostics {
		if d.Level == compiler.LevelError {
			errorCount++
		}
	}
	message := fmt.Sprintf("compilation failed with %s", plural(errorCount, "error"))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    ErrCodeCompile,
				Message: message,
				Details: summary.Diagnostics,
			},
			BuildID: buildID,
		}
		if err := json.NewEncoder(formatter.Writer).Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	formatter.WriteDiagnostics(summary.Diagnostics)
	if buildID != "" {
		fmt.Fprintf(formatter.Writer, "Recorded build %s\n", buildID)
	}
	return NewExitError(ExitFailure, message)
}

// outputCommandError outputs a command-level error.
func outputCommandError(formatter *OutputFormatter, err *LoadError) error {
	_ = formatter.Error(err.Code, err.Message, nil)
	return WrapExitError(ExitCommandError, err.Code, err.Err)
}
