package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/osiris/internal/store"
)

// BuildsOptions holds flags for the builds command.
type BuildsOptions struct {
	*RootOptions
	StorePath string
	Project   string
	Limit     int
	Compare   bool
}

// BuildDetail is the JSON payload of a single build.
type BuildDetail struct {
	Build       store.Build              `json:"build"`
	Diagnostics []store.DiagnosticRecord `json:"diagnostics"`
}

// NewBuildsCommand creates the builds command.
func NewBuildsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "builds [build-id] | --compare <from-id> <to-id>",
		Short: "Inspect recorded builds",
		Long: `Inspect builds recorded with compile --store.

Without arguments the builds are listed newest first. With a build ID the
build and its diagnostics are shown. With --compare the diagnostic codes
and goals of two builds are compared.

Examples:
  osiris builds --store osiris.db
  osiris builds --store osiris.db --project ./mod --limit 5
  osiris builds --store osiris.db 0190a1b2-...
  osiris builds --store osiris.db --compare <from-id> <to-id>`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.Compare {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.MaximumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuilds(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.StorePath, "store", "", "SQLite build store (required)")
	cmd.Flags().StringVar(&opts.Project, "project", "", "only list builds of this project directory")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum builds to list (0 for all)")
	cmd.Flags().BoolVar(&opts.Compare, "compare", false, "compare two builds")

	return cmd
}

func runBuilds(opts *BuildsOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.StorePath == "" {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeConfig, Message: "--store is required"})
	}
	if _, err := os.Stat(opts.StorePath); err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeNotFound, Message: err.Error(), Err: err})
	}

	st, err := store.Open(opts.StorePath)
	if err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
	}
	defer st.Close()

	switch {
	case opts.Compare:
		return showComparison(formatter, st, args[0], args[1], cmd)
	case len(args) == 1:
		return showBuild(formatter, st, args[0], cmd)
	default:
		return listBuilds(formatter, st, opts, cmd)
	}
}

func listBuilds(formatter *OutputFormatter, st *store.Store, opts *BuildsOptions, cmd *cobra.Command) error {
	builds, err := st.ListBuilds(cmd.Context(), opts.Project, opts.Limit)
	if err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
	}

	if formatter.Format == "json" {
		return formatter.Success(builds)
	}
	if len(builds) == 0 {
		fmt.Fprintln(formatter.Writer, "No builds recorded.")
		return nil
	}
	for _, b := range builds {
		fmt.Fprintln(formatter.Writer, formatBuildLine(b))
	}
	return nil
}

func showBuild(formatter *OutputFormatter, st *store.Store, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	b, err := st.ReadBuild(ctx, id)
	if err != nil {
		return outputBuildLookupError(formatter, id, err)
	}
	diags, err := st.ReadDiagnostics(ctx, id)
	if err != nil {
		return outputCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
	}

	if formatter.Format == "json" {
		return formatter.Success(BuildDetail{Build: b, Diagnostics: diags})
	}

	fmt.Fprintln(formatter.Writer, formatBuildLine(b))
	fmt.Fprintf(formatter.Writer, "  project:     %s\n", b.ProjectDir)
	fmt.Fprintf(formatter.Writer, "  fingerprint: %s\n", orNone(b.Fingerprint))
	fmt.Fprintf(formatter.Writer, "  passes:      %d\n", b.Passes)
	fmt.Fprintf(formatter.Writer, "  duration:    %s\n", b.Duration)
	if len(diags) == 0 {
		return nil
	}
	fmt.Fprintln(formatter.Writer)
	for _, d := range diags {
		if d.File != "" {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", d.File, d.Line, d.Column)
		}
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", d.Level, d.Code, d.Message)
	}
	return nil
}

func showComparison(formatter *OutputFormatter, st *store.Store, fromID, toID string, cmd *cobra.Command) error {
	diff, err := st.CompareBuilds(cmd.Context(), fromID, toID)
	if err != nil {
		return outputBuildLookupError(formatter, fromID+" or "+toID, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(diff)
	}

	fmt.Fprintf(formatter.Writer, "from %s\n", formatBuildLine(diff.From))
	fmt.Fprintf(formatter.Writer, "to   %s\n", formatBuildLine(diff.To))
	if diff.StoryChanged {
		fmt.Fprintln(formatter.Writer, "story changed")
	} else {
		fmt.Fprintln(formatter.Writer, "story unchanged")
	}
	printList(formatter, "new diagnostics", diff.NewCodes)
	printList(formatter, "fixed diagnostics", diff.FixedCodes)
	printList(formatter, "added goals", diff.AddedGoals)
	printList(formatter, "removed goals", diff.RemovedGoals)
	return nil
}

func outputBuildLookupError(formatter *OutputFormatter, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return outputCommandError(formatter, &LoadError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("build %s not found", id),
			Err:     err,
		})
	}
	return outputCommandError(formatter, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
}

// formatBuildLine renders a build as one line: sequence, status, ID, time
// and counts.
func formatBuildLine(b store.Build) string {
	mark := "✓"
	if !b.Succeeded {
		mark = "✗"
	}
	return fmt.Sprintf("#%d %s %s %s %s %s, %s, %s",
		b.Seq, mark, b.ID, b.CreatedAt.Format(time.RFC3339), b.Target,
		plural(b.Goals, "goal"), plural(b.Errors, "error"), plural(b.Warnings, "warning"))
}

func printList(formatter *OutputFormatter, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(formatter.Writer, "%s: %s\n", label, strings.Join(values, ", "))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
