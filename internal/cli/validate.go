package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engryamato/hvaccore/internal/validation"
)

// ValidateResult holds the outcome of validating a project.
type ValidateResult struct {
	Project    string                 `json:"project"`
	Entities   int                    `json:"entities"`
	Blockers   int                    `json:"blockers"`
	Warnings   int                    `json:"warnings"`
	Violations []validation.Violation `json:"violations"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <project.json>",
		Short: "Validate a project",
		Long: `Validate every entity of a project against the schema and check the
connection graph.

Schema violations (out-of-range dimensions, missing duct sizes, unknown
enum values) are blockers. Overloaded equipment, connection loops and
connections to missing entities are warnings.

Exit codes:
  0 - No blockers (warnings allowed)
  1 - One or more blockers
  2 - Command error (unreadable project, bad config)

Examples:
  hvaccore validate ./project.json
  hvaccore validate ./project.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd, cfg)

	st, err := readProject(path)
	if err != nil {
		return err
	}
	es := loadCanvas(cfg, logger, st)

	v, err := validation.New(
		validation.WithFlowEngine(es.FlowEngine()),
		validation.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build validator", err)
	}
	violations := v.ValidateAll(es.All(), es.Graph(), airflows(es))
	counts := v.Count()

	result := ValidateResult{
		Project:    path,
		Entities:   es.Count(),
		Blockers:   counts[validation.SeverityBlocker],
		Warnings:   counts[validation.SeverityWarning],
		Violations: violations,
	}
	if result.Violations == nil {
		result.Violations = []validation.Violation{}
	}

	f := opts.formatter(cmd)
	if f.IsJSON() {
		if result.Blockers > 0 {
			if err := f.Failure(CodeBlockers, blockerMessage(result.Blockers), result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, blockerMessage(result.Blockers))
		}
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, x := range violations {
		fmt.Fprintf(w, "  %s\n", x)
	}
	fmt.Fprintf(w, "%s: %d entities, %d blockers, %d warnings\n",
		path, result.Entities, result.Blockers, result.Warnings)
	if result.Blockers > 0 {
		return NewExitError(ExitFailure, blockerMessage(result.Blockers))
	}
	fmt.Fprintln(w, "✓ Project is valid")
	return nil
}

func blockerMessage(n int) string {
	return fmt.Sprintf("%d blocking violation(s)", n)
}
