package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/engryamato/hvaccore/internal/entitystore"
	"github.com/engryamato/hvaccore/internal/harness"
	"github.com/engryamato/hvaccore/internal/metrics"
	"github.com/engryamato/hvaccore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Project  string
	Metrics  bool
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Trace    []harness.TraceEvent `json:"trace"`
	Errors   []string             `json:"errors,omitempty"`
	Project  string               `json:"project,omitempty"`
	Steps    int64                `json:"journalSteps,omitempty"`
	Metrics  []MetricSample       `json:"metrics,omitempty"`
}

// MetricSample is one gathered metric series.
type MetricSample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute a scenario",
		Long: `Execute a canvas scenario through the command layer and print the trace.

Each step is reported with the command it recorded, the history depth and
the selection afterwards. Failed expectations and assertions are listed at
the end.

With --db, every applied, undone and redone command is appended to the
project's journal, and the setup canvas is saved as the project snapshot
so 'hvaccore journal --replay' can reproduce the run.

Exit codes:
  0 - Scenario passed
  1 - An expectation or assertion failed
  2 - Command error (unreadable scenario, database error)

Examples:
  hvaccore run ./scenarios/duct_chain.yaml
  hvaccore run ./scenarios/duct_chain.yaml --db ./hvac.db --project demo
  hvaccore run ./scenarios/duct_chain.yaml --metrics --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run into this SQLite database")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project name for the journal (defaults to the scenario name)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print command and recompute metrics")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd, cfg)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	out := RunResult{Scenario: scenario.Name}
	runOpts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithHistoryMaxSize(cfg.History.MaxSize),
		harness.WithSourceTypes(cfg.Flow.SourceEquipmentTypes...),
	}

	reg := prometheus.NewRegistry()
	if opts.Metrics {
		runOpts = append(runOpts, harness.WithMetrics(metrics.New(reg)))
	}

	var recorder *store.JournalRecorder
	if opts.Database != "" {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		out.Project = opts.Project
		if out.Project == "" {
			out.Project = scenario.Name
		}
		recorder, err = store.NewJournalRecorder(ctx, st, out.Project)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		project := out.Project
		runOpts = append(runOpts,
			harness.WithJournal(recorder),
			harness.WithCheckpoint(func(state entitystore.State) error {
				_, err := st.SaveProject(ctx, project, state, recorder.Step())
				return err
			}),
		)
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}
	out.Pass = result.Pass
	out.Trace = result.Trace
	out.Errors = result.Errors
	if recorder != nil {
		out.Steps = recorder.Step()
	}
	if opts.Metrics {
		if out.Metrics, err = gatherSamples(reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
	}

	f := opts.formatter(cmd)
	if f.IsJSON() {
		if !out.Pass {
			msg := fmt.Sprintf("scenario %s failed", out.Scenario)
			if err := f.Failure(CodeScenarioFailed, msg, out); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		return f.Success(out)
	}

	printRun(cmd.OutOrStdout(), out)
	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", out.Scenario))
	}
	return nil
}

func printRun(w io.Writer, out RunResult) {
	fmt.Fprintf(w, "Scenario: %s\n", out.Scenario)
	for _, ev := range out.Trace {
		mark := "✓"
		if !ev.Recorded {
			mark = "·"
		}
		line := fmt.Sprintf("  %s [%d] %s", mark, ev.Step, ev.Op)
		if ev.Command != "" {
			line += fmt.Sprintf(" %s %v", ev.Command, ev.Affected)
		}
		fmt.Fprintf(w, "%s past=%d future=%d selection=%v\n", line, ev.Past, ev.Future, ev.Selection)
	}
	if out.Project != "" {
		fmt.Fprintf(w, "Journal: project %s at step %d\n", out.Project, out.Steps)
	}
	for _, m := range out.Metrics {
		fmt.Fprintf(w, "  %s %g\n", m.Name, m.Value)
	}
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if out.Pass {
		fmt.Fprintln(w, "✓ Scenario passed")
	} else {
		fmt.Fprintf(w, "✗ Scenario failed (%d errors)\n", len(out.Errors))
	}
}

// gatherSamples flattens counters and gauges, and histogram sample counts,
// into name{labels} series sorted by name.
func gatherSamples(g prometheus.Gatherer) ([]MetricSample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var out []MetricSample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				name += "_count"
				v = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			out = append(out, MetricSample{Name: name, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
