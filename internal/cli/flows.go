package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/flow"
)

// FlowRow is the derived airflow of one flow-carrying entity. Velocity is
// set for ducts only, in feet per minute.
type FlowRow struct {
	ID       string      `json:"id"`
	Kind     entity.Kind `json:"type"`
	Airflow  float64     `json:"airflow"`
	Velocity float64     `json:"velocity,omitempty"`
}

// FlowsResult holds the computed flows of a project.
type FlowsResult struct {
	Project     string                 `json:"project"`
	SourceTypes []entity.EquipmentType `json:"sourceTypes"`
	Flows       []FlowRow              `json:"flows"`
	Overloads   []flow.Overload        `json:"overloads"`
	Skipped     []flow.Skip            `json:"skipped"`
	Error       string                 `json:"error,omitempty"`
}

// NewFlowsCommand creates the flows command.
func NewFlowsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows <project.json>",
		Short: "Print computed airflow",
		Long: `Compute airflow for a project and print the derived value of every
duct, fitting and piece of equipment, in entity order. Ducts also report
air velocity (FPM) through their cross-section.

Source equipment types come from the config (flow.source_equipment_types).
Overloaded equipment and nodes skipped by the engine are listed after the
flows.

Examples:
  hvaccore flows ./project.json
  hvaccore flows ./project.json --config ./hvaccore.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlows(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runFlows(opts *RootOptions, path string, cmd *cobra.Command) error {
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
	eng := es.FlowEngine()
	flows := airflows(es)
	snap := es.Snapshot()

	result := FlowsResult{
		Project:     path,
		SourceTypes: eng.SourceTypes(),
		Flows:       []FlowRow{},
		Overloads:   eng.CapacityReport(es.Graph(), snap.ByID, flows),
		Skipped:     es.LastSkipped(),
	}
	for _, e := range es.All() {
		if e.Kind.FlowCarrying() {
			result.Flows = append(result.Flows, FlowRow{
				ID:       e.ID,
				Kind:     e.Kind,
				Airflow:  e.Derived.Airflow,
				Velocity: entity.Velocity(e),
			})
		}
	}
	if result.Overloads == nil {
		result.Overloads = []flow.Overload{}
	}
	if result.Skipped == nil {
		result.Skipped = []flow.Skip{}
	}
	if err := es.LastRecomputeError(); err != nil {
		result.Error = err.Error()
	}

	f := opts.formatter(cmd)
	if f.IsJSON() {
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tAIRFLOW (CFM)\tVELOCITY (FPM)")
	for _, r := range result.Flows {
		velocity := "-"
		if r.Kind == entity.KindDuct {
			velocity = fmt.Sprintf("%g", r.Velocity)
		}
		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\n", r.ID, r.Kind, r.Airflow, velocity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, o := range result.Overloads {
		fmt.Fprintf(w, "overload %s: %s\n", o.ID, o.Message)
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.NodeID, s.Reason)
	}
	if result.Error != "" {
		fmt.Fprintf(w, "recompute failed: %s\n", result.Error)
	}
	return nil
}
