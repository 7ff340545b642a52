package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/entitystore"
	"github.com/engryamato/hvaccore/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Project  string
	After    int64
	Replay   bool
}

// JournalResult is the JSON payload of the journal command.
type JournalResult struct {
	Project string                `json:"project"`
	Entries []store.JournalRecord `json:"entries"`
	Replay  *ReplaySummary        `json:"replay,omitempty"`
}

// ReplaySummary reports a journal replay.
type ReplaySummary struct {
	From        int64             `json:"from"`
	Steps       int               `json:"steps"`
	LastStep    int64             `json:"lastStep"`
	Entities    int               `json:"entities"`
	Fingerprint string            `json:"fingerprint"`
	Divergence  *store.Divergence `json:"divergence,omitempty"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List and replay the command journal",
		Long: `List the journaled commands of a project, in step order.

With --replay, the project snapshot is hydrated and every step after the
snapshot is re-applied. Each step's resulting fingerprint is compared
with the recorded one; the first mismatch is reported as a divergence.

Exit codes:
  0 - Listed, or replay matched every recorded fingerprint
  1 - Replay diverged
  2 - Command error (database error, etc.)

Examples:
  hvaccore journal --db ./hvac.db --project demo
  hvaccore journal --db ./hvac.db --project demo --after 10
  hvaccore journal --db ./hvac.db --project demo --replay --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to database.path)")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project name (required)")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "list only steps after this one")
	cmd.Flags().BoolVar(&opts.Replay, "replay", false, "replay the journal and verify fingerprints")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd, cfg)
	db, err := openDatabase(opts.Database, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := commandContext(cmd)

	recs, err := db.ReadJournal(ctx, opts.Project, opts.After)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	result := JournalResult{Project: opts.Project, Entries: recs}
	if result.Entries == nil {
		result.Entries = []store.JournalRecord{}
	}

	if opts.Replay {
		base := entitystore.State{ByID: map[string]entity.Entity{}, AllIDs: []string{}}
		var from int64
		info, err := db.ProjectInfo(ctx, opts.Project)
		switch {
		case errors.Is(err, store.ErrProjectNotFound):
			logger.Debug("journal: no snapshot, replaying from empty canvas", "project", opts.Project)
		case err != nil:
			return WrapExitError(ExitCommandError, "failed to read project", err)
		default:
			if base, err = db.LoadProject(ctx, opts.Project); err != nil {
				return WrapExitError(ExitCommandError, "failed to load project", err)
			}
			from = info.SavedSeq
		}

		res, err := db.Replay(ctx, opts.Project, base, from,
			entitystore.WithFlowEngine(newEngine(cfg, logger)),
			entitystore.WithLogger(logger),
		)
		if err != nil {
			return WrapExitError(ExitCommandError, "replay failed", err)
		}
		fp, err := stateFingerprint(res.State)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to fingerprint replayed state", err)
		}
		result.Replay = &ReplaySummary{
			From:        from,
			Steps:       res.Steps,
			LastStep:    res.LastStep,
			Entities:    len(res.State.AllIDs),
			Fingerprint: fp,
			Divergence:  res.Divergence,
		}
	}

	diverged := result.Replay != nil && result.Replay.Divergence != nil
	f := opts.formatter(cmd)
	if f.IsJSON() {
		if diverged {
			msg := divergenceMessage(result.Replay.Divergence)
			if err := f.Failure(CodeDiverged, msg, result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		return f.Success(result)
	}

	w := cmd.OutOrStdout()
	if len(result.Entries) == 0 {
		fmt.Fprintf(w, "No journal entries for %s.\n", opts.Project)
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STEP\tDIRECTION\tCOMMAND\tAFFECTED\tFINGERPRINT")
		for _, r := range result.Entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%v\t%s\n", r.Step, r.Direction, r.Command.Type,
				r.Command.AffectedIDs(), shortHash(r.Fingerprint))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if rs := result.Replay; rs != nil {
		fmt.Fprintf(w, "Replayed %d step(s) from step %d: %d entities (%s)\n",
			rs.Steps, rs.From, rs.Entities, shortHash(rs.Fingerprint))
		if diverged {
			return NewExitError(ExitFailure, divergenceMessage(rs.Divergence))
		}
		fmt.Fprintln(w, "✓ Replay matches the journal")
	}
	return nil
}

// stateFingerprint hashes the entities of st in index order.
func stateFingerprint(st entitystore.State) (string, error) {
	es := make([]entity.Entity, 0, len(st.AllIDs))
	for _, id := range st.AllIDs {
		if e, ok := st.ByID[id]; ok {
			es = append(es, e)
		}
	}
	return entity.Fingerprint(es)
}

func divergenceMessage(d *store.Divergence) string {
	return fmt.Sprintf("replay diverged at step %d: want %s, got %s", d.Step, shortHash(d.Want), shortHash(d.Got))
}
