package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/engryamato/hvaccore/internal/store"
)

// SnapshotOptions holds flags shared by the snapshot subcommands.
type SnapshotOptions struct {
	*RootOptions
	Database string
	Project  string
	Out      string
	YAML     bool
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Move projects between files and the database",
		Long: `Save project files into the SQLite database and load them back.

A snapshot records the entity table in order together with its
fingerprint and the journal step it was taken at.

Examples:
  hvaccore snapshot save --db ./hvac.db --project demo ./project.json
  hvaccore snapshot load --db ./hvac.db --project demo --out ./project.json
  hvaccore snapshot load --db ./hvac.db --project demo --yaml
  hvaccore snapshot list --db ./hvac.db
  hvaccore snapshot delete --db ./hvac.db --project demo`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to database.path)")

	save := &cobra.Command{
		Use:           "save <project.json>",
		Short:         "Save a project file as a snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSave(opts, args[0], cmd)
		},
	}
	save.Flags().StringVar(&opts.Project, "project", "", "project name (required)")
	_ = save.MarkFlagRequired("project")

	load := &cobra.Command{
		Use:           "load",
		Short:         "Write a snapshot as a project file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotLoad(opts, cmd)
		},
	}
	load.Flags().StringVar(&opts.Project, "project", "", "project name (required)")
	load.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (defaults to stdout)")
	load.Flags().BoolVar(&opts.YAML, "yaml", false, "write YAML instead of JSON")
	_ = load.MarkFlagRequired("project")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List saved projects",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(opts, cmd)
		},
	}

	del := &cobra.Command{
		Use:           "delete",
		Short:         "Delete a project snapshot and its journal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotDelete(opts, cmd)
		},
	}
	del.Flags().StringVar(&opts.Project, "project", "", "project name (required)")
	_ = del.MarkFlagRequired("project")

	cmd.AddCommand(save, load, list, del)
	return cmd
}

// openStore resolves the database path and opens it.
func (o *SnapshotOptions) openStore() (*store.Store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return openDatabase(o.Database, cfg)
}

// runSnapshotSave hydrates the file first so the snapshot carries
// recomputed airflow.
func runSnapshotSave(opts *SnapshotOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	st, err := readProject(path)
	if err != nil {
		return err
	}
	st = loadCanvas(cfg, opts.logger(cmd, cfg), st).Snapshot()

	db, err := openDatabase(opts.Database, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := commandContext(cmd)
	seq, err := db.LastStep(ctx, opts.Project)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	info, err := db.SaveProject(ctx, opts.Project, st, seq)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to save project", err)
	}

	f := opts.formatter(cmd)
	if f.IsJSON() {
		return f.Success(info)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s: %d entities at step %d (%s)\n",
		info.Name, info.EntityCount, info.SavedSeq, shortHash(info.Fingerprint))
	return nil
}

func runSnapshotLoad(opts *SnapshotOptions, cmd *cobra.Command) error {
	db, err := opts.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := db.LoadProject(commandContext(cmd), opts.Project)
	if errors.Is(err, store.ErrProjectNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("project not found: %s", opts.Project))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load project", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.Out != "" {
		file, err := os.Create(opts.Out)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer file.Close()
		w = file
	}
	if err := writeProject(w, st, opts.YAML); err != nil {
		return WrapExitError(ExitCommandError, "failed to write project", err)
	}
	if opts.Out != "" {
		opts.formatter(cmd).VerboseLog("wrote %d entities to %s", len(st.AllIDs), opts.Out)
	}
	return nil
}

func runSnapshotList(opts *SnapshotOptions, cmd *cobra.Command) error {
	db, err := opts.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	infos, err := db.ListProjects(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list projects", err)
	}

	f := opts.formatter(cmd)
	if f.IsJSON() {
		return f.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects saved.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENTITIES\tSTEP\tFINGERPRINT\tSAVED")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", info.Name, info.EntityCount, info.SavedSeq,
			shortHash(info.Fingerprint), info.SavedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func runSnapshotDelete(opts *SnapshotOptions, cmd *cobra.Command) error {
	db, err := opts.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.DeleteProject(commandContext(cmd), opts.Project)
	if errors.Is(err, store.ErrProjectNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("project not found: %s", opts.Project))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to delete project", err)
	}
	f := opts.formatter(cmd)
	if f.IsJSON() {
		return f.Success(map[string]string{"deleted": opts.Project})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", opts.Project)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
