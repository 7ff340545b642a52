package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/engryamato/hvaccore/internal/config"
	"github.com/engryamato/hvaccore/internal/entitystore"
	"github.com/engryamato/hvaccore/internal/flow"
	"github.com/engryamato/hvaccore/internal/store"
)

// readProject decodes a project file: the serialized entity table
// ({"byId": {...}, "allIds": [...]}).
func readProject(path string) (entitystore.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entitystore.State{}, WrapExitError(ExitCommandError, "failed to read project", err)
	}
	var st entitystore.State
	if err := json.Unmarshal(data, &st); err != nil {
		return entitystore.State{}, WrapExitError(ExitCommandError, fmt.Sprintf("failed to parse project %s", path), err)
	}
	if st.ByID == nil {
		return entitystore.State{}, NewExitError(ExitCommandError, fmt.Sprintf("project %s has no byId table", path))
	}
	return st, nil
}

// writeProject encodes st as indented JSON, or as YAML when asYAML is set.
// YAML goes through the JSON form so entity field names match.
func writeProject(w io.Writer, st entitystore.State, asYAML bool) error {
	if st.AllIDs == nil {
		st.AllIDs = []string{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if !asYAML {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	return enc.Close()
}

// newEngine builds the flow engine for the configured source types.
func newEngine(cfg config.Config, logger *slog.Logger) *flow.Engine {
	return flow.New(
		flow.WithSourceTypes(cfg.Flow.SourceEquipmentTypes...),
		flow.WithLogger(logger),
	)
}

// loadCanvas hydrates st into a fresh store, which recomputes airflow.
func loadCanvas(cfg config.Config, logger *slog.Logger, st entitystore.State) *entitystore.Store {
	es := entitystore.New(
		entitystore.WithFlowEngine(newEngine(cfg, logger)),
		entitystore.WithLogger(logger),
	)
	es.Hydrate(st)
	return es
}

// airflows returns the derived airflow of every flow-carrying entity.
func airflows(es *entitystore.Store) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range es.All() {
		if e.Kind.FlowCarrying() {
			out[e.ID] = e.Derived.Airflow
		}
	}
	return out
}

// openDatabase opens the SQLite store at the resolved path.
func openDatabase(flag string, cfg config.Config) (*store.Store, error) {
	path, err := dbPath(flag, cfg)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return db, nil
}

// dbPath resolves --db against the configured database path.
func dbPath(flag string, cfg config.Config) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.Database.Path != "" {
		return cfg.Database.Path, nil
	}
	return "", NewExitError(ExitCommandError, "no database: pass --db or set database.path in the config")
}
