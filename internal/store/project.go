package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/entitystore"
)

// ErrProjectNotFound is returned when a named project has no saved snapshot.
var ErrProjectNotFound = errors.New("project not found")

// ProjectInfo summarizes a saved project.
type ProjectInfo struct {
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	EntityCount int       `json:"entityCount"`
	SavedSeq    int64     `json:"savedSeq"`
	SavedAt     time.Time `json:"savedAt"`
}

// SaveProject replaces the snapshot of name with st in one transaction.
// Index entries without a table row are skipped, matching what Hydrate
// would keep. seq is the logical clock value at save time, so a later
// journal replay knows where the snapshot sits.
func (s *Store) SaveProject(ctx context.Context, name string, st entitystore.State, seq int64) (ProjectInfo, error) {
	if name == "" {
		return ProjectInfo{}, fmt.Errorf("save project: empty name")
	}
	entities := make([]entity.Entity, 0, len(st.AllIDs))
	for _, id := range st.AllIDs {
		if e, ok := st.ByID[id]; ok && e.ID == id {
			entities = append(entities, e)
		}
	}
	fp, err := entity.Fingerprint(entities)
	if err != nil {
		return ProjectInfo{}, fmt.Errorf("save project %s: %w", name, err)
	}
	info := ProjectInfo{
		Name:        name,
		Fingerprint: fp,
		EntityCount: len(entities),
		SavedSeq:    seq,
		SavedAt:     time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ProjectInfo{}, fmt.Errorf("save project %s: begin: %w", name, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (name, fingerprint, entity_count, saved_seq, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			entity_count = excluded.entity_count,
			saved_seq = excluded.saved_seq,
			saved_at = excluded.saved_at
	`, info.Name, info.Fingerprint, info.EntityCount, info.SavedSeq, info.SavedAt.Format(time.RFC3339Nano))
	if err != nil {
		return ProjectInfo{}, fmt.Errorf("save project %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE project = ?`, name); err != nil {
		return ProjectInfo{}, fmt.Errorf("save project %s: clear entities: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (project, id, position, kind, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project, id) DO NOTHING
	`)
	if err != nil {
		return ProjectInfo{}, fmt.Errorf("save project %s: %w", name, err)
	}
	defer stmt.Close()

	for i, e := range entities {
		body, err := marshalEntity(e)
		if err != nil {
			return ProjectInfo{}, fmt.Errorf("save project %s: %w", name, err)
		}
		if _, err := stmt.ExecContext(ctx, name, e.ID, i, string(e.Kind), body); err != nil {
			return ProjectInfo{}, fmt.Errorf("save project %s: entity %s: %w", name, e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ProjectInfo{}, fmt.Errorf("save project %s: commit: %w", name, err)
	}
	return info, nil
}

// LoadProject returns the saved snapshot of name as a State ready for
// Hydrate. Returns ErrProjectNotFound if nothing was saved under name.
func (s *Store) LoadProject(ctx context.Context, name string) (entitystore.State, error) {
	if _, err := s.ProjectInfo(ctx, name); err != nil {
		return entitystore.State{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body
		FROM entities
		WHERE project = ?
		ORDER BY position ASC, id COLLATE BINARY ASC
	`, name)
	if err != nil {
		return entitystore.State{}, fmt.Errorf("load project %s: %w", name, err)
	}
	defer rows.Close()

	st := entitystore.State{ByID: make(map[string]entity.Entity), AllIDs: []string{}}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return entitystore.State{}, fmt.Errorf("load project %s: scan: %w", name, err)
		}
		e, err := unmarshalEntity(body)
		if err != nil {
			return entitystore.State{}, fmt.Errorf("load project %s: entity %s: %w", name, id, err)
		}
		st.ByID[id] = e
		st.AllIDs = append(st.AllIDs, id)
	}
	if err := rows.Err(); err != nil {
		return entitystore.State{}, fmt.Errorf("load project %s: iterate: %w", name, err)
	}
	return st, nil
}

// ProjectInfo returns the summary row of name.
func (s *Store) ProjectInfo(ctx context.Context, name string) (ProjectInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, fingerprint, entity_count, saved_seq, saved_at
		FROM projects
		WHERE name = ?
	`, name)
	info, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ProjectInfo{}, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	if err != nil {
		return ProjectInfo{}, fmt.Errorf("project %s: %w", name, err)
	}
	return info, nil
}

// ListProjects returns every saved project ordered by name.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, fingerprint, entity_count, saved_seq, saved_at
		FROM projects
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []ProjectInfo{}
	for rows.Next() {
		info, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: iterate: %w", err)
	}
	return out, nil
}

// DeleteProject removes the snapshot and journal of name. Deleting a
// missing project returns ErrProjectNotFound.
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete project %s: begin: %w", name, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM journal WHERE project = ?`, name); err != nil {
		return fmt.Errorf("delete project %s: journal: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete project %s: commit: %w", name, err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (ProjectInfo, error) {
	var (
		info    ProjectInfo
		savedAt string
	)
	if err := sc.Scan(&info.Name, &info.Fingerprint, &info.EntityCount, &info.SavedSeq, &savedAt); err != nil {
		return ProjectInfo{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return ProjectInfo{}, fmt.Errorf("parse saved_at: %w", err)
	}
	info.SavedAt = t
	return info, nil
}
