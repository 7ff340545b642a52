package store

import (
	"context"
	"fmt"

	"github.com/engryamato/hvaccore/internal/command"
	"github.com/engryamato/hvaccore/internal/entitystore"
)

// JournalRecord is one stored journal row.
type JournalRecord struct {
	Project     string             `json:"project"`
	Step        int64              `json:"step"`
	Direction   command.Direction  `json:"direction"`
	Command     command.Reversible `json:"command"`
	Fingerprint string             `json:"fingerprint"`
}

// AppendJournal appends e to the journal of project at step. Uses
// ON CONFLICT DO NOTHING for idempotency: re-writing a step is ignored.
func (s *Store) AppendJournal(ctx context.Context, project string, step int64, e command.JournalEntry) error {
	body, err := marshalCommand(e.Command)
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO journal (project, step, command_id, command_seq, direction, type, body, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, step) DO NOTHING
	`, project, step, e.Command.ID, e.Command.Seq, string(e.Direction), string(e.Command.Type), body, e.Fingerprint)
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// ReadJournal returns the journal of project in step order, starting after
// step after. Returns an empty slice (not nil) when there are no rows.
func (s *Store) ReadJournal(ctx context.Context, project string, after int64) ([]JournalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, direction, body, fingerprint
		FROM journal
		WHERE project = ? AND step > ?
		ORDER BY step ASC
	`, project, after)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	defer rows.Close()

	out := []JournalRecord{}
	for rows.Next() {
		var (
			rec       JournalRecord
			direction string
			body      string
		)
		if err := rows.Scan(&rec.Step, &direction, &body, &rec.Fingerprint); err != nil {
			return nil, fmt.Errorf("read journal: scan: %w", err)
		}
		rc, err := unmarshalCommand(body)
		if err != nil {
			return nil, fmt.Errorf("read journal: step %d: %w", rec.Step, err)
		}
		rec.Project = project
		rec.Direction = command.Direction(direction)
		rec.Command = rc
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read journal: iterate: %w", err)
	}
	return out, nil
}

// LastStep returns the highest journal step of project, or 0.
func (s *Store) LastStep(ctx context.Context, project string) (int64, error) {
	var step int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(step), 0) FROM journal WHERE project = ?
	`, project).Scan(&step)
	if err != nil {
		return 0, fmt.Errorf("last step: %w", err)
	}
	return step, nil
}

// JournalRecorder adapts a Store to command.Journal for one project.
// Steps come from a logical clock resumed from the last stored step.
type JournalRecorder struct {
	ctx     context.Context
	store   *Store
	project string
	clock   *command.Clock
}

// NewJournalRecorder creates a recorder that appends to project.
func NewJournalRecorder(ctx context.Context, s *Store, project string) (*JournalRecorder, error) {
	last, err := s.LastStep(ctx, project)
	if err != nil {
		return nil, err
	}
	return &JournalRecorder{ctx: ctx, store: s, project: project, clock: command.NewClockAt(last)}, nil
}

// Record implements command.Journal.
func (r *JournalRecorder) Record(e command.JournalEntry) error {
	return r.store.AppendJournal(r.ctx, r.project, r.clock.Next(), e)
}

// Step returns the last step handed out.
func (r *JournalRecorder) Step() int64 {
	return r.clock.Current()
}

// Divergence describes the first replayed step whose state fingerprint
// differs from the recorded one.
type Divergence struct {
	Step int64  `json:"step"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

// ReplayResult is the outcome of Replay.
type ReplayResult struct {
	State      entitystore.State `json:"state"`
	Steps      int               `json:"steps"`
	LastStep   int64             `json:"lastStep"`
	Divergence *Divergence       `json:"divergence,omitempty"`
}

// Replay rebuilds state by hydrating base and re-applying every journal
// step after from. Apply and redo rows replay the forward command; undo
// rows replay the inverse. Replay stops at the first fingerprint mismatch
// and reports it; the returned state is the state at that step.
func (s *Store) Replay(ctx context.Context, project string, base entitystore.State, from int64, opts ...entitystore.Option) (ReplayResult, error) {
	recs, err := s.ReadJournal(ctx, project, from)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", project, err)
	}
	es := entitystore.New(opts...)
	es.Hydrate(base)

	res := ReplayResult{LastStep: from}
	for _, rec := range recs {
		switch rec.Direction {
		case command.DirectionUndo:
			command.Apply(es, rec.Command.Inverse)
		case command.DirectionApply, command.DirectionRedo:
			command.Apply(es, rec.Command.Command)
		default:
			return ReplayResult{}, fmt.Errorf("replay %s: step %d: unknown direction %q", project, rec.Step, rec.Direction)
		}
		res.Steps++
		res.LastStep = rec.Step

		got, err := es.Fingerprint()
		if err != nil {
			return ReplayResult{}, fmt.Errorf("replay %s: step %d: %w", project, rec.Step, err)
		}
		if got != rec.Fingerprint {
			res.Divergence = &Divergence{Step: rec.Step, Want: rec.Fingerprint, Got: got}
			break
		}
	}
	res.State = es.Snapshot()
	return res, nil
}
