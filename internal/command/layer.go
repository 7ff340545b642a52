// Package command wraps every canvas mutation in a reversible unit and
// owns undo/redo.
//
// Each entry point captures the selection, builds a Reversible whose
// inverse is the literal pre-image of what changes, applies the forward
// mutation through the entity store (which recomputes derived airflow),
// and pushes exactly one history entry, even for batches. Undo and redo
// replay through the same apply path and restore the captured selection.
//
// Routine conditions never surface as errors: duplicates, missing ids and
// empty batches are no-ops that record nothing and return false.
//
// Thread-safety: a Layer is the single writer of its store. It is not safe
// for concurrent use.
package command

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/entitystore"
	"github.com/engryamato/hvaccore/internal/graph"
	"github.com/engryamato/hvaccore/internal/history"
	"github.com/engryamato/hvaccore/internal/metrics"
)

// Store is the subset of the entity store the layer mutates through.
// Implemented by *entitystore.Store.
type Store interface {
	Mutator
	Has(id string) bool
	Get(id string) (entity.Entity, bool)
	IndexOf(id string) int
	Count() int
	Hydrate(st entitystore.State)
	Graph() *graph.Graph
	Fingerprint() (string, error)
}

// Mutator is the write surface a command is replayed through.
type Mutator interface {
	Restore(ps []entitystore.Placement) int
	RemoveBatch(ids []string) int
	UpdateBatch(us []entitystore.Update) int
}

// Selection is the selection collaborator.
type Selection interface {
	Selection() []string
	SetSelection(ids []string)
}

// Validator is notified after mutations so it can refresh or drop cached
// results. It is best-effort: a panicking validator is logged and the
// mutation stands.
type Validator interface {
	Validate(e entity.Entity)
	Clear(id string)
}

// Direction tells a journal which way a command was replayed.
type Direction string

const (
	DirectionApply Direction = metrics.DirectionApply
	DirectionUndo  Direction = metrics.DirectionUndo
	DirectionRedo  Direction = metrics.DirectionRedo
)

// JournalEntry is what the layer hands to a Journal after each step.
type JournalEntry struct {
	Direction   Direction  `json:"direction"`
	Command     Reversible `json:"command"`
	Fingerprint string     `json:"fingerprint"`
}

// Journal records executed commands. Errors are logged, never returned
// to the caller of the mutation.
type Journal interface {
	Record(e JournalEntry) error
}

// History is the ledger type the layer pushes to.
type History = history.Ledger[Reversible]

// Layer is the command layer.
type Layer struct {
	store     Store
	history   *History
	selection Selection
	validator Validator
	journal   Journal
	ids       IDGenerator
	clock     *Clock
	now       func() time.Time
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// Option configures a Layer.
type Option func(*Layer)

// WithSelection sets the selection collaborator.
func WithSelection(s Selection) Option {
	return func(l *Layer) { l.selection = s }
}

// WithValidator sets the validation collaborator.
func WithValidator(v Validator) Option {
	return func(l *Layer) { l.validator = v }
}

// WithJournal sets the command journal.
func WithJournal(j Journal) Option {
	return func(l *Layer) { l.journal = j }
}

// WithIDGenerator overrides command id generation (for tests).
func WithIDGenerator(g IDGenerator) Option {
	return func(l *Layer) {
		if g != nil {
			l.ids = g
		}
	}
}

// WithClock sets the logical clock, e.g. one resumed from a journal.
func WithClock(c *Clock) Option {
	return func(l *Layer) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithNow overrides the wall clock used for timestamps (for tests).
func WithNow(now func() time.Time) Option {
	return func(l *Layer) {
		if now != nil {
			l.now = now
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(l *Layer) { l.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Layer) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// New creates a Layer over store. A nil history gets a default-sized one.
func New(store Store, h *History, opts ...Option) *Layer {
	if h == nil {
		h = history.New[Reversible](history.DefaultMaxSize)
	}
	l := &Layer{
		store:   store,
		history: h,
		ids:     UUIDv7Generator{},
		clock:   &Clock{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CallOption adjusts a single entry point call.
type CallOption func(*callConfig)

type callConfig struct {
	selection    []string
	hasSelection bool
}

// SelectionBefore supplies the "selection before" snapshot explicitly
// instead of reading it from the selection collaborator.
func SelectionBefore(ids ...string) CallOption {
	return func(c *callConfig) {
		c.selection = append([]string{}, ids...)
		c.hasSelection = true
	}
}

// History returns the ledger. Callers must not push to it directly.
func (l *Layer) History() *History {
	return l.history
}

// CanUndo reports whether Undo would do anything.
func (l *Layer) CanUndo() bool { return l.history.CanUndo() }

// CanRedo reports whether Redo would do anything.
func (l *Layer) CanRedo() bool { return l.history.CanRedo() }

// Load replaces the store contents wholesale and starts a fresh history
// and empty selection, as when a project is opened.
func (l *Layer) Load(st entitystore.State) {
	l.store.Hydrate(st)
	l.history.Clear()
	if l.selection != nil {
		l.selection.SetSelection(nil)
	}
	l.metrics.SetHistoryDepth(0, 0)
	l.revalidateAll()
}

// Undo reverts the most recent command and restores the selection that
// preceded it. Returns false when there is nothing to undo.
func (l *Layer) Undo() bool {
	rc, ok := l.history.Undo()
	if !ok {
		return false
	}
	l.replay(rc, rc.Inverse, DirectionUndo)
	l.restoreSelection(rc.SelectionBefore)
	l.logger.Debug("command: undo", "id", rc.ID, "type", rc.Type)
	return true
}

// Redo re-applies the most recently undone command and restores the
// selection after it, or the selection before it if none was recorded.
// Returns false when there is nothing to redo.
func (l *Layer) Redo() bool {
	rc, ok := l.history.Redo()
	if !ok {
		return false
	}
	l.replay(rc, rc.Command, DirectionRedo)
	sel := rc.SelectionAfter
	if sel == nil {
		sel = rc.SelectionBefore
	}
	l.restoreSelection(sel)
	l.logger.Debug("command: redo", "id", rc.ID, "type", rc.Type)
	return true
}

// ============================================================================
// Internals
// ============================================================================

func (l *Layer) selectionBefore(opts []CallOption) []string {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hasSelection {
		return cfg.selection
	}
	if l.selection == nil {
		return []string{}
	}
	sel := l.selection.Selection()
	if sel == nil {
		sel = []string{}
	}
	return sel
}

func (l *Layer) restoreSelection(ids []string) {
	if l.selection == nil {
		return
	}
	l.selection.SetSelection(append([]string(nil), ids...))
}

// newCommand stamps a command with id, time and sequence.
func (l *Layer) newCommand(t Type, p Payload, at time.Time) Command {
	return Command{
		ID:        l.ids.Generate(),
		Type:      t,
		Payload:   p,
		Timestamp: at,
		Seq:       l.clock.Next(),
	}
}

// execute applies a freshly built command and records it.
func (l *Layer) execute(rc Reversible) {
	l.replay(rc, rc.Command, DirectionApply)
	l.history.Push(rc)
	l.metrics.SetHistoryDepth(l.history.PastLen(), l.history.FutureLen())
	l.logger.Debug("command: applied", "id", rc.ID, "type", rc.Type, "affected", len(rc.AffectedIDs()))
}

// replay applies cmd and runs the post-apply collaborators.
func (l *Layer) replay(rc Reversible, cmd Command, dir Direction) {
	var before *graph.Graph
	if l.validator != nil {
		before = l.store.Graph()
	}

	Apply(l.store, cmd)

	l.metrics.CommandApplied(string(rc.Type), string(dir))
	if dir != DirectionApply {
		l.metrics.SetHistoryDepth(l.history.PastLen(), l.history.FutureLen())
	}
	l.revalidate(before, cmd.AffectedIDs())
	l.record(rc, dir)
}

// Apply performs the store mutation described by cmd. Every layer step
// goes through it, and journal replay uses it to rebuild state without
// touching history.
func Apply(m Mutator, cmd Command) {
	switch p := cmd.Payload.(type) {
	case CreatePayload:
		m.Restore(p.Placements)
	case DeletePayload:
		m.RemoveBatch(p.IDs)
	case UpdatePayload:
		m.UpdateBatch(p.Updates)
	case MovePayload:
		us := make([]entitystore.Update, len(p.Moves))
		for i, mv := range p.Moves {
			to := mv.To
			us[i] = entitystore.Update{ID: mv.ID, Patch: entity.Patch{Transform: &to}}
		}
		m.UpdateBatch(us)
	default:
		// Payload is sealed; reaching here is a programming error.
		panic(fmt.Sprintf("command: unknown payload type %T", cmd.Payload))
	}
}

// record hands the step to the journal, if any.
func (l *Layer) record(rc Reversible, dir Direction) {
	if l.journal == nil {
		return
	}
	fp, err := l.store.Fingerprint()
	if err != nil {
		l.logger.Warn("command: fingerprint failed", "id", rc.ID, "error", err)
	}
	if err := l.journal.Record(JournalEntry{Direction: dir, Command: rc, Fingerprint: fp}); err != nil {
		l.logger.Error("command: journal record failed", "id", rc.ID, "direction", dir, "error", err)
	}
}
