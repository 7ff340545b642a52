package entitystore

import (
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/flow"
	"github.com/engryamato/hvaccore/internal/graph"
	"github.com/engryamato/hvaccore/internal/metrics"
)

// State is the serializable form of the store: the table plus its order.
// Persistence collaborators read and hydrate whole States; they never go
// through individual CRUD calls for bulk load.
type State struct {
	ByID   map[string]entity.Entity `json:"byId"`
	AllIDs []string                 `json:"allIds"`
}

// Update pairs an id with a patch for batch updates.
type Update struct {
	ID    string       `json:"id"`
	Patch entity.Patch `json:"patch"`
}

// Placement is an entity together with the index it should occupy in the
// ordered listing. Used to put deleted entities back where they were.
type Placement struct {
	Index  int           `json:"index"`
	Entity entity.Entity `json:"entity"`
}

// Store is the normalized object table.
type Store struct {
	byID   map[string]entity.Entity
	allIDs []string

	engine  *flow.Engine
	metrics *metrics.Recorder
	logger  *slog.Logger
	bus     *eventBus

	lastSkipped []flow.Skip
	lastErr     error
}

// Option configures a Store.
type Option func(*Store)

// WithFlowEngine sets the engine used for recomputation.
func WithFlowEngine(e *flow.Engine) Option {
	return func(s *Store) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Store) { s.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty store. Without WithFlowEngine, flow.New() is used.
func New(opts ...Option) *Store {
	s := &Store{
		byID:   make(map[string]entity.Entity),
		logger: slog.Default(),
		bus:    newEventBus(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = flow.New(flow.WithLogger(s.logger))
	}
	return s
}

// Subscribe registers fn for change notifications and returns a function
// that unregisters it. fn runs synchronously after each committed mutation
// and must not mutate the store.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.bus.subscribe(fn)
}

// FlowEngine returns the engine used for recomputation.
func (s *Store) FlowEngine() *flow.Engine {
	return s.engine
}

// ============================================================================
// Mutations
// ============================================================================

// Add inserts e if its id is absent. A duplicate id is logged and ignored.
// Returns whether e was inserted.
func (s *Store) Add(e entity.Entity) bool {
	return s.AddBatch([]entity.Entity{e}) == 1
}

// AddBatch inserts every entity whose id is absent, in order, then
// recomputes once. Returns how many were inserted.
func (s *Store) AddBatch(es []entity.Entity) int {
	var added []string
	for _, e := range es {
		if _, exists := s.byID[e.ID]; exists {
			s.logger.Warn("entitystore: duplicate id ignored", "id", e.ID)
			continue
		}
		s.byID[e.ID] = e.Clone()
		s.allIDs = append(s.allIDs, e.ID)
		added = append(added, e.ID)
	}
	if len(added) == 0 {
		return 0
	}
	s.commit(OpAdded, added)
	return len(added)
}

// Restore re-inserts entities at their recorded positions, ascending by
// index, then recomputes once. Positions past the end append. Ids already
// present are ignored. Returns how many were inserted.
func (s *Store) Restore(ps []Placement) int {
	sorted := slices.Clone(ps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var added []string
	for _, p := range sorted {
		id := p.Entity.ID
		if _, exists := s.byID[id]; exists {
			s.logger.Warn("entitystore: duplicate id ignored", "id", id)
			continue
		}
		idx := min(max(p.Index, 0), len(s.allIDs))
		s.byID[id] = p.Entity.Clone()
		s.allIDs = slices.Insert(s.allIDs, idx, id)
		added = append(added, id)
	}
	if len(added) == 0 {
		return 0
	}
	s.commit(OpAdded, added)
	return len(added)
}

// Update merges p into the entity with the given id. Missing ids are a
// silent no-op. Props of the wrong kind are logged and dropped; the rest
// of the patch still applies. Returns whether the entity exists.
func (s *Store) Update(id string, p entity.Patch) bool {
	return s.UpdateBatch([]Update{{ID: id, Patch: p}}) == 1
}

// UpdateBatch applies every update whose id exists, then recomputes once.
// Returns how many targets existed.
func (s *Store) UpdateBatch(us []Update) int {
	var updated []string
	for _, u := range us {
		cur, ok := s.byID[u.ID]
		if !ok {
			continue
		}
		p := u.Patch
		if !p.PropsMatch(cur.Kind) {
			s.logger.Warn("entitystore: props kind mismatch ignored",
				"id", u.ID, "kind", cur.Kind, "props_kind", p.Props.Kind())
			p.Props = nil
		}
		s.byID[u.ID] = cur.Apply(p)
		updated = append(updated, u.ID)
	}
	if len(updated) == 0 {
		return 0
	}
	s.commit(OpUpdated, updated)
	return len(updated)
}

// Remove deletes the entity with the given id. Missing ids are a silent
// no-op. Returns whether an entity was removed.
func (s *Store) Remove(id string) bool {
	return s.RemoveBatch([]string{id}) == 1
}

// RemoveBatch deletes every present id, then recomputes once.
// Returns how many were removed.
func (s *Store) RemoveBatch(ids []string) int {
	gone := make(map[string]bool, len(ids))
	var removed []string
	for _, id := range ids {
		if _, ok := s.byID[id]; !ok || gone[id] {
			continue
		}
		delete(s.byID, id)
		gone[id] = true
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return 0
	}
	s.allIDs = slices.DeleteFunc(s.allIDs, func(id string) bool { return gone[id] })
	s.commit(OpRemoved, removed)
	return len(removed)
}

// Clear empties the table and index. An empty graph trivially satisfies
// the flow invariant, so no recompute runs.
func (s *Store) Clear() {
	s.byID = make(map[string]entity.Entity)
	s.allIDs = nil
	s.lastSkipped = nil
	s.lastErr = nil
	s.metrics.SetEntities(0)
	s.bus.publish(Event{Op: OpCleared})
}

// Hydrate replaces the whole table with st, then recomputes. Index entries
// without a table row, duplicate index entries, table rows whose key does
// not match their id, and table rows missing from the index are dropped
// with a warning.
func (s *Store) Hydrate(st State) {
	byID := make(map[string]entity.Entity, len(st.AllIDs))
	allIDs := make([]string, 0, len(st.AllIDs))
	for _, id := range st.AllIDs {
		e, ok := st.ByID[id]
		switch {
		case !ok:
			s.logger.Warn("entitystore: hydrate index entry without entity", "id", id)
			continue
		case e.ID != id:
			s.logger.Warn("entitystore: hydrate key does not match entity id", "key", id, "id", e.ID)
			continue
		}
		if _, dup := byID[id]; dup {
			s.logger.Warn("entitystore: hydrate duplicate index entry", "id", id)
			continue
		}
		byID[id] = e.Clone()
		allIDs = append(allIDs, id)
	}
	if orphans := len(st.ByID) - len(byID); orphans > 0 {
		s.logger.Warn("entitystore: hydrate dropped entities missing from index", "count", orphans)
	}
	s.byID = byID
	s.allIDs = allIDs
	s.commit(OpHydrated, slices.Clone(allIDs))
}

// commit runs the post-mutation recompute and notifies subscribers.
func (s *Store) commit(op Op, ids []string) {
	changed := s.recompute()
	s.metrics.SetEntities(len(s.allIDs))
	s.bus.publish(Event{Op: op, IDs: ids, Recomputed: changed})
}

// recompute rebuilds the graph and writes back airflow values that differ.
// Entities the engine reports no flow for carry zero. On a compute failure previous values are kept: a stale value is better
// than a partial one.
func (s *Store) recompute() []string {
	start := time.Now()
	g := graph.Build(s.list())
	res, err := s.engine.Compute(g, s.byID)
	s.metrics.ObserveRecompute(time.Since(start), err)
	if err != nil {
		s.lastErr = err
		s.logger.Error("entitystore: flow recompute failed, keeping previous values", "error", err)
		return nil
	}
	s.lastErr = nil
	s.lastSkipped = res.Skipped

	var changed []string
	for _, id := range s.allIDs {
		v := res.Flows[id]
		e := s.byID[id]
		if e.Derived.Airflow == v {
			continue
		}
		e.Derived.Airflow = v
		s.byID[id] = e
		changed = append(changed, id)
	}
	if len(changed) > 0 {
		s.logger.Debug("entitystore: airflow recomputed", "changed", len(changed))
	}
	return changed
}

// LastRecomputeError returns the error of the most recent recompute, or nil
// if it succeeded.
func (s *Store) LastRecomputeError() error {
	return s.lastErr
}

// LastSkipped returns the nodes skipped by the most recent successful
// recompute.
func (s *Store) LastSkipped() []flow.Skip {
	return slices.Clone(s.lastSkipped)
}
