package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/engryamato/hvaccore/internal/command"
	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/entitystore"
	"github.com/engryamato/hvaccore/internal/flow"
	"github.com/engryamato/hvaccore/internal/history"
	"github.com/engryamato/hvaccore/internal/metrics"
	"github.com/engryamato/hvaccore/internal/selection"
	"github.com/engryamato/hvaccore/internal/testutil"
)

// airflowTolerance absorbs float noise in expected airflow values.
const airflowTolerance = 1e-9

// Harness is the scenario execution engine.
// It wires a fresh entity store, history, selection and command layer for
// every scenario, with a deterministic clock and command ids.
type Harness struct {
	store  *entitystore.Store
	layer  *command.Layer
	sel    *selection.Set
	clock  *testutil.DeterministicClock
	logger *slog.Logger

	checkpoint func(entitystore.State) error
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger      *slog.Logger
	journal     command.Journal
	metrics     *metrics.Recorder
	checkpoint  func(entitystore.State) error
	maxSize     int
	sourceTypes []entity.EquipmentType
}

// WithJournal records every applied, undone and redone command.
func WithJournal(j command.Journal) Option {
	return func(c *runConfig) {
		c.journal = j
	}
}

// WithMetrics reports command and recompute metrics to r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *runConfig) {
		c.metrics = r
	}
}

// WithCheckpoint calls fn with the loaded canvas whenever the run hydrates
// one: once for the setup and again for every hydrate step. Journal replay
// starts from the latest checkpoint. An error aborts the run.
func WithCheckpoint(fn func(entitystore.State) error) Option {
	return func(c *runConfig) {
		c.checkpoint = fn
	}
}

// WithHistoryMaxSize bounds the undo history. A scenario's own
// history_max_size wins. Zero keeps the default.
func WithHistoryMaxSize(n int) Option {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithSourceTypes sets which equipment types inject airflow. A scenario's
// own source_equipment_types wins. An empty list keeps the default.
func WithSourceTypes(types ...entity.EquipmentType) Option {
	return func(c *runConfig) {
		if len(types) > 0 {
			c.sourceTypes = slices.Clone(types)
		}
	}
}

// WithLogger routes component logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build engine, store, history and command layer from the scenario config
// 2. Hydrate setup entities (no history, empty selection)
// 3. Execute steps, recording a trace event and checking expect clauses
// 4. Evaluate assertions against the trace and final state
//
// A returned error means the scenario itself could not run; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := newHarness(scenario.Config, cfg)
	result := NewResult()

	setup := make([]entity.Entity, 0, len(scenario.Setup))
	for i, spec := range scenario.Setup {
		e, err := buildEntity(spec, testutil.Epoch)
		if err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
		setup = append(setup, e)
	}
	if err := h.load(stateOf(setup)); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	for i, step := range scenario.Steps {
		ev, err := h.execute(i, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Op, err)
		}
		result.AddTrace(ev)
		for _, msg := range h.check(ev, step.Expect) {
			result.AddError(fmt.Sprintf("steps[%d] (%s): %s", i, step.Op, msg))
		}
		h.logger.Debug("harness: step", "step", i, "op", step.Op, "recorded", ev.Recorded)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h.store) {
		result.AddError(msg)
	}
	result.State = h.store.Snapshot()
	return result, nil
}

func newHarness(sc *ScenarioConfig, cfg runConfig) *Harness {
	logger := cfg.logger
	maxSize := history.DefaultMaxSize
	if cfg.maxSize > 0 {
		maxSize = cfg.maxSize
	}
	sourceTypes := cfg.sourceTypes
	if sc != nil {
		if len(sc.SourceEquipmentTypes) > 0 {
			sourceTypes = sc.SourceEquipmentTypes
		}
		if sc.HistoryMaxSize > 0 {
			maxSize = sc.HistoryMaxSize
		}
	}
	engOpts := []flow.Option{flow.WithLogger(logger)}
	if len(sourceTypes) > 0 {
		engOpts = append(engOpts, flow.WithSourceTypes(sourceTypes...))
	}

	st := entitystore.New(
		entitystore.WithFlowEngine(flow.New(engOpts...)),
		entitystore.WithLogger(logger),
		entitystore.WithMetrics(cfg.metrics),
	)
	sel := selection.New()
	clock := testutil.NewDeterministicClock()
	layerOpts := []command.Option{
		command.WithSelection(sel),
		command.WithIDGenerator(testutil.NewSequentialIDs("cmd")),
		command.WithNow(clock.Now),
		command.WithLogger(logger),
		command.WithMetrics(cfg.metrics),
	}
	if cfg.journal != nil {
		layerOpts = append(layerOpts, command.WithJournal(cfg.journal))
	}
	layer := command.New(st, history.New[command.Reversible](maxSize), layerOpts...)
	return &Harness{store: st, layer: layer, sel: sel, clock: clock, logger: logger, checkpoint: cfg.checkpoint}
}

// load hydrates st and reports the checkpoint.
func (h *Harness) load(st entitystore.State) error {
	h.layer.Load(st)
	if h.checkpoint == nil {
		return nil
	}
	return h.checkpoint(h.store.Snapshot())
}

// execute runs one step and captures the resulting trace event.
func (h *Harness) execute(i int, step Step) (TraceEvent, error) {
	var (
		recorded bool
		rc       command.Reversible
		hasCmd   bool
	)
	hist := h.layer.History()

	switch step.Op {
	case OpCreate:
		e, err := buildEntity(*step.Entity, h.clock.Now())
		if err != nil {
			return TraceEvent{}, err
		}
		recorded = h.layer.CreateEntity(e)
	case OpCreateBatch:
		now := h.clock.Now()
		es := make([]entity.Entity, 0, len(step.Entities))
		for _, spec := range step.Entities {
			e, err := buildEntity(spec, now)
			if err != nil {
				return TraceEvent{}, err
			}
			es = append(es, e)
		}
		recorded = h.layer.CreateEntities(es)
	case OpUpdate:
		p, err := h.buildPatch(step.ID, *step.Patch)
		if err != nil {
			return TraceEvent{}, err
		}
		recorded = h.layer.UpdateEntityWith(step.ID, p, entity.Entity{})
	case OpUpdateBatch:
		us := make([]entitystore.Update, 0, len(step.Updates))
		for _, u := range step.Updates {
			p, err := h.buildPatch(u.ID, u.PatchSpec)
			if err != nil {
				return TraceEvent{}, err
			}
			us = append(us, entitystore.Update{ID: u.ID, Patch: p})
		}
		recorded = h.layer.UpdateEntities(us)
	case OpDelete:
		recorded = h.layer.DeleteEntity(step.ID)
	case OpDeleteBatch:
		recorded = h.layer.DeleteEntities(step.IDs)
	case OpMove:
		moves := make([]command.Move, 0, len(step.Moves))
		for _, m := range step.Moves {
			base := entity.IdentityTransform()
			if cur, ok := h.store.Get(m.ID); ok {
				base = cur.Transform
			}
			moves = append(moves, command.Move{ID: m.ID, To: base.At(m.X, m.Y)})
		}
		recorded = h.layer.MoveEntities(moves)
	case OpUndo:
		recorded = h.layer.Undo()
		if recorded {
			rc, hasCmd = hist.PeekRedo()
		}
	case OpRedo:
		recorded = h.layer.Redo()
	case OpSelect:
		h.sel.SetSelection(step.IDs)
		recorded = true
	case OpHydrate:
		es := make([]entity.Entity, 0, len(step.Entities))
		for _, spec := range step.Entities {
			e, err := buildEntity(spec, testutil.Epoch)
			if err != nil {
				return TraceEvent{}, err
			}
			es = append(es, e)
		}
		if err := h.load(stateOf(es)); err != nil {
			return TraceEvent{}, err
		}
		recorded = true
	default:
		return TraceEvent{}, fmt.Errorf("unknown op %q", step.Op)
	}

	if recorded && !hasCmd && step.Op != OpSelect && step.Op != OpHydrate {
		rc, hasCmd = hist.PeekUndo()
	}

	fp, err := h.store.Fingerprint()
	if err != nil {
		return TraceEvent{}, err
	}
	ev := TraceEvent{
		Step:        i,
		Op:          step.Op,
		Recorded:    recorded,
		Past:        hist.PastLen(),
		Future:      hist.FutureLen(),
		Selection:   h.sel.Selection(),
		Order:       append([]string{}, h.store.IDs()...),
		Airflow:     h.airflows(),
		Fingerprint: fp,
	}
	if hasCmd {
		ev.Command = string(rc.Type)
		ev.Affected = rc.AffectedIDs()
	}
	return ev, nil
}

// airflows returns the derived airflow of every flow-carrying entity.
func (h *Harness) airflows() map[string]float64 {
	out := make(map[string]float64)
	for _, e := range h.store.All() {
		if e.Kind.FlowCarrying() {
			out[e.ID] = e.Derived.Airflow
		}
	}
	return out
}

// check evaluates an expect clause against a trace event.
func (h *Harness) check(ev TraceEvent, x *Expect) []string {
	if x == nil {
		return nil
	}
	var errs []string
	if x.Recorded != nil && *x.Recorded != ev.Recorded {
		errs = append(errs, fmt.Sprintf("recorded = %v, expected %v", ev.Recorded, *x.Recorded))
	}
	for _, id := range slices.Sorted(maps.Keys(x.Airflow)) {
		want := x.Airflow[id]
		e, ok := h.store.Get(id)
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("airflow[%s]: entity not found", id))
		case math.Abs(e.Derived.Airflow-want) > airflowTolerance:
			errs = append(errs, fmt.Sprintf("airflow[%s] = %g, expected %g", id, e.Derived.Airflow, want))
		}
	}
	if x.Selection != nil && !slices.Equal(ev.Selection, *x.Selection) {
		errs = append(errs, fmt.Sprintf("selection = %v, expected %v", ev.Selection, *x.Selection))
	}
	if x.Count != nil && h.store.Count() != *x.Count {
		errs = append(errs, fmt.Sprintf("count = %d, expected %d", h.store.Count(), *x.Count))
	}
	if x.Past != nil && ev.Past != *x.Past {
		errs = append(errs, fmt.Sprintf("past = %d, expected %d", ev.Past, *x.Past))
	}
	if x.Future != nil && ev.Future != *x.Future {
		errs = append(errs, fmt.Sprintf("future = %d, expected %d", ev.Future, *x.Future))
	}
	for _, id := range x.Exists {
		if !h.store.Has(id) {
			errs = append(errs, fmt.Sprintf("expected %s to exist", id))
		}
	}
	for _, id := range x.Absent {
		if h.store.Has(id) {
			errs = append(errs, fmt.Sprintf("expected %s to be absent", id))
		}
	}
	if x.Order != nil && !slices.Equal(ev.Order, x.Order) {
		errs = append(errs, fmt.Sprintf("order = %v, expected %v", ev.Order, x.Order))
	}
	return errs
}

// buildPatch turns a PatchSpec into an entity patch. Props overlay the
// target's current props; for an unknown target they are dropped and the
// command layer reports the no-op.
func (h *Harness) buildPatch(id string, ps PatchSpec) (entity.Patch, error) {
	p := entity.Patch{ConnectedTo: ps.ConnectedTo, ZIndex: ps.ZIndex}
	if len(ps.Props) == 0 {
		return p, nil
	}
	cur, ok := h.store.Get(id)
	if !ok {
		return p, nil
	}
	props, err := overlayProps(cur.Props, ps.Props)
	if err != nil {
		return entity.Patch{}, fmt.Errorf("entity %s: %w", id, err)
	}
	p.Props = props
	return p, nil
}

// buildEntity materializes an EntitySpec. Unknown kinds yield a props-less
// entity so the command layer's own rejection is exercised.
func buildEntity(spec EntitySpec, now time.Time) (entity.Entity, error) {
	base := entity.DefaultProps(spec.Type)
	if base == nil {
		return entity.Entity{ID: spec.ID, Kind: spec.Type}, nil
	}
	over := map[string]any{"name": spec.ID}
	for k, v := range spec.Props {
		over[k] = v
	}
	props, err := overlayProps(base, over)
	if err != nil {
		return entity.Entity{}, fmt.Errorf("entity %s: %w", spec.ID, err)
	}
	e := entity.New(spec.ID, props, now)
	e.ConnectedTo = spec.ConnectedTo
	e.Transform = e.Transform.At(spec.X, spec.Y)
	e.ZIndex = spec.ZIndex
	return e, nil
}

// overlayProps merges over onto the JSON form of base and decodes the
// result as props of the same kind.
func overlayProps(base entity.Props, over map[string]any) (entity.Props, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("props: %w", err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("props: %w", err)
	}
	for k, v := range over {
		m[k] = v
	}
	merged, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("props: %w", err)
	}
	return entity.DecodeProps(base.Kind(), merged)
}

func stateOf(es []entity.Entity) entitystore.State {
	st := entitystore.State{ByID: make(map[string]entity.Entity, len(es)), AllIDs: make([]string, 0, len(es))}
	for _, e := range es {
		st.ByID[e.ID] = e
		st.AllIDs = append(st.AllIDs, e.ID)
	}
	return st
}
