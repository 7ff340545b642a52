package command

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/entitystore"
	"github.com/engryamato/hvaccore/internal/history"
	"github.com/engryamato/hvaccore/internal/selection"
	"github.com/engryamato/hvaccore/internal/testutil"
)

type fixture struct {
	store *entitystore.Store
	sel   *selection.Set
	layer *Layer
	clock *testutil.DeterministicClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: entitystore.New(),
		sel:   selection.New(),
		clock: testutil.NewDeterministicClock(),
	}
	base := []Option{
		WithSelection(f.sel),
		WithIDGenerator(testutil.NewSequentialIDs("cmd")),
		WithNow(f.clock.Now),
	}
	f.layer = New(f.store, nil, append(base, opts...)...)
	return f
}

func (f *fixture) airflow(t *testing.T, id string) float64 {
	t.Helper()
	e, ok := f.store.Get(id)
	require.True(t, ok, "entity %s not found", id)
	return e.Derived.Airflow
}

func (f *fixture) fingerprint(t *testing.T) string {
	t.Helper()
	fp, err := f.store.Fingerprint()
	require.NoError(t, err)
	return fp
}

// chain seeds diffuser d1 (500 CFM) → duct1 → duct2.
func (f *fixture) chain(t *testing.T) {
	t.Helper()
	require.True(t, f.layer.CreateEntities([]entity.Entity{
		testutil.Diffuser("d1", 500, "duct1"),
		testutil.Duct("duct1", "duct2"),
		testutil.Duct("duct2", ""),
	}))
}

type recordingValidator struct {
	validated []string
	cleared   []string
	panics    bool
}

func (v *recordingValidator) Validate(e entity.Entity) {
	if v.panics {
		panic("boom")
	}
	v.validated = append(v.validated, e.ID)
}

func (v *recordingValidator) Clear(id string) {
	v.cleared = append(v.cleared, id)
}

type memJournal struct {
	entries []JournalEntry
	err     error
}

func (j *memJournal) Record(e JournalEntry) error {
	j.entries = append(j.entries, e)
	return j.err
}

// ============================================================================
// Create
// ============================================================================

func TestLayer_CreateEntities_PropagatesAlongChain(t *testing.T) {
	f := newFixture(t)
	f.chain(t)

	assert.Equal(t, 500.0, f.airflow(t, "duct1"))
	assert.Equal(t, 500.0, f.airflow(t, "duct2"))
	assert.Equal(t, 1, f.layer.History().PastLen(), "batch is one history entry")
	assert.Equal(t, []string{"d1", "duct1", "duct2"}, f.sel.Selection())
}

func TestLayer_CreateEntity_SingleType(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.layer.CreateEntity(testutil.Duct("a", "")))

	rc, ok := f.layer.History().PeekUndo()
	require.True(t, ok)
	assert.Equal(t, TypeCreateEntity, rc.Type)
	assert.Equal(t, TypeDeleteEntity, rc.Inverse.Type)
	assert.Equal(t, "cmd-1", rc.ID)
	assert.Equal(t, int64(1), rc.Seq)
	assert.Equal(t, []string{}, rc.SelectionBefore)
	assert.Equal(t, []string{"a"}, rc.SelectionAfter)
}

func TestLayer_CreateEntities_EmptyIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.layer.CreateEntities(nil))
	assert.False(t, f.layer.CanUndo())
}

func TestLayer_CreateEntities_SkipsDuplicatesAndMalformed(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.layer.CreateEntity(testutil.Duct("a", "")))

	bad := testutil.Duct("b", "")
	bad.Kind = entity.KindRoom

	ok := f.layer.CreateEntities([]entity.Entity{
		testutil.Duct("a", ""),
		testutil.Duct("c", ""),
		testutil.Duct("c", ""),
		bad,
		{ID: "", Kind: entity.KindDuct, Props: entity.DefaultProps(entity.KindDuct)},
	})
	require.True(t, ok)

	assert.Equal(t, []string{"a", "c"}, f.store.IDs())
	rc, _ := f.layer.History().PeekUndo()
	assert.Equal(t, []string{"c"}, rc.AffectedIDs())
}

func TestLayer_CreateEntities_AllDuplicatesRecordsNothing(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.layer.CreateEntity(testutil.Duct("a", "")))

	assert.False(t, f.layer.CreateEntity(testutil.Duct("a", "")))
	assert.Equal(t, 1, f.layer.History().PastLen())
}

func TestLayer_CreateEntity_FillsCalculatedAndIgnoresDerived(t *testing.T) {
	f := newFixture(t)
	e := testutil.Room("r1", "")
	e.Calculated = nil
	e.Derived.Airflow = 999

	require.True(t, f.layer.CreateEntity(e))

	got, _ := f.store.Get("r1")
	assert.Equal(t, 0.0, got.Derived.Airflow)
	assert.Equal(t, entity.Calculate(got), got.Calculated)
}

// ============================================================================
// Undo / Redo
// ============================================================================

func TestLayer_UndoRedo_RestoresExactState(t *testing.T) {
	f := newFixture(t)
	empty := f.fingerprint(t)

	f.chain(t)
	created := f.fingerprint(t)

	require.True(t, f.layer.Undo())
	assert.Equal(t, empty, f.fingerprint(t))
	assert.Equal(t, 0, f.store.Count())
	assert.Equal(t, []string{}, f.sel.Selection())

	require.True(t, f.layer.Redo())
	assert.Equal(t, created, f.fingerprint(t))
	assert.Equal(t, 500.0, f.airflow(t, "duct2"))
	assert.Equal(t, []string{"d1", "duct1", "duct2"}, f.sel.Selection())
}

func TestLayer_UndoRedo_EmptyStacks(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.layer.Undo())
	assert.False(t, f.layer.Redo())
}

func TestLayer_NewCommandInvalidatesRedo(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.layer.CreateEntity(testutil.Duct("a", "")))
	require.True(t, f.layer.Undo())
	require.True(t, f.layer.CanRedo())

	require.True(t, f.layer.CreateEntity(testutil.Duct("b", "")))

	assert.False(t, f.layer.CanRedo())
	assert.False(t, f.layer.Redo())
	assert.Equal(t, []string{"b"}, f.store.IDs())
}

func TestLayer_HistoryIsBounded(t *testing.T) {
	f := newFixture(t)
	f.layer = New(f.store, history.New[Reversible](3), WithSelection(f.sel))

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.True(t, f.layer.CreateEntity(testutil.Duct(id, "")))
	}
	assert.Equal(t, 3, f.layer.History().PastLen())

	for f.layer.Undo() {
	}
	assert.Equal(t, []string{"a", "b"}, f.store.IDs(), "evicted commands cannot be undone")
	assert.Equal(t, 3, f.layer.History().FutureLen())
}

func TestLayer_UndoRedo_MixedSequenceRoundTrip(t *testing.T) {
	f := newFixture(t)
	fps := []string{f.fingerprint(t)}
	step := func(ok bool) {
		t.Helper()
		require.True(t, ok)
		fps = append(fps, f.fingerprint(t))
	}

	step(f.layer.CreateEntities([]entity.Entity{
		testutil.Diffuser("d1", 500, "duct1"),
		testutil.Duct("duct1", ""),
		testutil.Duct("duct2", ""),
	}))

	d1, _ := f.store.Get("d1")
	p := d1.Props.(entity.EquipmentProps)
	p.Capacity = 800
	d1.Props = p
	step(f.layer.UpdateEntity(d1))

	step(f.layer.MoveEntities([]Move{{ID: "duct1", To: entity.IdentityTransform().At(40, 20)}}))

	to := "duct2"
	step(f.layer.UpdateEntityWith("duct1", entity.Patch{ConnectedTo: &to}, entity.Entity{}))
	assert.Equal(t, 800.0, f.airflow(t, "duct2"))

	step(f.layer.CreateEntity(testutil.Diffuser("d2", 200, "duct2")))
	assert.Equal(t, 1000.0, f.airflow(t, "duct2"))

	z := 2
	d2, _ := f.store.Get("d2")
	p2 := d2.Props.(entity.EquipmentProps)
	p2.Capacity = 300
	step(f.layer.UpdateEntities([]entitystore.Update{
		{ID: "duct2", Patch: entity.Patch{ZIndex: &z}},
		{ID: "d2", Patch: entity.Patch{Props: p2}},
	}))

	step(f.layer.DeleteEntities([]string{"d1"}))
	step(f.layer.DeleteEntity("duct1"))
	assert.Equal(t, 300.0, f.airflow(t, "duct2"))

	n := len(fps) - 1
	require.Equal(t, n, f.layer.History().PastLen())

	for i := n; i > 0; i-- {
		require.True(t, f.layer.Undo())
		assert.Equal(t, fps[i-1], f.fingerprint(t), "undo back to step %d", i-1)
	}
	assert.Equal(t, 0, f.store.Count())
	assert.False(t, f.layer.Undo())

	for i := 1; i <= n; i++ {
		require.True(t, f.layer.Redo())
		assert.Equal(t, fps[i], f.fingerprint(t), "redo forward to step %d", i)
	}
	assert.False(t, f.layer.Redo())
	assert.Equal(t, 300.0, f.airflow(t, "duct2"))
}

func TestLayer_UndoCreate_RestoresNonEmptySelection(t *testing.T) {
	f := newFixture(t)
	f.chain(t)
	f.sel.SetSelection([]string{"duct2", "d1"})

	require.True(t, f.layer.CreateEntity(testutil.Duct("duct3", "")))
	assert.Equal(t, []string{"duct3"}, f.sel.Selection())

	require.True(t, f.layer.Undo())
	assert.False(t, f.store.Has("duct3"))
	assert.Equal(t, []string{"duct2", "d1"}, f.sel.Selection())

	require.True(t, f.layer.Redo())
	assert.Equal(t, []string{"duct3"}, f.sel.Selection())
}

// ============================================================================
// Delete
// ============================================================================

func TestLayer_DeleteEntity_UnknownIsNoop(t *testing.T) {
	f := newFixture(t)
	f.chain(t)

	assert.False(t, f.layer.DeleteEntity("ghost"))
	assert.Equal(t, 1, f.layer.History().PastLen())
}

func TestLayer_DeleteEntity_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.chain(t)

	require.True(t, f.layer.DeleteEntity("d1"))
	assert.False(t, f.layer.DeleteEntity("d1"))
	assert.Equal(t, 2, f.layer.History().PastLen())
	assert.Equal(t, 0.0, f.airflow(t, "duct1"))
}

func TestLayer_DeleteEntities_UndoRestoresPositionsAndFlow(t *testing.T) {
	f := newFixture(t)
	f.chain(t)
	before := f.fingerprint(t)

	require.True(t, f.layer.DeleteEntities([]string{"duct2", "d1", "d1"}))
	assert.Equal(t, []string{"duct1"}, f.store.IDs())
	assert.Equal(t, 0.0, f.airflow(t, "duct1"))

	require.True(t, f.layer.Undo())
	assert.Equal(t, []string{"d1", "duct1", "duct2"}, f.store.IDs())
	assert.Equal(t, before, f.fingerprint(t))
	assert.Equal(t, 500.0, f.airflow(t, "duct2"))
}

func TestLayer_DeleteEntities_SelectionRestore(t *testing.T) {
	f := newFixture(t)
	f.chain(t)
	f.sel.SetSelection([]string{"duct1", "duct2"})

	require.True(t, f.layer.DeleteEntity("duct1"))
	assert.Equal(t, []string{"duct2"}, f.sel.Selection())

	require.True(t, f.layer.Undo())
	assert.Equal(t, []string{"duct1", "duct2"}, f.sel.Selection())

	require.True(t, f.layer.Redo())
	assert.Equal(t, []string{"duct2"}, f.sel.Selection())
}

func TestLayer_DeleteEntities_ExplicitSelectionBefore(t *testing.T) {
	f := newFixture(t)
	f.chain(t)

	require.True(t, f.layer.DeleteEntity("d1", SelectionBefore("d1", "duct2")))
	rc, _ := f.layer.History().PeekUndo()
	assert.Equal(t, []string{"d1", "duct2"}, rc.SelectionBefore)
	assert.Equal(t, []string{"duct2"}, rc.SelectionAfter)
}

// ============================================================================
// Update
// ============================================================================

func TestLayer_UpdateEntity_CapacityChangePropagates(t *testing.T) {
	f := newFixture(t)
	f.chain(t)
	before := f.fingerprint(t)

	d1, _ := f.store.Get("d1")
	p := d1.Props.(entity.EquipmentProps)
	p.Capacity = 750
	d1.Props = p

	require.True(t, f.layer.UpdateEntity(d1))
	assert.Equal(t, 750.0, f.airflow(t, "duct2"))

	got, _ := f.store.Get("d1")
	assert.True(t, got.ModifiedAt.After(testutil.Epoch), "modifiedAt stamped")

	require.True(t, f.layer.Undo())
	assert.Equal(t, before, f.fingerprint(t))
	assert.Equal(t, 500.0, f.airflow(t, "duct2"))
}

func TestLayer_UpdateEntity_NoChangeRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.chain(t)

	d1, _ := f.store.Get("d1")
	d1.Derived.Airflow = 12345

	assert.False(t, f.layer.UpdateEntity(d1), "derived-only differences are not user changes")
	assert.Equal(t, 1, f.layer.History().PastLen())
}

func TestLayer_UpdateEntity_KindChangeRejected(t *testing.T) {
	f := newFixture(t)
	f.chain(t)

	room := testutil.Room("duct1", "")
	assert.False(t, f.layer.UpdateEntity(room))
}

func TestLayer_UpdateEntity_UnknownIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.layer.UpdateEntity(testutil.Duct("ghost", "")))
	assert.False(t, f.layer.UpdateEntityWith("ghost", entity.Patch{}, entity.Entity{}))
}

func TestLayer_UpdateConventionsAreEquivalent(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixed }

	a := newFixture(t, WithNow(now))
	b := newFixture(t, WithNow(now))
	a.chain(t)
	b.chain(t)

	prev, _ := a.store.Get("duct2")
	to := "d1"

	updated := prev.Clone()
	updated.ConnectedTo = to
	require.True(t, a.layer.UpdateEntity(updated))

	require.True(t, b.layer.UpdateEntityWith("duct2", entity.Patch{ConnectedTo: &to}, prev))

	assert.Equal(t, a.fingerprint(t), b.fingerprint(t))
	ra, _ := a.layer.History().PeekUndo()
	rb, _ := b.layer.History().PeekUndo()
	assert.Equal(t, ra.Payload, rb.Payload)
	assert.Equal(t, ra.Inverse.Payload, rb.Inverse.Payload)
}

func TestLayer_UpdateEntity_ConnectCreatesLoopAndUndoBreaksIt(t *testing.T) {
	f := newFixture(t)
	f.chain(t)
	before := f.fingerprint(t)

	to := "duct1"
	require.True(t, f.layer.UpdateEntityWith("duct2", entity.Patch{ConnectedTo: &to}, entity.Entity{}))
	assert.Equal(t, 500.0, f.airflow(t, "duct1"), "loop does not amplify flow")
	assert.Equal(t, 500.0, f.airflow(t, "duct2"))

	require.True(t, f.layer.Undo())
	assert.Equal(t, before, f.fingerprint(t))
}

func TestLayer_UpdateEntity_PropsChangeRecalculates(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.layer.CreateEntity(testutil.Room("r1", "")))
	r1, _ := f.store.Get("r1")

	p := r1.Props.(entity.RoomProps)
	p.Width = 240
	require.True(t, f.layer.UpdateEntityWith("r1", entity.Patch{Props: p}, r1))

	got, _ := f.store.Get("r1")
	assert.Equal(t, 200.0, got.Calculated[entity.CalcArea])

	require.True(t, f.layer.Undo())
	got, _ = f.store.Get("r1")
	assert.Equal(t, 100.0, got.Calculated[entity.CalcArea])
}

func TestLayer_UpdateEntity_CallerBuiltObjectKeepsSystemFields(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.layer.CreateEntity(testutil.Duct("a", "")))
	stored, _ := f.store.Get("a")
	before := f.fingerprint(t)

	// Built from scratch: no timestamps, no calculated metrics.
	require.True(t, f.layer.UpdateEntity(entity.Entity{
		ID:        "a",
		Kind:      entity.KindDuct,
		Transform: stored.Transform,
		Props: entity.DuctProps{
			Name:     "a",
			Shape:    entity.ShapeRound,
			Diameter: 14,
			Length:   10,
			Material: entity.MaterialGalvanized,
		},
	}))

	got, _ := f.store.Get("a")
	assert.Equal(t, stored.CreatedAt, got.CreatedAt)
	assert.True(t, got.ModifiedAt.After(stored.ModifiedAt))
	assert.Equal(t, entity.Calculate(got), got.Calculated)
	assert.InDelta(t, math.Pi*49/144, got.Calculated[entity.CalcArea], 1e-4)

	require.True(t, f.layer.Undo())
	assert.Equal(t, before, f.fingerprint(t))
}

func TestLayer_UpdateEntities_MergesRepeatedIDs(t *testing.T) {
	f := newFixture(t)
	f.chain(t)

	z := 3
	tr := entity.IdentityTransform().At(5, 5)
	require.True(t, f.layer.UpdateEntities([]entitystore.Update{
		{ID: "duct1", Patch: entity.Patch{ZIndex: &z}},
		{ID: "ghost", Patch: entity.Patch{ZIndex: &z}},
		{ID: "duct1", Patch: entity.Patch{Transform: &tr}},
	}))

	rc, _ := f.layer.History().PeekUndo()
	assert.Equal(t, TypeUpdateEntities, rc.Type)
	assert.Equal(t, []string{"duct1"}, rc.AffectedIDs())

	got, _ := f.store.Get("duct1")
	assert.Equal(t, 3, got.ZIndex)
	assert.Equal(t, tr, got.Transform)

	require.True(t, f.layer.Undo())
	got, _ = f.store.Get("duct1")
	assert.Equal(t, 0, got.ZIndex)
	assert.Equal(t, entity.IdentityTransform(), got.Transform)
}

func TestLayer_Update_RedoFallsBackToSelectionBefore(t *testing.T) {
	f := newFixture(t)
	f.chain(t)
	f.sel.SetSelection([]string{"duct1"})

	z := 1
	require.True(t, f.layer.UpdateEntities([]entitystore.Update{{ID: "duct1", Patch: entity.Patch{ZIndex: &z}}}))
	f.sel.SetSelection(nil)

	require.True(t, f.layer.Undo())
	assert.Equal(t, []string{"duct1"}, f.sel.Selection())
	f.sel.SetSelection(nil)
	require.True(t, f.layer.Redo())
	assert.Equal(t, []string{"duct1"}, f.sel.Selection())
}

// ============================================================================
// Move
// ============================================================================

func TestLayer_MoveEntities_TransformOnly(t *testing.T) {
	f := newFixture(t)
	f.chain(t)
	before, _ := f.store.Get("duct1")

	to := entity.IdentityTransform().At(40, 80)
	require.True(t, f.layer.MoveEntities([]Move{{ID: "duct1", To: to}, {ID: "ghost", To: to}}))

	got, _ := f.store.Get("duct1")
	assert.Equal(t, to, got.Transform)
	assert.Equal(t, before.ModifiedAt, got.ModifiedAt)
	assert.Equal(t, 500.0, got.Derived.Airflow)

	require.True(t, f.layer.Undo())
	got, _ = f.store.Get("duct1")
	assert.Equal(t, before.Transform, got.Transform)
}

func TestLayer_MoveEntities_LiveDragUsesOrigin(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.layer.CreateEntity(testutil.Duct("a", "")))

	origin := entity.IdentityTransform()
	to := origin.At(10, 0)
	// The canvas already moved it during the drag.
	f.store.Update("a", entity.Patch{Transform: &to})

	require.True(t, f.layer.MoveEntities([]Move{{ID: "a", From: origin, To: to}}))
	require.True(t, f.layer.Undo())

	got, _ := f.store.Get("a")
	assert.Equal(t, origin, got.Transform)
}

func TestLayer_MoveEntities_NoopMoveRecordsNothing(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.layer.CreateEntity(testutil.Duct("a", "")))

	assert.False(t, f.layer.MoveEntities([]Move{{ID: "a", To: entity.IdentityTransform()}}))
	assert.False(t, f.layer.MoveEntities(nil))
	assert.Equal(t, 1, f.layer.History().PastLen())
}

// ============================================================================
// Collaborators
// ============================================================================

func TestLayer_Validator_SeesDownstreamAndDeleted(t *testing.T) {
	v := &recordingValidator{}
	f := newFixture(t, WithValidator(v))
	f.chain(t)
	assert.Equal(t, []string{"d1", "duct1", "duct2"}, v.validated)

	v.validated = nil
	require.True(t, f.layer.DeleteEntity("d1"))
	assert.Equal(t, []string{"d1"}, v.cleared)
	assert.Equal(t, []string{"duct1", "duct2"}, v.validated)
}

func TestLayer_Validator_PanicDoesNotAbortMutation(t *testing.T) {
	v := &recordingValidator{panics: true}
	f := newFixture(t, WithValidator(v))

	assert.NotPanics(t, func() { f.chain(t) })
	assert.Equal(t, 3, f.store.Count())
	assert.Equal(t, 1, f.layer.History().PastLen())
}

func TestLayer_Journal_RecordsEveryDirection(t *testing.T) {
	j := &memJournal{}
	f := newFixture(t, WithJournal(j))
	f.chain(t)
	require.True(t, f.layer.Undo())
	require.True(t, f.layer.Redo())

	require.Len(t, j.entries, 3)
	assert.Equal(t, DirectionApply, j.entries[0].Direction)
	assert.Equal(t, DirectionUndo, j.entries[1].Direction)
	assert.Equal(t, DirectionRedo, j.entries[2].Direction)
	assert.Equal(t, j.entries[0].Fingerprint, j.entries[2].Fingerprint)
	assert.NotEqual(t, j.entries[0].Fingerprint, j.entries[1].Fingerprint)
}

func TestLayer_Journal_ErrorIsNotFatal(t *testing.T) {
	j := &memJournal{err: errors.New("disk full")}
	f := newFixture(t, WithJournal(j))

	f.chain(t)
	assert.Equal(t, 3, f.store.Count())
}

func TestLayer_Load_ResetsHistoryAndSelection(t *testing.T) {
	f := newFixture(t)
	f.chain(t)
	snap := f.store.Snapshot()
	require.True(t, f.layer.DeleteEntity("d1"))

	f.layer.Load(snap)

	assert.False(t, f.layer.CanUndo())
	assert.False(t, f.layer.CanRedo())
	assert.Empty(t, f.sel.Selection())
	assert.Equal(t, 500.0, f.airflow(t, "duct2"))
}

// ============================================================================
// Serialization
// ============================================================================

func TestReversible_JSONRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.chain(t)
	z := 2
	require.True(t, f.layer.UpdateEntities([]entitystore.Update{{ID: "duct1", Patch: entity.Patch{ZIndex: &z}}}))
	require.True(t, f.layer.DeleteEntity("duct2"))
	require.True(t, f.layer.MoveEntities([]Move{{ID: "d1", To: entity.IdentityTransform().At(1, 2)}}))

	for _, rc := range f.layer.History().Past() {
		data, err := json.Marshal(rc)
		require.NoError(t, err)

		var back Reversible
		require.NoError(t, json.Unmarshal(data, &back))
		again, err := json.Marshal(back)
		require.NoError(t, err)

		assert.JSONEq(t, string(data), string(again), "type %s", rc.Type)
		assert.Equal(t, rc.Inverse.Type, back.Inverse.Type)
	}
}

func TestCommand_UnmarshalJSON_UnknownType(t *testing.T) {
	var c Command
	err := json.Unmarshal([]byte(`{"id":"x","type":"EXPLODE","payload":{}}`), &c)
	assert.ErrorContains(t, err, "unknown type")
}
