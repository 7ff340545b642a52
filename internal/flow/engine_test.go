package flow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/graph"
	"github.com/engryamato/hvaccore/internal/testutil"
)

func compute(t *testing.T, eng *Engine, es ...entity.Entity) Result {
	t.Helper()
	byID := make(map[string]entity.Entity, len(es))
	for _, e := range es {
		byID[e.ID] = e
	}
	res, err := eng.Compute(graph.Build(es), byID)
	require.NoError(t, err)
	return res
}

// ============================================================================
// Propagation
// ============================================================================

func TestCompute_ChainPropagation(t *testing.T) {
	res := compute(t, New(),
		testutil.Diffuser("src", 1000, "a"),
		testutil.Duct("a", "b"),
		testutil.Duct("b", ""),
	)

	assert.Equal(t, 1000.0, res.Flows["a"])
	assert.Equal(t, 1000.0, res.Flows["b"])
	assert.Equal(t, 1000.0, res.Flows["src"], "source carries its own capacity")
	assert.Empty(t, res.Skipped)
}

func TestCompute_UnreachedNodesAreZero(t *testing.T) {
	res := compute(t, New(),
		testutil.Duct("a", "b"),
		testutil.Duct("b", ""),
		testutil.Fitting("f", ""),
	)

	assert.Equal(t, map[string]float64{"a": 0, "b": 0, "f": 0}, res.Flows)
}

func TestCompute_MultipleSourcesSum(t *testing.T) {
	res := compute(t, New(),
		testutil.Diffuser("s1", 300, "branch1"),
		testutil.Diffuser("s2", 200, "branch2"),
		testutil.Duct("branch1", "tee"),
		testutil.Duct("branch2", "tee"),
		testutil.Fitting("tee", "trunk"),
		testutil.Duct("trunk", ""),
	)

	assert.Equal(t, 300.0, res.Flows["branch1"])
	assert.Equal(t, 200.0, res.Flows["branch2"])
	assert.Equal(t, 500.0, res.Flows["tee"])
	assert.Equal(t, 500.0, res.Flows["trunk"])
}

func TestCompute_SourceFeedingSource(t *testing.T) {
	res := compute(t, New(),
		testutil.Diffuser("s1", 100, "s2"),
		testutil.Diffuser("s2", 50, "d"),
		testutil.Duct("d", ""),
	)

	assert.Equal(t, 150.0, res.Flows["s2"])
	assert.Equal(t, 150.0, res.Flows["d"])
}

func TestCompute_RoomsPassThroughWithoutAccumulating(t *testing.T) {
	res := compute(t, New(),
		testutil.Diffuser("s", 400, "room"),
		testutil.Room("room", "d"),
		testutil.Duct("d", ""),
	)

	_, hasRoom := res.Flows["room"]
	assert.False(t, hasRoom)
	assert.Equal(t, 400.0, res.Flows["d"])
}

func TestCompute_NonSourceEquipmentCarriesFlow(t *testing.T) {
	res := compute(t, New(),
		testutil.Diffuser("s", 250, "fan"),
		testutil.Equipment("fan", entity.EquipmentFan, 5000, ""),
	)
	assert.Equal(t, 250.0, res.Flows["fan"])
}

func TestCompute_CustomSourceTypes(t *testing.T) {
	es := []entity.Entity{
		testutil.Equipment("fan", entity.EquipmentFan, 2000, "d"),
		testutil.Diffuser("diff", 100, "d"),
		testutil.Duct("d", ""),
	}

	res := compute(t, New(WithSourceTypes(entity.EquipmentFan)), es...)

	assert.Equal(t, 2000.0, res.Flows["d"])
	assert.Equal(t, 0.0, res.Flows["diff"])
}

func TestCompute_DanglingReferenceIsDeadEnd(t *testing.T) {
	res := compute(t, New(),
		testutil.Diffuser("s", 100, "a"),
		testutil.Duct("a", "gone"),
	)
	assert.Equal(t, 100.0, res.Flows["a"])
}

// ============================================================================
// Cycles
// ============================================================================

func TestCompute_CycleTruncates(t *testing.T) {
	res := compute(t, New(),
		testutil.Diffuser("s", 100, "a"),
		testutil.Duct("a", "b"),
		testutil.Duct("b", "c"),
		testutil.Duct("c", "a"),
	)

	assert.Equal(t, 100.0, res.Flows["a"])
	assert.Equal(t, 100.0, res.Flows["b"])
	assert.Equal(t, 100.0, res.Flows["c"])
}

func TestCompute_SelfLoopSource(t *testing.T) {
	res := compute(t, New(), testutil.Diffuser("s", 70, "s"))
	assert.Equal(t, 70.0, res.Flows["s"])
}

func TestCompute_TwoSourcesIntoCycle(t *testing.T) {
	res := compute(t, New(),
		testutil.Diffuser("s1", 10, "a"),
		testutil.Diffuser("s2", 5, "b"),
		testutil.Duct("a", "b"),
		testutil.Duct("b", "a"),
	)

	assert.Equal(t, 15.0, res.Flows["a"])
	assert.Equal(t, 15.0, res.Flows["b"])
}

// ============================================================================
// Determinism and bad data
// ============================================================================

func TestCompute_OrderIndependent(t *testing.T) {
	es := []entity.Entity{
		testutil.Diffuser("s1", 0.1, "d"),
		testutil.Diffuser("s2", 0.2, "d"),
		testutil.Diffuser("s3", 0.3, "d"),
		testutil.Duct("d", ""),
	}
	reversed := []entity.Entity{es[3], es[2], es[1], es[0]}

	a := compute(t, New(), es...)
	b := compute(t, New(), reversed...)

	assert.Equal(t, a.Flows, b.Flows)
}

func TestCompute_InvalidCapacitySkipped(t *testing.T) {
	for _, c := range []float64{math.NaN(), math.Inf(1), -5} {
		res := compute(t, New(),
			testutil.Diffuser("bad", c, "d"),
			testutil.Diffuser("good", 10, "d"),
			testutil.Duct("d", ""),
		)

		assert.Equal(t, 10.0, res.Flows["d"])
		require.Len(t, res.Skipped, 1)
		assert.Equal(t, "bad", res.Skipped[0].NodeID)
	}
}

func TestCompute_MissingEntitySkipped(t *testing.T) {
	es := []entity.Entity{testutil.Diffuser("s", 10, "d"), testutil.Duct("d", "")}
	res, err := New().Compute(graph.Build(es), map[string]entity.Entity{"s": es[0]})

	require.NoError(t, err)
	assert.Equal(t, []Skip{{NodeID: "d", Reason: "node missing from entity table"}}, res.Skipped)
	_, ok := res.Flows["d"]
	assert.False(t, ok)
}

func TestCompute_MismatchedPropsSkipped(t *testing.T) {
	bad := testutil.Duct("d", "")
	bad.Props = entity.RoomProps{Name: "broken"}

	res := compute(t, New(), testutil.Diffuser("s", 10, "d"), bad)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "d", res.Skipped[0].NodeID)
	assert.Equal(t, 10.0, res.Flows["s"])
}

func TestCompute_NilGraph(t *testing.T) {
	_, err := New().Compute(nil, nil)
	require.Error(t, err)
	assert.True(t, IsComputeError(err))
	assert.Equal(t, ErrCodeNilGraph, CodeOf(err))
}

func TestCompute_OverflowFailsWholeComputation(t *testing.T) {
	es := []entity.Entity{
		testutil.Diffuser("s1", math.MaxFloat64, "d"),
		testutil.Diffuser("s2", math.MaxFloat64, "d"),
		testutil.Duct("d", ""),
	}
	byID := map[string]entity.Entity{"s1": es[0], "s2": es[1], "d": es[2]}

	res, err := New().Compute(graph.Build(es), byID)

	require.Error(t, err)
	assert.Equal(t, ErrCodeNonFinite, CodeOf(err))
	assert.Nil(t, res.Flows, "no partial map on failure")
}

func TestEngine_SourceTypes(t *testing.T) {
	assert.Equal(t,
		[]entity.EquipmentType{entity.EquipmentDamper, entity.EquipmentDiffuser, entity.EquipmentHood},
		New().SourceTypes())
}

func TestComputeError_Error(t *testing.T) {
	err := &ComputeError{Code: ErrCodeDanglingEdge, Message: "bad", NodeID: "x"}
	assert.Equal(t, "DANGLING_EDGE: bad (node=x)", err.Error())
	assert.False(t, IsComputeError(assert.AnError))
	assert.Equal(t, ComputeErrorCode(""), CodeOf(assert.AnError))
}
