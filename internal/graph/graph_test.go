package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/testutil"
)

// ============================================================================
// Build
// ============================================================================

func TestBuild_Empty(t *testing.T) {
	g := Build(nil)
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.Cycles())
}

func TestBuild_KeepsInsertionOrderAndEdges(t *testing.T) {
	g := Build([]entity.Entity{
		testutil.Diffuser("s", 100, "a"),
		testutil.Duct("a", "b"),
		testutil.Duct("b", ""),
	})

	assert.Equal(t, []string{"s", "a", "b"}, g.Nodes())
	assert.Equal(t, []Edge{{From: "s", To: "a"}, {From: "a", To: "b"}}, g.Edges())

	to, ok := g.Successor("a")
	require.True(t, ok)
	assert.Equal(t, "b", to)

	_, ok = g.Successor("b")
	assert.False(t, ok)
}

func TestBuild_DropsDanglingReferences(t *testing.T) {
	g := Build([]entity.Entity{
		testutil.Duct("a", "deleted"),
	})

	assert.True(t, g.Has("a"))
	assert.False(t, g.Has("deleted"))
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuild_FirstDuplicateWins(t *testing.T) {
	g := Build([]entity.Entity{
		testutil.Duct("a", ""),
		testutil.Duct("b", ""),
		testutil.Duct("a", "b"),
	})

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestBuild_IsPure(t *testing.T) {
	es := []entity.Entity{testutil.Duct("a", "b"), testutil.Duct("b", "")}
	g1 := Build(es)
	g2 := Build(es)

	assert.Equal(t, g1.Edges(), g2.Edges())
	assert.Equal(t, "b", es[0].ConnectedTo)
}

func TestGraph_Predecessors_NodeOrder(t *testing.T) {
	g := Build([]entity.Entity{
		testutil.Duct("z", "m"),
		testutil.Duct("a", "m"),
		testutil.Duct("m", ""),
	})

	assert.Equal(t, []string{"z", "a"}, g.Predecessors("m"))
	assert.Empty(t, g.Predecessors("z"))
}

func TestGraph_Kind(t *testing.T) {
	g := Build([]entity.Entity{testutil.Room("r", "")})
	k, ok := g.Kind("r")
	require.True(t, ok)
	assert.Equal(t, entity.KindRoom, k)
}

// ============================================================================
// Traversal
// ============================================================================

func chain() *Graph {
	// s1 -> a -> b -> c ; s2 -> b ; x isolated
	return Build([]entity.Entity{
		testutil.Diffuser("s1", 100, "a"),
		testutil.Diffuser("s2", 50, "b"),
		testutil.Duct("a", "b"),
		testutil.Duct("b", "c"),
		testutil.Duct("c", ""),
		testutil.Duct("x", ""),
	})
}

func TestGraph_Downstream(t *testing.T) {
	g := chain()
	assert.Equal(t, []string{"a", "b", "c"}, g.Downstream("s1"))
	assert.Empty(t, g.Downstream("c"))
	assert.Empty(t, g.Downstream("missing"))
}

func TestGraph_Downstream_CycleIncludesStart(t *testing.T) {
	g := Build([]entity.Entity{testutil.Duct("a", "b"), testutil.Duct("b", "a")})
	assert.Equal(t, []string{"b", "a"}, g.Downstream("a"))
}

func TestGraph_Upstream(t *testing.T) {
	g := chain()
	assert.ElementsMatch(t, []string{"a", "s2", "s1"}, g.Upstream("b"))
	assert.Empty(t, g.Upstream("s1"))
}

func TestGraph_Neighborhood(t *testing.T) {
	g := chain()
	assert.ElementsMatch(t, []string{"a", "c", "s2"}, g.Neighborhood("b", 1))
	assert.ElementsMatch(t, []string{"a", "c", "s2", "s1"}, g.Neighborhood("b", 2))
	assert.Nil(t, g.Neighborhood("b", 0))
	assert.Nil(t, g.Neighborhood("x", 3))
}

func TestGraph_Path(t *testing.T) {
	g := chain()

	p, ok := g.Path("s1", "c")
	require.True(t, ok)
	assert.Equal(t, []string{"s1", "a", "b", "c"}, p)

	_, ok = g.Path("c", "s1")
	assert.False(t, ok)

	p, ok = g.Path("x", "x")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, p)
}

func TestGraph_Affected(t *testing.T) {
	g := chain()
	assert.Equal(t, []string{"s1", "a", "b", "c"}, g.Affected("a"))
	assert.Equal(t, []string{"x"}, g.Affected("x"))
	assert.Nil(t, g.Affected("missing"))
}

// ============================================================================
// Cycles
// ============================================================================

func TestGraph_Cycles_None(t *testing.T) {
	assert.Empty(t, chain().Cycles())
}

func TestGraph_Cycles_SelfLoop(t *testing.T) {
	g := Build([]entity.Entity{testutil.Duct("a", "a")})
	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "a"}, cycles[0].Path)
}

func TestGraph_Cycles_LoopWithTail(t *testing.T) {
	g := Build([]entity.Entity{
		testutil.Diffuser("s", 10, "a"),
		testutil.Duct("a", "b"),
		testutil.Duct("b", "c"),
		testutil.Duct("c", "a"),
	})

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0].Path)
	assert.Contains(t, cycles[0].Message, "a → b → c → a")
}

func TestGraph_Cycles_Independent(t *testing.T) {
	g := Build([]entity.Entity{
		testutil.Duct("a", "b"),
		testutil.Duct("b", "a"),
		testutil.Duct("c", "d"),
		testutil.Duct("d", "c"),
	})
	assert.Len(t, g.Cycles(), 2)
}
