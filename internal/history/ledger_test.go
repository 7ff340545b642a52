package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultMaxSize(t *testing.T) {
	assert.Equal(t, DefaultMaxSize, New[int](0).MaxSize())
	assert.Equal(t, DefaultMaxSize, New[int](-3).MaxSize())
	assert.Equal(t, 5, New[int](5).MaxSize())
}

func TestLedger_EmptyStacks(t *testing.T) {
	l := New[string](3)

	assert.False(t, l.CanUndo())
	assert.False(t, l.CanRedo())

	_, ok := l.Undo()
	assert.False(t, ok)
	_, ok = l.Redo()
	assert.False(t, ok)
}

func TestLedger_UndoRedoLIFO(t *testing.T) {
	l := New[int](10)
	l.Push(1)
	l.Push(2)
	l.Push(3)

	v, ok := l.Undo()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	v, _ = l.Undo()
	assert.Equal(t, 2, v)

	assert.Equal(t, []int{1}, l.Past())
	assert.Equal(t, []int{2, 3}, l.Future(), "most recently undone is the next redo")

	v, ok = l.Redo()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, []int{1, 2}, l.Past())
	assert.Equal(t, []int{3}, l.Future())
}

func TestLedger_PushClearsFuture(t *testing.T) {
	l := New[int](10)
	l.Push(1)
	l.Push(2)
	l.Undo()
	require.True(t, l.CanRedo())

	l.Push(9)

	assert.False(t, l.CanRedo())
	_, ok := l.Redo()
	assert.False(t, ok)
	assert.Equal(t, []int{1, 9}, l.Past())
}

func TestLedger_BoundEvictsOldest(t *testing.T) {
	const maxSize, extra = 5, 7
	l := New[int](maxSize)
	for i := 1; i <= maxSize+extra; i++ {
		l.Push(i)
	}

	assert.Equal(t, maxSize, l.PastLen())
	assert.Equal(t, []int{8, 9, 10, 11, 12}, l.Past())
	assert.Equal(t, extra, l.Evicted())
}

func TestLedger_BoundAfterWrapAndUndo(t *testing.T) {
	l := New[int](3)
	for i := 1; i <= 5; i++ {
		l.Push(i)
	}
	l.Undo()
	l.Undo()
	l.Redo()
	l.Push(6)
	l.Push(7)

	assert.Equal(t, []int{4, 6, 7}, l.Past())
	assert.Equal(t, 0, l.FutureLen())
}

func TestLedger_Clear(t *testing.T) {
	l := New[int](3)
	l.Push(1)
	l.Push(2)
	l.Undo()

	l.Clear()

	assert.Equal(t, 0, l.PastLen())
	assert.Equal(t, 0, l.FutureLen())
	assert.Empty(t, l.Past())
	l.Push(3)
	assert.Equal(t, []int{3}, l.Past())
}

func TestLedger_Peek(t *testing.T) {
	l := New[string](3)
	_, ok := l.PeekUndo()
	assert.False(t, ok)

	l.Push("a")
	l.Push("b")
	v, ok := l.PeekUndo()
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, 2, l.PastLen(), "peek does not move")

	l.Undo()
	v, ok = l.PeekRedo()
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestLedger_FullUndoThenRedoRestoresOrder(t *testing.T) {
	l := New[int](4)
	for i := 1; i <= 4; i++ {
		l.Push(i)
	}
	for l.CanUndo() {
		l.Undo()
	}
	for l.CanRedo() {
		l.Redo()
	}
	assert.Equal(t, []int{1, 2, 3, 4}, l.Past())
}
