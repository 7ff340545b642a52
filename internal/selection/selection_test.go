package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_ZeroValueIsEmpty(t *testing.T) {
	var s Set
	assert.Empty(t, s.Selection())
	assert.Equal(t, 0, s.Count())
}

func TestSet_SetSelection_DedupesPreservingOrder(t *testing.T) {
	s := New("b", "a", "b", "c")
	assert.Equal(t, []string{"b", "a", "c"}, s.Selection())
}

func TestSet_Selection_ReturnsCopy(t *testing.T) {
	s := New("a")
	got := s.Selection()
	got[0] = "mutated"
	assert.Equal(t, []string{"a"}, s.Selection())
}

func TestSet_SelectReplaces(t *testing.T) {
	s := New("a", "b")
	s.Select("c")
	assert.Equal(t, []string{"c"}, s.Selection())

	s.SelectMultiple([]string{"x", "y"})
	assert.Equal(t, []string{"x", "y"}, s.Selection())
}

func TestSet_AddRemoveToggle(t *testing.T) {
	s := New()
	s.Add("a")
	s.Add("a")
	s.Add("b")
	assert.Equal(t, []string{"a", "b"}, s.Selection())

	s.Toggle("a")
	assert.Equal(t, []string{"b"}, s.Selection())
	s.Toggle("a")
	assert.Equal(t, []string{"b", "a"}, s.Selection())

	s.Remove("b")
	assert.True(t, s.IsSelected("a"))
	assert.False(t, s.IsSelected("b"))
}

func TestSet_RemoveManyAndClear(t *testing.T) {
	s := New("a", "b", "c")
	s.RemoveMany([]string{"a", "c", "zzz"})
	assert.Equal(t, []string{"b"}, s.Selection())

	s.Clear()
	assert.Equal(t, 0, s.Count())
}
