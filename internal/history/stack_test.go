package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/slide"
)

func entry(n int) Entry {
	return Entry{SlideID: "s1", Field: slide.FieldTitle, OldValue: fmt.Sprint(n - 1), NewValue: fmt.Sprint(n)}
}

func TestUndoRedoIsStrictLIFO(t *testing.T) {
	s := New(10)
	e1, e2, e3 := entry(1), entry(2), entry(3)
	s.Push(e1)
	s.Push(e2)
	s.Push(e3)

	got, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, e3, got)
	got, ok = s.Undo()
	require.True(t, ok)
	assert.Equal(t, e2, got)

	assert.Equal(t, []Entry{e1}, s.undo)
	assert.Equal(t, []Entry{e3, e2}, s.redo, "redo top is the last element")

	got, ok = s.Redo()
	require.True(t, ok)
	assert.Equal(t, e2, got)
	assert.Equal(t, []Entry{e1, e2}, s.undo)
	assert.Equal(t, []Entry{e3}, s.redo)
}

func TestPushUndoRedoRoundTrip(t *testing.T) {
	s := New(5)
	s.Push(entry(1))
	s.Push(entry(2))
	wantUndo := append([]Entry(nil), s.undo...)

	_, ok := s.Undo()
	require.True(t, ok)
	_, ok = s.Redo()
	require.True(t, ok)

	assert.Equal(t, wantUndo, s.undo)
	assert.Empty(t, s.redo)
}

func TestPushAfterUndoClearsRedo(t *testing.T) {
	s := New(5)
	s.Push(entry(1))
	s.Push(entry(2))
	s.Undo()
	require.True(t, s.CanRedo())

	s.Push(entry(3))
	assert.False(t, s.CanRedo())
	_, ok := s.Redo()
	assert.False(t, ok)
}

func TestCapacityEvictsOldest(t *testing.T) {
	const capacity = 4
	s := New(capacity)
	for i := 1; i <= capacity+1; i++ {
		s.Push(entry(i))
	}
	undo, _ := s.Len()
	assert.Equal(t, capacity, undo)

	for i := 0; i < capacity; i++ {
		e, ok := s.Undo()
		require.True(t, ok)
		assert.NotEqual(t, entry(1), e, "evicted entry must never come back")
	}
	_, ok := s.Undo()
	assert.False(t, ok)
}

func TestEmptyStack(t *testing.T) {
	s := New(0)
	assert.Equal(t, DefaultCapacity, s.Capacity())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	_, ok := s.Undo()
	assert.False(t, ok)
	_, ok = s.Redo()
	assert.False(t, ok)
}
