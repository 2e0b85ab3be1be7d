// Package history keeps the local undo/redo record of field edits. It holds
// no knowledge of persistence; callers write OldValue/NewValue back to the
// store themselves.
package history

import "slidedeck/internal/slide"

// DefaultCapacity bounds the undo stack when no capacity is configured.
const DefaultCapacity = 50

// Entry is one committed field edit.
type Entry struct {
	SlideID  string
	Field    slide.Field
	OldValue string
	NewValue string
}

// Stack is a bounded two-stack history. History is linear: pushing after an
// undo discards everything that could have been redone.
type Stack struct {
	capacity int
	undo     []Entry
	redo     []Entry
}

// New returns a stack bounded to capacity entries.
func New(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{capacity: capacity}
}

// Push records e, evicting the oldest entry beyond capacity, and clears redo.
func (s *Stack) Push(e Entry) {
	s.undo = append(s.undo, e)
	if over := len(s.undo) - s.capacity; over > 0 {
		s.undo = append(s.undo[:0:0], s.undo[over:]...)
	}
	s.redo = s.redo[:0]
}

// Undo moves the most recent entry to the redo stack and returns it.
func (s *Stack) Undo() (Entry, bool) {
	if len(s.undo) == 0 {
		return Entry{}, false
	}
	e := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, e)
	return e, true
}

// Redo moves the most recently undone entry back to the undo stack and
// returns it.
func (s *Stack) Redo() (Entry, bool) {
	if len(s.redo) == 0 {
		return Entry{}, false
	}
	e := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, e)
	return e, true
}

func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// Len returns the sizes of the undo and redo stacks.
func (s *Stack) Len() (undo, redo int) { return len(s.undo), len(s.redo) }

// Capacity returns the undo bound.
func (s *Stack) Capacity() int { return s.capacity }

// Clear drops all history.
func (s *Stack) Clear() {
	s.undo = nil
	s.redo = nil
}
