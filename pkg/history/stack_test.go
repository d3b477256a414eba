// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snap builds a bare snapshot with a recognizable ID.
func snap(id string) *Snapshot {
	return &Snapshot{ID: id}
}

// pushN pushes n snapshots labeled s0..s(n-1) and returns the stack.
func pushN(s Stack, n int) Stack {
	for i := 0; i < n; i++ {
		s, _, _ = s.Push(snap(fmt.Sprintf("s%d", i)))
	}
	return s
}

func TestStack_PushBasics(t *testing.T) {
	s := NewStack(10)
	assert.Equal(t, -1, s.Pointer())
	assert.Nil(t, s.Current())

	next, discarded, evicted := s.Push(snap("a"))
	assert.Empty(t, discarded)
	assert.Empty(t, evicted)
	assert.Equal(t, 0, next.Pointer())
	assert.Equal(t, 1, next.Len())
	require.NotNil(t, next.Current())
	assert.Equal(t, "a", next.Current().ID)

	// The input stack is unchanged.
	assert.Equal(t, -1, s.Pointer())
	assert.Equal(t, 0, s.Len())
}

func TestStack_ZeroValueUsable(t *testing.T) {
	var s Stack
	assert.Equal(t, -1, s.Pointer())
	assert.Equal(t, DefaultLimit, s.Limit())
	assert.Nil(t, s.Current())

	next, redoSnap := s.Redo()
	assert.Nil(t, redoSnap)
	assert.Equal(t, 0, next.Len())

	next, _, _ = s.Push(snap("a"))
	assert.Equal(t, 1, next.Len())
}

func TestStack_UndoRedoBoundaries(t *testing.T) {
	t.Run("undo on empty is a no-op returning the same stack", func(t *testing.T) {
		s := NewStack(10)
		next, got := s.Undo()
		assert.Nil(t, got)
		assert.Equal(t, s, next)
	})

	t.Run("undo at oldest is a no-op returning the same stack", func(t *testing.T) {
		s := pushN(NewStack(10), 1)
		next, got := s.Undo()
		assert.Nil(t, got)
		assert.Equal(t, s, next)
	})

	t.Run("redo at tip is a no-op returning the same stack", func(t *testing.T) {
		s := pushN(NewStack(10), 3)
		next, got := s.Redo()
		assert.Nil(t, got)
		assert.Equal(t, s, next)
	})
}

func TestStack_UndoAfterPushReturnsPrevious(t *testing.T) {
	s := NewStack(10)
	s, _, _ = s.Push(snap("a"))
	s, _, _ = s.Push(snap("b"))

	next, got := s.Undo()
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, 0, next.Pointer())

	// Undoing never mutated the source stack.
	assert.Equal(t, 1, s.Pointer())
	assert.Equal(t, "b", s.Current().ID)
}

func TestStack_RedoBranchTruncation(t *testing.T) {
	s := NewStack(10)
	s, _, _ = s.Push(snap("A"))
	s, _, _ = s.Push(snap("B"))
	s, _, _ = s.Push(snap("C"))

	s, _ = s.Undo() // at B
	s, _ = s.Undo() // at A
	require.Equal(t, 0, s.Pointer())

	next, discarded, evicted := s.Push(snap("D"))
	require.Len(t, discarded, 2)
	assert.Equal(t, "B", discarded[0].ID)
	assert.Equal(t, "C", discarded[1].ID)
	assert.Empty(t, evicted)

	assert.Equal(t, 2, next.Len())
	assert.Equal(t, "D", next.Current().ID)

	// The redo branch is gone for good.
	after, got := next.Redo()
	assert.Nil(t, got)
	assert.Equal(t, next, after)
}

func TestStack_CapacityEviction(t *testing.T) {
	const limit = 5
	const extra = 3

	s := NewStack(limit)
	var allEvicted []*Snapshot
	for i := 0; i < limit+extra; i++ {
		var evicted []*Snapshot
		s, _, evicted = s.Push(snap(fmt.Sprintf("s%d", i)))
		allEvicted = append(allEvicted, evicted...)
	}

	assert.Equal(t, limit, s.Len())
	assert.Equal(t, limit-1, s.Pointer())

	// The oldest `extra` snapshots were evicted oldest-first.
	require.Len(t, allEvicted, extra)
	for i, ev := range allEvicted {
		assert.Equal(t, fmt.Sprintf("s%d", i), ev.ID)
	}

	// Oldest surviving entry is reachable by undoing to the bottom.
	for {
		next, got := s.Undo()
		if got == nil {
			break
		}
		s = next
	}
	assert.Equal(t, fmt.Sprintf("s%d", extra), s.Current().ID)
}

func TestStack_StateDerivation(t *testing.T) {
	s := NewStack(10)
	assert.Equal(t, State{}, s.State())

	s = pushN(s, 4) // s0..s3, pointer at 3

	st := s.State()
	assert.Equal(t, State{CanUndo: true, CanRedo: false, UndoCount: 3, RedoCount: 0}, st)

	for i := 0; i < 3; i++ {
		s, _ = s.Undo()
	}
	assert.Equal(t, 0, s.Pointer())
	assert.Equal(t, State{CanUndo: false, CanRedo: true, UndoCount: 0, RedoCount: 3}, s.State())

	for i := 0; i < 2; i++ {
		s, _ = s.Redo()
	}
	assert.Equal(t, 2, s.Pointer())
	assert.Equal(t, State{CanUndo: true, CanRedo: true, UndoCount: 2, RedoCount: 1}, s.State())
}

func TestStack_OldValuesStayValidAfterPush(t *testing.T) {
	s1 := pushN(NewStack(10), 3)
	s2, _ := s1.Undo()
	s3, discarded, _ := s2.Push(snap("replacement"))

	// s1 and s2 still see the pre-push world.
	assert.Equal(t, "s2", s1.Current().ID)
	assert.Equal(t, "s1", s2.Current().ID)
	assert.Equal(t, 3, s1.Len())

	require.Len(t, discarded, 1)
	assert.Equal(t, "s2", discarded[0].ID)
	assert.Equal(t, "replacement", s3.Current().ID)
}

func TestStack_LimitDefaulting(t *testing.T) {
	assert.Equal(t, DefaultLimit, NewStack(0).Limit())
	assert.Equal(t, DefaultLimit, NewStack(-3).Limit())
	assert.Equal(t, 7, NewStack(7).Limit())
}
