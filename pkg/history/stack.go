// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

// DefaultLimit is the default history retention, in snapshots.
const DefaultLimit = 50

// Stack is an immutable undo/redo stack.
//
// A Stack holds an ordered snapshot sequence and a pointer: -1 when
// empty, otherwise the index of the current snapshot. Entries above the
// pointer form the redo branch. Every operation returns a new Stack
// value and leaves the receiver unchanged; entries slices share snapshot
// pointers but are never written through, which makes old stack values
// safe for concurrent readers.
//
// The zero value is a usable empty stack with DefaultLimit retention;
// NewStack sets an explicit limit.
type Stack struct {
	entries []*Snapshot
	pointer int
	limit   int
}

// State describes what undo/redo operations a stack supports.
type State struct {
	CanUndo   bool
	CanRedo   bool
	UndoCount int
	RedoCount int
}

// NewStack returns an empty stack retaining at most limit snapshots.
// A non-positive limit means DefaultLimit.
func NewStack(limit int) Stack {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Stack{pointer: -1, limit: limit}
}

// Len returns the number of snapshots in the stack.
func (s Stack) Len() int {
	return len(s.entries)
}

// Pointer returns the current index, or -1 for an empty stack.
func (s Stack) Pointer() int {
	if len(s.entries) == 0 {
		return -1
	}
	return s.pointer
}

// Limit returns the retention limit.
func (s Stack) Limit() int {
	if s.limit <= 0 {
		return DefaultLimit
	}
	return s.limit
}

// Push appends snap as the new current snapshot.
//
// The redo branch (entries above the pointer) is removed and returned
// as discarded, in original order. If the result would exceed the
// retention limit, the oldest entries are removed and returned as
// evicted, oldest first, with the pointer adjusted accordingly.
func (s Stack) Push(snap *Snapshot) (next Stack, discarded, evicted []*Snapshot) {
	pointer := s.Pointer()
	limit := s.Limit()

	if branch := s.entries[pointer+1:]; len(branch) > 0 {
		discarded = make([]*Snapshot, len(branch))
		copy(discarded, branch)
	}

	kept := s.entries[:pointer+1]
	entries := make([]*Snapshot, len(kept), len(kept)+1)
	copy(entries, kept)
	entries = append(entries, snap)
	pointer = len(entries) - 1

	for len(entries) > limit {
		evicted = append(evicted, entries[0])
		entries = entries[1:]
		pointer--
	}

	return Stack{entries: entries, pointer: pointer, limit: limit}, discarded, evicted
}

// Undo moves the pointer back one snapshot and returns it.
//
// At the oldest snapshot, or on an empty stack, Undo is a no-op: it
// returns the receiver unchanged and a nil snapshot.
func (s Stack) Undo() (next Stack, snap *Snapshot) {
	if s.Pointer() <= 0 {
		return s, nil
	}
	next = s
	next.pointer--
	return next, next.entries[next.pointer]
}

// Redo moves the pointer forward one snapshot and returns it.
//
// At the newest snapshot, or on an empty stack, Redo is a no-op: it
// returns the receiver unchanged and a nil snapshot.
func (s Stack) Redo() (next Stack, snap *Snapshot) {
	if s.Pointer() >= len(s.entries)-1 {
		return s, nil
	}
	next = s
	next.pointer++
	return next, next.entries[next.pointer]
}

// State derives the undo/redo availability of the stack.
func (s Stack) State() State {
	pointer := s.Pointer()
	undo := pointer
	if undo < 0 {
		undo = 0
	}
	redo := len(s.entries) - 1 - pointer
	if redo < 0 {
		redo = 0
	}
	return State{
		CanUndo:   pointer > 0,
		CanRedo:   pointer < len(s.entries)-1,
		UndoCount: undo,
		RedoCount: redo,
	}
}

// Current returns the snapshot at the pointer, or nil when the stack is
// empty or the pointer is out of range.
func (s Stack) Current() *Snapshot {
	pointer := s.Pointer()
	if pointer < 0 || pointer >= len(s.entries) {
		return nil
	}
	return s.entries[pointer]
}
