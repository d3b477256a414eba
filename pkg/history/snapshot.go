// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history records snapshots of plan state and supports undo/redo
// with branch truncation and bounded retention.
//
// The package has two layers. Stack is a pure immutable value: every
// operation returns a new stack plus auxiliary results and never mutates
// its receiver. Manager composes a Stack with an image pool and is the
// single place that knows a discarded or evicted snapshot's images must
// be freed.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/planloft/planloft/pkg/imagepool"
	"github.com/planloft/planloft/pkg/plan"
)

// Snapshot captures plan state at a point in time.
//
// Snapshots are immutable once built. Image payloads are held as pool
// refs, never inline bytes, so a snapshot is cheap to keep regardless of
// image size.
type Snapshot struct {
	// ID uniquely identifies the snapshot.
	ID string

	// TakenAt is the capture time. Within one Builder it is
	// monotonically non-decreasing even if the wall clock steps back.
	TakenAt time.Time

	// Objects is the serializable editable-object state.
	Objects []plan.Object

	// BackgroundRef is the pooled background image, if any.
	BackgroundRef imagepool.Ref

	// Render maps object ID to the renderer state needed to rebuild
	// its visual representation. Objects with no renderable
	// representation at capture time are absent.
	Render map[string]plan.RenderState
}

// ImageRefs returns every pool ref the snapshot holds: the background
// ref first (if set), then the ref of each image object in document
// order. One entry per holding site — no deduplication — so the list
// matches the registrations the snapshot accounts for.
func (s *Snapshot) ImageRefs() []imagepool.Ref {
	if s == nil {
		return nil
	}
	var refs []imagepool.Ref
	if !s.BackgroundRef.IsZero() {
		refs = append(refs, s.BackgroundRef)
	}
	for _, obj := range s.Objects {
		if obj.Kind == plan.KindImage && obj.ImageRef != "" {
			refs = append(refs, imagepool.Ref(obj.ImageRef))
		}
	}
	return refs
}

// RenderStateFunc supplies the current renderer state for an object.
// Returning false means the object has no renderable representation and
// is omitted from the snapshot's render map.
type RenderStateFunc func(objectID string) (plan.RenderState, bool)

// Builder captures snapshots with monotonically non-decreasing
// timestamps.
//
// Thread Safety: NOT safe for concurrent use; one builder per session.
type Builder struct {
	now  func() time.Time
	last time.Time
}

// NewBuilder returns a Builder using the wall clock.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// newBuilderWithClock is the test seam for injecting a clock.
func newBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Capture builds an immutable snapshot of the given state.
//
// Objects are copied; getRender is consulted once per object and may be
// nil, in which case the render map is empty.
func (b *Builder) Capture(objects []plan.Object, backgroundRef imagepool.Ref, getRender RenderStateFunc) *Snapshot {
	ts := b.now()
	if ts.Before(b.last) {
		ts = b.last
	}
	b.last = ts

	render := make(map[string]plan.RenderState, len(objects))
	if getRender != nil {
		for _, obj := range objects {
			if state, ok := getRender(obj.ID); ok {
				render[obj.ID] = state.Clone()
			}
		}
	}

	return &Snapshot{
		ID:            uuid.NewString(),
		TakenAt:       ts,
		Objects:       plan.CloneObjects(objects),
		BackgroundRef: backgroundRef,
		Render:        render,
	}
}
