// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/planloft/planloft/pkg/imagepool"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Limit is the history retention in snapshots.
	Limit int

	// Logger receives release-failure warnings. Nil means silent.
	Logger *slog.Logger
}

// ManagerOption is a functional option for configuring a Manager.
type ManagerOption func(*ManagerOptions)

// WithLimit sets the history retention limit.
func WithLimit(n int) ManagerOption {
	return func(o *ManagerOptions) {
		if n > 0 {
			o.Limit = n
		}
	}
}

// WithLogger sets the logger for release-failure warnings.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(o *ManagerOptions) {
		o.Logger = l
	}
}

// Manager is the stateful undo/redo façade over Stack and an image pool.
//
// On every Push, snapshots that become unreachable — the truncated redo
// branch and anything evicted by the retention limit — have their image
// refs released in the background. Push returns before those releases
// complete: a transient store failure during cleanup only leaks a
// backing-store entry, it never blocks or corrupts the user's next
// action. Undo and Redo never release anything.
//
// Thread Safety: safe for concurrent use, but the engine assumes one
// logical editor session drives it.
type Manager struct {
	mu    sync.Mutex
	stack Stack

	pool     *imagepool.Pool
	logger   *slog.Logger
	releases sync.WaitGroup
}

// NewManager creates a Manager over the given pool.
func NewManager(pool *imagepool.Pool, opts ...ManagerOption) (*Manager, error) {
	if pool == nil {
		return nil, errors.New("history: pool must not be nil")
	}

	options := ManagerOptions{Limit: DefaultLimit}
	for _, opt := range opts {
		opt(&options)
	}

	return &Manager{
		stack:  NewStack(options.Limit),
		pool:   pool,
		logger: options.Logger,
	}, nil
}

// Push records snap as the new current snapshot.
//
// Every image ref held by a discarded or evicted snapshot is released
// asynchronously; one release failure never prevents the others, and
// failures are logged and counted by the pool rather than propagated.
func (m *Manager) Push(snap *Snapshot) {
	m.mu.Lock()
	next, discarded, evicted := m.stack.Push(snap)
	m.stack = next
	m.mu.Unlock()

	for _, garbage := range discarded {
		m.releaseSnapshot(garbage)
	}
	for _, garbage := range evicted {
		m.releaseSnapshot(garbage)
	}
}

// Undo steps back one snapshot and returns it, or nil at the boundary.
func (m *Manager) Undo() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, snap := m.stack.Undo()
	m.stack = next
	return snap
}

// Redo steps forward one snapshot and returns it, or nil at the boundary.
func (m *Manager) Redo() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, snap := m.stack.Redo()
	m.stack = next
	return snap
}

// State returns the current undo/redo availability.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stack.State()
}

// Current returns the current snapshot, or nil for an empty history.
func (m *Manager) Current() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stack.Current()
}

// Reset empties the history and resets the pool, clearing counts, the
// LRU cache and the image namespace of the backing store.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	limit := m.stack.Limit()
	m.stack = NewStack(limit)
	m.mu.Unlock()

	m.releases.Wait()
	return m.pool.Reset(ctx)
}

// Wait blocks until every in-flight background release has finished.
// Intended for tests and orderly shutdown.
func (m *Manager) Wait() {
	m.releases.Wait()
}

// releaseSnapshot frees every image ref of one garbage snapshot in the
// background. Each ref is released independently so one failure cannot
// shadow the rest.
func (m *Manager) releaseSnapshot(snap *Snapshot) {
	refs := snap.ImageRefs()
	if len(refs) == 0 {
		return
	}

	m.releases.Add(1)
	go func() {
		defer m.releases.Done()
		for _, ref := range refs {
			if err := m.pool.Release(context.Background(), ref); err != nil && m.logger != nil {
				m.logger.Warn("snapshot image release failed",
					slog.String("snapshot", snap.ID),
					slog.String("ref", string(ref)),
					slog.String("error", err.Error()))
			}
		}
	}()
}

// ComputeRef derives the pool fingerprint for blob.
func (m *Manager) ComputeRef(blob []byte) imagepool.Ref {
	return m.pool.ComputeRef(blob)
}

// RegisterImage adds blob to the image pool and returns its ref.
func (m *Manager) RegisterImage(ctx context.Context, blob []byte) (imagepool.Ref, error) {
	return m.pool.Register(ctx, blob)
}

// ReleaseImage drops one reference to ref.
func (m *Manager) ReleaseImage(ctx context.Context, ref imagepool.Ref) error {
	return m.pool.Release(ctx, ref)
}

// ResolveImage returns the blob for ref, or (nil, nil) when unavailable.
func (m *Manager) ResolveImage(ctx context.Context, ref imagepool.Ref) ([]byte, error) {
	return m.pool.Resolve(ctx, ref)
}

// ClearCache drops the pool's LRU cache contents.
func (m *Manager) ClearCache() {
	m.pool.ClearCache()
}
