// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"context"
	"sync"

	"github.com/planloft/planloft/pkg/plan"
)

// MemoryStore is a map-backed Store for tests and ephemeral sessions.
//
// Fault injection: setting FailSaves, FailLoads or FailDeletes makes the
// corresponding image operations return that error without touching the
// map. This is how pool failure paths are exercised in tests.
//
// Thread Safety: safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	images  map[string][]byte
	project *plan.Document

	// FailSaves, when non-nil, is returned by every SaveImage call.
	FailSaves error

	// FailLoads, when non-nil, is returned by every LoadImage call.
	FailLoads error

	// FailDeletes, when non-nil, is returned by every DeleteImage call.
	FailDeletes error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		images: make(map[string][]byte),
	}
}

// SaveImage stores a copy of blob under ref.
func (s *MemoryStore) SaveImage(ctx context.Context, ref string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailSaves != nil {
		return s.FailSaves
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	s.images[ref] = cp
	return nil
}

// LoadImage returns a copy of the blob under ref, or (nil, nil) if absent.
func (s *MemoryStore) LoadImage(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailLoads != nil {
		return nil, s.FailLoads
	}
	blob, ok := s.images[ref]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

// DeleteImage removes the entry for ref.
func (s *MemoryStore) DeleteImage(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDeletes != nil {
		return s.FailDeletes
	}
	delete(s.images, ref)
	return nil
}

// ClearImages removes every image entry.
func (s *MemoryStore) ClearImages(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = make(map[string][]byte)
	return nil
}

// SaveProject stores doc as the current project.
func (s *MemoryStore) SaveProject(ctx context.Context, doc *plan.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.project = doc
	return nil
}

// LoadProject returns the current project, or (nil, nil) if none saved.
func (s *MemoryStore) LoadProject(ctx context.Context) (*plan.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.project, nil
}

// Clear removes the saved project.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.project = nil
	return nil
}

// ImageCount returns the number of stored image entries.
//
// Test helper; not part of the Store interface.
func (s *MemoryStore) ImageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.images)
}

// HasImage reports whether ref has a stored entry.
//
// Test helper; not part of the Store interface.
func (s *MemoryStore) HasImage(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.images[ref]
	return ok
}
