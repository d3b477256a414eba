// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage defines the persistent store boundary for the history
// engine and provides an in-memory implementation for tests.
//
// The engine depends only on these narrow interfaces; the concrete
// implementation (BadgerDB, browser storage in the original product) is
// injected. Absent keys are never errors: loads return (nil, nil).
package storage

import (
	"context"

	"github.com/planloft/planloft/pkg/plan"
)

// BlobStore is durable key -> blob storage for pooled images.
//
// Keys are image pool fingerprints. Implementations must treat a load of
// an absent key as (nil, nil), not an error, and deletes of absent keys
// as no-ops.
type BlobStore interface {
	// SaveImage persists blob under ref, overwriting any existing entry.
	SaveImage(ctx context.Context, ref string, blob []byte) error

	// LoadImage returns the blob stored under ref, or (nil, nil) if the
	// ref has no entry.
	LoadImage(ctx context.Context, ref string) ([]byte, error)

	// DeleteImage removes the entry for ref. Deleting an absent ref is
	// a no-op.
	DeleteImage(ctx context.Context, ref string) error

	// ClearImages removes every image entry.
	ClearImages(ctx context.Context) error
}

// ProjectStore persists the whole-project document.
//
// This is the serialization half of the shared adapter; the history core
// itself only uses BlobStore.
type ProjectStore interface {
	// SaveProject persists doc as the current project.
	SaveProject(ctx context.Context, doc *plan.Document) error

	// LoadProject returns the current project, or (nil, nil) if none
	// has been saved.
	LoadProject(ctx context.Context) (*plan.Document, error)

	// Clear removes the saved project.
	Clear(ctx context.Context) error
}

// Store combines both halves of the adapter.
type Store interface {
	BlobStore
	ProjectStore
}
