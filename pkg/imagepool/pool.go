// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package imagepool deduplicates image blobs by content fingerprint and
// reference-counts them across history snapshots.
//
// A Pool fronts a persistent blob store with a bounded in-memory LRU
// cache. Registration persists a blob once per distinct content and
// counts every holder; release decrements, and the backing entry is
// deleted exactly when the count reaches zero. Reference counts live
// only in process memory for the lifetime of one Pool instance — a fresh
// instance has no memory of prior registrations.
package imagepool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/planloft/planloft/pkg/storage"
)

// Pool is a deduplicating, reference-counted image blob pool.
//
// Thread Safety:
//
//	Pool is driven by one logical editor session. Internal state is
//	mutex-guarded so the manager's background release goroutines are
//	safe, but callers must not assume releases issued by a concurrent
//	Push are visible synchronously.
type Pool struct {
	mu     sync.Mutex
	counts map[Ref]int
	cache  *blobLRU

	store   storage.BlobStore
	flight  singleflight.Group
	options Options

	// Stats
	hits          int64
	misses        int64
	evictions     int64
	registrations int64
	releases      int64
	leaked        int64
}

// NewPool creates a Pool over the given blob store.
func NewPool(store storage.BlobStore, opts ...Option) (*Pool, error) {
	if store == nil {
		return nil, errors.New("imagepool: store must not be nil")
	}

	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Pool{
		counts:  make(map[Ref]int),
		cache:   newBlobLRU(options.CacheSize),
		store:   store,
		options: options,
	}, nil
}

// ComputeRef derives the content fingerprint for blob.
//
// Pure and deterministic; identical content always yields the same Ref
// within and across process runs.
func (p *Pool) ComputeRef(blob []byte) Ref {
	return p.options.Fingerprinter.Fingerprint(blob)
}

// Register adds blob to the pool and returns its ref.
//
// Description:
//
//	The first registration of a given content persists the blob to the
//	backing store before the ref becomes resolvable; this is the only
//	path that writes image data. Registering identical content again
//	only increments the reference count. Every registration inserts or
//	promotes the blob in the LRU cache.
//
// Outputs:
//
//	Ref - The content fingerprint, valid as a Resolve/Release key.
//	error - ErrEmptyBlob for zero-length content, or a store I/O failure.
func (p *Pool) Register(ctx context.Context, blob []byte) (Ref, error) {
	if len(blob) == 0 {
		return "", ErrEmptyBlob
	}

	ctx, span := startPoolSpan(ctx, "Register")
	defer span.End()

	ref := p.ComputeRef(blob)

	p.mu.Lock()
	known := p.counts[ref] > 0
	p.mu.Unlock()

	if !known {
		// Persist before the ref becomes resolvable. A single logical
		// session drives the pool, so no second Register for this ref
		// can slip in between the check and the save.
		if err := p.store.SaveImage(ctx, string(ref), blob); err != nil {
			return "", fmt.Errorf("imagepool: save %s: %w", ref, err)
		}
	}

	cp := make([]byte, len(blob))
	copy(cp, blob)

	p.mu.Lock()
	p.counts[ref]++
	if _, evicted := p.cache.add(ref, cp); evicted {
		atomic.AddInt64(&p.evictions, 1)
		recordCacheEviction(ctx)
	}
	p.mu.Unlock()

	atomic.AddInt64(&p.registrations, 1)
	recordRegistration(ctx)
	return ref, nil
}

// Release drops one reference to ref.
//
// Description:
//
//	When the last reference is dropped, the count entry is removed, the
//	blob is deleted from the backing store and evicted from the LRU.
//	Releasing a ref with no known count is a safe no-op.
//
// Outputs:
//
//	error - Non-nil only for a backing-store delete failure. The count
//	entry is already gone at that point: the blob leaks in the store,
//	which is counted in Stats().Leaked and logged.
func (p *Pool) Release(ctx context.Context, ref Ref) error {
	if ref.IsZero() {
		return nil
	}

	ctx, span := startPoolSpan(ctx, "Release")
	defer span.End()

	p.mu.Lock()
	count, ok := p.counts[ref]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	if count > 1 {
		p.counts[ref] = count - 1
		p.mu.Unlock()
		return nil
	}
	delete(p.counts, ref)
	p.cache.remove(ref)
	p.mu.Unlock()

	atomic.AddInt64(&p.releases, 1)
	recordRelease(ctx)

	if err := p.store.DeleteImage(ctx, string(ref)); err != nil {
		atomic.AddInt64(&p.leaked, 1)
		recordLeakedRef(ctx)
		if p.options.Logger != nil {
			p.options.Logger.Warn("image delete failed, entry leaked in store",
				slog.String("ref", string(ref)),
				slog.String("error", err.Error()))
		}
		return fmt.Errorf("imagepool: delete %s: %w", ref, err)
	}
	return nil
}

// Resolve returns the blob content for ref.
//
// Description:
//
//	An LRU hit promotes the entry and returns without store I/O. A miss
//	reads the store through singleflight, so concurrent resolves of the
//	same ref share one read. An absent ref is not an error: the result
//	is (nil, nil) and callers treat it as "image unavailable".
//
// Outputs:
//
//	[]byte - A copy of the content; nil if the ref has no backing entry.
//	error - Non-nil only for a backing-store read failure.
func (p *Pool) Resolve(ctx context.Context, ref Ref) ([]byte, error) {
	if ref.IsZero() {
		return nil, nil
	}

	ctx, span := startPoolSpan(ctx, "Resolve")
	defer span.End()

	p.mu.Lock()
	blob, ok := p.cache.get(ref)
	p.mu.Unlock()
	if ok {
		atomic.AddInt64(&p.hits, 1)
		recordCacheHit(ctx)
		cp := make([]byte, len(blob))
		copy(cp, blob)
		return cp, nil
	}

	atomic.AddInt64(&p.misses, 1)
	recordCacheMiss(ctx)

	v, err, _ := p.flight.Do(string(ref), func() (interface{}, error) {
		loaded, err := p.store.LoadImage(ctx, string(ref))
		if err != nil {
			return nil, fmt.Errorf("imagepool: load %s: %w", ref, err)
		}
		if loaded == nil {
			return nil, nil
		}

		p.mu.Lock()
		if _, evicted := p.cache.add(ref, loaded); evicted {
			atomic.AddInt64(&p.evictions, 1)
			recordCacheEviction(ctx)
		}
		p.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}

	loaded := v.([]byte)
	cp := make([]byte, len(loaded))
	copy(cp, loaded)
	return cp, nil
}

// ClearCache drops every LRU entry without touching the backing store
// or reference counts. The next Resolve per ref hits the store.
func (p *Pool) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache.clear()
}

// Reset clears reference counts, the LRU cache, and the entire image
// namespace of the backing store. Used when discarding a session.
func (p *Pool) Reset(ctx context.Context) error {
	p.mu.Lock()
	p.counts = make(map[Ref]int)
	p.cache.clear()
	p.mu.Unlock()

	if err := p.store.ClearImages(ctx); err != nil {
		return fmt.Errorf("imagepool: clear images: %w", err)
	}
	return nil
}

// RefCount returns the live reference count for ref (0 if unknown).
func (p *Pool) RefCount(ref Ref) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.counts[ref]
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	tracked := len(p.counts)
	cached := p.cache.len()
	p.mu.Unlock()

	return Stats{
		TrackedRefs:   tracked,
		CachedBlobs:   cached,
		Hits:          atomic.LoadInt64(&p.hits),
		Misses:        atomic.LoadInt64(&p.misses),
		Evictions:     atomic.LoadInt64(&p.evictions),
		Registrations: atomic.LoadInt64(&p.registrations),
		Releases:      atomic.LoadInt64(&p.releases),
		Leaked:        atomic.LoadInt64(&p.leaked),
	}
}
