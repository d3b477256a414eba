// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package imagepool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloft/planloft/pkg/storage"
)

func newTestPool(t *testing.T, opts ...Option) (*Pool, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	pool, err := NewPool(store, opts...)
	require.NoError(t, err)
	return pool, store
}

func TestNewPool_RequiresStore(t *testing.T) {
	_, err := NewPool(nil)
	assert.Error(t, err)
}

func TestPool_RegisterDeduplicates(t *testing.T) {
	pool, store := newTestPool(t)
	ctx := context.Background()

	ref1, err := pool.Register(ctx, []byte("abc"))
	require.NoError(t, err)
	ref2, err := pool.Register(ctx, []byte("abc"))
	require.NoError(t, err)

	assert.Equal(t, ref1, ref2)
	assert.Equal(t, 2, pool.RefCount(ref1))
	assert.Equal(t, 1, store.ImageCount(), "identical content must be stored once")
}

func TestPool_RegisterEmptyBlob(t *testing.T) {
	pool, _ := newTestPool(t)

	_, err := pool.Register(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBlob)

	_, err = pool.Register(context.Background(), []byte{})
	assert.ErrorIs(t, err, ErrEmptyBlob)
}

func TestPool_RegisterSaveFailure(t *testing.T) {
	pool, store := newTestPool(t)
	store.FailSaves = errors.New("store down")

	_, err := pool.Register(context.Background(), []byte("abc"))
	assert.Error(t, err)
	assert.Equal(t, 0, pool.RefCount(pool.ComputeRef([]byte("abc"))),
		"a failed first registration must not leave a count behind")
}

func TestPool_ReleaseCounting(t *testing.T) {
	pool, store := newTestPool(t)
	ctx := context.Background()

	ref, err := pool.Register(ctx, []byte("abc"))
	require.NoError(t, err)
	_, err = pool.Register(ctx, []byte("abc"))
	require.NoError(t, err)

	// First release only decrements; content stays resolvable.
	require.NoError(t, pool.Release(ctx, ref))
	assert.Equal(t, 1, pool.RefCount(ref))

	got, err := pool.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	// Second release deletes the backing entry.
	require.NoError(t, pool.Release(ctx, ref))
	assert.Equal(t, 0, pool.RefCount(ref))
	assert.False(t, store.HasImage(string(ref)))

	pool.ClearCache()
	got, err = pool.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Nil(t, got, "fully released content must resolve to empty")
}

func TestPool_ReleaseUnknownRefIsNoop(t *testing.T) {
	pool, _ := newTestPool(t)

	assert.NoError(t, pool.Release(context.Background(), "never-registered"))
	assert.NoError(t, pool.Release(context.Background(), ""))
}

func TestPool_ReleaseDeleteFailureLeaks(t *testing.T) {
	pool, store := newTestPool(t)
	ctx := context.Background()

	ref, err := pool.Register(ctx, []byte("abc"))
	require.NoError(t, err)

	store.FailDeletes = errors.New("store down")
	err = pool.Release(ctx, ref)
	assert.Error(t, err)

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.Leaked)
	assert.Equal(t, 0, pool.RefCount(ref), "count entry is gone even when the delete fails")
}

func TestPool_ResolveServesFromCacheWithoutStore(t *testing.T) {
	pool, store := newTestPool(t)
	ctx := context.Background()

	ref, err := pool.Register(ctx, []byte("cached"))
	require.NoError(t, err)

	// A store failure is invisible while the blob is cached.
	store.FailLoads = errors.New("store down")
	got, err := pool.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), got)

	// Once the cache is cleared the failure surfaces.
	pool.ClearCache()
	_, err = pool.Resolve(ctx, ref)
	assert.Error(t, err)
}

func TestPool_ResolveFallsBackToStore(t *testing.T) {
	const cacheSize = 3
	pool, _ := newTestPool(t, WithCacheSize(cacheSize))
	ctx := context.Background()

	// Register one more distinct blob than the cache holds; the first
	// one is evicted from the LRU but stays in the store.
	first, err := pool.Register(ctx, []byte("blob-0"))
	require.NoError(t, err)
	for i := 1; i <= cacheSize; i++ {
		_, err := pool.Register(ctx, []byte(fmt.Sprintf("blob-%d", i)))
		require.NoError(t, err)
	}

	missesBefore := pool.Stats().Misses
	got, err := pool.Resolve(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob-0"), got)
	assert.Equal(t, missesBefore+1, pool.Stats().Misses, "evicted blob must be read from the store")

	// And the content survives a full cache drop too.
	pool.ClearCache()
	got, err = pool.Resolve(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob-0"), got)
}

func TestPool_ResolveZeroRef(t *testing.T) {
	pool, _ := newTestPool(t)

	got, err := pool.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPool_ResolveReturnsCopy(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()

	ref, err := pool.Register(ctx, []byte("abc"))
	require.NoError(t, err)

	got, err := pool.Resolve(ctx, ref)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := pool.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again, "caller mutation must not corrupt the cache")
}

func TestPool_Reset(t *testing.T) {
	pool, store := newTestPool(t)
	ctx := context.Background()

	ref, err := pool.Register(ctx, []byte("abc"))
	require.NoError(t, err)
	_, err = pool.Register(ctx, []byte("def"))
	require.NoError(t, err)

	require.NoError(t, pool.Reset(ctx))

	assert.Equal(t, 0, pool.RefCount(ref))
	assert.Equal(t, 0, store.ImageCount())

	got, err := pool.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPool_Stats(t *testing.T) {
	pool, _ := newTestPool(t, WithCacheSize(2))
	ctx := context.Background()

	refA, err := pool.Register(ctx, []byte("aaa"))
	require.NoError(t, err)
	_, err = pool.Register(ctx, []byte("bbb"))
	require.NoError(t, err)
	_, err = pool.Register(ctx, []byte("ccc"))
	require.NoError(t, err)

	_, err = pool.Resolve(ctx, refA) // Evicted above: miss
	require.NoError(t, err)
	_, err = pool.Resolve(ctx, refA) // Now cached: hit
	require.NoError(t, err)

	stats := pool.Stats()
	assert.Equal(t, int64(3), stats.Registrations)
	assert.Equal(t, 3, stats.TrackedRefs)
	assert.Equal(t, 2, stats.CachedBlobs)
	assert.GreaterOrEqual(t, stats.Evictions, int64(1))
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 50.0, stats.HitRate(), 0.01)
}

func TestPool_CustomFingerprinter(t *testing.T) {
	pool, _ := newTestPool(t, WithFingerprinter(SHA256Fingerprinter{}))

	ref := pool.ComputeRef([]byte("abc"))
	assert.Contains(t, string(ref), "sha256")

	registered, err := pool.Register(context.Background(), []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, ref, registered)
}
