// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package imagepool

import (
	"errors"
	"log/slog"
)

// Default configuration values.
const (
	// DefaultCacheSize is the default number of blobs kept in the
	// in-memory LRU cache.
	DefaultCacheSize = 20
)

// ErrEmptyBlob is returned by Register for zero-length content.
var ErrEmptyBlob = errors.New("imagepool: empty blob")

// Stats contains counters describing pool activity since construction.
type Stats struct {
	// TrackedRefs is the number of refs with a live reference count.
	TrackedRefs int

	// CachedBlobs is the number of blobs currently in the LRU cache.
	CachedBlobs int

	// Hits is the number of Resolve calls served from the LRU cache.
	Hits int64

	// Misses is the number of Resolve calls that went to the store.
	Misses int64

	// Evictions is the number of blobs evicted from the LRU cache.
	Evictions int64

	// Registrations is the number of successful Register calls.
	Registrations int64

	// Releases is the number of Release calls that dropped the last
	// reference to a blob.
	Releases int64

	// Leaked is the number of store deletes that failed during Release;
	// each one is a backing-store entry the pool can no longer reclaim.
	Leaked int64
}

// HitRate returns the LRU hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Options configures Pool behavior.
type Options struct {
	// CacheSize is the LRU capacity in blobs.
	CacheSize int

	// Fingerprinter derives refs from content.
	Fingerprinter Fingerprinter

	// Logger receives release-failure warnings. Nil means silent.
	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults: sampling fingerprints and a
// DefaultCacheSize LRU.
func DefaultOptions() Options {
	return Options{
		CacheSize:     DefaultCacheSize,
		Fingerprinter: SampleFingerprinter{},
	}
}

// Option is a functional option for configuring a Pool.
type Option func(*Options)

// WithCacheSize sets the LRU capacity in blobs.
func WithCacheSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.CacheSize = n
		}
	}
}

// WithFingerprinter swaps the fingerprint strategy.
func WithFingerprinter(f Fingerprinter) Option {
	return func(o *Options) {
		if f != nil {
			o.Fingerprinter = f
		}
	}
}

// WithLogger sets the logger for release-failure warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
