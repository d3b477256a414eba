// Copyright (C) 2025 Planloft (hello@planloft.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package imagepool

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for pool operations.
var (
	tracer = otel.Tracer("planloft.imagepool")
	meter  = otel.Meter("planloft.imagepool")
)

// Metrics for pool operations.
var (
	poolRegistrations metric.Int64Counter
	poolReleases      metric.Int64Counter
	poolLeakedRefs    metric.Int64Counter
	poolCacheHits     metric.Int64Counter
	poolCacheMisses   metric.Int64Counter
	poolEvictions     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		poolRegistrations, err = meter.Int64Counter(
			"imagepool_registrations_total",
			metric.WithDescription("Total number of image registrations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		poolReleases, err = meter.Int64Counter(
			"imagepool_releases_total",
			metric.WithDescription("Total number of final releases (store deletes)"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		poolLeakedRefs, err = meter.Int64Counter(
			"imagepool_leaked_refs_total",
			metric.WithDescription("Total number of store deletes that failed, leaking an entry"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		poolCacheHits, err = meter.Int64Counter(
			"imagepool_cache_hits_total",
			metric.WithDescription("Total number of LRU cache hits"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		poolCacheMisses, err = meter.Int64Counter(
			"imagepool_cache_misses_total",
			metric.WithDescription("Total number of LRU cache misses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		poolEvictions, err = meter.Int64Counter(
			"imagepool_cache_evictions_total",
			metric.WithDescription("Total number of LRU cache evictions"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRegistration records a successful Register.
func recordRegistration(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	poolRegistrations.Add(ctx, 1)
}

// recordRelease records a final release.
func recordRelease(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	poolReleases.Add(ctx, 1)
}

// recordLeakedRef records a failed store delete.
func recordLeakedRef(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	poolLeakedRefs.Add(ctx, 1)
}

// recordCacheHit records an LRU cache hit.
func recordCacheHit(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	poolCacheHits.Add(ctx, 1)
}

// recordCacheMiss records an LRU cache miss.
func recordCacheMiss(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	poolCacheMisses.Add(ctx, 1)
}

// recordCacheEviction records an LRU cache eviction.
func recordCacheEviction(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	poolEvictions.Add(ctx, 1)
}

// startPoolSpan creates a span for a pool operation.
func startPoolSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Pool."+operation,
		trace.WithAttributes(
			attribute.String("imagepool.operation", operation),
		),
	)
}
