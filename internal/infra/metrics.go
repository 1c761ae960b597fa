package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	tradesProcessed atomic.Uint64
	invalidTrades   atomic.Uint64
	fallbackFetches atomic.Uint64
	reconnects      atomic.Uint64
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	storeErrors     atomic.Uint64

	// Gauges
	streamConnected atomic.Int32 // 1 = connected, 0 = not
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTrade records a processed trade event. valid is false when no
// usable estimate could be derived from it.
func (m *Metrics) RecordTrade(valid bool) {
	m.tradesProcessed.Add(1)
	if !valid {
		m.invalidTrades.Add(1)
	}
}

// RecordFallbackFetch records a REST fallback attempt.
func (m *Metrics) RecordFallbackFetch() {
	m.fallbackFetches.Add(1)
}

// RecordReconnect records a stream reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordCacheHit records a query served from the snapshot cache.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a query that went to the store.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordStoreError records a failed store read or write.
func (m *Metrics) RecordStoreError() {
	m.storeErrors.Add(1)
}

// SetStreamConnected sets the stream connection gauge.
func (m *Metrics) SetStreamConnected(connected bool) {
	if connected {
		m.streamConnected.Store(1)
	} else {
		m.streamConnected.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TradesProcessed uint64    `json:"trades_processed"`
	InvalidTrades   uint64    `json:"invalid_trades"`
	FallbackFetches uint64    `json:"fallback_fetches"`
	Reconnects      uint64    `json:"reconnects"`
	CacheHits       uint64    `json:"cache_hits"`
	CacheMisses     uint64    `json:"cache_misses"`
	StoreErrors     uint64    `json:"store_errors"`
	StreamConnected bool      `json:"stream_connected"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TradesProcessed: m.tradesProcessed.Load(),
		InvalidTrades:   m.invalidTrades.Load(),
		FallbackFetches: m.fallbackFetches.Load(),
		Reconnects:      m.reconnects.Load(),
		CacheHits:       m.cacheHits.Load(),
		CacheMisses:     m.cacheMisses.Load(),
		StoreErrors:     m.storeErrors.Load(),
		StreamConnected: m.streamConnected.Load() == 1,
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.tradesProcessed.Store(0)
	m.invalidTrades.Store(0)
	m.fallbackFetches.Store(0)
	m.reconnects.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.storeErrors.Store(0)
	m.streamConnected.Store(0)
}
