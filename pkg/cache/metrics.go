package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks in-memory cache hits by cache name
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xref_cache_hits_total",
			Help: "Total number of in-memory cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses tracks in-memory cache misses, expired entries included
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xref_cache_misses_total",
			Help: "Total number of in-memory cache misses",
		},
		[]string{"cache"},
	)

	// CacheEvictions tracks least-recently-used evictions
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xref_cache_evictions_total",
			Help: "Total number of LRU evictions",
		},
		[]string{"cache"},
	)

	// CacheExpirations tracks entries deleted lazily after their deadline
	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xref_cache_expirations_total",
			Help: "Total number of expired entries removed on access",
		},
		[]string{"cache"},
	)

	// CacheEntries tracks the number of stored entries
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xref_cache_entries",
			Help: "Current number of entries held by the in-memory cache",
		},
		[]string{"cache"},
	)

	// SnapshotHits tracks Redis snapshot hits
	SnapshotHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xref_snapshot_hits_total",
			Help: "Total number of Redis snapshot hits",
		},
	)

	// SnapshotMisses tracks Redis snapshot misses
	SnapshotMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xref_snapshot_misses_total",
			Help: "Total number of Redis snapshot misses",
		},
	)

	// SnapshotErrors tracks Redis snapshot failures
	SnapshotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xref_snapshot_errors_total",
			Help: "Total number of Redis snapshot operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
