// Package cache provides the in-process TTL/LRU cache used by the source
// adapter, plus an optional Redis-backed snapshot store.
//
// The in-memory cache has the following properties:
//
// - Bounded size: inserting into a full cache evicts exactly one
// least-recently-used entry
// - Per-entry expiry: every entry carries an absolute deadline; the default
// TTL can be overridden per Set
// - Lazy expiry: Get and Has delete an expired entry when they touch it,
// there is no background sweeper
// - Recency: every Get hit and every Set moves the key to the
// most-recently-used position
// - Prometheus metrics labelled by cache name
//
// # Basic Usage
//
//	c := cache.New[string, []source.Cluster](cache.Config{
//		Name:    "lookups",
//		MaxSize: 500,
//		TTL:     10 * time.Minute,
//	})
//
//	c.Set(cache.LookupKey("2:255"), clusters)
//
//	if v, ok := c.Get(cache.LookupKey("2:255")); ok {
//		// hit
//	}
//
// # Snapshot Store
//
// A Snapshot keeps JSON encoded values in Redis under a deterministic key so
// several processes can share one fetched-and-normalized collection:
//
//	snap := cache.NewSnapshot(redisClient)
//	key := cache.Key{Endpoint: "/v1/clusters"}
//
//	var clusters []source.Cluster
//	if err := snap.Get(ctx, key, &clusters); err == cache.ErrCacheMiss {
//		// fetch from upstream, then
//		_ = snap.Set(ctx, key, clusters, 10*time.Minute)
//	}
//
// # Metrics
//
//   - xref_cache_hits_total{cache} - In-memory cache hits
//   - xref_cache_misses_total{cache} - In-memory cache misses (absent or expired)
//   - xref_cache_evictions_total{cache} - LRU evictions
//   - xref_cache_expirations_total{cache} - Entries dropped on touch after expiry
//   - xref_cache_entries{cache} - Stored entries, including expired-but-untouched
//   - xref_snapshot_hits_total / xref_snapshot_misses_total - Redis snapshot lookups
//   - xref_snapshot_errors_total{operation} - Redis snapshot failures
package cache
