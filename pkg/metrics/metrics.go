// Package metrics provides the Prometheus registry shared by all packages.
// Metrics are defined in their respective packages (cache, breaker, client,
// ratelimit, source) to keep them next to the code they measure.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Namespace prefixes every metric name.
const Namespace = "xref"

// Registry is the registerer all metrics are added to via promauto.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads the metrics registered in Registry.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteText writes every xref metric in the Prometheus text format, sorted by
// name. Families with no samples are skipped.
func WriteText(w io.Writer) error {
	families, err := Gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), Namespace+"_") || len(mf.GetMetric()) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - xref_cache_hits_total{cache} (Counter): In-memory cache hits
//   - xref_cache_misses_total{cache} (Counter): In-memory cache misses, expired entries included
//   - xref_cache_evictions_total{cache} (Counter): LRU evictions
//   - xref_cache_expirations_total{cache} (Counter): Expired entries removed on access
//   - xref_cache_entries{cache} (Gauge): Stored entries
//   - xref_snapshot_hits_total (Counter): Redis snapshot hits
//   - xref_snapshot_misses_total (Counter): Redis snapshot misses
//   - xref_snapshot_errors_total{operation} (Counter): Redis snapshot failures
//
// Circuit Breaker Metrics (pkg/breaker):
//   - xref_circuit_breaker_state{breaker} (Gauge): 0=closed, 1=half_open, 2=open
//   - xref_circuit_breaker_rejections_total{breaker} (Counter): Calls rejected while open
//   - xref_circuit_breaker_transitions_total{breaker, from, to} (Counter): State transitions
//
// Request Metrics (pkg/client):
//   - xref_upstream_requests_total{endpoint, status} (Counter): Attempts by endpoint and status
//   - xref_upstream_request_duration_seconds{endpoint} (Histogram): Duration including retries
//   - xref_upstream_errors_total{class} (Counter): Failed attempts by class
//
// Retry Metrics (pkg/client):
//   - xref_upstream_retries_total{error_class} (Counter): Retry attempts
//   - xref_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff before a retry
//   - xref_upstream_retry_exhausted_total{error_class} (Counter): Requests failing on their last attempt
//
// Rate Limit Metrics (pkg/ratelimit):
//   - xref_upstream_quota_remaining (Gauge): Remaining upstream quota
//   - xref_rate_limit_blocks_total (Counter): Requests held until the quota reset
//   - xref_rate_limit_throttles_total (Counter): Requests delayed while quota is low
//
// Source Metrics (pkg/source):
//   - xref_source_collection_fetches_total{adapter, origin} (Counter): Collection loads (upstream, snapshot, error)
//   - xref_source_clusters_dropped_total{adapter} (Counter): Records dropped during normalization
//   - xref_source_collection_clusters{adapter} (Gauge): Clusters in the last loaded collection
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(xref_cache_hits_total[5m])) /
//   (sum(rate(xref_cache_hits_total[5m])) + sum(rate(xref_cache_misses_total[5m])))
//
//   # Breaker Open
//   xref_circuit_breaker_state == 2
//
//   # Upstream Error Rate
//   rate(xref_upstream_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(xref_upstream_request_duration_seconds_bucket[5m]))
