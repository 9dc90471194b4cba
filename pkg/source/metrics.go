package source

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for source adapters.
var (
	collectionFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xref_source_collection_fetches_total",
		Help: "Sentinel collection loads by adapter and origin (upstream, snapshot, error)",
	}, []string{"adapter", "origin"})

	clustersDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xref_source_clusters_dropped_total",
		Help: "Upstream cluster records dropped during normalization",
	}, []string{"adapter"})

	collectionSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "xref_source_collection_clusters",
		Help: "Number of clusters in the last loaded collection",
	}, []string{"adapter"})
)
