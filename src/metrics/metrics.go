// Package metrics registers the process-wide Prometheus collectors exposed
// by the visualization server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts embedding cache hits per tier ("remote" or "file").
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hybridchat_embedding_cache_hits_total",
		Help: "Embedding cache hits by tier",
	}, []string{"tier"})

	// CacheMisses counts lookups that missed every tier.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hybridchat_embedding_cache_misses_total",
		Help: "Embedding cache misses across all tiers",
	})

	// GraphFetchDuration observes graph context fetch latency.
	GraphFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hybridchat_graph_fetch_duration_seconds",
		Help:    "Latency of graph context fetches",
		Buckets: prometheus.DefBuckets,
	})

	// EmbedRequests counts embedding API calls by outcome.
	EmbedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hybridchat_embed_requests_total",
		Help: "Embedding API requests by outcome",
	}, []string{"outcome"})
)
