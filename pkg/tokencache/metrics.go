package tokencache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks token cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "userhub_token_cache_hits_total",
			Help: "Total number of token cache hits",
		},
	)

	// CacheMisses tracks token cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "userhub_token_cache_misses_total",
			Help: "Total number of token cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "userhub_token_cache_errors_total",
			Help: "Total number of token cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
