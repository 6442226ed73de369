// Package metrics provides centralized Prometheus metrics registry for the UserHub client.
// All metrics are defined in their respective packages (transport, tokencache, quota)
// to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the UserHub client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Quota Metrics (pkg/quota):
//   - userhub_quota_remaining (Gauge): Current requests remaining in API quota window
//   - userhub_quota_blocks_total (Counter): Requests blocked due to critical quota level
//   - userhub_quota_throttles_total (Counter): Requests throttled due to warning quota level
//
// Token Cache Metrics (pkg/tokencache):
//   - userhub_token_cache_hits_total (Counter): Access token cache hits
//   - userhub_token_cache_misses_total (Counter): Access token cache misses
//   - userhub_token_cache_errors_total{operation} (Counter): Token cache operation errors
//
// Request Metrics (pkg/transport):
//   - userhub_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - userhub_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - userhub_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/transport):
//   - userhub_retries_total{error_class} (Counter): Retry attempts by error class
//   - userhub_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - userhub_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Token Cache Hit Rate
//   sum(rate(userhub_token_cache_hits_total[5m])) /
//   (sum(rate(userhub_token_cache_hits_total[5m])) + sum(rate(userhub_token_cache_misses_total[5m])))
//
//   # Quota Status
//   userhub_quota_remaining < 20
//
//   # Request Error Rate
//   rate(userhub_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(userhub_request_duration_seconds_bucket[5m]))
//
//   # Retry Pressure
//   rate(userhub_retries_total[5m]) / rate(userhub_requests_total[5m])
