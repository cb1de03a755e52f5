// Package metrics exposes the gateway's Prometheus instrumentation.
// Adapted from the teacher's internal/metrics/collector.go promauto
// pattern, trimmed to the counters this gateway's pipeline actually
// produces (no DB/agent-execution metrics — this gateway owns neither
// concern).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the gateway's Prometheus metric vectors, registered
// against the default registry on construction so promhttp.Handler()
// (internal/api) serves them without further wiring.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	providerCost    *prometheus.CounterVec
}

// NewCollector registers and returns the gateway's metric vectors
// under namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total chat-completion requests by status and provider.",
		}, []string{"status", "provider"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Chat-completion request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Response cache hits.",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Response cache misses.",
		}),

		providerCost: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_estimated_cost_total",
			Help:      "Estimated upstream cost in dollars, by provider.",
		}, []string{"provider"}),
	}
}

// ObserveRequest records one terminal request: its status, the
// provider that served it (empty if none did), and its duration.
func (c *Collector) ObserveRequest(status, provider string, durationSeconds float64) {
	c.requestsTotal.WithLabelValues(status, provider).Inc()
	c.requestDuration.WithLabelValues(status).Observe(durationSeconds)
}

// ObserveCache records a cache hit or miss.
func (c *Collector) ObserveCache(hit bool) {
	if hit {
		c.cacheHits.Inc()
	} else {
		c.cacheMisses.Inc()
	}
}

// ObserveCost adds cost dollars to provider's running total.
func (c *Collector) ObserveCost(provider string, cost float64) {
	if cost <= 0 {
		return
	}
	c.providerCost.WithLabelValues(provider).Add(cost)
}
