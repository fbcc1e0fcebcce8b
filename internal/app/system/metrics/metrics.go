// Package metrics exposes the Prometheus collectors used by the caches.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cache outcomes recorded by CacheMetrics.Observe.
const (
	OutcomeHit       = "hit"
	OutcomeStale     = "stale"
	OutcomeMiss      = "miss"
	OutcomeLoad      = "load"
	OutcomeLoadError = "load_error"
	OutcomeEvicted   = "evicted"
	OutcomeDiscarded = "discarded"
)

// CacheMetrics counts cache events per named cache.
type CacheMetrics struct {
	events  *prometheus.CounterVec
	entries *prometheus.GaugeVec
}

// NewCacheMetrics registers the cache collectors on reg.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "onepager_cache_events_total",
				Help: "Cache events by cache name and outcome",
			},
			[]string{"cache", "outcome"},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "onepager_cache_entries",
				Help: "Entries currently held by each cache",
			},
			[]string{"cache"},
		),
	}
	reg.MustRegister(m.events, m.entries)
	return m
}

// Observe records one event. A nil receiver is a no-op.
func (m *CacheMetrics) Observe(cache, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(cache, outcome).Inc()
}

// SetEntries records the current entry count. A nil receiver is a no-op.
func (m *CacheMetrics) SetEntries(cache string, n int) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(cache).Set(float64(n))
}
