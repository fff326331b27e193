package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the collectors a Cache reports to.
type Metrics struct {
	Hits   prometheus.Counter
	Misses prometheus.Counter
	Size   *prometheus.GaugeVec
	Items  prometheus.Gauge
}

var defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics registers a fresh set of cache collectors with reg.
func NewMetrics(reg prometheus.Registerer) Metrics {
	f := promauto.With(reg)
	return Metrics{
		Hits: f.NewCounter(prometheus.CounterOpts{
			Name: "asset_cache_hits_total",
			Help: "Number of asset cache hits",
		}),
		Misses: f.NewCounter(prometheus.CounterOpts{
			Name: "asset_cache_misses_total",
			Help: "Number of asset cache misses",
		}),
		Size: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "asset_cache_size_bytes",
			Help: "Size of cached assets in bytes",
		}, []string{"key"}),
		Items: f.NewGauge(prometheus.GaugeOpts{
			Name: "asset_cache_items_count",
			Help: "Number of items in the asset cache",
		}),
	}
}
