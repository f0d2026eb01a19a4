package bitrate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments an Analyzer. A nil *Metrics records nothing.
type Metrics struct {
	// Aggregations counts aggregation runs.
	// Labels:
	//   - mode: "time", "gop", "frame"
	Aggregations *prometheus.CounterVec

	// ResampleComputations counts resamples that actually downsampled the series
	ResampleComputations prometheus.Counter

	// ResampleCacheHits counts resamples answered from the cache
	ResampleCacheHits prometheus.Counter

	// CacheInvalidations counts resample cache discards
	CacheInvalidations prometheus.Counter
}

// NewMetrics creates the analyzer metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Aggregations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitrate_aggregations_total",
				Help: "Total number of sample aggregations",
			},
			[]string{"mode"},
		),
		ResampleComputations: factory.NewCounter(prometheus.CounterOpts{
			Name: "bitrate_resample_computations_total",
			Help: "Total number of resamples computed from the current series",
		}),
		ResampleCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "bitrate_resample_cache_hits_total",
			Help: "Total number of resamples served from the cache",
		}),
		CacheInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "bitrate_resample_cache_invalidations_total",
			Help: "Total number of resample cache invalidations",
		}),
	}
}

func (m *Metrics) aggregated(kind ModeKind) {
	if m == nil {
		return
	}
	m.Aggregations.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) computed() {
	if m == nil {
		return
	}
	m.ResampleComputations.Inc()
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.ResampleCacheHits.Inc()
}

func (m *Metrics) invalidated() {
	if m == nil {
		return
	}
	m.CacheInvalidations.Inc()
}
