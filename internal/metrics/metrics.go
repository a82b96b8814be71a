package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pavemap_active_sessions",
		Help: "Number of open dashboard sessions",
	})
	SessionsEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pavemap_sessions_evicted_total",
		Help: "Total sessions closed for inactivity",
	})
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pavemap_events_total",
		Help: "Total input events handled by session loops",
	}, []string{"event"})
	TierTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pavemap_tier_transitions_total",
		Help: "Total tier changes emitted, by new tier",
	}, []string{"tier"})
	DatasetSwapsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pavemap_dataset_swaps_total",
		Help: "Total year switches that replaced the active dataset",
	}, []string{"year"})
	PositionUpdatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pavemap_position_updates_total",
		Help: "Total tracked position changes emitted",
	})
	FollowCoalescedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pavemap_follow_coalesced_total",
		Help: "Total camera follow targets that replaced an animation in flight",
	})
	OutputsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pavemap_outputs_dropped_total",
		Help: "Total outputs dropped because a subscriber was too slow",
	})
	DatasetLoadMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pavemap_dataset_load_ms",
		Help:    "Dataset load duration in milliseconds, by source",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"source"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pavemap_cache_hits_total",
		Help: "Total dataset cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pavemap_cache_misses_total",
		Help: "Total dataset cache misses",
	})
	AssociationMisses = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pavemap_association_misses",
		Help: "Distress points without a section in tolerance on the last association",
	})
)

func init() {
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(SessionsEvictedTotal)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(TierTransitionsTotal)
	prometheus.MustRegister(DatasetSwapsTotal)
	prometheus.MustRegister(PositionUpdatesTotal)
	prometheus.MustRegister(FollowCoalescedTotal)
	prometheus.MustRegister(OutputsDroppedTotal)
	prometheus.MustRegister(DatasetLoadMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(AssociationMisses)
}

// Handler exposes the registered metrics for scraping
func Handler() http.Handler { return promhttp.Handler() }
