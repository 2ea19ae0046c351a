// Package metrics exposes Prometheus collectors for the matching pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

var (
	MatchesComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "govbizai_matches_computed_total",
		Help: "Match computations by confidence level",
	}, []string{"confidence"})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "govbizai_match_duration_seconds",
		Help:    "End-to-end duration of a single match computation",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	QuickFilterRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "govbizai_quickfilter_rejections_total",
		Help: "Pairs rejected by the pre-screen filter",
	})

	ComponentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "govbizai_component_failures_total",
		Help: "Component scorer failures by component and kind",
	}, []string{"component", "kind"})

	ComponentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "govbizai_component_duration_seconds",
		Help:    "Duration of each component scorer",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"component"})

	EmbeddingCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "govbizai_embedding_cache_total",
		Help: "Embedding cache lookups by outcome",
	}, []string{"outcome"})

	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "govbizai_search_requests_total",
		Help: "Search requests by mode",
	}, []string{"mode"})

	BatchRunsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "govbizai_batch_runs_active",
		Help: "Batch match runs currently in flight",
	})
)

// Handler serves the Prometheus scrape endpoint on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
