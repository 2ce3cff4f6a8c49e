package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Reasoning service metrics
	ReasoningRequests *prometheus.CounterVec
	ReasoningLatency  *prometheus.HistogramVec
	DegradedResponses *prometheus.CounterVec

	// Vision service metrics
	VisionRequests *prometheus.CounterVec
	VisionLatency  prometheus.Histogram

	// Record store metrics
	StoreOperations *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec

	// Session metrics
	SessionsActive    prometheus.Gauge
	SessionOutcomes   *prometheus.CounterVec
	RejectedResubmits prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ReasoningRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoning_requests_total",
			Help:      "Total number of reasoning service calls by query mode and outcome tag",
		}, []string{"mode", "tag"}),
		ReasoningLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reasoning_request_duration_seconds",
			Help:      "Duration of reasoning service calls",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		DegradedResponses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_responses_total",
			Help:      "Total number of degraded-service answers by marker tag",
		}, []string{"tag"}),

		VisionRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_requests_total",
			Help:      "Total number of X-ray analysis calls by status",
		}, []string{"status"}),
		VisionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vision_request_duration_seconds",
			Help:      "Duration of X-ray analysis calls",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30},
		}),

		StoreOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of record store operations by operation and status",
		}, []string{"operation", "status"}),
		StoreLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of record store operations",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),

		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_submitting",
			Help:      "Number of clinical interactions currently in flight",
		}),
		SessionOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_outcomes_total",
			Help:      "Terminal session states by outcome",
		}, []string{"outcome"}),
		RejectedResubmits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_resubmits_total",
			Help:      "Submissions rejected because the interaction was already in flight",
		}),
	}
}
