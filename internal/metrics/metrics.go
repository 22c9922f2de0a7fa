package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instrumentation shared across the onboarding pipeline.
// Stage durations carry a `stage` label: blob_write, resolve, record_write.
type Metrics struct {
	OnboardingRequests *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	CacheLookups       *prometheus.CounterVec
	InferenceDuration  prometheus.Histogram
	InferenceRequests  *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics with the provided Registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		OnboardingRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "staffonboard_onboarding_requests_total",
			Help: "Total onboarding requests by outcome.",
		}, []string{"status"}),
		StageDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "staffonboard_pipeline_stage_duration_seconds",
			Help:    "Duration of each onboarding pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		CacheLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "staffonboard_identifier_cache_lookups_total",
			Help: "Identifier cache lookups by result.",
		}, []string{"result"}),
		InferenceDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "staffonboard_inference_duration_seconds",
			Help:    "Duration of classifier forward passes.",
			Buckets: prometheus.DefBuckets,
		}),
		InferenceRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "staffonboard_inference_requests_total",
			Help: "Total resolver inference requests by outcome.",
		}, []string{"status"}),
	}

	metrics.OnboardingRequests.WithLabelValues("success")
	metrics.OnboardingRequests.WithLabelValues("failure")

	return metrics
}
