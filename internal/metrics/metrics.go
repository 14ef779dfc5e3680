// Package metrics provides Prometheus metrics collection for the habitability service.
// It defines the prediction, validation, batch, artifact and HTTP metrics exposed
// via the Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	Predictions        *prometheus.CounterVec // Successful predictions by classification
	PredictionFailures prometheus.Counter     // Scaler or classifier faults
	PredictionLatency  prometheus.Histogram   // Scale + classify latency in seconds
	Probability        prometheus.Histogram   // Distribution of class-1 probabilities

	// Request metrics
	ValidationErrors *prometheus.CounterVec // Rejected inputs by kind
	NotReady         prometheus.Counter     // Requests refused while artifacts are missing
	BatchRequests    prometheus.Counter     // Accepted batch requests
	BatchRejected    prometheus.Counter     // Batches rejected for exceeding the cap
	BatchSize        prometheus.Histogram   // Items per accepted batch
	HTTPDuration     *prometheus.HistogramVec

	// Artifact metrics
	ArtifactLoaded *prometheus.GaugeVec // 1 when the artifact is loaded, else 0
	ModelAge       prometheus.Gauge     // Age of the model artifact in seconds
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of successful habitability predictions",
		}, []string{"classification"}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of predictions that failed inside the scaler or classifier",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction latency in seconds (scale and classify)",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		Probability: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "habitability_probability",
			Help:    "Distribution of predicted habitability probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ValidationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "validation_errors_total",
			Help: "Total number of rejected inputs by kind",
		}, []string{"kind"}),
		NotReady: factory.NewCounter(prometheus.CounterOpts{
			Name: "not_ready_total",
			Help: "Total number of requests refused because the model or scaler is not loaded",
		}),
		BatchRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_requests_total",
			Help: "Total number of accepted batch prediction requests",
		}),
		BatchRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_rejected_total",
			Help: "Total number of batches rejected for exceeding the size limit",
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_size",
			Help:    "Number of items per accepted batch",
			Buckets: []float64{1, 5, 10, 25, 50, 75, 100, 250, 1000},
		}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		ArtifactLoaded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "artifact_loaded",
			Help: "Whether each model artifact is loaded (1) or missing (0)",
		}, []string{"artifact"}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the model artifact in seconds",
		}),
	}
}

// SetArtifacts records which artifacts were loaded at startup.
func (m *Metrics) SetArtifacts(modelLoaded, scalerLoaded bool, modelAgeSeconds float64) {
	m.ArtifactLoaded.WithLabelValues("model").Set(boolToFloat(modelLoaded))
	m.ArtifactLoaded.WithLabelValues("scaler").Set(boolToFloat(scalerLoaded))
	m.ModelAge.Set(modelAgeSeconds)
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, path string, status int, seconds float64) {
	m.HTTPDuration.WithLabelValues(method, path, statusLabel(status)).Observe(seconds)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
