package metrics

// MetricsWrapper adapts Metrics to the method set the prediction service records through
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionInc(classification string) {
	w.m.Predictions.WithLabelValues(classification).Inc()
}

func (w *MetricsWrapper) PredictionFailureInc() {
	w.m.PredictionFailures.Inc()
}

func (w *MetricsWrapper) ValidationErrorInc(kind string) {
	w.m.ValidationErrors.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) NotReadyInc() {
	w.m.NotReady.Inc()
}

func (w *MetricsWrapper) BatchRequestInc() {
	w.m.BatchRequests.Inc()
}

func (w *MetricsWrapper) BatchRejectedInc() {
	w.m.BatchRejected.Inc()
}

func (w *MetricsWrapper) LatencyObserve(seconds float64) {
	w.m.PredictionLatency.Observe(seconds)
}

func (w *MetricsWrapper) ProbabilityObserve(p float64) {
	w.m.Probability.Observe(p)
}

func (w *MetricsWrapper) BatchSizeObserve(n float64) {
	w.m.BatchSize.Observe(n)
}
