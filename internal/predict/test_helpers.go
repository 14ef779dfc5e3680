package predict

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      map[string]int
	failures         int
	validationErrors map[string]int
	notReady         int
	batches          int
	rejected         int
	latencySum       float64
	probabilities    []float64
	batchSizes       []float64
}

func (m *MockMetrics) PredictionInc(classification string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = make(map[string]int)
	}
	m.predictions[classification]++
}

func (m *MockMetrics) PredictionFailureInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) ValidationErrorInc(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.validationErrors == nil {
		m.validationErrors = make(map[string]int)
	}
	m.validationErrors[kind]++
}

func (m *MockMetrics) NotReadyInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notReady++
}

func (m *MockMetrics) BatchRequestInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
}

func (m *MockMetrics) BatchRejectedInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) ProbabilityObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probabilities = append(m.probabilities, v)
}

func (m *MockMetrics) BatchSizeObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchSizes = append(m.batchSizes, v)
}

// PredictionCount returns the number of successful predictions with the given classification.
func (m *MockMetrics) PredictionCount(classification string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions[classification]
}
