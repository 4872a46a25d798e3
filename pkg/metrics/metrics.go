// Package metrics provides metrics collection for counselgo
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/maumtalk/counselgo/pkg/interfaces"
)

// NoOpMetrics is a metrics implementation that does nothing
type NoOpMetrics struct{}

// Counter increments a counter metric
func (m *NoOpMetrics) Counter(name string, value float64, labels map[string]string) {}

// Gauge sets a gauge metric
func (m *NoOpMetrics) Gauge(name string, value float64, labels map[string]string) {}

// Histogram records a histogram metric
func (m *NoOpMetrics) Histogram(name string, value float64, labels map[string]string) {}

// Timer records timing metrics
func (m *NoOpMetrics) Timer(name string, duration float64, labels map[string]string) {}

// NewNoOpMetrics creates a new no-op metrics collector
func NewNoOpMetrics() interfaces.Metrics {
	return &NoOpMetrics{}
}

// InMemoryMetrics accumulates metrics in memory. Intended for tests and
// single-process deployments where scraping infrastructure is absent.
type InMemoryMetrics struct {
	mu         sync.RWMutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewInMemoryMetrics creates a new in-memory metrics collector
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// Counter increments a counter metric
func (m *InMemoryMetrics) Counter(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metricKey(name, labels)] += value
}

// Gauge sets a gauge metric
func (m *InMemoryMetrics) Gauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[metricKey(name, labels)] = value
}

// Histogram records a histogram metric
func (m *InMemoryMetrics) Histogram(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := metricKey(name, labels)
	m.histograms[key] = append(m.histograms[key], value)
}

// Timer records timing metrics
func (m *InMemoryMetrics) Timer(name string, duration float64, labels map[string]string) {
	m.Histogram(name, duration, labels)
}

// CounterValue returns the accumulated value of a counter
func (m *InMemoryMetrics) CounterValue(name string, labels map[string]string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[metricKey(name, labels)]
}

// GaugeValue returns the last value set on a gauge
func (m *InMemoryMetrics) GaugeValue(name string, labels map[string]string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gauges[metricKey(name, labels)]
}

// HistogramValues returns the recorded observations of a histogram
func (m *InMemoryMetrics) HistogramValues(name string, labels map[string]string) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values := m.histograms[metricKey(name, labels)]
	out := make([]float64, len(values))
	copy(out, values)
	return out
}

func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(",%s=%s", k, labels[k]))
	}
	return sb.String()
}

// Interface compliance checks
var (
	_ interfaces.Metrics = (*NoOpMetrics)(nil)
	_ interfaces.Metrics = (*InMemoryMetrics)(nil)
)
