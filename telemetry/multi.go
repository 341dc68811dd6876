package telemetry

import "time"

// MultiMetrics fans a single call out to several Metrics backends — e.g.
// OTEL for pipeline export and Prometheus for local scrape, the two
// complementary telemetry surfaces this runtime exposes side by side.
type MultiMetrics struct {
	backends []Metrics
}

// NewMultiMetrics combines the given backends into one Metrics.
func NewMultiMetrics(backends ...Metrics) *MultiMetrics {
	return &MultiMetrics{backends: backends}
}

func (m *MultiMetrics) IncCounter(name string, value float64, tags ...string) {
	for _, b := range m.backends {
		b.IncCounter(name, value, tags...)
	}
}

func (m *MultiMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	for _, b := range m.backends {
		b.RecordTimer(name, duration, tags...)
	}
}

func (m *MultiMetrics) RecordGauge(name string, value float64, tags ...string) {
	for _, b := range m.backends {
		b.RecordGauge(name, value, tags...)
	}
}
