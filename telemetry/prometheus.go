package telemetry

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements Metrics against a local registry, giving an
// operator a /metrics scrape endpoint independent of an OTEL collector
// (complementary to ClueMetrics, not a replacement for it).
type PrometheusMetrics struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPrometheusMetrics builds a Metrics adapter registered against reg. Pass
// prometheus.DefaultRegisterer to expose via the default /metrics handler.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	return &PrometheusMetrics{
		registerer: reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// metricName and labelNames turn a Prometheus-illegal dotted name
// ("gatekeeper.decisions") and a tags slice (k1, v1, k2, v2, ...) into a
// valid metric name and its ordered label names/values.
func metricName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func splitTags(tags []string) (labelNames, labelValues []string) {
	for i := 0; i+1 < len(tags); i += 2 {
		labelNames = append(labelNames, tags[i])
		labelValues = append(labelValues, tags[i+1])
	}
	return labelNames, labelValues
}

// IncCounter increments a counter, lazily registering a CounterVec whose
// label set is derived from the first call's tag keys. Subsequent calls
// with a different label set for the same name are a programmer error and
// are dropped rather than panicking the caller.
func (m *PrometheusMetrics) IncCounter(name string, value float64, tags ...string) {
	labelNames, labelValues := splitTags(tags)
	m.mu.Lock()
	vec, ok := m.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricName(name),
			Help: name + " counter",
		}, labelNames)
		if err := m.registerer.Register(vec); err != nil {
			if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
				vec = existing.ExistingCollector.(*prometheus.CounterVec)
			}
		}
		m.counters[name] = vec
	}
	m.mu.Unlock()

	if c, err := vec.GetMetricWithLabelValues(labelValues...); err == nil {
		c.Add(value)
	}
}

// RecordTimer observes a duration, lazily registering a HistogramVec.
func (m *PrometheusMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	labelNames, labelValues := splitTags(tags)
	m.mu.Lock()
	vec, ok := m.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricName(name) + "_seconds",
			Help:    name + " duration",
			Buckets: prometheus.DefBuckets,
		}, labelNames)
		if err := m.registerer.Register(vec); err != nil {
			if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
				vec = existing.ExistingCollector.(*prometheus.HistogramVec)
			}
		}
		m.histograms[name] = vec
	}
	m.mu.Unlock()

	if h, err := vec.GetMetricWithLabelValues(labelValues...); err == nil {
		h.Observe(duration.Seconds())
	}
}

// RecordGauge sets a gauge value, lazily registering a GaugeVec.
func (m *PrometheusMetrics) RecordGauge(name string, value float64, tags ...string) {
	labelNames, labelValues := splitTags(tags)
	m.mu.Lock()
	vec, ok := m.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricName(name),
			Help: name + " gauge",
		}, labelNames)
		if err := m.registerer.Register(vec); err != nil {
			if existing, ok := err.(prometheus.AlreadyRegisteredError); ok {
				vec = existing.ExistingCollector.(*prometheus.GaugeVec)
			}
		}
		m.gauges[name] = vec
	}
	m.mu.Unlock()

	if g, err := vec.GetMetricWithLabelValues(labelValues...); err == nil {
		g.Set(value)
	}
}
