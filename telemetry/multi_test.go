package telemetry

import (
	"testing"
	"time"
)

type recordingMetrics struct {
	counters int
	timers   int
	gauges   int
}

func (r *recordingMetrics) IncCounter(string, float64, ...string)        { r.counters++ }
func (r *recordingMetrics) RecordTimer(string, time.Duration, ...string) { r.timers++ }
func (r *recordingMetrics) RecordGauge(string, float64, ...string)       { r.gauges++ }

func TestMultiMetricsFansOutToAllBackends(t *testing.T) {
	a, b := &recordingMetrics{}, &recordingMetrics{}
	m := NewMultiMetrics(a, b)

	m.IncCounter("x", 1)
	m.RecordTimer("y", time.Second)
	m.RecordGauge("z", 1)

	for _, r := range []*recordingMetrics{a, b} {
		if r.counters != 1 || r.timers != 1 || r.gauges != 1 {
			t.Fatalf("expected each backend to receive one call of each kind, got %+v", r)
		}
	}
}
