package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestIncCounterRegistersAndIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.IncCounter("gatekeeper.decisions", 1, "action", "allow")
	m.IncCounter("gatekeeper.decisions", 1, "action", "allow")
	m.IncCounter("gatekeeper.decisions", 1, "action", "block")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, "gatekeeper_decisions", families[0].GetName())

	var allowValue, blockValue float64
	for _, metric := range families[0].GetMetric() {
		for _, l := range metric.GetLabel() {
			if l.GetName() == "action" {
				switch l.GetValue() {
				case "allow":
					allowValue = metric.GetCounter().GetValue()
				case "block":
					blockValue = metric.GetCounter().GetValue()
				}
			}
		}
	}
	require.Equal(t, float64(2), allowValue)
	require.Equal(t, float64(1), blockValue)
}

func TestRecordTimerRegistersHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.RecordTimer("gatekeeper.decision_latency", 50*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, dto.MetricType_HISTOGRAM, families[0].GetType())
}

func TestRecordGaugeRegistersGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.RecordGauge("hold.queue_depth", 3, "severity", "high")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, float64(3), families[0].GetMetric()[0].GetGauge().GetValue())
}
