package main

import (
	"time"

	"github.com/agentgov/gatekeeper/hold"
	"github.com/agentgov/gatekeeper/telemetry"
)

// startGaugeReporter polls queue depth periodically and republishes it as a
// gauge, since hold.Manager has no push-based observer of its own. Returns
// a channel that stops the reporter when closed.
func startGaugeReporter(metrics *telemetry.PrometheusMetrics, holds *hold.Manager) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats := holds.Stats()
				metrics.RecordGauge("hold.queue_depth", float64(stats.Pending), "state", "pending")
				metrics.RecordGauge("hold.queue_depth", float64(stats.Approved), "state", "approved")
				metrics.RecordGauge("hold.queue_depth", float64(stats.Rejected), "state", "rejected")
				metrics.RecordGauge("hold.queue_depth", float64(stats.Expired), "state", "expired")
			case <-stop:
				return
			}
		}
	}()
	return stop
}
