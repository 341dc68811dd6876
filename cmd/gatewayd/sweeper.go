package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"goa.design/clue/log"

	"github.com/agentgov/gatekeeper/hold"
	"github.com/agentgov/gatekeeper/proposal"
)

// startSweepers schedules the two periodic sweeps named in §5: expiring
// holds past their deadline and moving stale pending proposals to expired.
// Both Sweep and ExpireStale are plain functions of "now" already; cron
// just supplies the clock tick.
func startSweepers(ctx context.Context, holds *hold.Manager, proposals *proposal.Manager) *cron.Cron {
	c := cron.New()

	if _, err := c.AddFunc("@every 1m", func() {
		n := holds.Sweep(time.Now())
		if n > 0 {
			log.Printf(ctx, "swept %d expired hold(s)", n)
		}
	}); err != nil {
		log.Error(ctx, err, log.KV{K: "component", V: "hold-sweeper"})
	}

	if _, err := c.AddFunc("@every 5m", func() {
		n := proposals.ExpireStale(ctx, time.Now())
		if n > 0 {
			log.Printf(ctx, "expired %d stale proposal(s)", n)
		}
	}); err != nil {
		log.Error(ctx, err, log.KV{K: "component", V: "proposal-sweeper"})
	}

	c.Start()
	return c
}
