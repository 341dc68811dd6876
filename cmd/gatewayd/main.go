// Command gatewayd runs a demonstration HTTP transport in front of the
// gateway core: intercept, hold review, and proposal review as plain JSON
// endpoints. The core (interceptor, hold, proposal, drift, agentregistry)
// has no HTTP dependency of its own; this binary is one possible front
// door for it, not the thing being governed.
//
// # Configuration
//
// Environment variables:
//
//	GATEWAYD_ADDR             - HTTP listen address (default: ":8080")
//	GATEWAYD_CONFIG           - path to a YAML gateway config file (optional)
//	GATEWAYD_ONTOLOGY_OVERLAY - path to a TOML ontology overlay file (optional)
//	GATEWAYD_SQLITE_PATH      - path to a sqlite database file (default: in-memory store)
//	GATEWAYD_NATS_URL         - NATS server URL for hold/proposal notifications (optional)
package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/agentgov/gatekeeper/agentregistry"
	"github.com/agentgov/gatekeeper/audit"
	gwconfig "github.com/agentgov/gatekeeper/config"
	"github.com/agentgov/gatekeeper/drift"
	"github.com/agentgov/gatekeeper/frame"
	"github.com/agentgov/gatekeeper/hold"
	"github.com/agentgov/gatekeeper/interceptor"
	"github.com/agentgov/gatekeeper/notify"
	"github.com/agentgov/gatekeeper/ontology"
	"github.com/agentgov/gatekeeper/proposal"
	"github.com/agentgov/gatekeeper/store"
	"github.com/agentgov/gatekeeper/store/memory"
	"github.com/agentgov/gatekeeper/store/sqlite"
	"github.com/agentgov/gatekeeper/telemetry"
	"github.com/agentgov/gatekeeper/validate"

	"goa.design/clue/log"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatal(err)
	}
}

func run() error {
	ctx := log.Context(context.Background(), log.WithFormat(log.FormatText))

	addr := envOr("GATEWAYD_ADDR", ":8080")

	cfg := gwconfig.Default()
	if path := os.Getenv("GATEWAYD_CONFIG"); path != "" {
		loaded, err := gwconfig.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	catalog := [][]ontology.Symbol{ontology.DefaultCatalog()}
	if path := os.Getenv("GATEWAYD_ONTOLOGY_OVERLAY"); path != "" {
		overlay, err := gwconfig.LoadOntologyOverlay(path)
		if err != nil {
			return err
		}
		catalog = append(catalog, overlay)
	}
	reg := ontology.New(catalog...)

	var st store.Store
	if path := os.Getenv("GATEWAYD_SQLITE_PATH"); path != "" {
		db, err := sqlite.Open(path)
		if err != nil {
			return err
		}
		defer db.Close()
		st = db
	} else {
		st = memory.New()
	}

	var notifier notify.Notifier = notify.NoopNotifier{}
	if url := os.Getenv("GATEWAYD_NATS_URL"); url != "" {
		conn, err := nats.Connect(url)
		if err != nil {
			return err
		}
		defer conn.Close()
		notifier = notify.NewNATSNotifier(conn, "gatekeeper.events")
	}

	auditLog := audit.NewLog()

	driftCfg := drift.DefaultConfig()
	driftCfg.WarningThreshold = cfg.DriftWarningThreshold
	driftCfg.CriticalThreshold = cfg.DriftCriticalThreshold
	driftCfg.WindowSize = cfg.DriftWindowSize
	driftCfg.Cooldown = cfg.Cooldown()
	driftCfg.ConsecutiveFailureCeiling = cfg.ConsecutiveFailureCeiling
	driftEngine, err := drift.NewEngine(reg, driftCfg, auditLog)
	if err != nil {
		return err
	}

	holdOpts := []hold.Option{hold.WithNotifier(notifier)}
	if url := os.Getenv("GATEWAYD_REDIS_URL"); url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		holdOpts = append(holdOpts, hold.WithFingerprintStore(hold.NewRedisFingerprintStore(rdb, "gatekeeper:hold:fp:")))
	}
	holds := hold.NewManager(auditLog, holdOpts...)
	registry := agentregistry.NewRegistry(auditLog)
	proposals := proposal.NewManager(registry, holds, auditLog,
		proposal.WithStore(st),
		proposal.WithNotifier(notifier),
		proposal.WithDefaultTTL(cfg.ProposalDefaultTTL()),
	)

	promMetrics := telemetry.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	metrics := telemetry.NewMultiMetrics(telemetry.NewClueMetrics(), promMetrics)

	gk := interceptor.New(
		interceptor.Config{
			HoldOnDriftPrediction:       cfg.HoldOnDriftPrediction,
			HoldOnForbiddenWithOverride: cfg.HoldOnForbiddenWithOverride,
			HoldTimeout:                 cfg.HoldTimeout(),
			MinAllowConfidence:          interceptor.DefaultConfig().MinAllowConfidence,
		},
		frame.NewResolver(reg),
		validate.NewValidator(reg),
		driftEngine,
		holds,
		registry,
		auditLog,
		telemetry.NewClueLogger(),
		metrics,
		telemetry.NewClueTracer(),
	)

	srv := newServer(gk, holds, proposals, registry)
	srv.metrics = promMetrics

	sweepers := startSweepers(ctx, holds, proposals)
	defer sweepers.Stop()

	gaugeStop := startGaugeReporter(promMetrics, holds)
	defer close(gaugeStop)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           log.HTTP(ctx)(srv.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf(ctx, "gatewayd listening on %s", addr)
	return httpSrv.ListenAndServe()
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
